package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type VehicleHandler struct {
	vehicleService service.VehicleService
}

func NewVehicleHandler(vehicleService service.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicleService: vehicleService}
}

func (h *VehicleHandler) RegisterRoutes(router *gin.RouterGroup) {
	vehicles := router.Group("/api/vehicles")
	{
		// Any authenticated role can browse the fleet (approvers need it
		// to pick an available vehicle)
		vehicles.GET("", middleware.RequireRole(middleware.AllRoles()...), h.ListVehicles)
		vehicles.GET("/:id", middleware.RequireRole(middleware.AllRoles()...), h.GetVehicle)
		// Fleet records are managed by admin and the transport manager
		vehicles.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleTransportManager), h.CreateVehicle)
		vehicles.PUT("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleTransportManager), h.UpdateVehicle)
	}
}

// CreateVehicle registers a new fleet vehicle
func (h *VehicleHandler) CreateVehicle(c *gin.Context) {
	var req service.CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	vehicle, err := h.vehicleService.CreateVehicle(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, vehicle))
}

// ListVehicles returns fleet vehicles, optionally only available ones
func (h *VehicleHandler) ListVehicles(c *gin.Context) {
	params := pagination.Parse(c)
	onlyAvailable := c.Query("available") == "true"

	vehicles, total, err := h.vehicleService.ListVehicles(c.Request.Context(), onlyAvailable, params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch vehicles"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"vehicles": vehicles,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// GetVehicle returns one vehicle's detail
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	vehicle, err := h.vehicleService.GetVehicleByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vehicle))
}

// UpdateVehicle updates a vehicle's record
func (h *VehicleHandler) UpdateVehicle(c *gin.Context) {
	var req service.UpdateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	vehicle, err := h.vehicleService.UpdateVehicle(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, vehicle))
}
