package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RequestHandler struct {
	requestService service.RequestService
	otpService     service.OTPService
	auditService   service.AuditService
}

func NewRequestHandler(requestService service.RequestService, otpService service.OTPService, auditService service.AuditService) *RequestHandler {
	return &RequestHandler{
		requestService: requestService,
		otpService:     otpService,
		auditService:   auditService,
	}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	requests.Use(middleware.RequireRole(middleware.AllRoles()...))
	{
		requests.POST("", h.SubmitRequest)
		requests.GET("", h.ListRequests)
		requests.GET("/:id", h.GetRequest)
		requests.GET("/:id/history", h.GetRequestHistory)
		requests.POST("/:id/otp", h.RequestOTP)
		requests.POST("/:id/otp/verify", h.VerifyOTP)
		requests.POST("/:id/estimate", h.EstimateRequest)
		requests.POST("/:id/actions", h.SubmitAction)
	}
}

// actorFromContext resolves the authenticated caller set by the auth
// middleware into an explicit Actor for the engine.
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	idValue, _ := c.Get("userID")
	roleValue, _ := c.Get("userRole")

	idStr, _ := idValue.(string)
	role, _ := roleValue.(string)

	id, err := uuid.Parse(idStr)
	if err != nil || role == "" {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid actor identity"))
		return service.Actor{}, false
	}
	return service.Actor{ID: id, Role: role}, true
}

// SubmitRequest creates a new fleet request
// @Summary      Submit request
// @Description  Creates a request and places it with the first role of its kind's approval chain
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SubmitRequestDTO  true  "Request payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) SubmitRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req service.SubmitRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Submit(c.Request.Context(), actor, req)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListRequests returns requests visible to the caller, optionally
// filtered by kind, state or requester (use requester=me for own)
func (h *RequestHandler) ListRequests(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	filter := service.RequestListFilter{
		Kind:      c.Query("kind"),
		State:     c.Query("state"),
		Requester: c.Query("requester"),
		Page:      params.Page,
		Limit:     params.Limit,
	}

	requests, total, err := h.requestService.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// GetRequest returns one request's detail
func (h *RequestHandler) GetRequest(c *gin.Context) {
	result, err := h.requestService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetRequestHistory returns the request's audit trail, oldest first
func (h *RequestHandler) GetRequestHistory(c *gin.Context) {
	entries, err := h.auditService.ListForRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}

// RequestOTP issues a step-up challenge for the caller on this request
// @Summary      Request OTP challenge
// @Description  Issues a one-time code for the caller, invalidating any previous live code
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Request ID"
// @Success      201  {object}  response.Response{data=service.OTPChallengeResponse}
// @Router       /api/requests/{id}/otp [post]
func (h *RequestHandler) RequestOTP(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request id"))
		return
	}

	challenge, err := h.otpService.Issue(c.Request.Context(), requestID, actor.ID)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, challenge))
}

type verifyOTPRequest struct {
	Code string `json:"code" binding:"required"`
}

// VerifyOTP verifies a previously issued code, leaving a grant the
// next sensitive action consumes
func (h *RequestHandler) VerifyOTP(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request id"))
		return
	}

	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	if err := h.otpService.Verify(c.Request.Context(), requestID, actor.ID, req.Code); err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Code verified"))
}

// EstimateRequest runs (or re-runs) the cost estimation for a
// cost-dependent request without advancing it
func (h *RequestHandler) EstimateRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req service.EstimateDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Estimate(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// SubmitAction applies a workflow action to the request
// @Summary      Act on request
// @Description  Applies approve, forward, reject, assign or complete as the current approver
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string             true  "Request ID"
// @Param        payload  body      service.ActionDTO  true  "Action payload"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/actions [post]
func (h *RequestHandler) SubmitAction(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var action service.ActionDTO
	if err := c.ShouldBindJSON(&action); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Act(c.Request.Context(), c.Param("id"), actor, action)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
