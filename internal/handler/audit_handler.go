package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	// History is restricted to oversight roles
	group.Use(middleware.RequireRole(model.RoleAdmin, model.RoleFinanceManager, model.RoleCEO))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves the global transition history, newest first
// @Summary      Get audit logs
// @Description  Retrieves audit log entries, optionally filtered by request kind, action or resulting state
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        kind    query     string  false  "Request kind filter"
// @Param        action  query     string  false  "Action filter"
// @Param        state   query     string  false  "Resulting state filter"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	filter := repository.AuditFilter{
		RequestKind: c.Query("kind"),
		Action:      c.Query("action"),
		NewState:    c.Query("state"),
		Page:        params.Page,
		Limit:       params.Limit,
	}

	logs, total, err := h.auditService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve audit logs: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}
