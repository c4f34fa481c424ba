package handler

import (
	"errors"
	"net/http"

	"backend/internal/workflow"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondWorkflowError maps the engine's error taxonomy onto HTTP
// statuses. The wrapped message always reaches the caller — a rejected
// action never surfaces as a bare failure without a reason.
func respondWorkflowError(c *gin.Context, err error) {
	status := http.StatusBadRequest

	switch {
	case errors.Is(err, workflow.ErrRequestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrNotAuthorizedForState),
		errors.Is(err, workflow.ErrRequestTerminal):
		status = http.StatusForbidden
	case errors.Is(err, workflow.ErrOtpRequired),
		errors.Is(err, workflow.ErrInvalidCode),
		errors.Is(err, workflow.ErrExpiredOrUsedOtp):
		status = http.StatusUnauthorized
	case errors.Is(err, workflow.ErrStaleState),
		errors.Is(err, workflow.ErrVehicleUnavailable):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrUnconfiguredTransition):
		// Configuration defect, not actor-correctable
		status = http.StatusInternalServerError
	case errors.Is(err, workflow.ErrInvalidRequestData),
		errors.Is(err, workflow.ErrMissingRejectionReason),
		errors.Is(err, workflow.ErrInvalidEstimationInput),
		errors.Is(err, workflow.ErrEstimationRequired):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}

	c.JSON(status, response.Error(status, err.Error()))
}
