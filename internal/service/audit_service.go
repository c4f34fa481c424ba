package service

import (
	"context"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
)

type AuditEntryResponse struct {
	ID               string `json:"id"`
	RequestID        string `json:"request_id"`
	RequestKind      string `json:"request_kind"`
	ActorID          string `json:"actor_id"`
	ActorName        string `json:"actor_name"`
	ActorRole        string `json:"actor_role"`
	Action           string `json:"action"`
	PriorState       string `json:"prior_state"`
	NewState         string `json:"new_state"`
	RejectionMessage string `json:"rejection_message,omitempty"`
	Details          string `json:"details"`
	CreatedAt        string `json:"created_at"`
}

type AuditService interface {
	// ListForRequest returns the full transition history of one
	// request, oldest first.
	ListForRequest(ctx context.Context, requestID string) ([]AuditEntryResponse, error)
	// List returns the global audit trail, newest first, optionally
	// filtered by request kind, action or resulting state.
	List(ctx context.Context, filter repository.AuditFilter) ([]AuditEntryResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) ListForRequest(ctx context.Context, requestID string) ([]AuditEntryResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid request id", workflow.ErrInvalidRequestData)
	}

	entries, err := s.repo.ListForRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch request history: %w", err)
	}

	result := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, toAuditResponse(e))
	}
	return result, nil
}

func (s *auditService) List(ctx context.Context, filter repository.AuditFilter) ([]AuditEntryResponse, int64, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	result := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, toAuditResponse(e))
	}
	return result, total, nil
}

func toAuditResponse(e model.AuditLogEntry) AuditEntryResponse {
	actorName := "System"
	if e.Actor != nil {
		actorName = e.Actor.Username
	}
	return AuditEntryResponse{
		ID:               e.ID.String(),
		RequestID:        e.RequestID.String(),
		RequestKind:      e.RequestKind,
		ActorID:          e.ActorID.String(),
		ActorName:        actorName,
		ActorRole:        e.ActorRole,
		Action:           e.Action,
		PriorState:       e.PriorState,
		NewState:         e.NewState,
		RejectionMessage: e.RejectionMessage,
		Details:          e.Details,
		CreatedAt:        e.CreatedAt.Format(time.RFC3339),
	}
}
