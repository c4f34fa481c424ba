package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	ws "backend/internal/websocket"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

// Actor is the authenticated caller, passed explicitly into every
// engine operation instead of being read from ambient state.
type Actor struct {
	ID   uuid.UUID
	Role string
}

type SubmitRequestDTO struct {
	Kind        string `json:"kind" binding:"required,oneof=TRANSPORT HIGH_COST_TRANSPORT MAINTENANCE REFUELING SERVICE"`
	Description string `json:"description" binding:"required"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	VehicleID   string `json:"vehicle_id"`
}

// ActionDTO carries one workflow action. Optional fields apply per
// action: rejection_message for reject, estimation inputs for
// forward/approve at the estimating role, vehicle_id for assign,
// otp_code whenever the acting role is flagged sensitive.
type ActionDTO struct {
	Action              string `json:"action" binding:"required,oneof=approve forward reject assign complete"`
	OTPCode             string `json:"otp_code"`
	RejectionMessage    string `json:"rejection_message"`
	EstimatedDistanceKm string `json:"estimated_distance_km"`
	FuelPricePerLiter   string `json:"fuel_price_per_liter"`
	VehicleID           string `json:"vehicle_id"`
}

type EstimateDTO struct {
	EstimatedDistanceKm string `json:"estimated_distance_km" binding:"required"`
	FuelPricePerLiter   string `json:"fuel_price_per_liter" binding:"required"`
}

type RequestListFilter struct {
	Kind      string
	State     string
	Requester string // "me" resolved by the handler into an actor ID
	Page      int
	Limit     int
}

type RequestResponse struct {
	ID                  string  `json:"id"`
	Kind                string  `json:"kind"`
	State               string  `json:"state"`
	CurrentApproverRole *string `json:"current_approver_role"`
	RequestedBy         string  `json:"requested_by"`
	RequesterName       string  `json:"requester_name,omitempty"`
	Description         string  `json:"description"`
	Origin              string  `json:"origin,omitempty"`
	Destination         string  `json:"destination,omitempty"`
	VehicleID           *string `json:"vehicle_id,omitempty"`
	VehiclePlate        string  `json:"vehicle_plate,omitempty"`
	AssignedVehicleID   *string `json:"assigned_vehicle_id,omitempty"`
	AssignedPlate       string  `json:"assigned_vehicle_plate,omitempty"`
	EstimatedDistanceKm *string `json:"estimated_distance_km,omitempty"`
	FuelPricePerLiter   *string `json:"fuel_price_per_liter,omitempty"`
	FuelNeededLiters    *string `json:"fuel_needed_liters,omitempty"`
	TotalCost           *string `json:"total_cost,omitempty"`
	RejectionMessage    string  `json:"rejection_message,omitempty"`
	CreatedAt           string  `json:"created_at"`
	UpdatedAt           string  `json:"updated_at"`
}

// Websocket payload for dashboards watching approval queues
type RequestEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// --- Interface ---

// RequestService is the workflow engine: the single authority over a
// request's state and current approver role.
type RequestService interface {
	Submit(ctx context.Context, actor Actor, req SubmitRequestDTO) (RequestResponse, error)
	Act(ctx context.Context, id string, actor Actor, action ActionDTO) (RequestResponse, error)
	Estimate(ctx context.Context, id string, actor Actor, req EstimateDTO) (RequestResponse, error)
	GetByID(ctx context.Context, id string) (RequestResponse, error)
	List(ctx context.Context, actor Actor, filter RequestListFilter) ([]RequestResponse, int64, error)
}

type requestService struct {
	requests  repository.RequestRepository
	otps      repository.OTPRepository
	audits    repository.AuditRepository
	vehicles  repository.VehicleRepository
	txManager repository.TransactionManager
	chains    *workflow.EscalationTable
	cfg       workflow.Config
	hub       *ws.Hub // optional, may be nil in tests
	now       func() time.Time
}

func NewRequestService(
	requests repository.RequestRepository,
	otps repository.OTPRepository,
	audits repository.AuditRepository,
	vehicles repository.VehicleRepository,
	txManager repository.TransactionManager,
	chains *workflow.EscalationTable,
	cfg workflow.Config,
	hub *ws.Hub,
) RequestService {
	return &requestService{
		requests:  requests,
		otps:      otps,
		audits:    audits,
		vehicles:  vehicles,
		txManager: txManager,
		chains:    chains,
		cfg:       cfg,
		hub:       hub,
		now:       time.Now,
	}
}

// --- Submit ---

func (s *requestService) Submit(ctx context.Context, actor Actor, req SubmitRequestDTO) (RequestResponse, error) {
	if err := s.validateSubmit(req); err != nil {
		return RequestResponse{}, err
	}

	firstRole, err := s.chains.FirstRole(req.Kind)
	if err != nil {
		return RequestResponse{}, err
	}

	record := model.Request{
		Kind:                req.Kind,
		State:               model.StatePending,
		CurrentApproverRole: &firstRole,
		RequestedBy:         actor.ID,
		Description:         req.Description,
		Origin:              req.Origin,
		Destination:         req.Destination,
		Version:             1,
	}

	if req.VehicleID != "" {
		vehicleID, parseErr := uuid.Parse(req.VehicleID)
		if parseErr != nil {
			return RequestResponse{}, fmt.Errorf("%w: invalid vehicle_id", workflow.ErrInvalidRequestData)
		}
		record.VehicleID = &vehicleID
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if record.VehicleID != nil {
			if _, findErr := s.vehicles.FindByID(txCtx, *record.VehicleID); findErr != nil {
				return findErr
			}
		}
		if createErr := s.requests.Create(txCtx, &record); createErr != nil {
			return fmt.Errorf("failed to create request: %w", createErr)
		}
		return s.appendAudit(txCtx, &record, actor, model.ActionSubmit, "", model.StatePending, "", nil)
	})
	if err != nil {
		return RequestResponse{}, err
	}

	s.broadcast(&record)
	return s.reload(ctx, record.ID)
}

// validateSubmit enforces the per-kind required fields.
func (s *requestService) validateSubmit(req SubmitRequestDTO) error {
	switch req.Kind {
	case model.KindTransport, model.KindHighCostTransport:
		if req.Origin == "" || req.Destination == "" {
			return fmt.Errorf("%w: %s requests need origin and destination", workflow.ErrInvalidRequestData, req.Kind)
		}
		if req.Kind == model.KindHighCostTransport && req.VehicleID == "" {
			return fmt.Errorf("%w: high-cost transport requests need a proposed vehicle_id", workflow.ErrInvalidRequestData)
		}
	case model.KindRefueling, model.KindMaintenance, model.KindService:
		if req.VehicleID == "" {
			return fmt.Errorf("%w: %s requests need a vehicle_id", workflow.ErrInvalidRequestData, req.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown kind %s", workflow.ErrInvalidRequestData, req.Kind)
	}
	return nil
}

// --- Act ---

// Act applies one workflow action atomically. Ordering inside the
// transaction is fixed: OTP check, then estimation, then state
// mutation, then audit append. Any failure rolls the whole step back,
// leaving request, vehicle and audit log untouched.
func (s *requestService) Act(ctx context.Context, id string, actor Actor, action ActionDTO) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("%w: invalid request id", workflow.ErrInvalidRequestData)
	}

	var record *model.Request
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		record, err = s.requests.FindByID(txCtx, requestID)
		if err != nil {
			return err
		}

		if action.Action == "complete" {
			return s.applyComplete(txCtx, record, actor)
		}

		if record.Terminal() {
			return fmt.Errorf("%w: request is already %s", workflow.ErrRequestTerminal, record.State)
		}
		if record.CurrentApproverRole == nil || actor.Role != *record.CurrentApproverRole {
			return fmt.Errorf("%w: request is waiting on %s", workflow.ErrNotAuthorizedForState, derefOr(record.CurrentApproverRole, "no one"))
		}

		// Step-up gate first; nothing else runs on a failed or missing grant.
		if s.cfg.IsSensitive(record.Kind, actor.Role) {
			if gateErr := s.passStepUp(txCtx, record.ID, actor, action.OTPCode); gateErr != nil {
				return gateErr
			}
		}

		switch action.Action {
		case "reject":
			return s.applyReject(txCtx, record, actor, action)
		case "approve", "forward":
			return s.applyAdvance(txCtx, record, actor, action)
		case "assign":
			return s.applyAssign(txCtx, record, actor, action)
		default:
			return fmt.Errorf("%w: unknown action %s", workflow.ErrInvalidRequestData, action.Action)
		}
	})
	if err != nil {
		return RequestResponse{}, err
	}

	s.broadcast(record)
	return s.reload(ctx, record.ID)
}

// passStepUp verifies an inline otp_code if supplied, then requires
// and spends a live verification grant for the (request, actor) pair.
func (s *requestService) passStepUp(ctx context.Context, requestID uuid.UUID, actor Actor, otpCode string) error {
	if otpCode != "" {
		if err := s.verifyInline(ctx, requestID, actor.ID, otpCode); err != nil {
			return err
		}
	}

	grant, err := s.otps.FindGrant(ctx, requestID, actor.ID)
	if err != nil {
		return fmt.Errorf("failed to look up otp grant: %w", err)
	}
	if grant == nil {
		return fmt.Errorf("%w: this action needs a verified one-time code", workflow.ErrOtpRequired)
	}
	now := s.now()
	if grant.Expired(now) {
		return fmt.Errorf("%w: verification window has passed, request a new code", workflow.ErrOtpRequired)
	}

	// Spend the grant conditionally: one verification authorizes exactly
	// one action, even if two sensitive actions race for the same grant.
	return s.otps.SpendGrant(ctx, grant.ID, now)
}

// verifyInline mirrors OTPService.Verify for codes submitted with the
// action payload, inside the action's own transaction.
func (s *requestService) verifyInline(ctx context.Context, requestID, actorID uuid.UUID, code string) error {
	challenge, err := s.otps.FindLive(ctx, requestID, actorID)
	if err != nil {
		return fmt.Errorf("failed to look up otp challenge: %w", err)
	}
	if challenge == nil {
		return workflow.ErrExpiredOrUsedOtp
	}
	now := s.now()
	if challenge.Expired(now) {
		if consumeErr := s.otps.Consume(ctx, challenge.ID, nil); consumeErr != nil && !errors.Is(consumeErr, workflow.ErrExpiredOrUsedOtp) {
			return fmt.Errorf("failed to expire otp challenge: %w", consumeErr)
		}
		return workflow.ErrExpiredOrUsedOtp
	}
	if challenge.Code != code {
		return workflow.ErrInvalidCode
	}
	// Conditional consume: a resend that committed after our read makes
	// this snapshot stale, and the superseded code must not verify.
	return s.otps.Consume(ctx, challenge.ID, &now)
}

func (s *requestService) applyReject(ctx context.Context, record *model.Request, actor Actor, action ActionDTO) error {
	reason := strings.TrimSpace(action.RejectionMessage)
	if reason == "" {
		return workflow.ErrMissingRejectionReason
	}

	priorState := record.State
	priorVersion := record.Version
	record.State = model.StateRejected
	record.CurrentApproverRole = nil
	record.RejectionMessage = reason

	if err := s.requests.UpdateVersioned(ctx, record, priorVersion); err != nil {
		return err
	}
	return s.appendAudit(ctx, record, actor, model.ActionReject, priorState, model.StateRejected, reason, nil)
}

func (s *requestService) applyAdvance(ctx context.Context, record *model.Request, actor Actor, action ActionDTO) error {
	// Estimation gate: the estimating role cannot push a cost-dependent
	// request onward until cost fields are populated.
	if s.cfg.RequiresEstimation(record.Kind, actor.Role) && !record.CostFieldsPopulated() {
		if action.EstimatedDistanceKm == "" || action.FuelPricePerLiter == "" {
			return fmt.Errorf("%w: supply estimated_distance_km and fuel_price_per_liter", workflow.ErrEstimationRequired)
		}
		if err := s.runEstimation(ctx, record, action.EstimatedDistanceKm, action.FuelPricePerLiter); err != nil {
			return err
		}
	}

	nextRole, err := s.chains.NextRole(record.Kind, actor.Role)
	if err != nil {
		return err
	}

	priorState := record.State
	priorVersion := record.Version
	auditAction := model.ActionForward

	if nextRole == "" {
		if s.cfg.AssignKinds[record.Kind] {
			return fmt.Errorf("%w: final approval of %s requests assigns a vehicle", workflow.ErrInvalidRequestData, record.Kind)
		}
		record.State = model.StateApproved
		record.CurrentApproverRole = nil
		auditAction = model.ActionApprove
	} else {
		record.State = model.StateForwarded
		record.CurrentApproverRole = &nextRole
	}

	if err := s.requests.UpdateVersioned(ctx, record, priorVersion); err != nil {
		return err
	}
	return s.appendAudit(ctx, record, actor, auditAction, priorState, record.State, "", nil)
}

func (s *requestService) applyAssign(ctx context.Context, record *model.Request, actor Actor, action ActionDTO) error {
	if !s.cfg.AssignKinds[record.Kind] {
		return fmt.Errorf("%w: %s requests do not take vehicle assignment", workflow.ErrInvalidRequestData, record.Kind)
	}

	finalRole, err := s.chains.FinalRole(record.Kind)
	if err != nil {
		return err
	}
	if actor.Role != finalRole {
		return fmt.Errorf("%w: only %s may assign a vehicle", workflow.ErrNotAuthorizedForState, finalRole)
	}
	// Cost-dependent kinds cannot reach assignment without estimation.
	if s.cfg.CostDependent(record.Kind) && !record.CostFieldsPopulated() {
		return fmt.Errorf("%w: cost fields are missing", workflow.ErrEstimationRequired)
	}

	if action.VehicleID == "" {
		return fmt.Errorf("%w: assign needs a vehicle_id", workflow.ErrInvalidRequestData)
	}
	vehicleID, parseErr := uuid.Parse(action.VehicleID)
	if parseErr != nil {
		return fmt.Errorf("%w: invalid vehicle_id", workflow.ErrInvalidRequestData)
	}

	vehicle, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return err
	}
	// Availability flips under the same transaction as the request
	// mutation, so two approvers cannot hand out the same vehicle.
	if err := s.vehicles.Reserve(ctx, vehicle.ID); err != nil {
		return err
	}

	priorState := record.State
	priorVersion := record.Version
	record.State = model.StateApproved
	record.CurrentApproverRole = nil
	record.AssignedVehicleID = &vehicle.ID

	if err := s.requests.UpdateVersioned(ctx, record, priorVersion); err != nil {
		return err
	}

	details := map[string]interface{}{"vehicle_id": vehicle.ID.String(), "plate_number": vehicle.PlateNumber}
	return s.appendAudit(ctx, record, actor, model.ActionAssign, priorState, model.StateApproved, "", details)
}

// applyComplete closes out an approved trip: only the driver assigned
// to the request's vehicle may do it, and it frees the vehicle.
func (s *requestService) applyComplete(ctx context.Context, record *model.Request, actor Actor) error {
	if !s.cfg.CompletableKinds[record.Kind] {
		return fmt.Errorf("%w: %s requests have no completion step", workflow.ErrInvalidRequestData, record.Kind)
	}
	if record.State != model.StateApproved {
		return fmt.Errorf("%w: only approved trips can be completed", workflow.ErrNotAuthorizedForState)
	}
	if actor.Role != model.RoleDriver {
		return fmt.Errorf("%w: completion is a driver action", workflow.ErrNotAuthorizedForState)
	}
	if record.AssignedVehicleID == nil {
		return fmt.Errorf("%w: no vehicle assigned", workflow.ErrInvalidRequestData)
	}

	vehicle, err := s.vehicles.FindByID(ctx, *record.AssignedVehicleID)
	if err != nil {
		return err
	}
	if vehicle.AssignedDriverID == nil || *vehicle.AssignedDriverID != actor.ID {
		return fmt.Errorf("%w: trip belongs to another driver", workflow.ErrNotAuthorizedForState)
	}

	priorState := record.State
	priorVersion := record.Version
	record.State = model.StateCompleted
	record.CurrentApproverRole = nil

	if err := s.requests.UpdateVersioned(ctx, record, priorVersion); err != nil {
		return err
	}
	if err := s.vehicles.Release(ctx, vehicle.ID); err != nil {
		return fmt.Errorf("failed to release vehicle: %w", err)
	}
	return s.appendAudit(ctx, record, actor, model.ActionComplete, priorState, model.StateCompleted, "", nil)
}

// --- Estimate ---

// Estimate runs (or re-runs) the cost calculation without advancing
// the request. Only the estimating role may call it, and only while
// the request still sits with that role.
func (s *requestService) Estimate(ctx context.Context, id string, actor Actor, req EstimateDTO) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("%w: invalid request id", workflow.ErrInvalidRequestData)
	}

	var record *model.Request
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		record, err = s.requests.FindByID(txCtx, requestID)
		if err != nil {
			return err
		}
		if record.Terminal() {
			return fmt.Errorf("%w: request is already %s", workflow.ErrRequestTerminal, record.State)
		}
		if record.CurrentApproverRole == nil || actor.Role != *record.CurrentApproverRole {
			return fmt.Errorf("%w: request is waiting on %s", workflow.ErrNotAuthorizedForState, derefOr(record.CurrentApproverRole, "no one"))
		}
		if !s.cfg.RequiresEstimation(record.Kind, actor.Role) {
			return fmt.Errorf("%w: %s requests take no estimation at %s", workflow.ErrInvalidRequestData, record.Kind, actor.Role)
		}

		priorVersion := record.Version
		if estErr := s.runEstimation(txCtx, record, req.EstimatedDistanceKm, req.FuelPricePerLiter); estErr != nil {
			return estErr
		}
		return s.requests.UpdateVersioned(txCtx, record, priorVersion)
	})
	if err != nil {
		return RequestResponse{}, err
	}

	return s.reload(ctx, record.ID)
}

// runEstimation parses the inputs, pulls the subject vehicle's fuel
// efficiency and writes the cost fields onto the record in memory.
func (s *requestService) runEstimation(ctx context.Context, record *model.Request, distanceStr, priceStr string) error {
	distance, err := decimal.NewFromString(distanceStr)
	if err != nil {
		return fmt.Errorf("%w: bad distance %q", workflow.ErrInvalidEstimationInput, distanceStr)
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return fmt.Errorf("%w: bad fuel price %q", workflow.ErrInvalidEstimationInput, priceStr)
	}
	if record.VehicleID == nil {
		return fmt.Errorf("%w: request has no vehicle to estimate against", workflow.ErrInvalidEstimationInput)
	}

	vehicle, err := s.vehicles.FindByID(ctx, *record.VehicleID)
	if err != nil {
		return err
	}

	estimate, err := workflow.EstimateCost(distance, price, vehicle.FuelEfficiency)
	if err != nil {
		return err
	}

	record.EstimatedDistanceKm = &distance
	record.FuelPricePerLiter = &price
	record.FuelNeededLiters = &estimate.FuelNeededLiters
	record.TotalCost = &estimate.TotalCost
	return nil
}

// --- Reads ---

func (s *requestService) GetByID(ctx context.Context, id string) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("%w: invalid request id", workflow.ErrInvalidRequestData)
	}
	return s.reload(ctx, requestID)
}

func (s *requestService) List(ctx context.Context, actor Actor, filter RequestListFilter) ([]RequestResponse, int64, error) {
	repoFilter := repository.RequestFilter{
		Kind:  filter.Kind,
		State: filter.State,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	if filter.Requester == "me" {
		id := actor.ID
		repoFilter.RequestedBy = &id
	} else if filter.Requester != "" {
		id, parseErr := uuid.Parse(filter.Requester)
		if parseErr != nil {
			return nil, 0, fmt.Errorf("%w: invalid requester filter", workflow.ErrInvalidRequestData)
		}
		repoFilter.RequestedBy = &id
	}
	// Default scope: admins see everything, drivers their own
	// submissions, approvers the queue waiting on their role.
	if filter.Requester == "" {
		switch actor.Role {
		case model.RoleAdmin:
		case model.RoleDriver:
			id := actor.ID
			repoFilter.RequestedBy = &id
		default:
			repoFilter.Role = actor.Role
		}
	}

	records, total, err := s.requests.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch requests: %w", err)
	}

	result := make([]RequestResponse, 0, len(records))
	for _, r := range records {
		result = append(result, toRequestResponse(r))
	}
	return result, total, nil
}

// --- Helpers ---

func (s *requestService) appendAudit(ctx context.Context, record *model.Request, actor Actor, action, priorState, newState, rejectionMessage string, extra map[string]interface{}) error {
	details := map[string]interface{}{"kind": record.Kind}
	for k, v := range extra {
		details[k] = v
	}
	payload, _ := json.Marshal(details)

	entry := model.AuditLogEntry{
		RequestID:        record.ID,
		RequestKind:      record.Kind,
		ActorID:          actor.ID,
		ActorRole:        actor.Role,
		Action:           action,
		PriorState:       priorState,
		NewState:         newState,
		RejectionMessage: rejectionMessage,
		Details:          string(payload),
	}
	if err := s.audits.Append(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *requestService) reload(ctx context.Context, id uuid.UUID) (RequestResponse, error) {
	record, err := s.requests.FindByIDWithRelations(ctx, id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("failed to reload request: %w", err)
	}
	return toRequestResponse(*record), nil
}

func (s *requestService) broadcast(record *model.Request) {
	if s.hub == nil {
		return
	}
	event := RequestEvent{
		Event: "request_updated",
		Data: map[string]interface{}{
			"id":    record.ID.String(),
			"kind":  record.Kind,
			"state": record.State,
		},
	}
	if record.CurrentApproverRole != nil {
		event.Data["current_approver_role"] = *record.CurrentApproverRole
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case s.hub.Broadcast <- payload:
	default: // never block the request path on slow dashboards
	}
}

func toRequestResponse(r model.Request) RequestResponse {
	resp := RequestResponse{
		ID:                  r.ID.String(),
		Kind:                r.Kind,
		State:               r.State,
		CurrentApproverRole: r.CurrentApproverRole,
		RequestedBy:         r.RequestedBy.String(),
		Description:         r.Description,
		Origin:              r.Origin,
		Destination:         r.Destination,
		RejectionMessage:    r.RejectionMessage,
		CreatedAt:           r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           r.UpdatedAt.Format(time.RFC3339),
	}

	if r.Requester != nil {
		resp.RequesterName = r.Requester.Username
	}
	if r.VehicleID != nil {
		s := r.VehicleID.String()
		resp.VehicleID = &s
	}
	if r.Vehicle != nil {
		resp.VehiclePlate = r.Vehicle.PlateNumber
	}
	if r.AssignedVehicleID != nil {
		s := r.AssignedVehicleID.String()
		resp.AssignedVehicleID = &s
	}
	if r.AssignedVehicle != nil {
		resp.AssignedPlate = r.AssignedVehicle.PlateNumber
	}
	if r.EstimatedDistanceKm != nil {
		s := r.EstimatedDistanceKm.String()
		resp.EstimatedDistanceKm = &s
	}
	if r.FuelPricePerLiter != nil {
		s := r.FuelPricePerLiter.String()
		resp.FuelPricePerLiter = &s
	}
	if r.FuelNeededLiters != nil {
		s := r.FuelNeededLiters.String()
		resp.FuelNeededLiters = &s
	}
	if r.TotalCost != nil {
		s := r.TotalCost.String()
		resp.TotalCost = &s
	}
	return resp
}

func derefOr(s *string, fallback string) string {
	if s != nil {
		return *s
	}
	return fallback
}
