package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefuelingApprovalFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	requester := env.newUser(t, "driver.nam", model.RoleDriver)
	tm := env.newUser(t, "tm.huong", model.RoleTransportManager)
	fm := env.newUser(t, "fm.quang", model.RoleFinanceManager)
	vehicle := env.newVehicle(t, "51A-12345", "10", nil)

	submitted, err := env.requests.Submit(ctx, requester, SubmitRequestDTO{
		Kind:        model.KindRefueling,
		Description: "tank refill before weekend runs",
		VehicleID:   vehicle.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatePending, submitted.State)
	require.NotNil(t, submitted.CurrentApproverRole)
	assert.Equal(t, model.RoleTransportManager, *submitted.CurrentApproverRole)
	assert.EqualValues(t, 1, env.auditCount(t, submitted.ID))

	// Transport manager cannot push a cost-dependent request without numbers
	_, err = env.requests.Act(ctx, submitted.ID, tm, ActionDTO{Action: "forward"})
	require.ErrorIs(t, err, workflow.ErrEstimationRequired)

	// Forward with estimation inputs: 50 km at 60/L through a 10 km/L truck
	forwarded, err := env.requests.Act(ctx, submitted.ID, tm, ActionDTO{
		Action:              "forward",
		EstimatedDistanceKm: "50",
		FuelPricePerLiter:   "60",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StateForwarded, forwarded.State)
	require.NotNil(t, forwarded.CurrentApproverRole)
	assert.Equal(t, model.RoleFinanceManager, *forwarded.CurrentApproverRole)
	require.NotNil(t, forwarded.FuelNeededLiters)
	assert.Equal(t, "5", *forwarded.FuelNeededLiters)
	require.NotNil(t, forwarded.TotalCost)
	assert.Equal(t, "300", *forwarded.TotalCost)
	assert.EqualValues(t, 2, env.auditCount(t, submitted.ID))

	// Finance manager is a sensitive role: no verified code, no action
	_, err = env.requests.Act(ctx, submitted.ID, fm, ActionDTO{Action: "approve"})
	require.ErrorIs(t, err, workflow.ErrOtpRequired)
	assert.EqualValues(t, 2, env.auditCount(t, submitted.ID))

	env.stepUp(t, submitted.ID, fm)
	approved, err := env.requests.Act(ctx, submitted.ID, fm, ActionDTO{Action: "approve"})
	require.NoError(t, err)
	assert.Equal(t, model.StateApproved, approved.State)
	assert.Nil(t, approved.CurrentApproverRole)
	assert.EqualValues(t, 3, env.auditCount(t, submitted.ID))

	// Terminal state: nobody can act on it any more
	_, err = env.requests.Act(ctx, submitted.ID, fm, ActionDTO{Action: "reject", RejectionMessage: "changed my mind"})
	require.ErrorIs(t, err, workflow.ErrRequestTerminal)

	history, err := env.audits.ListForRequest(ctx, submitted.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, model.ActionSubmit, history[0].Action)
	assert.Equal(t, model.ActionForward, history[1].Action)
	assert.Equal(t, model.ActionApprove, history[2].Action)
	assert.Equal(t, model.StateForwarded, history[1].NewState)
}

func TestRejectNeedsReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	requester := env.newUser(t, "requester", model.RoleDriver)
	tm := env.newUser(t, "tm", model.RoleTransportManager)
	vehicle := env.newVehicle(t, "51B-00001", "12", nil)

	submitted, err := env.requests.Submit(ctx, requester, SubmitRequestDTO{
		Kind:        model.KindRefueling,
		Description: "refill",
		VehicleID:   vehicle.ID.String(),
	})
	require.NoError(t, err)

	_, err = env.requests.Act(ctx, submitted.ID, tm, ActionDTO{Action: "reject", RejectionMessage: "   "})
	require.ErrorIs(t, err, workflow.ErrMissingRejectionReason)

	// The failed reject left no trace
	unchanged, err := env.requests.GetByID(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatePending, unchanged.State)
	assert.EqualValues(t, 1, env.auditCount(t, submitted.ID))

	rejected, err := env.requests.Act(ctx, submitted.ID, tm, ActionDTO{
		Action:           "reject",
		RejectionMessage: "vehicle is scheduled for maintenance",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StateRejected, rejected.State)
	assert.Nil(t, rejected.CurrentApproverRole)
	assert.Equal(t, "vehicle is scheduled for maintenance", rejected.RejectionMessage)
	assert.EqualValues(t, 2, env.auditCount(t, submitted.ID))
}

func TestActRoleAndStateGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	requester := env.newUser(t, "requester", model.RoleDriver)
	fm := env.newUser(t, "fm", model.RoleFinanceManager)
	vehicle := env.newVehicle(t, "51C-00002", "9", nil)

	submitted, err := env.requests.Submit(ctx, requester, SubmitRequestDTO{
		Kind:        model.KindRefueling,
		Description: "refill",
		VehicleID:   vehicle.ID.String(),
	})
	require.NoError(t, err)

	// Request sits with the transport manager, not finance
	_, err = env.requests.Act(ctx, submitted.ID, fm, ActionDTO{Action: "approve"})
	require.ErrorIs(t, err, workflow.ErrNotAuthorizedForState)

	_, err = env.requests.Act(ctx, "7b5a2e00-0000-0000-0000-000000000000", fm, ActionDTO{Action: "approve"})
	require.ErrorIs(t, err, workflow.ErrRequestNotFound)

	_, err = env.requests.Act(ctx, "not-a-uuid", fm, ActionDTO{Action: "approve"})
	require.ErrorIs(t, err, workflow.ErrInvalidRequestData)
}

func TestInlineOTPCodeWithAction(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	requester := env.newUser(t, "requester", model.RoleDriver)
	tm := env.newUser(t, "tm", model.RoleTransportManager)
	fm := env.newUser(t, "fm", model.RoleFinanceManager)
	vehicle := env.newVehicle(t, "51D-00003", "10", nil)

	submitted, err := env.requests.Submit(ctx, requester, SubmitRequestDTO{
		Kind:        model.KindRefueling,
		Description: "refill",
		VehicleID:   vehicle.ID.String(),
	})
	require.NoError(t, err)
	_, err = env.requests.Act(ctx, submitted.ID, tm, ActionDTO{
		Action:              "forward",
		EstimatedDistanceKm: "20",
		FuelPricePerLiter:   "55",
	})
	require.NoError(t, err)

	fmID := fm.ID
	reqID := uuid.MustParse(submitted.ID)

	// Wrong inline code
	_, err = env.otps.Issue(ctx, reqID, fmID)
	require.NoError(t, err)
	code := env.liveOTPCode(t, submitted.ID, fmID)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, err = env.requests.Act(ctx, submitted.ID, fm, ActionDTO{Action: "approve", OTPCode: wrong})
	require.ErrorIs(t, err, workflow.ErrInvalidCode)

	// Expired inline code: the action fails atomically, request untouched
	env.expireLiveOTP(t, submitted.ID, fmID)
	_, err = env.requests.Act(ctx, submitted.ID, fm, ActionDTO{Action: "approve", OTPCode: code})
	require.ErrorIs(t, err, workflow.ErrExpiredOrUsedOtp)

	unchanged, err := env.requests.GetByID(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateForwarded, unchanged.State)

	// Fresh code inline with the action works in one shot
	_, err = env.otps.Issue(ctx, reqID, fmID)
	require.NoError(t, err)
	fresh := env.liveOTPCode(t, submitted.ID, fmID)
	approved, err := env.requests.Act(ctx, submitted.ID, fm, ActionDTO{Action: "approve", OTPCode: fresh})
	require.NoError(t, err)
	assert.Equal(t, model.StateApproved, approved.State)
}

// resendingOTPRepo commits a superseding resend right after every
// successful challenge read, reproducing a reissue racing a verify.
type resendingOTPRepo struct {
	repository.OTPRepository
}

func (r *resendingOTPRepo) FindLive(ctx context.Context, requestID, actorID uuid.UUID) (*model.OTPChallenge, error) {
	challenge, err := r.OTPRepository.FindLive(ctx, requestID, actorID)
	if err != nil || challenge == nil {
		return challenge, err
	}
	if err := r.OTPRepository.ConsumeLive(ctx, requestID, actorID); err != nil {
		return nil, err
	}
	fresh := model.OTPChallenge{
		RequestID: requestID,
		ActorID:   actorID,
		Code:      "999999",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Minute),
	}
	if err := r.OTPRepository.Create(ctx, &fresh); err != nil {
		return nil, err
	}
	return challenge, nil
}

func TestInlineCodeSupersededByResend(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	requester := env.newUser(t, "requester", model.RoleDriver)
	tm := env.newUser(t, "tm", model.RoleTransportManager)
	fm := env.newUser(t, "fm", model.RoleFinanceManager)
	vehicle := env.newVehicle(t, "51K-00008", "10", nil)

	submitted, err := env.requests.Submit(ctx, requester, SubmitRequestDTO{
		Kind:        model.KindRefueling,
		Description: "refill",
		VehicleID:   vehicle.ID.String(),
	})
	require.NoError(t, err)
	_, err = env.requests.Act(ctx, submitted.ID, tm, ActionDTO{
		Action:              "forward",
		EstimatedDistanceKm: "25",
		FuelPricePerLiter:   "60",
	})
	require.NoError(t, err)

	// Engine whose challenge reads are superseded before the consume
	engine := NewRequestService(
		repository.NewRequestRepository(env.db),
		&resendingOTPRepo{OTPRepository: repository.NewOTPRepository(env.db)},
		repository.NewAuditRepository(env.db),
		repository.NewVehicleRepository(env.db),
		repository.NewTransactionManager(env.db),
		workflow.DefaultEscalationTable(),
		workflow.DefaultConfig(),
		nil,
	)

	_, err = env.otps.Issue(ctx, uuid.MustParse(submitted.ID), fm.ID)
	require.NoError(t, err)
	oldCode := env.liveOTPCode(t, submitted.ID, fm.ID)

	// The old code read before the resend must not verify
	_, err = engine.Act(ctx, submitted.ID, fm, ActionDTO{Action: "approve", OTPCode: oldCode})
	require.ErrorIs(t, err, workflow.ErrExpiredOrUsedOtp)

	unchanged, err := env.requests.GetByID(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateForwarded, unchanged.State)
	assert.EqualValues(t, 2, env.auditCount(t, submitted.ID))
}

func TestExpiredGrantRefused(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	requester := env.newUser(t, "requester", model.RoleDriver)
	tm := env.newUser(t, "tm", model.RoleTransportManager)
	fm := env.newUser(t, "fm", model.RoleFinanceManager)
	vehicle := env.newVehicle(t, "51L-00009", "10", nil)

	submitted, err := env.requests.Submit(ctx, requester, SubmitRequestDTO{
		Kind:        model.KindRefueling,
		Description: "refill",
		VehicleID:   vehicle.ID.String(),
	})
	require.NoError(t, err)
	_, err = env.requests.Act(ctx, submitted.ID, tm, ActionDTO{
		Action:              "forward",
		EstimatedDistanceKm: "15",
		FuelPricePerLiter:   "52",
	})
	require.NoError(t, err)

	env.stepUp(t, submitted.ID, fm)

	// A verified-but-unspent grant dies with the challenge window
	require.NoError(t, env.db.Model(&model.OTPChallenge{}).
		Where("request_id = ? AND actor_id = ? AND verified_at IS NOT NULL", submitted.ID, fm.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	_, err = env.requests.Act(ctx, submitted.ID, fm, ActionDTO{Action: "approve"})
	require.ErrorIs(t, err, workflow.ErrOtpRequired)

	unchanged, err := env.requests.GetByID(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateForwarded, unchanged.State)
}

func TestGrantSpentBySingleAction(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	requester := env.newUser(t, "requester", model.RoleDriver)
	tm := env.newUser(t, "tm", model.RoleTransportManager)
	fm := env.newUser(t, "fm", model.RoleFinanceManager)
	vehicle := env.newVehicle(t, "51E-00004", "10", nil)

	submitted, err := env.requests.Submit(ctx, requester, SubmitRequestDTO{
		Kind:        model.KindRefueling,
		Description: "refill",
		VehicleID:   vehicle.ID.String(),
	})
	require.NoError(t, err)
	_, err = env.requests.Act(ctx, submitted.ID, tm, ActionDTO{
		Action:              "forward",
		EstimatedDistanceKm: "10",
		FuelPricePerLiter:   "50",
	})
	require.NoError(t, err)

	env.stepUp(t, submitted.ID, fm)

	// The gate passes before the reason check, but the transaction
	// rolls back, so a failed action does not burn the grant.
	_, err = env.requests.Act(ctx, submitted.ID, fm, ActionDTO{Action: "reject", RejectionMessage: ""})
	require.ErrorIs(t, err, workflow.ErrMissingRejectionReason)

	rejected, err := env.requests.Act(ctx, submitted.ID, fm, ActionDTO{
		Action:           "reject",
		RejectionMessage: "budget exhausted this quarter",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StateRejected, rejected.State)
}

func TestTransportAssignAndComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	requester := env.newUser(t, "staff.linh", model.RoleDriver)
	dm := env.newUser(t, "dm", model.RoleDepartmentManager)
	tm := env.newUser(t, "tm", model.RoleTransportManager)
	driver := env.newUser(t, "driver.tuan", model.RoleDriver)
	otherDriver := env.newUser(t, "driver.khac", model.RoleDriver)
	driverID := driver.ID
	vehicle := env.newVehicle(t, "51F-00005", "11", &driverID)

	submitted, err := env.requests.Submit(ctx, requester, SubmitRequestDTO{
		Kind:        model.KindTransport,
		Description: "deliver spare parts to the depot",
		Origin:      "District 1 warehouse",
		Destination: "Binh Duong depot",
	})
	require.NoError(t, err)
	require.NotNil(t, submitted.CurrentApproverRole)
	assert.Equal(t, model.RoleDepartmentManager, *submitted.CurrentApproverRole)

	forwarded, err := env.requests.Act(ctx, submitted.ID, dm, ActionDTO{Action: "approve"})
	require.NoError(t, err)
	assert.Equal(t, model.StateForwarded, forwarded.State)
	assert.Equal(t, model.RoleTransportManager, *forwarded.CurrentApproverRole)

	// The final role of an assignable kind must assign, not plain-approve
	_, err = env.requests.Act(ctx, submitted.ID, tm, ActionDTO{Action: "approve"})
	require.ErrorIs(t, err, workflow.ErrInvalidRequestData)

	_, err = env.requests.Act(ctx, submitted.ID, tm, ActionDTO{Action: "assign"})
	require.ErrorIs(t, err, workflow.ErrInvalidRequestData)

	// Unknown vehicle id is a bad reference, not an availability conflict
	_, err = env.requests.Act(ctx, submitted.ID, tm, ActionDTO{
		Action:    "assign",
		VehicleID: uuid.NewString(),
	})
	require.ErrorIs(t, err, workflow.ErrInvalidRequestData)
	require.NotErrorIs(t, err, workflow.ErrVehicleUnavailable)

	assigned, err := env.requests.Act(ctx, submitted.ID, tm, ActionDTO{
		Action:    "assign",
		VehicleID: vehicle.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StateApproved, assigned.State)
	assert.Nil(t, assigned.CurrentApproverRole)
	require.NotNil(t, assigned.AssignedVehicleID)
	assert.Equal(t, vehicle.ID.String(), *assigned.AssignedVehicleID)

	var reserved model.Vehicle
	require.NoError(t, env.db.First(&reserved, "id = ?", vehicle.ID).Error)
	assert.False(t, reserved.IsAvailable)

	// Same vehicle cannot be handed to a second trip while reserved
	second, err := env.requests.Submit(ctx, requester, SubmitRequestDTO{
		Kind:        model.KindTransport,
		Description: "second trip",
		Origin:      "A",
		Destination: "B",
	})
	require.NoError(t, err)
	_, err = env.requests.Act(ctx, second.ID, dm, ActionDTO{Action: "approve"})
	require.NoError(t, err)
	_, err = env.requests.Act(ctx, second.ID, tm, ActionDTO{
		Action:    "assign",
		VehicleID: vehicle.ID.String(),
	})
	require.ErrorIs(t, err, workflow.ErrVehicleUnavailable)

	// Only the vehicle's own driver may complete the trip
	_, err = env.requests.Act(ctx, submitted.ID, otherDriver, ActionDTO{Action: "complete"})
	require.ErrorIs(t, err, workflow.ErrNotAuthorizedForState)

	completed, err := env.requests.Act(ctx, submitted.ID, driver, ActionDTO{Action: "complete"})
	require.NoError(t, err)
	assert.Equal(t, model.StateCompleted, completed.State)

	require.NoError(t, env.db.First(&reserved, "id = ?", vehicle.ID).Error)
	assert.True(t, reserved.IsAvailable)
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	requester := env.newUser(t, "requester", model.RoleDriver)

	cases := []struct {
		name string
		req  SubmitRequestDTO
	}{
		{"transport without route", SubmitRequestDTO{Kind: model.KindTransport, Description: "x"}},
		{"high cost transport without vehicle", SubmitRequestDTO{Kind: model.KindHighCostTransport, Description: "x", Origin: "A", Destination: "B"}},
		{"refueling without vehicle", SubmitRequestDTO{Kind: model.KindRefueling, Description: "x"}},
		{"maintenance without vehicle", SubmitRequestDTO{Kind: model.KindMaintenance, Description: "x"}},
		{"unknown kind", SubmitRequestDTO{Kind: "CATERING", Description: "x"}},
		{"bad vehicle id", SubmitRequestDTO{Kind: model.KindRefueling, Description: "x", VehicleID: "nope"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.requests.Submit(ctx, requester, tc.req)
			require.ErrorIs(t, err, workflow.ErrInvalidRequestData)
		})
	}
}

func TestEstimateRecalculates(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	requester := env.newUser(t, "requester", model.RoleDriver)
	tm := env.newUser(t, "tm", model.RoleTransportManager)
	vehicle := env.newVehicle(t, "51G-00006", "14", nil)

	submitted, err := env.requests.Submit(ctx, requester, SubmitRequestDTO{
		Kind:        model.KindRefueling,
		Description: "refill",
		VehicleID:   vehicle.ID.String(),
	})
	require.NoError(t, err)

	first, err := env.requests.Estimate(ctx, submitted.ID, tm, EstimateDTO{
		EstimatedDistanceKm: "35",
		FuelPricePerLiter:   "61.5",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatePending, first.State) // estimation never advances
	require.NotNil(t, first.FuelNeededLiters)
	assert.Equal(t, "2.5", *first.FuelNeededLiters)
	assert.Equal(t, "153.75", *first.TotalCost)

	// Re-estimation overwrites the previous numbers
	second, err := env.requests.Estimate(ctx, submitted.ID, tm, EstimateDTO{
		EstimatedDistanceKm: "70",
		FuelPricePerLiter:   "61.5",
	})
	require.NoError(t, err)
	assert.Equal(t, "5", *second.FuelNeededLiters)
	assert.Equal(t, "307.5", *second.TotalCost)

	_, err = env.requests.Estimate(ctx, submitted.ID, tm, EstimateDTO{
		EstimatedDistanceKm: "-5",
		FuelPricePerLiter:   "61.5",
	})
	require.ErrorIs(t, err, workflow.ErrInvalidEstimationInput)

	// Once forwarded, the transport manager no longer holds the request
	_, err = env.requests.Act(ctx, submitted.ID, tm, ActionDTO{Action: "forward"})
	require.NoError(t, err) // cost fields already populated
	_, err = env.requests.Estimate(ctx, submitted.ID, tm, EstimateDTO{
		EstimatedDistanceKm: "70",
		FuelPricePerLiter:   "61.5",
	})
	require.ErrorIs(t, err, workflow.ErrNotAuthorizedForState)
}

func TestListScopesToActor(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	requester := env.newUser(t, "requester", model.RoleDriver)
	other := env.newUser(t, "other", model.RoleDriver)
	tm := env.newUser(t, "tm", model.RoleTransportManager)
	admin := env.newUser(t, "admin", model.RoleAdmin)
	vehicle := env.newVehicle(t, "51H-00007", "10", nil)

	for i := 0; i < 3; i++ {
		_, err := env.requests.Submit(ctx, requester, SubmitRequestDTO{
			Kind:        model.KindRefueling,
			Description: "refill",
			VehicleID:   vehicle.ID.String(),
		})
		require.NoError(t, err)
	}
	_, err := env.requests.Submit(ctx, other, SubmitRequestDTO{
		Kind:        model.KindTransport,
		Description: "trip",
		Origin:      "A",
		Destination: "B",
	})
	require.NoError(t, err)

	mine, total, err := env.requests.List(ctx, requester, RequestListFilter{Requester: "me"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, mine, 3)

	// Drivers default to their own submissions, never the whole table
	own, total, err := env.requests.List(ctx, requester, RequestListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, own, 3)

	othersOwn, total, err := env.requests.List(ctx, other, RequestListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, othersOwn, 1)
	assert.Equal(t, model.KindTransport, othersOwn[0].Kind)

	// Approvers default to their own queue
	queue, total, err := env.requests.List(ctx, tm, RequestListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	for _, r := range queue {
		require.NotNil(t, r.CurrentApproverRole)
		assert.Equal(t, model.RoleTransportManager, *r.CurrentApproverRole)
	}

	all, total, err := env.requests.List(ctx, admin, RequestListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, all, 4)

	filtered, total, err := env.requests.List(ctx, admin, RequestListFilter{Kind: model.KindTransport})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, filtered, 1)
	assert.Equal(t, model.KindTransport, filtered[0].Kind)
}
