package service

import (
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv wires the full engine stack onto an in-memory sqlite store.
type testEnv struct {
	db       *gorm.DB
	requests RequestService
	otps     OTPService
	audits   AuditService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// One connection keeps every session on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Vehicle{},
		&model.Request{},
		&model.OTPChallenge{},
		&model.AuditLogEntry{},
	))

	txManager := repository.NewTransactionManager(db)
	requestRepo := repository.NewRequestRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)

	otpSvc := NewOTPService(otpRepo, txManager, 5*time.Minute)
	requestSvc := NewRequestService(
		requestRepo,
		otpRepo,
		auditRepo,
		vehicleRepo,
		txManager,
		workflow.DefaultEscalationTable(),
		workflow.DefaultConfig(),
		nil,
	)

	return &testEnv{
		db:       db,
		requests: requestSvc,
		otps:     otpSvc,
		audits:   NewAuditService(auditRepo),
	}
}

func (e *testEnv) newUser(t *testing.T, username, role string) Actor {
	t.Helper()
	user := model.User{
		Username: username,
		Email:    username + "@fleet.test",
		Phone:    "0900000000",
		Password: "irrelevant",
		Role:     role,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return Actor{ID: user.ID, Role: role}
}

func (e *testEnv) newVehicle(t *testing.T, plate, efficiency string, driverID *uuid.UUID) model.Vehicle {
	t.Helper()
	vehicle := model.Vehicle{
		PlateNumber:      plate,
		Model:            "Test Truck",
		FuelEfficiency:   decimal.RequireFromString(efficiency),
		IsAvailable:      true,
		AssignedDriverID: driverID,
	}
	require.NoError(t, e.db.Create(&vehicle).Error)
	return vehicle
}

// liveOTPCode reads the live challenge code straight from the store,
// standing in for the out-of-band delivery channel.
func (e *testEnv) liveOTPCode(t *testing.T, requestID string, actorID uuid.UUID) string {
	t.Helper()
	var challenge model.OTPChallenge
	require.NoError(t, e.db.
		Where("request_id = ? AND actor_id = ? AND consumed = ?", requestID, actorID, false).
		Order("issued_at DESC").
		First(&challenge).Error)
	return challenge.Code
}

// expireLiveOTP backdates the live challenge past its window.
func (e *testEnv) expireLiveOTP(t *testing.T, requestID string, actorID uuid.UUID) {
	t.Helper()
	require.NoError(t, e.db.Model(&model.OTPChallenge{}).
		Where("request_id = ? AND actor_id = ? AND consumed = ?", requestID, actorID, false).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)
}

// stepUp runs the full challenge dance: issue, read, verify.
func (e *testEnv) stepUp(t *testing.T, requestID string, actor Actor) {
	t.Helper()
	id := uuid.MustParse(requestID)
	_, err := e.otps.Issue(t.Context(), id, actor.ID)
	require.NoError(t, err)
	code := e.liveOTPCode(t, requestID, actor.ID)
	require.NoError(t, e.otps.Verify(t.Context(), id, actor.ID, code))
}

func (e *testEnv) auditCount(t *testing.T, requestID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&model.AuditLogEntry{}).
		Where("request_id = ?", requestID).Count(&count).Error)
	return count
}
