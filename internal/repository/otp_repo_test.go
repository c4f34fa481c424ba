package repository

import (
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func seedChallenge(t *testing.T, repo OTPRepository) *model.OTPChallenge {
	t.Helper()
	challenge := &model.OTPChallenge{
		RequestID: uuid.New(),
		ActorID:   uuid.New(),
		Code:      "123456",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, repo.Create(t.Context(), challenge))
	return challenge
}

func TestConsumeIsSingleWinner(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&model.OTPChallenge{}))
	repo := NewOTPRepository(db)
	ctx := t.Context()

	challenge := seedChallenge(t, repo)
	now := time.Now()

	require.NoError(t, repo.Consume(ctx, challenge.ID, &now))

	// A second writer holding the same snapshot loses
	err := repo.Consume(ctx, challenge.ID, &now)
	require.ErrorIs(t, err, workflow.ErrExpiredOrUsedOtp)
}

func TestConsumeAfterSupersedingResend(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&model.OTPChallenge{}))
	repo := NewOTPRepository(db)
	ctx := t.Context()

	challenge := seedChallenge(t, repo)

	// A resend retires every live challenge of the pair
	require.NoError(t, repo.ConsumeLive(ctx, challenge.RequestID, challenge.ActorID))

	// The stale snapshot can no longer verify
	now := time.Now()
	err := repo.Consume(ctx, challenge.ID, &now)
	require.ErrorIs(t, err, workflow.ErrExpiredOrUsedOtp)
}

func TestSpendGrantOnlyOnce(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&model.OTPChallenge{}))
	repo := NewOTPRepository(db)
	ctx := t.Context()

	challenge := seedChallenge(t, repo)
	now := time.Now()
	require.NoError(t, repo.Consume(ctx, challenge.ID, &now))

	require.NoError(t, repo.SpendGrant(ctx, challenge.ID, now))

	err := repo.SpendGrant(ctx, challenge.ID, now)
	require.ErrorIs(t, err, workflow.ErrOtpRequired)
}
