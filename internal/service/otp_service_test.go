package service

import (
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPIssueAndVerify(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	requestID := uuid.New()
	actorID := uuid.New()

	issued, err := env.otps.Issue(ctx, requestID, actorID)
	require.NoError(t, err)
	assert.Equal(t, requestID.String(), issued.RequestID)

	code := env.liveOTPCode(t, requestID.String(), actorID)
	require.Len(t, code, otpCodeDigits)

	require.NoError(t, env.otps.Verify(ctx, requestID, actorID, code))

	// Replaying a consumed code is refused
	err = env.otps.Verify(ctx, requestID, actorID, code)
	require.ErrorIs(t, err, workflow.ErrExpiredOrUsedOtp)
}

func TestOTPVerifyWithoutChallenge(t *testing.T) {
	env := newTestEnv(t)

	err := env.otps.Verify(t.Context(), uuid.New(), uuid.New(), "123456")
	require.ErrorIs(t, err, workflow.ErrExpiredOrUsedOtp)
}

func TestOTPReissueInvalidatesPrevious(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	requestID := uuid.New()
	actorID := uuid.New()

	_, err := env.otps.Issue(ctx, requestID, actorID)
	require.NoError(t, err)
	oldCode := env.liveOTPCode(t, requestID.String(), actorID)

	_, err = env.otps.Issue(ctx, requestID, actorID)
	require.NoError(t, err)
	newCode := env.liveOTPCode(t, requestID.String(), actorID)
	if oldCode == newCode {
		t.Skip("codes collided, cannot distinguish old from new")
	}

	// The superseded code no longer matches the single live challenge
	err = env.otps.Verify(ctx, requestID, actorID, oldCode)
	require.ErrorIs(t, err, workflow.ErrInvalidCode)

	require.NoError(t, env.otps.Verify(ctx, requestID, actorID, newCode))
}

func TestOTPVerifyExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	requestID := uuid.New()
	actorID := uuid.New()

	_, err := env.otps.Issue(ctx, requestID, actorID)
	require.NoError(t, err)
	code := env.liveOTPCode(t, requestID.String(), actorID)

	env.expireLiveOTP(t, requestID.String(), actorID)

	err = env.otps.Verify(ctx, requestID, actorID, code)
	require.ErrorIs(t, err, workflow.ErrExpiredOrUsedOtp)

	// The expired challenge was retired, not left live
	var count int64
	require.NoError(t, env.db.Model(&model.OTPChallenge{}).
		Where("request_id = ? AND consumed = ?", requestID, false).
		Count(&count).Error)
	assert.Zero(t, count)
}

func TestOTPCleanupExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	stale := model.OTPChallenge{
		RequestID: uuid.New(),
		ActorID:   uuid.New(),
		Code:      "111111",
		IssuedAt:  time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(-55 * time.Minute),
	}
	require.NoError(t, env.db.Create(&stale).Error)

	liveRequest := uuid.New()
	liveActor := uuid.New()
	_, err := env.otps.Issue(ctx, liveRequest, liveActor)
	require.NoError(t, err)

	removed, err := env.otps.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	// The live challenge survives and still verifies
	code := env.liveOTPCode(t, liveRequest.String(), liveActor)
	require.NoError(t, env.otps.Verify(ctx, liveRequest, liveActor, code))
}

func TestGenerateOTPCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, err := generateOTPCode()
		require.NoError(t, err)
		require.Len(t, code, otpCodeDigits)
		for _, c := range code {
			require.True(t, c >= '0' && c <= '9')
		}
		seen[code] = true
	}
	// 20 draws from a million values collide essentially never
	assert.Greater(t, len(seen), 1)
}
