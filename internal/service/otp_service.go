package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
)

const otpCodeDigits = 6

// OTPChallengeResponse is returned to the caller on issue. The code
// itself travels out of band (delivery is an external collaborator);
// only metadata is exposed here.
type OTPChallengeResponse struct {
	RequestID string `json:"request_id"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at"`
}

type OTPService interface {
	// Issue creates a fresh challenge for the pair, invalidating any
	// still-live previous one so at most one code verifies at a time.
	Issue(ctx context.Context, requestID, actorID uuid.UUID) (OTPChallengeResponse, error)
	// Verify consumes the live challenge on code match, leaving behind a
	// single-use grant the workflow engine spends on the next sensitive
	// action. Expiry is checked here, lazily.
	Verify(ctx context.Context, requestID, actorID uuid.UUID, code string) error
	// CleanupExpired drops unconsumed challenges whose window passed.
	// Advisory: correctness never depends on it running.
	CleanupExpired(ctx context.Context) (int64, error)
}

type otpService struct {
	repo      repository.OTPRepository
	txManager repository.TransactionManager
	ttl       time.Duration
	pairLocks sync.Map // "requestID:actorID" -> *sync.Mutex
	now       func() time.Time
}

// NewOTPService creates the step-up gate. ttl is the challenge (and
// grant) validity window.
func NewOTPService(repo repository.OTPRepository, txManager repository.TransactionManager, ttl time.Duration) OTPService {
	return &otpService{
		repo:      repo,
		txManager: txManager,
		ttl:       ttl,
		now:       time.Now,
	}
}

// lockPair serializes issue/verify per (request, actor) pair so a
// resend racing a verify cannot accept a stale code.
func (s *otpService) lockPair(requestID, actorID uuid.UUID) func() {
	key := requestID.String() + ":" + actorID.String()
	mu, _ := s.pairLocks.LoadOrStore(key, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (s *otpService) Issue(ctx context.Context, requestID, actorID uuid.UUID) (OTPChallengeResponse, error) {
	unlock := s.lockPair(requestID, actorID)
	defer unlock()

	code, err := generateOTPCode()
	if err != nil {
		return OTPChallengeResponse{}, fmt.Errorf("failed to generate otp code: %w", err)
	}

	now := s.now()
	challenge := model.OTPChallenge{
		RequestID: requestID,
		ActorID:   actorID,
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if consumeErr := s.repo.ConsumeLive(txCtx, requestID, actorID); consumeErr != nil {
			return fmt.Errorf("failed to invalidate previous challenge: %w", consumeErr)
		}
		if createErr := s.repo.Create(txCtx, &challenge); createErr != nil {
			return fmt.Errorf("failed to create otp challenge: %w", createErr)
		}
		return nil
	})
	if err != nil {
		return OTPChallengeResponse{}, err
	}

	// TODO: hand the code to the notification collaborator once its
	// delivery API lands; until then operators read it from the store.

	return OTPChallengeResponse{
		RequestID: requestID.String(),
		IssuedAt:  challenge.IssuedAt.Format(time.RFC3339),
		ExpiresAt: challenge.ExpiresAt.Format(time.RFC3339),
	}, nil
}

func (s *otpService) Verify(ctx context.Context, requestID, actorID uuid.UUID, code string) error {
	unlock := s.lockPair(requestID, actorID)
	defer unlock()

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		challenge, err := s.repo.FindLive(txCtx, requestID, actorID)
		if err != nil {
			return fmt.Errorf("failed to look up otp challenge: %w", err)
		}
		if challenge == nil {
			return workflow.ErrExpiredOrUsedOtp
		}

		now := s.now()
		if challenge.Expired(now) {
			// Retire it so the stale row cannot linger as "live"
			if consumeErr := s.repo.Consume(txCtx, challenge.ID, nil); consumeErr != nil && !errors.Is(consumeErr, workflow.ErrExpiredOrUsedOtp) {
				return fmt.Errorf("failed to expire otp challenge: %w", consumeErr)
			}
			return workflow.ErrExpiredOrUsedOtp
		}

		if challenge.Code != code {
			return workflow.ErrInvalidCode
		}

		// Conditional consume: if a resend superseded the row after our
		// read, the snapshot lost and the code must not verify.
		return s.repo.Consume(txCtx, challenge.ID, &now)
	})
}

func (s *otpService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

func generateOTPCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpCodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpCodeDigits, n), nil
}
