package workflow

import "errors"

// Sentinel errors for the approval workflow. Services wrap these with
// fmt.Errorf("...: %w", ...) so handlers can classify with errors.Is
// while still returning a concrete reason string to the caller.
var (
	// Input errors — rejected before any state mutation
	ErrInvalidRequestData     = errors.New("invalid request data")
	ErrMissingRejectionReason = errors.New("rejection reason is required")
	ErrInvalidEstimationInput = errors.New("invalid estimation input")
	ErrEstimationRequired     = errors.New("cost estimation required before advancing")

	// Authorization errors
	ErrNotAuthorizedForState = errors.New("actor is not authorized for the current state")

	// Step-up errors — caller may re-issue a challenge and retry
	ErrOtpRequired      = errors.New("otp verification required")
	ErrInvalidCode      = errors.New("invalid otp code")
	ErrExpiredOrUsedOtp = errors.New("otp code expired or already used")

	// Concurrency errors — caller should re-fetch and retry
	ErrStaleState = errors.New("request state changed concurrently")

	// Configuration defects — not correctable by the actor
	ErrUnconfiguredTransition = errors.New("no transition configured for kind/role pair")

	ErrRequestNotFound    = errors.New("request not found")
	ErrRequestTerminal    = errors.New("request is in a terminal state")
	ErrVehicleUnavailable = errors.New("vehicle is not available")
)
