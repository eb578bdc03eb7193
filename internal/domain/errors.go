package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrUserAlreadyExists        = errors.New("user already exists")
	ErrUserNotFound             = errors.New("user not found")
	ErrIncorrectPhone           = errors.New("incorrect phone number")
	ErrConfirmationNotFound     = errors.New("confirmation not found")
	ErrConfirmationNotConfirmed = errors.New("confirmation not confirmed")
	ErrConfirmationExpired      = errors.New("confirmation expired")
	ErrPasswordMismatch         = errors.New("passwords do not match")
)

// ConfirmPhoneMustWaitError is returned when a phone code resend is requested
// before the per-attempt backoff window has elapsed. WaitSeconds is the number
// of seconds remaining until the next resend is allowed.
type ConfirmPhoneMustWaitError struct {
	WaitSeconds int
}

func (e *ConfirmPhoneMustWaitError) Error() string {
	return fmt.Sprintf("confirmation code cannot be resent yet, wait %d seconds", e.WaitSeconds)
}

// ConfirmPhoneMaxSendExceededError is returned when the resend cap has been
// reached. WaitSeconds is the remaining cooldown before the counter resets.
type ConfirmPhoneMaxSendExceededError struct {
	WaitSeconds int
}

func (e *ConfirmPhoneMaxSendExceededError) Error() string {
	return fmt.Sprintf("maximum number of confirmation code sends exceeded, wait %d seconds", e.WaitSeconds)
}
