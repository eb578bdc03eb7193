package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-confirm-api/internal/domain"
	"github.com/go-confirm-api/internal/pkg/validate"
)

// Stable error codes clients branch on.
const (
	codeUserAlreadyExist    = "UserAlreadyExist"
	codeUserNotFound        = "UserNotFound"
	codeIncorrectPhone      = "IncorrectPhone"
	codeConfirmNotFound     = "ConfirmObjNotFound"
	codeConfirmNotConfirmed = "ConfirmObjNotConfirmed"
	codeConfirmCodeExpired  = "ConfirmCodeExpired"
	codePasswordNotEqual    = "PasswordNotEqual"
	codePhoneMustWait       = "ConfirmPhoneWaitBeforeSending"
	codePhoneMaxCountSend   = "ConfirmPhoneExcMaxCountSend"
)

// writeDomainError translates service errors into the HTTP envelope. All
// business conflicts are 409 with a stable code; anything unrecognized is a
// 500 with no detail leaked.
func writeDomainError(w http.ResponseWriter, err error) {
	var mustWait *domain.ConfirmPhoneMustWaitError
	var maxSend *domain.ConfirmPhoneMaxSendExceededError

	switch {
	case errors.As(err, &mustWait):
		writeJSON(w, http.StatusConflict, ErrorEnvelope{
			Error:   mustWait.Error(),
			Code:    codePhoneMustWait,
			Payload: &ErrorPayload{WaitSeconds: mustWait.WaitSeconds},
		})
	case errors.As(err, &maxSend):
		writeJSON(w, http.StatusConflict, ErrorEnvelope{
			Error:   maxSend.Error(),
			Code:    codePhoneMaxCountSend,
			Payload: &ErrorPayload{WaitSeconds: maxSend.WaitSeconds},
		})
	case errors.Is(err, domain.ErrUserAlreadyExists):
		writeConflict(w, codeUserAlreadyExist, "user already exists")
	case errors.Is(err, domain.ErrUserNotFound):
		writeConflict(w, codeUserNotFound, "user not found")
	case errors.Is(err, domain.ErrIncorrectPhone):
		writeConflict(w, codeIncorrectPhone, "incorrect phone number")
	case errors.Is(err, domain.ErrConfirmationNotFound):
		writeConflict(w, codeConfirmNotFound, "confirmation not found")
	case errors.Is(err, domain.ErrConfirmationNotConfirmed):
		writeConflict(w, codeConfirmNotConfirmed, "confirmation not confirmed")
	case errors.Is(err, domain.ErrConfirmationExpired):
		writeConflict(w, codeConfirmCodeExpired, "confirmation time expired")
	case errors.Is(err, domain.ErrPasswordMismatch):
		writeConflict(w, codePasswordNotEqual, "passwords are not equal")
	default:
		slog.Error("unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeConflict(w http.ResponseWriter, code, msg string) {
	writeJSON(w, http.StatusConflict, ErrorEnvelope{Error: msg, Code: code})
}

// decodeAndValidate parses the JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether the caller may
// proceed.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
