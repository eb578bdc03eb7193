package handler

import (
	"encoding/json"
	"net/http"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorPayload carries machine-readable data alongside an error code.
type ErrorPayload struct {
	WaitSeconds int `json:"wait_seconds"`
}

// ErrorEnvelope is the conflict response shape: a human-readable message, a
// stable code the client can branch on, and an optional payload.
type ErrorEnvelope struct {
	Error   string        `json:"error"`
	Code    string        `json:"code,omitempty"`
	Payload *ErrorPayload `json:"payload,omitempty"`
}

// SecretCodeEnvelope wraps the create-email-confirmation response.
type SecretCodeEnvelope struct {
	SecretCode string `json:"secret_code"`
}

// PhoneSecretCodeEnvelope wraps the create-phone-confirmation response with
// the resend counters.
type PhoneSecretCodeEnvelope struct {
	SecretCode  string `json:"secret_code"`
	SecResend   int    `json:"sec_resend"`
	CountResend int    `json:"count_resend"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorEnvelope{Error: msg})
}
