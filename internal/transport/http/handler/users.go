package handler

import (
	"net/http"

	"github.com/go-confirm-api/internal/application/account"
	"github.com/go-confirm-api/internal/transport/http/middleware"
)

// UserHandler handles registration, login and the credential mutations.
type UserHandler struct {
	svc account.Service
}

func NewUserHandler(svc account.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req account.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.svc.Register(r.Context(), req); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: "user registered"})
}

func (h *UserHandler) LoginByEmail(w http.ResponseWriter, r *http.Request) {
	var req account.LoginByEmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	pair, err := h.svc.LoginByEmail(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *UserHandler) LoginByPhone(w http.ResponseWriter, r *http.Request) {
	var req account.LoginByPhoneRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	pair, err := h.svc.LoginByPhone(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// ChangePassword changes the authenticated user's password directly.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req account.ChangePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), claims.UserID, req); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangePasswordByConfirm resets a password through a confirmed record, for
// users who cannot log in.
func (h *UserHandler) ChangePasswordByConfirm(w http.ResponseWriter, r *http.Request) {
	var req account.ChangePasswordByConfirmRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.svc.ChangePasswordByConfirm(r.Context(), req); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangeEmailOrPhone rebinds the authenticated user's contact to a confirmed
// new value.
func (h *UserHandler) ChangeEmailOrPhone(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req account.ChangeEmailPhoneRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.svc.ChangeEmailOrPhone(r.Context(), claims.UserID, req); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
