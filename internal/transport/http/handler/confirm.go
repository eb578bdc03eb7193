package handler

import (
	"net/http"

	"github.com/go-confirm-api/internal/application/confirm"
	"github.com/go-confirm-api/internal/domain"
	"github.com/go-confirm-api/internal/infrastructure/notify"
)

// CreateEmailConfirmRequest starts (or regenerates) an email confirmation.
type CreateEmailConfirmRequest struct {
	Email       string                `json:"email" validate:"required,email"`
	TypeConfirm domain.ConfirmPurpose `json:"type_confirm" validate:"required,oneof=registration reset_pass change"`
}

// CreatePhoneConfirmRequest starts (or resends) a phone confirmation. Phone
// is the national number, Region its ISO 3166-1 alpha-2 country code.
type CreatePhoneConfirmRequest struct {
	Phone       string                `json:"phone" validate:"required"`
	Region      string                `json:"region" validate:"required,len=2"`
	TypeConfirm domain.ConfirmPurpose `json:"type_confirm" validate:"required,oneof=registration reset_pass change"`
}

// ConfirmRequest submits the delivered code against a secret handle.
type ConfirmRequest struct {
	SecretCode    string                `json:"secret_code" validate:"required,uuid4"`
	ConfirmCode   string                `json:"confirm_code" validate:"required"`
	ObjectConfirm domain.ConfirmVariant `json:"object_confirm" validate:"required,oneof=email phone"`
}

// ConfirmHandler handles the confirmation lifecycle endpoints.
type ConfirmHandler struct {
	svc      confirm.Service
	notifier notify.Notifier
}

func NewConfirmHandler(svc confirm.Service, notifier notify.Notifier) *ConfirmHandler {
	return &ConfirmHandler{svc: svc, notifier: notifier}
}

func (h *ConfirmHandler) CreateEmail(w http.ResponseWriter, r *http.Request) {
	var req CreateEmailConfirmRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	c, err := h.svc.CreateEmailConfirmation(r.Context(), req.Email, req.TypeConfirm)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// The record is durable at this point; delivery runs detached.
	h.notifier.SendEmailCode(c.Contact, c.ConfirmCode)
	writeJSON(w, http.StatusCreated, SecretCodeEnvelope{SecretCode: c.SecretCode})
}

func (h *ConfirmHandler) CreatePhone(w http.ResponseWriter, r *http.Request) {
	var req CreatePhoneConfirmRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.svc.CreatePhoneConfirmation(r.Context(), req.Phone, req.Region, req.TypeConfirm)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.notifier.SendPhoneCode(res.Confirmation.Contact, res.Confirmation.ConfirmCode)
	writeJSON(w, http.StatusCreated, PhoneSecretCodeEnvelope{
		SecretCode:  res.Confirmation.SecretCode,
		SecResend:   res.SecResend,
		CountResend: res.CountResend,
	})
}

func (h *ConfirmHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.svc.Confirm(r.Context(), req.SecretCode, req.ConfirmCode, req.ObjectConfirm); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
