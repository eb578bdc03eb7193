package confirm

import (
	"context"
	"fmt"
	"time"

	"github.com/go-confirm-api/internal/config"
	"github.com/go-confirm-api/internal/domain"
	"github.com/go-confirm-api/internal/pkg/confirmcode"
	"github.com/go-confirm-api/internal/pkg/normalize"
)

// PhoneConfirmation is the create-phone result: the stored record plus the
// resend counters exposed to the client.
type PhoneConfirmation struct {
	Confirmation *domain.Confirmation
	// SecResend is how many seconds the client must wait before the next
	// resend, 0 when no further resends remain in the current window.
	SecResend int
	// CountResend is how many resends remain before the cap.
	CountResend int
}

// Service is the confirmation-code state machine: it creates and refreshes
// records under the resend policy, validates submitted codes, and hands
// confirmed records to the credential flows.
//
// Notification dispatch is deliberately not done here — the caller sends the
// code only after the record is durably persisted.
type Service interface {
	CreateEmailConfirmation(ctx context.Context, email string, purpose domain.ConfirmPurpose) (*domain.Confirmation, error)
	CreatePhoneConfirmation(ctx context.Context, phone, region string, purpose domain.ConfirmPurpose) (*PhoneConfirmation, error)
	Confirm(ctx context.Context, secretCode, confirmCode string, variant domain.ConfirmVariant) error
	GetConfirmed(ctx context.Context, secretCode string, purpose domain.ConfirmPurpose, variant domain.ConfirmVariant) (*domain.Confirmation, error)
}

// confirmationStore is the narrow store contract per variant. The
// conditional operations return false instead of an error when another
// writer won the race, so the service can translate per its own rules.
type confirmationStore interface {
	GetByContact(ctx context.Context, contact string) (*domain.Confirmation, error)
	GetBySecret(ctx context.Context, secretCode string) (*domain.Confirmation, error)
	Put(ctx context.Context, c *domain.Confirmation) error
	ReplaceIfCurrent(ctx context.Context, c *domain.Confirmation, prevSecretCode string) (bool, error)
	MarkConfirmed(ctx context.Context, contact, secretCode, confirmCode string) (bool, error)
}

type userStore interface {
	GetByContact(ctx context.Context, field, value string) (*domain.User, error)
}

type service struct {
	emailStore confirmationStore
	phoneStore confirmationStore
	users      userStore
	cfg        config.ConfirmConfig
}

type ServiceDeps struct {
	EmailStore confirmationStore
	PhoneStore confirmationStore
	UserRepo   userStore
	Config     config.ConfirmConfig
}

func NewService(deps ServiceDeps) Service {
	return &service{
		emailStore: deps.EmailStore,
		phoneStore: deps.PhoneStore,
		users:      deps.UserRepo,
		cfg:        deps.Config,
	}
}

func (s *service) CreateEmailConfirmation(ctx context.Context, email string, purpose domain.ConfirmPurpose) (*domain.Confirmation, error) {
	email = normalize.Email(email)
	if err := s.purposeAvailable(ctx, domain.VariantEmail, email, purpose); err != nil {
		return nil, err
	}
	c, err := s.newConfirmation(email, purpose, domain.VariantEmail)
	if err != nil {
		return nil, err
	}
	// Upsert keyed by contact: a repeated request regenerates the existing
	// record in place, it never creates a second one.
	if err := s.emailStore.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) CreatePhoneConfirmation(ctx context.Context, phone, region string, purpose domain.ConfirmPurpose) (*PhoneConfirmation, error) {
	phone, err := normalize.Phone(phone, region)
	if err != nil {
		return nil, err
	}
	if err := s.purposeAvailable(ctx, domain.VariantPhone, phone, purpose); err != nil {
		return nil, err
	}

	fresh, err := s.newConfirmation(phone, purpose, domain.VariantPhone)
	if err != nil {
		return nil, err
	}
	fresh.SendCount = 1

	existing, err := s.phoneStore.GetByContact(ctx, phone)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// First send for this phone: no rate limiting applies.
		if err := s.phoneStore.Put(ctx, fresh); err != nil {
			return nil, err
		}
		return s.phoneResult(fresh), nil
	}

	now := time.Now()
	resetRemaining := secondsRemaining(s.cfg.PhoneResetWindow, existing.CreatedAt, now)
	switch {
	case resetRemaining == 0:
		// The counter has fully cooled down since the last send.
		fresh.SendCount = 1
	case existing.SendCount >= s.cfg.PhoneMaxSendCount:
		return nil, &domain.ConfirmPhoneMaxSendExceededError{WaitSeconds: resetRemaining}
	default:
		if wait := s.resendWait(existing, now); wait > 0 {
			return nil, &domain.ConfirmPhoneMustWaitError{WaitSeconds: wait}
		}
		fresh.SendCount = existing.SendCount + 1
	}

	replaced, err := s.phoneStore.ReplaceIfCurrent(ctx, fresh, existing.SecretCode)
	if err != nil {
		return nil, err
	}
	if !replaced {
		// A concurrent resend regenerated the record between our read and
		// write. Treat this request as arriving after that send.
		cur, err := s.phoneStore.GetByContact(ctx, phone)
		if err != nil {
			return nil, err
		}
		if cur == nil {
			return nil, fmt.Errorf("record consumed concurrently: %w", domain.ErrConfirmationNotFound)
		}
		now = time.Now()
		if cur.SendCount >= s.cfg.PhoneMaxSendCount {
			return nil, &domain.ConfirmPhoneMaxSendExceededError{
				WaitSeconds: secondsRemaining(s.cfg.PhoneResetWindow, cur.CreatedAt, now),
			}
		}
		return nil, &domain.ConfirmPhoneMustWaitError{WaitSeconds: s.resendWait(cur, now)}
	}
	return s.phoneResult(fresh), nil
}

func (s *service) Confirm(ctx context.Context, secretCode, confirmCode string, variant domain.ConfirmVariant) error {
	store := s.store(variant)
	rec, err := store.GetBySecret(ctx, secretCode)
	if err != nil {
		return err
	}
	// Wrong handle, wrong code and already-confirmed all collapse to the
	// same not-found signal so the response leaks nothing about which.
	if rec == nil || rec.Confirmed || rec.ConfirmCode != confirmCode {
		return fmt.Errorf("no matching unconfirmed record: %w", domain.ErrConfirmationNotFound)
	}
	if rec.Expired(time.Now(), s.ttl(variant)) {
		return fmt.Errorf("record older than TTL: %w", domain.ErrConfirmationExpired)
	}
	ok, err := store.MarkConfirmed(ctx, rec.Contact, secretCode, confirmCode)
	if err != nil {
		return err
	}
	if !ok {
		// Lost the race against a concurrent confirm or a regeneration.
		return fmt.Errorf("record changed concurrently: %w", domain.ErrConfirmationNotFound)
	}
	return nil
}

func (s *service) GetConfirmed(ctx context.Context, secretCode string, purpose domain.ConfirmPurpose, variant domain.ConfirmVariant) (*domain.Confirmation, error) {
	rec, err := s.store(variant).GetBySecret(ctx, secretCode)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Purpose != purpose {
		return nil, fmt.Errorf("no record for handle and purpose: %w", domain.ErrConfirmationNotFound)
	}
	if !rec.Confirmed {
		return nil, fmt.Errorf("record not confirmed: %w", domain.ErrConfirmationNotConfirmed)
	}
	// No TTL check: once confirmed, the record stays consumable until it is
	// consumed or superseded by a regeneration.
	return rec, nil
}

// purposeAvailable rejects purposes that conflict with the identity store:
// registration and change need the contact to be free, password reset needs
// it to belong to someone.
func (s *service) purposeAvailable(ctx context.Context, variant domain.ConfirmVariant, contact string, purpose domain.ConfirmPurpose) error {
	u, err := s.users.GetByContact(ctx, variant.ContactField(), contact)
	if err != nil {
		return err
	}
	exists := u != nil
	switch purpose {
	case domain.PurposeRegistration, domain.PurposeChange:
		if exists {
			return fmt.Errorf("%s already registered: %w", variant, domain.ErrUserAlreadyExists)
		}
	case domain.PurposeResetPassword:
		if !exists {
			return fmt.Errorf("no user with this %s: %w", variant, domain.ErrUserNotFound)
		}
	}
	return nil
}

func (s *service) newConfirmation(contact string, purpose domain.ConfirmPurpose, variant domain.ConfirmVariant) (*domain.Confirmation, error) {
	code := s.testCode(variant)
	if code == "" {
		var err error
		code, err = confirmcode.New(s.cfg.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("generate confirm code: %w", err)
		}
	}
	return &domain.Confirmation{
		Contact:     contact,
		SecretCode:  confirmcode.NewSecretCode(),
		ConfirmCode: code,
		Purpose:     purpose,
		Confirmed:   false,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (s *service) testCode(variant domain.ConfirmVariant) string {
	if variant == domain.VariantPhone {
		return s.cfg.PhoneTestCode
	}
	return s.cfg.EmailTestCode
}

func (s *service) store(variant domain.ConfirmVariant) confirmationStore {
	if variant == domain.VariantPhone {
		return s.phoneStore
	}
	return s.emailStore
}

func (s *service) ttl(variant domain.ConfirmVariant) time.Duration {
	if variant == domain.VariantPhone {
		return s.cfg.PhoneTTL
	}
	return s.cfg.EmailTTL
}

// resendWait is the per-attempt backoff remaining for a record: the wait
// grows linearly with send_count, measured from the last send. Zero once
// the cap is reached — the reset window governs from there.
func (s *service) resendWait(c *domain.Confirmation, now time.Time) int {
	if s.cfg.PhoneMaxSendCount-c.SendCount <= 0 {
		return 0
	}
	return secondsRemaining(time.Duration(c.SendCount)*s.cfg.PhoneStepWait, c.CreatedAt, now)
}

func (s *service) phoneResult(c *domain.Confirmation) *PhoneConfirmation {
	return &PhoneConfirmation{
		Confirmation: c,
		SecResend:    s.resendWait(c, time.Now()),
		CountResend:  s.cfg.PhoneMaxSendCount - c.SendCount,
	}
}

// secondsRemaining returns how many whole seconds of window d remain since
// the given instant, floored at zero.
func secondsRemaining(d time.Duration, since, now time.Time) int {
	passed := int(now.Sub(since).Seconds())
	rem := int(d.Seconds()) - passed
	if rem < 0 {
		return 0
	}
	return rem
}
