package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-confirm-api/internal/domain"
	"github.com/go-confirm-api/internal/pkg/id"
	"github.com/go-confirm-api/internal/pkg/normalize"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest creates an account from a confirmed registration record.
type RegisterRequest struct {
	SecretCode      string                `json:"secret_code" validate:"required,uuid4"`
	Password        string                `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string                `json:"confirm_password" validate:"required"`
	ObjectConfirm   domain.ConfirmVariant `json:"object_confirm" validate:"required,oneof=email phone"`
}

type LoginByEmailRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginByPhoneRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Region   string `json:"region" validate:"required,len=2"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type ChangePasswordByConfirmRequest struct {
	SecretCode      string                `json:"secret_code" validate:"required,uuid4"`
	Password        string                `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string                `json:"confirm_password" validate:"required"`
	ObjectConfirm   domain.ConfirmVariant `json:"object_confirm" validate:"required,oneof=email phone"`
}

type ChangeEmailPhoneRequest struct {
	SecretCode    string                `json:"secret_code" validate:"required,uuid4"`
	ObjectConfirm domain.ConfirmVariant `json:"object_confirm" validate:"required,oneof=email phone"`
}

// Service covers the credential lifecycle: registration, both login
// variants, and the password and contact mutations.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) error
	LoginByEmail(ctx context.Context, req LoginByEmailRequest) (*domain.TokenPair, error)
	LoginByPhone(ctx context.Context, req LoginByPhoneRequest) (*domain.TokenPair, error)
	ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error
	ChangePasswordByConfirm(ctx context.Context, req ChangePasswordByConfirmRequest) error
	ChangeEmailOrPhone(ctx context.Context, userID string, req ChangeEmailPhoneRequest) error
}

// confirmations hands out confirmed records for consumption.
type confirmations interface {
	GetConfirmed(ctx context.Context, secretCode string, purpose domain.ConfirmPurpose, variant domain.ConfirmVariant) (*domain.Confirmation, error)
}

// confirmationCleaner burns a record outside the happy-path transaction.
// Conflict exits consume the record too, so a stale handle can never be
// replayed after the conflict resolves.
type confirmationCleaner interface {
	Delete(ctx context.Context, contact string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByContact(ctx context.Context, field, value string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// accountWriter performs the transactional mutations: each call bundles the
// user write, the contact uniqueness guard, and the confirmation delete.
type accountWriter interface {
	CreateUser(ctx context.Context, u *domain.User, variant domain.ConfirmVariant, contact string) error
	UpdatePasswordHash(ctx context.Context, userID, hash string, variant domain.ConfirmVariant, contact string) error
	UpdateContact(ctx context.Context, u *domain.User, variant domain.ConfirmVariant, newContact string) error
}

type tokenIssuer interface {
	IssueTokenPair(u *domain.User) (*domain.TokenPair, error)
}

type service struct {
	confirms      confirmations
	emailCleaner  confirmationCleaner
	phoneCleaner  confirmationCleaner
	users         userStore
	writer        accountWriter
	tokens        tokenIssuer
	defaultRegion string
}

type ServiceDeps struct {
	ConfirmService confirmations
	EmailCleaner   confirmationCleaner
	PhoneCleaner   confirmationCleaner
	UserRepo       userStore
	Writer         accountWriter
	TokenIssuer    tokenIssuer
}

func NewService(deps ServiceDeps) Service {
	return &service{
		confirms:     deps.ConfirmService,
		emailCleaner: deps.EmailCleaner,
		phoneCleaner: deps.PhoneCleaner,
		users:        deps.UserRepo,
		writer:       deps.Writer,
		tokens:       deps.TokenIssuer,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) error {
	if req.Password != req.ConfirmPassword {
		return fmt.Errorf("password and confirmation differ: %w", domain.ErrPasswordMismatch)
	}

	rec, err := s.confirms.GetConfirmed(ctx, req.SecretCode, domain.PurposeRegistration, req.ObjectConfirm)
	if err != nil {
		return err
	}

	existing, err := s.users.GetByContact(ctx, req.ObjectConfirm.ContactField(), rec.Contact)
	if err != nil {
		return err
	}
	if existing != nil {
		s.burn(ctx, req.ObjectConfirm, rec.Contact)
		return fmt.Errorf("contact already registered: %w", domain.ErrUserAlreadyExists)
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		PasswordHash: hash,
		Role:         domain.RoleBase,
		Enable:       1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.ObjectConfirm == domain.VariantPhone {
		u.Phone = &rec.Contact
	} else {
		u.Email = &rec.Contact
	}

	err = s.writer.CreateUser(ctx, u, req.ObjectConfirm, rec.Contact)
	if err != nil && errors.Is(err, domain.ErrUserAlreadyExists) {
		s.burn(ctx, req.ObjectConfirm, rec.Contact)
	}
	return err
}

func (s *service) LoginByEmail(ctx context.Context, req LoginByEmailRequest) (*domain.TokenPair, error) {
	email := normalize.Email(req.Email)
	return s.login(ctx, "email", email, req.Password)
}

func (s *service) LoginByPhone(ctx context.Context, req LoginByPhoneRequest) (*domain.TokenPair, error) {
	phone, err := normalize.Phone(req.Phone, req.Region)
	if err != nil {
		return nil, err
	}
	return s.login(ctx, "phone", phone, req.Password)
}

// login deliberately reports the same not-found error for an unknown contact
// and for a wrong password, so responses do not reveal which contacts exist.
func (s *service) login(ctx context.Context, field, value, password string) (*domain.TokenPair, error) {
	u, err := s.users.GetByContact(ctx, field, value)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("no user for %s: %w", field, domain.ErrUserNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("password check failed: %w", domain.ErrUserNotFound)
	}
	return s.tokens.IssueTokenPair(u)
}

func (s *service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	if req.Password != req.ConfirmPassword {
		return fmt.Errorf("password and confirmation differ: %w", domain.ErrPasswordMismatch)
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return err
	}
	return s.users.Update(ctx, userID, map[string]interface{}{"password_hash": hash})
}

func (s *service) ChangePasswordByConfirm(ctx context.Context, req ChangePasswordByConfirmRequest) error {
	if req.Password != req.ConfirmPassword {
		return fmt.Errorf("password and confirmation differ: %w", domain.ErrPasswordMismatch)
	}

	rec, err := s.confirms.GetConfirmed(ctx, req.SecretCode, domain.PurposeResetPassword, req.ObjectConfirm)
	if err != nil {
		return err
	}

	u, err := s.users.GetByContact(ctx, req.ObjectConfirm.ContactField(), rec.Contact)
	if err != nil {
		return err
	}
	if u == nil {
		s.burn(ctx, req.ObjectConfirm, rec.Contact)
		return fmt.Errorf("no user for confirmed contact: %w", domain.ErrUserNotFound)
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return err
	}
	err = s.writer.UpdatePasswordHash(ctx, u.UserID, hash, req.ObjectConfirm, rec.Contact)
	if err != nil && errors.Is(err, domain.ErrUserNotFound) {
		s.burn(ctx, req.ObjectConfirm, rec.Contact)
	}
	return err
}

func (s *service) ChangeEmailOrPhone(ctx context.Context, userID string, req ChangeEmailPhoneRequest) error {
	rec, err := s.confirms.GetConfirmed(ctx, req.SecretCode, domain.PurposeChange, req.ObjectConfirm)
	if err != nil {
		return err
	}

	other, err := s.users.GetByContact(ctx, req.ObjectConfirm.ContactField(), rec.Contact)
	if err != nil {
		return err
	}
	if other != nil {
		s.burn(ctx, req.ObjectConfirm, rec.Contact)
		return fmt.Errorf("contact already taken: %w", domain.ErrUserAlreadyExists)
	}

	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
	}

	err = s.writer.UpdateContact(ctx, u, req.ObjectConfirm, rec.Contact)
	if err != nil && errors.Is(err, domain.ErrUserAlreadyExists) {
		s.burn(ctx, req.ObjectConfirm, rec.Contact)
	}
	return err
}

// burn consumes a confirmation record on a conflict exit. The delete is best
// effort, a leftover record only re-raises the same conflict next time.
func (s *service) burn(ctx context.Context, variant domain.ConfirmVariant, contact string) {
	cleaner := s.emailCleaner
	if variant == domain.VariantPhone {
		cleaner = s.phoneCleaner
	}
	_ = cleaner.Delete(ctx, contact)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
