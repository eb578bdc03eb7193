package confirm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-confirm-api/internal/config"
	"github.com/go-confirm-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockConfirmationStore struct{ mock.Mock }

func (m *mockConfirmationStore) GetByContact(ctx context.Context, contact string) (*domain.Confirmation, error) {
	args := m.Called(ctx, contact)
	if c, _ := args.Get(0).(*domain.Confirmation); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockConfirmationStore) GetBySecret(ctx context.Context, secretCode string) (*domain.Confirmation, error) {
	args := m.Called(ctx, secretCode)
	if c, _ := args.Get(0).(*domain.Confirmation); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockConfirmationStore) Put(ctx context.Context, c *domain.Confirmation) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockConfirmationStore) ReplaceIfCurrent(ctx context.Context, c *domain.Confirmation, prevSecretCode string) (bool, error) {
	args := m.Called(ctx, c, prevSecretCode)
	return args.Bool(0), args.Error(1)
}
func (m *mockConfirmationStore) MarkConfirmed(ctx context.Context, contact, secretCode, confirmCode string) (bool, error) {
	args := m.Called(ctx, contact, secretCode, confirmCode)
	return args.Bool(0), args.Error(1)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByContact(ctx context.Context, field, value string) (*domain.User, error) {
	args := m.Called(ctx, field, value)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- builder ---

func testConfig() config.ConfirmConfig {
	return config.ConfirmConfig{
		CodeLength:        6,
		EmailTTL:          24 * time.Hour,
		PhoneTTL:          time.Hour,
		PhoneMaxSendCount: 5,
		PhoneStepWait:     60 * time.Second,
		PhoneResetWindow:  time.Hour,
	}
}

func newTestService(es, ps *mockConfirmationStore, us *mockUserStore, cfg config.ConfirmConfig) Service {
	return NewService(ServiceDeps{
		EmailStore: es,
		PhoneStore: ps,
		UserRepo:   us,
		Config:     cfg,
	})
}

// --- CreateEmailConfirmation ---

func TestCreateEmailConfirmation_Registration_HappyPath(t *testing.T) {
	es := &mockConfirmationStore{}
	us := &mockUserStore{}
	us.On("GetByContact", mock.Anything, "email", "a@b.com").Return(nil, nil)
	es.On("Put", mock.Anything, mock.AnythingOfType("*domain.Confirmation")).Return(nil)

	svc := newTestService(es, nil, us, testConfig())
	c, err := svc.CreateEmailConfirmation(context.Background(), "  A@B.com ", domain.PurposeRegistration)

	require.NoError(t, err)
	assert.Equal(t, "a@b.com", c.Contact)
	assert.Equal(t, domain.PurposeRegistration, c.Purpose)
	assert.False(t, c.Confirmed)
	assert.NotEmpty(t, c.SecretCode)
	assert.Len(t, c.ConfirmCode, 6)
	es.AssertExpectations(t)
}

func TestCreateEmailConfirmation_Registration_UserExists(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByContact", mock.Anything, "email", "a@b.com").Return(&domain.User{UserID: "u1"}, nil)

	svc := newTestService(nil, nil, us, testConfig())
	_, err := svc.CreateEmailConfirmation(context.Background(), "a@b.com", domain.PurposeRegistration)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUserAlreadyExists))
}

func TestCreateEmailConfirmation_ResetPassword_NoUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByContact", mock.Anything, "email", "a@b.com").Return(nil, nil)

	svc := newTestService(nil, nil, us, testConfig())
	_, err := svc.CreateEmailConfirmation(context.Background(), "a@b.com", domain.PurposeResetPassword)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUserNotFound))
}

func TestCreateEmailConfirmation_TestCodeOverride(t *testing.T) {
	es := &mockConfirmationStore{}
	us := &mockUserStore{}
	us.On("GetByContact", mock.Anything, "email", "a@b.com").Return(nil, nil)
	es.On("Put", mock.Anything, mock.AnythingOfType("*domain.Confirmation")).Return(nil)

	cfg := testConfig()
	cfg.EmailTestCode = "111111"
	svc := newTestService(es, nil, us, cfg)
	c, err := svc.CreateEmailConfirmation(context.Background(), "a@b.com", domain.PurposeRegistration)

	require.NoError(t, err)
	assert.Equal(t, "111111", c.ConfirmCode)
}

// --- CreatePhoneConfirmation ---

func TestCreatePhoneConfirmation_FirstSend(t *testing.T) {
	ps := &mockConfirmationStore{}
	us := &mockUserStore{}
	us.On("GetByContact", mock.Anything, "phone", "+77771234567").Return(nil, nil)
	ps.On("GetByContact", mock.Anything, "+77771234567").Return(nil, nil)
	ps.On("Put", mock.Anything, mock.AnythingOfType("*domain.Confirmation")).Return(nil)

	svc := newTestService(nil, ps, us, testConfig())
	res, err := svc.CreatePhoneConfirmation(context.Background(), "8 777 123 45 67", "KZ", domain.PurposeRegistration)

	require.NoError(t, err)
	assert.Equal(t, "+77771234567", res.Confirmation.Contact)
	assert.Equal(t, 1, res.Confirmation.SendCount)
	assert.Equal(t, 60, res.SecResend)
	assert.Equal(t, 4, res.CountResend)
	ps.AssertExpectations(t)
}

func TestCreatePhoneConfirmation_InvalidPhone(t *testing.T) {
	svc := newTestService(nil, nil, nil, testConfig())
	_, err := svc.CreatePhoneConfirmation(context.Background(), "not a phone", "KZ", domain.PurposeRegistration)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIncorrectPhone))
}

func TestCreatePhoneConfirmation_StepWaitNotElapsed(t *testing.T) {
	ps := &mockConfirmationStore{}
	us := &mockUserStore{}
	us.On("GetByContact", mock.Anything, "phone", "+77771234567").Return(nil, nil)
	// second send attempt 10s after the first: must wait 60*1-10 = 50s
	ps.On("GetByContact", mock.Anything, "+77771234567").Return(&domain.Confirmation{
		Contact:    "+77771234567",
		SecretCode: "prev-secret",
		Purpose:    domain.PurposeRegistration,
		SendCount:  1,
		CreatedAt:  time.Now().Add(-10 * time.Second),
	}, nil)

	svc := newTestService(nil, ps, us, testConfig())
	_, err := svc.CreatePhoneConfirmation(context.Background(), "+7 777 123 45 67", "KZ", domain.PurposeRegistration)

	require.Error(t, err)
	var mustWait *domain.ConfirmPhoneMustWaitError
	require.True(t, errors.As(err, &mustWait))
	assert.Equal(t, 50, mustWait.WaitSeconds)
}

func TestCreatePhoneConfirmation_StepWaitGrowsWithSendCount(t *testing.T) {
	ps := &mockConfirmationStore{}
	us := &mockUserStore{}
	us.On("GetByContact", mock.Anything, "phone", "+77771234567").Return(nil, nil)
	// third record, 70s old: wait is 60*3-70 = 110s
	ps.On("GetByContact", mock.Anything, "+77771234567").Return(&domain.Confirmation{
		Contact:    "+77771234567",
		SecretCode: "prev-secret",
		Purpose:    domain.PurposeRegistration,
		SendCount:  3,
		CreatedAt:  time.Now().Add(-70 * time.Second),
	}, nil)

	svc := newTestService(nil, ps, us, testConfig())
	_, err := svc.CreatePhoneConfirmation(context.Background(), "+7 777 123 45 67", "KZ", domain.PurposeRegistration)

	require.Error(t, err)
	var mustWait *domain.ConfirmPhoneMustWaitError
	require.True(t, errors.As(err, &mustWait))
	assert.Equal(t, 110, mustWait.WaitSeconds)
}

func TestCreatePhoneConfirmation_ResendAfterStepWait(t *testing.T) {
	ps := &mockConfirmationStore{}
	us := &mockUserStore{}
	us.On("GetByContact", mock.Anything, "phone", "+77771234567").Return(nil, nil)
	ps.On("GetByContact", mock.Anything, "+77771234567").Return(&domain.Confirmation{
		Contact:    "+77771234567",
		SecretCode: "prev-secret",
		Purpose:    domain.PurposeRegistration,
		SendCount:  1,
		CreatedAt:  time.Now().Add(-61 * time.Second),
	}, nil)
	ps.On("ReplaceIfCurrent", mock.Anything, mock.AnythingOfType("*domain.Confirmation"), "prev-secret").Return(true, nil)

	svc := newTestService(nil, ps, us, testConfig())
	res, err := svc.CreatePhoneConfirmation(context.Background(), "+7 777 123 45 67", "KZ", domain.PurposeRegistration)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Confirmation.SendCount)
	assert.Equal(t, 120, res.SecResend)
	assert.Equal(t, 3, res.CountResend)
	ps.AssertExpectations(t)
}

func TestCreatePhoneConfirmation_MaxSendExceeded(t *testing.T) {
	ps := &mockConfirmationStore{}
	us := &mockUserStore{}
	us.On("GetByContact", mock.Anything, "phone", "+77771234567").Return(nil, nil)
	// at the cap, 600s into a 3600s window: must cool down 3000s
	ps.On("GetByContact", mock.Anything, "+77771234567").Return(&domain.Confirmation{
		Contact:    "+77771234567",
		SecretCode: "prev-secret",
		Purpose:    domain.PurposeRegistration,
		SendCount:  5,
		CreatedAt:  time.Now().Add(-600 * time.Second),
	}, nil)

	svc := newTestService(nil, ps, us, testConfig())
	_, err := svc.CreatePhoneConfirmation(context.Background(), "+7 777 123 45 67", "KZ", domain.PurposeRegistration)

	require.Error(t, err)
	var exceeded *domain.ConfirmPhoneMaxSendExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.Equal(t, 3000, exceeded.WaitSeconds)
}

func TestCreatePhoneConfirmation_CounterResetsAfterWindow(t *testing.T) {
	ps := &mockConfirmationStore{}
	us := &mockUserStore{}
	us.On("GetByContact", mock.Anything, "phone", "+77771234567").Return(nil, nil)
	// cap reached but the window has fully elapsed: counter starts over at 1
	ps.On("GetByContact", mock.Anything, "+77771234567").Return(&domain.Confirmation{
		Contact:    "+77771234567",
		SecretCode: "prev-secret",
		Purpose:    domain.PurposeRegistration,
		SendCount:  5,
		CreatedAt:  time.Now().Add(-2 * time.Hour),
	}, nil)
	ps.On("ReplaceIfCurrent", mock.Anything, mock.AnythingOfType("*domain.Confirmation"), "prev-secret").Return(true, nil)

	svc := newTestService(nil, ps, us, testConfig())
	res, err := svc.CreatePhoneConfirmation(context.Background(), "+7 777 123 45 67", "KZ", domain.PurposeRegistration)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Confirmation.SendCount)
	assert.Equal(t, 4, res.CountResend)
}

func TestCreatePhoneConfirmation_LostReplaceRace(t *testing.T) {
	ps := &mockConfirmationStore{}
	us := &mockUserStore{}
	us.On("GetByContact", mock.Anything, "phone", "+77771234567").Return(nil, nil)
	stale := &domain.Confirmation{
		Contact:    "+77771234567",
		SecretCode: "prev-secret",
		Purpose:    domain.PurposeRegistration,
		SendCount:  1,
		CreatedAt:  time.Now().Add(-61 * time.Second),
	}
	winner := &domain.Confirmation{
		Contact:    "+77771234567",
		SecretCode: "new-secret",
		Purpose:    domain.PurposeRegistration,
		SendCount:  2,
		CreatedAt:  time.Now(),
	}
	ps.On("GetByContact", mock.Anything, "+77771234567").Return(stale, nil).Once()
	ps.On("ReplaceIfCurrent", mock.Anything, mock.AnythingOfType("*domain.Confirmation"), "prev-secret").Return(false, nil)
	ps.On("GetByContact", mock.Anything, "+77771234567").Return(winner, nil).Once()

	svc := newTestService(nil, ps, us, testConfig())
	_, err := svc.CreatePhoneConfirmation(context.Background(), "+7 777 123 45 67", "KZ", domain.PurposeRegistration)

	require.Error(t, err)
	var mustWait *domain.ConfirmPhoneMustWaitError
	require.True(t, errors.As(err, &mustWait))
	assert.Equal(t, 120, mustWait.WaitSeconds)
}

func TestCreatePhoneConfirmation_TestCodeOverride(t *testing.T) {
	ps := &mockConfirmationStore{}
	us := &mockUserStore{}
	us.On("GetByContact", mock.Anything, "phone", "+77771234567").Return(nil, nil)
	ps.On("GetByContact", mock.Anything, "+77771234567").Return(nil, nil)
	ps.On("Put", mock.Anything, mock.AnythingOfType("*domain.Confirmation")).Return(nil)

	cfg := testConfig()
	cfg.PhoneTestCode = "111111"
	svc := newTestService(nil, ps, us, cfg)
	res, err := svc.CreatePhoneConfirmation(context.Background(), "+7 777 123 45 67", "KZ", domain.PurposeRegistration)

	require.NoError(t, err)
	assert.Equal(t, "111111", res.Confirmation.ConfirmCode)
}

// --- Confirm ---

func TestConfirm_HappyPath(t *testing.T) {
	es := &mockConfirmationStore{}
	es.On("GetBySecret", mock.Anything, "sec-1").Return(&domain.Confirmation{
		Contact:     "a@b.com",
		SecretCode:  "sec-1",
		ConfirmCode: "482913",
		Purpose:     domain.PurposeRegistration,
		CreatedAt:   time.Now().Add(-time.Minute),
	}, nil)
	es.On("MarkConfirmed", mock.Anything, "a@b.com", "sec-1", "482913").Return(true, nil)

	svc := newTestService(es, nil, nil, testConfig())
	err := svc.Confirm(context.Background(), "sec-1", "482913", domain.VariantEmail)

	require.NoError(t, err)
	es.AssertExpectations(t)
}

func TestConfirm_UnknownSecret(t *testing.T) {
	es := &mockConfirmationStore{}
	es.On("GetBySecret", mock.Anything, "nope").Return(nil, nil)

	svc := newTestService(es, nil, nil, testConfig())
	err := svc.Confirm(context.Background(), "nope", "482913", domain.VariantEmail)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfirmationNotFound))
}

func TestConfirm_WrongCode(t *testing.T) {
	es := &mockConfirmationStore{}
	es.On("GetBySecret", mock.Anything, "sec-1").Return(&domain.Confirmation{
		Contact:     "a@b.com",
		SecretCode:  "sec-1",
		ConfirmCode: "482913",
		CreatedAt:   time.Now(),
	}, nil)

	svc := newTestService(es, nil, nil, testConfig())
	err := svc.Confirm(context.Background(), "sec-1", "000000", domain.VariantEmail)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfirmationNotFound))
}

func TestConfirm_AlreadyConfirmed_OneShot(t *testing.T) {
	es := &mockConfirmationStore{}
	es.On("GetBySecret", mock.Anything, "sec-1").Return(&domain.Confirmation{
		Contact:     "a@b.com",
		SecretCode:  "sec-1",
		ConfirmCode: "482913",
		Confirmed:   true,
		CreatedAt:   time.Now(),
	}, nil)

	svc := newTestService(es, nil, nil, testConfig())
	err := svc.Confirm(context.Background(), "sec-1", "482913", domain.VariantEmail)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfirmationNotFound))
}

func TestConfirm_Expired(t *testing.T) {
	ps := &mockConfirmationStore{}
	ps.On("GetBySecret", mock.Anything, "sec-1").Return(&domain.Confirmation{
		Contact:     "+77771234567",
		SecretCode:  "sec-1",
		ConfirmCode: "482913",
		CreatedAt:   time.Now().Add(-2 * time.Hour),
	}, nil)

	svc := newTestService(nil, ps, nil, testConfig())
	err := svc.Confirm(context.Background(), "sec-1", "482913", domain.VariantPhone)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfirmationExpired))
}

func TestConfirm_LostWriteRace(t *testing.T) {
	es := &mockConfirmationStore{}
	es.On("GetBySecret", mock.Anything, "sec-1").Return(&domain.Confirmation{
		Contact:     "a@b.com",
		SecretCode:  "sec-1",
		ConfirmCode: "482913",
		CreatedAt:   time.Now(),
	}, nil)
	es.On("MarkConfirmed", mock.Anything, "a@b.com", "sec-1", "482913").Return(false, nil)

	svc := newTestService(es, nil, nil, testConfig())
	err := svc.Confirm(context.Background(), "sec-1", "482913", domain.VariantEmail)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfirmationNotFound))
}

// --- GetConfirmed ---

func TestGetConfirmed_HappyPath(t *testing.T) {
	es := &mockConfirmationStore{}
	rec := &domain.Confirmation{
		Contact:    "a@b.com",
		SecretCode: "sec-1",
		Purpose:    domain.PurposeRegistration,
		Confirmed:  true,
		CreatedAt:  time.Now().Add(-48 * time.Hour), // age is irrelevant once confirmed
	}
	es.On("GetBySecret", mock.Anything, "sec-1").Return(rec, nil)

	svc := newTestService(es, nil, nil, testConfig())
	got, err := svc.GetConfirmed(context.Background(), "sec-1", domain.PurposeRegistration, domain.VariantEmail)

	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestGetConfirmed_WrongPurpose(t *testing.T) {
	es := &mockConfirmationStore{}
	es.On("GetBySecret", mock.Anything, "sec-1").Return(&domain.Confirmation{
		Contact:    "a@b.com",
		SecretCode: "sec-1",
		Purpose:    domain.PurposeResetPassword,
		Confirmed:  true,
		CreatedAt:  time.Now(),
	}, nil)

	svc := newTestService(es, nil, nil, testConfig())
	_, err := svc.GetConfirmed(context.Background(), "sec-1", domain.PurposeRegistration, domain.VariantEmail)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfirmationNotFound))
}

func TestGetConfirmed_NotConfirmed(t *testing.T) {
	es := &mockConfirmationStore{}
	es.On("GetBySecret", mock.Anything, "sec-1").Return(&domain.Confirmation{
		Contact:    "a@b.com",
		SecretCode: "sec-1",
		Purpose:    domain.PurposeRegistration,
		CreatedAt:  time.Now(),
	}, nil)

	svc := newTestService(es, nil, nil, testConfig())
	_, err := svc.GetConfirmed(context.Background(), "sec-1", domain.PurposeRegistration, domain.VariantEmail)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfirmationNotConfirmed))
}
