package domain

import "time"

// ConfirmPurpose is the downstream action a confirmation authorizes.
// Fixed at creation time and re-checked when the record is consumed.
type ConfirmPurpose string

const (
	PurposeRegistration  ConfirmPurpose = "registration"
	PurposeResetPassword ConfirmPurpose = "reset_pass"
	PurposeChange        ConfirmPurpose = "change"
)

// Valid reports whether p is one of the known purposes.
func (p ConfirmPurpose) Valid() bool {
	switch p {
	case PurposeRegistration, PurposeResetPassword, PurposeChange:
		return true
	}
	return false
}

// ConfirmVariant selects the contact namespace a confirmation lives in.
// Email and phone records are stored independently.
type ConfirmVariant string

const (
	VariantEmail ConfirmVariant = "email"
	VariantPhone ConfirmVariant = "phone"
)

// Valid reports whether v is one of the known variants.
func (v ConfirmVariant) Valid() bool {
	return v == VariantEmail || v == VariantPhone
}

// ContactField returns the user attribute the variant maps to.
func (v ConfirmVariant) ContactField() string {
	if v == VariantPhone {
		return "phone"
	}
	return "email"
}

// Confirmation is a pending or completed proof-of-contact-ownership record.
// PK: contact (normalized lowercase email or E.164 phone) — at most one
// record per contact per variant. SecretCode is the opaque client-held
// reference; ConfirmCode is the short code delivered out-of-band.
// SendCount is only maintained for the phone variant.
type Confirmation struct {
	Contact     string         `json:"contact" dynamodbav:"contact"`
	SecretCode  string         `json:"secret_code" dynamodbav:"secret_code"`
	ConfirmCode string         `json:"-" dynamodbav:"confirm_code"`
	Purpose     ConfirmPurpose `json:"purpose" dynamodbav:"purpose"`
	Confirmed   bool           `json:"confirmed" dynamodbav:"confirmed"`
	SendCount   int            `json:"send_count,omitempty" dynamodbav:"send_count"`
	CreatedAt   time.Time      `json:"created_at" dynamodbav:"created_at"`
}

// Age returns how long ago the record was last (re)generated.
func (c *Confirmation) Age(now time.Time) time.Duration {
	return now.Sub(c.CreatedAt)
}

// Expired reports whether the record can no longer be confirmed.
// TTL gates only the confirm step; a confirmed record stays consumable.
func (c *Confirmation) Expired(now time.Time, ttl time.Duration) bool {
	return c.Age(now) >= ttl
}
