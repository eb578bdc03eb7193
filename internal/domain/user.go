package domain

import "time"

// User is an account identity. A user registers with either a confirmed
// email or a confirmed phone, so both contact fields are optional but at
// least one is always set. Contact values are stored normalized (lowercase
// email, E.164 phone) and are unique across users.
type User struct {
	UserID       string     `json:"id" dynamodbav:"user_id"`
	Email        *string    `json:"email,omitempty" dynamodbav:"email,omitempty"`
	Phone        *string    `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	PasswordHash string     `json:"-" dynamodbav:"password_hash"`
	Role         string     `json:"role" dynamodbav:"role"`
	Enable       int        `json:"enable" dynamodbav:"enable"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// Contact returns the user's value for the given variant's contact field.
func (u *User) Contact(v ConfirmVariant) *string {
	if v == VariantPhone {
		return u.Phone
	}
	return u.Email
}

// TokenPair is the opaque token set issued on successful authentication.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
