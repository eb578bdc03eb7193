package normalize

import (
	"fmt"
	"strings"

	"github.com/go-confirm-api/internal/domain"
	"github.com/nyaruka/phonenumbers"
)

// Email normalizes an email address for storage and lookup.
func Email(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Phone parses a national phone number with its ISO 3166-1 alpha-2 region
// and returns it in E.164 format, e.g. ("9231234345", "RU") -> "+79231234345".
// Unparseable or invalid numbers fail with ErrIncorrectPhone.
func Phone(phone, region string) (string, error) {
	num, err := phonenumbers.Parse(phone, strings.ToUpper(region))
	if err != nil {
		return "", fmt.Errorf("parse phone %q: %w", phone, domain.ErrIncorrectPhone)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone %q: %w", phone, domain.ErrIncorrectPhone)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
