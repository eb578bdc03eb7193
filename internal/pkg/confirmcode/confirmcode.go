package confirmcode

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewSecretCode generates the opaque handle a client uses to reference a
// confirmation record. Random UUIDv4, never derived from the contact value.
func NewSecretCode() string {
	return uuid.NewString()
}

// New generates a confirmation code of the given length drawn from uppercase
// letters and digits. Codes are compared case-sensitively on submission.
func New(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}
