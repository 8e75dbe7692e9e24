// Package credential holds password hashes as an opaque value type.
//
// A Hash never renders its contents through fmt or slog; the only way to use
// it is Verify.
package credential

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

const redacted = "[REDACTED]"

var ErrEmptyPassword = errors.New("password must not be empty")

// Hash is a salted bcrypt hash of a password.
type Hash struct {
	encoded []byte
}

// New hashes password with the given bcrypt cost.
func New(password string, cost int) (Hash, error) {
	if password == "" {
		return Hash{}, ErrEmptyPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return Hash{}, fmt.Errorf("failed to hash password: %w", err)
	}
	return Hash{encoded: b}, nil
}

// FromStored wraps a hash loaded from the database.
func FromStored(encoded string) Hash {
	return Hash{encoded: []byte(encoded)}
}

// Verify reports whether password matches the hash. A zero Hash never matches.
func (h Hash) Verify(password string) bool {
	if len(h.encoded) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(h.encoded, []byte(password)) == nil
}

// Stored returns the encoded form for persistence.
func (h Hash) Stored() string {
	return string(h.encoded)
}

func (h Hash) IsZero() bool {
	return len(h.encoded) == 0
}

func (h Hash) String() string               { return redacted }
func (h Hash) GoString() string             { return redacted }
func (h Hash) LogValue() slog.Value         { return slog.StringValue(redacted) }
func (h Hash) MarshalText() ([]byte, error) { return []byte(redacted), nil }
