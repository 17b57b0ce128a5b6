package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mdouchement/passgate/internal/model"
)

// MaxPasswordLength bounds the raw password size in bytes.
const MaxPasswordLength = 1024

// Credentials are a username and a raw password. They are never persisted.
type Credentials struct {
	Username string
	Password string
}

// Validate returns ErrInvalidCredentialsFormat if the credentials cannot match any stored user.
func (c Credentials) Validate() error {
	if err := ValidateUsername(c.Username); err != nil {
		return err
	}
	return ValidatePassword(c.Password)
}

// NormalizeUsername returns the form under which a username is stored and looked up.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// ValidateUsername checks the username against the store key constraints.
func ValidateUsername(username string) error {
	if username == "" || len(username) > model.MaxUsernameLength || !utf8.ValidString(username) {
		return ErrInvalidCredentialsFormat
	}
	for _, r := range username {
		if unicode.IsControl(r) {
			return ErrInvalidCredentialsFormat
		}
	}
	return nil
}

// ValidatePassword checks the raw password shape.
func ValidatePassword(password string) error {
	if password == "" || len(password) > MaxPasswordLength {
		return ErrInvalidCredentialsFormat
	}
	return nil
}
