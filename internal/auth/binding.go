package auth

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"

	"github.com/mdouchement/passgate/pkg/password"
)

// A Bindable exposes the password hash snapshot a session is bound to.
type Bindable interface {
	PasswordHash() password.Hash
}

// SessionBinding returns the value a session is bound to: the hex encoded
// HMAC-SHA512 of the user's password hash keyed by secret.
// It changes whenever the password hash changes.
func SessionBinding(user Bindable, secret []byte) string {
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(user.PasswordHash().String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// SameBinding compares two binding values in constant time.
func SameBinding(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
