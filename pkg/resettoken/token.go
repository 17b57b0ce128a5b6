package resettoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/mdouchement/passgate/pkg/base36"
	"github.com/mdouchement/passgate/pkg/password"
	"github.com/pkg/errors"
)

const (
	// SignatureLength is the number of hex characters kept from the HMAC.
	SignatureLength = 20
	// MaxLength bounds the size of a token accepted by Check.
	MaxLength = 64

	separator = "-"
)

var (
	// ErrUnsaved is returned when minting a token for a subject without id.
	ErrUnsaved = errors.New("resettoken: subject has no id")
	// ErrClock is returned when the clock is before the Unix epoch.
	ErrClock = errors.New("resettoken: clock before epoch")

	// ErrMalformed means the token could not be parsed.
	ErrMalformed = errors.New("resettoken: malformed token")
	// ErrExpired means the token is older than the timeout.
	ErrExpired = errors.New("resettoken: token expired")
	// ErrFromFuture means the token timestamp is ahead of the clock.
	ErrFromFuture = errors.New("resettoken: token from the future")
	// ErrSignature means the signature does not match.
	ErrSignature = errors.New("resettoken: signature mismatch")
)

// A Subject is the target of a reset token.
type Subject interface {
	GetID() int64
	PasswordHash() password.Hash
}

// Mint returns a new token for the subject signed with secret.
func Mint(s Subject, secret []byte) (string, error) {
	return MintAt(s, secret, time.Now())
}

// MintAt returns a token for the subject as if minted at t.
func MintAt(s Subject, secret []byte, t time.Time) (string, error) {
	if s.GetID() <= 0 {
		return "", ErrUnsaved
	}

	ts := t.Unix()
	if ts < 0 {
		return "", ErrClock
	}

	return build(s, secret, uint64(ts)), nil
}

// Verify returns true if the token is valid for the subject at the current time.
func Verify(s Subject, token string, secret []byte, timeout time.Duration) bool {
	return CheckAt(s, token, secret, timeout, time.Now()) == nil
}

// VerifyAt returns true if the token is valid for the subject at now.
func VerifyAt(s Subject, token string, secret []byte, timeout time.Duration, now time.Time) bool {
	return CheckAt(s, token, secret, timeout, now) == nil
}

// Check is like Verify but returns the reason of the rejection.
// The reason is meant for logs and must not be exposed to the token holder.
func Check(s Subject, token string, secret []byte, timeout time.Duration) error {
	return CheckAt(s, token, secret, timeout, time.Now())
}

// CheckAt is like VerifyAt but returns the reason of the rejection.
func CheckAt(s Subject, token string, secret []byte, timeout time.Duration, now time.Time) error {
	if s.GetID() <= 0 || len(token) > MaxLength {
		return ErrMalformed
	}

	encoded, _, ok := strings.Cut(token, separator)
	if !ok {
		return ErrMalformed
	}

	ts, ok := base36.Decode(encoded)
	if !ok {
		return ErrMalformed
	}

	current := now.Unix()
	if current < 0 || ts > uint64(current) {
		return ErrFromFuture
	}
	if timeout <= 0 || uint64(current)-ts > uint64(timeout/time.Second) {
		return ErrExpired
	}

	expected := build(s, secret, ts)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
		return ErrSignature
	}
	return nil
}

func build(s Subject, secret []byte, ts uint64) string {
	return base36.Encode(ts) + separator + sign(s, secret, ts)
}

func sign(s Subject, secret []byte, ts uint64) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(s.GetID(), 10)))
	mac.Write([]byte(s.PasswordHash().String()))
	mac.Write([]byte(strconv.FormatUint(ts, 10)))

	return hex.EncodeToString(mac.Sum(nil))[:SignatureLength]
}
