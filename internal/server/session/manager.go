package session

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mdouchement/passgate/internal/apierror"
	"github.com/mdouchement/passgate/internal/auth"
	"github.com/mdouchement/passgate/internal/model"
	"github.com/pkg/errors"
)

type (
	// A UserFinder loads users by id. It returns (nil, nil) when the user does not exist.
	UserFinder interface {
		GetByID(ctx context.Context, id int64) (*model.User, error)
	}

	// A Manager issues and validates session tokens.
	// A session is only valid while the user's password hash is the one it was issued for.
	Manager interface {
		// Token returns a new session token for the given user and its expiration date.
		Token(user *model.User) (string, time.Time, error)
		// Validate validates a session token and returns its user.
		Validate(ctx context.Context, token string) (*model.User, error)
	}

	manager struct {
		users         UserFinder
		signingKey    []byte
		bindingSecret []byte
		ttl           time.Duration
		now           func() time.Time
	}
)

// NewManager returns a new manager.
// signingKey signs the tokens, bindingSecret keys the session binding value.
func NewManager(users UserFinder, signingKey, bindingSecret []byte, ttl time.Duration) Manager {
	return &manager{
		users:         users,
		signingKey:    signingKey,
		bindingSecret: bindingSecret,
		ttl:           ttl,
		now:           time.Now,
	}
}

func (m *manager) Token(user *model.User) (string, time.Time, error) {
	if user.ID == 0 {
		return "", time.Time{}, errors.New("could not issue a session for an unsaved user")
	}

	now := m.now()
	expireAt := now.Add(m.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        SecureToken(24),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expireAt),
		},
		Binding: auth.SessionBinding(user, m.bindingSecret),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signingKey)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "could not sign session token")
	}
	return token, expireAt, nil
}

func (m *manager) Validate(ctx context.Context, token string) (*model.User, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, apierror.ErrInvalidSession
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, apierror.ErrInvalidSession
	}

	// Get current_user.
	user, err := m.users.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "could not get access to database")
	}
	if user == nil {
		return nil, apierror.ErrInvalidSession
	}

	// Check if the password has changed since the token was issued.
	if !auth.SameBinding(claims.Binding, auth.SessionBinding(user, m.bindingSecret)) {
		return nil, apierror.ErrRevokedSession
	}

	return user, nil
}
