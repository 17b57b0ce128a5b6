package auth

import (
	"context"

	"github.com/mdouchement/passgate/internal/model"
	"github.com/mdouchement/passgate/pkg/password"
	"github.com/sirupsen/logrus"
)

type (
	// A Store is the subset of the database used to authenticate users.
	Store interface {
		Save(ctx context.Context, m model.Model) error
		FindUser(ctx context.Context, id int64) (*model.User, error)
		FindUserByUsername(ctx context.Context, username string) (*model.User, error)
		IsNotFound(err error) bool
	}

	// An Authenticator verifies credentials and keeps stored hashes up to date.
	Authenticator struct {
		store  Store
		hasher *password.Hasher
		log    logrus.FieldLogger
	}
)

// NewAuthenticator returns a new Authenticator.
func NewAuthenticator(store Store, hasher *password.Hasher, log logrus.FieldLogger) *Authenticator {
	return &Authenticator{
		store:  store,
		hasher: hasher,
		log:    log,
	}
}

// Hasher returns the password hasher used by the authenticator.
func (a *Authenticator) Hasher() *password.Hasher {
	return a.hasher
}

// Authenticate returns the user matching the given credentials.
//
// It returns (nil, nil) when the username is unknown or the password is wrong.
// When the stored hash is obsolete, it is replaced and persisted before
// returning; if that save fails, the user is returned with an *UpgradeError.
func (a *Authenticator) Authenticate(ctx context.Context, c Credentials) (*model.User, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	user, err := a.store.FindUserByUsername(ctx, c.Username)
	if err != nil {
		if a.store.IsNotFound(err) {
			// Burn the same CPU as a real verification.
			a.hasher.Verify(dummy(a.hasher), c.Password)
			return nil, nil
		}
		return nil, backend("find user", err)
	}

	v := a.hasher.Verify(user.PasswordHash(), c.Password)
	switch v.Status {
	case password.Valid:
		return user, nil
	case password.Obsolete:
		previous := user.PasswordHash()
		user.SetPasswordHash(v.Upgrade)
		if err = a.store.Save(ctx, user); err != nil {
			user.SetPasswordHash(previous)
			return user, &UpgradeError{Err: backend("save upgraded hash", err)}
		}
		a.log.WithField("user_id", user.ID).Info("password hash upgraded")
		return user, nil
	default:
		return nil, nil
	}
}

// GetByID returns the user for the given id, or nil when it does not exist.
func (a *Authenticator) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := a.store.FindUser(ctx, id)
	if err != nil {
		if a.store.IsNotFound(err) {
			return nil, nil
		}
		return nil, backend("find user", err)
	}
	return user, nil
}

// GetByUsername returns the user for the given username, or nil when it does not exist.
func (a *Authenticator) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := a.store.FindUserByUsername(ctx, username)
	if err != nil {
		if a.store.IsNotFound(err) {
			return nil, nil
		}
		return nil, backend("find user", err)
	}
	return user, nil
}

// SetPassword hashes raw with the current parameters and persists it on user.
// Every session and reset token bound to the previous hash becomes invalid.
func (a *Authenticator) SetPassword(ctx context.Context, user *model.User, raw string) error {
	if err := ValidatePassword(raw); err != nil {
		return err
	}

	hash, err := a.hasher.Hash(raw)
	if err != nil {
		return err
	}

	previous := user.PasswordHash()
	user.SetPasswordHash(hash)
	if err = a.store.Save(ctx, user); err != nil {
		user.SetPasswordHash(previous)
		return backend("save password", err)
	}
	return nil
}
