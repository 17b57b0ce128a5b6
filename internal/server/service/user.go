package service

import (
	"context"
	"net/http"
	"time"

	"github.com/mdouchement/passgate/internal/apierror"
	"github.com/mdouchement/passgate/internal/auth"
	"github.com/mdouchement/passgate/internal/model"
	"github.com/mdouchement/passgate/internal/server/serializer"
	"github.com/mdouchement/passgate/pkg/resettoken"
	"github.com/pkg/errors"
)

// ForgotPasswordMessage is rendered whether or not the account exists.
const ForgotPasswordMessage = "If an account matches this username, a password reset link has been sent."

type (
	// A UserService is a service used for handling user accounts.
	UserService interface {
		Register(ctx context.Context, params RegisterParams) (Render, error)
		Login(ctx context.Context, params LoginParams) (Render, error)
		ForgotPassword(ctx context.Context, params ForgotPasswordParams) (Render, error)
		ValidateReset(ctx context.Context, params ResetParams) (Render, error)
		ResetPassword(ctx context.Context, params ResetPasswordParams) (Render, error)
		ChangePassword(ctx context.Context, user *model.User, params ChangePasswordParams) (Render, error)
	}

	// RegisterParams are used to register a user.
	RegisterParams struct {
		Params
		Fullname             string `json:"fullname"`
		Email                string `json:"email"`
		Username             string `json:"username"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
	}

	// LoginParams are used to login a user.
	LoginParams struct {
		Params
		Username string `json:"username"`
		Password string `json:"password"`
	}

	// ForgotPasswordParams are used to request a reset link.
	ForgotPasswordParams struct {
		Params
		Username string `json:"username"`
	}

	// ResetParams identify a reset link.
	ResetParams struct {
		Params
		UID   string `json:"-" param:"uid"`
		Token string `json:"-" param:"token"`
	}

	// ResetPasswordParams are used to choose a new password from a reset link.
	ResetPasswordParams struct {
		ResetParams
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
	}

	// ChangePasswordParams are used to update the password of the current user.
	ChangePasswordParams struct {
		Params
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}

	userService struct {
		Dependencies
		now func() time.Time
	}
)

// NewUser returns a new UserService.
func NewUser(deps Dependencies) UserService {
	return &userService{
		Dependencies: deps,
		now:          time.Now,
	}
}

func (s *userService) Register(ctx context.Context, params RegisterParams) (Render, error) {
	params.Username = auth.NormalizeUsername(params.Username)
	if auth.ValidateUsername(params.Username) != nil {
		return nil, apierror.NewWithTagCode(http.StatusBadRequest, "invalid-username", "Invalid username.")
	}
	if auth.ValidatePassword(params.Password) != nil {
		return nil, apierror.NewWithTagCode(http.StatusBadRequest, "invalid-password", "Invalid password.")
	}
	if params.Password != params.PasswordConfirmation {
		return nil, apierror.NewWithTagCode(http.StatusBadRequest, "password-mismatch", "Passwords do not match.")
	}

	// Check if the username is free to use.
	u, err := s.Authenticator.GetByUsername(ctx, params.Username)
	if err != nil {
		return nil, errors.Wrap(err, "could not get access to database")
	}
	if u != nil {
		return nil, errUsernameTaken
	}

	user := model.NewUser(params.Username, params.Fullname, params.Email)
	if err = s.Authenticator.SetPassword(ctx, user, params.Password); err != nil {
		if s.Database.IsAlreadyExists(err) {
			return nil, errUsernameTaken
		}
		return nil, errors.Wrap(err, "could not persist user")
	}

	s.Logger.WithField("user_id", user.ID).Info("user registered")
	return s.successfulAuthentication(user, nil)
}

func (s *userService) Login(ctx context.Context, params LoginParams) (Render, error) {
	user, err := s.Authenticator.Authenticate(ctx, auth.Credentials{
		Username: auth.NormalizeUsername(params.Username),
		Password: params.Password,
	})

	var uerr *auth.UpgradeError
	switch {
	case errors.Is(err, auth.ErrInvalidCredentialsFormat):
		return nil, apierror.NewWithTagCode(http.StatusBadRequest, "invalid-credentials", "Could not get credentials.")
	case errors.As(err, &uerr):
		// Verified, the hash will be upgraded on a later login.
		s.Logger.WithError(err).WithField("user_id", user.ID).Warn("verified but failed to upgrade password hash")
	case err != nil:
		return nil, errors.Wrap(err, "could not authenticate user")
	}

	if user == nil {
		return nil, apierror.ErrInvalidCredentials
	}

	return s.successfulAuthentication(user, nil)
}

func (s *userService) ForgotPassword(ctx context.Context, params ForgotPasswordParams) (Render, error) {
	response := M{"message": ForgotPasswordMessage}

	params.Username = auth.NormalizeUsername(params.Username)
	if auth.ValidateUsername(params.Username) != nil {
		return response, nil
	}

	user, err := s.Authenticator.GetByUsername(ctx, params.Username)
	if err != nil {
		return nil, errors.Wrap(err, "could not get access to database")
	}
	if user == nil {
		s.Logger.Debug("password reset requested for an unknown username")
		return response, nil
	}

	token, err := resettoken.MintAt(user, s.SecretKey, s.now())
	if err != nil {
		return nil, errors.Wrap(err, "could not mint reset token")
	}

	err = s.Notifier.DeliverResetLink(ctx, user.Email, token, resettoken.EncodeUID(user.ID))
	if err != nil {
		// The response must not depend on the existence of the account.
		s.Logger.WithError(err).WithField("user_id", user.ID).Error("could not deliver reset link")
		return response, nil
	}

	s.Logger.WithField("user_id", user.ID).Info("reset link delivered")
	return response, nil
}

func (s *userService) ValidateReset(ctx context.Context, params ResetParams) (Render, error) {
	if _, err := s.resetUser(ctx, params); err != nil {
		return nil, err
	}
	return M{"valid": true}, nil
}

func (s *userService) ResetPassword(ctx context.Context, params ResetPasswordParams) (Render, error) {
	user, err := s.resetUser(ctx, params.ResetParams)
	if err != nil {
		return nil, err
	}

	if auth.ValidatePassword(params.Password) != nil {
		return nil, apierror.NewWithTagCode(http.StatusBadRequest, "invalid-password", "Invalid password.")
	}
	if params.Password != params.PasswordConfirmation {
		return nil, apierror.NewWithTagCode(http.StatusBadRequest, "password-mismatch", "Passwords do not match.")
	}

	if err = s.Authenticator.SetPassword(ctx, user, params.Password); err != nil {
		return nil, errors.Wrap(err, "could not persist user")
	}

	s.Logger.WithField("user_id", user.ID).Info("password reset")
	return M{"message": "Your password has been set. You may go ahead and log in now."}, nil
}

func (s *userService) ChangePassword(ctx context.Context, user *model.User, params ChangePasswordParams) (Render, error) {
	if auth.ValidatePassword(params.CurrentPassword) != nil ||
		!s.Authenticator.Hasher().Verify(user.PasswordHash(), params.CurrentPassword).OK() {
		return nil, apierror.NewWithTagCode(http.StatusUnauthorized, "invalid-password", "The current password you entered is incorrect. Please try again.")
	}

	if auth.ValidatePassword(params.NewPassword) != nil {
		return nil, apierror.NewWithTagCode(http.StatusBadRequest, "invalid-password", "Invalid password.")
	}

	if err := s.Authenticator.SetPassword(ctx, user, params.NewPassword); err != nil {
		return nil, errors.Wrap(err, "could not persist user")
	}

	s.Logger.WithField("user_id", user.ID).Info("password changed")
	return s.successfulAuthentication(user, nil)
}

// resetUser returns the user targeted by a valid reset link.
// Every failure looks the same to the client, the reason is only logged.
func (s *userService) resetUser(ctx context.Context, params ResetParams) (*model.User, error) {
	log := s.Logger.WithField("uid", params.UID)

	id, ok := resettoken.DecodeUID(params.UID)
	if !ok {
		log.Debug("reset link rejected: malformed uid")
		return nil, apierror.ErrInvalidResetLink
	}

	user, err := s.Authenticator.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "could not get access to database")
	}
	if user == nil {
		log.Debug("reset link rejected: unknown user")
		return nil, apierror.ErrInvalidResetLink
	}

	if err = resettoken.CheckAt(user, params.Token, s.SecretKey, s.ResetTimeout, s.now()); err != nil {
		log.WithField("reason", err.Error()).Debug("reset link rejected")
		return nil, apierror.ErrInvalidResetLink
	}

	return user, nil
}

func (s *userService) successfulAuthentication(u *model.User, response M) (Render, error) {
	if response == nil {
		response = M{}
	}

	token, expireAt, err := s.Sessions.Token(u)
	if err != nil {
		return nil, err
	}

	response["user"] = serializer.User(u)
	response["token"] = token
	response["expire_at"] = expireAt.UTC()
	return response, nil
}

var errUsernameTaken = apierror.NewWithTagCode(http.StatusConflict, "username-taken", "This username is already taken.")
