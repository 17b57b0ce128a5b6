package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/passgate/internal/apierror"
	"github.com/mdouchement/passgate/internal/server/middlewares"
	"github.com/mdouchement/passgate/internal/server/serializer"
	"github.com/mdouchement/passgate/internal/server/service"
)

// user contains all account handlers.
type user struct {
	deps service.Dependencies
}

func (h *user) params(c echo.Context) service.Params {
	return service.Params{
		UserAgent: c.Request().UserAgent(),
		RemoteIP:  c.RealIP(),
	}
}

///// Register
////
//

// Register handler is used to register the user.
func (h *user) Register(c echo.Context) error {
	// Filter params
	var params service.RegisterParams
	if err := c.Bind(&params); err != nil {
		h.deps.Logger.WithError(err).Debug("could not get parameters")
		return c.JSON(http.StatusBadRequest, apierror.New("Could not get user's params."))
	}
	params.Params = h.params(c)

	if params.Username == "" {
		return c.JSON(http.StatusBadRequest, apierror.New("No username provided."))
	}
	if params.Password == "" {
		return c.JSON(http.StatusBadRequest, apierror.New("No password provided."))
	}

	register, err := service.NewUser(h.deps).Register(c.Request().Context(), params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, register)
}

///// Login
////
//

// Login used for authenticates a user and returns a session token.
func (h *user) Login(c echo.Context) error {
	// Filter params
	var params service.LoginParams
	if err := c.Bind(&params); err != nil {
		h.deps.Logger.WithError(err).Debug("could not get parameters")
		return c.JSON(http.StatusBadRequest, apierror.New("Could not get credentials."))
	}
	params.Params = h.params(c)

	if params.Username == "" || params.Password == "" {
		return c.JSON(http.StatusBadRequest, apierror.New("No username or password provided."))
	}

	login, err := service.NewUser(h.deps).Login(c.Request().Context(), params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, login)
}

///// Forgot Password
////
//

// ForgotPassword sends a reset link to the user if the account exists.
// The response is the same either way.
func (h *user) ForgotPassword(c echo.Context) error {
	var params service.ForgotPasswordParams
	if err := c.Bind(&params); err != nil {
		h.deps.Logger.WithError(err).Debug("could not get parameters")
		return c.JSON(http.StatusBadRequest, apierror.New("Could not get parameters."))
	}
	params.Params = h.params(c)

	forgot, err := service.NewUser(h.deps).ForgotPassword(c.Request().Context(), params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusAccepted, forgot)
}

///// Reset Password
////
//

// ValidateReset checks a reset link before the user chooses a new password.
func (h *user) ValidateReset(c echo.Context) error {
	params := service.ResetParams{
		Params: h.params(c),
		UID:    c.Param("uid"),
		Token:  c.Param("token"),
	}

	valid, err := service.NewUser(h.deps).ValidateReset(c.Request().Context(), params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, valid)
}

// ResetPassword sets a new password from a reset link.
func (h *user) ResetPassword(c echo.Context) error {
	var params service.ResetPasswordParams
	if err := c.Bind(&params); err != nil {
		h.deps.Logger.WithError(err).Debug("could not get parameters")
		return c.JSON(http.StatusBadRequest, apierror.New("Could not get parameters."))
	}
	params.Params = h.params(c)
	params.UID = c.Param("uid")
	params.Token = c.Param("token")

	reset, err := service.NewUser(h.deps).ResetPassword(c.Request().Context(), params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, reset)
}

///// Home
////
//

// Home renders the current user.
func (h *user) Home(c echo.Context) error {
	return c.JSON(http.StatusOK, serializer.Global(serializer.User(middlewares.CurrentUser(c))))
}

///// Change Password
////
//

// ChangePassword used to updates the current user's password.
// Every other session of the user is revoked.
func (h *user) ChangePassword(c echo.Context) error {
	var params service.ChangePasswordParams
	if err := c.Bind(&params); err != nil {
		h.deps.Logger.WithError(err).Debug("could not get parameters")
		return c.JSON(http.StatusBadRequest, apierror.New("Could not get parameters."))
	}
	params.Params = h.params(c)

	if params.CurrentPassword == "" {
		return c.JSON(http.StatusBadRequest, apierror.New("Your current password is required to change your password."))
	}
	if params.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, apierror.New("Your new password is required to change your password."))
	}

	password, err := service.NewUser(h.deps).ChangePassword(c.Request().Context(), middlewares.CurrentUser(c), params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, password)
}
