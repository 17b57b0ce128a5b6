package middlewares

import (
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/passgate/internal/apierror"
	"github.com/mdouchement/passgate/internal/model"
	"github.com/mdouchement/passgate/internal/server/session"
)

// CurrentUserContextKey is the key to retrieve the current_user from echo.Context.
const CurrentUserContextKey = "current_user"

// Session returns a session auth middleware.
// It stores current_user into echo.Context.
func Session(m session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := session.TokenFromAuthorization(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return apierror.ErrInvalidSession
			}

			user, err := m.Validate(c.Request().Context(), token)
			if err != nil {
				return err
			}

			// Store current_user for handlers.
			c.Set(CurrentUserContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by the Session middleware.
func CurrentUser(c echo.Context) *model.User {
	user, ok := c.Get(CurrentUserContextKey).(*model.User)
	if ok {
		return user
	}
	return nil
}
