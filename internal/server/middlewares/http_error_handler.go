package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/passgate/internal/apierror"
	"github.com/sirupsen/logrus"
)

// HTTPErrorHandler returns a handler that formats rendered errors.
// Unexpected errors are logged with a correlation id and never rendered.
func HTTPErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		switch err := err.(type) {
		case *echo.HTTPError:
			if err.Internal != nil {
				log.WithError(err.Internal).Debug("echo error")
			}
			_ = c.JSON(err.Code, echo.Map{
				"error": echo.Map{
					"message": err.Message,
				},
			})
		case *apierror.APIError:
			status := apierror.StatusCode(err)
			if status < 500 {
				_ = c.JSON(status, err)
				return
			}

			internal(log, err, c)
		default:
			internal(log, err, c)
		}
	}
}

func internal(log logrus.FieldLogger, err error, c echo.Context) {
	id := uuid.Must(uuid.NewV4()).String()
	log.WithField("error_id", id).Errorf("%+v", err)

	_ = c.JSON(http.StatusInternalServerError, echo.Map{
		"error": echo.Map{
			"message": fmt.Sprintf("Unexpected error (id: %s)", id),
		},
	})
}
