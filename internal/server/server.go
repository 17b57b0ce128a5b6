package server

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mdouchement/passgate/internal/auth"
	"github.com/mdouchement/passgate/internal/database"
	"github.com/mdouchement/passgate/internal/notifier"
	"github.com/mdouchement/passgate/internal/server/middlewares"
	"github.com/mdouchement/passgate/internal/server/service"
	"github.com/mdouchement/passgate/internal/server/session"
	"github.com/mdouchement/passgate/pkg/password"
	"github.com/sirupsen/logrus"
)

// A Controller is an Inversion Of Control pattern used to init the server package.
type Controller struct {
	Version        string
	Database       database.Client
	Hasher         *password.Hasher
	Notifier       notifier.Notifier
	Logger         logrus.FieldLogger
	NoRegistration bool
	// SecretKey signs reset tokens and session binding values.
	SecretKey []byte
	// JWT params
	SigningKey []byte
	SessionTTL time.Duration
	// Reset params
	ResetTimeout time.Duration
}

// EchoEngine instantiates the wep server.
func EchoEngine(ctrl Controller) *echo.Echo {
	engine := echo.New()
	engine.HideBanner = true
	engine.Use(middleware.Recover())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	engine.Use(middleware.Gzip())

	engine.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogRoutePath: true, // Never log the URI, it may carry a reset token.
		LogLatency:   true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			ctrl.Logger.WithFields(logrus.Fields{
				"status":  v.Status,
				"latency": v.Latency.String(),
			}).Infof("%s %s", v.Method, v.RoutePath)
			return nil
		},
	}))
	engine.Binder = middlewares.NewBinder()
	// Error handler
	engine.HTTPErrorHandler = middlewares.HTTPErrorHandler(ctrl.Logger)

	////////////
	// Router //
	////////////

	authenticator := auth.NewAuthenticator(ctrl.Database, ctrl.Hasher, ctrl.Logger)
	sessions := session.NewManager(authenticator, ctrl.SigningKey, ctrl.SecretKey, ctrl.SessionTTL)

	router := engine.Group("")
	// Attached per route, a group middleware would also catch unknown paths.
	session := middlewares.Session(sessions)

	// generic handlers
	//
	version := func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	}
	router.GET("/", version)
	router.GET("/version", version)

	//
	// user handlers
	//
	user := &user{
		deps: service.Dependencies{
			Database:      ctrl.Database,
			Authenticator: authenticator,
			Sessions:      sessions,
			Notifier:      ctrl.Notifier,
			SecretKey:     ctrl.SecretKey,
			ResetTimeout:  ctrl.ResetTimeout,
			Logger:        ctrl.Logger,
		},
	}
	if !ctrl.NoRegistration {
		router.POST("/signup", user.Register)
	}
	router.POST("/login", user.Login)
	router.POST("/forgot-password", user.ForgotPassword)
	router.GET("/reset-password/:uid/:token", user.ValidateReset)
	router.POST("/reset-password/:uid/:token", user.ResetPassword)
	router.GET("/home", user.Home, session)
	router.POST("/change-password", user.ChangePassword, session)

	return engine
}

// PrintRoutes prints the Echo engin exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}
