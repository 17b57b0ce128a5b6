package service

import (
	"time"

	"github.com/mdouchement/passgate/internal/auth"
	"github.com/mdouchement/passgate/internal/database"
	"github.com/mdouchement/passgate/internal/notifier"
	"github.com/mdouchement/passgate/internal/server/session"
	"github.com/sirupsen/logrus"
)

type (
	// A Render is an arbitrary payload serializable in JSON by the API.
	Render any

	// M is an arbitrary map.
	M map[string]any

	// Params are the basic fields used in requests.
	Params struct {
		UserAgent string `json:"-"`
		RemoteIP  string `json:"-"`
	}

	// Dependencies are the components shared by services.
	Dependencies struct {
		Database      database.Client
		Authenticator *auth.Authenticator
		Sessions      session.Manager
		Notifier      notifier.Notifier
		// SecretKey signs reset tokens.
		SecretKey    []byte
		ResetTimeout time.Duration
		Logger       logrus.FieldLogger
	}
)
