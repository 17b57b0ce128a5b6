package database

import (
	"context"

	"github.com/mdouchement/passgate/internal/model"
	"github.com/pkg/errors"
)

const (
	// DriverStorm is the embedded bbolt backend.
	DriverStorm = "storm"
	// DriverPostgres is the PostgreSQL backend.
	DriverPostgres = "postgres"
)

type (
	// A Client can interacts with the database.
	Client interface {
		// Save inserts or updates the entry in database with the given model.
		// An inserted model gets its ID assigned.
		Save(ctx context.Context, m model.Model) error
		// Delete deletes the entry in database with the given model.
		Delete(ctx context.Context, m model.Model) error
		// Close the database.
		Close() error
		// IsNotFound returns true if err is a not found error.
		IsNotFound(err error) bool
		// IsAlreadyExists returns true if err is a unique constraint error.
		IsAlreadyExists(err error) bool

		UserInteraction
	}

	// An UserInteraction defines all the methods used to interact with a user record.
	UserInteraction interface {
		// FindUser returns the user for the given id.
		FindUser(ctx context.Context, id int64) (*model.User, error)
		// FindUserByUsername returns the user for the given username.
		FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	}

	// Options selects and configures a backend.
	Options struct {
		Driver string
		Path   string // storm
		DSN    string // postgres
	}
)

// Open returns a new database connection for the configured driver.
func Open(ctx context.Context, opts Options) (Client, error) {
	switch opts.Driver {
	case "", DriverStorm:
		return StormOpen(opts.Path)
	case DriverPostgres:
		return PostgresOpen(ctx, opts.DSN)
	default:
		return nil, errors.Errorf("unsupported database driver: %s", opts.Driver)
	}
}
