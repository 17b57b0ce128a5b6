package database

import (
	"context"
	"embed"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mdouchement/passgate/internal/model"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

type pg struct {
	pool *pgxpool.Pool
}

// PostgresMigrate applies the schema migrations on the given database.
func PostgresMigrate(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer pool.Close()

	return migrate(ctx, pool)
}

// PostgresOpen returns a new PostgreSQL database connection with an up to date schema.
func PostgresOpen(ctx context.Context, dsn string) (Client, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "could not reach database")
	}

	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &pg{
		pool: pool,
	}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	// goose only speaks database/sql.
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "could not set migration dialect")
	}

	return errors.Wrap(goose.UpContext(ctx, db, "migrations"), "could not apply migrations")
}

// Save inserts or updates the entry in database with the given model.
func (c *pg) Save(ctx context.Context, m model.Model) error {
	t := time.Now().UTC()

	switch v := m.(type) {
	case *model.User:
		if v.GetID() == 0 {
			var id int64
			err := c.pool.QueryRow(ctx,
				`INSERT INTO users (username, name, email, password, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
				v.Username, v.Name, v.Email, v.Password, t,
			).Scan(&id)
			if err != nil {
				return errors.Wrap(err, "could not save the model")
			}

			v.SetID(id)
			v.SetCreatedAt(t)
			v.SetUpdatedAt(t)
			return nil
		}

		tag, err := c.pool.Exec(ctx,
			`UPDATE users SET username = $2, name = $3, email = $4, password = $5, updated_at = $6 WHERE id = $1`,
			v.ID, v.Username, v.Name, v.Email, v.Password, t,
		)
		if err != nil {
			return errors.Wrap(err, "could not save the model")
		}
		if tag.RowsAffected() == 0 {
			return errors.Wrap(pgx.ErrNoRows, "could not save the model")
		}

		v.SetUpdatedAt(t)
		return nil
	default:
		return errors.Errorf("unsupported model %T", m)
	}
}

// Delete deletes the entry in database with the given model.
func (c *pg) Delete(ctx context.Context, m model.Model) error {
	switch m.(type) {
	case *model.User:
		tag, err := c.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, m.GetID())
		if err != nil {
			return errors.Wrap(err, "could not delete the model")
		}
		if tag.RowsAffected() == 0 {
			return errors.Wrap(pgx.ErrNoRows, "could not delete the model")
		}
		return nil
	default:
		return errors.Errorf("unsupported model %T", m)
	}
}

// Close the database.
func (c *pg) Close() error {
	c.pool.Close()
	return nil
}

// IsNotFound returns true if err is a not found error.
func (c *pg) IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsAlreadyExists returns true if err is a unique constraint error.
func (c *pg) IsAlreadyExists(err error) bool {
	var pgerr *pgconn.PgError
	return errors.As(err, &pgerr) && pgerr.Code == uniqueViolation
}

// FindUser returns the user for the given id.
func (c *pg) FindUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := c.user(ctx, `WHERE id = $1`, id)
	return user, errors.Wrap(err, "find user by id")
}

// FindUserByUsername returns the user for the given username.
func (c *pg) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := c.user(ctx, `WHERE username = $1`, username)
	return user, errors.Wrap(err, "find user by username")
}

func (c *pg) user(ctx context.Context, where string, arg any) (*model.User, error) {
	var (
		user                 model.User
		createdAt, updatedAt time.Time
	)

	err := c.pool.QueryRow(ctx,
		`SELECT id, username, name, email, password, created_at, updated_at FROM users `+where, arg,
	).Scan(&user.ID, &user.Username, &user.Name, &user.Email, &user.Password, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	user.SetCreatedAt(createdAt.UTC())
	user.SetUpdatedAt(updatedAt.UTC())
	return &user, nil
}
