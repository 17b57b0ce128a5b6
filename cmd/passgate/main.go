package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"runtime"
	"strings"

	"github.com/mdouchement/passgate/internal/config"
	"github.com/mdouchement/passgate/internal/database"
	"github.com/mdouchement/passgate/internal/logger"
	"github.com/mdouchement/passgate/internal/notifier"
	"github.com/mdouchement/passgate/internal/server"
	"github.com/mdouchement/passgate/pkg/password"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cfg string
)

func main() {
	c := &cobra.Command{
		Use:     "passgate",
		Short:   "Credential verification and password reset server",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    cobra.ExactArgs(0),
	}
	c.PersistentFlags().StringVarP(&cfg, "config", "c", "", "Configuration file")

	c.AddCommand(initCmd)
	c.AddCommand(reindexCmd)
	c.AddCommand(serverCmd)
	c.AddCommand(useraddCmd)
	c.AddCommand(rmuserCmd)
	c.AddCommand(resetLinkCmd)

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

// env bundles what every command needs.
type env struct {
	cfg *config.Config
	log *logrus.Logger
	db  database.Client
}

func load(ctx context.Context) (*env, error) {
	konf, err := config.Load(cfg)
	if err != nil {
		return nil, err
	}

	l, err := logger.New(konf.Log)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, konf.Database)
	if err != nil {
		return nil, errors.Wrap(err, "could not open database")
	}

	return &env{
		cfg: konf,
		log: l,
		db:  db,
	}, nil
}

func (e *env) hasher() (*password.Hasher, error) {
	return password.NewHasher(e.cfg.Password)
}

var (
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Init the database",
		Args:  cobra.ExactArgs(0),
		RunE: func(c *cobra.Command, _ []string) error {
			konf, err := config.Load(cfg)
			if err != nil {
				return err
			}

			switch konf.Database.Driver {
			case database.DriverPostgres:
				return database.PostgresMigrate(c.Context(), konf.Database.DSN)
			default:
				return database.StormInit(konf.Database.Path)
			}
		},
	}

	//
	reindexCmd = &cobra.Command{
		Use:   "reindex",
		Short: "Reindex the database",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			konf, err := config.Load(cfg)
			if err != nil {
				return err
			}

			if konf.Database.Driver == database.DriverPostgres {
				return errors.New("reindex is only supported by the storm driver")
			}
			return database.StormReIndex(konf.Database.Path)
		},
	}

	//
	//
	serverCmd = &cobra.Command{
		Use:   "server",
		Short: "Start server",
		Args:  cobra.ExactArgs(0),
		RunE: func(c *cobra.Command, _ []string) error {
			e, err := load(c.Context())
			if err != nil {
				return err
			}
			defer e.db.Close()

			hasher, err := e.hasher()
			if err != nil {
				return err
			}

			n, err := notifier.New(e.cfg.Notifier, e.log)
			if err != nil {
				return err
			}

			engine := server.EchoEngine(server.Controller{
				Version:        version,
				Database:       e.db,
				Hasher:         hasher,
				Notifier:       n,
				Logger:         e.log,
				NoRegistration: e.cfg.NoRegistration,
				SecretKey:      e.cfg.SecretKey,
				SigningKey:     e.cfg.SigningKey(),
				SessionTTL:     e.cfg.SessionTTL,
				ResetTimeout:   e.cfg.ResetTimeout,
			})
			server.PrintRoutes(engine)

			address := e.cfg.Address
			message := "could not run server"
			e.log.Infof("Server listening on %s", address)
			parts := strings.Split(address, ":")
			if len(parts) == 2 && parts[0] == "unix" {
				socketFile := parts[1]
				if _, err := os.Stat(socketFile); err == nil {
					e.log.Infof("Removing existing %s", socketFile)
					os.Remove(socketFile)
				}
				defer os.Remove(socketFile)
				listener, err := net.Listen(parts[0], socketFile)
				if err != nil {
					return err
				}
				return errors.Wrap(engine.Server.Serve(listener), message)
			}
			return errors.Wrap(engine.Start(address), message)
		},
	}
)
