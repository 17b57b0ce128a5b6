package main

import (
	"fmt"

	"github.com/chzyer/readline"
	"github.com/mdouchement/passgate/internal/auth"
	"github.com/mdouchement/passgate/internal/model"
	"github.com/mdouchement/passgate/internal/notifier"
	"github.com/mdouchement/passgate/pkg/resettoken"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	useraddCmd = &cobra.Command{
		Use:   "useradd <username> <email> <fullname>",
		Short: "Create a user, the password is prompted",
		Args:  cobra.ExactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			e, err := load(c.Context())
			if err != nil {
				return err
			}
			defer e.db.Close()

			username := auth.NormalizeUsername(args[0])
			if err = auth.ValidateUsername(username); err != nil {
				return errors.Wrap(err, "invalid username")
			}

			password, err := readline.Password("Password: ")
			if err != nil {
				return errors.Wrap(err, "could not read password from stdin")
			}
			confirmation, err := readline.Password("Confirm password: ")
			if err != nil {
				return errors.Wrap(err, "could not read password from stdin")
			}
			if string(password) != string(confirmation) {
				return errors.New("passwords do not match")
			}

			hasher, err := e.hasher()
			if err != nil {
				return err
			}

			user := model.NewUser(username, args[2], args[1])
			err = auth.NewAuthenticator(e.db, hasher, e.log).SetPassword(c.Context(), user, string(password))
			if err != nil {
				if e.db.IsAlreadyExists(err) {
					return errors.Errorf("user %s already exists", username)
				}
				return errors.Wrap(err, "could not create user")
			}

			fmt.Println("User created:", user.ID)
			return nil
		},
	}

	//
	rmuserCmd = &cobra.Command{
		Use:   "rmuser <username>",
		Short: "Remove a user from the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			e, err := load(c.Context())
			if err != nil {
				return err
			}
			defer e.db.Close()

			// Fetch user
			user, err := e.db.FindUserByUsername(c.Context(), auth.NormalizeUsername(args[0]))
			if err != nil {
				if e.db.IsNotFound(err) {
					fmt.Println("No account for this username")
					return nil
				}
				return errors.Wrap(err, "find user by username")
			}

			fmt.Println("User found:", user.ID)

			// Delete user
			if err = e.db.Delete(c.Context(), user); err != nil && !e.db.IsNotFound(err) {
				return errors.Wrap(err, "delete user")
			}
			fmt.Println("User removed")

			return nil
		},
	}

	//
	resetLinkCmd = &cobra.Command{
		Use:   "reset-link <username>",
		Short: "Print a password reset link for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			e, err := load(c.Context())
			if err != nil {
				return err
			}
			defer e.db.Close()

			user, err := e.db.FindUserByUsername(c.Context(), auth.NormalizeUsername(args[0]))
			if err != nil {
				if e.db.IsNotFound(err) {
					return errors.Errorf("no account for %s", args[0])
				}
				return errors.Wrap(err, "find user by username")
			}

			token, err := resettoken.Mint(user, e.cfg.SecretKey)
			if err != nil {
				return err
			}

			fmt.Println(notifier.ResetURL(e.cfg.Notifier.BaseURL, resettoken.EncodeUID(user.ID), token))
			fmt.Println("Valid for", e.cfg.ResetTimeout)
			return nil
		},
	}
)
