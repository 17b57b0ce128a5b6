package config

import (
	"hash"
	"io"
	"math"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/mdouchement/passgate/internal/database"
	"github.com/mdouchement/passgate/internal/logger"
	"github.com/mdouchement/passgate/internal/notifier"
	"github.com/mdouchement/passgate/pkg/password"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

// EnvPrefix is the prefix of environment variables overriding the configuration file.
// Nested keys are separated by a double underscore (e.g. PASSGATE_SESSION__TTL).
const EnvPrefix = "PASSGATE_"

// A Config holds the whole server configuration.
type Config struct {
	Address        string
	NoRegistration bool
	// SecretKey signs reset tokens and session binding values.
	SecretKey []byte
	// SessionSecret is the raw secret the JWT signing key is derived from.
	SessionSecret []byte
	SessionTTL    time.Duration
	ResetTimeout  time.Duration
	Database      database.Options
	Notifier      notifier.Options
	Log           logger.Options
	Password      password.Config
}

var defaults = map[string]any{
	"address":              "localhost:5000",
	"no_registration":      false,
	"database.driver":      database.DriverStorm,
	"database.path":        "passgate.db",
	"session.ttl":          "24h",
	"reset.timeout":        "72h",
	"reset.base_url":       "http://localhost:5000",
	"notifier.driver":      notifier.DriverLog,
	"log.level":            "info",
	"password.memory":      int64(password.DefaultConfig.Memory),
	"password.time":        int64(password.DefaultConfig.Time),
	"password.parallelism": int64(password.DefaultConfig.Parallelism),
	"password.salt_length": int64(password.DefaultConfig.SaltLength),
	"password.key_length":  int64(password.DefaultConfig.KeyLength),
}

// Load reads the configuration from the given YAML file, if any, then from the environment.
func Load(path string) (*Config, error) {
	konf := koanf.New(".")
	if err := konf.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, errors.Wrap(err, "could not load defaults")
	}

	if path != "" {
		if err := konf.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrap(err, "could not load configuration file")
		}
	}

	err := konf.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not load environment")
	}

	hashing, err := passwordConfig(konf)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Address:        konf.String("address"),
		NoRegistration: konf.Bool("no_registration"),
		SecretKey:      konf.Bytes("secret_key"),
		SessionSecret:  konf.Bytes("session.secret"),
		SessionTTL:     konf.Duration("session.ttl"),
		ResetTimeout:   konf.Duration("reset.timeout"),
		Database: database.Options{
			Driver: konf.String("database.driver"),
			Path:   konf.String("database.path"),
			DSN:    konf.String("database.dsn"),
		},
		Notifier: notifier.Options{
			Driver:  konf.String("notifier.driver"),
			BaseURL: konf.String("reset.base_url"),
			Postmark: notifier.PostmarkOptions{
				ServerToken:  konf.String("notifier.postmark.server_token"),
				AccountToken: konf.String("notifier.postmark.account_token"),
				From:         konf.String("notifier.postmark.from"),
				ReplyTo:      konf.String("notifier.postmark.reply_to"),
			},
		},
		Log: logger.Options{
			Level: konf.String("log.level"),
			File:  konf.String("log.file"),
			Quiet: konf.Bool("log.quiet"),
		},
		Password: hashing,
	}

	return cfg, cfg.Validate()
}

// passwordConfig reads the argon2 parameters, out of range values are rejected instead of truncated.
func passwordConfig(konf *koanf.Koanf) (cfg password.Config, err error) {
	bounded := func(key string, limit int64) int64 {
		if err != nil {
			return 0
		}
		n := konf.Int64(key)
		if n < 0 || n > limit {
			err = errors.Errorf("%s must be between 0 and %d", key, limit)
		}
		return n
	}

	cfg.Memory = uint32(bounded("password.memory", math.MaxUint32))
	cfg.Time = uint32(bounded("password.time", math.MaxUint32))
	cfg.Parallelism = uint8(bounded("password.parallelism", math.MaxUint8))
	cfg.SaltLength = uint32(bounded("password.salt_length", math.MaxUint32))
	cfg.KeyLength = uint32(bounded("password.key_length", math.MaxUint32))
	return cfg, err
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	switch {
	case len(c.SecretKey) == 0:
		return errors.New("secret_key not found")
	case len(c.SessionSecret) == 0:
		return errors.New("session secret not found")
	case c.SessionTTL <= 0:
		return errors.New("session ttl must be positive")
	case c.ResetTimeout <= 0:
		return errors.New("reset timeout must be positive")
	case c.Database.Driver == database.DriverPostgres && c.Database.DSN == "":
		return errors.New("database dsn not found")
	}

	if _, err := password.NewHasher(c.Password); err != nil {
		return err
	}
	return nil
}

// SigningKey returns the key used to sign session tokens.
func (c *Config) SigningKey() []byte {
	return DeriveKey(32, c.SessionSecret)
}

// DeriveKey stretches k into a key of l bytes using HKDF with BLAKE2b-256.
func DeriveKey(l int, k []byte) []byte {
	nhash := func() hash.Hash {
		h, err := blake2b.New256(nil)
		if err != nil {
			panic(err)
		}
		return h
	}

	payload := make([]byte, l)

	kdf := hkdf.New(nhash, k, nil, nil)
	_, err := io.ReadFull(kdf, payload)
	if err != nil {
		panic(err)
	}

	return payload
}
