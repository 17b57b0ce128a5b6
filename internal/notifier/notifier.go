package notifier

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DriverLog writes reset links to the logs.
	DriverLog = "log"
	// DriverPostmark sends reset links by email through Postmark.
	DriverPostmark = "postmark"
)

type (
	// A Notifier delivers password reset links to users.
	// The token and uid are secrets and must only reach the destination.
	Notifier interface {
		DeliverResetLink(ctx context.Context, destination, token, uid string) error
	}

	// Options selects and configures a notifier.
	Options struct {
		Driver   string
		BaseURL  string
		Postmark PostmarkOptions
	}
)

// New returns the notifier selected by opts.
func New(opts Options, log logrus.FieldLogger) (Notifier, error) {
	switch opts.Driver {
	case "", DriverLog:
		return NewLog(opts.BaseURL, log), nil
	case DriverPostmark:
		return NewPostmark(opts.BaseURL, opts.Postmark)
	default:
		return nil, errors.Errorf("unsupported notifier driver: %s", opts.Driver)
	}
}

// ResetURL returns the link a user follows to reset their password.
func ResetURL(base, uid, token string) string {
	return strings.TrimRight(base, "/") + "/reset-password/" + url.PathEscape(uid) + "/" + url.PathEscape(token)
}

//
// Log notifier
//

type logNotifier struct {
	base string
	log  logrus.FieldLogger
}

// NewLog returns a notifier that logs reset links.
// It is meant for development and operator driven setups.
func NewLog(base string, log logrus.FieldLogger) Notifier {
	return &logNotifier{
		base: base,
		log:  log,
	}
}

func (n *logNotifier) DeliverResetLink(_ context.Context, destination, token, uid string) error {
	n.log.WithField("destination", destination).Info("password reset link: " + ResetURL(n.base, uid, token))
	return nil
}
