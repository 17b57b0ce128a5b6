package notifier

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"
	"github.com/pkg/errors"
)

// PostmarkOptions configures the Postmark notifier.
type PostmarkOptions struct {
	ServerToken  string
	AccountToken string
	From         string
	ReplyTo      string
}

// A Sender sends transactional emails.
type Sender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

type postmarkNotifier struct {
	client Sender
	base   string
	opts   PostmarkOptions
}

// NewPostmark returns a notifier sending reset links through Postmark.
func NewPostmark(base string, opts PostmarkOptions) (Notifier, error) {
	if opts.ServerToken == "" {
		return nil, errors.New("postmark server token is required")
	}
	if opts.From == "" {
		return nil, errors.New("postmark sender address is required")
	}

	return NewPostmarkWithSender(postmark.NewClient(opts.ServerToken, opts.AccountToken), base, opts), nil
}

// NewPostmarkWithSender is like NewPostmark with an explicit sender.
func NewPostmarkWithSender(client Sender, base string, opts PostmarkOptions) Notifier {
	return &postmarkNotifier{
		client: client,
		base:   base,
		opts:   opts,
	}
}

func (n *postmarkNotifier) DeliverResetLink(ctx context.Context, destination, token, uid string) error {
	link := ResetURL(n.base, uid, token)

	resp, err := n.client.SendEmail(ctx, postmark.Email{
		From:     n.opts.From,
		ReplyTo:  n.opts.ReplyTo,
		To:       destination,
		Subject:  "Reset your password",
		Tag:      "password-reset",
		TextBody: fmt.Sprintf(textBody, link),
		HTMLBody: fmt.Sprintf(htmlBody, link, link),
	})
	if err != nil {
		return errors.Wrap(err, "could not send reset email")
	}
	if resp.ErrorCode > 0 {
		return errors.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
	}
	return nil
}

const textBody = `Someone asked to reset your password.

Follow this link to choose a new one:
%s

If you did not ask for it, you can ignore this email.
`

const htmlBody = `<p>Someone asked to reset your password.</p>
<p><a href="%s">Choose a new password</a></p>
<p>Or paste this link in your browser: %s</p>
<p>If you did not ask for it, you can ignore this email.</p>
`
