// Package email delivers transactional mail for authentication flows:
// password reset links, verification links, security notices. Production
// sends through Postmark; development writes messages to disk.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
)

var (
	ErrSendFailed       = errors.New("email.send_failed")
	ErrInvalidConfig    = errors.New("email.invalid_config")
	ErrInvalidRecipient = errors.New("email.invalid_recipient")
)

// Sender delivers a single transactional message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Tag     string `json:"tag,omitempty"`
}

// Validate checks the message has a deliverable recipient and content.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return errors.Join(ErrInvalidRecipient, err)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrSendFailed)
	}
	if m.HTML == "" {
		return fmt.Errorf("%w: body is required", ErrSendFailed)
	}
	return nil
}

// Config holds sender identity and Postmark credentials. Tokens are optional
// so development environments can run with the dev sender.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"EMAIL_SENDER,required"`
	ReplyToEmail         string `env:"EMAIL_REPLY_TO"`
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:"./var/emails"`
}
