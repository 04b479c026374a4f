package email

import (
	"context"
	"time"

	"gopkg.in/mail.v2"
)

const defaultSubject = "Notification"

// Client sends notifications over SMTP.
type Client struct {
	dialer *mail.Dialer
	from   string
}

// NewClient creates an SMTP client. The timeout bounds the whole
// dial-and-send exchange so a hung server cannot stall a dispatcher.
func NewClient(smtpHost string, smtpPort int, username, password, from string, timeout time.Duration) *Client {
	dialer := mail.NewDialer(smtpHost, smtpPort, username, password)
	if timeout > 0 {
		dialer.Timeout = timeout
	}

	return &Client{
		dialer: dialer,
		from:   from,
	}
}

// Send delivers a plain-text message to the recipient address.
func (c *Client) Send(ctx context.Context, to, subject, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if subject == "" {
		subject = defaultSubject
	}

	message := mail.NewMessage()
	message.SetHeader("From", c.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/plain", msg)

	return c.dialer.DialAndSend(message)
}
