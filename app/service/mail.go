package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

// MailSender delivers an HTML message to a single recipient.
type MailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// LogMailSender writes messages to the log instead of sending them. The body
// carries account links and is only logged at debug level.
type LogMailSender struct {
	From string
}

func (s LogMailSender) Send(_ context.Context, to, subject, htmlBody string) error {
	entry := logrus.WithFields(logrus.Fields{
		"from":    s.From,
		"to":      to,
		"subject": subject,
	})
	entry.Info("Mail delivery disabled, message logged")
	entry.WithField("body", htmlBody).Debug("Mail body")
	return nil
}

// SMTPMailSender sends mail through an SMTP relay. Port 465 uses implicit TLS.
// Other ports upgrade with STARTTLS, which is mandatory once credentials are set.
type SMTPMailSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

func (s *SMTPMailSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg, err := newMessage(s.From, to, subject, htmlBody)
	if err != nil {
		return err
	}

	client, err := s.newClient()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPMailSender) newClient() (*mail.Client, error) {
	return mail.NewClient(s.Host, s.clientOptions()...)
}

func (s *SMTPMailSender) clientOptions() []mail.Option {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := []mail.Option{mail.WithTimeout(timeout)}
	if s.Port > 0 {
		opts = append(opts, mail.WithPort(s.Port))
	}

	switch {
	case s.Port == 465:
		opts = append(opts, mail.WithSSL())
	case s.Username != "":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	if s.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.Username),
			mail.WithPassword(s.Password),
		)
	}
	return opts
}

func newMessage(from, to, subject, htmlBody string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(headerValue(subject))
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	return msg, nil
}

func headerValue(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}
