package notifier

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Attachment file attached to an outgoing message
type Attachment struct {
	Filename string
	Data     []byte
}

// Message outgoing mail. With a TextBody it is sent as multipart/alternative.
type Message struct {
	From        string
	To          []string
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// Mailer delivers a message
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig mail relay and sender credentials
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPMailer sends through an SMTP relay over implicit TLS with PLAIN auth.
// Delivery is attempted once.
type SMTPMailer struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

// NewSMTPMailer creates an SMTP mailer
func NewSMTPMailer(cfg SMTPConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		logger: logger,
	}
}

// Send dials the relay, authenticates and delivers msg to all recipients.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	email, err := buildMsg(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTimeout(m.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, email); err != nil {
		m.logger.Error("SMTP delivery failed",
			zap.String("host", m.cfg.Host),
			zap.Int("port", m.cfg.Port),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send mail: %w", err)
	}

	m.logger.Info("Alert mail delivered",
		zap.String("subject", msg.Subject),
		zap.Strings("to", msg.To),
	)
	return nil
}

func buildMsg(msg Message) (*mail.Msg, error) {
	email := mail.NewMsg()
	if err := email.From(msg.From); err != nil {
		return nil, fmt.Errorf("failed to set sender %q: %w", msg.From, err)
	}
	if err := email.To(msg.To...); err != nil {
		return nil, fmt.Errorf("failed to set recipients: %w", err)
	}
	email.Subject(msg.Subject)
	email.SetDate()
	email.SetMessageID()

	if msg.TextBody != "" {
		email.SetBodyString(mail.TypeTextPlain, msg.TextBody)
		email.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	} else {
		email.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	}

	for _, a := range msg.Attachments {
		if err := email.AttachReader(a.Filename, bytes.NewReader(a.Data)); err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", a.Filename, err)
		}
	}
	return email, nil
}
