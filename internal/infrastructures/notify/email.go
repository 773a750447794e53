package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

const emailSubject = "Fare alert"

type EmailOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Timeout  time.Duration
}

type Email struct {
	opts EmailOptions
}

func NewEmail(opts EmailOptions) *Email {
	if opts.Port <= 0 {
		opts.Port = 587
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if strings.TrimSpace(opts.From) == "" {
		opts.From = opts.Username
	}

	return &Email{opts: opts}
}

func (e *Email) Name() string {
	return "email"
}

func (e *Email) Notify(ctx context.Context, text string) error {
	msg, err := e.buildMessage(text)
	if err != nil {
		return fmt.Errorf("build email: %w", err)
	}

	client, err := e.createClient()
	if err != nil {
		return fmt.Errorf("create mail client: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	if err := client.DialAndSendWithContext(sendCtx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (e *Email) createClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(e.opts.Port),
		mail.WithTimeout(e.opts.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if e.opts.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(e.opts.Username),
			mail.WithPassword(e.opts.Password),
		)
	}

	return mail.NewClient(e.opts.Host, opts...)
}

func (e *Email) buildMessage(text string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(e.opts.From); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(e.opts.To...); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}

	msg.Subject(subjectFor(text))
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.SetGenHeader(mail.HeaderXMailer, "fare-watcher")
	msg.SetDate()
	msg.SetMessageID()

	return msg, nil
}

// subjectFor uses the first alert line (the route) when present.
func subjectFor(text string) string {
	first, _, _ := strings.Cut(text, "\n")
	first = strings.TrimSpace(first)
	if first == "" {
		return emailSubject
	}
	return emailSubject + ": " + first
}
