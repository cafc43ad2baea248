package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/diagnosis/institute-portal/pkg/config"
	"github.com/wneessen/go-mail"
)

type SMTPMailer struct {
	cfg       config.EmailConfig
	institute string
}

func NewSMTPMailer(cfg config.EmailConfig, institute string) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	return &SMTPMailer{cfg: cfg, institute: institute}, nil
}

func (s *SMTPMailer) SendOTP(ctx context.Context, toEmail, subject string, code int) error {
	return s.send(ctx, toEmail, otpContent(subject, code))
}

func (s *SMTPMailer) SendMessage(ctx context.Context, toEmail, toName, message string) error {
	return s.send(ctx, toEmail, messageContent(s.institute, toName, message))
}

func (s *SMTPMailer) SendPaymentReceipt(ctx context.Context, toEmail, toName string, receipt Receipt) error {
	return s.send(ctx, toEmail, receiptContent(s.institute, toName, receipt))
}

func (s *SMTPMailer) send(ctx context.Context, toEmail string, c content) error {
	toEmail = strings.TrimSpace(toEmail)
	if toEmail == "" {
		return fmt.Errorf("empty recipient email")
	}

	msg := mail.NewMsg()
	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.FromEmail); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else if err := msg.From(s.cfg.FromEmail); err != nil {
		return fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(c.subject)
	msg.SetBodyString(mail.TypeTextPlain, c.text)
	msg.AddAlternativeString(mail.TypeTextHTML, c.html)

	opts := []mail.Option{mail.WithPort(s.cfg.SMTPPort)}
	if s.cfg.SMTPUseTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// implicit TLS on 465, STARTTLS elsewhere
		if s.cfg.SMTPPort == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if s.cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.SMTPUser),
			mail.WithPassword(s.cfg.SMTPPass),
		)
	}

	client, err := mail.NewClient(s.cfg.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}
