package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/institute-portal/pkg/config"
)

// Service delivers outbound email. The core only calls it; delivery itself
// belongs to the configured provider.
type Service interface {
	SendOTP(ctx context.Context, toEmail, subject string, code int) error
	SendMessage(ctx context.Context, toEmail, toName, message string) error
	SendPaymentReceipt(ctx context.Context, toEmail, toName string, receipt Receipt) error
}

type Receipt struct {
	ReceiptID string
	Amount    float64
	Method    string
	PaidAt    time.Time
	Paid      float64
	Due       float64
}

// New picks the provider named by cfg.Email.Driver.
func New(cfg *config.Config) (Service, error) {
	switch strings.ToLower(cfg.Email.Driver) {
	case "", "dev":
		return NewDevMailer(cfg.Portal.InstituteName), nil
	case "smtp":
		return NewSMTPMailer(cfg.Email, cfg.Portal.InstituteName)
	case "mailersend":
		return NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail, cfg.Portal.InstituteName), nil
	default:
		return nil, fmt.Errorf("unknown email driver %q", cfg.Email.Driver)
	}
}

// content is shared by every provider so all of them send the same copy.
type content struct {
	subject string
	text    string
	html    string
}

func otpContent(subject string, code int) content {
	return content{
		subject: subject,
		text:    fmt.Sprintf("Your OTP is %06d. It is valid for 5 minutes.", code),
		html:    fmt.Sprintf("<strong>Your OTP is %06d. It is valid for 5 minutes.</strong>", code),
	}
}

func messageContent(institute, toName, message string) content {
	return content{
		subject: fmt.Sprintf("%s important alert", institute),
		text:    fmt.Sprintf("Dear %s, %s\n\nBest regards from %s!", toName, message, institute),
		html: fmt.Sprintf("<p>Dear %s,</p><p>%s</p><p><strong>Best regards from %s!</strong></p>",
			toName, message, institute),
	}
}

func receiptContent(institute, toName string, r Receipt) content {
	return content{
		subject: fmt.Sprintf("%s fee payment receipt %s", institute, r.ReceiptID),
		text: fmt.Sprintf("Dear %s, we received %.2f via %s on %s. Paid so far: %.2f. Due: %.2f.",
			toName, r.Amount, r.Method, r.PaidAt.Format("02 Jan 2006 15:04"), r.Paid, r.Due),
		html: fmt.Sprintf(`
		<h2>Payment received</h2>
		<p>Dear %s,</p>
		<p>Amount: <strong>%.2f</strong> (%s) on %s</p>
		<p>Total paid: %.2f &middot; Due: %.2f</p>
		<p>Receipt: %s</p>
	`, toName, r.Amount, r.Method, r.PaidAt.Format("02 Jan 2006 15:04"), r.Paid, r.Due, r.ReceiptID),
	}
}
