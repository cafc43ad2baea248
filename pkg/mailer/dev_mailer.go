package mailer

import (
	"context"

	"github.com/diagnosis/institute-portal/pkg/logger"
)

// DevMailer writes mail to the log instead of sending it.
type DevMailer struct {
	institute string
}

func NewDevMailer(institute string) *DevMailer {
	return &DevMailer{institute: institute}
}

func (d *DevMailer) SendOTP(ctx context.Context, toEmail, subject string, code int) error {
	c := otpContent(subject, code)
	logger.InfoContext(ctx, "[DEV MAIL] OTP email",
		"to", toEmail,
		"subject", c.subject,
		"code", code,
	)
	return nil
}

func (d *DevMailer) SendMessage(ctx context.Context, toEmail, toName, message string) error {
	c := messageContent(d.institute, toName, message)
	logger.InfoContext(ctx, "[DEV MAIL] Message email",
		"to", toEmail,
		"subject", c.subject,
		"text", c.text,
	)
	return nil
}

func (d *DevMailer) SendPaymentReceipt(ctx context.Context, toEmail, toName string, receipt Receipt) error {
	c := receiptContent(d.institute, toName, receipt)
	logger.InfoContext(ctx, "[DEV MAIL] Payment receipt",
		"to", toEmail,
		"subject", c.subject,
		"amount", receipt.Amount,
		"due", receipt.Due,
	)
	return nil
}
