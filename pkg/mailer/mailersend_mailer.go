package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client    *mailersend.Mailersend
	from      mailersend.From
	institute string
	enabled   bool
}

func NewMailerSend(apiKey, fromName, fromEmail, institute string) *MailerSendClient {
	m := &MailerSendClient{
		enabled:   apiKey != "" && fromEmail != "",
		institute: institute,
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendOTP(ctx context.Context, toEmail, subject string, code int) error {
	return m.send(ctx, toEmail, "", otpContent(subject, code))
}

func (m *MailerSendClient) SendMessage(ctx context.Context, toEmail, toName, message string) error {
	return m.send(ctx, toEmail, toName, messageContent(m.institute, toName, message))
}

func (m *MailerSendClient) SendPaymentReceipt(ctx context.Context, toEmail, toName string, receipt Receipt) error {
	return m.send(ctx, toEmail, toName, receiptContent(m.institute, toName, receipt))
}

func (m *MailerSendClient) send(ctx context.Context, toEmail, toName string, c content) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(c.subject)

	if strings.TrimSpace(c.text) != "" {
		msg.SetText(c.text)
	}
	if strings.TrimSpace(c.html) != "" {
		msg.SetHTML(c.html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
