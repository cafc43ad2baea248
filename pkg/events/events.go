package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/institute-portal/pkg/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

// Decode unmarshals the JSON payload of m into v.
func (m *Message) Decode(v interface{}) error {
	return json.Unmarshal(m.Data, v)
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url, nats.Name("institute-portal"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "bytes", len(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(wrap(msg))
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(wrap(msg))
	})
	return err
}

func (n *NATSEventBus) Close() error {
	return n.conn.Drain()
}

func wrap(msg *nats.Msg) *Message {
	return &Message{
		Subject:   msg.Subject,
		Data:      msg.Data,
		Timestamp: time.Now(),
		ID:        uuid.NewString(),
	}
}

// NopBus drops every event. Used when NATS_URL is not configured.
type NopBus struct{}

func (NopBus) Publish(ctx context.Context, subject string, _ interface{}) error {
	logger.DebugContext(ctx, "Event bus disabled, dropping event", "subject", subject)
	return nil
}

func (NopBus) Subscribe(string, func(msg *Message)) error { return nil }

func (NopBus) QueueSubscribe(string, string, func(msg *Message)) error { return nil }

func (NopBus) Close() error { return nil }

// Event subjects
const (
	// Fee ledger events
	PaymentApplied = "fees.payment.applied"
	ChargeAdded    = "fees.charge.added"

	// OTP events; codes are never part of the payload
	OTPIssued = "otp.issued"

	// Notification events
	NotifyMessage = "notify.message"
)

// Event payloads
type PaymentAppliedEvent struct {
	StudentID    string    `json:"student_id"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	ReceiptID    string    `json:"receipt_id"`
	Amount       float64   `json:"amount"`
	Method       string    `json:"method"`
	Reference    string    `json:"reference,omitempty"`
	VerifiedBy   string    `json:"verified_by"`
	Paid         float64   `json:"paid"`
	Due          float64   `json:"due"`
	PaidAt       time.Time `json:"paid_at"`
}

type ChargeAddedEvent struct {
	StudentID string    `json:"student_id"`
	Amount    float64   `json:"amount"`
	Total     float64   `json:"total"`
	Due       float64   `json:"due"`
	ChargedAt time.Time `json:"charged_at"`
}

type OTPIssuedEvent struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
}

type NotifyMessageEvent struct {
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Message   string `json:"message"`
}
