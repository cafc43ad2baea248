package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/institute-portal/pkg/events"
	"github.com/diagnosis/institute-portal/pkg/logger"
	"github.com/diagnosis/institute-portal/pkg/mailer"
)

// Worker turns portal events into outbound mail.
type Worker struct {
	mailer  mailer.Service
	timeout time.Duration
}

func New(m mailer.Service, timeout time.Duration) *Worker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Worker{mailer: m, timeout: timeout}
}

// Subscribe registers every handler on sub under the given queue group, so
// each event is handled by exactly one notify instance.
func (w *Worker) Subscribe(sub events.Subscriber, queue string) error {
	handlers := map[string]func(*events.Message){
		events.PaymentApplied: w.wrap(w.HandlePaymentApplied),
		events.NotifyMessage:  w.wrap(w.HandleNotifyMessage),
		events.ChargeAdded:    w.wrap(w.HandleChargeAdded),
		events.OTPIssued:      w.wrap(w.HandleOTPIssued),
	}
	for subject, h := range handlers {
		if err := sub.QueueSubscribe(subject, queue, h); err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
	}
	return nil
}

func (w *Worker) wrap(fn func(context.Context, *events.Message) error) func(*events.Message) {
	return func(msg *events.Message) {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		ctx = context.WithValue(ctx, logger.RequestIDKey, msg.ID)

		if err := fn(ctx, msg); err != nil {
			logger.ErrorContext(ctx, "Event handling failed", "subject", msg.Subject, "error", err)
		}
	}
}

func (w *Worker) HandlePaymentApplied(ctx context.Context, msg *events.Message) error {
	var ev events.PaymentAppliedEvent
	if err := msg.Decode(&ev); err != nil {
		return fmt.Errorf("decode payment event: %w", err)
	}
	if ev.StudentEmail == "" {
		logger.WarnContext(ctx, "Payment event without email, skipping receipt", "student_id", ev.StudentID)
		return nil
	}

	err := w.mailer.SendPaymentReceipt(ctx, ev.StudentEmail, ev.StudentName, mailer.Receipt{
		ReceiptID: ev.ReceiptID,
		Amount:    ev.Amount,
		Method:    ev.Method,
		PaidAt:    ev.PaidAt,
		Paid:      ev.Paid,
		Due:       ev.Due,
	})
	if err != nil {
		return fmt.Errorf("send receipt: %w", err)
	}

	logger.InfoContext(ctx, "Payment receipt sent", "student_id", ev.StudentID, "receipt_id", ev.ReceiptID)
	return nil
}

func (w *Worker) HandleNotifyMessage(ctx context.Context, msg *events.Message) error {
	var ev events.NotifyMessageEvent
	if err := msg.Decode(&ev); err != nil {
		return fmt.Errorf("decode message event: %w", err)
	}

	if err := w.mailer.SendMessage(ctx, ev.Email, ev.Name, ev.Message); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	logger.InfoContext(ctx, "Student message sent", "student_id", ev.StudentID)
	return nil
}

// HandleChargeAdded only records the charge; students see it on their ledger.
func (w *Worker) HandleChargeAdded(ctx context.Context, msg *events.Message) error {
	var ev events.ChargeAddedEvent
	if err := msg.Decode(&ev); err != nil {
		return fmt.Errorf("decode charge event: %w", err)
	}
	logger.InfoContext(ctx, "Fee charge recorded", "student_id", ev.StudentID, "amount", ev.Amount, "due", ev.Due)
	return nil
}

func (w *Worker) HandleOTPIssued(ctx context.Context, msg *events.Message) error {
	var ev events.OTPIssuedEvent
	if err := msg.Decode(&ev); err != nil {
		return fmt.Errorf("decode otp event: %w", err)
	}
	logger.InfoContext(ctx, "OTP issued", "user_id", ev.UserID, "role", ev.Role, "purpose", ev.Purpose)
	return nil
}
