package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diagnosis/institute-portal/pkg/logger"
	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Stripe models an order as a PaymentIntent. A payment is attested when the
// intent has succeeded for the same student and amount.
type Stripe struct {
	sc *client.API
}

func NewStripe(secretKey string) *Stripe {
	if secretKey == "" {
		return &Stripe{}
	}
	return &Stripe{sc: client.New(secretKey, nil)}
}

func (s *Stripe) Method() domain.PaymentMethod {
	return domain.MethodStripe
}

func (s *Stripe) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if s.sc == nil {
		return nil, errors.New("stripe not configured")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(req.Amount)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
	}
	params.Context = ctx
	params.AddMetadata("student_id", req.StudentID)

	pi, err := s.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &Order{
		ID:           pi.ID,
		Provider:     "stripe",
		Amount:       req.Amount,
		Currency:     req.Currency,
		ClientSecret: pi.ClientSecret,
	}, nil
}

func (s *Stripe) VerifyPayment(ctx context.Context, c Confirmation) error {
	if s.sc == nil {
		return errors.New("stripe not configured")
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.sc.PaymentIntents.Get(c.OrderID, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == 404 {
			return domain.ErrSignatureMismatch
		}
		return fmt.Errorf("failed to retrieve payment intent: %w", err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded ||
		pi.Metadata["student_id"] != c.StudentID ||
		pi.AmountReceived != minorUnits(c.Amount) {
		logger.WarnContext(ctx, "Stripe payment not attested",
			"intent_id", pi.ID, "status", pi.Status, "amount_received", pi.AmountReceived)
		return domain.ErrSignatureMismatch
	}
	return nil
}
