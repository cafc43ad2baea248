package gateway

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/diagnosis/institute-portal/pkg/config"
	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
)

type OrderRequest struct {
	StudentID string
	Amount    float64
	Currency  string
}

type Order struct {
	ID           string  `json:"orderId"`
	Provider     string  `json:"provider"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Key          string  `json:"key,omitempty"`
	ClientSecret string  `json:"clientSecret,omitempty"`
}

// Confirmation is what the client reports back after paying.
type Confirmation struct {
	OrderID   string
	PaymentID string
	Signature string
	StudentID string
	Amount    float64
}

// Gateway creates payment orders and attests completed payments.
// VerifyPayment returns domain.ErrSignatureMismatch when the payment cannot be attested.
type Gateway interface {
	Method() domain.PaymentMethod
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	VerifyPayment(ctx context.Context, c Confirmation) error
}

// New returns the gateway named by cfg.Provider.
func New(cfg config.PaymentsConfig) (Gateway, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "razorpay":
		return NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL), nil
	case "stripe":
		return NewStripe(cfg.StripeSecretKey), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

// minorUnits converts a major-unit amount (rupees) to the smallest unit (paise).
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
