package domain

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "Cash"
	MethodCard         PaymentMethod = "Card"
	MethodUPI          PaymentMethod = "UPI"
	MethodBankTransfer PaymentMethod = "Bank Transfer"
	MethodRazorpay     PaymentMethod = "Razorpay"
	MethodStripe       PaymentMethod = "Stripe"
)

var paymentMethods = []PaymentMethod{MethodCash, MethodCard, MethodUPI, MethodBankTransfer, MethodRazorpay, MethodStripe}

// ParseMethod matches s case-insensitively against the known methods. An empty
// string yields fallback.
func ParseMethod(s string, fallback PaymentMethod) (PaymentMethod, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	for _, m := range paymentMethods {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", Validation(fmt.Sprintf("invalid payment method %q", s))
}

// PaymentHistoryEntry is never modified once appended.
type PaymentHistoryEntry struct {
	Amount     float64       `bson:"amount" json:"amount"`
	Date       time.Time     `bson:"date" json:"date"`
	Method     PaymentMethod `bson:"method" json:"method"`
	Reference  string        `bson:"reference,omitempty" json:"reference,omitempty"`
	VerifiedBy string        `bson:"verifiedBy,omitempty" json:"verified_by,omitempty"`
}

// FeesLedger keeps Due == Total - Paid across every mutation.
type FeesLedger struct {
	Total           float64               `bson:"total" json:"total"`
	Paid            float64               `bson:"paid" json:"paid"`
	Due             float64               `bson:"due" json:"due"`
	LastPaymentDate *time.Time            `bson:"lastPaymentDate,omitempty" json:"lastPaymentDate,omitempty"`
	PaymentHistory  []PaymentHistoryEntry `bson:"paymentHistory" json:"paymentHistory"`
}

func (f *FeesLedger) HasReference(ref string) bool {
	if ref == "" {
		return false
	}
	for _, e := range f.PaymentHistory {
		if e.Reference == ref {
			return true
		}
	}
	return false
}

// CheckPayment reports why p could not be applied to f, or nil if it can.
func (f *FeesLedger) CheckPayment(p Payment) error {
	if p.Amount <= 0 {
		return ErrInvalidAmount
	}
	if p.Amount > f.Due {
		return ErrInsufficientDue
	}
	if f.HasReference(p.Reference) {
		return ErrPaymentAlreadyApplied
	}
	return nil
}

// ApplyPayment mutates f in place after CheckPayment succeeds.
func (f *FeesLedger) ApplyPayment(p Payment, at time.Time) error {
	if err := f.CheckPayment(p); err != nil {
		return err
	}
	f.Paid += p.Amount
	f.Due -= p.Amount
	f.LastPaymentDate = &at
	f.PaymentHistory = append(f.PaymentHistory, p.Entry(at))
	return nil
}

func (f *FeesLedger) IncreaseTotal(amount float64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	f.Total += amount
	f.Due = f.Total - f.Paid
	return nil
}

type Payment struct {
	Amount     float64
	Method     PaymentMethod
	Reference  string
	VerifiedBy string
}

func (p Payment) Entry(at time.Time) PaymentHistoryEntry {
	return PaymentHistoryEntry{
		Amount:     p.Amount,
		Date:       at,
		Method:     p.Method,
		Reference:  p.Reference,
		VerifiedBy: p.VerifiedBy,
	}
}

type Student struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string        `bson:"name" json:"name"`
	Email      string        `bson:"email" json:"email"`
	DOB        string        `bson:"dob,omitempty" json:"dob,omitempty"`
	Gender     string        `bson:"gender,omitempty" json:"gender,omitempty"`
	Course     string        `bson:"course,omitempty" json:"course,omitempty"`
	Enrolled   bool          `bson:"enrolled" json:"enrolled"`
	Address    string        `bson:"address,omitempty" json:"address,omitempty"`
	Attendance Attendance    `bson:"attendance" json:"attendance"`
	Fees       FeesLedger    `bson:"fees" json:"fees"`
	CreatedAt  time.Time     `bson:"date,omitempty" json:"created_at"`
}

type InitiatePaymentRequest struct {
	Amount float64 `json:"amount"`
}

type VerifyPaymentRequest struct {
	OrderID   string  `json:"orderId"`
	PaymentID string  `json:"paymentId"`
	Signature string  `json:"signature"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
}

type ManualPaymentRequest struct {
	StudentID string  `json:"studentId"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
}

type ChargeRequest struct {
	Amount float64 `json:"amount"`
}

func (r *InitiatePaymentRequest) Validate() error {
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks presence only; the amount is checked by the ledger after
// the gateway has confirmed the payment.
func (r *VerifyPaymentRequest) Validate() error {
	if strings.TrimSpace(r.OrderID) == "" {
		return Validation("orderId is required")
	}
	if strings.TrimSpace(r.PaymentID) == "" {
		return Validation("paymentId is required")
	}
	return nil
}

func (r *ManualPaymentRequest) Validate() error {
	if strings.TrimSpace(r.StudentID) == "" {
		return Validation("studentId is required")
	}
	if _, err := bson.ObjectIDFromHex(r.StudentID); err != nil {
		return Validation("invalid studentId")
	}
	return nil
}

// ParseObjectID converts a hex id into a store id.
func ParseObjectID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return bson.ObjectID{}, Validation("invalid id")
	}
	return oid, nil
}
