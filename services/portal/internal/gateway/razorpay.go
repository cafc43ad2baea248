package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/diagnosis/institute-portal/pkg/logger"
	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
)

type Razorpay struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
	now       func() time.Time
}

func NewRazorpay(keyID, keySecret, baseURL string) *Razorpay {
	return &Razorpay{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 10 * time.Second},
		now:       time.Now,
	}
}

func (r *Razorpay) Method() domain.PaymentMethod {
	return domain.MethodRazorpay
}

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrder struct {
	ID         string            `json:"id"`
	Amount     int64             `json:"amount"`
	AmountPaid int64             `json:"amount_paid"`
	Status     string            `json:"status"`
	Notes      razorpayNotes     `json:"notes"`
}

// razorpayNotes decodes the notes object, which the API sends as an empty
// array when an order has none.
type razorpayNotes map[string]string

func (n *razorpayNotes) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte("[")) {
		*n = nil
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*n = m
	return nil
}

// studentNote is the order note that ties an order to the paying student.
const studentNote = "student_id"

func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if r.keyID == "" || r.keySecret == "" {
		return nil, errors.New("razorpay not configured")
	}

	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   minorUnits(req.Amount),
		Currency: req.Currency,
		Receipt:  r.receipt(req.StudentID),
		Notes:    map[string]string{studentNote: req.StudentID},
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(r.keyID, r.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("razorpay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.ErrorContext(ctx, "Razorpay order creation failed", "status", resp.StatusCode, "body", string(snippet))
		return nil, fmt.Errorf("razorpay returned status %d", resp.StatusCode)
	}

	var order razorpayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode razorpay order: %w", err)
	}

	return &Order{
		ID:       order.ID,
		Provider: "razorpay",
		Amount:   req.Amount,
		Currency: req.Currency,
		Key:      r.keyID,
	}, nil
}

// receipt is rcpt_<last 6 of student id>_<last 6 of unix millis>.
func (r *Razorpay) receipt(studentID string) string {
	ms := strconv.FormatInt(r.now().UnixMilli(), 10)
	return "rcpt_" + lastN(studentID, 6) + "_" + lastN(ms, 6)
}

// VerifyPayment checks the checkout signature, then fetches the order to make
// sure it was raised for this student and paid in full for the claimed amount.
func (r *Razorpay) VerifyPayment(ctx context.Context, c Confirmation) error {
	if r.keyID == "" || r.keySecret == "" {
		return errors.New("razorpay not configured")
	}
	expected := Signature(r.keySecret, c.OrderID, c.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(c.Signature)) {
		return domain.ErrSignatureMismatch
	}

	order, err := r.fetchOrder(ctx, c.OrderID)
	if err != nil {
		return err
	}
	if order.Notes[studentNote] != c.StudentID {
		logger.WarnContext(ctx, "Razorpay order belongs to another student", "order_id", c.OrderID, "student_id", c.StudentID)
		return domain.ErrSignatureMismatch
	}
	if order.AmountPaid != minorUnits(c.Amount) {
		logger.WarnContext(ctx, "Razorpay paid amount differs from claim", "order_id", c.OrderID, "amount_paid", order.AmountPaid, "claimed", minorUnits(c.Amount))
		return domain.ErrSignatureMismatch
	}
	return nil
}

func (r *Razorpay) fetchOrder(ctx context.Context, orderID string) (*razorpayOrder, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(r.keyID, r.keySecret)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("razorpay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		return nil, domain.ErrSignatureMismatch
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.ErrorContext(ctx, "Razorpay order lookup failed", "status", resp.StatusCode, "body", string(snippet))
		return nil, fmt.Errorf("razorpay returned status %d", resp.StatusCode)
	}

	var order razorpayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode razorpay order: %w", err)
	}
	return &order, nil
}

// Signature is hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func Signature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
