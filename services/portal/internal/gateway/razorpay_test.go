package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diagnosis/institute-portal/pkg/config"
	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignature_Deterministic(t *testing.T) {
	sig := Signature("secret", "order_1", "pay_1")
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, Signature("secret", "order_1", "pay_1"))
	assert.NotEqual(t, sig, Signature("secret", "order_1", "pay_2"))
	assert.NotEqual(t, sig, Signature("other", "order_1", "pay_1"))
}

const testStudent = "64b7f0c2a1b2c3d4e5f60718"

// ordersServer answers GET /orders/{id} from the given bodies.
func ordersServer(t *testing.T, orders map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)

		body, found := orders[strings.TrimPrefix(r.URL.Path, "/orders/")]
		if !found {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func confirmation(orderID, paymentID, studentID string, amount float64) Confirmation {
	return Confirmation{
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: Signature("secret", orderID, paymentID),
		StudentID: studentID,
		Amount:    amount,
	}
}

func TestRazorpay_VerifyPayment(t *testing.T) {
	srv := ordersServer(t, map[string]string{
		"order_1": `{"id":"order_1","amount":100000,"amount_paid":100000,"status":"paid","notes":{"student_id":"` + testStudent + `"}}`,
	})
	rp := NewRazorpay("key", "secret", srv.URL)

	good := confirmation("order_1", "pay_1", testStudent, 1000)
	assert.NoError(t, rp.VerifyPayment(context.Background(), good))

	bad := good
	bad.Signature = Signature("secret", "order_1", "pay_2")
	assert.ErrorIs(t, rp.VerifyPayment(context.Background(), bad), domain.ErrSignatureMismatch)

	bad.Signature = ""
	assert.ErrorIs(t, rp.VerifyPayment(context.Background(), bad), domain.ErrSignatureMismatch)
}

func TestRazorpay_VerifyPaymentBindsOrder(t *testing.T) {
	srv := ordersServer(t, map[string]string{
		"order_paid":    `{"id":"order_paid","amount":100000,"amount_paid":100000,"status":"paid","notes":{"student_id":"` + testStudent + `"}}`,
		"order_partial": `{"id":"order_partial","amount":100000,"amount_paid":0,"status":"attempted","notes":{"student_id":"` + testStudent + `"}}`,
		"order_bare":    `{"id":"order_bare","amount":100000,"amount_paid":100000,"status":"paid","notes":[]}`,
	})
	rp := NewRazorpay("key", "secret", srv.URL)

	tests := []struct {
		name string
		c    Confirmation
	}{
		{"claimed less than paid", confirmation("order_paid", "pay_1", testStudent, 800)},
		{"claimed more than paid", confirmation("order_paid", "pay_1", testStudent, 5000)},
		{"order of another student", confirmation("order_paid", "pay_1", "64b7f0c2a1b2c3d4e5f60719", 1000)},
		{"order not paid yet", confirmation("order_partial", "pay_2", testStudent, 1000)},
		{"order without student note", confirmation("order_bare", "pay_3", testStudent, 1000)},
		{"unknown order", confirmation("order_missing", "pay_4", testStudent, 1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, rp.VerifyPayment(context.Background(), tt.c), domain.ErrSignatureMismatch)
		})
	}
}

func TestRazorpay_VerifyPaymentUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewRazorpay("key", "secret", srv.URL).VerifyPayment(context.Background(), confirmation("order_1", "pay_1", testStudent, 1000))
	require.Error(t, err)
	_, classified := domain.AsError(err)
	assert.False(t, classified)
}

func TestRazorpay_CreateOrder(t *testing.T) {
	var got razorpayOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"order_ABC","amount":150050,"status":"created"}`))
	}))
	defer srv.Close()

	rp := NewRazorpay("key", "secret", srv.URL+"/")
	rp.now = func() time.Time { return time.UnixMilli(1700000123456) }

	order, err := rp.CreateOrder(context.Background(), OrderRequest{
		StudentID: "64b7f0c2a1b2c3d4e5f60718",
		Amount:    1500.5,
		Currency:  "INR",
	})
	require.NoError(t, err)

	assert.Equal(t, "order_ABC", order.ID)
	assert.Equal(t, "key", order.Key)
	assert.Equal(t, int64(150050), got.Amount)
	assert.Equal(t, "INR", got.Currency)
	assert.Equal(t, "rcpt_f60718_123456", got.Receipt)
	assert.Equal(t, map[string]string{"student_id": "64b7f0c2a1b2c3d4e5f60718"}, got.Notes)
}

func TestRazorpay_CreateOrderUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR"}}`))
	}))
	defer srv.Close()

	_, err := NewRazorpay("key", "secret", srv.URL).CreateOrder(context.Background(), OrderRequest{Amount: 10, Currency: "INR"})
	assert.Error(t, err)
}

func TestRazorpay_NotConfigured(t *testing.T) {
	_, err := NewRazorpay("", "", "http://unused").CreateOrder(context.Background(), OrderRequest{Amount: 1})
	assert.Error(t, err)
}

func TestNew_SelectsProvider(t *testing.T) {
	g, err := New(config.PaymentsConfig{Provider: "razorpay"})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodRazorpay, g.Method())

	g, err = New(config.PaymentsConfig{Provider: "Stripe"})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodStripe, g.Method())

	_, err = New(config.PaymentsConfig{Provider: "paypal"})
	assert.Error(t, err)
}

func TestStripe_NotConfigured(t *testing.T) {
	s := NewStripe("")
	_, err := s.CreateOrder(context.Background(), OrderRequest{Amount: 1, Currency: "INR"})
	assert.Error(t, err)
	assert.Error(t, s.VerifyPayment(context.Background(), Confirmation{OrderID: "pi_1"}))
}
