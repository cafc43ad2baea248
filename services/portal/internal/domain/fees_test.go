package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeesLedger_ApplyPayment_ClearsDue(t *testing.T) {
	ledger := FeesLedger{Total: 1000, Paid: 200, Due: 800}
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	err := ledger.ApplyPayment(Payment{Amount: 800, Method: MethodUPI}, at)
	require.NoError(t, err)

	assert.Equal(t, 1000.0, ledger.Total)
	assert.Equal(t, 1000.0, ledger.Paid)
	assert.Equal(t, 0.0, ledger.Due)
	require.Len(t, ledger.PaymentHistory, 1)
	assert.Equal(t, 800.0, ledger.PaymentHistory[0].Amount)
	assert.Equal(t, MethodUPI, ledger.PaymentHistory[0].Method)
	assert.Equal(t, at, *ledger.LastPaymentDate)
}

func TestFeesLedger_ApplyPayment_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		payment Payment
		want    error
	}{
		{"zero", Payment{Amount: 0}, ErrInvalidAmount},
		{"negative", Payment{Amount: -5}, ErrInvalidAmount},
		{"overpay", Payment{Amount: 801}, ErrInsufficientDue},
		{"replayed reference", Payment{Amount: 10, Reference: "pay_1"}, ErrPaymentAlreadyApplied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := FeesLedger{Total: 1000, Paid: 200, Due: 800, PaymentHistory: []PaymentHistoryEntry{
				{Amount: 200, Method: MethodRazorpay, Reference: "pay_1"},
			}}
			before := ledger

			err := ledger.ApplyPayment(tt.payment, time.Now())
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before.Paid, ledger.Paid)
			assert.Equal(t, before.Due, ledger.Due)
			assert.Len(t, ledger.PaymentHistory, 1)
		})
	}
}

func TestFeesLedger_IncreaseTotal(t *testing.T) {
	ledger := FeesLedger{Total: 1000, Paid: 200, Due: 800}

	require.NoError(t, ledger.IncreaseTotal(0))
	assert.Equal(t, 1000.0, ledger.Total)
	assert.Equal(t, 800.0, ledger.Due)

	require.NoError(t, ledger.IncreaseTotal(500))
	assert.Equal(t, 1500.0, ledger.Total)
	assert.Equal(t, 1300.0, ledger.Due)

	assert.ErrorIs(t, ledger.IncreaseTotal(-1), ErrInvalidAmount)
	assert.Equal(t, 1500.0, ledger.Total)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("bank transfer", MethodCash)
	require.NoError(t, err)
	assert.Equal(t, MethodBankTransfer, m)

	m, err = ParseMethod("", MethodRazorpay)
	require.NoError(t, err)
	assert.Equal(t, MethodRazorpay, m)

	_, err = ParseMethod("cheque", MethodCash)
	de, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, de.Kind)
}
