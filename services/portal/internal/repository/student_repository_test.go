package repository

import (
	"testing"
	"time"

	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func TestApplyPaymentFilter(t *testing.T) {
	id := bson.NewObjectID()

	tests := []struct {
		name    string
		payment domain.Payment
		want    bson.M
	}{
		{
			name:    "manual payment guards the due only",
			payment: domain.Payment{Amount: 250, Method: domain.MethodCash},
			want: bson.M{
				"_id":      id,
				"fees.due": bson.M{"$gte": 250.0},
			},
		},
		{
			name:    "gateway payment also guards the reference",
			payment: domain.Payment{Amount: 800, Method: domain.MethodRazorpay, Reference: "pay_1"},
			want: bson.M{
				"_id":                           id,
				"fees.due":                      bson.M{"$gte": 800.0},
				"fees.paymentHistory.reference": bson.M{"$ne": "pay_1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyPaymentFilter(id, tt.payment))
		})
	}
}

func TestApplyPaymentUpdate(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	p := domain.Payment{Amount: 300, Method: domain.MethodUPI, Reference: "pay_9", VerifiedBy: "gateway:Razorpay"}

	got := applyPaymentUpdate(p, at)

	assert.Equal(t, bson.M{"fees.paid": 300.0, "fees.due": -300.0}, got["$inc"])
	assert.Equal(t, bson.M{"fees.lastPaymentDate": at}, got["$set"])
	assert.Equal(t, bson.M{"fees.paymentHistory": domain.PaymentHistoryEntry{
		Amount:     300,
		Date:       at,
		Method:     domain.MethodUPI,
		Reference:  "pay_9",
		VerifiedBy: "gateway:Razorpay",
	}}, got["$push"])
	assert.Len(t, got, 3)
}

func TestIncreaseTotalPipeline(t *testing.T) {
	got := increaseTotalPipeline(500)

	want := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"fees.total": bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$fees.total", 0}}, 500.0}},
		}}},
		{{Key: "$set", Value: bson.M{
			"fees.due": bson.M{"$subtract": bson.A{"$fees.total", bson.M{"$ifNull": bson.A{"$fees.paid", 0}}}},
		}}},
	}
	require.Len(t, got, 2)
	assert.Equal(t, want, got)

	// the due stage must read the total written by the first stage
	_, setsTotal := got[0][0].Value.(bson.M)["fees.total"]
	_, setsDue := got[1][0].Value.(bson.M)["fees.due"]
	assert.True(t, setsTotal)
	assert.True(t, setsDue)
}

func TestAttendanceDocuments(t *testing.T) {
	ids := []bson.ObjectID{bson.NewObjectID(), bson.NewObjectID()}

	assert.Equal(t, bson.M{"_id": bson.M{"$in": ids}, "course": "BCA"}, attendanceFilter("BCA", ids))
	assert.Equal(t, bson.M{"$inc": bson.M{"attendance.present": 1}}, attendanceUpdate(attendancePresent))
	assert.Equal(t, bson.M{"$inc": bson.M{"attendance.absent": 1}}, attendanceUpdate(attendanceAbsent))
}

func TestRosterProjectionHidesFees(t *testing.T) {
	assert.NotContains(t, rosterProjection, "fees")
	assert.NotContains(t, rosterProjection, "password")
	assert.Equal(t, 1, rosterProjection["attendance"])
}
