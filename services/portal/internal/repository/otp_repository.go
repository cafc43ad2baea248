package repository

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const otpCollection = "otps"

// OTPExpiryGrace keeps expired records around long enough for a late verify
// to observe them as expired rather than missing.
const OTPExpiryGrace = 24 * time.Hour

type OTPRepository interface {
	// Save replaces any live record for the same user, role and purpose.
	Save(ctx context.Context, rec *domain.OTPRecord) error
	FindLatest(ctx context.Context, userID bson.ObjectID, role domain.Role, purpose string) (*domain.OTPRecord, error)
	// Delete reports whether this call removed the record.
	Delete(ctx context.Context, id bson.ObjectID) (bool, error)
}

type otpRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewOTPRepository(db *mongo.Database, timeout time.Duration) OTPRepository {
	return &otpRepository{coll: db.Collection(otpCollection), timeout: timeout}
}

func (r *otpRepository) Save(ctx context.Context, rec *domain.OTPRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"userId": rec.UserID, "role": rec.Role, "purpose": rec.Purpose}
	replacement := bson.M{
		"userId":    rec.UserID,
		"role":      rec.Role,
		"purpose":   rec.Purpose,
		"code":      rec.Code,
		"createdAt": rec.CreatedAt,
		"expiresAt": rec.ExpiresAt,
	}
	opts := options.FindOneAndReplace().SetUpsert(true).SetReturnDocument(options.After)

	var saved domain.OTPRecord
	if err := r.coll.FindOneAndReplace(ctx, filter, replacement, opts).Decode(&saved); err != nil {
		return err
	}
	rec.ID = saved.ID
	return nil
}

func (r *otpRepository) FindLatest(ctx context.Context, userID bson.ObjectID, role domain.Role, purpose string) (*domain.OTPRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"userId": userID, "role": role, "purpose": purpose}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var rec domain.OTPRecord
	err := r.coll.FindOne(ctx, filter, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *otpRepository) Delete(ctx context.Context, id bson.ObjectID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

var otpIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "role", Value: 1}, {Key: "purpose", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("user_role_purpose_unique"),
	},
	{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(OTPExpiryGrace.Seconds())).SetName("expires_at_ttl"),
	},
}
