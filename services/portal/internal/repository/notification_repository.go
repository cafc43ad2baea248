package repository

import (
	"context"
	"time"

	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type NotificationRepository interface {
	Create(ctx context.Context, message string) (*domain.Notification, error)
	List(ctx context.Context) ([]domain.Notification, error)
}

type notificationRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewNotificationRepository(db *mongo.Database, timeout time.Duration) NotificationRepository {
	return &notificationRepository{coll: db.Collection("notifications"), timeout: timeout}
}

func (r *notificationRepository) Create(ctx context.Context, message string) (*domain.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n := domain.Notification{
		ID:      bson.NewObjectID(),
		Message: message,
		Date:    time.Now().UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, n); err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns every notice, newest first.
func (r *notificationRepository) List(ctx context.Context) ([]domain.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
