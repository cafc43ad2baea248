package repository

import (
	"context"
	"fmt"

	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// EnsureIndexes creates the unique and TTL indexes the repositories rely on.
// It is safe to call on every startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleStudent, domain.RoleFaculty} {
		if _, err := db.Collection(role.Collection()).Indexes().CreateOne(ctx, uniqueEmail); err != nil {
			return fmt.Errorf("failed to create %s email index: %w", role, err)
		}
	}

	if _, err := db.Collection(domain.RoleStudent.Collection()).Indexes().CreateOne(ctx, studentCourse); err != nil {
		return fmt.Errorf("failed to create student course index: %w", err)
	}

	if _, err := db.Collection(otpCollection).Indexes().CreateMany(ctx, otpIndexes); err != nil {
		return fmt.Errorf("failed to create otp indexes: %w", err)
	}
	return nil
}

var studentCourse = mongo.IndexModel{
	Keys:    bson.D{{Key: "course", Value: 1}, {Key: "name", Value: 1}},
	Options: options.Index().SetName("course_name"),
}
