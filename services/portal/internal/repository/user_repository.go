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

// UserRepository serves admins, students and faculty; the role picks the collection.
// Finders return nil, nil when no document matches.
type UserRepository interface {
	FindByEmail(ctx context.Context, role domain.Role, email string) (*domain.User, error)
	FindByID(ctx context.Context, role domain.Role, id bson.ObjectID) (*domain.User, error)
	SetPasswordIfUnset(ctx context.Context, role domain.Role, email, passwordHash string) (bool, error)
	UpdatePassword(ctx context.Context, role domain.Role, id bson.ObjectID, passwordHash string) error
	UpdateEmail(ctx context.Context, role domain.Role, id bson.ObjectID, email string) error
	CreateAdmin(ctx context.Context, name, email, passwordHash string) (*domain.User, error)
}

type userRepository struct {
	db      *mongo.Database
	timeout time.Duration
}

func NewUserRepository(db *mongo.Database, timeout time.Duration) UserRepository {
	return &userRepository{db: db, timeout: timeout}
}

func (r *userRepository) coll(role domain.Role) *mongo.Collection {
	return r.db.Collection(role.Collection())
}

func (r *userRepository) FindByEmail(ctx context.Context, role domain.Role, email string) (*domain.User, error) {
	return r.findOne(ctx, role, bson.M{"email": email})
}

func (r *userRepository) FindByID(ctx context.Context, role domain.Role, id bson.ObjectID) (*domain.User, error) {
	return r.findOne(ctx, role, bson.M{"_id": id})
}

func (r *userRepository) findOne(ctx context.Context, role domain.Role, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var u domain.User
	err := r.coll(role).FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Role = role
	return &u, nil
}

// SetPasswordIfUnset writes the hash only when the user has none, so two
// concurrent first-time setters cannot both succeed. It reports whether a
// document was updated.
func (r *userRepository) SetPasswordIfUnset(ctx context.Context, role domain.Role, email, passwordHash string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{
		"email": email,
		"$or": bson.A{
			bson.M{"password": bson.M{"$exists": false}},
			bson.M{"password": nil},
			bson.M{"password": ""},
		},
	}
	res, err := r.coll(role).UpdateOne(ctx, filter, bson.M{"$set": bson.M{"password": passwordHash}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, role domain.Role, id bson.ObjectID, passwordHash string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.coll(role).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"password": passwordHash}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdateEmail(ctx context.Context, role domain.Role, id bson.ObjectID, email string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.coll(role).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"email": email}})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) CreateAdmin(ctx context.Context, name, email, passwordHash string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	u := domain.User{
		ID:           bson.NewObjectID(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := r.coll(domain.RoleAdmin).InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return nil, domain.ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	u.Role = domain.RoleAdmin
	return &u, nil
}

var uniqueEmail = mongo.IndexModel{
	Keys:    bson.D{{Key: "email", Value: 1}},
	Options: options.Index().SetUnique(true).SetName("email_unique"),
}
