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

// FacultyRepository reads faculty profiles. Credentials go through UserRepository.
type FacultyRepository interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*domain.Faculty, error)
}

type facultyRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewFacultyRepository(db *mongo.Database, timeout time.Duration) FacultyRepository {
	return &facultyRepository{coll: db.Collection(domain.RoleFaculty.Collection()), timeout: timeout}
}

func (r *facultyRepository) FindByID(ctx context.Context, id bson.ObjectID) (*domain.Faculty, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.FindOne().SetProjection(bson.M{"password": 0})

	var f domain.Faculty
	err := r.coll.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}
