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

// StudentRepository owns the fee ledger embedded in student documents. Every
// mutation is a single-document atomic update.
type StudentRepository interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*domain.Student, error)
	// ApplyPayment returns nil, nil when the student is missing, the due is
	// now below the amount, or the reference was already recorded.
	ApplyPayment(ctx context.Context, id bson.ObjectID, p domain.Payment, at time.Time) (*domain.Student, error)
	IncreaseTotal(ctx context.Context, id bson.ObjectID, amount float64) (*domain.Student, error)
	ListByCourse(ctx context.Context, course string) ([]domain.CourseStudent, error)
	// MarkAttendance only touches students enrolled in course.
	MarkAttendance(ctx context.Context, course string, present, absent []bson.ObjectID) (*domain.AttendanceResult, error)
}

type studentRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewStudentRepository(db *mongo.Database, timeout time.Duration) StudentRepository {
	return &studentRepository{coll: db.Collection(domain.RoleStudent.Collection()), timeout: timeout}
}

func (r *studentRepository) FindByID(ctx context.Context, id bson.ObjectID) (*domain.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var s domain.Student
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentRepository) ApplyPayment(ctx context.Context, id bson.ObjectID, p domain.Payment, at time.Time) (*domain.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.findOneAndUpdate(ctx, applyPaymentFilter(id, p), applyPaymentUpdate(p, at))
}

// applyPaymentFilter only matches while the due still covers the amount and
// the reference has not been recorded.
func applyPaymentFilter(id bson.ObjectID, p domain.Payment) bson.M {
	filter := bson.M{
		"_id":      id,
		"fees.due": bson.M{"$gte": p.Amount},
	}
	if p.Reference != "" {
		filter["fees.paymentHistory.reference"] = bson.M{"$ne": p.Reference}
	}
	return filter
}

func applyPaymentUpdate(p domain.Payment, at time.Time) bson.M {
	return bson.M{
		"$inc":  bson.M{"fees.paid": p.Amount, "fees.due": -p.Amount},
		"$set":  bson.M{"fees.lastPaymentDate": at},
		"$push": bson.M{"fees.paymentHistory": p.Entry(at)},
	}
}

// IncreaseTotal recomputes due from the stored paid value in the same update.
func (r *studentRepository) IncreaseTotal(ctx context.Context, id bson.ObjectID, amount float64) (*domain.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, increaseTotalPipeline(amount))
}

func increaseTotalPipeline(amount float64) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"fees.total": bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$fees.total", 0}}, amount}},
		}}},
		{{Key: "$set", Value: bson.M{
			"fees.due": bson.M{"$subtract": bson.A{"$fees.total", bson.M{"$ifNull": bson.A{"$fees.paid", 0}}}},
		}}},
	}
}

func (r *studentRepository) ListByCourse(ctx context.Context, course string) ([]domain.CourseStudent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.Find().
		SetProjection(rosterProjection).
		SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.coll.Find(ctx, bson.M{"course": course}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	students := make([]domain.CourseStudent, 0)
	if err := cursor.All(ctx, &students); err != nil {
		return nil, err
	}
	return students, nil
}

var rosterProjection = bson.M{"name": 1, "email": 1, "course": 1, "attendance": 1}

// MarkAttendance runs one update per list; each is atomic on its own.
func (r *studentRepository) MarkAttendance(ctx context.Context, course string, present, absent []bson.ObjectID) (*domain.AttendanceResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var result domain.AttendanceResult
	if len(present) > 0 {
		res, err := r.coll.UpdateMany(ctx, attendanceFilter(course, present), attendanceUpdate(attendancePresent))
		if err != nil {
			return nil, err
		}
		result.Present = res.ModifiedCount
	}
	if len(absent) > 0 {
		res, err := r.coll.UpdateMany(ctx, attendanceFilter(course, absent), attendanceUpdate(attendanceAbsent))
		if err != nil {
			return nil, err
		}
		result.Absent = res.ModifiedCount
	}
	return &result, nil
}

const (
	attendancePresent = "attendance.present"
	attendanceAbsent  = "attendance.absent"
)

func attendanceFilter(course string, ids []bson.ObjectID) bson.M {
	return bson.M{"_id": bson.M{"$in": ids}, "course": course}
}

func attendanceUpdate(counter string) bson.M {
	return bson.M{"$inc": bson.M{counter: 1}}
}

func (r *studentRepository) findOneAndUpdate(ctx context.Context, filter bson.M, update interface{}) (*domain.Student, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var s domain.Student
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
