package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/institute-portal/pkg/config"
	"github.com/diagnosis/institute-portal/pkg/events"
	"github.com/diagnosis/institute-portal/pkg/logger"
	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"github.com/diagnosis/institute-portal/services/portal/internal/gateway"
	"github.com/diagnosis/institute-portal/services/portal/internal/repository"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type FeesService interface {
	Ledger(ctx context.Context, studentID bson.ObjectID) (*domain.FeesLedger, error)
	ApplyPayment(ctx context.Context, studentID bson.ObjectID, p domain.Payment) (*domain.FeesLedger, error)
	IncreaseTotal(ctx context.Context, studentID bson.ObjectID, amount float64) (*domain.FeesLedger, error)
	InitiatePayment(ctx context.Context, studentID bson.ObjectID, req *domain.InitiatePaymentRequest) (*gateway.Order, error)
	VerifyPayment(ctx context.Context, studentID bson.ObjectID, req *domain.VerifyPaymentRequest) (*domain.FeesLedger, error)
	ManualPayment(ctx context.Context, adminID string, req *domain.ManualPaymentRequest) (*domain.FeesLedger, error)
}

type feesService struct {
	studentRepo repository.StudentRepository
	gateway     gateway.Gateway
	eventBus    events.Publisher
	config      *config.Config
	now         func() time.Time
}

type FeesOption func(*feesService)

func WithFeesClock(now func() time.Time) FeesOption {
	return func(s *feesService) { s.now = now }
}

func NewFeesService(
	studentRepo repository.StudentRepository,
	gw gateway.Gateway,
	eventBus events.Publisher,
	config *config.Config,
	opts ...FeesOption,
) FeesService {
	s := &feesService{
		studentRepo: studentRepo,
		gateway:     gw,
		eventBus:    eventBus,
		config:      config,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *feesService) Ledger(ctx context.Context, studentID bson.ObjectID) (*domain.FeesLedger, error) {
	student, err := s.findStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return &student.Fees, nil
}

func (s *feesService) findStudent(ctx context.Context, id bson.ObjectID) (*domain.Student, error) {
	student, err := s.studentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find student: %w", err)
	}
	if student == nil {
		return nil, domain.ErrStudentNotFound
	}
	return student, nil
}

// ApplyPayment validates against the current ledger and then applies the
// payment in one conditional update. If the update misses, the ledger changed
// in between and the failure is re-classified from a fresh read.
func (s *feesService) ApplyPayment(ctx context.Context, studentID bson.ObjectID, p domain.Payment) (*domain.FeesLedger, error) {
	if p.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	student, err := s.findStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if err := student.Fees.CheckPayment(p); err != nil {
		return nil, err
	}

	at := s.now().UTC()
	updated, err := s.studentRepo.ApplyPayment(ctx, studentID, p, at)
	if err != nil {
		return nil, fmt.Errorf("failed to apply payment: %w", err)
	}
	if updated == nil {
		current, err := s.findStudent(ctx, studentID)
		if err != nil {
			return nil, err
		}
		if current.Fees.HasReference(p.Reference) {
			return nil, domain.ErrPaymentAlreadyApplied
		}
		return nil, domain.ErrInsufficientDue
	}

	logger.InfoContext(ctx, "Payment applied",
		"student_id", studentID.Hex(), "amount", p.Amount, "method", p.Method, "due", updated.Fees.Due)

	if err := s.eventBus.Publish(ctx, events.PaymentApplied, events.PaymentAppliedEvent{
		StudentID:    studentID.Hex(),
		StudentName:  updated.Name,
		StudentEmail: updated.Email,
		ReceiptID:    uuid.NewString(),
		Amount:       p.Amount,
		Method:       string(p.Method),
		Reference:    p.Reference,
		VerifiedBy:   p.VerifiedBy,
		Paid:         updated.Fees.Paid,
		Due:          updated.Fees.Due,
		PaidAt:       at,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish payment event", "error", err)
	}

	return &updated.Fees, nil
}

func (s *feesService) IncreaseTotal(ctx context.Context, studentID bson.ObjectID, amount float64) (*domain.FeesLedger, error) {
	if amount < 0 {
		return nil, domain.ErrInvalidAmount
	}
	if amount == 0 {
		return s.Ledger(ctx, studentID)
	}

	updated, err := s.studentRepo.IncreaseTotal(ctx, studentID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to increase total: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrStudentNotFound
	}

	if err := s.eventBus.Publish(ctx, events.ChargeAdded, events.ChargeAddedEvent{
		StudentID: studentID.Hex(),
		Amount:    amount,
		Total:     updated.Fees.Total,
		Due:       updated.Fees.Due,
		ChargedAt: s.now().UTC(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish charge event", "error", err)
	}

	return &updated.Fees, nil
}

func (s *feesService) InitiatePayment(ctx context.Context, studentID bson.ObjectID, req *domain.InitiatePaymentRequest) (*gateway.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	student, err := s.findStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if req.Amount > student.Fees.Due {
		return nil, domain.ErrInsufficientDue
	}

	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		StudentID: studentID.Hex(),
		Amount:    req.Amount,
		Currency:  s.config.Payments.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	logger.InfoContext(ctx, "Payment initiated", "student_id", studentID.Hex(), "order_id", order.ID, "amount", req.Amount)
	return order, nil
}

// VerifyPayment attests the payment with the gateway before any amount check runs.
func (s *feesService) VerifyPayment(ctx context.Context, studentID bson.ObjectID, req *domain.VerifyPaymentRequest) (*domain.FeesLedger, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.gateway.VerifyPayment(ctx, gateway.Confirmation{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		StudentID: studentID.Hex(),
		Amount:    req.Amount,
	}); err != nil {
		if _, ok := domain.AsError(err); ok {
			logger.WarnContext(ctx, "Payment verification rejected", "student_id", studentID.Hex(), "order_id", req.OrderID)
			return nil, err
		}
		return nil, fmt.Errorf("failed to verify payment: %w", err)
	}

	method, err := domain.ParseMethod(req.Method, s.gateway.Method())
	if err != nil {
		return nil, err
	}

	return s.ApplyPayment(ctx, studentID, domain.Payment{
		Amount:     req.Amount,
		Method:     method,
		Reference:  req.PaymentID,
		VerifiedBy: "gateway:" + string(s.gateway.Method()),
	})
}

func (s *feesService) ManualPayment(ctx context.Context, adminID string, req *domain.ManualPaymentRequest) (*domain.FeesLedger, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	studentID, err := domain.ParseObjectID(req.StudentID)
	if err != nil {
		return nil, err
	}
	method, err := domain.ParseMethod(req.Method, domain.MethodCash)
	if err != nil {
		return nil, err
	}

	return s.ApplyPayment(ctx, studentID, domain.Payment{
		Amount:     req.Amount,
		Method:     method,
		VerifiedBy: "admin:" + adminID,
	})
}
