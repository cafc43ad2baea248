package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/institute-portal/pkg/config"
	"github.com/diagnosis/institute-portal/pkg/events"
	"github.com/diagnosis/institute-portal/pkg/logger"
	"github.com/diagnosis/institute-portal/pkg/mailer"
	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"github.com/diagnosis/institute-portal/services/portal/internal/repository"
)

// Throttle limits OTP issuance. A nil Throttle disables the limit.
type Throttle interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type OTPService interface {
	Issue(ctx context.Context, role domain.Role, email, purpose, subject string) (*domain.OTPRecord, error)
	Verify(ctx context.Context, role domain.Role, email, purpose string, code domain.OTPCode) (*domain.VerifiedOTP, error)
}

type otpService struct {
	userRepo repository.UserRepository
	otpRepo  repository.OTPRepository
	mailer   mailer.Service
	eventBus events.Publisher
	throttle Throttle
	config   *config.Config
	now      func() time.Time
}

type OTPOption func(*otpService)

// WithOTPClock replaces time.Now as the source of creation and expiry times.
func WithOTPClock(now func() time.Time) OTPOption {
	return func(s *otpService) { s.now = now }
}

func NewOTPService(
	userRepo repository.UserRepository,
	otpRepo repository.OTPRepository,
	mailer mailer.Service,
	eventBus events.Publisher,
	throttle Throttle,
	config *config.Config,
	opts ...OTPOption,
) OTPService {
	s := &otpService{
		userRepo: userRepo,
		otpRepo:  otpRepo,
		mailer:   mailer,
		eventBus: eventBus,
		throttle: throttle,
		config:   config,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *otpService) Issue(ctx context.Context, role domain.Role, email, purpose, subject string) (*domain.OTPRecord, error) {
	user, err := s.userRepo.FindByEmail(ctx, role, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	if s.throttle != nil {
		key := fmt.Sprintf("otp:%s:%s:%s", role, email, purpose)
		allowed, err := s.throttle.Allow(ctx, key, s.config.Auth.OTPIssueLimit, s.config.Auth.OTPIssueWindow)
		if err != nil {
			logger.WarnContext(ctx, "OTP throttle check failed", "error", err)
		} else if !allowed {
			return nil, domain.ErrTooManyRequests
		}
	}

	code, err := domain.GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}

	now := s.now().UTC()
	rec := &domain.OTPRecord{
		UserID:    user.ID,
		Role:      role,
		Purpose:   purpose,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.Auth.OTPTTL),
	}
	if err := s.otpRepo.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save otp: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.OTPIssued, events.OTPIssuedEvent{
		UserID:    user.ID.Hex(),
		Role:      role.String(),
		Purpose:   purpose,
		ExpiresAt: rec.ExpiresAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish otp event", "error", err)
	}

	if subject == "" {
		subject = domain.OTPSubject(purpose)
	}
	// The record stays persisted when delivery fails; the user can request a new code.
	if err := s.mailer.SendOTP(ctx, user.Email, subject, code); err != nil {
		logger.ErrorContext(ctx, "Failed to send otp email", "error", err, "user_id", user.ID.Hex())
		return nil, fmt.Errorf("%w: %v", domain.ErrNotificationFailure, err)
	}

	logger.InfoContext(ctx, "OTP issued", "user_id", user.ID.Hex(), "role", role, "purpose", purpose)
	return rec, nil
}

func (s *otpService) Verify(ctx context.Context, role domain.Role, email, purpose string, code domain.OTPCode) (*domain.VerifiedOTP, error) {
	if err := code.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, role, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	rec, err := s.otpRepo.FindLatest(ctx, user.ID, role, purpose)
	if err != nil {
		return nil, fmt.Errorf("failed to find otp: %w", err)
	}
	if rec == nil {
		return nil, domain.ErrOTPNotFound
	}

	if rec.IsExpired(s.now()) {
		if _, err := s.otpRepo.Delete(ctx, rec.ID); err != nil {
			logger.WarnContext(ctx, "Failed to delete expired otp", "error", err, "otp_id", rec.ID.Hex())
		}
		return nil, domain.ErrOTPExpired
	}

	if rec.Code != code.Int() {
		return nil, domain.ErrOTPMismatch
	}

	deleted, err := s.otpRepo.Delete(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to consume otp: %w", err)
	}
	if !deleted {
		// a concurrent verify consumed it first
		return nil, domain.ErrOTPNotFound
	}

	return &domain.VerifiedOTP{UserID: user.ID, Role: role, Email: user.Email}, nil
}
