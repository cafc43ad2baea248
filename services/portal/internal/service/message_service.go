package service

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/diagnosis/institute-portal/pkg/config"
	"github.com/diagnosis/institute-portal/pkg/events"
	"github.com/diagnosis/institute-portal/pkg/logger"
	"github.com/diagnosis/institute-portal/pkg/mailer"
	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"github.com/diagnosis/institute-portal/services/portal/internal/repository"
)

type MessageService interface {
	SendToStudent(ctx context.Context, req *domain.SendMessageRequest) error
	CreateNotification(ctx context.Context, req *domain.NotificationRequest) (*domain.Notification, error)
	ListNotifications(ctx context.Context, accessCode string) ([]domain.Notification, error)
}

type messageService struct {
	studentRepo      repository.StudentRepository
	notificationRepo repository.NotificationRepository
	mailer           mailer.Service
	eventBus         events.Publisher
	config           *config.Config
}

func NewMessageService(
	studentRepo repository.StudentRepository,
	notificationRepo repository.NotificationRepository,
	mailer mailer.Service,
	eventBus events.Publisher,
	config *config.Config,
) MessageService {
	return &messageService{
		studentRepo:      studentRepo,
		notificationRepo: notificationRepo,
		mailer:           mailer,
		eventBus:         eventBus,
		config:           config,
	}
}

// SendToStudent hands the message to the notify worker when NATS is
// configured and emails it directly otherwise.
func (s *messageService) SendToStudent(ctx context.Context, req *domain.SendMessageRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	id, err := domain.ParseObjectID(req.StudentID)
	if err != nil {
		return err
	}

	student, err := s.studentRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find student: %w", err)
	}
	if student == nil {
		return domain.ErrStudentNotFound
	}

	if s.config.NATS.URL != "" {
		if err := s.eventBus.Publish(ctx, events.NotifyMessage, events.NotifyMessageEvent{
			StudentID: student.ID.Hex(),
			Email:     student.Email,
			Name:      student.Name,
			Message:   req.Message,
		}); err != nil {
			logger.ErrorContext(ctx, "Failed to queue message", "error", err, "student_id", student.ID.Hex())
			return fmt.Errorf("%w: %v", domain.ErrNotificationFailure, err)
		}
		return nil
	}

	if err := s.mailer.SendMessage(ctx, student.Email, student.Name, req.Message); err != nil {
		logger.ErrorContext(ctx, "Failed to send message", "error", err, "student_id", student.ID.Hex())
		return fmt.Errorf("%w: %v", domain.ErrNotificationFailure, err)
	}
	return nil
}

func (s *messageService) CreateNotification(ctx context.Context, req *domain.NotificationRequest) (*domain.Notification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	n, err := s.notificationRepo.Create(ctx, req.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to save notification: %w", err)
	}
	return n, nil
}

func (s *messageService) ListNotifications(ctx context.Context, accessCode string) ([]domain.Notification, error) {
	expected := s.config.Portal.AccessCode
	if expected == "" || subtle.ConstantTimeCompare([]byte(accessCode), []byte(expected)) != 1 {
		return nil, domain.ErrInvalidAccessCode
	}

	list, err := s.notificationRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}
