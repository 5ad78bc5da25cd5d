package services

import (
	"context"
	"log/slog"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type notificationEventService struct {
	repo           repositories.Repository
	eventPublisher events.EventPublisher
	logger         *slog.Logger
}

func NewNotificationEventService(repo repositories.Repository, eventPublisher events.EventPublisher, logger *slog.Logger) NotificationEventService {
	return &notificationEventService{
		repo:           repo,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

func (s *notificationEventService) PublishSessionStarted(ctx context.Context, data SessionEventData) error {
	return s.publish(ctx, events.TopicSessionEvents, events.EventSessionStarted, data)
}

func (s *notificationEventService) PublishExamSubmitted(ctx context.Context, data SessionEventData) error {
	return s.publish(ctx, events.TopicSessionEvents, events.EventExamSubmitted, data)
}

func (s *notificationEventService) PublishExamPurchased(ctx context.Context, examID, studentID uint, amount float64) error {
	return s.publish(ctx, events.TopicSettlementEvents, events.EventExamPurchased, map[string]interface{}{
		"exam_id":    examID,
		"student_id": studentID,
		"amount":     amount,
	})
}

func (s *notificationEventService) PublishFeedbackUpdated(ctx context.Context, sessionID uint) error {
	return s.publish(ctx, events.TopicSessionEvents, events.EventFeedbackUpdated, map[string]interface{}{
		"session_id": sessionID,
	})
}

func (s *notificationEventService) publish(ctx context.Context, topic, eventType string, data interface{}) error {
	err := s.eventPublisher.Publish(ctx, topic, &events.Event{
		Type: eventType,
		Data: data,
	})
	if err != nil {
		s.logger.Error("failed to publish event", "event_type", eventType, "topic", topic, "error", err)
		return err
	}
	return nil
}
