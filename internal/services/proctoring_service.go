package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/realtime"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

type proctoringService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
	hub            *realtime.Hub
}

func NewProctoringService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, eventPublisher events.EventPublisher, hub *realtime.Hub) ProctoringService {
	return &proctoringService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      validator,
		eventPublisher: eventPublisher,
		hub:            hub,
	}
}

// ReportEvent persists a cheating signal and fans it out to observers of
// the exam's channel. Only the owner of a running session may report.
func (s *proctoringService) ReportEvent(ctx context.Context, examID, studentID uint, req ProctoringEventRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	session, err := s.repo.Session().GetByID(ctx, s.db, req.SessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to get session: %w", err)
	}
	if session.StudentID != studentID || session.ExamID != examID {
		return NewPermissionError(studentID, req.SessionID, "session", "report", "session belongs to another student or exam")
	}
	if session.Status != models.SessionInProgress {
		return ErrSessionNotActive
	}

	var payload datatypes.JSON
	if req.Payload != nil {
		raw, err := json.Marshal(req.Payload)
		if err != nil {
			return NewValidationError("payload", "payload is not serializable", nil)
		}
		payload = raw
	}

	event := &models.ProctoringEvent{
		SessionID: session.ID,
		ExamID:    session.ExamID,
		StudentID: session.StudentID,
		EventType: req.EventType,
		Payload:   payload,
	}
	if err := s.repo.Proctoring().Create(ctx, s.db, event); err != nil {
		return fmt.Errorf("failed to save proctoring event: %w", err)
	}

	if s.hub != nil {
		s.hub.Emit(realtime.ExamChannel(session.ExamID), events.EventProctoringSignal, map[string]interface{}{
			"session_id": session.ID,
			"student_id": session.StudentID,
			"event_type": req.EventType,
			"payload":    req.Payload,
		})
	}

	if err := s.eventPublisher.Publish(ctx, events.TopicProctoringEvents, &events.Event{
		Type: events.EventProctoringSignal,
		Data: map[string]interface{}{
			"session_id": session.ID,
			"exam_id":    session.ExamID,
			"student_id": session.StudentID,
			"event_type": req.EventType,
		},
	}); err != nil {
		s.logger.Error("failed to publish proctoring event", "session_id", session.ID, "error", err)
	}

	return nil
}

func (s *proctoringService) ListEvents(ctx context.Context, sessionID, requesterID uint, role models.UserRole, filters repositories.ProctoringFilters) ([]*models.ProctoringEvent, int64, error) {
	session, err := s.repo.Session().GetByID(ctx, s.db, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, 0, ErrSessionNotFound
		}
		return nil, 0, fmt.Errorf("failed to get session: %w", err)
	}

	if role == models.RoleStudent {
		return nil, 0, NewPermissionError(requesterID, sessionID, "proctoring", "read", "students cannot read proctoring logs")
	}
	if role == models.RoleTeacher {
		exam, err := s.repo.Exam().GetByID(ctx, s.db, session.ExamID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to get exam: %w", err)
		}
		if exam.CreatedBy == nil || *exam.CreatedBy != requesterID {
			return nil, 0, NewPermissionError(requesterID, sessionID, "proctoring", "read", "only the exam creator may read proctoring logs")
		}
	}

	return s.repo.Proctoring().GetBySession(ctx, s.db, sessionID, filters)
}
