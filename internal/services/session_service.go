package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

type sessionService struct {
	repo       repositories.Repository
	logger     *slog.Logger
	validator  *validator.Validator
	settlement SettlementService
	finalizer  FinalizeService
	notifier   NotificationEventService
}

func NewSessionService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	settlement SettlementService,
	finalizer FinalizeService,
	notifier NotificationEventService,
) SessionService {
	return &sessionService{
		repo:       repo,
		logger:     logger,
		validator:  validator,
		settlement: settlement,
		finalizer:  finalizer,
		notifier:   notifier,
	}
}

// ===== START =====

// Start opens a session for the student or returns the one still running.
// Starting is idempotent: two concurrent starts for the same (exam,
// student) resolve to a single session, enforced by the partial unique
// index on in-progress sessions.
func (s *sessionService) Start(ctx context.Context, examID, studentID uint) (*SessionResponse, error) {
	s.logger.Info("starting exam session", "exam_id", examID, "student_id", studentID)

	exam, err := s.repo.Exam().GetByIDWithQuestions(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	canAccess, err := s.repo.Exam().CanStudentAccess(ctx, nil, examID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check exam access: %w", err)
	}
	if !canAccess {
		return nil, NewPermissionError(studentID, examID, "exam", "take", "student is not assigned this exam")
	}

	now := time.Now()
	if !exam.WindowContains(now) {
		return nil, ErrExamNotAvailable
	}
	if len(exam.Questions) == 0 {
		return nil, ErrExamHasNoQuestions
	}

	// Fast path: an unexpired active session is simply resumed. A stale
	// one is invalidated without scoring and a fresh session opened.
	active, err := s.repo.Session().GetActiveSession(ctx, nil, examID, studentID, false)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active session: %w", err)
	}
	if active != nil {
		if !active.IsOverdue(now) {
			return s.buildSessionResponse(active, exam, now, true), nil
		}
		if err := s.expireStaleSession(ctx, active); err != nil {
			return nil, err
		}
	}

	session, created, err := s.createSession(ctx, exam, studentID, now)
	if err != nil {
		return nil, err
	}

	if created {
		s.publishStarted(ctx, session)
	}
	return s.buildSessionResponse(session, exam, now, !created), nil
}

// createSession opens a fresh session inside one transaction. The returned
// flag reports whether this call actually created the session; resolving to
// a session another request opened first is a resume, not a start.
func (s *sessionService) createSession(ctx context.Context, exam *models.Exam, studentID uint, now time.Time) (*models.ExamSession, bool, error) {
	var session *models.ExamSession
	created := true

	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		// Re-check under lock: another request may have created a session
		// between our read and this transaction.
		existing, err := r.Session().GetActiveSession(ctx, nil, exam.ID, studentID, true)
		if err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to re-check active session: %w", err)
		}
		if existing != nil && !existing.IsOverdue(now) {
			session = existing
			created = false
			return nil
		}
		if existing != nil {
			existing.Status = models.SessionExpired
			if err := r.Session().Update(ctx, nil, existing); err != nil {
				return fmt.Errorf("failed to expire stale session: %w", err)
			}
		}

		code, err := s.generateSessionCode(ctx, r)
		if err != nil {
			return err
		}

		if exam.IsPaid {
			if err := s.settlement.Settle(ctx, r, exam, studentID, code); err != nil {
				return err
			}
		}

		endTime := now.Add(time.Duration(exam.DurationMinutes) * time.Minute)
		if exam.EndTime != nil && endTime.After(*exam.EndTime) {
			endTime = *exam.EndTime
		}

		session = &models.ExamSession{
			ExamID:    exam.ID,
			StudentID: studentID,
			Code:      code,
			Status:    models.SessionInProgress,
			StartTime: now,
			EndTime:   endTime,
		}
		if err := r.Session().Create(ctx, nil, session); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}

		if err := r.Exam().IncrementAttemptCount(ctx, nil, exam.ID); err != nil {
			return fmt.Errorf("failed to increment attempt count: %w", err)
		}

		status, err := r.Status().GetOrCreateForUpdate(ctx, nil, studentID, exam.ID)
		if err != nil {
			return fmt.Errorf("failed to get student exam status: %w", err)
		}
		status.Status = models.ExamInProgress
		status.CurrentSessionID = &session.ID
		if err := r.Status().Update(ctx, nil, status); err != nil {
			return fmt.Errorf("failed to update student exam status: %w", err)
		}

		return nil
	})
	if err == nil {
		return session, created, nil
	}

	// The partial unique index rejects a second in-progress session for
	// the same (exam, student). Losing the race means the winner's session
	// is the one to resume.
	if repositories.IsDuplicateKeyError(err) {
		winner, readErr := s.repo.Session().GetActiveSession(ctx, nil, exam.ID, studentID, false)
		if readErr != nil {
			return nil, false, fmt.Errorf("failed to resolve concurrent start: %w", readErr)
		}
		return winner, false, nil
	}
	return nil, false, err
}

func (s *sessionService) expireStaleSession(ctx context.Context, session *models.ExamSession) error {
	s.logger.Info("expiring stale session", "session_id", session.ID)
	if err := s.repo.Session().UpdateStatus(ctx, nil, session.ID, models.SessionExpired); err != nil {
		return fmt.Errorf("failed to expire stale session: %w", err)
	}
	return nil
}

// ===== READS =====

// GetCurrent returns the student's running session for the exam. A session
// found past its end time is finalized first, so the student sees the
// submitted state instead of a zombie session.
func (s *sessionService) GetCurrent(ctx context.Context, examID, studentID uint) (*SessionResponse, error) {
	session, err := s.repo.Session().GetActiveSession(ctx, nil, examID, studentID, false)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	now := time.Now()
	if session.IsOverdue(now) {
		if _, err := s.finalizer.Finalize(ctx, session.ID); err != nil {
			return nil, err
		}
		session, err = s.repo.Session().GetByID(ctx, nil, session.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload finalized session: %w", err)
		}
	}

	exam, err := s.repo.Exam().GetByIDWithQuestions(ctx, nil, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return s.buildSessionResponse(session, exam, now, true), nil
}

func (s *sessionService) List(ctx context.Context, studentID uint, filters repositories.SessionFilters) (*SessionListResponse, error) {
	sessions, total, err := s.repo.Session().GetByStudent(ctx, nil, studentID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	size := filters.Limit
	if size <= 0 {
		size = 20
	}
	page := filters.Offset/size + 1

	return &SessionListResponse{
		Sessions: sessions,
		Total:    total,
		Page:     page,
		Size:     size,
	}, nil
}

// ===== ANSWER INTAKE =====

// SubmitAnswer stores one answer and scores it when the question kind is
// auto-gradeable. Re-answering a question overwrites the previous row.
func (s *sessionService) SubmitAnswer(ctx context.Context, sessionID, studentID uint, req SubmitAnswerRequest) (*AnswerResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var response *AnswerResponse
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		session, err := r.Session().GetByIDForUpdate(ctx, nil, sessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to lock session: %w", err)
		}

		if session.StudentID != studentID {
			return NewPermissionError(studentID, sessionID, "session", "answer", "session belongs to another student")
		}
		if session.Status != models.SessionInProgress {
			return ErrSessionNotActive
		}
		if session.IsOverdue(time.Now()) {
			// Too late. Invalidate the session; the answer is not stored.
			session.Status = models.SessionExpired
			if err := r.Session().Update(ctx, nil, session); err != nil {
				return fmt.Errorf("failed to expire session: %w", err)
			}
			return ErrSessionExpired
		}

		exam, err := r.Exam().GetByIDWithQuestions(ctx, nil, session.ExamID)
		if err != nil {
			return fmt.Errorf("failed to get exam: %w", err)
		}

		question := findQuestion(exam, req.QuestionID)
		if question == nil {
			return ErrQuestionNotFound
		}

		answer, err := s.buildAnswer(session, exam, question, req)
		if err != nil {
			return err
		}
		if err := r.Answer().Upsert(ctx, nil, answer); err != nil {
			return fmt.Errorf("failed to save answer: %w", err)
		}

		answered, err := r.Answer().CountBySession(ctx, nil, sessionID)
		if err != nil {
			return fmt.Errorf("failed to count answers: %w", err)
		}

		response = &AnswerResponse{
			QuestionID:    question.ID,
			Saved:         true,
			Score:         answer.Score,
			AnsweredCount: answered,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// ===== SUBMIT =====

func (s *sessionService) Submit(ctx context.Context, sessionID, studentID uint) (*SubmitResponse, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.StudentID != studentID {
		return nil, NewPermissionError(studentID, sessionID, "session", "submit", "session belongs to another student")
	}

	return s.finalizer.Finalize(ctx, sessionID)
}

func (s *sessionService) publishStarted(ctx context.Context, session *models.ExamSession) {
	endTime := session.EndTime
	_ = s.notifier.PublishSessionStarted(ctx, SessionEventData{
		SessionID: session.ID,
		ExamID:    session.ExamID,
		StudentID: session.StudentID,
		Status:    string(session.Status),
		EndTime:   &endTime,
	})
}
