package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/realtime"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type finalizeService struct {
	repo     repositories.Repository
	logger   *slog.Logger
	notifier NotificationEventService
	hub      *realtime.Hub
}

func NewFinalizeService(repo repositories.Repository, logger *slog.Logger, notifier NotificationEventService, hub *realtime.Hub) FinalizeService {
	return &finalizeService{
		repo:     repo,
		logger:   logger,
		notifier: notifier,
		hub:      hub,
	}
}

// scoreSummary is the pure aggregation of a session's answers.
type scoreSummary struct {
	TotalScore   float64
	CorrectCount int
	WrongCount   int
	Percentage   float64
}

// computeSummary folds the stored answers into a result. Answers without a
// score (ungradeable kinds, or never auto-scored) count toward neither the
// correct nor the wrong tally.
func computeSummary(answers []*models.StudentAnswer, examTotalScore float64) scoreSummary {
	var summary scoreSummary
	for _, answer := range answers {
		if answer.Score != nil {
			summary.TotalScore += *answer.Score
		}
		if answer.IsCorrect == nil {
			continue
		}
		if *answer.IsCorrect {
			summary.CorrectCount++
		} else {
			summary.WrongCount++
		}
	}

	if examTotalScore > 0 {
		summary.Percentage = summary.TotalScore / examTotalScore * 100
	}
	return summary
}

// Finalize closes a session and produces its result. Every path that ends a
// session goes through here: the student's submit, the sweeper, and the
// read-side expiry in GetCurrent. The row lock plus the status guard make
// the operation idempotent under concurrency; whichever caller wins
// finalizes, the rest observe the terminal state.
func (s *finalizeService) Finalize(ctx context.Context, sessionID uint) (*SubmitResponse, error) {
	var response *SubmitResponse

	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		session, err := r.Session().GetByIDForUpdate(ctx, nil, sessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to lock session: %w", err)
		}

		if session.Status.IsTerminal() {
			result, err := r.Result().GetBySession(ctx, nil, sessionID)
			if err != nil && !repositories.IsNotFoundError(err) {
				return fmt.Errorf("failed to get existing result: %w", err)
			}
			// Expired sessions carry no result; already_submitted still
			// tells the caller the session is closed.
			response = &SubmitResponse{Result: result, AlreadySubmitted: true}
			return nil
		}

		exam, err := r.Exam().GetByID(ctx, nil, session.ExamID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrExamNotFound
			}
			return fmt.Errorf("failed to get exam: %w", err)
		}

		answers, err := r.Answer().GetBySession(ctx, nil, sessionID)
		if err != nil {
			return fmt.Errorf("failed to get answers: %w", err)
		}

		summary := computeSummary(answers, exam.TotalScore)

		now := time.Now()
		session.Status = models.SessionSubmitted
		session.TotalScore = &summary.TotalScore
		session.SubmittedAt = &now
		if err := r.Session().Update(ctx, nil, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}

		result := &models.ExamResult{
			SessionID:    session.ID,
			TotalScore:   summary.TotalScore,
			CorrectCount: summary.CorrectCount,
			WrongCount:   summary.WrongCount,
			Percentage:   summary.Percentage,
			Status:       models.ResultGraded,
		}
		if err := r.Result().Upsert(ctx, nil, result); err != nil {
			return fmt.Errorf("failed to upsert result: %w", err)
		}

		if err := s.updateStudentStatus(ctx, r, session, summary); err != nil {
			return err
		}

		response = &SubmitResponse{Result: result}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !response.AlreadySubmitted {
		s.publishSubmitted(ctx, sessionID, response.Result)
	}
	return response, nil
}

// updateStudentStatus rolls the finished session into the student's
// per-exam bookkeeping: one more completed attempt, best score kept
// monotonic, last score overwritten.
func (s *finalizeService) updateStudentStatus(ctx context.Context, r repositories.Repository, session *models.ExamSession, summary scoreSummary) error {
	status, err := r.Status().GetOrCreateForUpdate(ctx, nil, session.StudentID, session.ExamID)
	if err != nil {
		return fmt.Errorf("failed to get student exam status: %w", err)
	}

	status.AttemptCount++
	status.Status = models.ExamCompleted
	status.CurrentSessionID = nil
	status.LastScore = summary.TotalScore
	status.LastPercentage = summary.Percentage
	if summary.TotalScore > status.BestScore {
		status.BestScore = summary.TotalScore
	}
	if summary.Percentage > status.BestPercentage {
		status.BestPercentage = summary.Percentage
	}

	if err := r.Status().Update(ctx, nil, status); err != nil {
		return fmt.Errorf("failed to update student exam status: %w", err)
	}
	return nil
}

func (s *finalizeService) publishSubmitted(ctx context.Context, sessionID uint, result *models.ExamResult) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		s.logger.Error("failed to reload session for event", "session_id", sessionID, "error", err)
		return
	}

	score := result.TotalScore
	_ = s.notifier.PublishExamSubmitted(ctx, SessionEventData{
		SessionID: session.ID,
		ExamID:    session.ExamID,
		StudentID: session.StudentID,
		Status:    string(session.Status),
		Score:     &score,
	})

	if s.hub != nil {
		s.hub.Emit(realtime.ExamChannel(session.ExamID), events.EventExamSubmitted, map[string]interface{}{
			"session_id": session.ID,
			"student_id": session.StudentID,
			"score":      result.TotalScore,
		})
	}
}

func (s *finalizeService) GetResult(ctx context.Context, sessionID, requesterID uint, role models.UserRole) (*models.ExamResult, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if role == models.RoleStudent && session.StudentID != requesterID {
		return nil, NewPermissionError(requesterID, sessionID, "result", "read", "session belongs to another student")
	}

	result, err := s.repo.Result().GetBySession(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return result, nil
}

func (s *finalizeService) UpdateFeedback(ctx context.Context, sessionID, teacherID uint, feedback string) (*models.ExamResult, error) {
	var result *models.ExamResult

	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		session, err := r.Session().GetByID(ctx, nil, sessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to get session: %w", err)
		}

		exam, err := r.Exam().GetByID(ctx, nil, session.ExamID)
		if err != nil {
			return fmt.Errorf("failed to get exam: %w", err)
		}
		if exam.CreatedBy == nil || *exam.CreatedBy != teacherID {
			return NewPermissionError(teacherID, sessionID, "result", "update", "only the exam creator may leave feedback")
		}

		result, err = r.Result().GetBySession(ctx, nil, sessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrResultNotFound
			}
			return fmt.Errorf("failed to get result: %w", err)
		}

		result.Feedback = &feedback
		result.Status = models.ResultReviewed
		return r.Result().Update(ctx, nil, result)
	})
	if err != nil {
		return nil, err
	}

	_ = s.notifier.PublishFeedbackUpdated(ctx, sessionID)
	return result, nil
}
