package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/shuffle"
)

const sessionCodeAttempts = 5

// generateSessionCode produces the session's unique code. The code doubles
// as the shuffle seed and as the purchase reference, so it must be unique
// across all sessions ever created; collisions are checked against the
// store and retried.
func (s *sessionService) generateSessionCode(ctx context.Context, r repositories.Repository) (string, error) {
	for i := 0; i < sessionCodeAttempts; i++ {
		raw := strings.ReplaceAll(uuid.New().String(), "-", "")
		code := "SES-" + strings.ToUpper(raw[:12])

		_, err := r.Session().GetByCode(ctx, nil, code)
		if repositories.IsNotFoundError(err) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check session code: %w", err)
		}
	}
	return "", fmt.Errorf("failed to generate unique session code after %d attempts", sessionCodeAttempts)
}

func findQuestion(exam *models.Exam, questionID uint) *models.ExamQuestion {
	for i := range exam.Questions {
		if exam.Questions[i].ID == questionID {
			return &exam.Questions[i]
		}
	}
	return nil
}

// buildAnswer validates the payload against the question kind and scores
// auto-gradeable answers. Each question is worth an equal slice of the
// exam's total score.
func (s *sessionService) buildAnswer(session *models.ExamSession, exam *models.Exam, question *models.ExamQuestion, req SubmitAnswerRequest) (*models.StudentAnswer, error) {
	answer := &models.StudentAnswer{
		SessionID:      session.ID,
		ExamQuestionID: question.ID,
	}

	if question.Type.IsAutoGradeable() {
		if req.SelectedAnswerID == nil {
			return nil, NewValidationError("selected_answer_id", "choice questions require a selected answer", nil)
		}

		var selected *models.QuestionAnswer
		for i := range question.Answers {
			if question.Answers[i].ID == *req.SelectedAnswerID {
				selected = &question.Answers[i]
				break
			}
		}
		if selected == nil {
			return nil, NewValidationError("selected_answer_id", "selected answer does not belong to the question", *req.SelectedAnswerID)
		}

		points := pointsPerQuestion(exam)
		score := 0.0
		if selected.IsCorrect {
			score = points
		}
		correct := selected.IsCorrect

		answer.SelectedAnswerID = req.SelectedAnswerID
		answer.Score = &score
		answer.IsCorrect = &correct
		return answer, nil
	}

	// Free-text kinds are stored without a score; grading happens outside
	// the session lifecycle.
	if req.AnswerText == nil || strings.TrimSpace(*req.AnswerText) == "" {
		return nil, NewValidationError("answer_text", "text questions require a non-empty answer", nil)
	}
	answer.AnswerText = req.AnswerText
	return answer, nil
}

func pointsPerQuestion(exam *models.Exam) float64 {
	if len(exam.Questions) == 0 {
		return 0
	}
	return exam.TotalScore / float64(len(exam.Questions))
}

// buildSessionResponse shapes a session for delivery: questions in the
// code-seeded shuffle order, options shuffled per question, correctness
// stripped. Terminal sessions carry no questions.
func (s *sessionService) buildSessionResponse(session *models.ExamSession, exam *models.Exam, now time.Time, resumed bool) *SessionResponse {
	response := &SessionResponse{
		ExamSession: session,
		Resumed:     resumed,
	}

	if remaining := session.EndTime.Sub(now); remaining > 0 && session.Status == models.SessionInProgress {
		response.TimeRemainingSeconds = int64(remaining.Seconds())
	}
	if session.Status != models.SessionInProgress {
		return response
	}

	response.Questions = shuffledQuestions(exam, session.Code)
	return response
}

func shuffledQuestions(exam *models.Exam, code string) []QuestionForSession {
	order := shuffle.Perm(shuffle.SeedFromToken(code), len(exam.Questions))

	questions := make([]QuestionForSession, 0, len(exam.Questions))
	for _, idx := range order {
		q := exam.Questions[idx]
		questions = append(questions, QuestionForSession{
			ID:      q.ID,
			Type:    q.Type,
			Text:    q.Text,
			Answers: shuffledOptions(&q, code),
		})
	}
	return questions
}

func shuffledOptions(q *models.ExamQuestion, code string) []AnswerOption {
	if len(q.Answers) == 0 {
		return nil
	}

	order := shuffle.Perm(shuffle.QuestionSeed(code, q.ID), len(q.Answers))
	options := make([]AnswerOption, 0, len(q.Answers))
	for _, idx := range order {
		options = append(options, AnswerOption{
			ID:   q.Answers[idx].ID,
			Text: q.Answers[idx].Text,
		})
	}
	return options
}
