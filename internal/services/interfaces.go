package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

// ===== SESSION RELATED DTOs =====

type StartSessionRequest struct {
	ExamID uint `json:"exam_id" validate:"required"`
}

// AnswerOption is one selectable option, stripped of correctness.
type AnswerOption struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// QuestionForSession is a question as delivered to the student: shuffled
// position, shuffled options, no is_correct flags.
type QuestionForSession struct {
	ID      uint                `json:"id"`
	Type    models.QuestionType `json:"type"`
	Text    string              `json:"text"`
	Answers []AnswerOption      `json:"answers,omitempty"`
}

type SessionResponse struct {
	*models.ExamSession
	Questions            []QuestionForSession `json:"questions,omitempty"`
	TimeRemainingSeconds int64                `json:"time_remaining_seconds"`
	Resumed              bool                 `json:"resumed"`
}

type SessionListResponse struct {
	Sessions []*models.ExamSession `json:"sessions"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	Size     int                   `json:"size"`
}

type SubmitAnswerRequest struct {
	QuestionID       uint    `json:"question_id" validate:"required"`
	SelectedAnswerID *uint   `json:"selected_answer_id"`
	AnswerText       *string `json:"answer_text" validate:"omitempty,max=10000"`
}

type AnswerResponse struct {
	QuestionID    uint     `json:"question_id"`
	Saved         bool     `json:"saved"`
	Score         *float64 `json:"score,omitempty"`
	AnsweredCount int64    `json:"answered_count"`
}

type SubmitResponse struct {
	Result           *models.ExamResult `json:"result,omitempty"`
	AlreadySubmitted bool               `json:"already_submitted"`
}

type FeedbackRequest struct {
	Feedback string `json:"feedback" validate:"required,max=5000"`
}

// ===== SETTLEMENT RELATED DTOs =====

type LedgerListResponse struct {
	Entries []*models.LedgerEntry `json:"entries"`
	Total   int64                 `json:"total"`
}

// ===== PROCTORING RELATED DTOs =====

type ProctoringEventRequest struct {
	SessionID uint                   `json:"session_id" validate:"required"`
	EventType string                 `json:"event_type" validate:"required,max=50"`
	Payload   map[string]interface{} `json:"payload"`
}

// ===== SERVICE INTERFACES =====

// SessionService owns the session lifecycle from start through answer
// intake to submission.
type SessionService interface {
	// Start opens a session for the student, or returns the still-active
	// one. Paid exams are settled inside the same transaction.
	Start(ctx context.Context, examID, studentID uint) (*SessionResponse, error)

	// GetCurrent returns the student's active session for the exam. An
	// overdue session is finalized first and reported as submitted.
	GetCurrent(ctx context.Context, examID, studentID uint) (*SessionResponse, error)

	// List returns the student's sessions across exams.
	List(ctx context.Context, studentID uint, filters repositories.SessionFilters) (*SessionListResponse, error)

	// SubmitAnswer records one answer, auto-scoring it when the question
	// kind allows.
	SubmitAnswer(ctx context.Context, sessionID, studentID uint, req SubmitAnswerRequest) (*AnswerResponse, error)

	// Submit finalizes the session on the student's request.
	Submit(ctx context.Context, sessionID, studentID uint) (*SubmitResponse, error)
}

// SettlementService moves money when a student starts a paid exam.
type SettlementService interface {
	// Settle debits the student, credits the exam creator their revenue
	// share and writes the purchase plus both ledger entries. The caller
	// passes its transaction-bound repository so a later failure rolls
	// everything back.
	Settle(ctx context.Context, txRepo repositories.Repository, exam *models.Exam, studentID uint, sessionCode string) error

	// GetLedger returns a user's ledger entries, newest first.
	GetLedger(ctx context.Context, userID uint, limit, offset int) (*LedgerListResponse, error)
}

// FinalizeService is the single choke point that closes a session and
// produces its result. Submit, the sweeper and read-side expiry all go
// through Finalize.
type FinalizeService interface {
	Finalize(ctx context.Context, sessionID uint) (*SubmitResponse, error)

	GetResult(ctx context.Context, sessionID, requesterID uint, role models.UserRole) (*models.ExamResult, error)

	// UpdateFeedback lets the exam creator attach feedback to a result.
	UpdateFeedback(ctx context.Context, sessionID, teacherID uint, feedback string) (*models.ExamResult, error)
}

// ProctoringService records cheating signals and relays them to observers.
type ProctoringService interface {
	ReportEvent(ctx context.Context, examID, studentID uint, req ProctoringEventRequest) error
	ListEvents(ctx context.Context, sessionID, requesterID uint, role models.UserRole, filters repositories.ProctoringFilters) ([]*models.ProctoringEvent, int64, error)
}

// ExportService produces teacher-facing result exports.
type ExportService interface {
	// ExportResults renders all results of an exam as an xlsx workbook.
	ExportResults(ctx context.Context, examID, requesterID uint, role models.UserRole) ([]byte, string, error)
}

// SessionEventData is the payload carried by session lifecycle events.
type SessionEventData struct {
	SessionID uint       `json:"session_id"`
	ExamID    uint       `json:"exam_id"`
	StudentID uint       `json:"student_id"`
	Status    string     `json:"status"`
	Score     *float64   `json:"score,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// NotificationEventService publishes lifecycle events for downstream
// consumers (notification service, analytics).
type NotificationEventService interface {
	PublishSessionStarted(ctx context.Context, data SessionEventData) error
	PublishExamSubmitted(ctx context.Context, data SessionEventData) error
	PublishExamPurchased(ctx context.Context, examID, studentID uint, amount float64) error
	PublishFeedbackUpdated(ctx context.Context, sessionID uint) error
}
