package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

// ===== FILTERS =====

type SessionFilters struct {
	Status    *models.SessionStatus `json:"status"`
	ExamID    *uint                 `json:"exam_id"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`    // "created_at", "start_time", "total_score"
	SortOrder string                `json:"sort_order"` // "asc", "desc"
}

type ProctoringFilters struct {
	EventType *string    `json:"event_type"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// ===== EXAM DOMAIN =====

type ExamRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	IncrementAttemptCount(ctx context.Context, tx *gorm.DB, id uint) error

	// CanStudentAccess reports whether the student may sit the exam: the
	// exam is public, or the student belongs to a class the exam is
	// assigned to and is not banned from it.
	CanStudentAccess(ctx context.Context, tx *gorm.DB, examID, studentID uint) (bool, error)
}

// ===== SESSION DOMAIN =====

type SessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamSession, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamSession, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.ExamSession, error)
	Update(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.SessionStatus) error

	// GetActiveSession returns the student's in-progress session for the
	// exam, locking the row when forUpdate is set.
	GetActiveSession(ctx context.Context, tx *gorm.DB, examID, studentID uint, forUpdate bool) (*models.ExamSession, error)

	// GetOverdueSessions returns up to limit in-progress sessions whose
	// end time has passed, oldest first.
	GetOverdueSessions(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*models.ExamSession, error)

	GetByStudent(ctx context.Context, tx *gorm.DB, studentID uint, filters SessionFilters) ([]*models.ExamSession, int64, error)
}

type AnswerRepository interface {
	// Upsert inserts the answer or replaces the existing row for the same
	// (session, question) pair.
	Upsert(ctx context.Context, tx *gorm.DB, answer *models.StudentAnswer) error
	GetBySession(ctx context.Context, tx *gorm.DB, sessionID uint) ([]*models.StudentAnswer, error)
	CountBySession(ctx context.Context, tx *gorm.DB, sessionID uint) (int64, error)
}

type ResultRepository interface {
	Upsert(ctx context.Context, tx *gorm.DB, result *models.ExamResult) error
	GetBySession(ctx context.Context, tx *gorm.DB, sessionID uint) (*models.ExamResult, error)
	GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.ExamResult, error)
	Update(ctx context.Context, tx *gorm.DB, result *models.ExamResult) error
}

type StudentExamStatusRepository interface {
	// GetOrCreateForUpdate returns the student's per-exam bookkeeping row,
	// creating it when absent. The row is locked for the transaction.
	GetOrCreateForUpdate(ctx context.Context, tx *gorm.DB, studentID, examID uint) (*models.StudentExamStatus, error)
	Update(ctx context.Context, tx *gorm.DB, status *models.StudentExamStatus) error
}

// ===== SETTLEMENT DOMAIN =====

type UserRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)

	// GetByIDForUpdate locks the user row, serializing concurrent balance
	// changes on the same user.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)
	UpdateBalance(ctx context.Context, tx *gorm.DB, id uint, balance float64) error
}

type LedgerRepository interface {
	CreatePurchase(ctx context.Context, tx *gorm.DB, purchase *models.Purchase) error
	CreateEntry(ctx context.Context, tx *gorm.DB, entry *models.LedgerEntry) error
	GetEntriesByUser(ctx context.Context, tx *gorm.DB, userID uint, limit, offset int) ([]*models.LedgerEntry, int64, error)
}

// ===== PROCTORING DOMAIN =====

type ProctoringRepository interface {
	Create(ctx context.Context, tx *gorm.DB, event *models.ProctoringEvent) error
	GetBySession(ctx context.Context, tx *gorm.DB, sessionID uint, filters ProctoringFilters) ([]*models.ProctoringEvent, int64, error)
}

// IsNotFoundError reports whether err is a record-not-found error from the
// underlying store.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKeyError reports whether err is a unique-constraint violation.
func IsDuplicateKeyError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
