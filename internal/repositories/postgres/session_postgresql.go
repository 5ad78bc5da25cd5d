package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/exam-session-service/internal/cache"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type SessionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewSessionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.SessionRepository {
	return &SessionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (s *SessionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *SessionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error {
	db := s.getDB(tx)
	return db.WithContext(ctx).Create(session).Error
}

func (s *SessionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamSession, error) {
	db := s.getDB(tx)
	var session models.ExamSession
	if err := db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// GetByIDForUpdate locks the session row for the duration of the enclosing
// transaction. Finalization takes this lock so concurrent submit, sweeper
// and read-side finalization serialize on the same row.
func (s *SessionPostgreSQL) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamSession, error) {
	db := s.getDB(tx)
	var session models.ExamSession
	if err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.ExamSession, error) {
	db := s.getDB(tx)
	var session models.ExamSession
	if err := db.WithContext(ctx).Where("code = ?", code).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Save(session).Error; err != nil {
		return err
	}
	s.invalidate(ctx, session.ID)
	return nil
}

func (s *SessionPostgreSQL) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.SessionStatus) error {
	db := s.getDB(tx)
	err := db.WithContext(ctx).
		Model(&models.ExamSession{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *SessionPostgreSQL) GetActiveSession(ctx context.Context, tx *gorm.DB, examID, studentID uint, forUpdate bool) (*models.ExamSession, error) {
	db := s.getDB(tx)

	query := db.WithContext(ctx).
		Where("exam_id = ? AND student_id = ? AND status = ?", examID, studentID, models.SessionInProgress)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var session models.ExamSession
	if err := query.First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetOverdueSessions(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*models.ExamSession, error) {
	db := s.getDB(tx)
	var sessions []*models.ExamSession
	if err := db.WithContext(ctx).
		Where("status = ? AND end_time <= ?", models.SessionInProgress, now).
		Order("end_time ASC").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to get overdue sessions: %w", err)
	}
	return sessions, nil
}

func (s *SessionPostgreSQL) GetByStudent(ctx context.Context, tx *gorm.DB, studentID uint, filters repositories.SessionFilters) ([]*models.ExamSession, int64, error) {
	db := s.getDB(tx)
	var sessions []*models.ExamSession
	var total int64

	query := db.WithContext(ctx).Model(&models.ExamSession{}).Where("student_id = ?", studentID)
	query = applySessionFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applySessionPaginationAndSort(query, filters)

	if err := query.Preload("Exam").Preload("Result").Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func (s *SessionPostgreSQL) invalidate(ctx context.Context, id uint) {
	_ = s.cacheManager.Session.Delete(ctx, fmt.Sprintf("id:%d", id))
}

// ===== STUDENT ANSWERS =====

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (a *AnswerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// Upsert writes the answer, replacing any previous answer for the same
// question in the same session. Re-answering overwrites score and
// correctness along with the payload.
func (a *AnswerPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, answer *models.StudentAnswer) error {
	db := a.getDB(tx)
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "exam_question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"selected_answer_id", "answer_text", "score", "is_correct", "updated_at",
			}),
		}).
		Create(answer).Error
}

func (a *AnswerPostgreSQL) GetBySession(ctx context.Context, tx *gorm.DB, sessionID uint) ([]*models.StudentAnswer, error) {
	db := a.getDB(tx)
	var answers []*models.StudentAnswer
	if err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (a *AnswerPostgreSQL) CountBySession(ctx context.Context, tx *gorm.DB, sessionID uint) (int64, error) {
	db := a.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.StudentAnswer{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}
