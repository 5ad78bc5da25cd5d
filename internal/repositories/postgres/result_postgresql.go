package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type ResultPostgreSQL struct {
	db *gorm.DB
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{db: db}
}

func (r *ResultPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Upsert writes the result keyed by session. Finalization is idempotent at
// the service level, so a second write for the same session replaces the
// scoring columns rather than failing.
func (r *ResultPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, result *models.ExamResult) error {
	db := r.getDB(tx)
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_score", "correct_count", "wrong_count", "percentage", "status", "updated_at",
			}),
		}).
		Create(result).Error
}

func (r *ResultPostgreSQL) GetBySession(ctx context.Context, tx *gorm.DB, sessionID uint) (*models.ExamResult, error) {
	db := r.getDB(tx)
	var result models.ExamResult
	if err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultPostgreSQL) GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.ExamResult, error) {
	db := r.getDB(tx)
	var results []*models.ExamResult
	if err := db.WithContext(ctx).
		Joins("JOIN exam_sessions ON exam_sessions.id = exam_results.session_id").
		Where("exam_sessions.exam_id = ?", examID).
		Preload("Session").
		Preload("Session.Student").
		Order("exam_results.total_score DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ResultPostgreSQL) Update(ctx context.Context, tx *gorm.DB, result *models.ExamResult) error {
	db := r.getDB(tx)
	return db.WithContext(ctx).Save(result).Error
}

// ===== STUDENT EXAM STATUS =====

type StudentExamStatusPostgreSQL struct {
	db *gorm.DB
}

func NewStudentExamStatusPostgreSQL(db *gorm.DB) repositories.StudentExamStatusRepository {
	return &StudentExamStatusPostgreSQL{db: db}
}

func (s *StudentExamStatusPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *StudentExamStatusPostgreSQL) GetOrCreateForUpdate(ctx context.Context, tx *gorm.DB, studentID, examID uint) (*models.StudentExamStatus, error) {
	db := s.getDB(tx)

	var status models.StudentExamStatus
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ? AND exam_id = ?", studentID, examID).
		First(&status).Error
	if err == nil {
		return &status, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	status = models.StudentExamStatus{
		StudentID: studentID,
		ExamID:    examID,
		Status:    models.ExamNotStarted,
	}
	// A concurrent transaction may create the row between our miss and the
	// insert; resolve the conflict by re-reading under lock.
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "exam_id"}},
			DoNothing: true,
		}).
		Create(&status).Error; err != nil {
		return nil, err
	}
	if status.ID != 0 {
		return &status, nil
	}

	if err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ? AND exam_id = ?", studentID, examID).
		First(&status).Error; err != nil {
		return nil, err
	}
	return &status, nil
}

func (s *StudentExamStatusPostgreSQL) Update(ctx context.Context, tx *gorm.DB, status *models.StudentExamStatus) error {
	db := s.getDB(tx)
	return db.WithContext(ctx).Save(status).Error
}
