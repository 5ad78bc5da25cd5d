package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/cache"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db *gorm.DB

	// txBound marks a repository whose db is already a running transaction,
	// handed out by WithTransaction. Such reads never touch the cache.
	txBound      bool
	cacheManager *cache.CacheManager
}

func NewExamPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ExamRepository {
	return newExamPostgreSQL(db, redisClient, false)
}

func newExamPostgreSQL(db *gorm.DB, redisClient *redis.Client, txBound bool) *ExamPostgreSQL {
	return &ExamPostgreSQL{
		db:           db,
		txBound:      txBound,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (e *ExamPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return e.db
}

func (e *ExamPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	db := e.getDB(tx)
	var exam models.Exam
	if err := db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	db := e.getDB(tx)

	// Exam content is immutable while an exam is live, so the loaded tree
	// is safe to cache. Transactional reads bypass the cache.
	if tx == nil && !e.txBound {
		cacheKey := fmt.Sprintf("full:%d", id)
		var exam models.Exam
		err := e.cacheManager.Exam.CacheOrExecute(ctx, cacheKey, &exam, cache.ExamCacheConfig.TTL, func() (interface{}, error) {
			return e.loadWithQuestions(ctx, db, id)
		})
		if err != nil {
			return nil, err
		}
		return &exam, nil
	}

	return e.loadWithQuestions(ctx, db, id)
}

func (e *ExamPostgreSQL) loadWithQuestions(ctx context.Context, db *gorm.DB, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("exam_questions.position ASC")
		}).
		Preload("Questions.Answers").
		First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) IncrementAttemptCount(ctx context.Context, tx *gorm.DB, id uint) error {
	db := e.getDB(tx)
	return db.WithContext(ctx).
		Model(&models.Exam{}).
		Where("id = ?", id).
		UpdateColumn("attempt_count", gorm.Expr("attempt_count + 1")).Error
}

func (e *ExamPostgreSQL) CanStudentAccess(ctx context.Context, tx *gorm.DB, examID, studentID uint) (bool, error) {
	db := e.getDB(tx)

	var exam models.Exam
	if err := db.WithContext(ctx).Select("id, is_public").First(&exam, examID).Error; err != nil {
		return false, err
	}
	if exam.IsPublic {
		return true, nil
	}

	var count int64
	err := db.WithContext(ctx).
		Model(&models.ClassMember{}).
		Joins("JOIN exam_classes ON exam_classes.class_id = class_members.class_id").
		Where("exam_classes.exam_id = ? AND class_members.student_id = ? AND class_members.is_banned = ?",
			examID, studentID, false).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check exam access: %w", err)
	}

	return count > 0, nil
}
