package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type ProctoringPostgreSQL struct {
	db *gorm.DB
}

func NewProctoringPostgreSQL(db *gorm.DB) repositories.ProctoringRepository {
	return &ProctoringPostgreSQL{db: db}
}

func (p *ProctoringPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}

func (p *ProctoringPostgreSQL) Create(ctx context.Context, tx *gorm.DB, event *models.ProctoringEvent) error {
	db := p.getDB(tx)
	return db.WithContext(ctx).Create(event).Error
}

func (p *ProctoringPostgreSQL) GetBySession(ctx context.Context, tx *gorm.DB, sessionID uint, filters repositories.ProctoringFilters) ([]*models.ProctoringEvent, int64, error) {
	db := p.getDB(tx)
	var events []*models.ProctoringEvent
	var total int64

	query := db.WithContext(ctx).Model(&models.ProctoringEvent{}).Where("session_id = ?", sessionID)
	if filters.EventType != nil {
		query = query.Where("event_type = ?", *filters.EventType)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(filters.Offset).
		Find(&events).Error; err != nil {
		return nil, 0, err
	}

	return events, total, nil
}
