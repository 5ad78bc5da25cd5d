package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u *UserPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return u.db
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	db := u.getDB(tx)
	var user models.User
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIDForUpdate locks the user row. Balance reads that precede a balance
// write must go through here so concurrent settlements on the same user
// serialize instead of double-spending.
func (u *UserPostgreSQL) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	db := u.getDB(tx)
	var user models.User
	if err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) UpdateBalance(ctx context.Context, tx *gorm.DB, id uint, balance float64) error {
	db := u.getDB(tx)
	return db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("balance", balance).Error
}

// ===== LEDGER =====

type LedgerPostgreSQL struct {
	db *gorm.DB
}

func NewLedgerPostgreSQL(db *gorm.DB) repositories.LedgerRepository {
	return &LedgerPostgreSQL{db: db}
}

func (l *LedgerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return l.db
}

func (l *LedgerPostgreSQL) CreatePurchase(ctx context.Context, tx *gorm.DB, purchase *models.Purchase) error {
	db := l.getDB(tx)
	return db.WithContext(ctx).Create(purchase).Error
}

func (l *LedgerPostgreSQL) CreateEntry(ctx context.Context, tx *gorm.DB, entry *models.LedgerEntry) error {
	db := l.getDB(tx)
	return db.WithContext(ctx).Create(entry).Error
}

func (l *LedgerPostgreSQL) GetEntriesByUser(ctx context.Context, tx *gorm.DB, userID uint, limit, offset int) ([]*models.LedgerEntry, int64, error) {
	db := l.getDB(tx)
	var entries []*models.LedgerEntry
	var total int64

	query := db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 20
	}
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get ledger entries: %w", err)
	}

	return entries, total, nil
}
