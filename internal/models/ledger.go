package models

import (
	"time"
)

type TransferType string

const (
	TransferIn  TransferType = "in"
	TransferOut TransferType = "out"
)

// Purchase records one paid exam attempt. Both ledger entries of a
// settlement reference the same purchase row, which is what makes the
// debit/credit pair auditable as a unit.
type Purchase struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	ExamID      uint    `json:"exam_id" gorm:"not null;index"`
	StudentID   uint    `json:"student_id" gorm:"not null;index"`
	SessionCode string  `json:"session_code" gorm:"size:64;index"`
	Amount      float64 `json:"amount" gorm:"type:decimal(12,2);not null"`

	CreatedAt time.Time `json:"created_at"`
}

// LedgerEntry is an append-only audit row for a single balance mutation.
// BeforeBalance/AfterBalance are snapshots taken inside the settlement
// transaction, so point-in-time balances never need recomputation.
type LedgerEntry struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	UserID       uint         `json:"user_id" gorm:"not null;index"`
	PurchaseID   uint         `json:"purchase_id" gorm:"not null;index"`
	TransferType TransferType `json:"transfer_type" gorm:"size:5;not null"`
	Amount       float64      `json:"amount" gorm:"type:decimal(12,2);not null"`

	BeforeBalance float64 `json:"before_balance" gorm:"type:decimal(12,2);not null"`
	AfterBalance  float64 `json:"after_balance" gorm:"type:decimal(12,2);not null"`

	CreatedAt time.Time `json:"created_at"`

	Purchase Purchase `json:"-" gorm:"foreignKey:PurchaseID"`
}
