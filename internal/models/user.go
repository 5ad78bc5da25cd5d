package models

import (
	"time"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// User is the local projection of an identity-provider principal plus the
// internal balance the settlement ledger debits and credits. Authentication
// happens upstream; this row exists for balance accounting and relations.
type User struct {
	ID      uint     `json:"id" gorm:"primaryKey"`
	Name    string   `json:"name" gorm:"size:255"`
	Email   string   `json:"email" gorm:"size:255;index"`
	Role    UserRole `json:"role" gorm:"size:20;default:student;index"`
	Balance float64  `json:"balance" gorm:"type:decimal(12,2);default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClassMember links a student to a class; banned members lose access to
// class-attached exams without being removed from the roster.
type ClassMember struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	ClassID   uint `json:"class_id" gorm:"not null;uniqueIndex:idx_class_student"`
	StudentID uint `json:"student_id" gorm:"not null;uniqueIndex:idx_class_student"`
	IsBanned  bool `json:"is_banned" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
}
