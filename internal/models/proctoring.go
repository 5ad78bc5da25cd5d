package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProctoringEvent is a cheating-signal observation reported by the exam
// client (tab switch, focus loss, copy attempt). Events are persisted for
// later review and broadcast live to observers of the exam's channel.
type ProctoringEvent struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	SessionID uint           `json:"session_id" gorm:"not null;index"`
	ExamID    uint           `json:"exam_id" gorm:"not null;index"`
	StudentID uint           `json:"student_id" gorm:"not null;index"`
	EventType string         `json:"event_type" gorm:"size:50;not null"`
	Payload   datatypes.JSON `json:"payload" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
}
