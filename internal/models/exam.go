package models

import (
	"time"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
)

// IsAutoGradeable reports whether answers of this kind are scored at intake.
// Short-answer and essay responses wait for manual grading.
func (t QuestionType) IsAutoGradeable() bool {
	switch t {
	case SingleChoice, MultipleChoice, TrueFalse:
		return true
	default:
		return false
	}
}

type Exam struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	Title           string     `json:"title" gorm:"size:255;not null"`
	Description     *string    `json:"description" gorm:"type:text"`
	DurationMinutes int        `json:"duration_minutes" gorm:"not null"`
	TotalScore      float64    `json:"total_score" gorm:"type:decimal(12,2);not null"`
	IsPaid          bool       `json:"is_paid" gorm:"default:false"`
	Fee             float64    `json:"fee" gorm:"type:decimal(12,2);default:0"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	CreatedBy       *uint      `json:"created_by" gorm:"index"`
	IsPublic        bool       `json:"is_public" gorm:"default:false"`
	AttemptCount    int        `json:"attempt_count" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Creator   *User          `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`
	Questions []ExamQuestion `json:"questions,omitempty" gorm:"foreignKey:ExamID"`
}

// WindowContains reports whether the exam's availability window (if any)
// contains the given instant. Unbounded sides are always open.
func (e *Exam) WindowContains(now time.Time) bool {
	if e.StartTime != nil && now.Before(*e.StartTime) {
		return false
	}
	if e.EndTime != nil && now.After(*e.EndTime) {
		return false
	}
	return true
}

type ExamQuestion struct {
	ID       uint         `json:"id" gorm:"primaryKey"`
	ExamID   uint         `json:"exam_id" gorm:"not null;index"`
	Type     QuestionType `json:"type" gorm:"size:30;not null"`
	Text     string       `json:"text" gorm:"type:text;not null"`
	Position int          `json:"position" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Answers []QuestionAnswer `json:"answers,omitempty" gorm:"foreignKey:QuestionID"`
}

type QuestionAnswer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"type:text;not null"`
	IsCorrect  bool   `json:"is_correct" gorm:"default:false"`
}

// ExamClass attaches an exam to a class roster. Non-public exams are only
// reachable through at least one of these links.
type ExamClass struct {
	ID      uint `json:"id" gorm:"primaryKey"`
	ExamID  uint `json:"exam_id" gorm:"not null;uniqueIndex:idx_exam_class"`
	ClassID uint `json:"class_id" gorm:"not null;uniqueIndex:idx_exam_class"`

	CreatedAt time.Time `json:"created_at"`
}
