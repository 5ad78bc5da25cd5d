package models

import (
	"time"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionExpired    SessionStatus = "expired"
	SessionSubmitted  SessionStatus = "submitted"
	SessionCancelled  SessionStatus = "cancelled"
)

// IsTerminal reports whether the session can no longer accept answers or be
// finalized again.
func (s SessionStatus) IsTerminal() bool {
	return s != SessionInProgress
}

// ExamSession is one timed attempt by one student at one exam. The partial
// unique index on (exam_id, student_id) enforces the single-active-attempt
// invariant at the storage layer, so two racing starts cannot both insert.
type ExamSession struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	ExamID    uint          `json:"exam_id" gorm:"not null;index;uniqueIndex:idx_sessions_active,where:status = 'in_progress'"`
	StudentID uint          `json:"student_id" gorm:"not null;index;uniqueIndex:idx_sessions_active,where:status = 'in_progress'"`
	Code      string        `json:"code" gorm:"size:64;not null;uniqueIndex"`
	StartTime time.Time     `json:"start_time" gorm:"not null"`
	EndTime   time.Time     `json:"end_time" gorm:"not null;index"`
	Status    SessionStatus `json:"status" gorm:"size:20;default:in_progress;index"`

	TotalScore  *float64   `json:"total_score" gorm:"type:decimal(12,2)"`
	SubmittedAt *time.Time `json:"submitted_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Exam    Exam            `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	Student User            `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Answers []StudentAnswer `json:"answers,omitempty" gorm:"foreignKey:SessionID"`
	Result  *ExamResult     `json:"result,omitempty" gorm:"foreignKey:SessionID"`
}

// IsOverdue reports whether the computed deadline has passed, regardless of
// the stored status. Read paths treat an overdue in_progress session as
// finished even before the sweeper catches it.
func (s *ExamSession) IsOverdue(now time.Time) bool {
	return now.After(s.EndTime)
}

// StudentAnswer holds at most one response per (session, question). Choice
// answers carry SelectedAnswerID; free-text kinds carry AnswerText with
// Score/IsCorrect left null until manual grading.
type StudentAnswer struct {
	ID             uint `json:"id" gorm:"primaryKey"`
	SessionID      uint `json:"session_id" gorm:"not null;uniqueIndex:idx_session_question"`
	ExamQuestionID uint `json:"exam_question_id" gorm:"not null;uniqueIndex:idx_session_question"`

	SelectedAnswerID *uint   `json:"selected_answer_id"`
	AnswerText       *string `json:"answer_text" gorm:"type:text"`

	Score     *float64 `json:"score" gorm:"type:decimal(12,2)"`
	IsCorrect *bool    `json:"is_correct"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Session  ExamSession  `json:"-" gorm:"foreignKey:SessionID"`
	Question ExamQuestion `json:"-" gorm:"foreignKey:ExamQuestionID"`
}

type ResultStatus string

const (
	ResultGraded    ResultStatus = "graded"
	ResultReviewed  ResultStatus = "reviewed"
	ResultFinalized ResultStatus = "finalized"
)

// ExamResult is the permanent record of a finalized session, 1:1 with the
// session row. After creation only Feedback and the regrading fields change.
type ExamResult struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	SessionID    uint         `json:"session_id" gorm:"not null;uniqueIndex"`
	TotalScore   float64      `json:"total_score" gorm:"type:decimal(12,2)"`
	CorrectCount int          `json:"correct_count"`
	WrongCount   int          `json:"wrong_count"`
	Percentage   float64      `json:"percentage" gorm:"type:decimal(5,2)"`
	Status       ResultStatus `json:"status" gorm:"size:20;default:graded"`
	Feedback     *string      `json:"feedback" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Session *ExamSession `json:"-" gorm:"foreignKey:SessionID"`
}

type StudentExamState string

const (
	ExamNotStarted StudentExamState = "not_started"
	ExamInProgress StudentExamState = "in_progress"
	ExamCompleted  StudentExamState = "completed"
)

// StudentExamStatus is the rolling aggregate across all of a student's
// attempts at one exam. CurrentSessionID is non-nil exactly while the status
// is in_progress.
type StudentExamStatus struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	StudentID uint `json:"student_id" gorm:"not null;uniqueIndex:idx_student_exam"`
	ExamID    uint `json:"exam_id" gorm:"not null;uniqueIndex:idx_student_exam"`

	AttemptCount     int              `json:"attempt_count" gorm:"default:0"`
	Status           StudentExamState `json:"status" gorm:"size:20;default:not_started"`
	BestScore        float64          `json:"best_score" gorm:"type:decimal(12,2);default:0"`
	LastScore        float64          `json:"last_score" gorm:"type:decimal(12,2);default:0"`
	BestPercentage   float64          `json:"best_percentage" gorm:"type:decimal(5,2);default:0"`
	LastPercentage   float64          `json:"last_percentage" gorm:"type:decimal(5,2);default:0"`
	CurrentSessionID *uint            `json:"current_session_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
