package services

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services. Handlers map these to HTTP
// status codes.
var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrResultNotFound   = errors.New("result not found")
	ErrUserNotFound     = errors.New("user not found")

	ErrExamNotAvailable        = errors.New("exam is not available")
	ErrSessionNotActive        = errors.New("session is not active")
	ErrSessionAlreadySubmitted = errors.New("session already submitted")
	ErrSessionExpired          = errors.New("session has expired")
	ErrExamHasNoQuestions      = errors.New("exam has no questions")
)

// ValidationError marks a request payload problem on a specific field.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// PermissionError marks an authorization failure: the caller exists but may
// not perform the action on the resource.
type PermissionError struct {
	UserID   uint
	ID       uint
	Resource string
	Action   string
	Reason   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %d cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ID, e.Reason)
}

func NewPermissionError(userID, id uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:   userID,
		ID:       id,
		Resource: resource,
		Action:   action,
		Reason:   reason,
	}
}

// InsufficientBalanceError is returned when a paid exam costs more than the
// student's balance. It carries both amounts so clients can show a
// meaningful top-up prompt.
type InsufficientBalanceError struct {
	CurrentBalance float64
	RequiredAmount float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %.2f, need %.2f", e.CurrentBalance, e.RequiredAmount)
}

func NewInsufficientBalanceError(current, required float64) *InsufficientBalanceError {
	return &InsufficientBalanceError{CurrentBalance: current, RequiredAmount: required}
}

// PaymentError wraps a settlement failure that is not a balance problem
// (missing creator account, ledger write failure).
type PaymentError struct {
	Stage string
	Err   error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment failed at %s: %v", e.Stage, e.Err)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

func NewPaymentError(stage string, err error) *PaymentError {
	return &PaymentError{Stage: stage, Err: err}
}
