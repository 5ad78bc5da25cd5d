package repositories

import "context"

// Repository aggregates all sub-repository interfaces.
type Repository interface {
	// Exam domain (read-mostly; exams are authored by another service)
	Exam() ExamRepository

	// Session domain
	Session() SessionRepository
	Answer() AnswerRepository
	Result() ResultRepository
	Status() StudentExamStatusRepository

	// Settlement domain
	User() UserRepository
	Ledger() LedgerRepository

	// Proctoring domain
	Proctoring() ProctoringRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
