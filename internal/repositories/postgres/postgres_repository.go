package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/cache"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

// PostgreSQLRepository implements the main Repository interface
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	exam       repositories.ExamRepository
	session    repositories.SessionRepository
	answer     repositories.AnswerRepository
	result     repositories.ResultRepository
	status     repositories.StudentExamStatusRepository
	user       repositories.UserRepository
	ledger     repositories.LedgerRepository
	proctoring repositories.ProctoringRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
}

// NewPostgreSQLRepository creates a new repository with all sub-repositories
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	repo := &PostgreSQLRepository{
		db:           config.DB,
		redisClient:  config.RedisClient,
		cacheManager: cache.NewCacheManager(config.RedisClient),
	}
	repo.initSubRepositories(config.DB, config.RedisClient, false)
	return repo
}

func (r *PostgreSQLRepository) initSubRepositories(db *gorm.DB, redisClient *redis.Client, txBound bool) {
	r.exam = newExamPostgreSQL(db, redisClient, txBound)
	r.session = NewSessionPostgreSQL(db, redisClient)
	r.answer = NewAnswerPostgreSQL(db)
	r.result = NewResultPostgreSQL(db)
	r.status = NewStudentExamStatusPostgreSQL(db)
	r.user = NewUserPostgreSQL(db)
	r.ledger = NewLedgerPostgreSQL(db)
	r.proctoring = NewProctoringPostgreSQL(db)
}

func (r *PostgreSQLRepository) Exam() repositories.ExamRepository { return r.exam }
func (r *PostgreSQLRepository) Session() repositories.SessionRepository {
	return r.session
}
func (r *PostgreSQLRepository) Answer() repositories.AnswerRepository { return r.answer }
func (r *PostgreSQLRepository) Result() repositories.ResultRepository { return r.result }
func (r *PostgreSQLRepository) Status() repositories.StudentExamStatusRepository {
	return r.status
}
func (r *PostgreSQLRepository) User() repositories.UserRepository     { return r.user }
func (r *PostgreSQLRepository) Ledger() repositories.LedgerRepository { return r.ledger }
func (r *PostgreSQLRepository) Proctoring() repositories.ProctoringRepository {
	return r.proctoring
}

// WithTransaction executes a function within a database transaction
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgreSQLRepository{
			db:           tx,
			redisClient:  r.redisClient,
			cacheManager: r.cacheManager,
		}
		txRepo.initSubRepositories(tx, r.redisClient, true)
		return fn(txRepo)
	})
}

// Ping checks the health of database and cache connections
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}
	return nil
}

// Close closes all connections
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}
	return nil
}

// AutoMigrate creates or updates the schema for all owned models. The
// partial unique index guarding one active session per (exam, student) is
// declared on the ExamSession model and created here.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ClassMember{},
		&models.Exam{},
		&models.ExamQuestion{},
		&models.QuestionAnswer{},
		&models.ExamClass{},
		&models.ExamSession{},
		&models.StudentAnswer{},
		&models.ExamResult{},
		&models.StudentExamStatus{},
		&models.Purchase{},
		&models.LedgerEntry{},
		&models.ProctoringEvent{},
	)
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{config: config}
}

// Initialize validates connections and builds the repository instance
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if rm.config.RedisClient != nil {
		if _, err := rm.config.RedisClient.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("Redis connection failed: %w", err)
		}
	}

	rm.repo = NewPostgreSQLRepository(rm.config)
	return nil
}

// GetRepository returns the repository instance
func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

// HealthCheck checks the health of all repository connections
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}
	return rm.repo.Ping(ctx)
}

// Shutdown gracefully shuts down all repository connections
func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}
	return rm.repo.Close()
}
