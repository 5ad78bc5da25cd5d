package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/realtime"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

// ServiceManager wires the services together and owns their lifecycle,
// including the background sweeper.
type ServiceManager interface {
	Session() SessionService
	Settlement() SettlementService
	Finalize() FinalizeService
	Proctoring() ProctoringService
	Export() ExportService
	NotificationEvents() NotificationEventService
	Hub() *realtime.Hub

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	SweepInterval  time.Duration
	SweepBatchSize int
	RevenueShare   float64
	DefaultTimeout time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	db             *gorm.DB
	repo           repositories.Repository
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
	config         ServiceManagerConfig

	hub                *realtime.Hub
	sessionService     SessionService
	settlementService  SettlementService
	finalizeService    FinalizeService
	proctoringService  ProctoringService
	exportService      ExportService
	notificationEvents NotificationEventService
	sweeper            *AutoSubmitSweeper

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, eventPublisher events.EventPublisher, config ServiceManagerConfig) ServiceManager {
	if config.SweepInterval <= 0 {
		config.SweepInterval = 60 * time.Second
	}
	if config.SweepBatchSize <= 0 {
		config.SweepBatchSize = 10
	}
	if config.RevenueShare <= 0 {
		config.RevenueShare = 0.80
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = 30 * time.Second
	}

	return &serviceManager{
		db:             db,
		repo:           repo,
		logger:         logger,
		validator:      validator,
		eventPublisher: eventPublisher,
		config:         config,
	}
}

// Initialize sets up all services, starts the realtime hub and launches
// the auto-submit sweeper.
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	sm.hub = realtime.NewHub(sm.logger)
	go sm.hub.Run()

	sm.notificationEvents = NewNotificationEventService(sm.repo, sm.eventPublisher, sm.logger)
	sm.settlementService = NewSettlementService(sm.repo, sm.logger, sm.notificationEvents, sm.config.RevenueShare)
	sm.finalizeService = NewFinalizeService(sm.repo, sm.logger, sm.notificationEvents, sm.hub)
	sm.sessionService = NewSessionService(sm.repo, sm.logger, sm.validator, sm.settlementService, sm.finalizeService, sm.notificationEvents)
	sm.proctoringService = NewProctoringService(sm.repo, sm.db, sm.logger, sm.validator, sm.eventPublisher, sm.hub)
	sm.exportService = NewExportService(sm.repo, sm.db, sm.logger)

	sm.sweeper = NewAutoSubmitSweeper(sm.repo, sm.logger, sm.finalizeService, sm.config.SweepInterval, sm.config.SweepBatchSize)
	sm.sweeper.Start()

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")
	return nil
}

// Service getters

func (sm *serviceManager) Session() SessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.sessionService
}

func (sm *serviceManager) Settlement() SettlementService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.settlementService
}

func (sm *serviceManager) Finalize() FinalizeService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.finalizeService
}

func (sm *serviceManager) Proctoring() ProctoringService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.proctoringService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.exportService
}

func (sm *serviceManager) NotificationEvents() NotificationEventService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.notificationEvents
}

func (sm *serviceManager) Hub() *realtime.Hub {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.hub
}

// Health and lifecycle

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}
	return sm.repo.Ping(ctx)
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.sweeper != nil {
		sm.sweeper.Stop()
	}
	if sm.hub != nil {
		sm.hub.Stop()
	}
	if sm.eventPublisher != nil {
		if err := sm.eventPublisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")
	return nil
}

// WithTimeout creates a context with the default timeout
func (sm *serviceManager) WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, sm.config.DefaultTimeout)
}
