package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	examHandler    *ExamHandler
	wsHandler      *WSHandler

	serviceManager services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	slogger *slog.Logger,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(serviceManager.Session(), serviceManager.Finalize(), validator, logger),
		examHandler:    NewExamHandler(serviceManager.Export(), serviceManager.Proctoring(), serviceManager.Settlement(), validator, logger),
		wsHandler:      NewWSHandler(serviceManager.Hub(), slogger, logger),
		serviceManager: serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(IdentityMiddleware())
	{
		exams := v1.Group("/exams")
		{
			exams.POST("/:id/sessions", hm.sessionHandler.StartSession)
			exams.GET("/:id/sessions/current", hm.sessionHandler.GetCurrentSession)
			exams.POST("/:id/events", hm.examHandler.ReportProctoringEvent)

			exams.GET("/:id/results/export",
				RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin),
				hm.examHandler.ExportResults)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.GET("", hm.sessionHandler.ListSessions)
			sessions.POST("/:id/answers", hm.sessionHandler.SubmitAnswer)
			sessions.POST("/:id/submit", hm.sessionHandler.SubmitSession)
			sessions.GET("/:id/result", hm.sessionHandler.GetResult)
			sessions.PUT("/:id/result/feedback",
				RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin),
				hm.sessionHandler.UpdateFeedback)
			sessions.GET("/:id/events",
				RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin),
				hm.examHandler.ListProctoringEvents)
		}

		v1.GET("/ledger", hm.examHandler.GetLedger)

		v1.GET("/ws/exams/:id", hm.wsHandler.WatchExam)
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "exam-session-service",
	})
}
