package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

// ExamHandler serves the teacher-facing exam-scoped endpoints: exports,
// proctoring reporting and ledger reads.
type ExamHandler struct {
	BaseHandler
	exportService     services.ExportService
	proctoringService services.ProctoringService
	settlementService services.SettlementService
	validator         *validator.Validator
}

func NewExamHandler(
	exportService services.ExportService,
	proctoringService services.ProctoringService,
	settlementService services.SettlementService,
	validator *validator.Validator,
	logger utils.Logger,
) *ExamHandler {
	return &ExamHandler{
		BaseHandler:       NewBaseHandler(logger),
		exportService:     exportService,
		proctoringService: proctoringService,
		settlementService: settlementService,
		validator:         validator,
	}
}

// ExportResults streams an xlsx workbook with every result of the exam
// @Summary Export exam results
// @Tags exams
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Exam ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Router /exams/{id}/results/export [get]
func (h *ExamHandler) ExportResults(c *gin.Context) {
	h.LogRequest(c, "Exporting exam results")

	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	data, filename, err := h.exportService.ExportResults(c.Request.Context(), examID, currentUserID(c), currentUserRole(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ReportProctoringEvent records a cheating signal for a running session
// @Summary Report proctoring event
// @Tags proctoring
// @Accept json
// @Param id path uint true "Exam ID"
// @Param event body services.ProctoringEventRequest true "Event payload"
// @Success 202
// @Failure 409 {object} ErrorResponse
// @Router /exams/{id}/events [post]
func (h *ExamHandler) ReportProctoringEvent(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	var req services.ProctoringEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.proctoringService.ReportEvent(c.Request.Context(), examID, currentUserID(c), req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// ListProctoringEvents returns the recorded signals of one session
// @Summary List proctoring events
// @Tags proctoring
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} gin.H
// @Failure 403 {object} ErrorResponse
// @Router /sessions/{id}/events [get]
func (h *ExamHandler) ListProctoringEvents(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	var filters repositories.ProctoringFilters
	if eventType := c.Query("event_type"); eventType != "" {
		filters.EventType = &eventType
	}

	events, total, err := h.proctoringService.ListEvents(c.Request.Context(), sessionID, currentUserID(c), currentUserRole(c), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "total": total})
}

// GetLedger returns the caller's ledger entries
// @Summary Get balance ledger
// @Tags settlement
// @Produce json
// @Success 200 {object} services.LedgerListResponse
// @Router /ledger [get]
func (h *ExamHandler) GetLedger(c *gin.Context) {
	limit, offset := paginationParams(c)
	response, err := h.settlementService.GetLedger(c.Request.Context(), currentUserID(c), limit, offset)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}
