package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

type SessionHandler struct {
	BaseHandler
	sessionService  services.SessionService
	finalizeService services.FinalizeService
	validator       *validator.Validator
}

func NewSessionHandler(
	sessionService services.SessionService,
	finalizeService services.FinalizeService,
	validator *validator.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:     NewBaseHandler(logger),
		sessionService:  sessionService,
		finalizeService: finalizeService,
		validator:       validator,
	}
}

// StartSession opens a session for an exam
// @Summary Start exam session
// @Description Opens a session for the exam, settling the fee when paid. Returns the running session when one already exists.
// @Tags sessions
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 201 {object} services.SessionResponse
// @Failure 402 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /exams/{id}/sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	h.LogRequest(c, "Starting exam session")

	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	response, err := h.sessionService.Start(c.Request.Context(), examID, currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if response.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, response)
}

// GetCurrentSession returns the caller's running session for an exam
// @Summary Get current session
// @Tags sessions
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/sessions/current [get]
func (h *SessionHandler) GetCurrentSession(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	response, err := h.sessionService.GetCurrent(c.Request.Context(), examID, currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// ListSessions returns the caller's sessions
// @Summary List sessions
// @Tags sessions
// @Produce json
// @Success 200 {object} services.SessionListResponse
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	filters := repositories.SessionFilters{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if status := c.Query("status"); status != "" {
		s := models.SessionStatus(status)
		filters.Status = &s
	}
	if raw := c.Query("exam_id"); raw != "" {
		if examID, err := strconv.ParseUint(raw, 10, 64); err == nil {
			id := uint(examID)
			filters.ExamID = &id
		}
	}
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("size", "20"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page > 1 {
		filters.Offset = (page - 1) * filters.Limit
	}

	response, err := h.sessionService.List(c.Request.Context(), currentUserID(c), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// SubmitAnswer records one answer in a running session
// @Summary Submit answer
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path uint true "Session ID"
// @Param answer body services.SubmitAnswerRequest true "Answer payload"
// @Success 200 {object} services.AnswerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /sessions/{id}/answers [post]
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	response, err := h.sessionService.SubmitAnswer(c.Request.Context(), sessionID, currentUserID(c), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// SubmitSession finalizes a session on the student's request
// @Summary Submit session
// @Tags sessions
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} services.SubmitResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/submit [post]
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	h.LogRequest(c, "Submitting exam session")

	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	response, err := h.sessionService.Submit(c.Request.Context(), sessionID, currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetResult returns the result of a session
// @Summary Get session result
// @Tags results
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} models.ExamResult
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/result [get]
func (h *SessionHandler) GetResult(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	result, err := h.finalizeService.GetResult(c.Request.Context(), sessionID, currentUserID(c), currentUserRole(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdateFeedback attaches creator feedback to a result
// @Summary Update result feedback
// @Tags results
// @Accept json
// @Produce json
// @Param id path uint true "Session ID"
// @Param feedback body services.FeedbackRequest true "Feedback"
// @Success 200 {object} models.ExamResult
// @Failure 403 {object} ErrorResponse
// @Router /sessions/{id}/result/feedback [put]
func (h *SessionHandler) UpdateFeedback(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	var req services.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
		return
	}

	result, err := h.finalizeService.UpdateFeedback(c.Request.Context(), sessionID, currentUserID(c), req.Feedback)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
