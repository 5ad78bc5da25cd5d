package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
)

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// BaseHandler carries the pieces every handler needs.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string) {
	utils.FromContext(c, h.logger).Info(msg, "path", c.Request.URL.Path)
}

// parseIDParam parses a numeric path parameter. On failure it writes the
// 400 response and returns 0; callers just check for 0.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name + " parameter",
			Details: raw,
		})
		return 0
	}
	return uint(id)
}

func paginationParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("size", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page > 1 {
		offset = (page - 1) * limit
	}
	return limit, offset
}

// handleServiceError maps service-layer errors onto HTTP responses.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	logger := utils.FromContext(c, h.logger)

	var validationErr *services.ValidationError
	var permissionErr *services.PermissionError
	var balanceErr *services.InsufficientBalanceError
	var paymentErr *services.PaymentError

	switch {
	case errors.Is(err, services.ErrExamNotFound),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrQuestionNotFound),
		errors.Is(err, services.ErrResultNotFound),
		errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrSessionNotActive),
		errors.Is(err, services.ErrSessionAlreadySubmitted):
		c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrSessionExpired):
		c.JSON(http.StatusGone, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrExamNotAvailable),
		errors.Is(err, services.ErrExamHasNoQuestions):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: err.Error()})

	case errors.As(err, &balanceErr):
		c.JSON(http.StatusPaymentRequired, ErrorResponse{
			Message: "Insufficient balance",
			Details: gin.H{
				"current_balance": balanceErr.CurrentBalance,
				"required_amount": balanceErr.RequiredAmount,
			},
		})

	case errors.As(err, &paymentErr):
		// A settlement that got past the balance check and still failed is
		// an infrastructure fault, not a client mistake.
		logger.Error("payment failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Payment failed"})

	case errors.As(err, &permissionErr):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: err.Error()})

	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: validationErr.Message,
			Details: gin.H{"field": validationErr.Field},
		})

	default:
		logger.Error("internal error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
