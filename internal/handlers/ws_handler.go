package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/realtime"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks happen at the gateway.
		return true
	},
}

// WSHandler upgrades observer connections onto the realtime hub.
type WSHandler struct {
	BaseHandler
	hub     *realtime.Hub
	slogger *slog.Logger
}

func NewWSHandler(hub *realtime.Hub, slogger *slog.Logger, logger utils.Logger) *WSHandler {
	return &WSHandler{
		BaseHandler: NewBaseHandler(logger),
		hub:         hub,
		slogger:     slogger,
	}
}

// WatchExam subscribes the caller to an exam's live event channel
// @Summary Watch exam events
// @Tags proctoring
// @Param id path uint true "Exam ID"
// @Router /ws/exams/{id} [get]
func (h *WSHandler) WatchExam(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	// Students cannot observe other students' sessions.
	if role := currentUserRole(c); role == models.RoleStudent {
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Insufficient permissions"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.slogger.Error("websocket upgrade failed", "error", err)
		return
	}

	channel := realtime.ExamChannel(examID)
	client := realtime.NewClient(conn, h.slogger)
	h.hub.Subscribe(client, channel)

	go client.WritePump()
	go client.ReadPump(func() {
		h.hub.Unsubscribe(client, channel)
	})
}
