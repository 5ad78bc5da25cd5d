package events

import (
	"context"
	"time"
)

// Event is the envelope every published message uses.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

const (
	EventSource  = "exam-session-service"
	EventVersion = "1.0"
)

// Event types emitted by the session lifecycle.
const (
	EventSessionStarted   = "session.started"
	EventExamSubmitted    = "exam.submitted"
	EventExamPurchased    = "exam.purchased"
	EventFeedbackUpdated  = "result.feedback_updated"
	EventProctoringSignal = "proctoring.signal"
)

// EventPublisher abstracts the message transport. Publishing is best
// effort for lifecycle events: a failed publish is logged, never rolled
// into the enclosing database transaction.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
	Close() error
}

// Topic names, one per consumer concern.
const (
	TopicSessionEvents    = "exam.session.events"
	TopicSettlementEvents = "exam.settlement.events"
	TopicProctoringEvents = "exam.proctoring.events"
)
