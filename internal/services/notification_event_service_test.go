package services

import (
	"context"
	"testing"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
)

func TestNotificationEventService(t *testing.T) {
	publisher := events.NewMockEventPublisher(newSweeperTestLogger())
	svc := NewNotificationEventService(&MockSweeperRepository{}, publisher, newSweeperTestLogger())
	ctx := context.Background()

	t.Run("Session_Started", func(t *testing.T) {
		publisher.ClearEvents()

		err := svc.PublishSessionStarted(ctx, SessionEventData{
			SessionID: 7,
			ExamID:    1,
			StudentID: 100,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("expected 1 event, got %d", len(published))
		}
		event := published[0]
		if event.Type != events.EventSessionStarted {
			t.Errorf("expected %s, got %s", events.EventSessionStarted, event.Type)
		}
		if event.ID == "" || event.Source != events.EventSource || event.Timestamp.IsZero() {
			t.Errorf("envelope not filled: %+v", event)
		}
	})

	t.Run("Exam_Submitted", func(t *testing.T) {
		publisher.ClearEvents()

		if err := svc.PublishExamSubmitted(ctx, SessionEventData{SessionID: 7}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EventExamSubmitted {
			t.Errorf("expected one exam.submitted event, got %v", published)
		}
	})

	t.Run("Exam_Purchased", func(t *testing.T) {
		publisher.ClearEvents()

		if err := svc.PublishExamPurchased(ctx, 1, 100, 20); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EventExamPurchased {
			t.Fatalf("expected one exam.purchased event, got %v", published)
		}
		data, ok := published[0].Data.(map[string]interface{})
		if !ok {
			t.Fatalf("expected map payload, got %T", published[0].Data)
		}
		if data["amount"] != float64(20) {
			t.Errorf("expected amount 20, got %v", data["amount"])
		}
	})

	t.Run("Feedback_Updated", func(t *testing.T) {
		publisher.ClearEvents()

		if err := svc.PublishFeedbackUpdated(ctx, 7); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EventFeedbackUpdated {
			t.Errorf("expected one feedback event, got %v", published)
		}
	})
}
