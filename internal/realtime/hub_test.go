package realtime

import (
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.Send():
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestHub_BroadcastToChannel(t *testing.T) {
	hub := NewHub(testLogger())
	go hub.Run()
	defer hub.Stop()

	observer := NewClient(nil, testLogger())
	hub.Subscribe(observer, ExamChannel(1))

	hub.Emit(ExamChannel(1), "proctoring.signal", map[string]interface{}{
		"session_id": 10,
		"event_type": "tab_switch",
	})

	msg := receive(t, observer)
	if msg.Event != "proctoring.signal" {
		t.Errorf("expected event proctoring.signal, got %s", msg.Event)
	}
	if msg.Channel != "exam_1" {
		t.Errorf("expected channel exam_1, got %s", msg.Channel)
	}
}

func TestHub_ChannelsAreIsolated(t *testing.T) {
	hub := NewHub(testLogger())
	go hub.Run()
	defer hub.Stop()

	examOne := NewClient(nil, testLogger())
	examTwo := NewClient(nil, testLogger())
	hub.Subscribe(examOne, ExamChannel(1))
	hub.Subscribe(examTwo, ExamChannel(2))

	hub.Emit(ExamChannel(2), "session.started", map[string]interface{}{"session_id": 99})

	msg := receive(t, examTwo)
	if msg.Channel != "exam_2" {
		t.Errorf("expected channel exam_2, got %s", msg.Channel)
	}

	select {
	case data := <-examOne.Send():
		t.Errorf("exam_1 observer should not receive exam_2 events, got %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_UnsubscribeClosesSendQueue(t *testing.T) {
	hub := NewHub(testLogger())
	go hub.Run()
	defer hub.Stop()

	observer := NewClient(nil, testLogger())
	hub.Subscribe(observer, ExamChannel(3))
	hub.Unsubscribe(observer, ExamChannel(3))

	select {
	case _, ok := <-observer.Send():
		if ok {
			t.Error("expected closed send queue after unsubscribe")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send queue was not closed")
	}
}
