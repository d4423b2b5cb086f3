package notify

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for event")
		return Event{}
	}
}

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))

	a, cancelA := h.Subscribe(4)
	defer cancelA()
	b, cancelB := h.Subscribe(4)
	defer cancelB()

	h.TaskUpdate(TaskUpdate{TaskID: "t1", Status: "analyzing", Progress: 25})

	for _, ch := range []<-chan Event{a, b} {
		ev := receive(t, ch)
		if ev.Kind != EventTaskUpdate {
			t.Errorf("Expected %s, got %s", EventTaskUpdate, ev.Kind)
		}
		update, ok := ev.Data.(TaskUpdate)
		if !ok || update.TaskID != "t1" || update.Progress != 25 {
			t.Errorf("Unexpected payload: %+v", ev.Data)
		}
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))

	ch, cancel := h.Subscribe(4)
	cancel()

	if h.SubscriberCount() != 0 {
		t.Errorf("Expected 0 subscribers, got %d", h.SubscriberCount())
	}

	// Channel is closed after cancel; broadcast must not panic.
	h.StatusLog("t1", "after cancel")

	if _, open := <-ch; open {
		t.Error("Expected closed channel after cancel")
	}
}

func TestHub_CancelTwiceIsSafe(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))

	_, cancel := h.Subscribe(1)
	cancel()
	cancel()
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))

	ch, cancel := h.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.StatusLog("t1", "first")
		h.StatusLog("t1", "second") // buffer full, must be dropped
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a slow subscriber")
	}

	ev := receive(t, ch)
	if ev.Data.(StatusUpdate).Message != "first" {
		t.Errorf("Unexpected event: %+v", ev.Data)
	}
	select {
	case ev := <-ch:
		t.Errorf("Expected dropped event, got %+v", ev)
	default:
	}
}

func TestHub_ImageCountPayload(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))

	ch, cancel := h.Subscribe(1)
	defer cancel()

	h.ImageCount(7)

	ev := receive(t, ch)
	if ev.Kind != EventImageCount {
		t.Errorf("Expected %s, got %s", EventImageCount, ev.Kind)
	}
	if count, ok := ev.Data.(int64); !ok || count != 7 {
		t.Errorf("Expected count 7, got %+v", ev.Data)
	}
}
