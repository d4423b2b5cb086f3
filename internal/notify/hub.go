// Package notify implements the broadcast channel carrying task progress
// to connected browsers. Delivery is best effort: there is no replay for
// late joiners and a slow subscriber drops events rather than blocking
// the pipeline.
package notify

import (
	"sync"

	"go.uber.org/zap"
)

// Event kinds as they appear on the wire.
const (
	EventStatusUpdate  = "statusUpdate"
	EventTaskUpdate    = "taskUpdate"
	EventCardGenerated = "cardGenerated"
	EventImageCount    = "updateImageCount"
)

// Event is one immutable broadcast message.
type Event struct {
	Kind string
	Data any
}

// StatusUpdate is a free-text log line. An empty TaskID means "global".
type StatusUpdate struct {
	TaskID  string `json:"taskId"`
	Message string `json:"message"`
}

// TaskUpdate reports a task state change.
type TaskUpdate struct {
	TaskID   string `json:"taskId"`
	Status   string `json:"status"`
	Progress int    `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
}

// CardGenerated announces the finished artifact for a task.
type CardGenerated struct {
	TaskID  string `json:"taskId"`
	CardURL string `json:"cardUrl"`
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[int]chan Event),
		logger: logger,
	}
}

// Subscribe registers an observer. The returned cancel func must be
// called when the observer disconnects; after cancel the channel is
// closed and must not be read assuming further events.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Broadcast fans the event out to every current subscriber. The send is
// non-blocking: a full subscriber buffer means that subscriber misses
// the event.
func (h *Hub) Broadcast(kind string, data any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- Event{Kind: kind, Data: data}:
		default:
			h.logger.Debug("dropping event for slow subscriber", zap.String("kind", kind))
		}
	}
}

// StatusLog logs the message and broadcasts it as a statusUpdate event,
// mirroring what the browser renders as its activity log.
func (h *Hub) StatusLog(taskID, message string) {
	h.logger.Info(message, zap.String("task_id", taskID))
	h.Broadcast(EventStatusUpdate, StatusUpdate{TaskID: taskID, Message: message})
}

func (h *Hub) TaskUpdate(update TaskUpdate) {
	h.Broadcast(EventTaskUpdate, update)
}

func (h *Hub) CardGenerated(taskID, cardURL string) {
	h.Broadcast(EventCardGenerated, CardGenerated{TaskID: taskID, CardURL: cardURL})
}

func (h *Hub) ImageCount(count int64) {
	h.Broadcast(EventImageCount, count)
}

// SubscriberCount reports how many observers are currently connected.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
