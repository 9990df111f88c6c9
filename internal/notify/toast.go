package notify

import (
	"sync"
	"time"

	"vitalguard/internal/models"

	"github.com/google/uuid"
)

const defaultMaxToasts = 50

// ToastQueue in-app notifications, newest first
type ToastQueue struct {
	mu    sync.Mutex
	items []models.Notification
	max   int
	now   func() time.Time
}

// NewToastQueue creates a queue keeping at most max items
func NewToastQueue(max int) *ToastQueue {
	if max <= 0 {
		max = defaultMaxToasts
	}
	return &ToastQueue{max: max, now: time.Now}
}

// Push adds a toast at the front; the oldest is dropped past capacity
func (q *ToastQueue) Push(tag models.NotificationChannel, title, message string) models.Notification {
	n := models.Notification{
		ID:        uuid.New().String(),
		Channel:   tag,
		Title:     title,
		Message:   message,
		Timestamp: q.now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]models.Notification{n}, q.items...)
	if len(q.items) > q.max {
		q.items = q.items[:q.max]
	}
	return n
}

// List copy, newest first
func (q *ToastQueue) List() []models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.Notification, len(q.items))
	copy(out, q.items)
	return out
}

// Remove drops one toast; false when the id is unknown
func (q *ToastQueue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear drops everything
func (q *ToastQueue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

// Len current size
func (q *ToastQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
