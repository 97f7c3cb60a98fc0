// Package notify holds the transient toast notifications shown to a user
package notify

import (
	"sync"
	"time"

	"github.com/testforge/suite-service/internal/metrics"
)

// Level of a toast
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Toast is a single notification
type Toast struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier is what the page state machines report through
type Notifier interface {
	Success(message string)
	Error(message string)
	Info(message string)
}

// Queue collects toasts until the page drains them
type Queue struct {
	mu     sync.Mutex
	toasts []Toast
	limit  int
}

// DefaultLimit caps a queue nobody drains
const DefaultLimit = 50

// NewQueue creates an empty queue keeping at most DefaultLimit toasts
func NewQueue() *Queue {
	return &Queue{limit: DefaultLimit}
}

func (q *Queue) push(level Level, message string) {
	metrics.RecordToast(string(level))

	q.mu.Lock()
	defer q.mu.Unlock()

	q.toasts = append(q.toasts, Toast{Level: level, Message: message, At: time.Now().UTC()})
	if over := len(q.toasts) - q.limit; over > 0 {
		q.toasts = append([]Toast(nil), q.toasts[over:]...)
	}
}

// Success, Error and Info queue a toast of their level
func (q *Queue) Success(message string) { q.push(LevelSuccess, message) }
func (q *Queue) Error(message string)   { q.push(LevelError, message) }
func (q *Queue) Info(message string)    { q.push(LevelInfo, message) }

// Drain returns the pending toasts oldest first and empties the queue
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.toasts
	q.toasts = nil
	if out == nil {
		return []Toast{}
	}
	return out
}

// Len reports the number of pending toasts
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.toasts)
}
