// Package dispatch delivers evaluation tasks from a Redis list to a pool of
// workers. Delivery is at-least-once; the evaluation upsert absorbs repeats.
package dispatch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/welfareguard/internal/models"
)

// Task is one queued evaluation request.
type Task struct {
	ID         string            `json:"id"`
	Submission models.Submission `json:"submission"`
	Attempt    int               `json:"attempt"`
	EnqueuedAt time.Time         `json:"enqueued_at"`

	// payload is the exact encoding the task was dequeued with. Ack and
	// Retry remove the entry from the processing list by value.
	payload string
}

// NewTask wraps a submission for its first delivery attempt.
func NewTask(sub models.Submission) Task {
	return Task{
		ID:         uuid.NewString(),
		Submission: sub,
		EnqueuedAt: time.Now().UTC(),
	}
}

func (t Task) encode() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to encode task: %w", err)
	}
	return string(b), nil
}

func decodeTask(payload string) (*Task, error) {
	var t Task
	if err := json.Unmarshal([]byte(payload), &t); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTask, err)
	}
	t.payload = payload
	return &t, nil
}
