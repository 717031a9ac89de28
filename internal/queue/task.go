package queue

import (
	"time"

	"github.com/google/uuid"

	"clipstream/internal/media"
	clipstream_errors "clipstream/pkg/errors"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// legalTransitions is the full status machine: pending→uploading→{completed,
// failed}, plus failed→pending for explicit retries. Nothing else.
var legalTransitions = map[Status][]Status{
	StatusPending:   {StatusUploading},
	StatusUploading: {StatusCompleted, StatusFailed},
	StatusFailed:    {StatusPending},
}

// Task is one submitted media item working its way through the queue.
// All mutation happens under the queue's lock.
type Task struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Caption       string
	Kind          media.Kind
	Status        Status
	Progress      int
	PlaceholderID uuid.UUID
	FinalURL      string
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	payload     []byte
	contentType string
	sessionID   string
}

func (t *Task) transition(to Status) error {
	for _, allowed := range legalTransitions[t.Status] {
		if allowed == to {
			t.Status = to
			t.UpdatedAt = time.Now()
			return nil
		}
	}
	return clipstream_errors.ErrInvalidTransition
}

// Snapshot is the caller-visible copy of a task. Subscribers always receive
// the full task list as snapshots, never diffs.
type Snapshot struct {
	ID            uuid.UUID  `json:"id"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	Caption       string     `json:"caption"`
	Kind          media.Kind `json:"kind"`
	Status        Status     `json:"status"`
	Progress      int        `json:"progress"`
	PlaceholderID uuid.UUID  `json:"placeholder_id"`
	FinalURL      string     `json:"final_url,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (t *Task) snapshot() Snapshot {
	return Snapshot{
		ID:            t.ID,
		OwnerID:       t.OwnerID,
		Caption:       t.Caption,
		Kind:          t.Kind,
		Status:        t.Status,
		Progress:      t.Progress,
		PlaceholderID: t.PlaceholderID,
		FinalURL:      t.FinalURL,
		LastError:     t.LastError,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
