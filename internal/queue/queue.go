package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipstream/internal/media"
	"clipstream/internal/store"
	"clipstream/internal/uploader"
	clipstream_errors "clipstream/pkg/errors"
	"clipstream/pkg/logger"
)

// Uploader is the slice of the controller the queue depends on.
// *uploader.Controller satisfies it.
type Uploader interface {
	Upload(ctx context.Context, payload []byte, destPath string, opts uploader.Options) uploader.Result
	Cancel(id string) bool
}

// Publisher mirrors queue snapshots to an external channel (redis pub/sub in
// production). Best-effort: publish failures never affect task state.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type SubscriberFunc func(snapshots []Snapshot)

type Config struct {
	// Collection is the document-store collection placeholder records are
	// created in; it also prefixes destination paths.
	Collection string
	// CompletedRetention is how long a completed task stays visible before
	// it is removed from the active list.
	CompletedRetention time.Duration
	// VideoTimeoutHint is passed to the controller for video payloads.
	VideoTimeoutHint time.Duration
	// MaxPayloadBytes rejects oversized submissions up front. Zero disables
	// the check.
	MaxPayloadBytes int64
	// SnapshotChannel is the pub/sub channel snapshots are mirrored to.
	SnapshotChannel string
}

// Queue is the multi-item background worker above the controller. It
// materializes a placeholder record before any byte moves, drives the
// controller to completion, and finalizes or rolls back the record.
type Queue struct {
	uploader Uploader
	records  store.RecordStore
	pub      Publisher
	cfg      Config
	log      *logger.Logger

	mu    sync.Mutex
	tasks map[uuid.UUID]*Task
	order []uuid.UUID

	notifyMu sync.Mutex
	subs     map[int]SubscriberFunc
	nextSub  int
}

func New(up Uploader, records store.RecordStore, cfg Config, log *logger.Logger) *Queue {
	if cfg.Collection == "" {
		cfg.Collection = "posts"
	}
	if cfg.CompletedRetention <= 0 {
		cfg.CompletedRetention = 10 * time.Second
	}
	if cfg.SnapshotChannel == "" {
		cfg.SnapshotChannel = "uploads:snapshots"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Queue{
		uploader: up,
		records:  records,
		cfg:      cfg,
		log:      log,
		tasks:    make(map[uuid.UUID]*Task),
		subs:     make(map[int]SubscriberFunc),
	}
}

// SetPublisher attaches an optional snapshot mirror. Must be called before
// the first Submit.
func (q *Queue) SetPublisher(p Publisher) {
	q.pub = p
}

// Submit accepts a capture-time media item, creates its placeholder record,
// and starts processing in the background. It never blocks on the transfer:
// the only synchronous I/O is the placeholder creation.
func (q *Queue) Submit(ctx context.Context, ownerID uuid.UUID, payload []byte, contentType, caption string, kind media.Kind) (uuid.UUID, error) {
	if ownerID == uuid.Nil || len(payload) == 0 {
		return uuid.Nil, clipstream_errors.ErrInvalidInput
	}
	if q.cfg.MaxPayloadBytes > 0 && int64(len(payload)) > q.cfg.MaxPayloadBytes {
		return uuid.Nil, clipstream_errors.ErrTooLarge
	}

	preview := media.Derive(payload, contentType)
	if kind == "" {
		kind = preview.Kind
	}

	recordID, err := q.records.CreateRecord(ctx, q.cfg.Collection, store.Fields{
		"owner_id":        ownerID.String(),
		"caption":         caption,
		"media_kind":      string(kind),
		"preview":         preview,
		"still_uploading": true,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("create placeholder record: %w", err)
	}

	now := time.Now()
	t := &Task{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Caption:       caption,
		Kind:          kind,
		Status:        StatusPending,
		PlaceholderID: recordID,
		CreatedAt:     now,
		UpdatedAt:     now,
		payload:       payload,
		contentType:   preview.ContentType,
	}

	q.mu.Lock()
	q.tasks[t.ID] = t
	q.order = append(q.order, t.ID)
	q.mu.Unlock()

	q.log.Infof("task %s submitted: %d bytes, kind=%s, record=%s", t.ID, len(payload), kind, recordID)
	q.notify()

	go q.process(t.ID)
	return t.ID, nil
}

// Subscribe registers a callback that receives a full snapshot of the task
// list on every state change. The current state is delivered immediately.
// The returned function unsubscribes.
func (q *Queue) Subscribe(fn SubscriberFunc) func() {
	q.notifyMu.Lock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn
	q.notifyMu.Unlock()

	current := q.snapshotAll()
	q.notifyMu.Lock()
	fn(current)
	q.notifyMu.Unlock()

	return func() {
		q.notifyMu.Lock()
		delete(q.subs, id)
		q.notifyMu.Unlock()
	}
}

// Retry restarts a failed task with a fresh transfer session. Any other
// state is rejected so a task can never hold two concurrent sessions.
func (q *Queue) Retry(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return clipstream_errors.ErrNotFound
	}
	if err := t.transition(StatusPending); err != nil {
		q.mu.Unlock()
		return err
	}
	t.Progress = 0
	t.LastError = ""
	t.FinalURL = ""
	t.sessionID = ""
	q.mu.Unlock()

	q.log.Infof("task %s retrying", id)
	q.notify()
	go q.process(id)
	return nil
}

// Cancel stops the task's transfer if one is active, removes the task from
// the queue, and stops further notifications for it. The placeholder record
// is left as-is.
func (q *Queue) Cancel(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return clipstream_errors.ErrNotFound
	}
	sessionID := t.sessionID
	q.removeLocked(id)
	q.mu.Unlock()

	if sessionID != "" {
		q.uploader.Cancel(sessionID)
	}
	q.log.Infof("task %s cancelled", id)
	q.notify()
	return nil
}

// Status reports task counts by status.
func (q *Queue) Status() map[Status]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	counts := make(map[Status]int, 4)
	for _, t := range q.tasks {
		counts[t.Status]++
	}
	return counts
}

// Snapshots returns the current full task list.
func (q *Queue) Snapshots() []Snapshot {
	return q.snapshotAll()
}

func (q *Queue) process(id uuid.UUID) {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok || t.Status != StatusPending {
		q.mu.Unlock()
		return
	}
	if err := t.transition(StatusUploading); err != nil {
		q.mu.Unlock()
		return
	}
	sessionID := uuid.NewString()
	t.sessionID = sessionID
	payload := t.payload
	contentType := t.contentType
	destPath := fmt.Sprintf("%s/%s/media%s", q.cfg.Collection, t.PlaceholderID, media.FileExt(contentType))
	var hint time.Duration
	if t.Kind == media.KindVideo {
		hint = q.cfg.VideoTimeoutHint
	}
	q.mu.Unlock()
	q.notify()

	res := q.uploader.Upload(context.Background(), payload, destPath, uploader.Options{
		SessionID:   sessionID,
		ContentType: contentType,
		TimeoutHint: hint,
		OnProgress: func(transferred, total int64) {
			q.setProgress(id, transferred, total)
		},
	})

	switch {
	case res.OK:
		q.finalize(id, res.URL)

	case res.Cancelled:
		// Cancel already removed the task and notified. If the session died
		// through the controller directly, clean up here.
		q.mu.Lock()
		if _, still := q.tasks[id]; still {
			q.removeLocked(id)
			q.mu.Unlock()
			q.notify()
		} else {
			q.mu.Unlock()
		}

	default:
		q.fail(id, res)
	}
}

// finalize patches the placeholder with the final URL and schedules the task
// off the active list after the retention window.
func (q *Queue) finalize(id uuid.UUID, url string) {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	placeholderID := t.PlaceholderID
	q.mu.Unlock()

	patchErr := q.records.PatchRecord(context.Background(), q.cfg.Collection, placeholderID, store.Fields{
		"media_url":       url,
		"still_uploading": false,
	})

	q.mu.Lock()
	t, ok = q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	if patchErr != nil {
		// Bytes are in storage but the record still says uploading; surface
		// as a failure so the caller can retry the finalization path.
		t.transition(StatusFailed)
		t.LastError = fmt.Sprintf("upload finished but finalizing the post failed: %v", patchErr)
		q.mu.Unlock()
		q.log.Errorf("task %s finalize failed: %v", id, patchErr)
		q.notify()
		return
	}
	t.transition(StatusCompleted)
	t.Progress = 100
	t.FinalURL = url
	t.payload = nil
	t.sessionID = ""
	q.mu.Unlock()

	q.log.Infof("task %s completed: %s", id, url)
	q.notify()

	time.AfterFunc(q.cfg.CompletedRetention, func() {
		q.mu.Lock()
		if cur, still := q.tasks[id]; still && cur.Status == StatusCompleted {
			q.removeLocked(id)
			q.mu.Unlock()
			q.notify()
			return
		}
		q.mu.Unlock()
	})
}

// fail marks the task failed and leaves the placeholder record in its
// "still uploading" state for operator visibility.
func (q *Queue) fail(id uuid.UUID, res uploader.Result) {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	t.transition(StatusFailed)
	if res.Message != "" {
		t.LastError = res.Message
	} else if res.Err != nil {
		t.LastError = res.Err.Error()
	}
	t.sessionID = ""
	msg := t.LastError
	q.mu.Unlock()

	q.log.Warnf("task %s failed: %s", id, msg)
	q.notify()
}

func (q *Queue) setProgress(id uuid.UUID, transferred, total int64) {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok || t.Status != StatusUploading {
		q.mu.Unlock()
		return
	}
	if total <= 0 {
		total = int64(len(t.payload))
	}
	pct := t.Progress
	if total > 0 {
		pct = int(transferred * 100 / total)
	}
	if pct > 100 {
		pct = 100
	}
	if pct <= t.Progress {
		q.mu.Unlock()
		return
	}
	t.Progress = pct
	t.UpdatedAt = time.Now()
	q.mu.Unlock()
	q.notify()
}

func (q *Queue) removeLocked(id uuid.UUID) {
	delete(q.tasks, id)
	for i, tid := range q.order {
		if tid == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

func (q *Queue) snapshotAll() []Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	snaps := make([]Snapshot, 0, len(q.order))
	for _, id := range q.order {
		if t, ok := q.tasks[id]; ok {
			snaps = append(snaps, t.snapshot())
		}
	}
	return snaps
}

// notify delivers the full snapshot list to every subscriber. Deliveries are
// serialized behind notifyMu so no two snapshot fans overlap.
func (q *Queue) notify() {
	snaps := q.snapshotAll()

	q.notifyMu.Lock()
	for _, fn := range q.subs {
		fn(snaps)
	}
	q.notifyMu.Unlock()

	if q.pub != nil {
		go func() {
			body, err := json.Marshal(snaps)
			if err != nil {
				return
			}
			if err := q.pub.Publish(context.Background(), q.cfg.SnapshotChannel, body); err != nil {
				q.log.Debugf("snapshot publish failed: %v", err)
			}
		}()
	}
}
