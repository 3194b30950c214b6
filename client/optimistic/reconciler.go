// Package optimistic tracks provisional messages: entries shown to the user
// the moment they hit send, later replaced by the server's canonical payload
// or marked failed.
package optimistic

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neegandary/NexChat/internal/model"
)

// Status of a provisional entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

const provisionalPrefix = "tmp-"

// IsProvisional reports whether id is a locally minted message id.
func IsProvisional(id string) bool { return strings.HasPrefix(id, provisionalPrefix) }

// Entry is one tracked message. Until confirmation the Message carries a
// provisional id and a local timestamp; after Resolve it is the canonical
// server record.
type Entry struct {
	ClientTag string
	Status    Status
	Message   model.Message
}

// Reconciler owns the provisional entries for one conversation view. All
// mutations take the lock; snapshots are copies, safe to render from any
// goroutine.
type Reconciler struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*Entry
	now     func() time.Time
}

func New() *Reconciler {
	return &Reconciler{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Add registers a submission and returns its provisional entry. The returned
// ClientTag must travel with the submission so Resolve can match the echo.
func (r *Reconciler) Add(req model.SubmitRequest) Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	tag := req.ClientTag
	if tag == "" {
		tag = provisionalPrefix + uuid.New().String()
	}
	e := &Entry{
		ClientTag: tag,
		Status:    StatusPending,
		Message: model.Message{
			MessageID:   provisionalPrefix + uuid.New().String(),
			SenderID:    req.SenderID,
			RecipientID: req.RecipientID,
			MessageType: req.MessageType,
			Content:     req.Content,
			FileRef:     req.FileRef,
			Timestamp:   r.now(),
		},
	}
	r.entries[tag] = e
	r.order = append(r.order, tag)
	return *e
}

// Resolve matches a canonical payload to its provisional entry by ClientTag
// and replaces the local message with the server record. Returns false when
// no entry matches, which is the normal case for messages sent by the
// counterpart or by another device.
func (r *Reconciler) Resolve(p *model.CanonicalPayload) bool {
	if p.ClientTag == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[p.ClientTag]
	if !ok || e.Status == StatusConfirmed {
		return false
	}
	e.Message = p.Message
	e.Status = StatusConfirmed
	return true
}

// Fail marks the entry for tag as failed. Failed entries leave the visible
// snapshot but are retained so Retry can resubmit the payload.
func (r *Reconciler) Fail(tag string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[tag]
	if !ok || e.Status != StatusPending {
		return false
	}
	e.Status = StatusFailed
	return true
}

// Retry re-registers a failed entry under a fresh tag and provisional id,
// appended at the end of the order. The failed original is removed. Returns
// the new entry and the submission to resend.
func (r *Reconciler) Retry(tag string) (Entry, model.SubmitRequest, bool) {
	r.mu.Lock()
	e, ok := r.entries[tag]
	if !ok || e.Status != StatusFailed {
		r.mu.Unlock()
		return Entry{}, model.SubmitRequest{}, false
	}
	req := model.SubmitRequest{
		SenderID:    e.Message.SenderID,
		RecipientID: e.Message.RecipientID,
		MessageType: e.Message.MessageType,
		Content:     e.Message.Content,
		FileRef:     e.Message.FileRef,
	}
	r.removeLocked(tag)
	r.mu.Unlock()

	fresh := r.Add(req)
	req.ClientTag = fresh.ClientTag
	return fresh, req, true
}

// Remove drops the entry for tag, typically after a failed message is
// dismissed.
func (r *Reconciler) Remove(tag string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[tag]; !ok {
		return false
	}
	r.removeLocked(tag)
	return true
}

func (r *Reconciler) removeLocked(tag string) {
	delete(r.entries, tag)
	for i, t := range r.order {
		if t == tag {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Snapshot returns the visible entries in submission order. Failed entries
// are excluded; use Failed to enumerate them.
func (r *Reconciler) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.order))
	for _, tag := range r.order {
		e := r.entries[tag]
		if e.Status == StatusFailed {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// Failed returns the failed entries in submission order, for retry or
// dismissal affordances.
func (r *Reconciler) Failed() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, tag := range r.order {
		if e := r.entries[tag]; e.Status == StatusFailed {
			out = append(out, *e)
		}
	}
	return out
}

// PendingCount reports how many entries still await confirmation.
func (r *Reconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Status == StatusPending {
			n++
		}
	}
	return n
}
