// Package delivery orchestrates the submit → persist → fan-out path and the
// read-receipt propagation that follows it.
package delivery

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/neegandary/NexChat/internal/model"
	"github.com/neegandary/NexChat/internal/profile"
	"github.com/neegandary/NexChat/internal/session"
	"github.com/neegandary/NexChat/internal/store"
)

// Wire event names pushed to live connections.
const (
	EventReceiveMessage = "receiveMessage"
	EventMessagesRead   = "messagesRead"
)

// ReadReceipt notifies a counterpart that readerID has observed their
// previously-unread messages.
type ReadReceipt struct {
	ReaderID string `json:"userId"`
}

// Pipeline persists a submission, resolves participant profiles, and fans
// the canonical payload out to both parties' live connections.
type Pipeline struct {
	store    store.Store
	profiles *profile.Cache
	sessions *session.Registry
	log      zerolog.Logger
}

func NewPipeline(st store.Store, profiles *profile.Cache, sessions *session.Registry, log zerolog.Logger) *Pipeline {
	return &Pipeline{store: st, profiles: profiles, sessions: sessions, log: log}
}

// Submit runs the full delivery pipeline for one message submission.
// Persistence failures abort the submission and propagate; push failures are
// logged and swallowed — the message is already durable truth.
func (p *Pipeline) Submit(ctx context.Context, req *model.SubmitRequest) (*model.CanonicalPayload, error) {
	if err := req.Validate(); err != nil {
		submissionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	conv, err := p.store.Conversations().Upsert(ctx, req.SenderID, req.RecipientID)
	if err != nil {
		submissionsTotal.WithLabelValues("persist_error").Inc()
		return nil, fmt.Errorf("conversation upsert: %w", err)
	}

	msg, err := p.store.Messages().Create(ctx, &model.Message{
		ConversationID: conv.ConversationID,
		SenderID:       req.SenderID,
		RecipientID:    req.RecipientID,
		MessageType:    req.MessageType,
		Content:        req.Content,
		FileRef:        req.FileRef,
	})
	if err != nil {
		submissionsTotal.WithLabelValues("persist_error").Inc()
		return nil, fmt.Errorf("message append: %w", err)
	}

	// Best-effort ordering: concurrent appends may race this update, the
	// pointer only has to converge to some message. The message log's own
	// timestamp ordering is authoritative for read paths.
	if err := p.store.Conversations().SetLatest(ctx, conv.ConversationID, msg.MessageID, msg.Timestamp); err != nil {
		submissionsTotal.WithLabelValues("persist_error").Inc()
		return nil, fmt.Errorf("conversation update: %w", err)
	}

	payload := &model.CanonicalPayload{Message: *msg, ClientTag: req.ClientTag}
	sender, recipient := p.resolveProfiles(ctx, req.SenderID, req.RecipientID)
	payload.Sender = sender
	payload.Recipient = recipient

	submissionsTotal.WithLabelValues("ok").Inc()

	p.push(req.RecipientID, payload)
	p.push(req.SenderID, payload)

	return payload, nil
}

// resolveProfiles fetches both participant profiles in parallel. A failed
// lookup degrades the payload (identity only), never the delivery.
func (p *Pipeline) resolveProfiles(ctx context.Context, senderID, recipientID string) (*model.Profile, *model.Profile) {
	type result struct {
		profile *model.Profile
		err     error
	}
	fetch := func(id string, ch chan<- result) {
		pr, err := p.profiles.Get(ctx, id)
		ch <- result{profile: pr, err: err}
	}
	sCh := make(chan result, 1)
	rCh := make(chan result, 1)
	go fetch(senderID, sCh)
	go fetch(recipientID, rCh)

	s, r := <-sCh, <-rCh
	if s.err != nil {
		p.log.Warn().Err(s.err).Str("user_id", senderID).Msg("sender profile unresolved")
	}
	if r.err != nil {
		p.log.Warn().Err(r.err).Str("user_id", recipientID).Msg("recipient profile unresolved")
	}
	return s.profile, r.profile
}

// push delivers payload to userID's live connection if one exists. Absence
// is the expected steady-state for offline parties.
func (p *Pipeline) push(userID string, payload *model.CanonicalPayload) {
	conn, ok := p.sessions.Lookup(userID)
	if !ok {
		pushesTotal.WithLabelValues("miss").Inc()
		return
	}
	if err := conn.Push(EventReceiveMessage, payload); err != nil {
		pushesTotal.WithLabelValues("error").Inc()
		p.log.Warn().Err(err).Str("user_id", userID).Str("message_id", payload.MessageID).
			Msg("real-time push failed, message remains fetchable")
		return
	}
	pushesTotal.WithLabelValues("delivered").Inc()
}
