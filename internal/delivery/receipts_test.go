package delivery

import (
	"context"
	"testing"

	"github.com/neegandary/NexChat/internal/logger"
	"github.com/neegandary/NexChat/internal/model"
)

func TestMarkReadNotifiesCounterpart(t *testing.T) {
	st := newTestStore(t)
	seedProfiles(t, st, "alice", "bob")
	p, reg := newTestPipeline(t, st)
	r := NewReceipts(st.Messages(), reg, logger.New("receipts-test"))
	ctx := context.Background()

	if _, err := p.Submit(ctx, &model.SubmitRequest{SenderID: "bob", RecipientID: "alice", MessageType: model.MessageTypeText, Content: "unread"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	bobConn := &fakeConn{}
	reg.Register("bob", bobConn)

	if err := r.MarkRead(ctx, "alice", "bob"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	evs := bobConn.received()
	if len(evs) != 1 || evs[0].Event != EventMessagesRead {
		t.Fatalf("counterpart events: %+v", evs)
	}
	if rr := evs[0].Payload.(*ReadReceipt); rr.ReaderID != "alice" {
		t.Fatalf("receipt reader: %+v", rr)
	}

	// Idempotent: second invocation finds nothing unread and stays silent.
	if err := r.MarkRead(ctx, "alice", "bob"); err != nil {
		t.Fatalf("MarkRead repeat: %v", err)
	}
	if len(bobConn.received()) != 1 {
		t.Fatalf("no-op mark-read must not re-notify")
	}
}

func TestMarkReadOfflineCounterpart(t *testing.T) {
	st := newTestStore(t)
	seedProfiles(t, st, "alice", "bob")
	p, reg := newTestPipeline(t, st)
	r := NewReceipts(st.Messages(), reg, logger.New("receipts-test"))
	ctx := context.Background()

	if _, err := p.Submit(ctx, &model.SubmitRequest{SenderID: "bob", RecipientID: "alice", MessageType: model.MessageTypeText, Content: "unread"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Counterpart offline: no receipt, but the state itself is updated.
	if err := r.MarkRead(ctx, "alice", "bob"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	hist, err := st.Messages().ListBetween(ctx, "alice", "bob")
	if err != nil || len(hist) != 1 || !hist[0].IsRead {
		t.Fatalf("read state not durable: %+v err=%v", hist, err)
	}
}

func TestMarkReadOnlyTargetsReaderDirection(t *testing.T) {
	st := newTestStore(t)
	seedProfiles(t, st, "alice", "bob")
	p, reg := newTestPipeline(t, st)
	r := NewReceipts(st.Messages(), reg, logger.New("receipts-test"))
	ctx := context.Background()

	if _, err := p.Submit(ctx, &model.SubmitRequest{SenderID: "alice", RecipientID: "bob", MessageType: model.MessageTypeText, Content: "mine"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := p.Submit(ctx, &model.SubmitRequest{SenderID: "bob", RecipientID: "alice", MessageType: model.MessageTypeText, Content: "theirs"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := r.MarkRead(ctx, "alice", "bob"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	hist, err := st.Messages().ListBetween(ctx, "alice", "bob")
	if err != nil || len(hist) != 2 {
		t.Fatalf("history: %v err=%v", hist, err)
	}
	for _, m := range hist {
		switch m.SenderID {
		case "bob":
			if !m.IsRead {
				t.Fatalf("counterpart→reader message must be read")
			}
		case "alice":
			if m.IsRead {
				t.Fatalf("reader's own outgoing message must stay unread")
			}
		}
	}
}
