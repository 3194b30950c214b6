package storetest

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/neegandary/NexChat/internal/model"
	"github.com/neegandary/NexChat/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	alice := "u-" + uuid.New().String()
	bob := "u-" + uuid.New().String()

	// Profiles
	if _, err := s.Profiles().Create(ctx, &model.Profile{UserID: alice, Email: alice + "@example.test", FirstName: "Alice", LastName: "Archer"}); err != nil {
		t.Fatalf("CreateProfile alice: %v", err)
	}
	if _, err := s.Profiles().Create(ctx, &model.Profile{UserID: bob, Email: bob + "@example.test", FirstName: "Bob", LastName: "Brook"}); err != nil {
		t.Fatalf("CreateProfile bob: %v", err)
	}
	if got, err := s.Profiles().Get(ctx, alice); err != nil || got.FirstName != "Alice" {
		t.Fatalf("GetProfile: got=%v err=%v", got, err)
	}
	if _, err := s.Profiles().Get(ctx, "missing"); err != model.ErrNotFound {
		t.Fatalf("GetProfile missing: want ErrNotFound, got %v", err)
	}
	if hits, err := s.Profiles().Search(ctx, bob, "ali"); err != nil || len(hits) != 1 || hits[0].UserID != alice {
		t.Fatalf("SearchProfiles: hits=%v err=%v", hits, err)
	}
	// Search must not return the viewer themselves.
	if hits, err := s.Profiles().Search(ctx, alice, "ali"); err != nil || len(hits) != 0 {
		t.Fatalf("SearchProfiles self-exclusion: hits=%v err=%v", hits, err)
	}

	// Conversation upsert collapses to one record regardless of pair order.
	c1, err := s.Conversations().Upsert(ctx, alice, bob)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	c2, err := s.Conversations().Upsert(ctx, bob, alice)
	if err != nil {
		t.Fatalf("Upsert reversed: %v", err)
	}
	if c1.ConversationID != c2.ConversationID {
		t.Fatalf("upsert not idempotent: %s vs %s", c1.ConversationID, c2.ConversationID)
	}
	if c1.IsGroup {
		t.Fatalf("1:1 conversation marked as group")
	}

	// Message append: store assigns id and server timestamp, isRead=false.
	m1, err := s.Messages().Create(ctx, &model.Message{
		ConversationID: c1.ConversationID, SenderID: alice, RecipientID: bob,
		MessageType: model.MessageTypeText, Content: "hello bob",
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if m1.MessageID == "" || m1.Timestamp.IsZero() || m1.IsRead {
		t.Fatalf("CreateMessage defaults: %+v", m1)
	}
	m2, err := s.Messages().Create(ctx, &model.Message{
		ConversationID: c1.ConversationID, SenderID: bob, RecipientID: alice,
		MessageType: model.MessageTypeFile, FileRef: "uploads/files/1/cat.png",
	})
	if err != nil {
		t.Fatalf("CreateMessage m2: %v", err)
	}
	if err := s.Conversations().SetLatest(ctx, c1.ConversationID, m2.MessageID, m2.Timestamp); err != nil {
		t.Fatalf("SetLatest: %v", err)
	}
	if got, err := s.Conversations().Get(ctx, c1.ConversationID); err != nil || got.LastMessageID != m2.MessageID {
		t.Fatalf("Get after SetLatest: got=%+v err=%v", got, err)
	}

	// History is retrievable by either participant, oldest first.
	hist, err := s.Messages().ListBetween(ctx, bob, alice)
	if err != nil || len(hist) != 2 {
		t.Fatalf("ListBetween: n=%d err=%v", len(hist), err)
	}
	if hist[0].MessageID != m1.MessageID {
		t.Fatalf("ListBetween order: got %s first", hist[0].MessageID)
	}

	// Aggregation: exactly one row per counterpart, latest message on top.
	rows, err := s.Messages().ContactRows(ctx, alice)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ContactRows: n=%d err=%v", len(rows), err)
	}
	row := rows[0]
	if row.ContactID != bob {
		t.Fatalf("ContactRows contact: %s", row.ContactID)
	}
	if row.LastMessage.MessageType != model.MessageTypeFile || row.LastMessage.FileRef == "" {
		t.Fatalf("ContactRows last message: %+v", row.LastMessage)
	}
	if row.LastMessage.IsFromCurrentUser {
		t.Fatalf("ContactRows direction flag wrong")
	}
	if row.UnreadCount != 1 { // only m2 (bob→alice) counts toward alice
		t.Fatalf("ContactRows unread: %d", row.UnreadCount)
	}

	// Bulk mark-read is idempotent.
	n, err := s.Messages().MarkRead(ctx, alice, bob)
	if err != nil || n != 1 {
		t.Fatalf("MarkRead: n=%d err=%v", n, err)
	}
	n, err = s.Messages().MarkRead(ctx, alice, bob)
	if err != nil || n != 0 {
		t.Fatalf("MarkRead repeat: n=%d err=%v", n, err)
	}
	rows, err = s.Messages().ContactRows(ctx, alice)
	if err != nil || len(rows) != 1 || rows[0].UnreadCount != 0 {
		t.Fatalf("ContactRows after MarkRead: %+v err=%v", rows, err)
	}

	// Archival is a flag, not removal.
	if err := s.Messages().SetArchived(ctx, alice, bob, true); err != nil {
		t.Fatalf("SetArchived: %v", err)
	}
	rows, err = s.Messages().ContactRows(ctx, alice)
	if err != nil || len(rows) != 1 || !rows[0].IsArchived {
		t.Fatalf("ContactRows after archive: %+v err=%v", rows, err)
	}
	if hist, err := s.Messages().ListBetween(ctx, alice, bob); err != nil || len(hist) != 2 {
		t.Fatalf("archive must not remove messages: n=%d err=%v", len(hist), err)
	}
}
