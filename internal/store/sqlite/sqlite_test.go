package sqlite

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/neegandary/NexChat/internal/store"
	"github.com/neegandary/NexChat/internal/store/storetest"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return db
}

func TestSqliteStoreCompliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return NewWithDB(newTestDB(t))
	})
}

func TestConversationUpsertConcurrent(t *testing.T) {
	s := NewWithDB(newTestDB(t))
	ctx := context.Background()

	// Simultaneous first-messages between the same pair must collapse to a
	// single conversation record.
	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "alice", "bob"
			if i%2 == 1 {
				a, b = b, a
			}
			c, err := s.Conversations().Upsert(ctx, a, b)
			if err != nil {
				t.Errorf("upsert %d: %v", i, err)
				return
			}
			ids[i] = c.ConversationID
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("conversation ids diverged: %s vs %s", ids[i], ids[0])
		}
	}
}
