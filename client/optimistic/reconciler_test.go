package optimistic

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neegandary/NexChat/internal/model"
)

func submitReq(content string) model.SubmitRequest {
	return model.SubmitRequest{
		SenderID:    "alice",
		RecipientID: "bob",
		MessageType: model.MessageTypeText,
		Content:     content,
	}
}

func TestAddMintsProvisionalEntry(t *testing.T) {
	r := New()
	e := r.Add(submitReq("hello"))

	assert.True(t, IsProvisional(e.Message.MessageID))
	assert.NotEmpty(t, e.ClientTag)
	assert.Equal(t, StatusPending, e.Status)
	assert.Equal(t, "hello", e.Message.Content)
	assert.Equal(t, 1, r.PendingCount())
}

func TestResolveReplacesWithCanonical(t *testing.T) {
	r := New()
	e := r.Add(submitReq("hello"))

	canonical := &model.CanonicalPayload{
		Message: model.Message{
			MessageID: "srv-123",
			SenderID:  "alice",
			Content:   "hello",
			Timestamp: time.Now().UTC(),
		},
		ClientTag: e.ClientTag,
	}
	require.True(t, r.Resolve(canonical))

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, StatusConfirmed, snap[0].Status)
	assert.Equal(t, "srv-123", snap[0].Message.MessageID)
	assert.False(t, IsProvisional(snap[0].Message.MessageID))
	assert.Equal(t, 0, r.PendingCount())

	// a second delivery of the same payload is a no-op
	assert.False(t, r.Resolve(canonical))
}

func TestResolveIgnoresForeignPayloads(t *testing.T) {
	r := New()
	r.Add(submitReq("mine"))

	// counterpart messages carry no tag
	assert.False(t, r.Resolve(&model.CanonicalPayload{Message: model.Message{MessageID: "srv-1"}}))
	// unknown tag (another device's submission)
	assert.False(t, r.Resolve(&model.CanonicalPayload{Message: model.Message{MessageID: "srv-2"}, ClientTag: "other"}))
	assert.Equal(t, 1, r.PendingCount())
}

func TestFailThenRetryMintsFreshIdentity(t *testing.T) {
	r := New()
	e := r.Add(submitReq("flaky"))

	require.True(t, r.Fail(e.ClientTag))
	failed := r.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, StatusFailed, failed[0].Status)

	fresh, req, ok := r.Retry(e.ClientTag)
	require.True(t, ok)
	assert.NotEqual(t, e.ClientTag, fresh.ClientTag)
	assert.NotEqual(t, e.Message.MessageID, fresh.Message.MessageID)
	assert.Equal(t, StatusPending, fresh.Status)
	assert.Equal(t, "flaky", req.Content)
	assert.Equal(t, fresh.ClientTag, req.ClientTag)

	// the failed original is gone
	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, fresh.ClientTag, snap[0].ClientTag)
}

func TestFailHidesEntryFromSnapshot(t *testing.T) {
	r := New()
	kept := r.Add(submitReq("kept"))
	flaky := r.Add(submitReq("flaky"))

	require.True(t, r.Fail(flaky.ClientTag))

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, kept.ClientTag, snap[0].ClientTag)

	failed := r.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, flaky.ClientTag, failed[0].ClientTag)
	assert.Equal(t, "flaky", failed[0].Message.Content)
}

func TestRetryRequiresFailedStatus(t *testing.T) {
	r := New()
	e := r.Add(submitReq("fine"))

	_, _, ok := r.Retry(e.ClientTag)
	assert.False(t, ok)

	_, _, ok = r.Retry("missing")
	assert.False(t, ok)
}

func TestSnapshotPreservesSubmissionOrder(t *testing.T) {
	r := New()
	e1 := r.Add(submitReq("first"))
	e2 := r.Add(submitReq("second"))
	e3 := r.Add(submitReq("third"))

	require.True(t, r.Fail(e2.ClientTag))
	_, _, ok := r.Retry(e2.ClientTag)
	require.True(t, ok)

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, e1.ClientTag, snap[0].ClientTag)
	assert.Equal(t, e3.ClientTag, snap[1].ClientTag)
	// retried entry re-enters at the end
	assert.Equal(t, "second", snap[2].Message.Content)
}

func TestRemoveDismissesEntry(t *testing.T) {
	r := New()
	e := r.Add(submitReq("oops"))
	require.True(t, r.Fail(e.ClientTag))
	require.True(t, r.Remove(e.ClientTag))
	assert.Empty(t, r.Snapshot())
	assert.False(t, r.Remove(e.ClientTag))
}

func TestConcurrentAddAndResolve(t *testing.T) {
	r := New()
	const n = 50

	tags := make([]string, n)
	for i := 0; i < n; i++ {
		tags[i] = r.Add(submitReq("m")).ClientTag
	}

	var wg sync.WaitGroup
	for _, tag := range tags {
		wg.Add(1)
		go func(tag string) {
			defer wg.Done()
			r.Resolve(&model.CanonicalPayload{
				Message:   model.Message{MessageID: "srv-" + tag},
				ClientTag: tag,
			})
		}(tag)
	}
	wg.Wait()

	assert.Equal(t, 0, r.PendingCount())
	assert.Len(t, r.Snapshot(), n)
}
