package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neegandary/NexChat/internal/model"
)

// fakeSender records sends and the gaps between them.
type fakeSender struct {
	mu        sync.Mutex
	sent      []model.SubmitRequest
	sendTimes []time.Time
	connected bool
	sendErr   error
}

func newFakeSender() *fakeSender { return &fakeSender{connected: true} }

func (f *fakeSender) Send(req model.SubmitRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, req)
	f.sendTimes = append(f.sendTimes, time.Now())
	return nil
}

func (f *fakeSender) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSender) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

func (f *fakeSender) setErr(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

func (f *fakeSender) snapshot() []model.SubmitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.SubmitRequest(nil), f.sent...)
}

func textReq(tag string) model.SubmitRequest {
	return model.SubmitRequest{
		RecipientID: "peer",
		MessageType: model.MessageTypeText,
		Content:     "m-" + tag,
		ClientTag:   tag,
	}
}

func waitAll(t *testing.T, pendings []*Pending) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, p := range pendings {
		require.NoError(t, p.Wait(ctx))
	}
}

func TestFlushPreservesSubmissionOrder(t *testing.T) {
	sender := newFakeSender()
	q := New(sender, Config{Debounce: 20 * time.Millisecond, Pacing: time.Millisecond})
	defer q.Stop()

	var pendings []*Pending
	tags := []string{"a", "b", "c", "d", "e"}
	for _, tag := range tags {
		p, err := q.Enqueue(textReq(tag))
		require.NoError(t, err)
		pendings = append(pendings, p)
	}
	waitAll(t, pendings)

	sent := sender.snapshot()
	require.Len(t, sent, len(tags))
	for i, tag := range tags {
		assert.Equal(t, tag, sent[i].ClientTag)
	}
}

func TestBurstSplitsIntoBatches(t *testing.T) {
	sender := newFakeSender()
	q := New(sender, Config{Debounce: 20 * time.Millisecond, MaxBatch: 10, Pacing: time.Millisecond})
	defer q.Stop()

	var pendings []*Pending
	for i := 0; i < 12; i++ {
		p, err := q.Enqueue(textReq(string(rune('a' + i))))
		require.NoError(t, err)
		pendings = append(pendings, p)
	}

	// First cycle sends exactly ten; the overflow pair waits for the next
	// debounce window, which is still open when the tenth send lands.
	waitAll(t, pendings[:10])
	assert.Equal(t, 10, len(sender.snapshot()))

	waitAll(t, pendings[10:])
	assert.Len(t, sender.snapshot(), 12)
}

func TestDebounceCoalescesBurst(t *testing.T) {
	sender := newFakeSender()
	q := New(sender, Config{Debounce: 60 * time.Millisecond, Pacing: time.Millisecond})
	defer q.Stop()

	p1, err := q.Enqueue(textReq("x"))
	require.NoError(t, err)

	// A follow-up inside the window restarts it; nothing flushes in between.
	time.Sleep(30 * time.Millisecond)
	p2, err := q.Enqueue(textReq("y"))
	require.NoError(t, err)
	assert.Empty(t, sender.snapshot())

	waitAll(t, []*Pending{p1, p2})
	assert.Len(t, sender.snapshot(), 2)
}

func TestEnqueueRejectedWhileDisconnected(t *testing.T) {
	sender := newFakeSender()
	sender.setConnected(false)
	q := New(sender, Config{Debounce: 10 * time.Millisecond})
	defer q.Stop()

	_, err := q.Enqueue(textReq("x"))
	require.ErrorIs(t, err, ErrTransportDown)
	assert.Empty(t, sender.snapshot())
}

func TestTransportFailureRejectsRemainder(t *testing.T) {
	sender := newFakeSender()
	q := New(sender, Config{Debounce: 10 * time.Millisecond, Pacing: time.Millisecond})
	defer q.Stop()

	p1, err := q.Enqueue(textReq("a"))
	require.NoError(t, err)
	p2, err := q.Enqueue(textReq("b"))
	require.NoError(t, err)

	sender.setErr(ErrTransportDown)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.ErrorIs(t, p1.Wait(ctx), ErrTransportDown)
	require.ErrorIs(t, p2.Wait(ctx), ErrTransportDown)
}

func TestClearRejectsWaiting(t *testing.T) {
	sender := newFakeSender()
	q := New(sender, Config{Debounce: time.Hour})
	defer q.Stop()

	p, err := q.Enqueue(textReq("never"))
	require.NoError(t, err)

	// Give the worker time to pull the submission into its waiting list.
	time.Sleep(20 * time.Millisecond)
	q.Clear()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.ErrorIs(t, p.Wait(ctx), ErrCleared)
	assert.Empty(t, sender.snapshot())
}

func TestStopRejectsWaitingAndIsIdempotent(t *testing.T) {
	sender := newFakeSender()
	q := New(sender, Config{Debounce: time.Hour})

	p, err := q.Enqueue(textReq("never"))
	require.NoError(t, err)

	q.Stop()
	q.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.ErrorIs(t, p.Wait(ctx), ErrStopped)

	_, err = q.Enqueue(textReq("late"))
	require.ErrorIs(t, err, ErrStopped)
}

func TestStopRacingEnqueueNeverStrandsPending(t *testing.T) {
	// Hammer Enqueue against Stop; every accepted submission must resolve.
	for i := 0; i < 50; i++ {
		sender := newFakeSender()
		q := New(sender, Config{Debounce: time.Hour})

		accepted := make(chan *Pending, 4)
		start := make(chan struct{})
		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if p, err := q.Enqueue(textReq("racy")); err == nil {
					accepted <- p
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			q.Stop()
		}()

		close(start)
		wg.Wait()
		q.Stop()
		close(accepted)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		for p := range accepted {
			require.ErrorIs(t, p.Wait(ctx), ErrStopped)
		}
		cancel()
	}
}

func TestPacingSpacesSendsWithinBatch(t *testing.T) {
	sender := newFakeSender()
	q := New(sender, Config{Debounce: 10 * time.Millisecond, Pacing: 25 * time.Millisecond})
	defer q.Stop()

	p1, err := q.Enqueue(textReq("a"))
	require.NoError(t, err)
	p2, err := q.Enqueue(textReq("b"))
	require.NoError(t, err)
	waitAll(t, []*Pending{p1, p2})

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.sendTimes, 2)
	assert.GreaterOrEqual(t, sender.sendTimes[1].Sub(sender.sendTimes[0]), 20*time.Millisecond)
}
