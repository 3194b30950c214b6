// Package queue provides the client-side send queue: submissions are
// debounced, flushed in small paced batches, and handed to the transport in
// strict submission order by a single worker goroutine.
//
// Contract: callers may Enqueue concurrently; ordering is the order in which
// Enqueue returns.
package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/neegandary/NexChat/internal/model"
)

var (
	// ErrTransportDown rejects a submission while the transport is
	// disconnected. No implicit retry; the caller resubmits if it wants to.
	ErrTransportDown = errors.New("queue: transport down")

	// ErrCleared rejects submissions flushed out by Clear.
	ErrCleared = errors.New("queue: cleared")

	// ErrStopped rejects submissions after Stop.
	ErrStopped = errors.New("queue: stopped")

	// ErrFull rejects submissions when the intake buffer is at capacity.
	ErrFull = errors.New("queue: full")
)

// Sender is the transport the queue flushes into.
type Sender interface {
	Send(req model.SubmitRequest) error
	Connected() bool
}

// Pending tracks one accepted submission until the worker hands it to the
// transport or rejects it.
type Pending struct {
	Req model.SubmitRequest

	done chan struct{}
	err  error
}

// Wait blocks until the submission is sent or rejected.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return p.err
	}
}

// Done reports completion without blocking.
func (p *Pending) Done() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Err returns the outcome after Done; nil means sent.
func (p *Pending) Err() error { return p.err }

func (p *Pending) finish(err error) {
	p.err = err
	close(p.done)
}

// Config tunes the flush behaviour. Zero values select the defaults.
type Config struct {
	// Debounce is how long the worker waits after the newest submission
	// before flushing, so a burst coalesces into one batch.
	Debounce time.Duration
	// MaxBatch caps how many submissions one flush cycle sends.
	MaxBatch int
	// Pacing is the gap between consecutive sends within a flush.
	Pacing time.Duration
	// IntakeSize bounds submissions buffered ahead of the worker.
	IntakeSize int
}

func (c *Config) applyDefaults() {
	if c.Debounce <= 0 {
		c.Debounce = 100 * time.Millisecond
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = 10
	}
	if c.Pacing <= 0 {
		c.Pacing = 10 * time.Millisecond
	}
	if c.IntakeSize <= 0 {
		c.IntakeSize = 256
	}
}

// Queue is the debounced send queue. One worker goroutine owns all state;
// at most one flush is in progress at any time.
type Queue struct {
	cfg    Config
	sender Sender

	in      chan *Pending
	clearCh chan chan struct{}
	done    chan struct{}
	stopped chan struct{}
	closed  uint32
}

func New(sender Sender, cfg Config) *Queue {
	cfg.applyDefaults()
	q := &Queue{
		cfg:     cfg,
		sender:  sender,
		in:      make(chan *Pending, cfg.IntakeSize),
		clearCh: make(chan chan struct{}),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue accepts a submission for eventual delivery. A disconnected
// transport rejects immediately; nothing is queued for later.
func (q *Queue) Enqueue(req model.SubmitRequest) (*Pending, error) {
	if atomic.LoadUint32(&q.closed) == 1 {
		return nil, ErrStopped
	}
	if !q.sender.Connected() {
		return nil, ErrTransportDown
	}
	p := &Pending{Req: req, done: make(chan struct{})}
	select {
	case q.in <- p:
	case <-q.done:
		return nil, ErrStopped
	default:
		return nil, ErrFull
	}
	select {
	case <-q.stopped:
		// The worker exited between the closed check and the buffer.
		// Reclaim the intake so this submission's Wait never blocks.
		q.drainIntake()
		<-p.done
		if p.err != nil {
			return nil, p.err
		}
		return p, nil
	default:
		return p, nil
	}
}

// Clear rejects every submission still waiting and returns once the worker
// has done so. In-flight sends are not interrupted.
func (q *Queue) Clear() {
	ack := make(chan struct{})
	select {
	case q.clearCh <- ack:
		<-ack
	case <-q.stopped:
	}
}

// Stop rejects waiting submissions and terminates the worker. Idempotent.
func (q *Queue) Stop() {
	if !atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		return
	}
	close(q.done)
	<-q.stopped
}

func (q *Queue) run() {
	defer close(q.stopped)

	var waiting []*Pending
	var timer *time.Timer
	var timerC <-chan time.Time

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
	}
	resetTimer := func() {
		stopTimer()
		timer = time.NewTimer(q.cfg.Debounce)
		timerC = timer.C
	}

	for {
		select {
		case p := <-q.in:
			waiting = append(waiting, p)
			resetTimer()

		case <-timerC:
			stopTimer()
			waiting = q.flush(waiting)
			if len(waiting) > 0 {
				// Remainder beyond MaxBatch goes out next cycle.
				resetTimer()
			}

		case ack := <-q.clearCh:
			stopTimer()
			waiting = q.rejectAll(waiting, ErrCleared)
			close(ack)

		case <-q.done:
			stopTimer()
			q.rejectAll(waiting, ErrStopped)
			q.drainIntake()
			return
		}
	}
}

// flush sends up to MaxBatch waiting submissions in order, pacing between
// sends, and returns the remainder. A transport-down failure rejects the
// current submission and everything behind it.
func (q *Queue) flush(waiting []*Pending) []*Pending {
	n := len(waiting)
	if n > q.cfg.MaxBatch {
		n = q.cfg.MaxBatch
	}
	for i := 0; i < n; i++ {
		p := waiting[i]
		if err := q.sender.Send(p.Req); err != nil {
			p.finish(err)
			if errors.Is(err, ErrTransportDown) {
				return q.rejectAll(waiting[i+1:], ErrTransportDown)
			}
			continue
		}
		p.finish(nil)
		if i < n-1 {
			time.Sleep(q.cfg.Pacing)
		}
	}
	return waiting[n:]
}

func (q *Queue) rejectAll(waiting []*Pending, err error) []*Pending {
	for _, p := range waiting {
		p.finish(err)
	}
	return nil
}

func (q *Queue) drainIntake() {
	for {
		select {
		case p := <-q.in:
			p.finish(ErrStopped)
		default:
			return
		}
	}
}
