package clock

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrLoopClosed = errors.New("frame loop is not running")

// Loop is a ticker-driven frame goroutine. It implements Scheduler and runs
// control tasks submitted from other goroutines between frames, so a Clock and
// everything its callback touches only ever run on the Run goroutine.
type Loop struct {
	interval time.Duration
	origin   time.Time

	tasks chan func()
	done  chan struct{}

	pending func(ts float64)
	seq     uint64
}

func NewLoop(fps int) *Loop {
	if fps <= 0 {
		fps = 60
	}
	return &Loop{
		interval: time.Second / time.Duration(fps),
		tasks:    make(chan func(), 32),
		done:     make(chan struct{}),
	}
}

// RequestFrame must be called on the loop goroutine, or before Run starts.
func (l *Loop) RequestFrame(fn func(ts float64)) (cancel func()) {
	l.seq++
	id := l.seq
	l.pending = fn
	return func() {
		if l.seq == id {
			l.pending = nil
		}
	}
}

// Do queues fn to run on the loop goroutine. It blocks while the task queue is
// full and returns ErrLoopClosed once Run has exited.
func (l *Loop) Do(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrLoopClosed
	}
}

// Call runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Do(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives frames until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	l.origin = time.Now()
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-l.tasks:
			task()
		case now := <-ticker.C:
			fn := l.pending
			if fn == nil {
				continue
			}
			l.pending = nil
			fn(now.Sub(l.origin).Seconds())
		}
	}
}

// Manual is a Scheduler advanced by hand, for tests and offline rendering.
type Manual struct {
	pending func(ts float64)
	seq     uint64
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) RequestFrame(fn func(ts float64)) (cancel func()) {
	m.seq++
	id := m.seq
	m.pending = fn
	return func() {
		if m.seq == id {
			m.pending = nil
		}
	}
}

// Pending reports whether a frame has been requested and not yet fired.
func (m *Manual) Pending() bool {
	return m.pending != nil
}

// Fire delivers a frame at ts and reports whether anything was waiting for it.
func (m *Manual) Fire(ts float64) bool {
	fn := m.pending
	if fn == nil {
		return false
	}
	m.pending = nil
	fn(ts)
	return true
}
