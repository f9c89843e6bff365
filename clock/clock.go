// Package clock drives a per-frame callback with an elapsed playback time
// that can be paused, resumed and seeked.
//
// A Clock is not safe for concurrent use. Every method, and every frame
// callback, must run on the goroutine that owns its Scheduler; Loop provides
// Do and Call for getting there from other goroutines.
package clock

// Callback receives the elapsed playback time and the wall time since the
// previous frame, both in seconds.
type Callback func(elapsed, delta float64)

// Scheduler requests a single callback before the next display frame. The
// timestamp passed to fn is in seconds on an arbitrary monotonic origin. The
// returned cancel func prevents fn from running if it has not run yet.
type Scheduler interface {
	RequestFrame(fn func(ts float64)) (cancel func())
}

// ImmediateDelta is the delta passed to the synchronous callback fired by
// Start and PlayAt.
const ImmediateDelta = 1

// State is a read-only snapshot of a Clock.
type State struct {
	Elapsed      float64 `json:"elapsed"`
	Paused       bool    `json:"paused"`
	Running      bool    `json:"running"`
	LastFrame    float64 `json:"last_frame"`
	HasLastFrame bool    `json:"has_last_frame"`
}

type Clock struct {
	fn    Callback
	sched Scheduler

	elapsed   float64
	paused    bool
	lastFrame float64
	hasLast   bool

	cancel func()
	// gen is bumped on every stop so ticks from a cancelled run are dropped.
	gen uint64
}

func New(fn Callback, sched Scheduler) *Clock {
	return &Clock{fn: fn, sched: sched}
}

func (c *Clock) Running() bool {
	return c.cancel != nil
}

func (c *Clock) Paused() bool {
	return c.paused
}

func (c *Clock) Elapsed() float64 {
	return c.elapsed
}

func (c *Clock) State() State {
	return State{
		Elapsed:      c.elapsed,
		Paused:       c.paused,
		Running:      c.Running(),
		LastFrame:    c.lastFrame,
		HasLastFrame: c.hasLast,
	}
}

// Start begins the frame loop at the given elapsed time and fires one
// synchronous callback with ImmediateDelta. It does nothing if already running.
func (c *Clock) Start(at float64) {
	if c.Running() {
		return
	}
	c.seek(at)
	c.schedule()
}

// PlayAt jumps to the given elapsed time, fires one synchronous callback and
// makes sure the frame loop is running.
func (c *Clock) PlayAt(at float64) {
	c.seek(at)
	if !c.Running() {
		c.schedule()
	}
}

// Pause and TogglePause do nothing while the clock is stopped.
func (c *Clock) Pause() {
	if !c.Running() {
		return
	}
	c.paused = true
}

func (c *Clock) TogglePause() {
	if !c.Running() {
		return
	}
	c.paused = !c.paused
}

func (c *Clock) Resume() {
	c.paused = false
}

// Stop cancels the pending frame. Elapsed time and the pause flag are kept.
func (c *Clock) Stop() {
	if !c.Running() {
		return
	}
	c.cancel()
	c.cancel = nil
	c.gen++
}

// Restart stops the clock and starts it again from zero.
func (c *Clock) Restart() {
	c.Stop()
	c.Start(0)
}

func (c *Clock) seek(at float64) {
	c.elapsed = at
	c.hasLast = false
	c.fn(c.elapsed, ImmediateDelta)
}

func (c *Clock) schedule() {
	gen := c.gen
	c.cancel = c.sched.RequestFrame(func(ts float64) {
		c.frame(gen, ts)
	})
}

func (c *Clock) frame(gen uint64, ts float64) {
	if gen != c.gen {
		return
	}
	if !c.hasLast {
		c.lastFrame = ts
		c.hasLast = true
	}

	delta := ts - c.lastFrame
	if !c.paused {
		c.elapsed += delta
		c.fn(c.elapsed, delta)
	}
	c.lastFrame = ts

	// the callback may have stopped the clock
	if gen != c.gen {
		return
	}
	c.schedule()
}
