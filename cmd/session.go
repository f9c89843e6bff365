package cmd

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	"github.com/jsphweid/singviz/audio"
	"github.com/jsphweid/singviz/clock"
	"github.com/jsphweid/singviz/config"
	"github.com/jsphweid/singviz/model"
	"github.com/jsphweid/singviz/timeline"
	"github.com/jsphweid/singviz/visual"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const seekDebounce = 50 * time.Millisecond

var ErrUnknownAction = errors.New("unknown clock action")

// session owns one clock, its frame loop and everything the frame callback
// touches. Control calls are funneled onto the loop goroutine.
type session struct {
	id      string
	tl      *timeline.Timeline
	loop    *clock.Loop
	clk     *clock.Clock
	coord   *visual.Coordinator
	rec     *visual.Recorder
	monitor *audio.Monitor
	log     *zap.Logger

	// published from the frame callback for the audio monitor
	pos     atomic.Uint64
	playing atomic.Bool

	seek   func(f func())
	cancel context.CancelFunc
	done   chan struct{}
}

func newSession(tl *timeline.Timeline, track *audio.Track, cfg config.Config, log *zap.Logger) *session {
	id := uuid.New().String()
	s := &session{
		id:   id,
		tl:   tl,
		loop: clock.NewLoop(cfg.FPS),
		rec:  visual.NewRecorder(),
		log:  log.With(zap.String("session", id)),
		seek: debounce.New(seekDebounce),
		done: make(chan struct{}),
	}

	var src visual.Source
	if track != nil {
		fftSize := cfg.FFTSizeFor(visual.LowestNote(tl))
		s.monitor = audio.NewMonitor(track, fftSize, s.playhead, audio.WithLogger(s.log))
		src = s.monitor
	}
	s.coord = visual.NewCoordinator(tl, src, s.rec, nil, visual.Options{
		IntervalSeconds: cfg.IntervalSeconds,
		Width:           cfg.Width,
		Height:          cfg.Height,
		Logger:          s.log,
	})
	s.clk = clock.New(s.onFrame, s.loop)
	return s
}

func (s *session) run() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.monitor != nil {
		go s.monitor.Run(ctx)
	}
	go func() {
		defer close(s.done)
		s.loop.Run(ctx)
	}()
	s.log.Info("session started", zap.Int("notes", s.tl.Len()), zap.Bool("audio", s.monitor != nil))
}

func (s *session) onFrame(elapsed, delta float64) {
	s.pos.Store(math.Float64bits(elapsed))
	s.coord.OnFrame(elapsed, delta)
	if err := s.coord.LastError(); err != nil {
		s.log.Debug("frame skipped", zap.Error(err))
	}
}

func (s *session) playhead() (float64, bool) {
	return math.Float64frombits(s.pos.Load()), s.playing.Load()
}

// syncPlaying must run on the loop goroutine.
func (s *session) syncPlaying() {
	s.playing.Store(s.clk.Running() && !s.clk.Paused())
}

func (s *session) control(ctx context.Context, action string) error {
	var op func()
	switch action {
	case "start":
		op = func() { s.clk.Start(s.clk.Elapsed()) }
	case "pause":
		op = s.clk.Pause
	case "resume":
		op = s.clk.Resume
	case "toggle":
		op = s.clk.TogglePause
	case "stop":
		op = s.clk.Stop
	case "restart":
		op = s.clk.Restart
	default:
		return errors.Wrap(ErrUnknownAction, action)
	}

	s.log.Debug("clock control", zap.String("action", action))
	return s.loop.Call(ctx, func() {
		op()
		s.syncPlaying()
	})
}

// seekTo coalesces bursts of seeks, e.g. from a dragged scrubber, into the
// last one.
func (s *session) seekTo(t float64) {
	s.seek(func() {
		err := s.loop.Do(func() {
			s.clk.PlayAt(t)
			s.syncPlaying()
		})
		if err != nil {
			s.log.Debug("seek dropped", zap.Float64("time", t), zap.Error(err))
		}
	})
}

func (s *session) snapshot(ctx context.Context) (model.FrameResponse, error) {
	var res model.FrameResponse
	err := s.loop.Call(ctx, func() {
		res = model.FrameResponse{
			Clock: s.clk.State(),
			Frame: s.coord.LastFrame(),
			Ops:   s.rec.Ops(),
		}
	})
	return res, err
}

func (s *session) summary(ctx context.Context) (model.SessionSummary, error) {
	res := model.SessionSummary{
		ID:           s.id,
		NumNotes:     s.tl.Len(),
		LowestPitch:  s.tl.LowestPitch(),
		HighestPitch: s.tl.HighestPitch(),
		Duration:     s.tl.Duration(),
		HasAudio:     s.monitor != nil,
	}
	if s.tl.Empty() {
		// sentinels don't survive JSON well
		res.LowestPitch, res.HighestPitch = 0, 0
	}
	err := s.loop.Call(ctx, func() {
		res.Clock = s.clk.State()
	})
	return res, err
}

func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.loop.Call(ctx, s.clk.Stop); err != nil {
		s.log.Debug("could not stop clock", zap.Error(err))
	}
	s.cancel()
	<-s.done
	s.log.Info("session closed")
}

type registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*session)}
}

func (r *registry) add(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.id] = s
}

func (r *registry) get(id string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *registry) all() []*session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		res = append(res, s)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].id < res[j].id
	})
	return res
}

func (r *registry) remove(id string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	return s, ok
}

func (r *registry) closeAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
