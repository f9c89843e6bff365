package audio

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/jsphweid/singviz/spectrum"
	"go.uber.org/zap"
)

// Playhead reports the current playback position in seconds, or false when
// nothing is playing.
type Playhead func() (secs float64, ok bool)

// Monitor analyzes a decoded track at the playhead on its own cadence and
// publishes the latest frame. Readers get snapshots and may see the same frame
// twice or miss some; frames are never mutated after publishing.
type Monitor struct {
	track    *Track
	analyzer *Analyzer
	playhead Playhead
	interval time.Duration
	log      *zap.Logger

	// lastPos is only touched by the producer.
	lastPos float64

	mu       sync.RWMutex
	latest   spectrum.Frame
	playable bool
}

type Option func(*Monitor)

// WithInterval sets how often Run analyzes a new frame.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		m.interval = d
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Monitor) {
		m.log = l
	}
}

// WithAnalyzer replaces the default analyzer, e.g. to tune smoothing.
func WithAnalyzer(a *Analyzer) Option {
	return func(m *Monitor) {
		m.analyzer = a
	}
}

func NewMonitor(track *Track, fftSize int, playhead Playhead, opts ...Option) *Monitor {
	m := &Monitor{
		track:    track,
		playhead: playhead,
		lastPos:  math.NaN(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.analyzer == nil {
		m.analyzer = NewAnalyzer(fftSize)
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.interval <= 0 && track.SampleRate > 0 {
		// one hop of 1024 samples, about what an audio callback delivers
		m.interval = time.Duration(float64(time.Second) * 1024 / float64(track.SampleRate))
	}
	if m.interval <= 0 {
		m.interval = 20 * time.Millisecond
	}
	return m
}

// Run analyzes a frame every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.log.Debug("audio monitor started",
		zap.Int("sample_rate", m.track.SampleRate),
		zap.Int("fft_size", m.analyzer.FFTSize()),
		zap.Duration("interval", m.interval))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("audio monitor stopped")
			return
		case <-ticker.C:
			m.Update()
		}
	}
}

// Update analyzes the signal at the current playhead once.
func (m *Monitor) Update() {
	pos, ok := m.playhead()
	if !ok || m.track.SampleRate == 0 {
		m.publish(nil, false)
		return
	}

	// a jump backwards or far ahead invalidates the smoothing history
	if math.IsNaN(m.lastPos) || pos < m.lastPos || pos-m.lastPos > 1 {
		m.analyzer.Reset()
	}
	m.lastPos = pos

	end := int(pos * float64(m.track.SampleRate))
	m.publish(m.analyzer.Analyze(m.track.Samples, end), true)
}

func (m *Monitor) publish(f spectrum.Frame, playable bool) {
	m.mu.Lock()
	m.latest = f
	m.playable = playable
	m.mu.Unlock()
}

func (m *Monitor) Playable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playable
}

func (m *Monitor) LatestSpectrumFrame() (spectrum.Frame, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, m.latest != nil
}

func (m *Monitor) SampleRate() float64 {
	return float64(m.track.SampleRate)
}

func (m *Monitor) FFTSize() int {
	return m.analyzer.FFTSize()
}
