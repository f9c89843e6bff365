// Package timeline stores notes as half-open time intervals and answers
// window-overlap queries against them.
//
// A Timeline is not safe for concurrent Insert and Query. Build it before
// playback starts, or serialize all calls through the frame goroutine.
package timeline

import (
	"math"

	"github.com/jsphweid/singviz/util"
	"github.com/pkg/errors"
)

var (
	ErrInvalidRange = errors.New("invalid query range")
	ErrInvalidNote  = errors.New("invalid note")
)

// Pitch sentinels reported by an empty timeline.
const (
	EmptyLowest  = math.MaxInt
	EmptyHighest = math.MinInt
)

type Timeline struct {
	root  *node
	notes []Note

	lowestPitch   int
	highestPitch  int
	lowestOctave  int
	highestOctave int
	duration      float64
}

func New() *Timeline {
	return &Timeline{
		lowestPitch:   EmptyLowest,
		highestPitch:  EmptyHighest,
		lowestOctave:  EmptyLowest,
		highestOctave: EmptyHighest,
	}
}

// FromNotes inserts every note in order and stops at the first invalid one.
func FromNotes(notes []Note) (*Timeline, error) {
	tl := New()
	for i, n := range notes {
		if err := tl.Insert(n); err != nil {
			return nil, errors.Wrapf(err, "note %d", i)
		}
	}
	return tl, nil
}

// Insert adds a note. The note's Index is overwritten with its position.
func (tl *Timeline) Insert(n Note) error {
	if !n.valid() {
		return errors.Wrapf(ErrInvalidNote, "start=%v end=%v", n.Start, n.End)
	}
	n.Index = len(tl.notes)
	tl.notes = append(tl.notes, n)
	tl.root = insert(tl.root, n)

	tl.lowestPitch = util.Min(tl.lowestPitch, n.Pitch)
	tl.highestPitch = util.Max(tl.highestPitch, n.Pitch)
	tl.lowestOctave = util.Min(tl.lowestOctave, n.Octave())
	tl.highestOctave = util.Max(tl.highestOctave, n.Octave())
	tl.duration = util.Max(tl.duration, n.End)
	return nil
}

// Query returns every note whose [Start, End) overlaps [windowStart, windowEnd),
// ordered by start time then insertion order. A zero-width window is a point
// query and matches notes with Start <= t < End.
func (tl *Timeline) Query(windowStart, windowEnd float64) ([]Note, error) {
	if math.IsNaN(windowStart) || math.IsNaN(windowEnd) || windowStart > windowEnd {
		return nil, errors.Wrapf(ErrInvalidRange, "[%v, %v)", windowStart, windowEnd)
	}
	res := make([]Note, 0)
	if windowStart == windowEnd {
		collectPoint(tl.root, windowStart, &res)
	} else {
		collect(tl.root, windowStart, windowEnd, &res)
	}
	return res, nil
}

// Notes returns all notes in insertion order.
func (tl *Timeline) Notes() []Note {
	res := make([]Note, len(tl.notes))
	copy(res, tl.notes)
	return res
}

func (tl *Timeline) Len() int {
	return len(tl.notes)
}

func (tl *Timeline) Empty() bool {
	return len(tl.notes) == 0
}

func (tl *Timeline) LowestPitch() int {
	return tl.lowestPitch
}

func (tl *Timeline) HighestPitch() int {
	return tl.highestPitch
}

func (tl *Timeline) LowestOctave() int {
	return tl.lowestOctave
}

func (tl *Timeline) HighestOctave() int {
	return tl.highestOctave
}

// Duration is the latest end time of any note.
func (tl *Timeline) Duration() float64 {
	return tl.duration
}
