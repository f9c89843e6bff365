package timeline

import "math"

// Note is a single pitched event on the timeline. Times are in seconds and
// Pitch uses MIDI numbering (60 = C4).
type Note struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Pitch    int     `json:"pitch"`
	Velocity float64 `json:"velocity"`

	// Index is the insertion position, assigned by the timeline.
	Index int `json:"index"`
}

// NoteFromClass builds a note from a pitch class (0-11) and an octave, where
// octave 4 holds middle C.
func NoteFromClass(start, end float64, pitchClass, octave int, velocity float64) Note {
	return Note{
		Start:    start,
		End:      end,
		Pitch:    (octave+1)*12 + pitchClass,
		Velocity: velocity,
	}
}

func (n Note) Duration() float64 {
	return n.End - n.Start
}

func (n Note) PitchClass() int {
	pc := n.Pitch % 12
	if pc < 0 {
		pc += 12
	}
	return pc
}

func (n Note) Octave() int {
	return int(math.Floor(float64(n.Pitch)/12)) - 1
}

// ActiveAt reports whether t lies within the note, both ends included. This is
// the "lit" test used for drawing, not the half-open overlap used by Query.
func (n Note) ActiveAt(t float64) bool {
	return n.Start <= t && n.End >= t
}

func (n Note) valid() bool {
	if math.IsNaN(n.Start) || math.IsNaN(n.End) || math.IsInf(n.End, 0) {
		return false
	}
	return n.Start >= 0 && n.End > n.Start
}
