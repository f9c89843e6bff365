package chord

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jsphweid/singviz/timeline"
	"github.com/jsphweid/singviz/util"
)

// Chord is the set of pitches sounding from Offset onward.
type Chord struct {
	Offset  float64 `json:"offset"`
	Pitches []int   `json:"pitches"`
}

func (c Chord) Key() string {
	return Key(c.Pitches)
}

// Key renders pitches as a sorted, dash-separated key such as "60-64-67".
func Key(pitches []int) string {
	sorted := util.Uniq(pitches)
	parts := make([]string, len(sorted))
	for i, p := range sorted {
		parts[i] = fmt.Sprintf("%v", p)
	}
	return strings.Join(parts, "-")
}

// Active returns the sorted distinct pitches of the notes sounding at t.
func Active(notes []timeline.Note, t float64) []int {
	var pitches []int
	for _, n := range notes {
		if n.ActiveAt(t) {
			pitches = append(pitches, n.Pitch)
		}
	}
	return util.Uniq(pitches)
}

type event struct {
	offset float64
	off    bool
	pitch  int
}

// Progression walks note on/off events in time order and returns every change
// of the sounding set that leaves at least one pitch on.
func Progression(notes []timeline.Note) []Chord {
	events := make([]event, 0, len(notes)*2)
	for _, n := range notes {
		events = append(events,
			event{offset: n.Start, pitch: n.Pitch},
			event{offset: n.End, off: true, pitch: n.Pitch})
	}

	// smaller offsets first, then note offs
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].offset != events[j].offset {
			return events[i].offset < events[j].offset
		}
		return events[i].off && !events[j].off
	})

	// pitches can overlap themselves, so count instead of flag
	pressed := make(map[int]int)
	var res []Chord
	for i, evt := range events {
		if evt.off {
			pressed[evt.pitch]--
			if pressed[evt.pitch] <= 0 {
				delete(pressed, evt.pitch)
			}
		} else {
			pressed[evt.pitch]++
		}

		// only emit once all events at this offset are applied
		if i+1 < len(events) && events[i+1].offset == evt.offset {
			continue
		}
		if len(pressed) == 0 {
			continue
		}
		pitches := util.GetKeys(pressed)
		if len(res) > 0 && Key(res[len(res)-1].Pitches) == Key(pitches) {
			continue
		}
		res = append(res, Chord{Offset: evt.offset, Pitches: pitches})
	}
	return res
}
