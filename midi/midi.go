package midi

import (
	"bytes"
	"os"
	"sort"

	"github.com/jsphweid/singviz/timeline"
	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// DefaultPPQ is the resolution excerpts are written with.
const DefaultPPQ = 480

// tempo excerpts are written at; 120 bpm makes one second two beats
const excerptBPM = 120

func ReadMidiFile(filepath string) (s *smf.SMF, e error) {
	var blank smf.SMF
	var err error

	// handle panics
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			s, e = &blank, errors.Errorf("panic parsing midi file %s: %v", filepath, r)
		}
	}()

	dat, err := os.ReadFile(filepath)
	if err != nil {
		return &blank, errors.Wrap(err, "Error reading midi file")
	}

	res, err := smf.ReadFrom(bytes.NewReader(dat))
	if err != nil {
		return &blank, errors.Wrap(err, "Error parsing midi file")
	}

	return res, nil
}

// ReadTimeline reads a midi file straight into a timeline.
func ReadTimeline(filepath string) (*timeline.Timeline, error) {
	s, err := ReadMidiFile(filepath)
	if err != nil {
		return nil, err
	}
	return FromSMF(s)
}

type key struct {
	channel uint8
	pitch   uint8
}

type pending struct {
	start    float64
	velocity uint8
}

// FromSMF pairs note ons with note offs on the same channel and key, earliest
// first, across all tracks. Notes still held when their track ends are closed
// at the track's last event. Zero length notes are dropped.
func FromSMF(s *smf.SMF) (*timeline.Timeline, error) {
	var notes []timeline.Note

	for _, events := range s.Tracks {
		var absTicks int64
		held := make(map[key][]pending)

		for _, event := range events {
			absTicks += int64(event.Delta)
			secs := float64(s.TimeAt(absTicks)) / 1e6

			var channel, pitch, velocity uint8
			isOff := false
			switch {
			case event.Message.GetNoteOn(&channel, &pitch, &velocity):
				// note on with velocity 0 is a note off
				if velocity > 0 {
					k := key{channel, pitch}
					held[k] = append(held[k], pending{start: secs, velocity: velocity})
					continue
				}
				isOff = true
			case event.Message.GetNoteOff(&channel, &pitch, &velocity):
				isOff = true
			}
			if !isOff {
				continue
			}

			k := key{channel, pitch}
			if len(held[k]) == 0 {
				continue
			}
			p := held[k][0]
			held[k] = held[k][1:]
			notes = appendNote(notes, p, secs, pitch)
		}

		trackEnd := float64(s.TimeAt(absTicks)) / 1e6
		for _, k := range heldKeys(held) {
			for _, p := range held[k] {
				notes = appendNote(notes, p, trackEnd, k.pitch)
			}
		}
	}

	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Start != notes[j].Start {
			return notes[i].Start < notes[j].Start
		}
		return notes[i].Pitch < notes[j].Pitch
	})
	return timeline.FromNotes(notes)
}

// heldKeys orders the keys of held by channel, then pitch.
func heldKeys(held map[key][]pending) []key {
	keys := make([]key, 0, len(held))
	for k := range held {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].channel != keys[j].channel {
			return keys[i].channel < keys[j].channel
		}
		return keys[i].pitch < keys[j].pitch
	})
	return keys
}

func appendNote(notes []timeline.Note, p pending, end float64, pitch uint8) []timeline.Note {
	if end <= p.start {
		return notes
	}
	return append(notes, timeline.Note{
		Start:    p.start,
		End:      end,
		Pitch:    int(pitch),
		Velocity: float64(p.velocity) / 127,
	})
}

// FromMelody builds a timeline from [start, end, pitch] rows. Rows with fewer
// than three values or a zero pitch are rests and get skipped.
func FromMelody(melody [][]float64) (*timeline.Timeline, error) {
	tl := timeline.New()
	for i, row := range melody {
		if len(row) < 3 || row[2] == 0 {
			continue
		}
		n := timeline.Note{Start: row[0], End: row[1], Pitch: int(row[2]), Velocity: 1}
		if err := tl.Insert(n); err != nil {
			return nil, errors.Wrapf(err, "melody row %d", i)
		}
	}
	return tl, nil
}

type excerptEvent struct {
	tick uint32
	off  bool
	msg  gomidi.Message
}

// Excerpt renders the notes overlapping [start, end) into a single track SMF.
// Times are shifted so start becomes zero and notes are clipped to the window.
func Excerpt(tl *timeline.Timeline, start, end float64, ppq uint16) (*smf.SMF, error) {
	notes, err := tl.Query(start, end)
	if err != nil {
		return nil, err
	}
	if ppq == 0 {
		ppq = DefaultPPQ
	}

	ticksPerSecond := float64(ppq) * excerptBPM / 60
	toTicks := func(secs float64) uint32 {
		secs = secs - start
		if secs < 0 {
			secs = 0
		}
		if secs > end-start {
			secs = end - start
		}
		return uint32(secs*ticksPerSecond + 0.5)
	}

	var events []excerptEvent
	for _, n := range notes {
		if n.Pitch < 0 || n.Pitch > 127 {
			return nil, errors.Wrapf(timeline.ErrInvalidNote, "pitch %d does not fit in midi", n.Pitch)
		}
		on, off := toTicks(n.Start), toTicks(n.End)
		if off <= on {
			continue
		}
		p := uint8(n.Pitch)
		events = append(events,
			excerptEvent{tick: on, msg: gomidi.NoteOn(0, p, velocityByte(n.Velocity))},
			excerptEvent{tick: off, off: true, msg: gomidi.NoteOff(0, p)})
	}

	// note offs first so back to back notes of one pitch don't cut each other
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})

	res := smf.New()
	res.TimeFormat = smf.MetricTicks(ppq)

	var track smf.Track
	track.Add(0, smf.MetaTempo(excerptBPM))
	var last uint32
	for _, evt := range events {
		track.Add(evt.tick-last, evt.msg)
		last = evt.tick
	}
	track.Close(0)

	if err := res.Add(track); err != nil {
		return nil, errors.Wrap(err, "adding excerpt track")
	}
	return res, nil
}

// WriteExcerpt writes Excerpt's result to path.
func WriteExcerpt(tl *timeline.Timeline, start, end float64, path string) error {
	s, err := Excerpt(tl, start, end, DefaultPPQ)
	if err != nil {
		return err
	}
	if err := s.WriteFile(path); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

func velocityByte(v float64) uint8 {
	b := int(v*127 + 0.5)
	if b < 1 {
		return 1
	}
	if b > 127 {
		return 127
	}
	return uint8(b)
}
