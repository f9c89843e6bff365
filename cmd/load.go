package cmd

import (
	"encoding/json"
	"os"

	"github.com/jsphweid/singviz/file"
	"github.com/jsphweid/singviz/midi"
	"github.com/jsphweid/singviz/model"
	"github.com/jsphweid/singviz/timeline"
	"github.com/jsphweid/singviz/util"
	"github.com/pkg/errors"
)

// loadTimeline reads a midi file or a JSON melody of [start, end, pitch] rows.
func loadTimeline(path string) (*timeline.Timeline, error) {
	if util.HasExt(path, file.MidiExts...) {
		return midi.ReadTimeline(path)
	}
	if !util.HasExt(path, ".json") {
		return nil, errors.Errorf("don't know how to read %s, want .mid or .json", path)
	}

	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading melody")
	}
	var melody model.Melody
	if err := json.Unmarshal(dat, &melody); err != nil {
		return nil, errors.Wrapf(err, "parsing melody %s", path)
	}
	return midi.FromMelody(melody)
}
