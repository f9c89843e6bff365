package model

import (
	"github.com/jsphweid/singviz/clock"
	"github.com/jsphweid/singviz/timeline"
	"github.com/jsphweid/singviz/visual"
)

// Melody rows are [start, end, pitch].
type Melody = [][]float64

type CreateSessionRequest struct {
	Melody    Melody `json:"melody"`
	MidiPath  string `json:"midi_path"`
	AudioPath string `json:"audio_path"`
}

type CreateSessionResponse struct {
	ID string `json:"id"`
}

type SeekRequest struct {
	Time float64 `json:"time"`
}

type NotesResponse struct {
	Start float64         `json:"start"`
	End   float64         `json:"end"`
	Notes []timeline.Note `json:"notes"`
}

type FrameResponse struct {
	Clock clock.State  `json:"clock"`
	Frame visual.Frame `json:"frame"`
	Ops   []visual.Op  `json:"ops"`
}

type SessionSummary struct {
	ID           string      `json:"id"`
	NumNotes     int         `json:"num_notes"`
	LowestPitch  int         `json:"lowest_pitch"`
	HighestPitch int         `json:"highest_pitch"`
	Duration     float64     `json:"duration"`
	HasAudio     bool        `json:"has_audio"`
	Clock        clock.State `json:"clock"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}

type MediaResponse struct {
	Midi  []string `json:"midi"`
	Audio []string `json:"audio"`
}
