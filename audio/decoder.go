package audio

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jsphweid/singviz/util"
	"github.com/pkg/errors"
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Track is a decoded mono signal with samples in [-1, 1].
type Track struct {
	Samples    []float64
	SampleRate int
}

// Duration in seconds.
func (t *Track) Duration() float64 {
	if t.SampleRate == 0 {
		return 0
	}
	return float64(len(t.Samples)) / float64(t.SampleRate)
}

// DecodeFile picks a decoder from the file extension.
func DecodeFile(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open audio")
	}
	defer f.Close()

	switch {
	case util.HasExt(path, ".wav", ".wave"):
		return DecodeWAV(f)
	case util.HasExt(path, ".mp3"):
		return DecodeMP3(f)
	}
	return nil, errors.Wrapf(ErrUnsupportedFormat, "%s", path)
}

// DecodeWAV reads a PCM wave file and mixes it down to mono.
func DecodeWAV(r io.ReadSeeker) (*Track, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.Wrap(ErrUnsupportedFormat, "not a valid wav file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "decode wav")
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, errors.Wrap(ErrUnsupportedFormat, "wav without channel layout")
	}

	depth := int(d.BitDepth)
	if depth == 0 {
		depth = buf.SourceBitDepth
	}
	scale := float64(int64(1) << uint(depth-1))

	ch := buf.Format.NumChannels
	samples := make([]float64, len(buf.Data)/ch)
	for i := range samples {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(buf.Data[i*ch+c])
		}
		samples[i] = sum / float64(ch) / scale
	}
	return &Track{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// DecodeMP3 decodes to 16-bit stereo, as go-mp3 always does, and mixes down.
func DecodeMP3(r io.Reader) (*Track, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode mp3")
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, errors.Wrap(err, "read mp3")
	}

	const frameBytes = 4 // 2 channels * int16
	samples := make([]float64, len(raw)/frameBytes)
	for i := range samples {
		l := int16(binary.LittleEndian.Uint16(raw[i*frameBytes:]))
		r := int16(binary.LittleEndian.Uint16(raw[i*frameBytes+2:]))
		samples[i] = (float64(l) + float64(r)) / 2 / 32768
	}
	return &Track{Samples: samples, SampleRate: d.SampleRate()}, nil
}
