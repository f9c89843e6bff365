package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/jsphweid/singviz/config"
	"github.com/jsphweid/singviz/model"
	"github.com/stretchr/testify/assert"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		IntervalSeconds:        4,
		Width:                  1000,
		Height:                 100,
		FPS:                    120,
		FFTBinCountLowRegister: 2048,
		FFTBinCountDefault:     1024,
		LowRegisterThreshold:   36,
		Port:                   8080,
		MediaDir:               t.TempDir(),
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	srv := NewServer(testConfig(t), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return srv, ts
}

func do(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	var r io.Reader
	if body != nil {
		dat, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(dat)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	dat, _ := io.ReadAll(resp.Body)
	return resp, dat
}

func createSession(t *testing.T, base string, req model.CreateSessionRequest) string {
	resp, body := do(t, http.MethodPost, base+"/sessions", req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: %v %s", resp.StatusCode, body)
	}
	var created model.CreateSessionResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}
	return created.ID
}

func frame(t *testing.T, base, id string) model.FrameResponse {
	resp, body := do(t, http.MethodGet, base+"/sessions/"+id+"/frame", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("frame: %v %s", resp.StatusCode, body)
	}
	var res model.FrameResponse
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	return res
}

var testMelody = model.Melody{
	{0, 1, 60},
	{1, 2, 64},
	{2, 3, 0},
	{2, 4, 67},
}

func TestNotesEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	id := createSession(t, ts.URL, model.CreateSessionRequest{Melody: testMelody})

	assert := assert.New(t)
	resp, body := do(t, http.MethodGet, ts.URL+"/sessions/"+id+"/notes?start=0.5&end=1.5", nil)
	assert.Equal(http.StatusOK, resp.StatusCode)
	var notes model.NotesResponse
	assert.NoError(json.Unmarshal(body, &notes))
	assert.Len(notes.Notes, 2)
	assert.Equal(60, notes.Notes[0].Pitch)
	assert.Equal(64, notes.Notes[1].Pitch)

	// nothing there is still an array
	resp, body = do(t, http.MethodGet, ts.URL+"/sessions/"+id+"/notes?start=10&end=11", nil)
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Contains(string(body), `"notes":[]`)

	resp, _ = do(t, http.MethodGet, ts.URL+"/sessions/"+id+"/notes?start=2&end=1", nil)
	assert.Equal(http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/sessions/"+id+"/notes?start=2", nil)
	assert.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownSession(t *testing.T) {
	_, ts := newTestServer(t)

	assert := assert.New(t)
	resp, body := do(t, http.MethodGet, ts.URL+"/sessions/nope/frame", nil)
	assert.Equal(http.StatusNotFound, resp.StatusCode)
	var e model.ErrorResponse
	assert.NoError(json.Unmarshal(body, &e))
	assert.Contains(e.Error, "nope")

	resp, _ = do(t, http.MethodDelete, ts.URL+"/sessions/nope", nil)
	assert.Equal(http.StatusNotFound, resp.StatusCode)
}

func TestCreateSessionRejectsBadInput(t *testing.T) {
	_, ts := newTestServer(t)

	assert := assert.New(t)
	resp, _ := do(t, http.MethodPost, ts.URL+"/sessions", model.CreateSessionRequest{
		Melody: model.Melody{{2, 1, 60}},
	})
	assert.Equal(http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/sessions", model.CreateSessionRequest{
		Melody:    testMelody,
		AudioPath: "missing.wav",
	})
	assert.Equal(http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/sessions", model.CreateSessionRequest{MidiPath: "missing.mid"})
	assert.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestClockControl(t *testing.T) {
	_, ts := newTestServer(t)
	id := createSession(t, ts.URL, model.CreateSessionRequest{Melody: testMelody})
	base := ts.URL + "/sessions/" + id

	assert := assert.New(t)
	assert.False(frame(t, ts.URL, id).Clock.Running)

	// pausing a stopped clock is ignored
	resp, _ := do(t, http.MethodPost, base+"/pause", nil)
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.False(frame(t, ts.URL, id).Clock.Paused)

	resp, body := do(t, http.MethodPost, base+"/start", nil)
	assert.Equal(http.StatusOK, resp.StatusCode)
	var summary model.SessionSummary
	assert.NoError(json.Unmarshal(body, &summary))
	assert.True(summary.Clock.Running)
	assert.Equal(3, summary.NumNotes)
	assert.Equal(60, summary.LowestPitch)
	assert.Equal(67, summary.HighestPitch)

	assert.Eventually(func() bool {
		return frame(t, ts.URL, id).Clock.Elapsed > 0.05
	}, 3*time.Second, 10*time.Millisecond)

	resp, _ = do(t, http.MethodPost, base+"/pause", nil)
	assert.Equal(http.StatusOK, resp.StatusCode)
	paused := frame(t, ts.URL, id)
	assert.True(paused.Clock.Paused)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(paused.Clock.Elapsed, frame(t, ts.URL, id).Clock.Elapsed)

	resp, _ = do(t, http.MethodPost, base+"/resume", nil)
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.False(frame(t, ts.URL, id).Clock.Paused)

	resp, _ = do(t, http.MethodPost, base+"/stop", nil)
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.False(frame(t, ts.URL, id).Clock.Running)

	resp, _ = do(t, http.MethodPost, base+"/fly", nil)
	assert.Equal(http.StatusNotFound, resp.StatusCode)
}

func TestSeekIsDebounced(t *testing.T) {
	_, ts := newTestServer(t)
	id := createSession(t, ts.URL, model.CreateSessionRequest{Melody: testMelody})
	base := ts.URL + "/sessions/" + id

	assert := assert.New(t)
	for _, tm := range []float64{0.5, 1, 1.5, 2.5} {
		resp, _ := do(t, http.MethodPost, base+"/seek", model.SeekRequest{Time: tm})
		assert.Equal(http.StatusAccepted, resp.StatusCode)
	}

	// only the last seek lands, and seeking starts a stopped clock
	assert.Eventually(func() bool {
		f := frame(t, ts.URL, id)
		return f.Clock.Running && f.Frame.Elapsed >= 2.5
	}, 3*time.Second, 10*time.Millisecond)

	f := frame(t, ts.URL, id)
	assert.Equal([]int{67}, f.Frame.Active)
	assert.NotEmpty(f.Ops)

	resp, _ := do(t, http.MethodPost, base+"/seek", model.SeekRequest{Time: -1})
	assert.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteSession(t *testing.T) {
	_, ts := newTestServer(t)
	id := createSession(t, ts.URL, model.CreateSessionRequest{Melody: testMelody})

	assert := assert.New(t)
	resp, _ := do(t, http.MethodPost, ts.URL+"/sessions/"+id+"/start", nil)
	assert.Equal(http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/sessions/"+id, nil)
	assert.Equal(http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/sessions/"+id, nil)
	assert.Equal(http.StatusNotFound, resp.StatusCode)

	resp, body := do(t, http.MethodGet, ts.URL+"/sessions", nil)
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.JSONEq(`[]`, string(body))
}

func writeTone(t *testing.T, path string, hz float64, secs float64) {
	const rate = 8000
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	data := make([]int, int(secs*rate))
	for i := range data {
		data[i] = int(16000 * math.Sin(2*math.Pi*hz*float64(i)/rate))
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSessionWithAudio(t *testing.T) {
	srv, ts := newTestServer(t)
	writeTone(t, filepath.Join(srv.cfg.MediaDir, "a4.wav"), 440, 3)

	assert := assert.New(t)
	resp, body := do(t, http.MethodGet, ts.URL+"/media", nil)
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.JSONEq(`{"midi":[],"audio":["a4.wav"]}`, string(body))

	id := createSession(t, ts.URL, model.CreateSessionRequest{
		Melody:    model.Melody{{0, 3, 69}},
		AudioPath: "a4.wav",
	})
	resp, _ = do(t, http.MethodPost, ts.URL+"/sessions/"+id+"/start", nil)
	assert.Equal(http.StatusOK, resp.StatusCode)

	assert.Eventually(func() bool {
		return frame(t, ts.URL, id).Frame.HasSpectrum
	}, 3*time.Second, 20*time.Millisecond)

	f := frame(t, ts.URL, id)
	assert.NotEmpty(f.Frame.Bins)
}
