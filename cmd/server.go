package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/jsphweid/singviz/audio"
	"github.com/jsphweid/singviz/config"
	"github.com/jsphweid/singviz/file"
	"github.com/jsphweid/singviz/midi"
	"github.com/jsphweid/singviz/model"
	"github.com/jsphweid/singviz/timeline"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// how often /stream pushes a frame snapshot
const streamInterval = 100 * time.Millisecond

// Server exposes playback sessions over HTTP.
type Server struct {
	cfg      config.Config
	log      *zap.Logger
	sessions *registry
}

func NewServer(cfg config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{cfg: cfg, log: log, sessions: newRegistry()}
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/media", s.handleMedia).Methods("GET")
	router.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	router.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	router.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	router.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")
	router.HandleFunc("/sessions/{id}/notes", s.handleNotes).Methods("GET")
	router.HandleFunc("/sessions/{id}/frame", s.handleFrame).Methods("GET")
	router.HandleFunc("/sessions/{id}/stream", s.handleStream).Methods("GET")
	router.HandleFunc("/sessions/{id}/seek", s.handleSeek).Methods("POST")
	router.HandleFunc("/sessions/{id}/{action:start|pause|resume|toggle|stop|restart}", s.handleControl).Methods("POST")

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
	})
	return c.Handler(router)
}

// Close stops every session.
func (s *Server) Close() {
	s.sessions.closeAll()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, model.ErrorResponse{Error: err.Error()})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id := mux.Vars(r)["id"]
	sess, ok := s.sessions.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("no session %s", id))
	}
	return sess, ok
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	midis, err := file.List(s.cfg.MediaDir, file.MidiExts...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	tracks, err := file.List(s.cfg.MediaDir, file.AudioExts...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, model.MediaResponse{Midi: midis, Audio: tracks})
}

func (s *Server) buildTimeline(req model.CreateSessionRequest) (*timeline.Timeline, error) {
	if req.MidiPath == "" {
		return midi.FromMelody(req.Melody)
	}
	path, err := file.Resolve(s.cfg.MediaDir, req.MidiPath)
	if err != nil {
		return nil, err
	}
	return midi.ReadTimeline(path)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "could not decode request body"))
		return
	}

	tl, err := s.buildTimeline(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var track *audio.Track
	if req.AudioPath != "" {
		path, err := file.Resolve(s.cfg.MediaDir, req.AudioPath)
		if err == nil {
			track, err = audio.DecodeFile(path)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	sess := newSession(tl, track, s.cfg, s.log)
	sess.run()
	s.sessions.add(sess)
	writeJSON(w, http.StatusCreated, model.CreateSessionResponse{ID: sess.id})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	res := make([]model.SessionSummary, 0)
	for _, sess := range s.sessions.all() {
		summary, err := sess.summary(r.Context())
		if err != nil {
			// closed underneath us
			continue
		}
		res = append(res, summary)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	summary, err := sess.summary(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, ok := s.sessions.remove(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("no session %s", id))
		return
	}
	sess.close()
	w.WriteHeader(http.StatusNoContent)
}

func queryFloat(r *http.Request, key string) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, errors.Errorf("missing %s", key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "bad %s", key)
	}
	return f, nil
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	start, err := queryFloat(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	end, err := queryFloat(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// the timeline is read only once the session exists
	notes, err := sess.tl.Query(start, end)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if notes == nil {
		notes = []timeline.Note{}
	}
	writeJSON(w, http.StatusOK, model.NotesResponse{Start: start, End: end, Notes: notes})
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	res, err := sess.snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleStream pushes frame snapshots as server sent events until the client
// goes away or the session closes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()
	for {
		res, err := sess.snapshot(r.Context())
		if err != nil {
			return
		}
		dat, err := json.Marshal(res)
		if err != nil {
			s.log.Error("could not encode frame", zap.Error(err))
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", dat); err != nil {
			return
		}
		flusher.Flush()

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req model.SeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "could not decode request body"))
		return
	}
	if req.Time < 0 || math.IsNaN(req.Time) || math.IsInf(req.Time, 0) {
		writeError(w, http.StatusBadRequest, errors.Errorf("bad seek time %v", req.Time))
		return
	}
	sess.seekTo(req.Time)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := sess.control(r.Context(), mux.Vars(r)["action"]); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, ErrUnknownAction) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	summary, err := sess.summary(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
