package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/mrsinham/dicomview/internal/imaging"
	"github.com/mrsinham/dicomview/internal/viewer"
)

// SessionResponse is the JSON form of the session state.
type SessionResponse struct {
	PatientID string              `json:"patientId"`
	Findings  []string            `json:"findings"`
	Mode      viewer.Mode         `json:"mode"`
	State     string              `json:"state"`
	Index     int                 `json:"index"`
	Slices    int                 `json:"slices"`
	Window    imaging.WindowLevel `json:"window"`
	Windowed  bool                `json:"windowed"`
	Meta      string              `json:"meta"`
	Label     string              `json:"label"`
}

// ErrorResponse represents a JSON structure for error output.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleGetSession handles the "GET /api/session" route.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.sessionResponse(), http.StatusOK)
}

// handleGetReport handles the "GET /api/report" route.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.report == nil {
		writeError(w, http.StatusNotFound, errors.New("no report loaded"))
		return
	}
	writeJSON(w, s.report, http.StatusOK)
}

// handleGetPresets handles the "GET /api/presets" route.
func (s *Server) handleGetPresets(w http.ResponseWriter, r *http.Request) {
	type preset struct {
		Name   string              `json:"name"`
		Window imaging.WindowLevel `json:"window"`
	}
	var out []preset
	for _, p := range imaging.Presets() {
		out = append(out, preset{Name: p.Name, Window: p.Window})
	}
	writeJSON(w, out, http.StatusOK)
}

// handleSetWindow handles the "POST /api/window" route. The body is either
// {"center": c, "width": w} or {"preset": "lung"}.
func (s *Server) handleSetWindow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Center *float64 `json:"center"`
		Width  *float64 `json:"width"`
		Preset string   `json:"preset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wl := s.session.Nav.WindowLevel()
	if body.Preset != "" {
		p, err := imaging.LookupPreset(body.Preset)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		wl = p
	}
	if body.Center != nil {
		wl.Center = *body.Center
	}
	if body.Width != nil {
		wl.Width = *body.Width
	}

	if err := s.render(func() error { return s.session.SetWindowLevel(wl) }); err != nil {
		writeRenderError(w, err)
		return
	}
	writeJSON(w, s.sessionResponse(), http.StatusOK)
}

// handleCurrentSlice handles the "GET /slices/current.png" route.
func (s *Server) handleCurrentSlice(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.render(func() error { return s.session.GoTo(s.session.Nav.Index()) }); err != nil {
		writeRenderError(w, err)
		return
	}
	s.writeSlice(w, r, s.slice)
}

// handleGetSlice handles the "GET /slices/{n}.png" route. n is the 1-based
// slice number, clamped to the series like the CLI's --slice. Optional
// center, width and preset query parameters window this response only; the
// session keeps its window.
func (s *Server) handleGetSlice(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid slice number: %w", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.session.Nav.WindowLevel()
	wl, err := windowFromQuery(r, current)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var slice *imaging.RenderedSlice
	err = s.render(func() error {
		if err := s.session.GoTo(n - 1); err != nil {
			return err
		}
		slice = s.slice
		if wl == current {
			return nil
		}
		out, err := s.session.Nav.SetWindowLevel(wl)
		if _, restoreErr := s.session.Nav.SetWindowLevel(current); err == nil {
			err = restoreErr
		}
		slice = out
		return err
	})
	if err != nil {
		writeRenderError(w, err)
		return
	}
	s.writeSlice(w, r, slice)
}

// render runs fn, recording render metrics.
func (s *Server) render(fn func() error) error {
	t := time.Now()
	err := fn()
	renderSeconds.Observe(time.Since(t).Seconds())
	if err != nil {
		renderErrors.Inc()
		log.Warn().Err(err).Msg("render failed")
	}
	return err
}

// writeSlice sends slice as PNG. X-Slice-Number is 1-based.
func (s *Server) writeSlice(w http.ResponseWriter, r *http.Request, slice *imaging.RenderedSlice) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Slice-Number", strconv.Itoa(s.index+1))
	w.Header().Set("X-Slice-Total", strconv.Itoa(s.total))
	if err := imaging.Encode(w, slice, imaging.PNG); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("encode slice")
	}
}

func (s *Server) sessionResponse() SessionResponse {
	nav := s.session.Nav
	return SessionResponse{
		PatientID: s.patientID,
		Findings:  s.findings,
		Mode:      s.session.Mode,
		State:     nav.State().String(),
		Index:     nav.Index(),
		Slices:    nav.Count(),
		Window:    nav.WindowLevel(),
		Windowed:  nav.Windowed(),
		Meta:      s.session.Meta(),
		Label:     viewer.SliceLabel(nav.Index(), nav.Count()),
	}
}

// windowFromQuery applies preset, center and width query parameters to wl.
func windowFromQuery(r *http.Request, wl imaging.WindowLevel) (imaging.WindowLevel, error) {
	q := r.URL.Query()
	if name := q.Get("preset"); name != "" {
		p, err := imaging.LookupPreset(name)
		if err != nil {
			return wl, err
		}
		wl = p
	}
	for key, dst := range map[string]*float64{"center": &wl.Center, "width": &wl.Width} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return wl, fmt.Errorf("invalid %s %q", key, v)
		}
		*dst = f
	}
	return wl.Normalized(), nil
}

func writeRenderError(w http.ResponseWriter, err error) {
	if errors.Is(err, viewer.ErrNotBound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusUnprocessableEntity, err)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, &ErrorResponse{Error: err.Error()}, code)
}

func writeJSON(w http.ResponseWriter, v interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}
