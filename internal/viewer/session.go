package viewer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mrsinham/dicomview/internal/dicom"
	"github.com/mrsinham/dicomview/internal/imaging"
	"github.com/mrsinham/dicomview/internal/report"
	"github.com/mrsinham/dicomview/internal/synthetic"
)

// Mode names the kind of source a session is showing.
type Mode string

const (
	ModeNone      Mode = "None"
	ModeDICOM     Mode = "DICOM"
	ModePNG       Mode = "PNG"
	ModeSynthetic Mode = "Synthetic"
)

// AutoPreset is the preset name that windows a slice on its own statistics.
const AutoPreset = "auto"

// DefaultStackSlices is the slice count assumed for a remote PNG stack when
// the report gives none.
const DefaultStackSlices = 120

// Sink receives what a session wants displayed.
type Sink interface {
	ShowSlice(slice *imaging.RenderedSlice, index, total int)
	ShowContext(patientID string, findings []string)
}

// OpenConfig tells a session where to look for imaging.
type OpenConfig struct {
	AssetRoot string // prefix for relative series and stack locations

	// SeriesDir overrides the report's series location.
	SeriesDir string
	// StackDir is a local PNG stack; StackURL a remote one. StackURL wins.
	StackDir string
	StackURL string

	// Forced selects a single mode instead of DICOM, then PNG, then synthetic.
	Forced Mode
	// NoFallback stops after DICOM: an unavailable series leaves the session empty.
	NoFallback bool

	SyntheticSize   int // 0 = synthetic.DefaultSize
	SyntheticSlices int // 0 = report slice count, then synthetic.DefaultSliceCount

	// Window overrides both the stored window and DefaultWindow.
	Window *imaging.WindowLevel
	// DefaultWindow applies when the source stores no window. A zero width
	// means imaging.DefaultWindow.
	DefaultWindow imaging.WindowLevel

	Client *http.Client
}

// Session binds one report to one navigator and pushes results to a sink.
type Session struct {
	Nav  *Navigator
	Sink Sink

	Mode      Mode
	PatientID string
	Findings  []string
	Location  string
}

// NewSession returns an empty session. sink may be nil.
func NewSession(sink Sink) *Session {
	return &Session{Nav: NewNavigator(), Sink: sink, Mode: ModeNone}
}

// Open selects and binds a source for req, then shows the patient context
// and the first slice. It fails only when the first slice cannot be shown;
// an unavailable series is logged and the next mode is tried.
func (s *Session) Open(ctx context.Context, req report.SeriesRequest, cfg OpenConfig) error {
	s.PatientID = req.PatientID
	s.Findings = req.Findings
	s.Mode = ModeNone
	s.Location = ""
	s.Nav.Bind(nil)

	if s.Sink != nil {
		s.Sink.ShowContext(s.PatientID, s.Findings)
	}

	for _, mode := range s.modes(cfg) {
		src, location, window, err := s.resolve(ctx, mode, req, cfg)
		if err != nil {
			log.Warn().Err(err).Str("mode", string(mode)).Msg("imaging source unavailable")
			continue
		}
		if src.Len() == 0 {
			log.Warn().Str("mode", string(mode)).Str("location", location).Msg("imaging source is empty")
			continue
		}

		if cfg.Window != nil {
			window = *cfg.Window
		}
		s.Nav.Bind(src, WithWindowLevel(window))
		s.Mode = mode
		s.Location = location
		log.Info().Str("mode", string(mode)).Str("location", location).Int("slices", src.Len()).
			Str("window", window.String()).Msg("series bound")
		return s.show(s.Nav.Render())
	}

	log.Warn().Str("patient", s.PatientID).Msg("no imaging available")
	return nil
}

func (s *Session) modes(cfg OpenConfig) []Mode {
	switch {
	case cfg.Forced != "" && cfg.Forced != ModeNone:
		return []Mode{cfg.Forced}
	case cfg.NoFallback:
		return []Mode{ModeDICOM}
	}
	return []Mode{ModeDICOM, ModePNG, ModeSynthetic}
}

func (s *Session) resolve(ctx context.Context, mode Mode, req report.SeriesRequest, cfg OpenConfig) (Source, string, imaging.WindowLevel, error) {
	window := imaging.DefaultWindow
	if cfg.DefaultWindow.Width > 0 {
		window = cfg.DefaultWindow
	}

	switch mode {
	case ModeDICOM:
		location := cfg.SeriesLocation(req)
		desc, err := dicom.LoadSeries(ctx, dicom.DirectoryProvider{}, location)
		if err != nil {
			return nil, location, window, err
		}
		if desc.Len() > 0 {
			if stored, err := dicom.ReadStoredWindow(desc.Frame(0).Ref); err == nil && stored != nil {
				window = *stored
			}
		}
		return NewSeriesFrames(desc), location, window, nil

	case ModePNG:
		if cfg.StackURL != "" {
			count := req.ExpectedSlices
			if count <= 0 {
				count = DefaultStackSlices
			}
			return NewRemoteStack(ctx, cfg.Client, cfg.StackURL, count), cfg.StackURL, window, nil
		}
		if cfg.StackDir == "" {
			return nil, "", window, fmt.Errorf("%w: no PNG stack configured", dicom.ErrSourceUnavailable)
		}
		location := join(cfg.AssetRoot, cfg.StackDir)
		stack, err := OpenRasterDir(location)
		return stack, location, window, err

	case ModeSynthetic:
		size := cfg.SyntheticSize
		if size <= 0 {
			size = synthetic.DefaultSize
		}
		count := cfg.SyntheticSlices
		if count <= 0 {
			count = req.ExpectedSlices
		}
		if count <= 0 {
			count = synthetic.DefaultSliceCount
		}
		src := &synthetic.Source{Params: synthetic.Preview, Width: size, Height: size, Count: count}
		return src, "synthetic", window, nil
	}

	return nil, "", window, fmt.Errorf("unknown mode %q", mode)
}

// GoTo shows slice i.
func (s *Session) GoTo(i int) error {
	return s.show(s.Nav.GoTo(i))
}

// Step moves by delta slices.
func (s *Session) Step(delta int) error {
	return s.show(s.Nav.Step(delta))
}

// SetWindowLevel re-renders the current slice under wl.
func (s *Session) SetWindowLevel(wl imaging.WindowLevel) error {
	return s.show(s.Nav.SetWindowLevel(wl))
}

// AutoWindow windows the current slice on its own sample statistics.
func (s *Session) AutoWindow() error {
	f, err := s.Nav.Frame()
	if err != nil {
		return err
	}
	return s.SetWindowLevel(imaging.AutoWindow(imaging.ComputeStats(f.Samples)))
}

// ApplyPreset applies a named window preset, or AutoWindow for AutoPreset.
func (s *Session) ApplyPreset(name string) error {
	if strings.EqualFold(strings.TrimSpace(name), AutoPreset) {
		return s.AutoWindow()
	}
	wl, err := imaging.LookupPreset(name)
	if err != nil {
		return err
	}
	return s.SetWindowLevel(wl)
}

func (s *Session) show(slice *imaging.RenderedSlice, err error) error {
	if err != nil {
		return err
	}
	if s.Sink != nil {
		s.Sink.ShowSlice(slice, s.Nav.Index(), s.Nav.Count())
	}
	return nil
}

// Meta is the one-line session summary shown above the slice.
func (s *Session) Meta() string {
	wl := s.Nav.WindowLevel()
	return fmt.Sprintf("Patient: %s | Slices: %d | Mode: %s | WL: %d / %d",
		s.PatientID, s.Nav.Count(), s.Mode,
		int(math.Round(wl.Center)), int(math.Round(wl.Width)))
}

// SliceLabel is "Slice: i / n", or "Slice: - / -" when nothing is bound.
func SliceLabel(index, total int) string {
	if total <= 0 {
		return "Slice: - / -"
	}
	return fmt.Sprintf("Slice: %d / %d", index+1, total)
}

// FindingsText renders findings as a bulleted list.
func FindingsText(findings []string) string {
	if len(findings) == 0 {
		return "• (no findings provided)"
	}
	return "• " + strings.Join(findings, "\n• ")
}

// IsUnavailable reports whether err means the series could not be enumerated.
func IsUnavailable(err error) bool {
	return errors.Is(err, dicom.ErrSourceUnavailable)
}

// SeriesLocation resolves the DICOM series directory for req: SeriesDir
// wins over the report, and relative paths sit under AssetRoot.
func (c OpenConfig) SeriesLocation(req report.SeriesRequest) string {
	return join(c.AssetRoot, firstNonEmpty(c.SeriesDir, req.SeriesLocation))
}

func join(root, location string) string {
	if root == "" || filepath.IsAbs(location) {
		return location
	}
	return filepath.Join(root, location)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
