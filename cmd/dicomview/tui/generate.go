package tui

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/dicomview/cmd/dicomview/tui/components"
	"github.com/mrsinham/dicomview/internal/dicom"
	"github.com/mrsinham/dicomview/internal/synthetic"
)

// defaultOutputDir is the demo series location under the default asset root.
const defaultOutputDir = "assets/DicomSeries/P-1024_SyntheticChestCT"

// Volume names accepted by the generate form.
const (
	VolumeChestCT = "chest"
	VolumePreview = "preview"
)

// Phase represents the current phase/screen of the generate flow.
type Phase int

const (
	PhaseForm Phase = iota
	PhaseProgress
	PhaseComplete
	PhaseError
)

// GenerateRequest is what the generate form edits.
type GenerateRequest struct {
	Options dicom.SeriesOptions
	Volume  string // VolumeChestCT or VolumePreview
}

// Params returns the generator parameters for the selected volume.
func (r *GenerateRequest) Params() synthetic.Params {
	if r.Volume == VolumePreview {
		return synthetic.Preview
	}
	return synthetic.ChestCT
}

// Generator walks through the generate form, writes the series and shows
// the outcome.
type Generator struct {
	req   *GenerateRequest
	phase Phase

	form      *huh.Form
	helpPanel *components.HelpPanel
	progress  *ProgressScreen
	result    CompletionMsg

	// String versions for form binding (huh binds to strings)
	slicesStr  string
	sizeStr    string
	workersStr string

	ctx    context.Context
	cancel context.CancelFunc
	send   func(tea.Msg)

	width     int
	height    int
	cancelled bool
	err       error
}

// NewGenerator creates the generate flow over req, whose values seed the form.
func NewGenerator(ctx context.Context, req *GenerateRequest) *Generator {
	opts := &req.Options
	if opts.OutputDir == "" {
		opts.OutputDir = defaultOutputDir
	}
	if opts.NumSlices <= 0 {
		opts.NumSlices = synthetic.DefaultSliceCount
	}
	if opts.Width <= 0 {
		opts.Width = synthetic.DefaultSize
	}
	if opts.PatientID == "" {
		opts.PatientID = synthetic.DefaultPatientID
	}
	if req.Volume == "" {
		req.Volume = VolumeChestCT
	}

	g := &Generator{
		req:        req,
		phase:      PhaseForm,
		helpPanel:  components.NewHelpPanel(),
		slicesStr:  strconv.Itoa(opts.NumSlices),
		sizeStr:    strconv.Itoa(opts.Width),
		workersStr: strconv.Itoa(opts.Workers),
	}
	g.ctx, g.cancel = context.WithCancel(ctx)

	g.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("output").
				Title("Output Directory").
				Value(&opts.OutputDir).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("output directory is required")
					}
					return nil
				}),

			huh.NewInput().
				Key("patient_id").
				Title("Patient ID").
				Value(&opts.PatientID).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("patient id is required")
					}
					return nil
				}),

			huh.NewSelect[string]().
				Key("params").
				Title("Volume").
				Options(
					huh.NewOption("Chest CT", VolumeChestCT),
					huh.NewOption("Preview", VolumePreview),
				).
				Value(&req.Volume),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("slices").
				Title("Slices").
				Value(&g.slicesStr).
				Validate(validatePositiveInt),

			huh.NewInput().
				Key("size").
				Title("Matrix Size").
				Value(&g.sizeStr).
				Validate(validatePositiveInt),

			huh.NewInput().
				Key("workers").
				Title("Workers").
				Value(&g.workersStr).
				Validate(validateNonNegativeInt),
		),
	).WithShowHelp(false).WithShowErrors(true)

	return g
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n <= 0 {
		return fmt.Errorf("must be greater than 0")
	}
	return nil
}

func validateNonNegativeInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n < 0 {
		return fmt.Errorf("must be 0 or more")
	}
	return nil
}

// syncFromForm parses form strings back into the request.
func (g *Generator) syncFromForm() {
	opts := &g.req.Options
	if n, err := strconv.Atoi(strings.TrimSpace(g.slicesStr)); err == nil {
		opts.NumSlices = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(g.sizeStr)); err == nil {
		opts.Width, opts.Height = n, n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(g.workersStr)); err == nil {
		opts.Workers = n
	}
	opts.OutputDir = strings.TrimSpace(opts.OutputDir)
	opts.PatientID = strings.TrimSpace(opts.PatientID)
}

// Init implements tea.Model
func (g *Generator) Init() tea.Cmd {
	return g.form.Init()
}

// Update implements tea.Model
func (g *Generator) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		g.width = wsm.Width
		g.height = wsm.Height
		g.helpPanel.SetSize(wsm.Width/3, wsm.Height/2)
	}

	switch g.phase {
	case PhaseForm:
		return g.updateForm(msg)
	case PhaseProgress:
		return g.updateProgress(msg)
	case PhaseComplete, PhaseError:
		if isExitKey(msg) {
			return g, tea.Quit
		}
	}
	return g, nil
}

func (g *Generator) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "ctrl+c", "esc":
			g.cancelled = true
			g.cancel()
			return g, tea.Quit
		}
	}

	form, cmd := g.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		g.form = f
	}

	if focused := g.form.GetFocusedField(); focused != nil {
		g.helpPanel.SetField(focused.GetKey())
	}

	if g.form.State == huh.StateCompleted {
		g.syncFromForm()
		return g.startGeneration()
	}
	return g, cmd
}

func (g *Generator) updateProgress(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		g.progress.SetProgress(msg.Current, msg.Total)
	case CompletionMsg:
		g.phase = PhaseComplete
		g.result = msg
	case ErrorMsg:
		g.phase = PhaseError
		g.err = msg.Error
	case tea.WindowSizeMsg:
		g.progress.SetWidth(msg.Width)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			g.cancelled = true
			g.cancel()
			return g, tea.Quit
		}
	}
	return g, nil
}

// startGeneration switches to the progress phase and writes the series in
// the background.
func (g *Generator) startGeneration() (tea.Model, tea.Cmd) {
	g.phase = PhaseProgress
	g.progress = NewProgressScreen(g.req.Options.NumSlices)
	g.progress.SetWidth(g.width)

	opts := g.req.Options
	opts.Quiet = true // Suppress output for TUI integration
	if g.send != nil {
		send := g.send
		opts.ProgressCallback = func(current, total int) {
			send(ProgressMsg{Current: current, Total: total})
		}
	}
	params := g.req.Params()
	ctx := g.ctx

	return g, func() tea.Msg {
		start := time.Now()
		files, err := synthetic.WriteSeries(ctx, params, opts)
		if err != nil {
			return ErrorMsg{Error: err}
		}

		var total int64
		for _, f := range files {
			if info, err := os.Stat(f.Path); err == nil {
				total += info.Size()
			}
		}
		return CompletionMsg{
			TotalFiles: len(files),
			TotalSize:  total,
			Duration:   time.Since(start),
			OutputDir:  opts.OutputDir,
		}
	}
}

// View implements tea.Model
func (g *Generator) View() string {
	if g.cancelled {
		return "Cancelled.\n"
	}

	switch g.phase {
	case PhaseProgress:
		return g.progress.View()
	case PhaseComplete:
		return completionView(g.result)
	case PhaseError:
		return errorView(g.err)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		components.TitleStyle.Render("DICOMVIEW - Generate Synthetic Series"),
		"",
		g.form.View(),
		"",
		g.helpPanel.View(),
		"",
		"Tab: Next field | Enter: Submit | Esc: Cancel",
	)
}

// Phase returns the current phase.
func (g *Generator) Phase() Phase {
	return g.phase
}

// Request returns the request as edited by the form.
func (g *Generator) Request() *GenerateRequest {
	return g.req
}

// RunGenerate runs the generate form and writes the series. A cancelled form
// is not an error.
func RunGenerate(ctx context.Context, req *GenerateRequest) error {
	g := NewGenerator(ctx, req)
	defer g.cancel()

	p := tea.NewProgram(g, tea.WithAltScreen())
	g.send = p.Send

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("running generate form: %w", err)
	}

	if fg, ok := finalModel.(*Generator); ok {
		if fg.cancelled {
			return nil // User cancelled, not an error
		}
		if fg.err != nil {
			return fg.err
		}
	}
	return nil
}
