package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mrsinham/dicomview/cmd/dicomview/tui"
	"github.com/mrsinham/dicomview/internal/config"
	"github.com/mrsinham/dicomview/internal/dicom"
	"github.com/mrsinham/dicomview/internal/imaging"
	"github.com/mrsinham/dicomview/internal/report"
	"github.com/mrsinham/dicomview/internal/server"
	"github.com/mrsinham/dicomview/internal/synthetic"
	"github.com/mrsinham/dicomview/internal/util"
	"github.com/mrsinham/dicomview/internal/viewer"
)

func runGenerate(ctx context.Context, cfg *config.Config, args []string) error {
	var c commonFlags
	fs := newFlagSet("generate", &c)

	output := fs.String("output", cfg.DefaultSeriesDir(), "Output directory")
	fs.IntVar(&cfg.Synthetic.Slices, "slices", cfg.Synthetic.Slices, "Number of slices to generate")
	fs.IntVar(&cfg.Synthetic.Size, "size", cfg.Synthetic.Size, "Slice width and height in pixels")
	fs.StringVar(&cfg.Synthetic.Patient, "patient-id", cfg.Synthetic.Patient, "Patient ID written to every file")
	fs.IntVar(&cfg.Synthetic.Workers, "workers", cfg.Synthetic.Workers,
		fmt.Sprintf("Number of parallel workers (0 = %d CPU cores)", runtime.NumCPU()))
	preview := fs.Bool("preview", false, "Write the preview volume instead of the chest CT")
	quiet := fs.Bool("quiet", false, "Suppress progress output")
	interactive := fs.Bool("interactive", false, "Fill in the options with an interactive form")
	fs.BoolVar(interactive, "i", false, "Fill in the options with an interactive form (shortcut)")

	var tagFlags []string
	fs.Func("tag", "Set DICOM tag: 'TagName=Value' (repeatable)", func(s string) error {
		tagFlags = append(tagFlags, s)
		return nil
	})

	if err := fs.Parse(args); err != nil {
		return err
	}

	parsedTags, err := util.ParseTagFlags(tagFlags)
	if err != nil {
		return err
	}

	opts := synthetic.SeriesOptions(*output)
	opts.NumSlices = cfg.Synthetic.Slices
	opts.Width, opts.Height = cfg.Synthetic.Size, cfg.Synthetic.Size
	opts.PatientID = cfg.Synthetic.Patient
	opts.Workers = cfg.Synthetic.Workers
	opts.CustomTags = parsedTags
	opts.Quiet = *quiet

	if *interactive {
		req := &tui.GenerateRequest{Options: opts, Volume: tui.VolumeChestCT}
		if *preview {
			req.Volume = tui.VolumePreview
		}
		if err := tui.RunGenerate(ctx, req); err != nil {
			return err
		}
		cfg.Synthetic.Slices = req.Options.NumSlices
		cfg.Synthetic.Size = req.Options.Width
		cfg.Synthetic.Patient = req.Options.PatientID
		cfg.Synthetic.Workers = req.Options.Workers
		c.save(cfg)
		return nil
	}

	params := synthetic.ChestCT
	if *preview {
		params = synthetic.Preview
	}

	if !*quiet {
		fmt.Println("dicomview")
		fmt.Println("=========")
		fmt.Println()
		if len(parsedTags) > 0 {
			fmt.Printf("Custom tags: %d specified\n", len(parsedTags))
		}
	}

	files, err := synthetic.WriteSeries(ctx, params, opts)
	if err != nil {
		return fmt.Errorf("writing DICOM series: %w", err)
	}

	c.save(cfg)

	if !*quiet {
		fmt.Println("\n✓ Generation complete!")
		fmt.Printf("  Series directory: %s (%d files)\n", *output, len(files))
	}
	return nil
}

func runExport(ctx context.Context, cfg *config.Config, args []string) error {
	var (
		c commonFlags
		w windowFlags
	)
	fs := newFlagSet("export", &c)

	input := fs.String("input", cfg.DefaultSeriesDir(), "DICOM series directory")
	output := fs.String("output", cfg.StackLocation(), "Output directory for slice_NNNN files")
	fs.StringVar(&cfg.Export.Format, "format", cfg.Export.Format, "Output format: png, bmp, tiff")
	fs.IntVar(&cfg.Export.Scale, "scale", cfg.Export.Scale, "Integer upscale factor")
	useSynthetic := fs.Bool("synthetic", false, "Export the synthetic volume instead of a DICOM series")
	fs.IntVar(&cfg.Synthetic.Slices, "slices", cfg.Synthetic.Slices, "Synthetic slice count (with --synthetic)")
	fs.IntVar(&cfg.Synthetic.Size, "size", cfg.Synthetic.Size, "Synthetic slice size (with --synthetic)")
	quiet := fs.Bool("quiet", false, "Suppress progress output")
	w.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := imaging.ParseFormat(cfg.Export.Format)
	if err != nil {
		return err
	}

	sess, auto, err := bindFrames(ctx, cfg, fs, &w, *input, *useSynthetic)
	if err != nil {
		return err
	}

	if !*quiet {
		fmt.Printf("Exporting %d slices to %s (%s, window %s)\n",
			sess.Nav.Count(), *output, format, windowLabel(sess, auto))
	}

	paths, err := imaging.ExportSeries(ctx, *output, sess.Nav.Count(), func(i int) (*imaging.RenderedSlice, error) {
		return renderAt(sess, i, auto)
	}, imaging.ExportOptions{Format: format, Scale: cfg.Export.Scale, Quiet: *quiet})
	if err != nil {
		return fmt.Errorf("exporting slices: %w", err)
	}

	c.save(cfg)

	if !*quiet {
		fmt.Printf("\n✓ %d slices exported to %s\n", len(paths), *output)
	}
	return nil
}

func runRender(ctx context.Context, cfg *config.Config, args []string) error {
	var (
		c commonFlags
		w windowFlags
	)
	fs := newFlagSet("render", &c)

	input := fs.String("input", cfg.DefaultSeriesDir(), "DICOM series directory")
	output := fs.String("output", "slice.png", "Output file; the extension selects png, bmp or tiff")
	slice := fs.Int("slice", 1, "1-based slice number (clamped to the series)")
	scale := fs.Int("scale", 1, "Integer upscale factor")
	useSynthetic := fs.Bool("synthetic", false, "Render the synthetic volume instead of a DICOM series")
	fs.IntVar(&cfg.Synthetic.Slices, "slices", cfg.Synthetic.Slices, "Synthetic slice count (with --synthetic)")
	fs.IntVar(&cfg.Synthetic.Size, "size", cfg.Synthetic.Size, "Synthetic slice size (with --synthetic)")
	w.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := imaging.ParseFormat(strings.TrimPrefix(filepath.Ext(*output), "."))
	if err != nil {
		return err
	}

	sess, auto, err := bindFrames(ctx, cfg, fs, &w, *input, *useSynthetic)
	if err != nil {
		return err
	}

	out, err := renderAt(sess, *slice-1, auto)
	if err != nil {
		return err
	}
	if *scale > 1 {
		out = imaging.Resize(out, out.Columns*(*scale), out.Rows*(*scale), nil)
	}
	if err := imaging.WriteFile(*output, out, format); err != nil {
		return err
	}

	c.save(cfg)

	fmt.Printf("✓ %s written to %s (%dx%d, window %s)\n",
		viewer.SliceLabel(sess.Nav.Index(), sess.Nav.Count()), *output, out.Columns, out.Rows, sess.Nav.WindowLevel())
	return nil
}

func runInfo(ctx context.Context, cfg *config.Config, args []string) error {
	var c commonFlags
	fs := newFlagSet("info", &c)

	fs.StringVar(&cfg.Assets.Root, "assets", cfg.Assets.Root, "Asset root for relative locations")
	fs.StringVar(&cfg.Assets.Report, "report", cfg.Assets.Report, "Patient report path or URL")
	fs.StringVar(&cfg.Assets.SeriesDir, "series", cfg.Assets.SeriesDir, "DICOM series directory (default: the report's)")
	slice := fs.Int("slice", 0, "1-based slice for sample statistics (default: middle slice)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	rep, err := report.Load(ctx, cfg.ReportLocation(), nil)
	if err != nil {
		return err
	}
	printReport(rep)

	req := rep.SeriesRequest()
	location := viewer.OpenConfig{AssetRoot: cfg.Assets.Root, SeriesDir: cfg.Assets.SeriesDir}.SeriesLocation(req)

	fmt.Printf("\nSeries: %s\n", location)
	desc, err := dicom.LoadSeries(ctx, dicom.DirectoryProvider{}, location)
	if err != nil {
		fmt.Printf("  Unavailable: %v\n", err)
		return nil
	}
	c.save(cfg)
	printSeries(desc, req.ExpectedSlices, *slice)
	return nil
}

func runView(ctx context.Context, cfg *config.Config, args []string) error {
	var (
		c  commonFlags
		sf sessionFlags
	)
	fs := newFlagSet("view", &c)
	sf.register(fs, cfg)

	if err := fs.Parse(args); err != nil {
		return err
	}

	var v *tui.Viewer
	if _, err := openSession(ctx, cfg, fs, &sf, func(sess *viewer.Session, _ *report.Report) {
		v = tui.NewViewer(sess)
	}); err != nil {
		return err
	}

	c.save(cfg)
	return tui.RunViewer(v)
}

func runServe(ctx context.Context, cfg *config.Config, args []string) error {
	var (
		c  commonFlags
		sf sessionFlags
	)
	fs := newFlagSet("serve", &c)
	sf.register(fs, cfg)
	fs.StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "Listen address")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var srv *server.Server
	sess, err := openSession(ctx, cfg, fs, &sf, func(sess *viewer.Session, rep *report.Report) {
		srv = server.NewServer(sess, rep)
	})
	if err != nil {
		return err
	}

	srv.Addr = cfg.Server.Addr
	if err := srv.Open(); err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	}
	c.save(cfg)

	fmt.Println(sess.Meta())
	fmt.Printf("Serving on %s (slices at /slices/{n}.png with n from 1, metrics at /metrics)\n", srv.URL())
	fmt.Println("Press Ctrl+C to stop")

	<-ctx.Done()
	fmt.Println("\nShutting down...")
	return srv.Close()
}

// windowFlags select the display window from the command line.
type windowFlags struct {
	preset string
	center float64
	width  float64
}

func (w *windowFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&w.preset, "preset", "", "Window preset: "+strings.Join(imaging.PresetNames(), ", ")+" or auto")
	fs.Float64Var(&w.center, "center", 0, "Window center")
	fs.Float64Var(&w.width, "width", 0, "Window width")
}

// resolve returns the window override built over base, or nil when no window
// flag was given. auto is true for --preset auto, which cannot be combined
// with --center or --width.
func (w *windowFlags) resolve(fs *flag.FlagSet, base imaging.WindowLevel) (*imaging.WindowLevel, bool, error) {
	set := setFlags(fs)
	if strings.EqualFold(w.preset, viewer.AutoPreset) {
		if set["center"] || set["width"] {
			return nil, false, fmt.Errorf("--preset auto cannot be combined with --center or --width")
		}
		return nil, true, nil
	}
	if !set["preset"] && !set["center"] && !set["width"] {
		return nil, false, nil
	}

	wl := base
	if set["preset"] {
		p, err := imaging.LookupPreset(w.preset)
		if err != nil {
			return nil, false, err
		}
		wl = p
	}
	if set["center"] {
		wl.Center = w.center
	}
	if set["width"] {
		wl.Width = w.width
	}
	wl = wl.Normalized()
	return &wl, false, nil
}

// setFlags returns the names of the flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

// bindFrames binds a DICOM series, or the synthetic volume, to a session
// without a sink. The window is the override, else the stored one, else the
// configured default.
func bindFrames(ctx context.Context, cfg *config.Config, fs *flag.FlagSet, w *windowFlags, input string, useSynthetic bool) (*viewer.Session, bool, error) {
	var (
		src    viewer.FrameSource
		window = cfg.Viewer.Window
	)

	if useSynthetic {
		src = synthetic.NewSource(cfg.Synthetic.Size, cfg.Synthetic.Size, cfg.Synthetic.Slices)
	} else {
		desc, err := dicom.LoadSeries(ctx, dicom.DirectoryProvider{}, input)
		if err != nil {
			return nil, false, err
		}
		if desc.Len() == 0 {
			return nil, false, fmt.Errorf("no DICOM files in %s", input)
		}
		if stored, err := dicom.ReadStoredWindow(desc.Frame(0).Ref); err == nil && stored != nil {
			window = *stored
		}
		src = viewer.NewSeriesFrames(desc)
	}

	override, auto, err := w.resolve(fs, window)
	if err != nil {
		return nil, false, err
	}
	if override != nil {
		window = *override
	}

	sess := viewer.NewSession(nil)
	sess.Mode = viewer.ModeDICOM
	if useSynthetic {
		sess.Mode = viewer.ModeSynthetic
	}
	sess.Nav.Bind(src, viewer.WithWindowLevel(window))
	if sess.Nav.State() != viewer.Bound {
		return nil, false, fmt.Errorf("series has no slices")
	}
	return sess, auto, nil
}

// renderAt moves to slice i and renders it, windowing on the slice's own
// statistics when auto is set.
func renderAt(sess *viewer.Session, i int, auto bool) (*imaging.RenderedSlice, error) {
	if _, err := sess.Nav.GoTo(i); err != nil {
		return nil, err
	}
	if auto {
		if err := sess.AutoWindow(); err != nil {
			return nil, err
		}
	}
	return sess.Nav.Render()
}

func windowLabel(sess *viewer.Session, auto bool) string {
	if auto {
		return viewer.AutoPreset
	}
	return sess.Nav.WindowLevel().String()
}

// sessionFlags locate the imaging for view and serve.
type sessionFlags struct {
	noFallback bool
	slices     int
	window     windowFlags
}

func (s *sessionFlags) register(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Assets.Root, "assets", cfg.Assets.Root, "Asset root for relative locations")
	fs.StringVar(&cfg.Assets.Report, "report", cfg.Assets.Report, "Patient report path or URL")
	fs.StringVar(&cfg.Assets.SeriesDir, "series", cfg.Assets.SeriesDir, "DICOM series directory (default: the report's)")
	fs.StringVar(&cfg.Assets.StackDir, "stack", cfg.Assets.StackDir, "PNG stack directory")
	fs.StringVar(&cfg.Assets.StackURL, "stack-url", cfg.Assets.StackURL, "PNG stack base URL (wins over --stack)")
	fs.StringVar(&cfg.Viewer.Mode, "mode", cfg.Viewer.Mode, "Force a mode: dicom, png or synthetic (default: auto)")
	fs.BoolVar(&s.noFallback, "no-fallback", false, "Show nothing when the DICOM series is unavailable")
	fs.IntVar(&s.slices, "slices", 0, "Synthetic slice count (default: the report's)")
	fs.IntVar(&cfg.Synthetic.Size, "size", cfg.Synthetic.Size, "Synthetic slice size")
	s.window.register(fs)
}

// openSession loads the report, lets install attach a sink, and opens the
// session. A missing report falls back to the default request; a first
// slice that cannot be decoded is logged and the session stays usable.
func openSession(ctx context.Context, cfg *config.Config, fs *flag.FlagSet, sf *sessionFlags,
	install func(*viewer.Session, *report.Report)) (*viewer.Session, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rep, err := report.Load(ctx, cfg.ReportLocation(), nil)
	if err != nil {
		log.Warn().Err(err).Msg("report unavailable, using defaults")
		rep = nil
	}

	override, auto, err := sf.window.resolve(fs, cfg.Viewer.Window)
	if err != nil {
		return nil, err
	}

	sess := viewer.NewSession(nil)
	install(sess, rep)

	oc := viewer.OpenConfig{
		AssetRoot:       cfg.Assets.Root,
		SeriesDir:       cfg.Assets.SeriesDir,
		StackDir:        cfg.Assets.StackDir,
		StackURL:        cfg.Assets.StackURL,
		Forced:          cfg.ForcedMode(),
		NoFallback:      sf.noFallback,
		SyntheticSize:   cfg.Synthetic.Size,
		SyntheticSlices: sf.slices,
		Window:          override,
		DefaultWindow:   cfg.Viewer.Window,
	}
	if err := sess.Open(ctx, rep.SeriesRequest(), oc); err != nil {
		log.Warn().Err(err).Msg("first slice could not be shown")
	}
	if auto && sess.Nav.State() == viewer.Bound {
		if err := sess.AutoWindow(); err != nil {
			log.Warn().Err(err).Msg("auto window")
		}
	}
	return sess, nil
}

func printReport(rep *report.Report) {
	req := rep.SeriesRequest()
	fmt.Printf("Patient: %s", req.PatientID)
	if rep.Age > 0 || rep.Gender != "" {
		fmt.Printf(" (%d, %s)", rep.Age, rep.Gender)
	}
	fmt.Println()

	if rep.Vitals != nil {
		if r := report.RangeOf(rep.Vitals.HeartRate); r.Ok {
			fmt.Printf("Heart rate: %.0f-%.0f bpm\n", r.Min, r.Max)
		}
		sys, dia := rep.Vitals.Split()
		if s, d := report.RangeOf(sys), report.RangeOf(dia); s.Ok && d.Ok {
			fmt.Printf("Blood pressure: %.0f-%.0f / %.0f-%.0f mmHg\n", s.Min, s.Max, d.Min, d.Max)
		}
	}

	if len(rep.Labs) > 0 {
		fmt.Println("Labs:")
		for _, l := range rep.Labs {
			fmt.Printf("  %-12s %8.2f  (%g-%g) %s\n", l.Name, l.Value, l.NormalMin, l.NormalMax, l.Flag())
		}
		if abnormal := rep.AbnormalLabs(); len(abnormal) > 0 {
			fmt.Printf("  %d abnormal\n", len(abnormal))
		}
	}

	fmt.Println("Findings:")
	fmt.Println(viewer.FindingsText(req.Findings))
}

func printSeries(desc *dicom.SeriesDescriptor, expected, slice int) {
	fmt.Printf("  Slices: %d", desc.Len())
	if expected > 0 && expected != desc.Len() {
		fmt.Printf(" (report expects %d)", expected)
	}
	fmt.Println()
	if desc.Len() == 0 {
		return
	}

	i := desc.Len() / 2
	if slice > 0 {
		i = min(slice, desc.Len()) - 1
	}

	enc, err := dicom.ReadEncodedFrame(desc.Frame(i).Ref)
	if err != nil {
		fmt.Printf("  Slice %d unreadable: %v\n", i+1, err)
		return
	}
	g := enc.Geometry
	signed := "unsigned"
	if g.Signed() {
		signed = "signed"
	}
	fmt.Printf("  Matrix: %dx%d, %d-bit %s\n", g.Columns, g.Rows, g.BitsAllocated, signed)
	if enc.PatientID != "" {
		fmt.Printf("  Patient ID: %s\n", enc.PatientID)
	}
	if enc.Window != nil {
		fmt.Printf("  Stored window: %s\n", *enc.Window)
	}

	frame, err := enc.Decode()
	if err != nil {
		fmt.Printf("  Slice %d undecodable: %v\n", i+1, err)
		return
	}
	st := imaging.ComputeStats(frame.Samples)
	fmt.Printf("  Slice %d: min %.0f, max %.0f, mean %.1f, std %.1f, median %.0f\n",
		i+1, st.Min, st.Max, st.Mean, st.StdDev, st.Median)
	fmt.Printf("  Auto window: %s\n", imaging.AutoWindow(st))
}
