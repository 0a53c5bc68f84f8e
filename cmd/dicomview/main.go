package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrsinham/dicomview/internal/config"
)

// version is set at build time via -ldflags
var version = "dev"

// defaultConfigFile is read when --config is not given. A missing file
// means built-in defaults.
const defaultConfigFile = "dicomview.yaml"

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, cfg *config.Config, args []string) error
}

var commands = []command{
	{"generate", "Write the synthetic chest CT as a DICOM series", runGenerate},
	{"export", "Render a series to PNG, BMP or TIFF slices", runExport},
	{"render", "Render one slice to an image file", runRender},
	{"info", "Summarize the patient report and its series", runInfo},
	{"view", "Browse the report's series in the terminal", runView},
	{"serve", "Serve the report's series over HTTP", runServe},
}

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "help", "--help", "-h":
		printHelp()
		os.Exit(0)
	case "version", "--version":
		fmt.Printf("dicomview %s\n", version)
		os.Exit(0)
	}

	cmd, ok := findCommand(os.Args[1])
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	args := os.Args[2:]
	setupLogging(hasFlag(args, "verbose"))

	// The config file is read before flags are parsed so that flag defaults
	// come from it.
	configFile := flagValue(args, "config")
	if configFile == "" {
		configFile = defaultConfigFile
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.RegisterPresets()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = cmd.run(ctx, cfg, args)
	stop()

	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// setupLogging sends diagnostics to stderr in console format. Progress and
// results go to stdout with fmt.
func setupLogging(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()
}

// flagValue scans args for --name value or --name=value without parsing.
func flagValue(args []string, name string) string {
	for i, arg := range args {
		trimmed := strings.TrimLeft(arg, "-")
		if trimmed == arg {
			continue
		}
		if trimmed == name && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(trimmed, name+"="); ok {
			return v
		}
	}
	return ""
}

// hasFlag reports whether the boolean flag --name is present and not false.
func hasFlag(args []string, name string) bool {
	for _, arg := range args {
		trimmed := strings.TrimLeft(arg, "-")
		if trimmed == arg {
			continue
		}
		if trimmed == name || trimmed == name+"=true" {
			return true
		}
	}
	return false
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configFile string
	saveConfig string
	verbose    bool
}

func newFlagSet(name string, c *commonFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&c.configFile, "config", defaultConfigFile, "Load configuration from YAML file")
	fs.StringVar(&c.saveConfig, "save-config", "", "Save the effective configuration to YAML file")
	fs.BoolVar(&c.verbose, "verbose", false, "Log debug diagnostics")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "\nUsage:\n  dicomview %s [options]\n\nOptions:\n", name)
		fs.PrintDefaults()
	}
	return fs
}

// save writes cfg when --save-config was given.
func (c *commonFlags) save(cfg *config.Config) {
	if c.saveConfig == "" {
		return
	}
	if err := config.Save(cfg, c.saveConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save config: %v\n", err)
		return
	}
	fmt.Printf("Configuration saved to %s\n", c.saveConfig)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "\nUsage:")
	fmt.Fprintln(os.Stderr, "  dicomview <command> [options]")
	fmt.Fprintln(os.Stderr, "\nCommands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", c.name, c.summary)
	}
}

func printHelp() {
	fmt.Println("dicomview")
	fmt.Println("=========")
	fmt.Println()
	fmt.Println("View a patient's CT series with window/level control, falling back to a")
	fmt.Println("PNG slice stack and then to a synthetic chest CT when no series is found.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dicomview <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	for _, c := range commands {
		fmt.Printf("  %-10s %s\n", c.name, c.summary)
	}
	fmt.Println()
	fmt.Println("Common options:")
	fmt.Println("  --config <FILE>       Configuration file (default: dicomview.yaml, optional)")
	fmt.Println("  --save-config <FILE>  Save the effective configuration after the command")
	fmt.Println("  --verbose             Log debug diagnostics to stderr")
	fmt.Println()
	fmt.Println("Window options (export, render, view, serve):")
	fmt.Println("  --preset <NAME>       lung, soft, bone, brain, subdural, mediastinum,")
	fmt.Println("                        abdomen, liver or auto (statistics of each slice)")
	fmt.Println("  --center <HU>         Window center")
	fmt.Println("  --width <HU>          Window width (values below 1 are raised to 1)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Write the demo series (120 slices, 256x256) under assets/")
	fmt.Println("  dicomview generate")
	fmt.Println()
	fmt.Println("  # Write a smaller series with a custom institution tag")
	fmt.Println("  dicomview generate --output /tmp/ct --slices 40 --size 128 --tag \"InstitutionName=CHU Bordeaux\"")
	fmt.Println()
	fmt.Println("  # Export the series as a PNG stack under a bone window")
	fmt.Println("  dicomview export --input /tmp/ct --output /tmp/ct_png --preset bone")
	fmt.Println()
	fmt.Println("  # Render slice 20 as TIFF, upscaled 2x")
	fmt.Println("  dicomview render --input /tmp/ct --slice 20 --output slice20.tiff --scale 2")
	fmt.Println()
	fmt.Println("  # Browse in the terminal, or over HTTP on 127.0.0.1:8080")
	fmt.Println("  dicomview view")
	fmt.Println("  dicomview serve --addr :8080")
	fmt.Println()
	fmt.Println("Reproducibility:")
	fmt.Println("  The synthetic volume is a fixed function of slice position, and UIDs are")
	fmt.Println("  derived from the output directory and patient ID, so reruns are identical.")
}
