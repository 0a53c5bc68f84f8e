package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/mrsinham/dicomview/internal/imaging"
	"github.com/mrsinham/dicomview/internal/report"
)

// binaryPath is the dicomview binary built by TestMain.
var binaryPath string

// testContext is the state of one scenario.
type testContext struct {
	tmpDir   string
	exitCode int
	output   string
}

// buildBinary compiles ./cmd/dicomview from the module root into dir.
func buildBinary(dir string) (string, error) {
	_, thisFile, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(thisFile), "..", "..")
	out := filepath.Join(dir, "dicomview")

	cmd := exec.Command("go", "build", "-o", out, "./cmd/dicomview")
	cmd.Dir = root
	if msg, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("go build: %w\n%s", err, msg)
	}
	return out, nil
}

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "dicomview-bin-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "temp dir: %v\n", err)
		os.Exit(1)
	}
	if binaryPath, err = buildBinary(dir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.RemoveAll(dir)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature scenarios failed")
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	tc := &testContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		dir, err := os.MkdirTemp("", "dicomview-e2e-*")
		tc.tmpDir, tc.exitCode, tc.output = dir, 0, ""
		return ctx, err
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		return ctx, os.RemoveAll(tc.tmpDir)
	})

	sc.Step(`^dicomview is built$`, tc.dicomviewIsBuilt)
	sc.Step(`^I run dicomview with "([^"]*)"$`, tc.iRunDicomviewWith)
	sc.Step(`^I run dicomview with '([^']*)'$`, tc.iRunDicomviewWith)
	sc.Step(`^the exit code should be (\d+)$`, tc.theExitCodeShouldBe)
	sc.Step(`^the output should contain "([^"]*)"$`, tc.theOutputShouldContain)
	sc.Step(`^"([^"]*)" should contain (\d+) DICOM files$`, tc.shouldContainDICOMFiles)
	sc.Step(`^"([^"]*)" should contain (\d+) "([^"]*)" files$`, tc.shouldContainFiles)
	sc.Step(`^"([^"]*)" should exist$`, tc.shouldExist)
	sc.Step(`^"([^"]*)" should be a (\d+)x(\d+) image$`, tc.shouldBeImage)
	sc.Step(`^a report for patient "([^"]*)" with (\d+) slices at "([^"]*)"$`, tc.aReportWith)
}

func (tc *testContext) expand(s string) string {
	return strings.ReplaceAll(s, "{tmpdir}", tc.tmpDir)
}

func (tc *testContext) dicomviewIsBuilt() error {
	if binaryPath == "" {
		return fmt.Errorf("binary not built")
	}
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		return fmt.Errorf("binary does not exist at %s", binaryPath)
	}
	return nil
}

// iRunDicomviewWith runs the binary inside the scenario directory so that
// relative asset paths and the default config file resolve there.
func (tc *testContext) iRunDicomviewWith(args string) error {
	cmd := exec.Command(binaryPath, splitArgs(tc.expand(args))...)
	cmd.Dir = tc.tmpDir
	out, err := cmd.CombinedOutput()
	tc.output = string(out)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		tc.exitCode = 0
	case errors.As(err, &exitErr):
		tc.exitCode = exitErr.ExitCode()
	default:
		return fmt.Errorf("run dicomview: %w", err)
	}
	return nil
}

func (tc *testContext) theExitCodeShouldBe(expected int) error {
	if tc.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nOutput:\n%s", expected, tc.exitCode, tc.output)
	}
	return nil
}

func (tc *testContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(tc.output, tc.expand(expected)) {
		return fmt.Errorf("output does not contain %q\nOutput:\n%s", expected, tc.output)
	}
	return nil
}

func (tc *testContext) shouldContainDICOMFiles(path string, count int) error {
	return tc.shouldContainFiles(path, count, "dcm")
}

func (tc *testContext) shouldContainFiles(path string, count int, ext string) error {
	files, err := filepath.Glob(filepath.Join(tc.expand(path), "slice_*."+ext))
	if err != nil {
		return err
	}
	if len(files) != count {
		return fmt.Errorf("expected %d %s files, found %d", count, ext, len(files))
	}
	return nil
}

func (tc *testContext) shouldExist(path string) error {
	path = tc.expand(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", path)
	}
	return nil
}

func (tc *testContext) shouldBeImage(path string, width, height int) error {
	s, err := imaging.ReadFile(tc.expand(path))
	if err != nil {
		return err
	}
	if s.Columns != width || s.Rows != height {
		return fmt.Errorf("expected %dx%d, got %dx%d", width, height, s.Columns, s.Rows)
	}
	return nil
}

func (tc *testContext) aReportWith(patientID string, slices int, series string) error {
	rep := report.Report{
		PatientID: patientID,
		Age:       58,
		Gender:    "M",
		Vitals: &report.Vitals{
			HeartRate:     []float64{72, 80, 95},
			BloodPressure: []report.BloodPressure{{Systolic: 120, Diastolic: 80}, {Systolic: 135, Diastolic: 85}},
		},
		Labs: []report.LabResult{
			{Name: "Hemoglobin", Value: 11.2, NormalMin: 13.5, NormalMax: 17.5},
			{Name: "Sodium", Value: 140, NormalMin: 135, NormalMax: 145},
		},
		Imaging: &report.Imaging{
			CTSlices:        slices,
			DicomSeriesPath: tc.expand(series),
			Findings:        []string{"Ground-glass opacity in the right lower lobe"},
		},
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(tc.tmpDir, "report.json"), data, 0644)
}

// splitArgs splits a command line on spaces. Double quotes group words and
// are dropped.
func splitArgs(s string) []string {
	var (
		args   []string
		word   []rune
		quoted bool
		inWord bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			inWord = true
		case r == ' ' && !quoted:
			if inWord {
				args = append(args, string(word))
			}
			word, inWord = word[:0], false
		default:
			word = append(word, r)
			inWord = true
		}
	}
	if inWord {
		args = append(args, string(word))
	}
	return args
}
