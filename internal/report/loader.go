package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// maxReportSize bounds how much of a remote report is read.
const maxReportSize = 8 << 20

// Provider supplies the report for a viewing session.
type Provider interface {
	Report(ctx context.Context) (*Report, error)
}

// Source loads a report from a local path or an http(s) URL.
type Source struct {
	Location string
	Client   *http.Client // nil = http.DefaultClient
}

// Report implements Provider.
func (s Source) Report(ctx context.Context) (*Report, error) {
	return Load(ctx, s.Location, s.Client)
}

// Load reads a report from a file path or an http(s) URL.
func Load(ctx context.Context, location string, client *http.Client) (*Report, error) {
	var (
		data []byte
		err  error
	)
	if isURL(location) {
		data, err = fetch(ctx, location, client)
	} else {
		data, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", location, err)
	}

	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", location, err)
	}
	log.Debug().Str("location", location).Str("patient", r.PatientID).Msg("report loaded")
	return r, nil
}

// Parse decodes report JSON.
func Parse(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &r, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func fetch(ctx context.Context, url string, client *http.Client) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxReportSize))
}
