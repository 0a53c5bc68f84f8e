// Package server exposes a viewing session over HTTP: session state as JSON,
// slices as PNG and Prometheus metrics.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/mrsinham/dicomview/internal/imaging"
	"github.com/mrsinham/dicomview/internal/report"
	"github.com/mrsinham/dicomview/internal/viewer"
)

// Generic HTTP metrics.
var (
	requestCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dicomview_http_request_count",
		Help: "Total number of requests by route",
	}, []string{"method", "path"})

	requestSeconds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dicomview_http_request_seconds",
		Help: "Total amount of request time by route, in seconds",
	}, []string{"method", "path"})

	renderSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dicomview_render_seconds",
		Help:    "Time spent decoding and rendering one slice",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	renderErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dicomview_render_errors_total",
		Help: "Slices that could not be decoded or rendered",
	})
)

// ShutdownTimeout is the time given for outstanding requests to finish before shutdown.
const ShutdownTimeout = 1 * time.Second

// Server serves one viewer session. Requests are serialized on the session.
type Server struct {
	ln     net.Listener
	server *http.Server
	router *mux.Router

	// Bind address for the server's listener.
	Addr string

	mu      sync.Mutex
	session *viewer.Session
	report  *report.Report

	// last values pushed by the session
	slice     *imaging.RenderedSlice
	index     int
	total     int
	patientID string
	findings  []string
}

// NewServer returns a server for sess. The server becomes the session's sink.
func NewServer(sess *viewer.Session, rep *report.Report) *Server {
	s := &Server{
		server:  &http.Server{ReadHeaderTimeout: 10 * time.Second},
		router:  mux.NewRouter(),
		session: sess,
		report:  rep,
	}
	sess.Sink = s
	s.patientID, s.findings = sess.PatientID, sess.Findings

	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router := s.router.PathPrefix("/").Subrouter()
	router.Use(trackMetrics)

	router.HandleFunc("/api/session", s.handleGetSession).Methods("GET")
	router.HandleFunc("/api/report", s.handleGetReport).Methods("GET")
	router.HandleFunc("/api/presets", s.handleGetPresets).Methods("GET")
	router.HandleFunc("/api/window", s.handleSetWindow).Methods("POST")
	router.HandleFunc("/slices/current.png", s.handleCurrentSlice).Methods("GET")
	router.HandleFunc("/slices/{n:[0-9]+}.png", s.handleGetSlice).Methods("GET")

	s.server.Handler = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(
		handlers.LoggingHandler(log.Logger, s.router))

	return s
}

// Handler returns the root handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Port returns the TCP port for the running server.
// This is useful in tests where we allocate a random port by using ":0".
func (s *Server) Port() int {
	if s.ln == nil {
		return 0
	}
	return s.ln.Addr().(*net.TCPAddr).Port
}

// URL returns the local base URL of the running server.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.Port())
}

// Open begins listening on the bind address.
func (s *Server) Open() (err error) {
	// Serve() instead of ListenAndServe() so listen errors surface here.
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(s.ln); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()
	return nil
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// ShowSlice implements viewer.Sink.
func (s *Server) ShowSlice(slice *imaging.RenderedSlice, index, total int) {
	s.slice, s.index, s.total = slice, index, total
}

// ShowContext implements viewer.Sink.
func (s *Server) ShowContext(patientID string, findings []string) {
	s.patientID, s.findings = patientID, findings
}

// trackMetrics is middleware for tracking the request count and timing per route.
func trackMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := time.Now()
		tmpl := requestPathTemplate(r)

		next.ServeHTTP(w, r)

		if tmpl != "" {
			requestCount.WithLabelValues(r.Method, tmpl).Inc()
			requestSeconds.WithLabelValues(r.Method, tmpl).Add(time.Since(t).Seconds())
		}
	})
}

// requestPathTemplate returns the route path template for r.
func requestPathTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	tmpl, _ := route.GetPathTemplate()
	return tmpl
}
