// Package server exposes map comparisons over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/gh-nvat/mapdiff/src/pkg/beatmap"
	"github.com/gh-nvat/mapdiff/src/pkg/compare"
	"github.com/gh-nvat/mapdiff/src/pkg/models"
	"github.com/gh-nvat/mapdiff/src/pkg/report"
)

// ParseFailure is the body returned when a comparison cannot be produced
const ParseFailure = "Can't parse maps"

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

var logger = log.WithField("package", "server")

type ctxKey struct{}

// RequestID returns the id assigned to the request by the server
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Server serves comparisons from a comparer
type Server struct {
	comparer compare.Comparer
	defaults compare.Options
	router   *mux.Router
	metrics  *metrics
}

// New creates a server, defaults fill in query parameters left out by callers
func New(comparer compare.Comparer, defaults compare.Options) *Server {
	s := &Server{
		comparer: comparer,
		defaults: defaults,
		router:   mux.NewRouter(),
		metrics:  newMetrics(),
	}

	s.router.Use(requestIDMiddleware, loggingMiddleware)
	s.router.HandleFunc("/mapscompare/json", s.handleCompare(formatJSON)).Methods(http.MethodGet)
	s.router.HandleFunc("/mapscompare/text", s.handleCompare(formatText)).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", addr).Info("Serving: starting...")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		logger.Info("Serving: done.")
		return nil
	}
}

type format string

const (
	formatJSON format = "json"
	formatText format = "text"
)

func (s *Server) handleCompare(f format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		entry := logger.WithField("requestId", RequestID(r.Context()))

		req, err := s.parseRequest(r)
		if err != nil {
			entry.WithError(err).Warn("Rejected compare request")
			s.metrics.observe(f, "invalid", start)
			http.Error(w, ParseFailure+": "+err.Error(), http.StatusBadRequest)
			return
		}

		c, err := s.comparer.Compare(r.Context(), req)
		if err != nil {
			entry.WithError(err).Warn("Comparison failed")
			s.metrics.observe(f, "failed", start)
			http.Error(w, failureMessage(err), http.StatusBadRequest)
			return
		}

		s.metrics.observe(f, "ok", start)
		s.metrics.changes.Add(float64(c.Summary.Total))

		w.Header().Set("X-Comparison-ID", c.ID)
		switch f {
		case formatJSON:
			data, err := report.MarshalJSON(c.Entries)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(data)
		default:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(c.Text))
		}
	}
}

func (s *Server) parseRequest(r *http.Request) (models.CompareRequest, error) {
	q := r.URL.Query()
	req := models.CompareRequest{
		OldRef:         q.Get("oldMapLink"),
		NewRef:         q.Get("newMapLink"),
		Difficulty:     q.Get("diffToCompare"),
		Characteristic: q.Get("charToCompare"),
		IncludeLights:  s.defaults.IncludeLights,
	}
	if req.OldRef == "" || req.NewRef == "" {
		return req, errors.New("oldMapLink and newMapLink are required")
	}
	if req.Difficulty == "" {
		req.Difficulty = s.defaults.Difficulty
	}
	if req.Characteristic == "" {
		req.Characteristic = s.defaults.Characteristic
	}
	if v := q.Get("compareLights"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("invalid compareLights %q", v)
		}
		req.IncludeLights = b
	}
	return req, nil
}

// failureMessage keeps resolution failures explicit and hides other causes
func failureMessage(err error) string {
	var resolution *beatmap.ResolutionError
	if errors.As(err, &resolution) {
		return ParseFailure + ": " + resolution.Error()
	}
	return ParseFailure
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.WithFields(log.Fields{
			"requestId": RequestID(r.Context()),
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    rec.status,
			"duration":  time.Since(start).String(),
		}).Debug("Handled request")
	})
}

type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	changes  prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mapdiff_compare_requests_total",
			Help: "Compare requests by response format and outcome.",
		}, []string{"format", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mapdiff_compare_duration_seconds",
			Help:    "Time spent fetching and comparing maps.",
			Buckets: prometheus.DefBuckets,
		}, []string{"format"}),
		changes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mapdiff_changes_total",
			Help: "Changes reported across all successful comparisons.",
		}),
	}
	m.registry.MustRegister(m.requests, m.duration, m.changes)
	return m
}

func (m *metrics) observe(f format, outcome string, start time.Time) {
	m.requests.WithLabelValues(string(f), outcome).Inc()
	m.duration.WithLabelValues(string(f)).Observe(time.Since(start).Seconds())
}
