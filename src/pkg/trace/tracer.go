package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// ReportFileName is the performance report written on shutdown
const ReportFileName = "performance-report.json"

var tracer trace.Tracer
var spanRecorder *SpanRecorder
var outputDir string

// SpanRecorder records spans for human-readable reporting
type SpanRecorder struct {
	mu    sync.Mutex
	spans []spanRecord
}

type spanRecord struct {
	Name     string
	Duration time.Duration
	Start    time.Time
	End      time.Time
	ParentID string
	SpanID   string
}

type SpanInfo struct {
	Name       string     `json:"name"`
	DurationMs float64    `json:"durationMs"`
	Start      string     `json:"start"`
	End        string     `json:"end"`
	Children   []SpanInfo `json:"children,omitempty"`
}

type PerformanceReport struct {
	Spans           []SpanInfo `json:"spans"`
	TotalDurationMs float64    `json:"totalDurationMs"`
	Timestamp       string     `json:"timestamp"`
}

// InitTracer initializes OpenTelemetry tracing. Spans are kept in memory and
// exported to outDir as a performance report by the returned shutdown function.
func InitTracer(serviceName string, enabled bool, outDir string) (func(), error) {
	if !enabled {
		// Return no-op shutdown
		return func() {}, nil
	}

	spanRecorder = &SpanRecorder{spans: make([]spanRecord, 0)}
	outputDir = outDir

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(&recordingSpanProcessor{recorder: spanRecorder}),
	)

	otel.SetTracerProvider(tp)
	tracer = tp.Tracer("mapdiff")

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
		_ = ExportReport()
		tracer = nil
		spanRecorder = nil
	}

	return shutdown, nil
}

// StartSpan starts a new span, a no-op span when tracing is disabled
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Enabled reports whether spans are being recorded
func Enabled() bool {
	return tracer != nil
}

// recordingSpanProcessor records spans for human-readable summary
type recordingSpanProcessor struct {
	recorder *SpanRecorder
}

func (p *recordingSpanProcessor) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {}

func (p *recordingSpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	if p.recorder == nil {
		return
	}
	parentID := ""
	if s.Parent().IsValid() {
		parentID = s.Parent().SpanID().String()
	}
	p.recorder.add(spanRecord{
		Name:     s.Name(),
		Duration: s.EndTime().Sub(s.StartTime()),
		Start:    s.StartTime(),
		End:      s.EndTime(),
		SpanID:   s.SpanContext().SpanID().String(),
		ParentID: parentID,
	})
}

func (p *recordingSpanProcessor) Shutdown(ctx context.Context) error   { return nil }
func (p *recordingSpanProcessor) ForceFlush(ctx context.Context) error { return nil }

func (r *SpanRecorder) add(record spanRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spans = append(r.spans, record)
}

func (r *SpanRecorder) snapshot() []spanRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]spanRecord(nil), r.spans...)
}

// ExportReport exports the performance report to a JSON file
func ExportReport() error {
	if spanRecorder == nil || outputDir == "" {
		return nil
	}
	records := spanRecorder.snapshot()
	if len(records) == 0 {
		return nil
	}

	report := buildReport(records)

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(filepath.Join(outputDir, ReportFileName), data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// buildReport assembles the span tree of a run
func buildReport(records []spanRecord) PerformanceReport {
	hierarchy := buildHierarchy(records)

	totalDurationMs := 0.0
	for _, span := range hierarchy {
		totalDurationMs += span.DurationMs
	}

	return PerformanceReport{
		Spans:           hierarchy,
		TotalDurationMs: totalDurationMs,
		Timestamp:       time.Now().Format(time.RFC3339Nano),
	}
}

// buildHierarchy converts flat span records into a tree, children ordered by start time.
// Spans whose parent was not recorded become roots.
func buildHierarchy(records []spanRecord) []SpanInfo {
	known := make(map[string]bool, len(records))
	for _, record := range records {
		known[record.SpanID] = true
	}

	children := make(map[string][]spanRecord)
	var roots []spanRecord
	for _, record := range records {
		if record.ParentID == "" || !known[record.ParentID] {
			roots = append(roots, record)
			continue
		}
		children[record.ParentID] = append(children[record.ParentID], record)
	}

	var build func(level []spanRecord) []SpanInfo
	build = func(level []spanRecord) []SpanInfo {
		sort.SliceStable(level, func(i, j int) bool {
			return level[i].Start.Before(level[j].Start)
		})
		out := make([]SpanInfo, 0, len(level))
		for _, record := range level {
			out = append(out, SpanInfo{
				Name:       record.Name,
				DurationMs: float64(record.Duration.Microseconds()) / 1000.0,
				Start:      record.Start.Format(time.RFC3339Nano),
				End:        record.End.Format(time.RFC3339Nano),
				Children:   build(children[record.SpanID]),
			})
		}
		return out
	}

	return build(roots)
}
