package trace

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStartSpan_Disabled(t *testing.T) {
	shutdown, err := InitTracer("mapdiff", false, t.TempDir())
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}
	defer shutdown()

	if Enabled() {
		t.Fatal("tracing enabled")
	}
	ctx, span := StartSpan(context.Background(), "noop")
	span.End()
	if ctx == nil {
		t.Error("nil context")
	}
}

func TestInitTracer_ExportsReport(t *testing.T) {
	dir := t.TempDir()
	shutdown, err := InitTracer("mapdiff", true, dir)
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}

	ctx, root := StartSpan(context.Background(), "compare")
	_, child := StartSpan(ctx, "compare.diff")
	child.End()
	root.End()
	shutdown()

	if Enabled() {
		t.Error("tracer still enabled after shutdown")
	}

	data, err := os.ReadFile(filepath.Join(dir, ReportFileName))
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	var report PerformanceReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(report.Spans) != 1 || report.Spans[0].Name != "compare" {
		t.Fatalf("spans = %+v", report.Spans)
	}
	if len(report.Spans[0].Children) != 1 || report.Spans[0].Children[0].Name != "compare.diff" {
		t.Errorf("children = %+v", report.Spans[0].Children)
	}
}

func TestBuildHierarchy(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []spanRecord{
		{Name: "grandchild", SpanID: "3", ParentID: "2", Start: t0.Add(2 * time.Millisecond), Duration: time.Millisecond},
		{Name: "child-b", SpanID: "4", ParentID: "1", Start: t0.Add(5 * time.Millisecond)},
		{Name: "child-a", SpanID: "2", ParentID: "1", Start: t0.Add(time.Millisecond)},
		{Name: "root", SpanID: "1", Start: t0, Duration: 10 * time.Millisecond},
		{Name: "orphan", SpanID: "5", ParentID: "99", Start: t0.Add(20 * time.Millisecond)},
	}

	tree := buildHierarchy(records)
	if len(tree) != 2 || tree[0].Name != "root" || tree[1].Name != "orphan" {
		t.Fatalf("roots = %+v", tree)
	}
	root := tree[0]
	if root.DurationMs != 10 {
		t.Errorf("DurationMs = %v", root.DurationMs)
	}
	if len(root.Children) != 2 || root.Children[0].Name != "child-a" || root.Children[1].Name != "child-b" {
		t.Fatalf("children = %+v", root.Children)
	}
	if len(root.Children[0].Children) != 1 || root.Children[0].Children[0].Name != "grandchild" {
		t.Errorf("grandchildren = %+v", root.Children[0].Children)
	}
}
