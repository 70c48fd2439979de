package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gh-nvat/mapdiff/src/pkg/beatmap"
	"github.com/gh-nvat/mapdiff/src/pkg/compare"
	"github.com/gh-nvat/mapdiff/src/pkg/diff"
	"github.com/gh-nvat/mapdiff/src/pkg/models"
)

type fakeComparer struct {
	last models.CompareRequest
	err  error
}

func (f *fakeComparer) Compare(ctx context.Context, req models.CompareRequest) (*models.Comparison, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	oldMap := &beatmap.Beatmap{Difficulties: []*beatmap.Difficulty{
		beatmap.NewDifficulty("Standard", "ExpertPlus", beatmap.NewColorGridObject(beatmap.Notes, 4, 1, 0, 0, nil)),
	}}
	newMap := &beatmap.Beatmap{Difficulties: []*beatmap.Difficulty{
		beatmap.NewDifficulty("Standard", "ExpertPlus", beatmap.NewColorGridObject(beatmap.Notes, 4, 1, 0, 1, nil)),
	}}
	return compare.Run(oldMap, newMap, compare.DefaultOptions())
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestCompareText(t *testing.T) {
	fc := &fakeComparer{}
	s := New(fc, compare.DefaultOptions())

	rec := get(t, s.Handler(), "/mapscompare/text?oldMapLink=a&newMapLink=b")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	want := "Changes --- Total: 1 | Added: 0 | Removed: 0 | Modified: 1\n/ Modified 4 at x1 y0 (Blue in Notes)\n"
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id")
	}

	if fc.last.Difficulty != "ExpertPlus" || fc.last.Characteristic != "Standard" || !fc.last.IncludeLights {
		t.Errorf("defaults not applied: %+v", fc.last)
	}
}

func TestCompareJSON(t *testing.T) {
	fc := &fakeComparer{}
	s := New(fc, compare.DefaultOptions())

	rec := get(t, s.Handler(), "/mapscompare/json?oldMapLink=a&newMapLink=b&diffToCompare=Hard&charToCompare=OneSaber&compareLights=false")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}

	var entries []diff.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Type != diff.Modified {
		t.Errorf("entries = %+v", entries)
	}

	want := models.CompareRequest{OldRef: "a", NewRef: "b", Difficulty: "Hard", Characteristic: "OneSaber", IncludeLights: false}
	if fc.last != want {
		t.Errorf("request = %+v, want %+v", fc.last, want)
	}
}

func TestCompare_Failures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   string
		wantBody string
	}{
		{
			name:     "missing links",
			target:   "/mapscompare/text?oldMapLink=a",
			wantBody: "Can't parse maps: oldMapLink and newMapLink are required",
		},
		{
			name:     "invalid lights flag",
			target:   "/mapscompare/text?oldMapLink=a&newMapLink=b&compareLights=maybe",
			wantBody: `Can't parse maps: invalid compareLights "maybe"`,
		},
		{
			name:     "fetch failure",
			err:      errors.New("failed to load old map: boom"),
			target:   "/mapscompare/json?oldMapLink=a&newMapLink=b",
			wantBody: "Can't parse maps",
		},
		{
			name:     "resolution failure",
			err:      &beatmap.ResolutionError{Side: beatmap.SideNew, Characteristic: "Standard", Difficulty: "Easy"},
			target:   "/mapscompare/text?oldMapLink=a&newMapLink=b",
			wantBody: "Can't parse maps: new map has no Easy difficulty for characteristic Standard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakeComparer{err: tt.err}, compare.DefaultOptions())
			rec := get(t, s.Handler(), tt.target)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestRequestIDPropagation(t *testing.T) {
	s := New(&fakeComparer{}, compare.DefaultOptions())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("request id = %q", rec.Header().Get(RequestIDHeader))
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestMetrics(t *testing.T) {
	s := New(&fakeComparer{}, compare.DefaultOptions())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	for _, path := range []string{"/mapscompare/text?oldMapLink=a&newMapLink=b", "/mapscompare/text"} {
		resp, err := srv.Client().Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
	}

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		`mapdiff_compare_requests_total{format="text",outcome="ok"} 1`,
		`mapdiff_compare_requests_total{format="text",outcome="invalid"} 1`,
		`mapdiff_changes_total 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := New(&fakeComparer{}, compare.DefaultOptions())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mapscompare/text", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestListenAndServe_Shutdown(t *testing.T) {
	s := New(&fakeComparer{}, compare.DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.ListenAndServe(ctx, "127.0.0.1:0")
	}()
	cancel()
	if err := <-done; err != nil {
		t.Errorf("ListenAndServe() error = %v", err)
	}
}
