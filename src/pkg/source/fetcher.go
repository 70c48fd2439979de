// Package source resolves map references (a folder, a zip file or an
// http(s) URL to a zip) into parsed maps.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gh-nvat/mapdiff/src/pkg/beatmap"
	"github.com/gh-nvat/mapdiff/src/pkg/trace"
)

var logger = log.WithField("package", "source")

// ErrLocalDisabled is returned for filesystem references when local access is off
var ErrLocalDisabled = errors.New("local map references are disabled")

// MapFetcher defines the interface for resolving a map reference
type MapFetcher interface {
	// Fetch loads and parses the map behind ref
	Fetch(ctx context.Context, ref string) (*beatmap.Beatmap, error)
}

// Options configures a Fetcher
type Options struct {
	// Timeout bounds a single download, zero means no timeout
	Timeout time.Duration
	// MaxSize caps the size of a downloaded or local archive
	MaxSize int64
	// AllowLocal permits folder and file references
	AllowLocal bool
	// UserAgent is sent with downloads
	UserAgent string
}

// DefaultOptions returns the options used by the CLI
func DefaultOptions() Options {
	return Options{
		Timeout:    30 * time.Second,
		MaxSize:    beatmap.MaxFileSize,
		AllowLocal: true,
		UserAgent:  "mapdiff",
	}
}

// Fetcher resolves references from the filesystem or over HTTP
type Fetcher struct {
	client *http.Client
	opts   Options
}

// Ensure Fetcher implements MapFetcher
var _ MapFetcher = (*Fetcher)(nil)

// NewFetcher creates a fetcher, a nil client means http.DefaultClient
func NewFetcher(client *http.Client, opts Options) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = beatmap.MaxFileSize
	}
	return &Fetcher{client: client, opts: opts}
}

// IsRemote reports whether ref is an http(s) URL
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Fetch loads and parses the map behind ref
func (f *Fetcher) Fetch(ctx context.Context, ref string) (*beatmap.Beatmap, error) {
	ctx, span := trace.StartSpan(ctx, "source.fetch")
	defer span.End()

	if ref == "" {
		return nil, fmt.Errorf("empty map reference")
	}

	if IsRemote(ref) {
		data, err := f.download(ctx, ref)
		if err != nil {
			return nil, err
		}
		return beatmap.ReadBundle(data)
	}

	if !f.opts.AllowLocal {
		return nil, ErrLocalDisabled
	}

	info, err := os.Stat(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", ref, err)
	}
	if info.IsDir() {
		return beatmap.ReadDir(ref)
	}
	if info.Size() > f.opts.MaxSize {
		return nil, fmt.Errorf("map archive %s exceeds %d bytes", ref, f.opts.MaxSize)
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return beatmap.ReadBundle(data)
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download map: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download map: unexpected status %s", resp.Status)
	}
	if resp.ContentLength > f.opts.MaxSize {
		return nil, fmt.Errorf("map archive exceeds %d bytes", f.opts.MaxSize)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read map download: %w", err)
	}
	if int64(len(data)) > f.opts.MaxSize {
		return nil, fmt.Errorf("map archive exceeds %d bytes", f.opts.MaxSize)
	}

	logger.WithFields(log.Fields{
		"url":      url,
		"bytes":    len(data),
		"duration": time.Since(start).String(),
	}).Debug("Downloaded map")

	return data, nil
}
