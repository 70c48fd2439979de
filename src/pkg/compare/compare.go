// Package compare resolves one difficulty on both map versions and runs the
// diff, filter, sort and render pipeline over it.
package compare

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/gh-nvat/mapdiff/src/pkg/beatmap"
	"github.com/gh-nvat/mapdiff/src/pkg/diff"
	"github.com/gh-nvat/mapdiff/src/pkg/models"
	"github.com/gh-nvat/mapdiff/src/pkg/report"
	"github.com/gh-nvat/mapdiff/src/pkg/source"
	"github.com/gh-nvat/mapdiff/src/pkg/trace"
)

const (
	DefaultDifficulty     = "ExpertPlus"
	DefaultCharacteristic = "Standard"
)

var logger = log.WithField("package", "compare")

// Options selects what gets compared
type Options struct {
	Difficulty     string
	Characteristic string
	IncludeLights  bool
}

// DefaultOptions compares Standard ExpertPlus with lights
func DefaultOptions() Options {
	return Options{
		Difficulty:     DefaultDifficulty,
		Characteristic: DefaultCharacteristic,
		IncludeLights:  true,
	}
}

// NewRequest returns a request with default options for the two references
func NewRequest(oldRef, newRef string) models.CompareRequest {
	opts := DefaultOptions()
	return models.CompareRequest{
		OldRef:         oldRef,
		NewRef:         newRef,
		Difficulty:     opts.Difficulty,
		Characteristic: opts.Characteristic,
		IncludeLights:  opts.IncludeLights,
	}
}

// Comparer defines the interface for comparing two referenced maps
type Comparer interface {
	// Compare fetches both maps and compares the requested difficulty
	Compare(ctx context.Context, req models.CompareRequest) (*models.Comparison, error)
}

// Service compares maps loaded through a fetcher
type Service struct {
	fetcher source.MapFetcher
}

// Ensure Service implements Comparer
var _ Comparer = (*Service)(nil)

// NewService creates a compare service
func NewService(fetcher source.MapFetcher) *Service {
	return &Service{fetcher: fetcher}
}

// Compare fetches both maps concurrently and compares the requested difficulty
func (s *Service) Compare(ctx context.Context, req models.CompareRequest) (*models.Comparison, error) {
	ctx, span := trace.StartSpan(ctx, "compare",
		attribute.String("difficulty", req.Difficulty),
		attribute.String("characteristic", req.Characteristic),
	)
	defer span.End()

	loaded, err := s.Load(ctx, req.OldRef, req.NewRef)
	if err != nil {
		return nil, err
	}
	return s.CompareLoaded(ctx, loaded, req)
}

// CompareLoaded compares the requested difficulty of maps already fetched by Load
func (s *Service) CompareLoaded(ctx context.Context, loaded *models.LoadResult, req models.CompareRequest) (*models.Comparison, error) {
	if loaded == nil {
		return nil, &beatmap.EmptyInputError{Side: beatmap.SideOld}
	}
	c, err := run(ctx, loaded.Old, loaded.New, Options{
		Difficulty:     req.Difficulty,
		Characteristic: req.Characteristic,
		IncludeLights:  req.IncludeLights,
	})
	if err != nil {
		return nil, err
	}
	c.OldRef = req.OldRef
	c.NewRef = req.NewRef
	return c, nil
}

// Load fetches both map versions in parallel, failing as soon as one fails
func (s *Service) Load(ctx context.Context, oldRef, newRef string) (*models.LoadResult, error) {
	ctx, span := trace.StartSpan(ctx, "compare.load")
	defer span.End()

	logger.Info("Load: starting...")
	result := &models.LoadResult{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.fetcher.Fetch(gctx, oldRef)
		if err != nil {
			return fmt.Errorf("failed to load %s map: %w", beatmap.SideOld, err)
		}
		result.Old = m
		return nil
	})
	g.Go(func() error {
		m, err := s.fetcher.Fetch(gctx, newRef)
		if err != nil {
			return fmt.Errorf("failed to load %s map: %w", beatmap.SideNew, err)
		}
		result.New = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info("Load: done.")

	return result, nil
}

// Run compares the selected difficulty of two already loaded maps
func Run(oldMap, newMap *beatmap.Beatmap, opts Options) (*models.Comparison, error) {
	return run(context.Background(), oldMap, newMap, opts)
}

func run(ctx context.Context, oldMap, newMap *beatmap.Beatmap, opts Options) (*models.Comparison, error) {
	logger.WithFields(log.Fields{
		"characteristic": opts.Characteristic,
		"difficulty":     opts.Difficulty,
		"lights":         opts.IncludeLights,
	}).Info("Compare: starting...")

	oldData, err := beatmap.Resolve(oldMap, beatmap.SideOld, opts.Characteristic, opts.Difficulty)
	if err != nil {
		return nil, err
	}
	newData, err := beatmap.Resolve(newMap, beatmap.SideNew, opts.Characteristic, opts.Difficulty)
	if err != nil {
		return nil, err
	}

	_, span := trace.StartSpan(ctx, "compare.diff")
	entries, err := diff.GenerateDifficultyDiff(newData, oldData)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("failed to diff difficulties: %w", err)
	}

	_, span = trace.StartSpan(ctx, "compare.order")
	entries = diff.SortByBeats(diff.FilterLights(entries, opts.IncludeLights))
	span.End()

	_, span = trace.StartSpan(ctx, "compare.render")
	text := report.RenderText(entries)
	span.End()

	c := &models.Comparison{
		ID:             uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		OldSongName:    oldMap.SongName,
		NewSongName:    newMap.SongName,
		Difficulty:     opts.Difficulty,
		Characteristic: opts.Characteristic,
		IncludeLights:  opts.IncludeLights,
		Summary:        diff.CalcChanges(entries),
		Entries:        report.Structured(entries),
		Text:           text,
	}

	logger.WithFields(log.Fields{
		"id":       c.ID,
		"total":    c.Summary.Total,
		"added":    c.Summary.Added,
		"removed":  c.Summary.Removed,
		"modified": c.Summary.Modified,
	}).Info("Compare: done.")

	return c, nil
}
