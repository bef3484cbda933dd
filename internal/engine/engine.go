// Package engine runs the discover, merge, collect and image check passes
// over the catalog.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/deskrank/internal/catalog"
	"github.com/IshaanNene/deskrank/internal/collector"
	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/explored"
	"github.com/IshaanNene/deskrank/internal/fetcher"
	"github.com/IshaanNene/deskrank/internal/observability"
	"github.com/IshaanNene/deskrank/internal/parser"
	"github.com/IshaanNene/deskrank/internal/product"
	"github.com/IshaanNene/deskrank/internal/storage"
	"github.com/IshaanNene/deskrank/internal/types"
)

// ErrBusy is returned when a run is started while another is in progress.
var ErrBusy = errors.New("engine busy")

// State represents the engine's current lifecycle state.
type State int32

const (
	StateIdle    State = 0
	StateRunning State = 1
	StateClosed  State = 2
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stats tracks counts for the current or last run.
type Stats struct {
	RunID           string
	Run             string
	SourcesRun      atomic.Int64
	SourcesFailed   atomic.Int64
	ItemsDiscovered atomic.Int64
	ItemsEnriched   atomic.Int64
	EnrichFailed    atomic.Int64
	ItemsScored     atomic.Int64
	ItemsFailed     atomic.Int64
	ImagesChecked   atomic.Int64
	ImagesBroken    atomic.Int64
	ImagesFixed     atomic.Int64
	StartTime       time.Time
}

// Snapshot returns a copy of stats safe for reading.
func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"run_id":           s.RunID,
		"run":              s.Run,
		"sources_run":      s.SourcesRun.Load(),
		"sources_failed":   s.SourcesFailed.Load(),
		"items_discovered": s.ItemsDiscovered.Load(),
		"items_enriched":   s.ItemsEnriched.Load(),
		"enrich_failed":    s.EnrichFailed.Load(),
		"items_scored":     s.ItemsScored.Load(),
		"items_failed":     s.ItemsFailed.Load(),
		"images_checked":   s.ImagesChecked.Load(),
		"images_broken":    s.ImagesBroken.Load(),
		"images_fixed":     s.ImagesFixed.Load(),
		"elapsed":          time.Since(s.StartTime).Round(time.Millisecond).String(),
	}
}

// ProductLookup reads product details for a product code.
type ProductLookup interface {
	Fetch(ctx context.Context, asin string) (*product.Info, error)
}

// ImageChecker classifies an image URL.
type ImageChecker interface {
	Check(ctx context.Context, imageURL string) product.ImageCheck
}

// NoteLister lists the articles of a note.com interest page.
type NoteLister interface {
	Articles(ctx context.Context, topic string) ([]collector.NoteArticle, error)
}

// HistoryRecorder stores the scores of a collect run.
type HistoryRecorder interface {
	Record(ctx context.Context, entries []storage.HistoryEntry) error
}

// Engine holds the services the runs share. Only one run executes at a time.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	fetcher  fetcher.Fetcher
	pages    map[types.SourceType]fetcher.Fetcher
	throttle fetcher.Throttle
	explored explored.Store
	metrics  *observability.Metrics
	keywords *parser.KeywordExtractor

	lookup  ProductLookup
	images  ImageChecker
	youtube collector.VideoSearcher
	twitter collector.TweetSearcher
	notes   NoteLister
	history HistoryRecorder

	discoveredSink storage.Sink
	collectedSink  storage.Sink

	collectors map[types.SourceType]collector.Collector
	closers    []func() error
	now        func() time.Time

	state atomic.Int32
	mu    sync.RWMutex
	stats *Stats
}

// New creates an Engine with file snapshot sinks and a file explored store
// at the configured paths. Network services are attached with the setters
// or by Build.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:            cfg,
		logger:         logger.With("component", "engine"),
		throttle:       fetcher.Sleeper{Jitter: cfg.Fetcher.Jitter},
		explored:       explored.NewFileStore(cfg.Paths.Explored, logger),
		discoveredSink: storage.NewFileSink(cfg.Paths.DiscoveredDir, logger),
		collectedSink:  storage.NewFileSink(cfg.Paths.CollectedDir, logger),
		pages:          make(map[types.SourceType]fetcher.Fetcher),
		collectors:     make(map[types.SourceType]collector.Collector),
		now:            time.Now,
		stats:          &Stats{},
	}
}

// SetFetcher sets the default page fetcher.
func (e *Engine) SetFetcher(f fetcher.Fetcher) { e.fetcher = f }

// SetSourceFetcher routes the page fetches of one source to f.
func (e *Engine) SetSourceFetcher(source types.SourceType, f fetcher.Fetcher) { e.pages[source] = f }

// SetThrottle replaces the courtesy delay.
func (e *Engine) SetThrottle(t fetcher.Throttle) { e.throttle = t }

// SetExplored replaces the explored-set store.
func (e *Engine) SetExplored(s explored.Store) { e.explored = s }

// SetMetrics sets the metrics recorder.
func (e *Engine) SetMetrics(m *observability.Metrics) { e.metrics = m }

// SetKeywords sets the keyword extractor used for note matching.
func (e *Engine) SetKeywords(k *parser.KeywordExtractor) { e.keywords = k }

// SetLookup sets the product page reader.
func (e *Engine) SetLookup(l ProductLookup) { e.lookup = l }

// SetImageChecker sets the image validator.
func (e *Engine) SetImageChecker(c ImageChecker) { e.images = c }

// SetYouTube sets the video search API.
func (e *Engine) SetYouTube(y collector.VideoSearcher) { e.youtube = y }

// SetTwitter sets the tweet search API.
func (e *Engine) SetTwitter(t collector.TweetSearcher) { e.twitter = t }

// SetNoteLister overrides the note.com article source used by collect.
func (e *Engine) SetNoteLister(n NoteLister) { e.notes = n }

// SetHistory sets the score history recorder.
func (e *Engine) SetHistory(h HistoryRecorder) { e.history = h }

// SetSinks replaces the discovered and collected snapshot sinks.
func (e *Engine) SetSinks(discovered, collected storage.Sink) {
	e.discoveredSink = discovered
	e.collectedSink = collected
}

// SetCollector overrides the collector for a source.
func (e *Engine) SetCollector(c collector.Collector) {
	e.collectors[c.Source()] = c
}

// SetClock replaces the time source.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Explored returns the explored-set store.
func (e *Engine) Explored() explored.Store { return e.explored }

// Stats returns the statistics of the current or last run.
func (e *Engine) Stats() *Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

// GetState returns the current engine state.
func (e *Engine) GetState() State {
	return State(e.state.Load())
}

// Close releases the fetcher and the storage backends.
func (e *Engine) Close() error {
	e.state.Store(int32(StateClosed))
	var firstErr error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.Error("close error", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	e.closers = nil
	return firstErr
}

func (e *Engine) onClose(fn func() error) {
	e.closers = append(e.closers, fn)
}

// begin marks the engine running and resets the stats for run.
func (e *Engine) begin(run string) (*Stats, error) {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		if e.GetState() == StateClosed {
			return nil, fmt.Errorf("engine closed")
		}
		return nil, ErrBusy
	}
	s := &Stats{RunID: uuid.NewString(), Run: run, StartTime: e.now()}
	e.mu.Lock()
	e.stats = s
	e.mu.Unlock()
	e.logger.Info("run starting", "run", run, "run_id", s.RunID)
	return s, nil
}

func (e *Engine) end(s *Stats) {
	e.metrics.ObserveRun(s.Run, time.Since(s.StartTime))
	e.logger.Info("run finished", "stats", s.Snapshot())
	e.state.CompareAndSwap(int32(StateRunning), int32(StateIdle))
}

func (e *Engine) pageFetcher(source types.SourceType) fetcher.Fetcher {
	if f, ok := e.pages[source]; ok {
		return f
	}
	return e.fetcher
}

func (e *Engine) deps(source types.SourceType) collector.Deps {
	return collector.Deps{
		Fetcher:  e.pageFetcher(source),
		Throttle: e.throttle,
		Explored: e.explored,
		Metrics:  e.metrics,
		Logger:   e.logger,
		YouTube:  e.youtube,
	}
}

func (e *Engine) collector(source types.SourceType) (collector.Collector, error) {
	if c, ok := e.collectors[source]; ok {
		return c, nil
	}
	c, err := collector.New(source, e.cfg, e.deps(source))
	if err != nil {
		return nil, err
	}
	e.collectors[source] = c
	return c, nil
}

func (e *Engine) noteLister() NoteLister {
	if e.notes == nil {
		e.notes = collector.NewNote(e.cfg.Sources.Note, e.deps(types.SourceNote))
	}
	return e.notes
}

func (e *Engine) wait(ctx context.Context, d time.Duration) error {
	if e.throttle == nil {
		return ctx.Err()
	}
	return e.throttle.Wait(ctx, d)
}

// loadCatalog reads the catalog. When allowMissing is set a missing file
// yields an empty catalog.
func (e *Engine) loadCatalog(allowMissing bool) (*catalog.File, error) {
	f, err := catalog.Load(e.cfg.Paths.Catalog)
	if err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			e.logger.Warn("catalog not found, starting empty", "path", e.cfg.Paths.Catalog)
			return &catalog.File{}, nil
		}
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return f, nil
}
