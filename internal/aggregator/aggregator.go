package aggregator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"testsearch/internal/discovery"
	"testsearch/internal/domain"
	"testsearch/internal/parser"
	"testsearch/internal/storage"
)

// FileScanner finds candidate test files below a set of roots
type FileScanner interface {
	Scan(ctx context.Context, roots ...string) ([]string, error)
}

// Progress reports per-file completion. Implementations must be safe for concurrent use.
type Progress interface {
	Add(n int)
	Finish()
}

// ProgressFactory creates a Progress for a batch of total files
type ProgressFactory func(total int) Progress

// Options configures an Aggregator
type Options struct {
	Workers  int             // Parse workers; defaults to runtime.NumCPU()
	Progress ProgressFactory // Optional; nil disables progress reporting
}

// Stats summarizes one collection
type Stats struct {
	Files  int // Test files found by the scanner
	Hits   int // Files served from the cache
	Parsed int // Files parsed successfully
	Failed int // Files that could not be read or parsed
}

// Result is the outcome of a collection
type Result struct {
	Identifiers []domain.TestIdentifier // Sorted by file, source order within a file
	Stats       Stats
}

// Aggregator discovers test files, reuses cached identifiers for unchanged
// files and parses the rest on a fixed pool of workers.
type Aggregator struct {
	scanner   FileScanner
	parser    parser.SourceParser
	extractor *discovery.Extractor
	cache     storage.Cache
	scheduler Scheduler
	workers   int
	progress  ProgressFactory
	logger    *log.Logger
}

// New creates a new Aggregator
func New(scanner FileScanner, sourceParser parser.SourceParser, extractor *discovery.Extractor, cache storage.Cache, opts Options, logger *log.Logger) *Aggregator {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Aggregator{
		scanner:   scanner,
		parser:    sourceParser,
		extractor: extractor,
		cache:     cache,
		scheduler: NewRoundRobinScheduler(),
		workers:   workers,
		progress:  opts.Progress,
		logger:    logger,
	}
}

// fileResult is what a worker learned about one file
type fileResult struct {
	path        string
	marker      domain.Marker
	identifiers []domain.TestIdentifier
	hit         bool
	failed      bool
	cacheable   bool // Store the result under marker after the join
}

// Collect returns every test identifier below roots.
// The cache is only read while workers run; all updates and the single save
// happen after the join.
func (a *Aggregator) Collect(ctx context.Context, roots ...string) (Result, error) {
	absRoots := make([]string, 0, len(roots))
	for _, root := range roots {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		absRoots = append(absRoots, root)
	}

	files, err := a.scanner.Scan(ctx, absRoots...)
	if err != nil {
		return Result{}, err
	}
	a.logger.Debug("found test files", "count", len(files), "roots", absRoots)

	var bar Progress
	if a.progress != nil && len(files) > 0 {
		bar = a.progress(len(files))
	}

	batches := a.scheduler.Schedule(files, a.workers)
	results := make([][]fileResult, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(workerID int, batch []string) {
			defer wg.Done()
			out := make([]fileResult, 0, len(batch))
			for _, path := range batch {
				out = append(out, a.process(ctx, path))
				if bar != nil {
					bar.Add(1)
				}
			}
			results[workerID] = out
		}(i, batch)
	}
	wg.Wait()
	if bar != nil {
		bar.Finish()
	}

	result := a.merge(results)
	result.Stats.Files = len(files)
	a.forgetMissing(absRoots, files)

	if err := a.cache.Save(); err != nil {
		a.logger.Warn("saving test cache", "error", err)
	}

	a.logger.Debug("collected tests",
		"tests", len(result.Identifiers),
		"files", result.Stats.Files,
		"hits", result.Stats.Hits,
		"parsed", result.Stats.Parsed,
		"failed", result.Stats.Failed,
	)
	return result, nil
}

// process reads one file and resolves its identifiers from the cache or a fresh parse
func (a *Aggregator) process(ctx context.Context, path string) fileResult {
	res := fileResult{path: path}

	info, err := os.Stat(path)
	if err != nil {
		a.logger.Warn("skipping unreadable test file", "path", path, "error", err)
		res.failed = true
		return res
	}
	data, err := os.ReadFile(path)
	if err != nil {
		a.logger.Warn("skipping unreadable test file", "path", path, "error", err)
		res.failed = true
		return res
	}

	res.marker = storage.NewMarker(info, data)
	if ids, ok := a.cache.Lookup(path, res.marker); ok {
		a.logger.Debug("cache hit", "path", path)
		res.identifiers = ids
		res.hit = true
		return res
	}

	tree, err := a.parser.Parse(ctx, data)
	if err != nil {
		res.failed = true
		// An interrupted parse says nothing about the file
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			a.logger.Debug("parse cancelled", "path", path)
			return res
		}
		a.logger.Warn("skipping file with syntax errors", "error", &domain.ParseError{Path: path, Err: err})
		res.cacheable = true
		return res
	}
	res.cacheable = true

	for _, tc := range a.extractor.Extract(path, tree) {
		res.identifiers = append(res.identifiers, tc.Identifier())
	}
	a.logger.Debug("parsed", "path", path, "tests", len(res.identifiers))
	return res
}

// merge folds the per-worker results into one sorted, deduplicated list and
// writes fresh parses back to the cache.
func (a *Aggregator) merge(results [][]fileResult) Result {
	var all []fileResult
	for _, batch := range results {
		all = append(all, batch...)
	}
	slices.SortFunc(all, func(x, y fileResult) int {
		return strings.Compare(x.path, y.path)
	})

	var result Result
	seen := make(map[string]bool)
	for _, fr := range all {
		switch {
		case fr.hit:
			result.Stats.Hits++
		case fr.failed:
			result.Stats.Failed++
		default:
			result.Stats.Parsed++
		}

		if fr.cacheable {
			a.cache.Update(domain.FileCacheEntry{
				FilePath:    fr.path,
				Marker:      fr.marker,
				Identifiers: fr.identifiers,
			})
		}

		for _, id := range fr.identifiers {
			if seen[id.Key()] {
				continue
			}
			seen[id.Key()] = true
			result.Identifiers = append(result.Identifiers, id)
		}
	}
	return result
}

// forgetMissing drops cache entries below roots whose files were not found this time
func (a *Aggregator) forgetMissing(roots, files []string) {
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}

	var stale []string
	for _, path := range a.cache.Paths() {
		if present[path] {
			continue
		}
		for _, root := range roots {
			if within(root, path) {
				stale = append(stale, path)
				break
			}
		}
	}
	if len(stale) > 0 {
		a.logger.Debug("forgetting removed test files", "count", len(stale))
		a.cache.Forget(stale...)
	}
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
