package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"testsearch/internal/domain"
)

// Options configures which files the Scanner reports
type Options struct {
	FilePrefix  string   // Base name prefix of test files, e.g. "test_"
	FileSuffix  string   // Base name suffix of test files, e.g. ".py"
	SkipDirs    []string // Directory names that are never entered
	IgnoreGlobs []string // doublestar patterns relative to the root
}

// Scanner scans for test files in a directory
type Scanner struct {
	filePrefix  string
	fileSuffix  string
	skipDirs    map[string]bool
	ignoreGlobs []string
	logger      *log.Logger
}

// NewScanner creates a new Scanner. Invalid ignore globs are logged and dropped.
func NewScanner(opts Options, logger *log.Logger) *Scanner {
	skipMap := make(map[string]bool)
	for _, dir := range opts.SkipDirs {
		skipMap[dir] = true
	}

	var globs []string
	for _, glob := range opts.IgnoreGlobs {
		if !doublestar.ValidatePattern(glob) {
			logger.Warn("ignoring invalid glob", "pattern", glob)
			continue
		}
		globs = append(globs, glob)
	}

	return &Scanner{
		filePrefix:  opts.FilePrefix,
		fileSuffix:  opts.FileSuffix,
		skipDirs:    skipMap,
		ignoreGlobs: globs,
		logger:      logger,
	}
}

// Scan finds all test files below the given roots.
// Roots are walked concurrently; the result is absolute, sorted and free of duplicates.
func (s *Scanner) Scan(ctx context.Context, roots ...string) ([]string, error) {
	results := make([][]string, len(roots))

	g, ctx := errgroup.WithContext(ctx)
	for i, root := range roots {
		g.Go(func() error {
			files, err := s.scanRoot(ctx, root)
			if err != nil {
				return err
			}
			results[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var testFiles []string
	for _, files := range results {
		testFiles = append(testFiles, files...)
	}
	slices.Sort(testFiles)
	return slices.Compact(testFiles), nil
}

func (s *Scanner) scanRoot(ctx context.Context, root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve test path %s: %v", domain.ErrIO, root, err)
	}
	root = abs
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: test path does not exist: %s", domain.ErrIO, root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: test path is not a directory: %s", domain.ErrIO, root)
	}

	ignores, err := newIgnoreStack(root)
	if err != nil {
		s.logger.Warn("reading ignore files above root", "root", root, "error", err)
	}

	var testFiles []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.logger.Warn("skipping entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != root {
				name := d.Name()
				// Skip hidden directories (starting with .)
				if strings.HasPrefix(name, ".") || s.skipDirs[name] {
					return filepath.SkipDir
				}
				if ignores.ignored(path, true) || s.globIgnored(rel) {
					s.logger.Debug("ignored directory", "path", path)
					return filepath.SkipDir
				}
			}
			if err := ignores.load(path, ignores.parts(path)); err != nil {
				s.logger.Warn("reading ignore file", "dir", path, "error", err)
			}
			return nil
		}

		name := d.Name()
		if !strings.HasPrefix(name, s.filePrefix) || !strings.HasSuffix(name, s.fileSuffix) {
			return nil
		}
		if !s.isFile(path, d) {
			return nil
		}
		if ignores.ignored(path, false) || s.globIgnored(rel) {
			s.logger.Debug("ignored file", "path", path)
			return nil
		}

		testFiles = append(testFiles, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %v", domain.ErrIO, root, err)
	}

	return testFiles, nil
}

func (s *Scanner) globIgnored(rel string) bool {
	for _, glob := range s.ignoreGlobs {
		if ok, _ := doublestar.Match(glob, rel); ok {
			return true
		}
	}
	return false
}

// isFile accepts regular files and symlinks that resolve to regular files
func (s *Scanner) isFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		s.logger.Warn("skipping broken symlink", "path", path, "error", err)
		return false
	}
	return info.Mode().IsRegular()
}
