package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"

	"testsearch/internal/domain"
)

// DefaultHistoryLimit bounds the number of remembered runs
const DefaultHistoryLimit = 200

const lockSuffix = ".lock"

// JSONStore keeps PersistedState in memory and writes it to a single JSON file.
// It is not safe for concurrent use; callers mutate it from one goroutine.
type JSONStore struct {
	path         string
	historyLimit int
	logger       *log.Logger
	state        *domain.PersistedState
	dirty        bool
}

// Load reads the state file at path. A missing, unreadable or corrupt file
// yields an empty state; Load never fails because of file content.
func Load(path string, historyLimit int, logger *log.Logger) *JSONStore {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	s := &JSONStore{
		path:         path,
		historyLimit: historyLimit,
		logger:       logger,
		state:        domain.NewPersistedState(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("reading state file, starting empty", "path", path, "error", err)
		}
		return s
	}

	state, migrated, err := decodeState(data)
	if err != nil {
		logger.Warn("discarding unreadable state file", "path", path, "error", err)
		return s
	}
	if migrated {
		logger.Info("migrated legacy state file", "path", path, "history", len(state.History))
		s.dirty = true
	}
	s.state = state
	s.trimHistory()
	return s
}

// decodeState parses a state file, converting the legacy layout when no version is present
func decodeState(data []byte) (*domain.PersistedState, bool, error) {
	var header struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, false, fmt.Errorf("decode state: %w", err)
	}

	if header.Version == nil {
		state, err := migrateLegacy(data)
		return state, err == nil, err
	}
	if *header.Version != domain.StateVersion {
		return nil, false, fmt.Errorf("unsupported state version %d", *header.Version)
	}

	state := domain.NewPersistedState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, false, fmt.Errorf("decode state: %w", err)
	}
	if state.Files == nil {
		state.Files = make(map[string]domain.FileCacheEntry)
	}
	for path, entry := range state.Files {
		entry.FilePath = path
		state.Files[path] = entry
	}
	return state, false, nil
}

// Path returns the location of the state file
func (s *JSONStore) Path() string {
	return s.path
}

// Lookup returns the cached identifiers for path when marker matches the cached one
func (s *JSONStore) Lookup(path string, marker domain.Marker) ([]domain.TestIdentifier, bool) {
	entry, ok := s.state.Files[path]
	if !ok || entry.Marker != marker {
		return nil, false
	}
	return domain.CloneIdentifiers(entry.Identifiers), true
}

// Update replaces the cache entry for entry.FilePath
func (s *JSONStore) Update(entry domain.FileCacheEntry) {
	entry.FilePath = filepath.Clean(entry.FilePath)
	entry.Identifiers = domain.CloneIdentifiers(entry.Identifiers)
	s.state.Files[entry.FilePath] = entry
	s.dirty = true
}

// Forget drops the cache entries for paths
func (s *JSONStore) Forget(paths ...string) {
	for _, path := range paths {
		if _, ok := s.state.Files[path]; ok {
			delete(s.state.Files, path)
			s.dirty = true
		}
	}
}

// Paths lists every cached file in sorted order
func (s *JSONStore) Paths() []string {
	paths := make([]string, 0, len(s.state.Files))
	for path := range s.state.Files {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}

// RecordRun appends id to the history and makes it the last run.
// An earlier occurrence of the same test is moved to the end.
func (s *JSONStore) RecordRun(id domain.TestIdentifier) {
	id = domain.NewTestIdentifier(id.FilePath, id.ClassPath, id.Name)
	s.state.History = slices.DeleteFunc(s.state.History, id.Equal)
	s.state.History = append(s.state.History, id)
	s.trimHistory()

	last := domain.NewTestIdentifier(id.FilePath, id.ClassPath, id.Name)
	s.state.LastRun = &last
	s.dirty = true
}

func (s *JSONStore) trimHistory() {
	if excess := len(s.state.History) - s.historyLimit; excess > 0 {
		s.state.History = slices.Delete(s.state.History, 0, excess)
	}
}

// LastRun returns the most recently run test
func (s *JSONStore) LastRun() (domain.TestIdentifier, bool) {
	if s.state.LastRun == nil {
		return domain.TestIdentifier{}, false
	}
	last := *s.state.LastRun
	return domain.NewTestIdentifier(last.FilePath, last.ClassPath, last.Name), true
}

// History returns every recorded run, most recent last
func (s *JSONStore) History() []domain.TestIdentifier {
	return domain.CloneIdentifiers(s.state.History)
}

// HistoryUnder returns the recorded runs whose files live below root, most recent last
func (s *JSONStore) HistoryUnder(root string) []domain.TestIdentifier {
	var out []domain.TestIdentifier
	for _, id := range s.state.History {
		if id.Under(root) {
			out = append(out, domain.NewTestIdentifier(id.FilePath, id.ClassPath, id.Name))
		}
	}
	return out
}

// Clear forgets the runs recorded below root. The last run falls back to the
// most recent remaining history entry.
func (s *JSONStore) Clear(root string) {
	before := len(s.state.History)
	s.state.History = slices.DeleteFunc(s.state.History, func(id domain.TestIdentifier) bool {
		return id.Under(root)
	})
	if len(s.state.History) != before {
		s.dirty = true
	}

	if s.state.LastRun != nil && s.state.LastRun.Under(root) {
		s.state.LastRun = nil
		if n := len(s.state.History); n > 0 {
			last := s.state.History[n-1]
			s.state.LastRun = &last
		}
		s.dirty = true
	}
}

// ClearAll resets the whole state, including the file cache
func (s *JSONStore) ClearAll() {
	s.state = domain.NewPersistedState()
	s.dirty = true
}

// Snapshot returns a deep copy of the current state
func (s *JSONStore) Snapshot() *domain.PersistedState {
	return s.state.Clone()
}

// Save writes the state if anything changed since the last load or save.
// The file is replaced atomically while holding an advisory lock.
func (s *JSONStore) Save() error {
	if !s.dirty {
		return nil
	}

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: create cache dir %s: %v", domain.ErrIO, dir, err)
	}

	lock, err := acquireLock(s.path + lockSuffix)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			s.logger.Debug("releasing state lock", "error", err)
		}
	}()

	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("%w: write state %s: %v", domain.ErrIO, s.path, err)
	}

	s.dirty = false
	s.logger.Debug("saved state", "path", s.path, "files", len(s.state.Files), "history", len(s.state.History))
	return nil
}

// writeAtomic writes data to a temp file beside path, syncs it and renames it over path
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
