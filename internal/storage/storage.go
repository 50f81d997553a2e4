package storage

import (
	"io/fs"

	"github.com/cespare/xxhash/v2"

	"testsearch/internal/domain"
)

// Cache holds the identifiers extracted from each test file, keyed by path
// and validated by a Marker.
type Cache interface {
	// Lookup returns the cached identifiers for path if its marker still matches.
	Lookup(path string, marker domain.Marker) ([]domain.TestIdentifier, bool)
	// Update replaces the entry for entry.FilePath.
	Update(entry domain.FileCacheEntry)
	// Forget drops the entries for the given paths.
	Forget(paths ...string)
	// Paths lists every cached file path in sorted order.
	Paths() []string
	// Save persists pending changes.
	Save() error
}

// RunLog records which tests were run.
type RunLog interface {
	RecordRun(id domain.TestIdentifier)
	LastRun() (domain.TestIdentifier, bool)
	History() []domain.TestIdentifier
	HistoryUnder(root string) []domain.TestIdentifier
	Clear(root string)
	ClearAll()
	Save() error
}

// Store persists the file cache and the run history together.
type Store interface {
	Cache
	RunLog
	Snapshot() *domain.PersistedState
}

// NewMarker builds the cache marker for a file from its stat info and contents
func NewMarker(info fs.FileInfo, data []byte) domain.Marker {
	return domain.Marker{
		ModTime: info.ModTime().UnixNano(),
		Size:    info.Size(),
		Digest:  xxhash.Sum64(data),
	}
}
