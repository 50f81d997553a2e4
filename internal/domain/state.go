package domain

// StateVersion is the current on-disk format of PersistedState
const StateVersion = 2

// Marker captures the on-disk state of a file for cache validation.
// Two markers match only when every field is equal.
type Marker struct {
	ModTime int64  `json:"mtime_ns"`
	Size    int64  `json:"size"`
	Digest  uint64 `json:"digest"`
}

// FileCacheEntry holds the tests extracted from one file at a given marker
type FileCacheEntry struct {
	FilePath    string           `json:"file_path"`
	Marker      Marker           `json:"marker"`
	Identifiers []TestIdentifier `json:"identifiers"`
}

// PersistedState is everything testsearch keeps between runs
type PersistedState struct {
	Version int                       `json:"version"`
	Files   map[string]FileCacheEntry `json:"files"`
	History []TestIdentifier          `json:"history"` // Most recent last
	LastRun *TestIdentifier           `json:"last_run,omitempty"`
}

// NewPersistedState returns an empty state at the current version
func NewPersistedState() *PersistedState {
	return &PersistedState{
		Version: StateVersion,
		Files:   make(map[string]FileCacheEntry),
	}
}

// Clone returns a deep copy of the state
func (s *PersistedState) Clone() *PersistedState {
	out := &PersistedState{
		Version: s.Version,
		Files:   make(map[string]FileCacheEntry, len(s.Files)),
		History: CloneIdentifiers(s.History),
	}
	for path, entry := range s.Files {
		entry.Identifiers = CloneIdentifiers(entry.Identifiers)
		out.Files[path] = entry
	}
	if s.LastRun != nil {
		last := NewTestIdentifier(s.LastRun.FilePath, s.LastRun.ClassPath, s.LastRun.Name)
		out.LastRun = &last
	}
	return out
}

// CloneIdentifiers deep-copies ids, preserving nil
func CloneIdentifiers(ids []TestIdentifier) []TestIdentifier {
	if ids == nil {
		return nil
	}
	out := make([]TestIdentifier, len(ids))
	for i, id := range ids {
		out[i] = NewTestIdentifier(id.FilePath, id.ClassPath, id.Name)
	}
	return out
}
