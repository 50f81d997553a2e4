package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"testsearch/internal/domain"
)

// legacyState is the unversioned layout: history and last test keyed by the
// directory the tool was run from.
type legacyState struct {
	TestHistory map[string][]string `json:"test_history"`
	LastTest    map[string]string   `json:"last_test"`
}

// migrateLegacy converts the unversioned layout into the current state.
// Relative identifiers are resolved against the directory they were recorded in.
// Directories are visited in sorted order; the final entry becomes the last run.
func migrateLegacy(data []byte) (*domain.PersistedState, error) {
	var legacy legacyState
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("decode legacy state: %w", err)
	}
	if legacy.TestHistory == nil && legacy.LastTest == nil {
		return nil, errors.New("state has neither a version nor legacy history")
	}

	history := legacy.TestHistory
	if history == nil {
		history = make(map[string][]string, len(legacy.LastTest))
		for dir, test := range legacy.LastTest {
			history[dir] = []string{test}
		}
	}

	dirs := make([]string, 0, len(history))
	for dir := range history {
		dirs = append(dirs, dir)
	}
	slices.Sort(dirs)

	state := domain.NewPersistedState()
	for _, dir := range dirs {
		for _, raw := range history[dir] {
			id, err := domain.ParseIdentifier(raw)
			if err != nil {
				continue
			}
			if !filepath.IsAbs(id.FilePath) {
				id = domain.NewTestIdentifier(filepath.Join(dir, id.FilePath), id.ClassPath, id.Name)
			}
			state.History = slices.DeleteFunc(state.History, id.Equal)
			state.History = append(state.History, id)
		}
	}
	if n := len(state.History); n > 0 {
		last := state.History[n-1]
		state.LastRun = &last
	}
	return state, nil
}
