package discovery

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const (
	gitDir        = ".git"
	gitignoreFile = ".gitignore"
	commentPrefix = "#"
)

// ignoreStack accumulates .gitignore patterns while a root is walked.
// Paths are matched relative to base, the enclosing repository top (or the
// walked root outside a repository). Patterns carry the directory they were
// read from, so patterns from one directory only apply beneath it.
type ignoreStack struct {
	base     string
	patterns []gitignore.Pattern
	matcher  gitignore.Matcher
}

// newIgnoreStack prepares a stack for walking root, loading the repository
// exclude file and every .gitignore between the repository top and root.
func newIgnoreStack(root string) (*ignoreStack, error) {
	s := &ignoreStack{base: repoTop(root)}

	errs := []error{s.readFile(filepath.Join(s.base, gitDir, "info", "exclude"), nil)}

	ancestors := s.parts(root)
	for i := range ancestors {
		dir := filepath.Join(append([]string{s.base}, ancestors[:i]...)...)
		errs = append(errs, s.load(dir, ancestors[:i]))
	}
	return s, errors.Join(errs...)
}

// parts splits path into components relative to the stack base; nil for the base itself
func (s *ignoreStack) parts(path string) []string {
	rel, err := filepath.Rel(s.base, path)
	if err != nil || rel == "." {
		return nil
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}

// load reads the .gitignore in dir, whose path relative to the base is domain
func (s *ignoreStack) load(dir string, domain []string) error {
	return s.readFile(filepath.Join(dir, gitignoreFile), domain)
}

func (s *ignoreStack) readFile(path string, domain []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	added := false
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, commentPrefix) || strings.TrimSpace(line) == "" {
			continue
		}
		s.patterns = append(s.patterns, gitignore.ParsePattern(line, domain))
		added = true
	}
	if added {
		s.matcher = gitignore.NewMatcher(s.patterns)
	}
	return nil
}

// ignored reports whether path is excluded by the patterns loaded so far
func (s *ignoreStack) ignored(path string, isDir bool) bool {
	if s.matcher == nil {
		return false
	}
	parts := s.parts(path)
	if len(parts) == 0 {
		return false
	}
	return s.matcher.Match(parts, isDir)
}

// repoTop returns the nearest ancestor of root holding a .git entry, or root itself
func repoTop(root string) string {
	for dir := root; ; {
		if _, err := os.Stat(filepath.Join(dir, gitDir)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return root
		}
		dir = parent
	}
}
