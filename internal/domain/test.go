package domain

import (
	"path/filepath"
	"strings"
)

// Separator joins the parts of a rendered test identifier
const Separator = "::"

// TestIdentifier names a single discoverable test function
type TestIdentifier struct {
	FilePath  string   `json:"file_path"`            // Absolute path to the test file
	ClassPath []string `json:"class_path,omitempty"` // Enclosing test classes, outermost first
	Name      string   `json:"name"`                 // Test function name
}

// NewTestIdentifier creates a TestIdentifier with a cleaned file path
func NewTestIdentifier(filePath string, classPath []string, name string) TestIdentifier {
	var classes []string
	if len(classPath) > 0 {
		classes = make([]string, len(classPath))
		copy(classes, classPath)
	}
	return TestIdentifier{
		FilePath:  filepath.Clean(filePath),
		ClassPath: classes,
		Name:      name,
	}
}

// String renders the identifier in the form file::Class::test_name
func (t TestIdentifier) String() string {
	parts := make([]string, 0, len(t.ClassPath)+2)
	parts = append(parts, t.FilePath)
	parts = append(parts, t.ClassPath...)
	parts = append(parts, t.Name)
	return strings.Join(parts, Separator)
}

// Key returns the deduplication key for the identifier
func (t TestIdentifier) Key() string {
	return t.String()
}

// IsZero reports whether the identifier is unset
func (t TestIdentifier) IsZero() bool {
	return t.FilePath == "" && t.Name == "" && len(t.ClassPath) == 0
}

// Equal reports whether two identifiers name the same test
func (t TestIdentifier) Equal(other TestIdentifier) bool {
	if t.FilePath != other.FilePath || t.Name != other.Name || len(t.ClassPath) != len(other.ClassPath) {
		return false
	}
	for i := range t.ClassPath {
		if t.ClassPath[i] != other.ClassPath[i] {
			return false
		}
	}
	return true
}

// Under reports whether the test file lives below root
func (t TestIdentifier) Under(root string) bool {
	rel, err := filepath.Rel(root, t.FilePath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ParseIdentifier parses a rendered identifier back into its parts.
// The file path ends at the first separator; the last segment is the function name.
func ParseIdentifier(s string) (TestIdentifier, error) {
	idx := strings.Index(s, Separator)
	if idx <= 0 {
		return TestIdentifier{}, &IdentifierError{Value: s}
	}
	file := s[:idx]
	rest := strings.Split(s[idx+len(Separator):], Separator)
	name := rest[len(rest)-1]
	if name == "" {
		return TestIdentifier{}, &IdentifierError{Value: s}
	}
	for _, class := range rest[:len(rest)-1] {
		if class == "" {
			return TestIdentifier{}, &IdentifierError{Value: s}
		}
	}
	return NewTestIdentifier(file, rest[:len(rest)-1], name), nil
}

// TestCase is a single test found while extracting one file
type TestCase struct {
	FilePath  string   // Path to the test file containing this case
	ClassPath []string // Enclosing test classes at the point of definition
	Name      string   // Test function name
}

// Identifier converts the case into its persistent identifier
func (c TestCase) Identifier() TestIdentifier {
	return NewTestIdentifier(c.FilePath, c.ClassPath, c.Name)
}
