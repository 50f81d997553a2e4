package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fatih/color"

	"testsearch/internal/domain"
)

// Formatter formats and displays output
type Formatter struct {
	out     io.Writer
	newline string

	title   *color.Color
	notice  *color.Color
	success *color.Color
	failure *color.Color
	muted   *color.Color
}

// NewFormatter creates a new Formatter writing to out
func NewFormatter(out io.Writer) *Formatter {
	return &Formatter{
		out:     out,
		newline: "\n",
		title:   color.New(color.FgCyan),
		notice:  color.New(color.FgYellow),
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		muted:   color.New(color.FgHiBlack),
	}
}

// Raw returns a copy that ends lines with "\r\n", for use while the terminal is in raw mode
func (f *Formatter) Raw() *Formatter {
	raw := *f
	raw.newline = "\r\n"
	return &raw
}

func (f *Formatter) line(c *color.Color, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if c != nil {
		text = c.Sprint(text)
	}
	fmt.Fprint(f.out, text, f.newline)
}

// PrintIdentifiers prints one identifier per line, uncolored so the output can be piped
func (f *Formatter) PrintIdentifiers(ids []domain.TestIdentifier) {
	for _, id := range ids {
		f.line(nil, "%s", id.String())
	}
}

// PrintSelected prints the identifier chosen in the picker
func (f *Formatter) PrintSelected(id domain.TestIdentifier) {
	f.line(nil, "%s", id.String())
}

// PrintRunning announces a test command
func (f *Formatter) PrintRunning(argv []string) {
	f.line(f.title, "▶ %s", strings.Join(argv, " "))
}

// PrintExitStatus reports how the test command finished
func (f *Formatter) PrintExitStatus(code int) {
	if code == 0 {
		f.line(f.success, "✓ passed")
		return
	}
	f.line(f.failure, "✗ exited with status %d", code)
}

// PrintNoTests reports that nothing was found below roots
func (f *Formatter) PrintNoTests(roots []string) {
	f.line(f.notice, "No tests found under %s", strings.Join(roots, ", "))
}

// Notice prints an informational line
func (f *Formatter) Notice(format string, args ...any) {
	f.line(f.notice, format, args...)
}

// Error prints an error line
func (f *Formatter) Error(err error) {
	f.line(f.failure, "✗ %v", err)
}

// PrintHistory prints runs most recent first as a tree rooted at root.
// File paths are shown relative to root when possible.
func (f *Formatter) PrintHistory(root string, history []domain.TestIdentifier, last *domain.TestIdentifier) {
	if len(history) == 0 {
		f.line(f.notice, "No test history under %s", root)
		return
	}

	f.line(f.success, "%d test run(s) under %s:", len(history), root)
	recent := slices.Clone(history)
	slices.Reverse(recent)
	for i, id := range recent {
		connector := "├── "
		if i == len(recent)-1 {
			connector = "└── "
		}
		text := relativeIdentifier(root, id)
		if last != nil && last.Equal(id) {
			f.line(nil, "%s%s %s", connector, f.notice.Sprint(text), f.muted.Sprint("(last)"))
		} else {
			f.line(nil, "%s%s", connector, text)
		}
	}
}

// PrintState prints a summary of the persisted state
func (f *Formatter) PrintState(path string, state *domain.PersistedState, root string) {
	tests := 0
	for _, entry := range state.Files {
		tests += len(entry.Identifiers)
	}

	f.line(f.title, "State file:    %s", path)
	f.line(nil, "Version:       %d", state.Version)
	f.line(nil, "Cached files:  %d (%d tests)", len(state.Files), tests)
	if state.LastRun != nil {
		f.line(nil, "Last run:      %s", f.notice.Sprint(state.LastRun.String()))
	} else {
		f.line(nil, "Last run:      %s", f.muted.Sprint("none"))
	}
	f.line(nil, "")

	history := state.History
	if root != "" {
		history = nil
		for _, id := range state.History {
			if id.Under(root) {
				history = append(history, id)
			}
		}
	} else {
		root = string(filepath.Separator)
	}
	f.PrintHistory(root, history, state.LastRun)
}

// PrintBanner prints the REPL greeting
func (f *Formatter) PrintBanner(roots []string) {
	f.line(f.title, "testsearch: %s", strings.Join(roots, ", "))
	f.line(f.muted, "press ? for help")
}

// PrintHelp lists the REPL keys
func (f *Formatter) PrintHelp() {
	f.line(f.title, "Commands:")
	f.line(nil, "  f        find a test and run it")
	f.line(nil, "  r        rerun the last test")
	f.line(nil, "  h        pick a test from history")
	f.line(nil, "  ?        show this help")
	f.line(nil, "  q, Esc   quit")
}

// Newline ends the current line
func (f *Formatter) Newline() {
	fmt.Fprint(f.out, f.newline)
}

// PrintPrompt prints the REPL prompt without a line ending
func (f *Formatter) PrintPrompt() {
	fmt.Fprint(f.out, f.title.Sprint("> "))
}

func relativeIdentifier(root string, id domain.TestIdentifier) string {
	rel, err := filepath.Rel(root, id.FilePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return id.String()
	}
	return domain.NewTestIdentifier(rel, id.ClassPath, id.Name).String()
}
