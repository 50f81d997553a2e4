package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"testsearch/internal/domain"
)

// Selector lets the user pick one candidate
type Selector interface {
	// Select returns the chosen candidate or domain.ErrSelectionCancelled.
	Select(title string, candidates []string) (string, error)
}

// picker holds the query and ranked view behind the selector UI
type picker struct {
	candidates []string
	query      string
	ranked     []Ranked
	cursor     int
}

func newPicker(candidates []string) *picker {
	p := &picker{candidates: candidates}
	p.setQuery("")
	return p
}

// setQuery re-ranks the candidates and resets the cursor to the best match
func (p *picker) setQuery(query string) {
	p.query = query
	p.ranked = RankIndexes(query, p.candidates)
	p.cursor = 0
}

// move shifts the cursor by delta, clamped to the ranked list
func (p *picker) move(delta int) {
	if len(p.ranked) == 0 {
		p.cursor = 0
		return
	}
	p.cursor = max(0, min(len(p.ranked)-1, p.cursor+delta))
}

// current returns the candidate under the cursor
func (p *picker) current() (string, bool) {
	if p.cursor < 0 || p.cursor >= len(p.ranked) {
		return "", false
	}
	return p.candidates[p.ranked[p.cursor].Index], true
}

// label renders a ranked entry with its matched characters highlighted
func (p *picker) label(i int) string {
	r := p.ranked[i]
	text := p.candidates[r.Index]
	if len(r.Matched) == 0 || strings.ContainsAny(text, "[]") {
		return tview.Escape(text)
	}

	matched := make(map[int]bool, len(r.Matched))
	for _, idx := range r.Matched {
		matched[idx] = true
	}
	var b strings.Builder
	for idx, ch := range text {
		if matched[idx] {
			fmt.Fprintf(&b, "[yellow::b]%c[-::-]", ch)
		} else {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// FuzzySelector is a full-screen picker: a query line above a ranked list
type FuzzySelector struct{}

// NewFuzzySelector creates a new FuzzySelector
func NewFuzzySelector() *FuzzySelector {
	return &FuzzySelector{}
}

// Select shows candidates until the user picks one with Enter or aborts with Esc or Ctrl+C
func (s *FuzzySelector) Select(title string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", domain.ErrNoTests
	}

	state := newPicker(candidates)
	var chosen string
	cancelled := true

	app := tview.NewApplication()

	list := tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	list.SetMainTextColor(tview.Styles.PrimaryTextColor).
		SetSelectedTextColor(tcell.ColorWhite).
		SetSelectedBackgroundColor(tcell.ColorDarkCyan)

	headerView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)

	updateHeader := func() {
		headerView.SetText(fmt.Sprintf(" [cyan]%s[white] (%d/%d) | ↑↓ to navigate, Enter to run, Esc to cancel ",
			tview.Escape(title), len(state.ranked), len(candidates)))
	}

	refresh := func() {
		list.Clear()
		for i := range state.ranked {
			list.AddItem(state.label(i), "", 0, nil)
		}
		if len(state.ranked) > 0 {
			list.SetCurrentItem(state.cursor)
		}
		updateHeader()
	}

	input := tview.NewInputField().
		SetLabel("> ").
		SetFieldBackgroundColor(tcell.ColorDefault).
		SetChangedFunc(func(text string) {
			state.setQuery(text)
			refresh()
		})

	input.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyUp, tcell.KeyCtrlP:
			state.move(-1)
			list.SetCurrentItem(state.cursor)
			return nil
		case tcell.KeyDown, tcell.KeyCtrlN:
			state.move(1)
			list.SetCurrentItem(state.cursor)
			return nil
		case tcell.KeyPgUp:
			state.move(-10)
			list.SetCurrentItem(state.cursor)
			return nil
		case tcell.KeyPgDn:
			state.move(10)
			list.SetCurrentItem(state.cursor)
			return nil
		case tcell.KeyEnter:
			if current, ok := state.current(); ok {
				chosen = current
				cancelled = false
				app.Stop()
			}
			return nil
		case tcell.KeyEsc, tcell.KeyCtrlC:
			app.Stop()
			return nil
		}
		return event
	})

	refresh()

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(headerView, 1, 0, false).
		AddItem(input, 1, 0, true).
		AddItem(list, 0, 1, false)

	if err := app.SetRoot(layout, true).SetFocus(input).Run(); err != nil {
		return "", fmt.Errorf("failed to run selector: %w", err)
	}

	if cancelled {
		return "", domain.ErrSelectionCancelled
	}
	return chosen, nil
}
