package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPicker(t *testing.T) {
	t.Run("starts on the first candidate", func(t *testing.T) {
		p := newPicker(candidates)
		current, ok := p.current()
		assert.True(t, ok)
		assert.Equal(t, candidates[0], current)
	})

	t.Run("cursor is clamped", func(t *testing.T) {
		p := newPicker(candidates)
		p.move(-5)
		assert.Equal(t, 0, p.cursor)
		p.move(10)
		assert.Equal(t, len(candidates)-1, p.cursor)
	})

	t.Run("query resets cursor to best match", func(t *testing.T) {
		p := newPicker(candidates)
		p.move(2)
		p.setQuery("delete")
		assert.Equal(t, 0, p.cursor)
		current, ok := p.current()
		assert.True(t, ok)
		assert.Equal(t, candidates[1], current)
	})

	t.Run("no matches leaves nothing to pick", func(t *testing.T) {
		p := newPicker(candidates)
		p.setQuery("zzz")
		p.move(1)
		_, ok := p.current()
		assert.False(t, ok)
	})

	t.Run("labels highlight matched characters", func(t *testing.T) {
		p := newPicker([]string{"abc"})
		p.setQuery("ac")
		assert.Equal(t, "[yellow::b]a[-::-]b[yellow::b]c[-::-]", p.label(0))
	})

	t.Run("labels with brackets are escaped", func(t *testing.T) {
		p := newPicker([]string{"test[red]"})
		p.setQuery("red")
		assert.NotContains(t, p.label(0), "[yellow")
	})
}
