package execution

import (
	"fmt"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/shell"

	"testsearch/internal/domain"
)

// Placeholder marks where the test identifier goes in a command template
const Placeholder = "{}"

// slotToken stands in for the placeholder while the template is split into
// fields, so brace handling in the shell parser never sees it.
const slotToken = "@@testsearch@@"

// Template is a validated command line with exactly one identifier slot
type Template struct {
	raw    string
	fields []string
	slot   int // Index of the field holding the placeholder
}

// NewTemplate validates raw and splits it into argv fields.
// Quoting follows POSIX shell rules and $VARS are expanded from the environment.
func NewTemplate(raw string) (*Template, error) {
	if n := strings.Count(raw, Placeholder); n != 1 {
		return nil, fmt.Errorf("%w %q: expected exactly one %s placeholder, found %d",
			domain.ErrInvalidTemplate, raw, Placeholder, n)
	}

	fields, err := shell.Fields(strings.Replace(raw, Placeholder, slotToken, 1), nil)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", domain.ErrInvalidTemplate, raw, err)
	}

	slot := slices.IndexFunc(fields, func(f string) bool {
		return strings.Contains(f, slotToken)
	})
	if slot < 0 {
		return nil, fmt.Errorf("%w %q: placeholder is not part of the command", domain.ErrInvalidTemplate, raw)
	}
	if slot == 0 && fields[0] == slotToken {
		return nil, fmt.Errorf("%w %q: template has no command", domain.ErrInvalidTemplate, raw)
	}

	return &Template{raw: raw, fields: fields, slot: slot}, nil
}

// String returns the template as it was given
func (t *Template) String() string {
	return t.raw
}

// Render returns the argv for id
func (t *Template) Render(id domain.TestIdentifier) []string {
	argv := slices.Clone(t.fields)
	argv[t.slot] = strings.Replace(argv[t.slot], slotToken, id.String(), 1)
	return argv
}
