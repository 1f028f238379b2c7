// internal/catalog/options.go
package catalog

import (
	"context"
	"fmt"
)

// Options maps a select-view name to its ordered entries. Every requested
// name is present; lists with no eligible entries are empty, never nil.
type Options map[string][]Option

// Present reports whether at least one list has an entry. Callers use it to
// choose between a normal and an empty-result response.
func (o Options) Present() bool {
	for _, opts := range o {
		if len(opts) > 0 {
			return true
		}
	}
	return false
}

// Producer yields one select view.
type Producer func(ctx context.Context) ([]Option, error)

// forms lists the select views each kind's create/edit form is built from.
var forms = map[Kind][]string{
	KindBook:        {string(KindAuthor), string(KindPublisher), string(KindGenre), string(KindCourse)},
	KindAuthor:      {string(KindNationality), string(KindGenre)},
	KindPublisher:   {string(KindNationality)},
	KindStudent:     {string(KindFaculty)},
	KindReservation: {string(KindBook), string(KindStudent)},
}

// FormViews returns the select views needed by kind's form, or nil when the
// form has no dependent fields.
func FormViews(kind Kind) []string {
	return append([]string(nil), forms[kind]...)
}

// aggregate runs the named producers in order. All names are checked before
// any producer runs, so an unknown name never yields a partial result.
func aggregate(ctx context.Context, producers map[string]Producer, names []string) (Options, error) {
	selected := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		if _, ok := producers[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, name)
		}
		seen[name] = true
		selected = append(selected, name)
	}

	out := make(Options, len(selected))
	for _, name := range selected {
		opts, err := producers[name](ctx)
		if err != nil {
			return nil, fmt.Errorf("select %s: %w", name, err)
		}
		if opts == nil {
			opts = []Option{}
		}
		out[name] = opts
	}
	return out, nil
}
