package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"bookstudio/internal/catalog"
)

var _ catalog.Journal = (*Journal)(nil)

type journalKey struct {
	kind catalog.Kind
	id   int64
}

// Journal is an in-memory catalog.Journal.
type Journal struct {
	mu      sync.Mutex
	entries map[journalKey][]catalog.Change
	now     func() time.Time
}

func NewJournal() *Journal {
	return &Journal{
		entries: make(map[journalKey][]catalog.Change),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (j *Journal) Append(ctx context.Context, c catalog.Change) (catalog.Change, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Change{}, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	key := journalKey{c.Kind, c.EntityID}
	c.Version = len(j.entries[key]) + 1
	c.RecordedAt = j.now()
	c.Payload = slices.Clone(c.Payload)
	j.entries[key] = append(j.entries[key], c)
	return c, nil
}

func (j *Journal) History(ctx context.Context, kind catalog.Kind, id int64) ([]catalog.Change, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.entries[journalKey{kind, id}]), nil
}
