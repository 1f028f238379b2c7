// internal/catalog/journal.go
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

// ErrConcurrencyConflict is returned by a journal when two appends race for
// the same entity version.
var ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Action names what a journal entry records.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Change is one audit entry. Payload is the stored record after the write.
type Change struct {
	ID         uuid.UUID           `json:"id" db:"id"`
	Kind       Kind                `json:"kind" db:"kind"`
	EntityID   int64               `json:"entity_id" db:"entity_id"`
	Action     Action              `json:"action" db:"action"`
	Version    int                 `json:"version" db:"version"`
	Payload    jsoniter.RawMessage `json:"payload" db:"payload"`
	RecordedAt time.Time           `json:"recorded_at" db:"recorded_at"`
}

// Journal is the append-only change log.
type Journal interface {
	// Append stores c as the next version of its entity and returns the
	// stored entry. Version and RecordedAt are assigned by the journal.
	Append(ctx context.Context, c Change) (Change, error)
	// History lists an entity's entries by ascending version.
	History(ctx context.Context, kind Kind, id int64) ([]Change, error)
}

func newChange(kind Kind, id int64, action Action, rec any) (Change, error) {
	payload, err := codec.Marshal(rec)
	if err != nil {
		return Change{}, err
	}
	return Change{
		ID:       uuid.New(),
		Kind:     kind,
		EntityID: id,
		Action:   action,
		Payload:  payload,
	}, nil
}
