// internal/catalog/resolve.go
package catalog

import (
	"context"
	"errors"
	"fmt"
)

// ref identifies one reference edge while it is being resolved.
type ref struct {
	owner    Kind
	ownerID  int64
	field    string
	target   Kind
	targetID int64
}

func (r ref) fault() *IntegrityError {
	return &IntegrityError{Kind: r.owner, ID: r.ownerID, Field: r.field, Ref: r.target, RefID: r.targetID}
}

// index loads a whole table keyed by id. List projections resolve references
// through it so each referenced kind is read once per request.
func index[T any](ctx context.Context, table Table[T], id func(T) int64) (map[int64]T, error) {
	records, err := table.List(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[int64]T, len(records))
	for _, rec := range records {
		m[id(rec)] = rec
	}
	return m, nil
}

// lookup resolves r against an index built by index.
func lookup[T any](m map[int64]T, r ref) (T, error) {
	rec, ok := m[r.targetID]
	if !ok {
		var zero T
		return zero, r.fault()
	}
	return rec, nil
}

// fetch resolves r with a single store read. A missing target is an
// integrity fault, not a not-found.
func fetch[T any](ctx context.Context, table Table[T], r ref) (T, error) {
	rec, err := table.Get(ctx, r.targetID)
	if err != nil {
		var zero T
		if errors.Is(err, ErrNotFound) {
			return zero, r.fault()
		}
		return zero, fmt.Errorf("resolve %s %d: %w", r.target.Singular(), r.targetID, err)
	}
	return rec, nil
}
