package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookstudio/internal/catalog"
)

var _ catalog.Journal = (*Journal)(nil)

// Journal is a catalog.Journal stored in the changes table.
type Journal struct {
	s   *Store
	now func() time.Time
}

// Journal returns the change journal sharing this store's database.
func (s *Store) Journal() *Journal {
	return &Journal{s: s, now: func() time.Time { return time.Now().UTC() }}
}

// changeRow is the scan target for the changes table. Ids and payloads are
// read as text so every driver returns the same shape.
type changeRow struct {
	ID         string    `db:"id"`
	Kind       string    `db:"kind"`
	EntityID   int64     `db:"entity_id"`
	Action     string    `db:"action"`
	Version    int       `db:"version"`
	Payload    string    `db:"payload"`
	RecordedAt timestamp `db:"recorded_at"`
}

func (r changeRow) change() (catalog.Change, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return catalog.Change{}, fmt.Errorf("change id %q: %w", r.ID, err)
	}
	return catalog.Change{
		ID:         id,
		Kind:       catalog.Kind(r.Kind),
		EntityID:   r.EntityID,
		Action:     catalog.Action(r.Action),
		Version:    r.Version,
		Payload:    jsoniter.RawMessage(r.Payload),
		RecordedAt: r.RecordedAt.Time,
	}, nil
}

// Append stores c as the next version of its entity. Appends for one entity
// take turns on a lock, so each reads the version its predecessor wrote.
// catalog.ErrConcurrencyConflict only reports a version clash the lock did
// not prevent.
func (j *Journal) Append(ctx context.Context, c catalog.Change) (catalog.Change, error) {
	ctx, span := j.s.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.String("kind", string(c.Kind)),
			attribute.Int64("entity.id", c.EntityID),
			attribute.String("action", string(c.Action)),
		),
	)
	defer span.End()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.RecordedAt = j.now()

	err := j.s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := j.s.lockKey(ctx, tx, fmt.Sprintf("changes/%s/%d", c.Kind, c.EntityID)); err != nil {
			return err
		}
		query, args, err := j.s.qb.From("changes").
			Select(goqu.COALESCE(goqu.MAX("version"), 0)).
			Where(goqu.C("kind").Eq(string(c.Kind)), goqu.C("entity_id").Eq(c.EntityID)).
			Prepared(true).ToSQL()
		if err != nil {
			return fmt.Errorf("build version query: %w", err)
		}
		var current int
		if err := sqlx.GetContext(ctx, tx, &current, query, args...); err != nil {
			return fmt.Errorf("query current version: %w", err)
		}
		c.Version = current + 1

		query, args, err = j.s.qb.Insert("changes").Rows(goqu.Record{
			"id":          c.ID.String(),
			"kind":        string(c.Kind),
			"entity_id":   c.EntityID,
			"action":      string(c.Action),
			"version":     c.Version,
			"payload":     string(c.Payload),
			"recorded_at": j.s.timeValue(c.RecordedAt),
		}).Prepared(true).ToSQL()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return catalog.ErrConcurrencyConflict
			}
			return fmt.Errorf("insert change: %w", err)
		}
		return nil
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("conflict.detected", errors.Is(err, catalog.ErrConcurrencyConflict)))
		return catalog.Change{}, spanError(span, err)
	}
	span.SetAttributes(attribute.Int("version", c.Version))
	return c, nil
}

// History lists an entity's changes by ascending version.
func (j *Journal) History(ctx context.Context, kind catalog.Kind, id int64) ([]catalog.Change, error) {
	ctx, span := j.s.tracer.Start(ctx, "journal.history",
		trace.WithAttributes(attribute.String("kind", string(kind)), attribute.Int64("entity.id", id)))
	defer span.End()

	cols := []any{"id", "payload"}
	if j.s.dialect == dialectPostgres {
		cols = []any{goqu.L("id::text").As("id"), goqu.L("payload::text").As("payload")}
	}
	cols = append(cols, "kind", "entity_id", "action", "version", "recorded_at")

	rows, err := selectAll[changeRow](ctx, j.s.db, j.s.qb.From("changes").
		Select(cols...).
		Where(goqu.C("kind").Eq(string(kind)), goqu.C("entity_id").Eq(id)).
		Order(goqu.C("version").Asc()))
	if err != nil {
		return nil, spanError(span, fmt.Errorf("load changes: %w", err))
	}
	changes := make([]catalog.Change, 0, len(rows))
	for _, r := range rows {
		c, err := r.change()
		if err != nil {
			return nil, spanError(span, err)
		}
		changes = append(changes, c)
	}
	return changes, nil
}

// timeValue stores timestamps natively on PostgreSQL and as RFC 3339 text on
// SQLite.
func (s *Store) timeValue(t time.Time) any {
	if s.dialect == dialectSQLite {
		return t.Format(time.RFC3339Nano)
	}
	return t
}

// timestamp scans both native timestamps and their text forms.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
