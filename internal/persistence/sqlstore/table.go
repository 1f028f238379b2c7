package sqlstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bookstudio/internal/catalog"
)

// table maps one kind onto a SQL table whose columns match the kind's db tags.
type table[T any] struct {
	s    *Store
	kind catalog.Kind
	name string
}

func (t *table[T]) Get(ctx context.Context, id int64) (T, error) {
	return selectOne[T](ctx, t.s.db, t.s.qb.From(t.name).Where(goqu.C("id").Eq(id)))
}

func (t *table[T]) List(ctx context.Context) ([]T, error) {
	return selectAll[T](ctx, t.s.db, t.s.qb.From(t.name).Order(goqu.C("id").Asc()))
}

func (t *table[T]) Insert(ctx context.Context, rec T) (int64, error) {
	ctx, span := t.s.tracer.Start(ctx, "sqlstore.insert", trace.WithAttributes(attribute.String("table", t.name)))
	defer span.End()

	id, err := t.s.insert(ctx, t.s.db, t.name, rec)
	if err != nil {
		return 0, spanError(span, fmt.Errorf("insert %s: %w", t.name, err))
	}
	span.SetAttributes(attribute.Int64("id", id))
	return id, nil
}

func (t *table[T]) Update(ctx context.Context, id int64, rec T) error {
	ctx, span := t.s.tracer.Start(ctx, "sqlstore.update",
		trace.WithAttributes(attribute.String("table", t.name), attribute.Int64("id", id)))
	defer span.End()

	if err := t.s.update(ctx, t.s.db, t.name, id, rec); err != nil {
		return spanError(span, fmt.Errorf("update %s %d: %w", t.name, id, err))
	}
	return nil
}

func (t *table[T]) FindUnique(ctx context.Context, column, value string) (T, error) {
	if err := checkUniqueColumn(t.kind, column); err != nil {
		var zero T
		return zero, err
	}
	return selectOne[T](ctx, t.s.db, t.s.qb.From(t.name).Where(goqu.C(column).Eq(value)).Limit(1))
}

func checkUniqueColumn(kind catalog.Kind, column string) error {
	if !slices.Contains(catalog.UniqueColumns[kind], column) {
		return fmt.Errorf("%s: %q is not a unique column", kind, column)
	}
	return nil
}

func selectOne[T any](ctx context.Context, q sqlx.QueryerContext, ds *goqu.SelectDataset) (T, error) {
	var rec T
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return rec, fmt.Errorf("build query: %w", err)
	}
	if err := sqlx.GetContext(ctx, q, &rec, query, args...); err != nil {
		return rec, mapError(err)
	}
	return rec, nil
}

func selectAll[T any](ctx context.Context, q sqlx.QueryerContext, ds *goqu.SelectDataset) ([]T, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	recs := []T{}
	if err := sqlx.SelectContext(ctx, q, &recs, query, args...); err != nil {
		return nil, mapError(err)
	}
	return recs, nil
}

// insert writes rec and returns its generated id. PostgreSQL reports the id
// through RETURNING; SQLite through LastInsertId.
func (s *Store) insert(ctx context.Context, q sqlx.ExtContext, name string, rec any) (int64, error) {
	ds := s.qb.Insert(name).Rows(rec).Prepared(true)
	if s.dialect == dialectPostgres {
		query, args, err := ds.Returning("id").ToSQL()
		if err != nil {
			return 0, fmt.Errorf("build insert: %w", err)
		}
		var id int64
		if err := sqlx.GetContext(ctx, q, &id, query, args...); err != nil {
			return 0, mapError(err)
		}
		return id, nil
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return res.LastInsertId()
}

// update replaces the row with rec. A missing row is catalog.ErrNotFound.
func (s *Store) update(ctx context.Context, q sqlx.ExecerContext, name string, id int64, rec any) error {
	query, args, err := s.qb.Update(name).Set(rec).Where(goqu.C("id").Eq(id)).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
