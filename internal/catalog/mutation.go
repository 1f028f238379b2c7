// internal/catalog/mutation.go
package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"bookstudio/internal/ctxlog"
	"bookstudio/internal/validator"
)

// resource runs the read and write pipelines of one kind.
type resource[T, Row, Info any] struct {
	s     *service
	kind  Kind
	table func() Table[T]

	id     func(T) int64
	withID func(T, int64) T
	// prepare normalizes input before it is checked.
	prepare func(T) T
	check   func(ctx context.Context, v *validator.Validator, rec T, prev *T) error
	// unique is the field a store-level duplicate is reported on.
	unique string
	// replaced runs after a committed update with the record it replaced.
	replaced func(ctx context.Context, prev, next T)

	rows func(ctx context.Context, recs []T) ([]Row, error)
	info func(ctx context.Context, rec T) (Info, error)
}

// List returns every record of the kind, newest id first.
func (r *resource[T, Row, Info]) List(ctx context.Context) ([]Row, error) {
	ctx, span := r.start(ctx, "list")
	defer span.End()

	recs, err := r.table().List(ctx)
	if err != nil {
		return nil, r.fail(span, fmt.Errorf("list %s: %w", r.kind, err))
	}
	slices.SortFunc(recs, func(a, b T) int { return cmp.Compare(r.id(b), r.id(a)) })

	rows, err := r.rows(ctx, recs)
	if err != nil {
		return nil, r.fail(span, err)
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows, nil
}

// Get returns the info view of one record.
func (r *resource[T, Row, Info]) Get(ctx context.Context, id int64) (Info, error) {
	ctx, span := r.start(ctx, "get", attribute.Int64("id", id))
	defer span.End()

	var zero Info
	rec, err := r.table().Get(ctx, id)
	if err != nil {
		return zero, r.fail(span, fmt.Errorf("get %s %d: %w", r.kind.Singular(), id, err))
	}
	info, err := r.info(ctx, rec)
	if err != nil {
		return zero, r.fail(span, err)
	}
	return info, nil
}

// Create checks in, persists it and returns the stored record's info view.
func (r *resource[T, Row, Info]) Create(ctx context.Context, in T) (info Info, err error) {
	ctx, span := r.start(ctx, "create")
	defer span.End()
	defer func() { r.count(ctx, ActionCreated, err) }()

	rec := r.withID(r.prepare(in), 0)
	if err := r.validate(ctx, rec, nil); err != nil {
		return info, r.fail(span, err)
	}

	id, err := r.table().Insert(ctx, rec)
	if err != nil {
		return info, r.fail(span, r.storeError("insert", err))
	}
	span.SetAttributes(attribute.Int64("id", id))

	return r.finish(ctx, span, id, ActionCreated)
}

// Update replaces the whole record stored under id. The identifier itself is
// immutable; any id carried by in is ignored.
func (r *resource[T, Row, Info]) Update(ctx context.Context, id int64, in T) (info Info, err error) {
	ctx, span := r.start(ctx, "update", attribute.Int64("id", id))
	defer span.End()
	defer func() { r.count(ctx, ActionUpdated, err) }()

	prev, err := r.table().Get(ctx, id)
	if err != nil {
		return info, r.fail(span, fmt.Errorf("update %s %d: %w", r.kind.Singular(), id, err))
	}

	rec := r.withID(r.prepare(in), id)
	if err := r.validate(ctx, rec, &prev); err != nil {
		return info, r.fail(span, err)
	}
	if err := r.table().Update(ctx, id, rec); err != nil {
		return info, r.fail(span, r.storeError("update", err))
	}
	if r.replaced != nil {
		r.replaced(ctx, prev, rec)
	}

	return r.finish(ctx, span, id, ActionUpdated)
}

func (r *resource[T, Row, Info]) validate(ctx context.Context, rec T, prev *T) error {
	v := validator.New()
	if err := r.check(ctx, v, rec, prev); err != nil {
		return err
	}
	if !v.Valid() {
		return &ValidationError{Kind: r.kind, Errors: v.Errors}
	}
	return nil
}

// finish re-reads the committed record, journals it and projects it.
func (r *resource[T, Row, Info]) finish(ctx context.Context, span trace.Span, id int64, action Action) (Info, error) {
	var zero Info
	stored, err := r.table().Get(ctx, id)
	if err != nil {
		return zero, r.fail(span, fmt.Errorf("reload %s %d: %w", r.kind.Singular(), id, err))
	}

	ctxlog.FromContext(ctx).Info("catalog mutation",
		"kind", string(r.kind), "id", id, "action", string(action))
	r.s.journalize(ctx, r.kind, id, action, stored)

	info, err := r.info(ctx, stored)
	if err != nil {
		return zero, r.fail(span, err)
	}
	return info, nil
}

// storeError reports a unique-key race lost at the store as a validation
// failure on the unique field.
func (r *resource[T, Row, Info]) storeError(op string, err error) error {
	if errors.Is(err, ErrDuplicate) && r.unique != "" {
		return &ValidationError{Kind: r.kind, Errors: map[string]string{r.unique: "already exists"}}
	}
	return fmt.Errorf("%s %s: %w", op, r.kind.Singular(), err)
}

func (r *resource[T, Row, Info]) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("kind", string(r.kind)))
	return r.s.tracer.Start(ctx, "catalog."+op, trace.WithAttributes(attrs...))
}

func (r *resource[T, Row, Info]) fail(span trace.Span, err error) error {
	outcome := Classify(err)
	span.SetAttributes(attribute.String("outcome", outcome.String()))
	if outcome == OutcomeFault {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *resource[T, Row, Info]) count(ctx context.Context, action Action, err error) {
	r.s.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(r.kind)),
		attribute.String("action", string(action)),
		attribute.String("outcome", Classify(err).String()),
	))
}
