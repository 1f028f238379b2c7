package sqlstore

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookstudio/internal/catalog"
)

// locations stores a location row together with its shelves. Every call runs
// in one transaction so readers never see a half-written shelf sequence.
type locations struct {
	s *Store
}

func (l *locations) Get(ctx context.Context, id int64) (catalog.Location, error) {
	var loc catalog.Location
	err := l.s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		loc, err = selectOne[catalog.Location](ctx, tx, l.s.qb.From("locations").Where(goqu.C("id").Eq(id)))
		if err != nil {
			return err
		}
		loc.Shelves, err = l.shelves(ctx, tx, id)
		return err
	})
	return loc, err
}

func (l *locations) List(ctx context.Context) ([]catalog.Location, error) {
	var locs []catalog.Location
	err := l.s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		locs, err = selectAll[catalog.Location](ctx, tx, l.s.qb.From("locations").Order(goqu.C("id").Asc()))
		if err != nil {
			return err
		}
		all, err := selectAll[catalog.Shelf](ctx, tx, l.s.qb.From("shelves").
			Order(goqu.C("location_id").Asc(), goqu.C("position").Asc()))
		if err != nil {
			return err
		}
		byLocation := make(map[int64][]catalog.Shelf, len(locs))
		for _, sh := range all {
			byLocation[sh.LocationID] = append(byLocation[sh.LocationID], sh)
		}
		for i := range locs {
			locs[i].Shelves = byLocation[locs[i].ID]
			if locs[i].Shelves == nil {
				locs[i].Shelves = []catalog.Shelf{}
			}
		}
		return nil
	})
	return locs, err
}

func (l *locations) Insert(ctx context.Context, loc catalog.Location) (int64, error) {
	ctx, span := l.s.tracer.Start(ctx, "sqlstore.insert",
		trace.WithAttributes(attribute.String("table", "locations"), attribute.Int("shelves", len(loc.Shelves))))
	defer span.End()

	var id int64
	err := l.s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		id, err = l.s.insert(ctx, tx, "locations", loc)
		if err != nil {
			return err
		}
		return l.writeShelves(ctx, tx, id, nil, loc.Shelves)
	})
	if err != nil {
		return 0, spanError(span, fmt.Errorf("insert locations: %w", err))
	}
	span.SetAttributes(attribute.Int64("id", id))
	return id, nil
}

// Update replaces the location row and its shelf sequence. The shelf at
// position i keeps its id; shelves past the new length are deleted.
// Concurrent updates of one location run one after another.
func (l *locations) Update(ctx context.Context, id int64, loc catalog.Location) error {
	ctx, span := l.s.tracer.Start(ctx, "sqlstore.update",
		trace.WithAttributes(attribute.String("table", "locations"), attribute.Int64("id", id)))
	defer span.End()

	err := l.s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := l.s.lockRow(ctx, tx, "locations", id); err != nil {
			return err
		}
		if err := l.s.update(ctx, tx, "locations", id, loc); err != nil {
			return err
		}
		existing, err := l.shelves(ctx, tx, id)
		if err != nil {
			return err
		}
		return l.writeShelves(ctx, tx, id, existing, loc.Shelves)
	})
	if err != nil {
		return spanError(span, fmt.Errorf("update locations %d: %w", id, err))
	}
	return nil
}

func (l *locations) FindUnique(ctx context.Context, column, value string) (catalog.Location, error) {
	if err := checkUniqueColumn(catalog.KindLocation, column); err != nil {
		return catalog.Location{}, err
	}
	var loc catalog.Location
	err := l.s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		loc, err = selectOne[catalog.Location](ctx, tx, l.s.qb.From("locations").Where(goqu.C(column).Eq(value)).Limit(1))
		if err != nil {
			return err
		}
		loc.Shelves, err = l.shelves(ctx, tx, loc.ID)
		return err
	})
	return loc, err
}

func (l *locations) shelves(ctx context.Context, q sqlx.QueryerContext, locationID int64) ([]catalog.Shelf, error) {
	return selectAll[catalog.Shelf](ctx, q, l.s.qb.From("shelves").
		Where(goqu.C("location_id").Eq(locationID)).
		Order(goqu.C("position").Asc()))
}

// writeShelves upserts next by position over existing.
func (l *locations) writeShelves(ctx context.Context, tx *sqlx.Tx, locationID int64, existing, next []catalog.Shelf) error {
	for i, sh := range next {
		position := i + 1
		if i < len(existing) {
			query, args, err := l.s.qb.Update("shelves").Set(goqu.Record{
				"position": position,
				"code":     sh.Code,
				"floor":    sh.Floor,
				"capacity": sh.Capacity,
			}).Where(goqu.C("id").Eq(existing[i].ID)).Prepared(true).ToSQL()
			if err != nil {
				return fmt.Errorf("build shelf update: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("update shelf %d: %w", position, mapError(err))
			}
			continue
		}
		sh.ID = 0
		sh.LocationID = locationID
		sh.Position = position
		if _, err := l.s.insert(ctx, tx, "shelves", sh); err != nil {
			return fmt.Errorf("insert shelf %d: %w", position, err)
		}
	}

	if len(existing) > len(next) {
		query, args, err := l.s.qb.Delete("shelves").Where(
			goqu.C("location_id").Eq(locationID),
			goqu.C("position").Gt(len(next)),
		).Prepared(true).ToSQL()
		if err != nil {
			return fmt.Errorf("build shelf delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete shelves: %w", err)
		}
	}
	return nil
}
