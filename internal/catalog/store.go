// internal/catalog/store.go
package catalog

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the requested identifier is absent.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned by a store when a write would violate a unique key.
	ErrDuplicate = errors.New("duplicate record")
)

// Table is the per-kind CRUD-by-id contract of the entity store.
//
// List returns every record in ascending id order. Insert assigns and returns
// the new identifier; Update replaces the whole record. Both fail with
// ErrDuplicate on a unique-key clash and leave the store unchanged.
type Table[T any] interface {
	Get(ctx context.Context, id int64) (T, error)
	List(ctx context.Context) ([]T, error)
	Insert(ctx context.Context, rec T) (int64, error)
	Update(ctx context.Context, id int64, rec T) error
	// FindUnique looks a record up by one of the table's unique columns.
	FindUnique(ctx context.Context, column, value string) (T, error)
}

// Store is the normalized write model.
type Store interface {
	Nationalities() Table[Nationality]
	Genres() Table[Genre]
	Faculties() Table[Faculty]
	Publishers() Table[Publisher]
	Courses() Table[Course]
	Authors() Table[Author]
	Books() Table[Book]
	// Locations reads and writes locations together with their shelves.
	Locations() Table[Location]
	Students() Table[Student]
	Reservations() Table[Reservation]
}

// UniqueColumns lists the unique keys every store backend enforces.
var UniqueColumns = map[Kind][]string{
	KindNationality: {"name"},
	KindGenre:       {"name"},
	KindFaculty:     {"name"},
	KindPublisher:   {"name"},
	KindCourse:      {"name"},
	KindAuthor:      {"name"},
	KindLocation:    {"name"},
	KindStudent:     {"dni"},
}
