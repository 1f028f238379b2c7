// Package memory provides an in-memory catalog store used for tests and
// ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"bookstudio/internal/catalog"
)

var _ catalog.Store = (*Store)(nil)

// Store keeps every table behind one mutex, so each write is atomic with
// respect to all readers.
type Store struct {
	mu       sync.RWMutex
	shelfSeq int64

	nationalities *table[catalog.Nationality]
	genres        *table[catalog.Genre]
	faculties     *table[catalog.Faculty]
	publishers    *table[catalog.Publisher]
	courses       *table[catalog.Course]
	authors       *table[catalog.Author]
	books         *table[catalog.Book]
	locations     *table[catalog.Location]
	students      *table[catalog.Student]
	reservations  *table[catalog.Reservation]
}

// New returns an empty store.
func New() *Store {
	s := &Store{}
	s.nationalities = newTable(s, catalog.KindNationality,
		func(n catalog.Nationality, id int64) catalog.Nationality { n.ID = id; return n },
		map[string]func(catalog.Nationality) string{"name": func(n catalog.Nationality) string { return n.Name }})
	s.genres = newTable(s, catalog.KindGenre,
		func(g catalog.Genre, id int64) catalog.Genre { g.ID = id; return g },
		map[string]func(catalog.Genre) string{"name": func(g catalog.Genre) string { return g.Name }})
	s.faculties = newTable(s, catalog.KindFaculty,
		func(f catalog.Faculty, id int64) catalog.Faculty { f.ID = id; return f },
		map[string]func(catalog.Faculty) string{"name": func(f catalog.Faculty) string { return f.Name }})
	s.publishers = newTable(s, catalog.KindPublisher,
		func(p catalog.Publisher, id int64) catalog.Publisher { p.ID = id; return p },
		map[string]func(catalog.Publisher) string{"name": func(p catalog.Publisher) string { return p.Name }})
	s.courses = newTable(s, catalog.KindCourse,
		func(c catalog.Course, id int64) catalog.Course { c.ID = id; return c },
		map[string]func(catalog.Course) string{"name": func(c catalog.Course) string { return c.Name }})
	s.authors = newTable(s, catalog.KindAuthor,
		func(a catalog.Author, id int64) catalog.Author { a.ID = id; return a },
		map[string]func(catalog.Author) string{"name": func(a catalog.Author) string { return a.Name }})
	s.books = newTable(s, catalog.KindBook,
		func(b catalog.Book, id int64) catalog.Book { b.ID = id; return b }, nil)
	s.locations = newTable(s, catalog.KindLocation,
		func(l catalog.Location, id int64) catalog.Location { l.ID = id; return l },
		map[string]func(catalog.Location) string{"name": func(l catalog.Location) string { return l.Name }})
	s.locations.clone = cloneLocation
	s.locations.assign = s.assignShelves
	s.students = newTable(s, catalog.KindStudent,
		func(st catalog.Student, id int64) catalog.Student { st.ID = id; return st },
		map[string]func(catalog.Student) string{"dni": func(st catalog.Student) string { return st.DNI }})
	s.reservations = newTable(s, catalog.KindReservation,
		func(r catalog.Reservation, id int64) catalog.Reservation { r.ID = id; return r }, nil)
	return s
}

func (s *Store) Nationalities() catalog.Table[catalog.Nationality] { return s.nationalities }
func (s *Store) Genres() catalog.Table[catalog.Genre]              { return s.genres }
func (s *Store) Faculties() catalog.Table[catalog.Faculty]         { return s.faculties }
func (s *Store) Publishers() catalog.Table[catalog.Publisher]      { return s.publishers }
func (s *Store) Courses() catalog.Table[catalog.Course]            { return s.courses }
func (s *Store) Authors() catalog.Table[catalog.Author]            { return s.authors }
func (s *Store) Books() catalog.Table[catalog.Book]                { return s.books }
func (s *Store) Locations() catalog.Table[catalog.Location]        { return s.locations }
func (s *Store) Students() catalog.Table[catalog.Student]          { return s.students }
func (s *Store) Reservations() catalog.Table[catalog.Reservation]  { return s.reservations }

// assignShelves numbers the shelf sequence and gives every position an id.
// A position that already existed keeps its shelf id. Called with s.mu held.
func (s *Store) assignShelves(prev *catalog.Location, next catalog.Location) catalog.Location {
	next = cloneLocation(next)
	for i := range next.Shelves {
		sh := &next.Shelves[i]
		sh.Position = i + 1
		sh.LocationID = next.ID
		if prev != nil && i < len(prev.Shelves) {
			sh.ID = prev.Shelves[i].ID
			continue
		}
		s.shelfSeq++
		sh.ID = s.shelfSeq
	}
	return next
}

func cloneLocation(l catalog.Location) catalog.Location {
	l.Shelves = slices.Clone(l.Shelves)
	if l.Shelves == nil {
		l.Shelves = []catalog.Shelf{}
	}
	return l
}

// table is one kind's rows. All tables of a store share its mutex.
type table[T any] struct {
	store  *Store
	kind   catalog.Kind
	rows   map[int64]T
	seq    int64
	withID func(T, int64) T
	unique map[string]func(T) string

	clone  func(T) T
	assign func(prev *T, next T) T
}

func newTable[T any](s *Store, kind catalog.Kind, withID func(T, int64) T, unique map[string]func(T) string) *table[T] {
	return &table[T]{
		store:  s,
		kind:   kind,
		rows:   make(map[int64]T),
		withID: withID,
		unique: unique,
		clone:  func(v T) T { return v },
		assign: func(_ *T, next T) T { return next },
	}
}

func (t *table[T]) Get(ctx context.Context, id int64) (T, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	rec, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, catalog.ErrNotFound
	}
	return t.clone(rec), nil
}

func (t *table[T]) List(ctx context.Context) ([]T, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	ids := slices.Sorted(maps.Keys(t.rows))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.clone(t.rows[id]))
	}
	return out, nil
}

func (t *table[T]) Insert(ctx context.Context, rec T) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	id := t.seq + 1
	rec = t.withID(rec, id)
	if err := t.checkUnique(rec, 0); err != nil {
		return 0, err
	}
	t.seq = id
	t.rows[id] = t.assign(nil, rec)
	return id, nil
}

func (t *table[T]) Update(ctx context.Context, id int64, rec T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	prev, ok := t.rows[id]
	if !ok {
		return catalog.ErrNotFound
	}
	rec = t.withID(rec, id)
	if err := t.checkUnique(rec, id); err != nil {
		return err
	}
	t.rows[id] = t.assign(&prev, rec)
	return nil
}

func (t *table[T]) FindUnique(ctx context.Context, column, value string) (T, error) {
	var zero T
	key, ok := t.unique[column]
	if !ok {
		return zero, fmt.Errorf("%s: %q is not a unique column", t.kind, column)
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for _, id := range slices.Sorted(maps.Keys(t.rows)) {
		if key(t.rows[id]) == value {
			return t.clone(t.rows[id]), nil
		}
	}
	return zero, catalog.ErrNotFound
}

// checkUnique fails when another row already holds one of rec's unique
// values. Called with the store mutex held.
func (t *table[T]) checkUnique(rec T, self int64) error {
	for _, column := range slices.Sorted(maps.Keys(t.unique)) {
		key := t.unique[column]
		value := key(rec)
		for id, other := range t.rows {
			if id != self && key(other) == value {
				return fmt.Errorf("%s %s %q: %w", t.kind, column, value, catalog.ErrDuplicate)
			}
		}
	}
	return nil
}
