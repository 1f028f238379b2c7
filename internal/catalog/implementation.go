// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"bookstudio/internal/blob"
	"bookstudio/internal/ctxlog"
	"bookstudio/internal/validator"
)

// service implements the Service interface.
type service struct {
	store   Store
	journal Journal
	blobs   blob.Store

	proj   projector
	checks checks

	tracer    trace.Tracer
	mutations metric.Int64Counter

	nationalities *resource[Nationality, NamedView, NamedView]
	genres        *resource[Genre, NamedView, NamedView]
	faculties     *resource[Faculty, NamedView, NamedView]
	publishers    *resource[Publisher, PublisherRow, PublisherInfo]
	courses       *resource[Course, CourseRow, CourseInfo]
	authors       *resource[Author, AuthorRow, AuthorInfo]
	books         *resource[Book, BookRow, BookInfo]
	locations     *resource[Location, LocationRow, LocationInfo]
	students      *resource[Student, StudentRow, StudentInfo]
	reservations  *resource[Reservation, ReservationRow, ReservationInfo]
}

// ServiceOption configures optional collaborators of the service.
type ServiceOption func(*service)

// WithJournal records every successful mutation in j.
func WithJournal(j Journal) ServiceOption {
	return func(s *service) { s.journal = j }
}

// WithBlobStore enables author photo uploads backed by b.
func WithBlobStore(b blob.Store) ServiceOption {
	return func(s *service) { s.blobs = b }
}

// NewService creates a new catalog service instance.
func NewService(store Store, opts ...ServiceOption) Service {
	s := &service{
		store:  store,
		proj:   projector{store: store},
		checks: checks{store: store},
		tracer: otel.Tracer("bookstudio/catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}

	counter, err := otel.Meter("bookstudio/catalog").Int64Counter("catalog.mutations",
		metric.WithDescription("Create and update calls by kind, action and outcome"))
	if err != nil {
		otel.Handle(err)
		counter = noop.Int64Counter{}
	}
	s.mutations = counter

	s.wire()
	return s
}

func (s *service) wire() {
	s.nationalities = &resource[Nationality, NamedView, NamedView]{
		s: s, kind: KindNationality, table: s.store.Nationalities, unique: "name",
		id:      func(n Nationality) int64 { return n.ID },
		withID:  func(n Nationality, id int64) Nationality { n.ID = id; return n },
		prepare: func(n Nationality) Nationality { n.Name = strings.TrimSpace(n.Name); return n },
		check: func(ctx context.Context, v *validator.Validator, n Nationality, _ *Nationality) error {
			return s.checks.named(ctx, v, KindNationality, n.Name, n.ID)
		},
		rows: func(_ context.Context, recs []Nationality) ([]NamedView, error) {
			return namedRows(recs, nationalityView), nil
		},
		info: func(_ context.Context, n Nationality) (NamedView, error) { return nationalityView(n), nil },
	}

	s.genres = &resource[Genre, NamedView, NamedView]{
		s: s, kind: KindGenre, table: s.store.Genres, unique: "name",
		id:      func(g Genre) int64 { return g.ID },
		withID:  func(g Genre, id int64) Genre { g.ID = id; return g },
		prepare: func(g Genre) Genre { g.Name = strings.TrimSpace(g.Name); return g },
		check: func(ctx context.Context, v *validator.Validator, g Genre, _ *Genre) error {
			return s.checks.named(ctx, v, KindGenre, g.Name, g.ID)
		},
		rows: func(_ context.Context, recs []Genre) ([]NamedView, error) {
			return namedRows(recs, genreView), nil
		},
		info: func(_ context.Context, g Genre) (NamedView, error) { return genreView(g), nil },
	}

	s.faculties = &resource[Faculty, NamedView, NamedView]{
		s: s, kind: KindFaculty, table: s.store.Faculties, unique: "name",
		id:      func(f Faculty) int64 { return f.ID },
		withID:  func(f Faculty, id int64) Faculty { f.ID = id; return f },
		prepare: func(f Faculty) Faculty { f.Name = strings.TrimSpace(f.Name); return f },
		check: func(ctx context.Context, v *validator.Validator, f Faculty, _ *Faculty) error {
			return s.checks.named(ctx, v, KindFaculty, f.Name, f.ID)
		},
		rows: func(_ context.Context, recs []Faculty) ([]NamedView, error) {
			return namedRows(recs, facultyView), nil
		},
		info: func(_ context.Context, f Faculty) (NamedView, error) { return facultyView(f), nil },
	}

	s.publishers = &resource[Publisher, PublisherRow, PublisherInfo]{
		s: s, kind: KindPublisher, table: s.store.Publishers, unique: "name",
		id:     func(p Publisher) int64 { return p.ID },
		withID: func(p Publisher, id int64) Publisher { p.ID = id; return p },
		prepare: func(p Publisher) Publisher {
			p.Name = strings.TrimSpace(p.Name)
			p.Website = strings.TrimSpace(p.Website)
			return p
		},
		check: s.checks.publisher,
		rows:  s.proj.publisherRows,
		info:  s.proj.publisherInfo,
	}

	s.courses = &resource[Course, CourseRow, CourseInfo]{
		s: s, kind: KindCourse, table: s.store.Courses, unique: "name",
		id:     func(c Course) int64 { return c.ID },
		withID: func(c Course, id int64) Course { c.ID = id; return c },
		prepare: func(c Course) Course {
			c.Name = strings.TrimSpace(c.Name)
			c.Level = strings.TrimSpace(c.Level)
			return c
		},
		check: s.checks.course,
		rows:  s.proj.courseRows,
		info:  s.proj.courseInfo,
	}

	s.authors = &resource[Author, AuthorRow, AuthorInfo]{
		s: s, kind: KindAuthor, table: s.store.Authors, unique: "name",
		id:     func(a Author) int64 { return a.ID },
		withID: func(a Author, id int64) Author { a.ID = id; return a },
		prepare: func(a Author) Author {
			a.Name = strings.TrimSpace(a.Name)
			a.PhotoURL = strings.TrimSpace(a.PhotoURL)
			return a
		},
		check:    s.checks.author,
		rows:     s.proj.authorRows,
		info:     s.proj.authorInfo,
		replaced: s.dropReplacedPhoto,
	}

	s.books = &resource[Book, BookRow, BookInfo]{
		s: s, kind: KindBook, table: s.store.Books,
		id:     func(b Book) int64 { return b.ID },
		withID: func(b Book, id int64) Book { b.ID = id; return b },
		prepare: func(b Book) Book {
			b.Title = strings.TrimSpace(b.Title)
			if b.CourseID != nil {
				course := *b.CourseID
				b.CourseID = &course
			}
			return b
		},
		check: s.checks.book,
		rows:  s.proj.bookRows,
		info:  s.proj.bookInfo,
	}

	s.locations = &resource[Location, LocationRow, LocationInfo]{
		s: s, kind: KindLocation, table: s.store.Locations, unique: "name",
		id:      func(l Location) int64 { return l.ID },
		withID:  withLocationID,
		prepare: prepareLocation,
		check:   s.checks.location,
		rows:    s.proj.locationRows,
		info:    s.proj.locationInfo,
	}

	s.students = &resource[Student, StudentRow, StudentInfo]{
		s: s, kind: KindStudent, table: s.store.Students, unique: "dni",
		id:     func(st Student) int64 { return st.ID },
		withID: func(st Student, id int64) Student { st.ID = id; return st },
		prepare: func(st Student) Student {
			st.DNI = strings.TrimSpace(st.DNI)
			st.FirstName = strings.TrimSpace(st.FirstName)
			st.LastName = strings.TrimSpace(st.LastName)
			st.Email = strings.TrimSpace(st.Email)
			st.Phone = strings.TrimSpace(st.Phone)
			return st
		},
		check: s.checks.student,
		rows:  s.proj.studentRows,
		info:  s.proj.studentInfo,
	}

	s.reservations = &resource[Reservation, ReservationRow, ReservationInfo]{
		s: s, kind: KindReservation, table: s.store.Reservations,
		id:      func(r Reservation) int64 { return r.ID },
		withID:  func(r Reservation, id int64) Reservation { r.ID = id; return r },
		prepare: func(r Reservation) Reservation { return r },
		check:   s.checks.reservation,
		rows:    s.proj.reservationRows,
		info:    s.proj.reservationInfo,
	}
}

// prepareLocation copies the shelf sequence and numbers it 1..n in input
// order. Shelf ids are owned by the store and never taken from input.
func prepareLocation(l Location) Location {
	l.Name = strings.TrimSpace(l.Name)
	shelves := make([]Shelf, len(l.Shelves))
	for i, sh := range l.Shelves {
		sh.ID = 0
		sh.Position = i + 1
		sh.Code = strings.TrimSpace(sh.Code)
		sh.Floor = strings.TrimSpace(sh.Floor)
		shelves[i] = sh
	}
	l.Shelves = shelves
	return l
}

func withLocationID(l Location, id int64) Location {
	l.ID = id
	l.Shelves = slices.Clone(l.Shelves)
	for i := range l.Shelves {
		l.Shelves[i].LocationID = id
	}
	return l
}

func (s *service) Nationalities() Resource[Nationality, NamedView, NamedView] {
	return s.nationalities
}
func (s *service) Genres() Resource[Genre, NamedView, NamedView]        { return s.genres }
func (s *service) Faculties() Resource[Faculty, NamedView, NamedView]   { return s.faculties }
func (s *service) Courses() Resource[Course, CourseRow, CourseInfo]     { return s.courses }
func (s *service) Authors() Resource[Author, AuthorRow, AuthorInfo]     { return s.authors }
func (s *service) Books() Resource[Book, BookRow, BookInfo]             { return s.books }
func (s *service) Students() Resource[Student, StudentRow, StudentInfo] { return s.students }

func (s *service) Publishers() Resource[Publisher, PublisherRow, PublisherInfo] {
	return s.publishers
}

func (s *service) Locations() Resource[Location, LocationRow, LocationInfo] {
	return s.locations
}

func (s *service) Reservations() Resource[Reservation, ReservationRow, ReservationInfo] {
	return s.reservations
}

// SelectOptions builds the named select views.
func (s *service) SelectOptions(ctx context.Context, names ...string) (Options, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.select_options",
		trace.WithAttributes(attribute.StringSlice("views", names)))
	defer span.End()

	opts, err := aggregate(ctx, s.proj.selectors(), names)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return opts, nil
}

// FormOptions builds the select views kind's form depends on. Kinds without
// dependent fields get an empty set.
func (s *service) FormOptions(ctx context.Context, kind Kind) (Options, error) {
	if !slices.Contains(Kinds, kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s.SelectOptions(ctx, FormViews(kind)...)
}

// History lists the journal entries of one record. The record must exist.
func (s *service) History(ctx context.Context, kind Kind, id int64) ([]Change, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.history",
		trace.WithAttributes(attribute.String("kind", string(kind)), attribute.Int64("id", id)))
	defer span.End()

	if err := s.exists(ctx, kind, id); err != nil {
		return nil, err
	}
	if s.journal == nil {
		return []Change{}, nil
	}
	changes, err := s.journal.History(ctx, kind, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("history %s %d: %w", kind.Singular(), id, err)
	}
	if changes == nil {
		changes = []Change{}
	}
	return changes, nil
}

func (s *service) exists(ctx context.Context, kind Kind, id int64) error {
	var err error
	switch kind {
	case KindNationality:
		_, err = s.store.Nationalities().Get(ctx, id)
	case KindGenre:
		_, err = s.store.Genres().Get(ctx, id)
	case KindFaculty:
		_, err = s.store.Faculties().Get(ctx, id)
	case KindPublisher:
		_, err = s.store.Publishers().Get(ctx, id)
	case KindCourse:
		_, err = s.store.Courses().Get(ctx, id)
	case KindAuthor:
		_, err = s.store.Authors().Get(ctx, id)
	case KindBook:
		_, err = s.store.Books().Get(ctx, id)
	case KindLocation:
		_, err = s.store.Locations().Get(ctx, id)
	case KindStudent:
		_, err = s.store.Students().Get(ctx, id)
	case KindReservation:
		_, err = s.store.Reservations().Get(ctx, id)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return fmt.Errorf("%s %d: %w", kind.Singular(), id, err)
	}
	return nil
}

// journalize appends a change entry. The mutation is already committed, so a
// journal failure is logged and otherwise ignored.
func (s *service) journalize(ctx context.Context, kind Kind, id int64, action Action, rec any) {
	if s.journal == nil {
		return
	}
	logger := ctxlog.FromContext(ctx)
	c, err := newChange(kind, id, action, rec)
	if err != nil {
		logger.Error("encode journal entry", "kind", string(kind), "id", id, "error", err)
		return
	}
	if _, err := s.journal.Append(ctx, c); err != nil {
		logger.Error("append journal entry", "kind", string(kind), "id", id, "action", string(action), "error", err)
	}
}
