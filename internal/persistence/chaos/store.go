// Package chaos wraps a catalog store with injectable latency and failures,
// for exercising how the service and API degrade when storage misbehaves.
package chaos

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookstudio/internal/catalog"
)

// ErrInjected is the error returned by an injected failure.
var ErrInjected = errors.New("chaos: injected failure")

type FaultType string

const (
	FaultLatency FaultType = "latency"
	FaultFailure FaultType = "failure"
)

// Op names a table operation a fault can target.
type Op string

const (
	OpGet    Op = "get"
	OpList   Op = "list"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpFind   Op = "find_unique"
)

// Fault describes one injected misbehaviour. Empty Target and Ops match
// every kind and operation.
type Fault struct {
	Type    FaultType
	Target  catalog.Kind
	Ops     []Op
	Latency time.Duration
	// BlastRadius is the fraction of matching calls affected, 0.0 to 1.0.
	BlastRadius float64
}

var ops = []Op{OpGet, OpList, OpInsert, OpUpdate, OpFind}

// Validate rejects faults that could never fire or name unknown targets.
func (f Fault) Validate() error {
	var errs []error
	switch f.Type {
	case FaultLatency:
		if f.Latency <= 0 {
			errs = append(errs, errors.New("latency fault needs a positive latency"))
		}
	case FaultFailure:
	default:
		errs = append(errs, fmt.Errorf("unknown fault type %q", f.Type))
	}
	if f.Target != "" && !slices.Contains(catalog.Kinds, f.Target) {
		errs = append(errs, fmt.Errorf("%w: %s", catalog.ErrUnknownKind, f.Target))
	}
	for _, op := range f.Ops {
		if !slices.Contains(ops, op) {
			errs = append(errs, fmt.Errorf("unknown operation %q", op))
		}
	}
	if f.BlastRadius <= 0 || f.BlastRadius > 1 {
		errs = append(errs, fmt.Errorf("blast radius %v must be in (0, 1]", f.BlastRadius))
	}
	return errors.Join(errs...)
}

func (f Fault) matches(kind catalog.Kind, op Op) bool {
	if f.Target != "" && f.Target != kind {
		return false
	}
	return len(f.Ops) == 0 || slices.Contains(f.Ops, op)
}

var _ catalog.Store = (*Store)(nil)

// Store is a catalog.Store decorator.
type Store struct {
	next   catalog.Store
	tracer trace.Tracer

	mu       sync.Mutex
	faults   map[int]Fault
	nextID   int
	injected int
	roll     func() float64
}

func Wrap(next catalog.Store) *Store {
	return &Store{
		next:   next,
		tracer: otel.Tracer("bookstudio/chaos"),
		faults: make(map[int]Fault),
		roll:   rand.Float64,
	}
}

// Inject activates f and returns its rollback.
func (s *Store) Inject(f Fault) (rollback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.faults[id] = f
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.faults, id)
	}
}

// Reset removes every active fault.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.faults)
}

// Injected counts the faults fired so far.
func (s *Store) Injected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.injected
}

// before applies the active faults matching kind and op, in injection order.
func (s *Store) before(ctx context.Context, kind catalog.Kind, op Op) error {
	s.mu.Lock()
	ids := make([]int, 0, len(s.faults))
	for id := range s.faults {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	var fire []Fault
	for _, id := range ids {
		f := s.faults[id]
		if f.matches(kind, op) && (f.BlastRadius >= 1 || s.roll() < f.BlastRadius) {
			fire = append(fire, f)
		}
	}
	s.injected += len(fire)
	s.mu.Unlock()

	if len(fire) == 0 {
		return nil
	}
	span := trace.SpanFromContext(ctx)
	for _, f := range fire {
		span.AddEvent("chaos.fault", trace.WithAttributes(
			attribute.String("type", string(f.Type)),
			attribute.String("kind", string(kind)),
			attribute.String("op", string(op)),
		))
		switch f.Type {
		case FaultLatency:
			t := time.NewTimer(f.Latency)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		case FaultFailure:
			return fmt.Errorf("%s %s: %w", op, kind, ErrInjected)
		}
	}
	return nil
}

func (s *Store) Nationalities() catalog.Table[catalog.Nationality] {
	return wrapTable(s, catalog.KindNationality, s.next.Nationalities())
}
func (s *Store) Genres() catalog.Table[catalog.Genre] {
	return wrapTable(s, catalog.KindGenre, s.next.Genres())
}
func (s *Store) Faculties() catalog.Table[catalog.Faculty] {
	return wrapTable(s, catalog.KindFaculty, s.next.Faculties())
}
func (s *Store) Publishers() catalog.Table[catalog.Publisher] {
	return wrapTable(s, catalog.KindPublisher, s.next.Publishers())
}
func (s *Store) Courses() catalog.Table[catalog.Course] {
	return wrapTable(s, catalog.KindCourse, s.next.Courses())
}
func (s *Store) Authors() catalog.Table[catalog.Author] {
	return wrapTable(s, catalog.KindAuthor, s.next.Authors())
}
func (s *Store) Books() catalog.Table[catalog.Book] {
	return wrapTable(s, catalog.KindBook, s.next.Books())
}
func (s *Store) Locations() catalog.Table[catalog.Location] {
	return wrapTable(s, catalog.KindLocation, s.next.Locations())
}
func (s *Store) Students() catalog.Table[catalog.Student] {
	return wrapTable(s, catalog.KindStudent, s.next.Students())
}
func (s *Store) Reservations() catalog.Table[catalog.Reservation] {
	return wrapTable(s, catalog.KindReservation, s.next.Reservations())
}

type table[T any] struct {
	s    *Store
	kind catalog.Kind
	next catalog.Table[T]
}

func wrapTable[T any](s *Store, kind catalog.Kind, next catalog.Table[T]) catalog.Table[T] {
	return table[T]{s: s, kind: kind, next: next}
}

func (t table[T]) Get(ctx context.Context, id int64) (T, error) {
	if err := t.s.before(ctx, t.kind, OpGet); err != nil {
		var zero T
		return zero, err
	}
	return t.next.Get(ctx, id)
}

func (t table[T]) List(ctx context.Context) ([]T, error) {
	if err := t.s.before(ctx, t.kind, OpList); err != nil {
		return nil, err
	}
	return t.next.List(ctx)
}

func (t table[T]) Insert(ctx context.Context, rec T) (int64, error) {
	if err := t.s.before(ctx, t.kind, OpInsert); err != nil {
		return 0, err
	}
	return t.next.Insert(ctx, rec)
}

func (t table[T]) Update(ctx context.Context, id int64, rec T) error {
	if err := t.s.before(ctx, t.kind, OpUpdate); err != nil {
		return err
	}
	return t.next.Update(ctx, id, rec)
}

func (t table[T]) FindUnique(ctx context.Context, column, value string) (T, error) {
	if err := t.s.before(ctx, t.kind, OpFind); err != nil {
		var zero T
		return zero, err
	}
	return t.next.FindUnique(ctx, column, value)
}
