// internal/catalog/validation.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookstudio/internal/validator"
)

const maxNameLen = 255

// checkStatus rejects anything outside the status enumeration. Status is
// never defaulted.
func checkStatus(v *validator.Validator, s Status) {
	v.Check(s != "", "status", "must be provided")
	v.Check(s == "" || s.Valid(), "status", "must be active or inactive")
}

func checkName(v *validator.Validator, field, value string) {
	v.Check(validator.NotBlank(value), field, "must be provided")
	v.Check(validator.MaxLen(value, maxNameLen), field, fmt.Sprintf("must not be more than %d characters", maxNameLen))
}

// checkReference records a failure on field unless id resolves in table.
// With requireActive the target must also be active; status is nil for
// kinds without one. Store failures other than not-found are returned.
func checkReference[T any](ctx context.Context, v *validator.Validator, table Table[T], field string, target Kind, id int64, status func(T) Status, requireActive bool) error {
	if id < 1 {
		v.AddError(field, "must be provided")
		return nil
	}
	rec, err := table.Get(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		v.AddError(field, target.Singular()+" not found")
		return nil
	case err != nil:
		return fmt.Errorf("check %s: %w", field, err)
	}
	if requireActive && status != nil && status(rec) != StatusActive {
		v.AddError(field, target.Singular()+" is inactive")
	}
	return nil
}

// checkUnique records a failure on field when another record already holds
// value in column. self is the id being updated, or 0 on create.
func checkUnique[T any](ctx context.Context, v *validator.Validator, table Table[T], column, field, value string, self int64, id func(T) int64) error {
	if v.Failed(field) {
		return nil
	}
	rec, err := table.FindUnique(ctx, column, value)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check unique %s: %w", column, err)
	}
	if id(rec) != self {
		v.AddError(field, "already exists")
	}
	return nil
}

func publisherStatus(p Publisher) Status { return p.Status }
func courseStatus(c Course) Status       { return c.Status }
func authorStatus(a Author) Status       { return a.Status }
func bookStatus(b Book) Status           { return b.Status }
func studentStatus(s Student) Status     { return s.Status }

// changed reports whether a reference must be re-checked for activity: always
// on create, and on update only when it points somewhere new.
func changed(creating bool, prev, next int64) bool {
	return creating || prev != next
}

// checks holds the per-kind pre-persistence rules. Each returns a non-nil
// error only when the store itself fails; rule violations land in v.
type checks struct {
	store Store
}

func (c checks) named(ctx context.Context, v *validator.Validator, kind Kind, name string, self int64) error {
	checkName(v, "name", name)
	switch kind {
	case KindNationality:
		return checkUnique(ctx, v, c.store.Nationalities(), "name", "name", name, self, func(n Nationality) int64 { return n.ID })
	case KindGenre:
		return checkUnique(ctx, v, c.store.Genres(), "name", "name", name, self, func(g Genre) int64 { return g.ID })
	case KindFaculty:
		return checkUnique(ctx, v, c.store.Faculties(), "name", "name", name, self, func(f Faculty) int64 { return f.ID })
	}
	return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}

func (c checks) publisher(ctx context.Context, v *validator.Validator, p Publisher, prev *Publisher) error {
	checkName(v, "name", p.Name)
	v.Check(validator.MaxLen(p.Website, 512), "website", "must not be more than 512 characters")
	checkStatus(v, p.Status)

	creating := prev == nil
	var before Publisher
	if prev != nil {
		before = *prev
	}
	if err := checkReference(ctx, v, c.store.Nationalities(), "nationality_id", KindNationality, p.NationalityID, nil, changed(creating, before.NationalityID, p.NationalityID)); err != nil {
		return err
	}
	return checkUnique(ctx, v, c.store.Publishers(), "name", "name", p.Name, before.ID, func(p Publisher) int64 { return p.ID })
}

func (c checks) course(ctx context.Context, v *validator.Validator, co Course, prev *Course) error {
	checkName(v, "name", co.Name)
	v.Check(validator.MaxLen(co.Level, 64), "level", "must not be more than 64 characters")
	checkStatus(v, co.Status)

	var self int64
	if prev != nil {
		self = prev.ID
	}
	return checkUnique(ctx, v, c.store.Courses(), "name", "name", co.Name, self, func(co Course) int64 { return co.ID })
}

func (c checks) author(ctx context.Context, v *validator.Validator, a Author, prev *Author) error {
	checkName(v, "name", a.Name)
	v.Check(!a.BirthDate.IsZero(), "birth_date", "must be provided")
	v.Check(validator.MaxLen(a.PhotoURL, 512), "photo_url", "must not be more than 512 characters")
	checkStatus(v, a.Status)

	creating := prev == nil
	var before Author
	if prev != nil {
		before = *prev
	}
	if err := checkReference(ctx, v, c.store.Nationalities(), "nationality_id", KindNationality, a.NationalityID, nil, changed(creating, before.NationalityID, a.NationalityID)); err != nil {
		return err
	}
	if err := checkReference(ctx, v, c.store.Genres(), "genre_id", KindGenre, a.GenreID, nil, changed(creating, before.GenreID, a.GenreID)); err != nil {
		return err
	}
	return checkUnique(ctx, v, c.store.Authors(), "name", "name", a.Name, before.ID, func(a Author) int64 { return a.ID })
}

func (c checks) book(ctx context.Context, v *validator.Validator, b Book, prev *Book) error {
	v.Check(validator.NotBlank(b.Title), "title", "must be provided")
	v.Check(validator.MaxLen(b.Title, maxNameLen), "title", fmt.Sprintf("must not be more than %d characters", maxNameLen))
	v.Check(b.TotalCopies >= 1, "total_copies", "must be at least 1")
	v.Check(!b.ReleaseDate.IsZero(), "release_date", "must be provided")
	checkStatus(v, b.Status)

	creating := prev == nil
	var before Book
	if prev != nil {
		before = *prev
	}
	if err := checkReference(ctx, v, c.store.Authors(), "author_id", KindAuthor, b.AuthorID, authorStatus, changed(creating, before.AuthorID, b.AuthorID)); err != nil {
		return err
	}
	if err := checkReference(ctx, v, c.store.Publishers(), "publisher_id", KindPublisher, b.PublisherID, publisherStatus, changed(creating, before.PublisherID, b.PublisherID)); err != nil {
		return err
	}
	if err := checkReference(ctx, v, c.store.Genres(), "genre_id", KindGenre, b.GenreID, nil, changed(creating, before.GenreID, b.GenreID)); err != nil {
		return err
	}
	if b.CourseID != nil {
		var beforeCourse int64
		if before.CourseID != nil {
			beforeCourse = *before.CourseID
		}
		if err := checkReference(ctx, v, c.store.Courses(), "course_id", KindCourse, *b.CourseID, courseStatus, changed(creating, beforeCourse, *b.CourseID)); err != nil {
			return err
		}
	}
	return nil
}

func (c checks) location(ctx context.Context, v *validator.Validator, loc Location, prev *Location) error {
	checkName(v, "name", loc.Name)
	v.Check(validator.MaxLen(loc.Description, 1024), "description", "must not be more than 1024 characters")

	codes := make([]string, 0, len(loc.Shelves))
	for i, sh := range loc.Shelves {
		field := fmt.Sprintf("shelves[%d]", i)
		v.Check(validator.NotBlank(sh.Code), field+".code", "must be provided")
		v.Check(sh.Capacity >= 0, field+".capacity", "must not be negative")
		codes = append(codes, strings.ToLower(strings.TrimSpace(sh.Code)))
	}
	v.Check(validator.Unique(codes), "shelves", "shelf codes must be unique within a location")

	var self int64
	if prev != nil {
		self = prev.ID
	}
	return checkUnique(ctx, v, c.store.Locations(), "name", "name", loc.Name, self, func(l Location) int64 { return l.ID })
}

func (c checks) student(ctx context.Context, v *validator.Validator, s Student, prev *Student) error {
	v.Check(validator.NotBlank(s.DNI), "dni", "must be provided")
	v.Check(validator.MaxLen(s.DNI, 16), "dni", "must not be more than 16 characters")
	checkName(v, "first_name", s.FirstName)
	checkName(v, "last_name", s.LastName)
	v.Check(validator.Email(s.Email), "email", "must be a valid email address")
	checkStatus(v, s.Status)

	creating := prev == nil
	var before Student
	if prev != nil {
		before = *prev
	}
	if err := checkReference(ctx, v, c.store.Faculties(), "faculty_id", KindFaculty, s.FacultyID, nil, changed(creating, before.FacultyID, s.FacultyID)); err != nil {
		return err
	}
	return checkUnique(ctx, v, c.store.Students(), "dni", "dni", s.DNI, before.ID, func(s Student) int64 { return s.ID })
}

func (c checks) reservation(ctx context.Context, v *validator.Validator, r Reservation, prev *Reservation) error {
	v.Check(!r.ReservedOn.IsZero(), "reserved_on", "must be provided")
	v.Check(!r.PickupBy.IsZero(), "pickup_by", "must be provided")
	if !r.ReservedOn.IsZero() && !r.PickupBy.IsZero() {
		v.Check(!r.PickupBy.Before(r.ReservedOn.Time), "pickup_by", "must not be before reserved_on")
	}
	checkStatus(v, r.Status)

	creating := prev == nil
	var before Reservation
	if prev != nil {
		before = *prev
	}
	if err := checkReference(ctx, v, c.store.Books(), "book_id", KindBook, r.BookID, bookStatus, changed(creating, before.BookID, r.BookID)); err != nil {
		return err
	}
	return checkReference(ctx, v, c.store.Students(), "student_id", KindStudent, r.StudentID, studentStatus, changed(creating, before.StudentID, r.StudentID))
}
