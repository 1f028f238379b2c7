// internal/catalog/domain.go
package catalog

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Kind names an entity type. It doubles as the API path segment and the
// select-option key for that type.
type Kind string

const (
	KindNationality Kind = "nationalities"
	KindGenre       Kind = "genres"
	KindFaculty     Kind = "faculties"
	KindPublisher   Kind = "publishers"
	KindCourse      Kind = "courses"
	KindAuthor      Kind = "authors"
	KindBook        Kind = "books"
	KindLocation    Kind = "locations"
	KindStudent     Kind = "students"
	KindReservation Kind = "reservations"
)

// Kinds lists every entity kind in dependency order.
var Kinds = []Kind{
	KindNationality,
	KindGenre,
	KindFaculty,
	KindPublisher,
	KindCourse,
	KindAuthor,
	KindBook,
	KindLocation,
	KindStudent,
	KindReservation,
}

// Singular returns the human label used in validation messages.
func (k Kind) Singular() string {
	switch k {
	case KindNationality:
		return "nationality"
	case KindGenre:
		return "genre"
	case KindFaculty:
		return "faculty"
	case KindPublisher:
		return "publisher"
	case KindCourse:
		return "course"
	case KindAuthor:
		return "author"
	case KindBook:
		return "book"
	case KindLocation:
		return "location"
	case KindStudent:
		return "student"
	case KindReservation:
		return "reservation"
	}
	return string(k)
}

// Status is the activation state shared by every entity that carries one.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is one of the two known states.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

const dateLayout = "2006-01-02"

// Date is a calendar date without time of day. It is stored as DATE on
// Postgres and as ISO text on SQLite.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return codec.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := codec.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Format(dateLayout), nil
}

// Scan implements sql.Scanner for DATE columns (time.Time) and text columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = NewDate(v.Year(), v.Month(), v.Day())
		return nil
	case []byte:
		return d.scanText(string(v))
	case string:
		return d.scanText(v)
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

func (d *Date) scanText(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Nationality is a reference entry used by authors and publishers.
type Nationality struct {
	ID   int64  `json:"id" db:"id" goqu:"skipinsert,skipupdate"`
	Name string `json:"name" db:"name"`
}

// Genre is a literary genre.
type Genre struct {
	ID   int64  `json:"id" db:"id" goqu:"skipinsert,skipupdate"`
	Name string `json:"name" db:"name"`
}

// Faculty groups students.
type Faculty struct {
	ID   int64  `json:"id" db:"id" goqu:"skipinsert,skipupdate"`
	Name string `json:"name" db:"name"`
}

// Publisher publishes books.
type Publisher struct {
	ID            int64  `json:"id" db:"id" goqu:"skipinsert,skipupdate"`
	Name          string `json:"name" db:"name"`
	NationalityID int64  `json:"nationality_id" db:"nationality_id"`
	Website       string `json:"website" db:"website"`
	Status        Status `json:"status" db:"status"`
}

// Course is an academic course a book can be assigned to.
type Course struct {
	ID          int64  `json:"id" db:"id" goqu:"skipinsert,skipupdate"`
	Name        string `json:"name" db:"name"`
	Level       string `json:"level" db:"level"`
	Description string `json:"description" db:"description"`
	Status      Status `json:"status" db:"status"`
}

// Author writes books. Name is unique across the catalog.
type Author struct {
	ID            int64  `json:"id" db:"id" goqu:"skipinsert,skipupdate"`
	Name          string `json:"name" db:"name"`
	NationalityID int64  `json:"nationality_id" db:"nationality_id"`
	GenreID       int64  `json:"genre_id" db:"genre_id"`
	BirthDate     Date   `json:"birth_date" db:"birth_date"`
	Biography     string `json:"biography" db:"biography"`
	Status        Status `json:"status" db:"status"`
	PhotoURL      string `json:"photo_url" db:"photo_url"`
}

// Book is a catalog title. CourseID is the only optional reference.
type Book struct {
	ID          int64  `json:"id" db:"id" goqu:"skipinsert,skipupdate"`
	Title       string `json:"title" db:"title"`
	TotalCopies int    `json:"total_copies" db:"total_copies"`
	ReleaseDate Date   `json:"release_date" db:"release_date"`
	AuthorID    int64  `json:"author_id" db:"author_id"`
	PublisherID int64  `json:"publisher_id" db:"publisher_id"`
	GenreID     int64  `json:"genre_id" db:"genre_id"`
	CourseID    *int64 `json:"course_id" db:"course_id"`
	Status      Status `json:"status" db:"status"`
}

// Location is a physical area of the library. It owns its shelves: they are
// written and replaced together with the location.
type Location struct {
	ID          int64   `json:"id" db:"id" goqu:"skipinsert,skipupdate"`
	Name        string  `json:"name" db:"name"`
	Description string  `json:"description" db:"description"`
	Shelves     []Shelf `json:"shelves" db:"-"`
}

// Shelf belongs to exactly one location. Position is 1-based and equals the
// shelf's index in the owning location's sequence.
type Shelf struct {
	ID         int64  `json:"id" db:"id" goqu:"skipinsert,skipupdate"`
	LocationID int64  `json:"location_id" db:"location_id"`
	Position   int    `json:"position" db:"position"`
	Code       string `json:"code" db:"code"`
	Floor      string `json:"floor" db:"floor"`
	Capacity   int    `json:"capacity" db:"capacity"`
}

// Student can place reservations.
type Student struct {
	ID        int64  `json:"id" db:"id" goqu:"skipinsert,skipupdate"`
	DNI       string `json:"dni" db:"dni"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Email     string `json:"email" db:"email"`
	Phone     string `json:"phone" db:"phone"`
	FacultyID int64  `json:"faculty_id" db:"faculty_id"`
	Status    Status `json:"status" db:"status"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Reservation holds a book for a student between two dates.
type Reservation struct {
	ID         int64  `json:"id" db:"id" goqu:"skipinsert,skipupdate"`
	BookID     int64  `json:"book_id" db:"book_id"`
	StudentID  int64  `json:"student_id" db:"student_id"`
	ReservedOn Date   `json:"reserved_on" db:"reserved_on"`
	PickupBy   Date   `json:"pickup_by" db:"pickup_by"`
	Status     Status `json:"status" db:"status"`
}
