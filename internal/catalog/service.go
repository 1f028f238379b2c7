// internal/catalog/service.go
package catalog

import (
	"context"
	"io"

	"bookstudio/internal/blob"
)

// Resource is the read and write surface of one entity kind.
type Resource[In, Row, Info any] interface {
	// List returns every record ordered by id descending. An empty catalog
	// yields an empty slice and no error.
	List(ctx context.Context) ([]Row, error)
	Get(ctx context.Context, id int64) (Info, error)
	Create(ctx context.Context, in In) (Info, error)
	Update(ctx context.Context, id int64, in In) (Info, error)
}

// Service defines the interface for the catalog service.
type Service interface {
	Nationalities() Resource[Nationality, NamedView, NamedView]
	Genres() Resource[Genre, NamedView, NamedView]
	Faculties() Resource[Faculty, NamedView, NamedView]
	Publishers() Resource[Publisher, PublisherRow, PublisherInfo]
	Courses() Resource[Course, CourseRow, CourseInfo]
	Authors() Resource[Author, AuthorRow, AuthorInfo]
	Books() Resource[Book, BookRow, BookInfo]
	Locations() Resource[Location, LocationRow, LocationInfo]
	Students() Resource[Student, StudentRow, StudentInfo]
	Reservations() Resource[Reservation, ReservationRow, ReservationInfo]

	// SelectOptions builds the named select views.
	SelectOptions(ctx context.Context, names ...string) (Options, error)
	// FormOptions builds the select views a kind's form depends on.
	FormOptions(ctx context.Context, kind Kind) (Options, error)

	// History lists the journal entries of one record.
	History(ctx context.Context, kind Kind, id int64) ([]Change, error)

	SetAuthorPhoto(ctx context.Context, id int64, contentType string, body io.Reader) (AuthorInfo, error)
	// AuthorPhoto opens the stored photo of an author. The caller closes it.
	AuthorPhoto(ctx context.Context, id int64) (blob.Info, io.ReadCloser, error)
}
