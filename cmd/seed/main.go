// cmd/seed/main.go populates a running catalog with demo reference data.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"bookstudio/internal/catalog"
	"bookstudio/internal/clients"
)

func main() {
	baseURL := flag.String("api", getEnv("CATALOG_API_URL", "http://localhost:8080/api"), "catalog API base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := clients.NewCatalogClient(*baseURL, &http.Client{Timeout: 10 * time.Second})
	if err := seed(ctx, c, logger); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seed complete")
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// ensure creates a record unless the server reports it already exists, in
// which case the existing id is looked up by name. Seeding is re-runnable.
func ensure[In, Row, Info any](ctx context.Context, col clients.Collection[In, Row, Info], in In, name string, idOf func(Info) int64, rowID func(Row) (int64, string)) (int64, error) {
	info, err := col.Create(ctx, in)
	if err == nil {
		return idOf(info), nil
	}
	var apiErr *clients.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnprocessableEntity {
		return 0, err
	}
	rows, listErr := col.List(ctx)
	if listErr != nil {
		return 0, listErr
	}
	if id := findRow(rows, name, rowID); id != 0 {
		return id, nil
	}
	return 0, err
}

func named(v catalog.NamedView) int64                     { return v.ID }
func namedRow(v catalog.NamedView) (int64, string)        { return v.ID, v.Name }
func publisherRow(r catalog.PublisherRow) (int64, string) { return r.ID, r.Name }
func authorRow(r catalog.AuthorRow) (int64, string)       { return r.ID, r.Name }
func courseRow(r catalog.CourseRow) (int64, string)       { return r.ID, r.Name }
func bookRow(r catalog.BookRow) (int64, string)           { return r.ID, r.Title }
func locationRow(r catalog.LocationRow) (int64, string)   { return r.ID, r.Name }
func studentRow(r catalog.StudentRow) (int64, string)     { return r.ID, r.DNI }

func seed(ctx context.Context, c *clients.CatalogClient, logger *slog.Logger) error {
	nationalities := map[string]int64{}
	for _, name := range []string{"Peruvian", "Colombian", "Argentine"} {
		id, err := ensure(ctx, c.Nationalities(), catalog.Nationality{Name: name}, name, named, namedRow)
		if err != nil {
			return fmt.Errorf("nationality %s: %w", name, err)
		}
		nationalities[name] = id
	}

	genres := map[string]int64{}
	for _, name := range []string{"Novel", "Short story", "Poetry"} {
		id, err := ensure(ctx, c.Genres(), catalog.Genre{Name: name}, name, named, namedRow)
		if err != nil {
			return fmt.Errorf("genre %s: %w", name, err)
		}
		genres[name] = id
	}

	faculty, err := ensure(ctx, c.Faculties(), catalog.Faculty{Name: "Humanities"}, "Humanities", named, namedRow)
	if err != nil {
		return fmt.Errorf("faculty: %w", err)
	}

	publisher, err := ensure(ctx, c.Publishers(), catalog.Publisher{
		Name: "Alfaguara", NationalityID: nationalities["Peruvian"], Website: "https://www.alfaguara.com", Status: catalog.StatusActive,
	}, "Alfaguara", func(i catalog.PublisherInfo) int64 { return i.ID }, publisherRow)
	if err != nil {
		return fmt.Errorf("publisher: %w", err)
	}

	course, err := ensure(ctx, c.Courses(), catalog.Course{
		Name: "Latin American Literature", Level: "intermediate", Status: catalog.StatusActive,
	}, "Latin American Literature", func(i catalog.CourseInfo) int64 { return i.ID }, courseRow)
	if err != nil {
		return fmt.Errorf("course: %w", err)
	}

	authors := []catalog.Author{
		{Name: "Mario Vargas Llosa", NationalityID: nationalities["Peruvian"], GenreID: genres["Novel"], BirthDate: catalog.NewDate(1936, 3, 28), Status: catalog.StatusActive},
		{Name: "Gabriel García Márquez", NationalityID: nationalities["Colombian"], GenreID: genres["Novel"], BirthDate: catalog.NewDate(1927, 3, 6), Status: catalog.StatusActive},
		{Name: "Jorge Luis Borges", NationalityID: nationalities["Argentine"], GenreID: genres["Short story"], BirthDate: catalog.NewDate(1899, 8, 24), Status: catalog.StatusActive},
	}
	authorIDs := map[string]int64{}
	for _, a := range authors {
		id, err := ensure(ctx, c.Authors(), a, a.Name, func(i catalog.AuthorInfo) int64 { return i.ID }, authorRow)
		if err != nil {
			return fmt.Errorf("author %s: %w", a.Name, err)
		}
		authorIDs[a.Name] = id
	}

	books := []catalog.Book{
		{Title: "La ciudad y los perros", TotalCopies: 3, ReleaseDate: catalog.NewDate(1963, 10, 1), AuthorID: authorIDs["Mario Vargas Llosa"], GenreID: genres["Novel"], CourseID: &course},
		{Title: "Cien años de soledad", TotalCopies: 5, ReleaseDate: catalog.NewDate(1967, 5, 30), AuthorID: authorIDs["Gabriel García Márquez"], GenreID: genres["Novel"], CourseID: &course},
		{Title: "Ficciones", TotalCopies: 2, ReleaseDate: catalog.NewDate(1944, 1, 1), AuthorID: authorIDs["Jorge Luis Borges"], GenreID: genres["Short story"]},
	}
	existing, err := c.Books().List(ctx)
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}
	var firstBook int64
	for _, b := range books {
		b.PublisherID = publisher
		b.Status = catalog.StatusActive
		id := findRow(existing, b.Title, bookRow)
		if id == 0 {
			info, err := c.Books().Create(ctx, b)
			if err != nil {
				return fmt.Errorf("book %s: %w", b.Title, err)
			}
			id = info.ID
		}
		if firstBook == 0 {
			firstBook = id
		}
	}

	if _, err := ensure(ctx, c.Locations(), catalog.Location{
		Name: "Main reading room",
		Shelves: []catalog.Shelf{
			{Code: "A1", Floor: "1", Capacity: 40},
			{Code: "A2", Floor: "1", Capacity: 40},
			{Code: "B1", Floor: "2", Capacity: 25},
		},
	}, "Main reading room", func(i catalog.LocationInfo) int64 { return i.ID }, locationRow); err != nil {
		return fmt.Errorf("location: %w", err)
	}

	student, err := ensure(ctx, c.Students(), catalog.Student{
		DNI: "70123456", FirstName: "Ana", LastName: "Quispe", Email: "ana.quispe@example.edu",
		FacultyID: faculty, Status: catalog.StatusActive,
	}, "70123456", func(i catalog.StudentInfo) int64 { return i.ID }, studentRow)
	if err != nil {
		return fmt.Errorf("student: %w", err)
	}

	reservations, err := c.Reservations().List(ctx)
	if err != nil {
		return fmt.Errorf("list reservations: %w", err)
	}
	if len(reservations) == 0 {
		today := time.Now().UTC()
		if _, err := c.Reservations().Create(ctx, catalog.Reservation{
			BookID: firstBook, StudentID: student,
			ReservedOn: catalog.NewDate(today.Year(), today.Month(), today.Day()),
			PickupBy:   catalog.NewDate(today.Year(), today.Month(), today.Day()+3),
			Status:     catalog.StatusActive,
		}); err != nil {
			return fmt.Errorf("reservation: %w", err)
		}
	}

	logger.Info("catalog seeded",
		"nationalities", len(nationalities), "genres", len(genres), "authors", len(authorIDs), "books", len(books))
	return nil
}

func findRow[Row any](rows []Row, name string, rowID func(Row) (int64, string)) int64 {
	for _, row := range rows {
		if id, rowName := rowID(row); rowName == name {
			return id
		}
	}
	return 0
}
