// internal/catalog/projection.go
package catalog

import (
	"cmp"
	"context"
	"slices"
)

// projector builds the read models. Rows functions expect records already
// ordered by the caller; they only resolve references.
type projector struct {
	store Store
}

func namedRows[T any](recs []T, view func(T) NamedView) []NamedView {
	rows := make([]NamedView, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, view(rec))
	}
	return rows
}

func nationalityView(n Nationality) NamedView { return NamedView{ID: n.ID, Name: n.Name} }
func genreView(g Genre) NamedView             { return NamedView{ID: g.ID, Name: g.Name} }
func facultyView(f Faculty) NamedView         { return NamedView{ID: f.ID, Name: f.Name} }

func (p projector) publisherRows(ctx context.Context, recs []Publisher) ([]PublisherRow, error) {
	nationalities, err := index(ctx, p.store.Nationalities(), func(n Nationality) int64 { return n.ID })
	if err != nil {
		return nil, err
	}
	rows := make([]PublisherRow, 0, len(recs))
	for _, pub := range recs {
		nat, err := lookup(nationalities, ref{KindPublisher, pub.ID, "nationality_id", KindNationality, pub.NationalityID})
		if err != nil {
			return nil, err
		}
		rows = append(rows, PublisherRow{
			ID:              pub.ID,
			Name:            pub.Name,
			NationalityName: nat.Name,
			Website:         pub.Website,
			Status:          pub.Status,
		})
	}
	return rows, nil
}

func (p projector) publisherInfo(ctx context.Context, pub Publisher) (PublisherInfo, error) {
	nat, err := fetch(ctx, p.store.Nationalities(), ref{KindPublisher, pub.ID, "nationality_id", KindNationality, pub.NationalityID})
	if err != nil {
		return PublisherInfo{}, err
	}
	return PublisherInfo{
		ID:              pub.ID,
		Name:            pub.Name,
		NationalityID:   nat.ID,
		NationalityName: nat.Name,
		Website:         pub.Website,
		Status:          pub.Status,
	}, nil
}

func (p projector) courseRows(_ context.Context, recs []Course) ([]CourseRow, error) {
	rows := make([]CourseRow, 0, len(recs))
	for _, c := range recs {
		rows = append(rows, CourseRow{ID: c.ID, Name: c.Name, Level: c.Level, Status: c.Status})
	}
	return rows, nil
}

func (p projector) courseInfo(_ context.Context, c Course) (CourseInfo, error) {
	return CourseInfo{ID: c.ID, Name: c.Name, Level: c.Level, Description: c.Description, Status: c.Status}, nil
}

func (p projector) authorRows(ctx context.Context, recs []Author) ([]AuthorRow, error) {
	nationalities, err := index(ctx, p.store.Nationalities(), func(n Nationality) int64 { return n.ID })
	if err != nil {
		return nil, err
	}
	genres, err := index(ctx, p.store.Genres(), func(g Genre) int64 { return g.ID })
	if err != nil {
		return nil, err
	}
	rows := make([]AuthorRow, 0, len(recs))
	for _, a := range recs {
		nat, err := lookup(nationalities, ref{KindAuthor, a.ID, "nationality_id", KindNationality, a.NationalityID})
		if err != nil {
			return nil, err
		}
		genre, err := lookup(genres, ref{KindAuthor, a.ID, "genre_id", KindGenre, a.GenreID})
		if err != nil {
			return nil, err
		}
		rows = append(rows, AuthorRow{
			ID:              a.ID,
			Name:            a.Name,
			NationalityName: nat.Name,
			GenreName:       genre.Name,
			BirthDate:       a.BirthDate,
			Status:          a.Status,
			PhotoURL:        a.PhotoURL,
		})
	}
	return rows, nil
}

func (p projector) authorInfo(ctx context.Context, a Author) (AuthorInfo, error) {
	nat, err := fetch(ctx, p.store.Nationalities(), ref{KindAuthor, a.ID, "nationality_id", KindNationality, a.NationalityID})
	if err != nil {
		return AuthorInfo{}, err
	}
	genre, err := fetch(ctx, p.store.Genres(), ref{KindAuthor, a.ID, "genre_id", KindGenre, a.GenreID})
	if err != nil {
		return AuthorInfo{}, err
	}
	return AuthorInfo{
		ID:              a.ID,
		Name:            a.Name,
		NationalityID:   nat.ID,
		NationalityName: nat.Name,
		GenreID:         genre.ID,
		GenreName:       genre.Name,
		BirthDate:       a.BirthDate,
		Biography:       a.Biography,
		Status:          a.Status,
		PhotoURL:        a.PhotoURL,
	}, nil
}

func (p projector) bookRows(ctx context.Context, recs []Book) ([]BookRow, error) {
	authors, err := index(ctx, p.store.Authors(), func(a Author) int64 { return a.ID })
	if err != nil {
		return nil, err
	}
	publishers, err := index(ctx, p.store.Publishers(), func(pub Publisher) int64 { return pub.ID })
	if err != nil {
		return nil, err
	}
	genres, err := index(ctx, p.store.Genres(), func(g Genre) int64 { return g.ID })
	if err != nil {
		return nil, err
	}
	rows := make([]BookRow, 0, len(recs))
	for _, b := range recs {
		author, err := lookup(authors, ref{KindBook, b.ID, "author_id", KindAuthor, b.AuthorID})
		if err != nil {
			return nil, err
		}
		pub, err := lookup(publishers, ref{KindBook, b.ID, "publisher_id", KindPublisher, b.PublisherID})
		if err != nil {
			return nil, err
		}
		genre, err := lookup(genres, ref{KindBook, b.ID, "genre_id", KindGenre, b.GenreID})
		if err != nil {
			return nil, err
		}
		rows = append(rows, BookRow{
			ID:            b.ID,
			Title:         b.Title,
			AuthorName:    author.Name,
			PublisherName: pub.Name,
			GenreName:     genre.Name,
			TotalCopies:   b.TotalCopies,
			Status:        b.Status,
		})
	}
	return rows, nil
}

func (p projector) bookInfo(ctx context.Context, b Book) (BookInfo, error) {
	author, err := fetch(ctx, p.store.Authors(), ref{KindBook, b.ID, "author_id", KindAuthor, b.AuthorID})
	if err != nil {
		return BookInfo{}, err
	}
	pub, err := fetch(ctx, p.store.Publishers(), ref{KindBook, b.ID, "publisher_id", KindPublisher, b.PublisherID})
	if err != nil {
		return BookInfo{}, err
	}
	genre, err := fetch(ctx, p.store.Genres(), ref{KindBook, b.ID, "genre_id", KindGenre, b.GenreID})
	if err != nil {
		return BookInfo{}, err
	}
	info := BookInfo{
		ID:            b.ID,
		Title:         b.Title,
		TotalCopies:   b.TotalCopies,
		ReleaseDate:   b.ReleaseDate,
		AuthorID:      author.ID,
		AuthorName:    author.Name,
		PublisherID:   pub.ID,
		PublisherName: pub.Name,
		GenreID:       genre.ID,
		GenreName:     genre.Name,
		Status:        b.Status,
	}
	if b.CourseID != nil {
		course, err := fetch(ctx, p.store.Courses(), ref{KindBook, b.ID, "course_id", KindCourse, *b.CourseID})
		if err != nil {
			return BookInfo{}, err
		}
		id := course.ID
		info.CourseID = &id
		info.CourseName = course.Name
	}
	return info, nil
}

func (p projector) locationRows(_ context.Context, recs []Location) ([]LocationRow, error) {
	rows := make([]LocationRow, 0, len(recs))
	for _, loc := range recs {
		rows = append(rows, LocationRow{
			ID:          loc.ID,
			Name:        loc.Name,
			Description: loc.Description,
			ShelfCount:  len(loc.Shelves),
		})
	}
	return rows, nil
}

func (p projector) locationInfo(_ context.Context, loc Location) (LocationInfo, error) {
	shelves := make([]ShelfView, 0, len(loc.Shelves))
	for _, sh := range loc.Shelves {
		shelves = append(shelves, ShelfView{
			ID:       sh.ID,
			Position: sh.Position,
			Code:     sh.Code,
			Floor:    sh.Floor,
			Capacity: sh.Capacity,
		})
	}
	slices.SortFunc(shelves, func(a, b ShelfView) int { return cmp.Compare(a.Position, b.Position) })
	return LocationInfo{ID: loc.ID, Name: loc.Name, Description: loc.Description, Shelves: shelves}, nil
}

func (p projector) studentRows(ctx context.Context, recs []Student) ([]StudentRow, error) {
	faculties, err := index(ctx, p.store.Faculties(), func(f Faculty) int64 { return f.ID })
	if err != nil {
		return nil, err
	}
	rows := make([]StudentRow, 0, len(recs))
	for _, s := range recs {
		fac, err := lookup(faculties, ref{KindStudent, s.ID, "faculty_id", KindFaculty, s.FacultyID})
		if err != nil {
			return nil, err
		}
		rows = append(rows, StudentRow{
			ID:          s.ID,
			DNI:         s.DNI,
			FirstName:   s.FirstName,
			LastName:    s.LastName,
			Email:       s.Email,
			Phone:       s.Phone,
			FacultyName: fac.Name,
			Status:      s.Status,
		})
	}
	return rows, nil
}

func (p projector) studentInfo(ctx context.Context, s Student) (StudentInfo, error) {
	fac, err := fetch(ctx, p.store.Faculties(), ref{KindStudent, s.ID, "faculty_id", KindFaculty, s.FacultyID})
	if err != nil {
		return StudentInfo{}, err
	}
	return StudentInfo{
		ID:          s.ID,
		DNI:         s.DNI,
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		Email:       s.Email,
		Phone:       s.Phone,
		FacultyID:   fac.ID,
		FacultyName: fac.Name,
		Status:      s.Status,
	}, nil
}

func (p projector) reservationRows(ctx context.Context, recs []Reservation) ([]ReservationRow, error) {
	books, err := index(ctx, p.store.Books(), func(b Book) int64 { return b.ID })
	if err != nil {
		return nil, err
	}
	students, err := index(ctx, p.store.Students(), func(s Student) int64 { return s.ID })
	if err != nil {
		return nil, err
	}
	rows := make([]ReservationRow, 0, len(recs))
	for _, r := range recs {
		book, err := lookup(books, ref{KindReservation, r.ID, "book_id", KindBook, r.BookID})
		if err != nil {
			return nil, err
		}
		student, err := lookup(students, ref{KindReservation, r.ID, "student_id", KindStudent, r.StudentID})
		if err != nil {
			return nil, err
		}
		rows = append(rows, ReservationRow{
			ID:          r.ID,
			BookTitle:   book.Title,
			StudentName: student.FullName(),
			ReservedOn:  r.ReservedOn,
			PickupBy:    r.PickupBy,
			Status:      r.Status,
		})
	}
	return rows, nil
}

func (p projector) reservationInfo(ctx context.Context, r Reservation) (ReservationInfo, error) {
	book, err := fetch(ctx, p.store.Books(), ref{KindReservation, r.ID, "book_id", KindBook, r.BookID})
	if err != nil {
		return ReservationInfo{}, err
	}
	student, err := fetch(ctx, p.store.Students(), ref{KindReservation, r.ID, "student_id", KindStudent, r.StudentID})
	if err != nil {
		return ReservationInfo{}, err
	}
	return ReservationInfo{
		ID:          r.ID,
		BookID:      book.ID,
		BookTitle:   book.Title,
		StudentID:   student.ID,
		StudentName: student.FullName(),
		ReservedOn:  r.ReservedOn,
		PickupBy:    r.PickupBy,
		Status:      r.Status,
	}, nil
}

// selectView turns the records that pass eligible into options ordered by
// name, then id.
func selectView[T any](ctx context.Context, table Table[T], option func(T) (Option, bool)) ([]Option, error) {
	records, err := table.List(ctx)
	if err != nil {
		return nil, err
	}
	opts := make([]Option, 0, len(records))
	for _, rec := range records {
		if opt, eligible := option(rec); eligible {
			opts = append(opts, opt)
		}
	}
	slices.SortFunc(opts, func(a, b Option) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return opts, nil
}

// selectors returns the select view of every kind. Status-bearing kinds only
// offer active records.
func (p projector) selectors() map[string]Producer {
	return map[string]Producer{
		string(KindNationality): func(ctx context.Context) ([]Option, error) {
			return selectView(ctx, p.store.Nationalities(), func(n Nationality) (Option, bool) {
				return Option{ID: n.ID, Name: n.Name}, true
			})
		},
		string(KindGenre): func(ctx context.Context) ([]Option, error) {
			return selectView(ctx, p.store.Genres(), func(g Genre) (Option, bool) {
				return Option{ID: g.ID, Name: g.Name}, true
			})
		},
		string(KindFaculty): func(ctx context.Context) ([]Option, error) {
			return selectView(ctx, p.store.Faculties(), func(f Faculty) (Option, bool) {
				return Option{ID: f.ID, Name: f.Name}, true
			})
		},
		string(KindPublisher): func(ctx context.Context) ([]Option, error) {
			return selectView(ctx, p.store.Publishers(), func(pub Publisher) (Option, bool) {
				return Option{ID: pub.ID, Name: pub.Name}, pub.Status == StatusActive
			})
		},
		string(KindCourse): func(ctx context.Context) ([]Option, error) {
			return selectView(ctx, p.store.Courses(), func(c Course) (Option, bool) {
				return Option{ID: c.ID, Name: c.Name}, c.Status == StatusActive
			})
		},
		string(KindAuthor): func(ctx context.Context) ([]Option, error) {
			return selectView(ctx, p.store.Authors(), func(a Author) (Option, bool) {
				return Option{ID: a.ID, Name: a.Name}, a.Status == StatusActive
			})
		},
		string(KindBook): func(ctx context.Context) ([]Option, error) {
			return selectView(ctx, p.store.Books(), func(b Book) (Option, bool) {
				return Option{ID: b.ID, Name: b.Title}, b.Status == StatusActive
			})
		},
		string(KindLocation): func(ctx context.Context) ([]Option, error) {
			return selectView(ctx, p.store.Locations(), func(loc Location) (Option, bool) {
				return Option{ID: loc.ID, Name: loc.Name}, true
			})
		},
		string(KindStudent): func(ctx context.Context) ([]Option, error) {
			return selectView(ctx, p.store.Students(), func(s Student) (Option, bool) {
				return Option{ID: s.ID, Name: s.FullName()}, s.Status == StatusActive
			})
		},
	}
}
