// internal/catalog/views.go
package catalog

// Option is one entry of a select view.
type Option struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NamedView is the list and info shape of kinds that only carry a name.
type NamedView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type PublisherRow struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	NationalityName string `json:"nationality_name"`
	Website         string `json:"website"`
	Status          Status `json:"status"`
}

type PublisherInfo struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	NationalityID   int64  `json:"nationality_id"`
	NationalityName string `json:"nationality_name"`
	Website         string `json:"website"`
	Status          Status `json:"status"`
}

type CourseRow struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Level  string `json:"level"`
	Status Status `json:"status"`
}

type CourseInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Level       string `json:"level"`
	Description string `json:"description"`
	Status      Status `json:"status"`
}

type AuthorRow struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	NationalityName string `json:"nationality_name"`
	GenreName       string `json:"genre_name"`
	BirthDate       Date   `json:"birth_date"`
	Status          Status `json:"status"`
	PhotoURL        string `json:"photo_url"`
}

type AuthorInfo struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	NationalityID   int64  `json:"nationality_id"`
	NationalityName string `json:"nationality_name"`
	GenreID         int64  `json:"genre_id"`
	GenreName       string `json:"genre_name"`
	BirthDate       Date   `json:"birth_date"`
	Biography       string `json:"biography"`
	Status          Status `json:"status"`
	PhotoURL        string `json:"photo_url"`
}

type BookRow struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	AuthorName    string `json:"author_name"`
	PublisherName string `json:"publisher_name"`
	GenreName     string `json:"genre_name"`
	TotalCopies   int    `json:"total_copies"`
	Status        Status `json:"status"`
}

type BookInfo struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	TotalCopies   int    `json:"total_copies"`
	ReleaseDate   Date   `json:"release_date"`
	AuthorID      int64  `json:"author_id"`
	AuthorName    string `json:"author_name"`
	PublisherID   int64  `json:"publisher_id"`
	PublisherName string `json:"publisher_name"`
	GenreID       int64  `json:"genre_id"`
	GenreName     string `json:"genre_name"`
	CourseID      *int64 `json:"course_id"`
	CourseName    string `json:"course_name,omitempty"`
	Status        Status `json:"status"`
}

type LocationRow struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ShelfCount  int    `json:"shelf_count"`
}

type ShelfView struct {
	ID       int64  `json:"id"`
	Position int    `json:"position"`
	Code     string `json:"code"`
	Floor    string `json:"floor"`
	Capacity int    `json:"capacity"`
}

type LocationInfo struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Shelves     []ShelfView `json:"shelves"`
}

type StudentRow struct {
	ID          int64  `json:"id"`
	DNI         string `json:"dni"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	FacultyName string `json:"faculty_name"`
	Status      Status `json:"status"`
}

type StudentInfo struct {
	ID          int64  `json:"id"`
	DNI         string `json:"dni"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	FacultyID   int64  `json:"faculty_id"`
	FacultyName string `json:"faculty_name"`
	Status      Status `json:"status"`
}

type ReservationRow struct {
	ID          int64  `json:"id"`
	BookTitle   string `json:"book_title"`
	StudentName string `json:"student_name"`
	ReservedOn  Date   `json:"reserved_on"`
	PickupBy    Date   `json:"pickup_by"`
	Status      Status `json:"status"`
}

type ReservationInfo struct {
	ID          int64  `json:"id"`
	BookID      int64  `json:"book_id"`
	BookTitle   string `json:"book_title"`
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name"`
	ReservedOn  Date   `json:"reserved_on"`
	PickupBy    Date   `json:"pickup_by"`
	Status      Status `json:"status"`
}
