package sqlstore

import (
	"context"
	"fmt"
	"strings"
)

// schema is written once with placeholders and rendered per dialect:
// {{pk}} identity column, {{date}} calendar date, {{json}} payload,
// {{ts}} timestamp, {{uuid}} identifier.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS nationalities (
		id {{pk}},
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS genres (
		id {{pk}},
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS faculties (
		id {{pk}},
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS publishers (
		id {{pk}},
		name TEXT NOT NULL UNIQUE,
		nationality_id BIGINT NOT NULL REFERENCES nationalities(id),
		website TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL CHECK (status IN ('active', 'inactive'))
	)`,
	`CREATE TABLE IF NOT EXISTS courses (
		id {{pk}},
		name TEXT NOT NULL UNIQUE,
		level TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL CHECK (status IN ('active', 'inactive'))
	)`,
	`CREATE TABLE IF NOT EXISTS authors (
		id {{pk}},
		name TEXT NOT NULL UNIQUE,
		nationality_id BIGINT NOT NULL REFERENCES nationalities(id),
		genre_id BIGINT NOT NULL REFERENCES genres(id),
		birth_date {{date}},
		biography TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL CHECK (status IN ('active', 'inactive')),
		photo_url TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id {{pk}},
		title TEXT NOT NULL,
		total_copies INTEGER NOT NULL CHECK (total_copies >= 1),
		release_date {{date}},
		author_id BIGINT NOT NULL REFERENCES authors(id),
		publisher_id BIGINT NOT NULL REFERENCES publishers(id),
		genre_id BIGINT NOT NULL REFERENCES genres(id),
		course_id BIGINT REFERENCES courses(id),
		status TEXT NOT NULL CHECK (status IN ('active', 'inactive'))
	)`,
	`CREATE TABLE IF NOT EXISTS locations (
		id {{pk}},
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS shelves (
		id {{pk}},
		location_id BIGINT NOT NULL REFERENCES locations(id),
		position INTEGER NOT NULL,
		code TEXT NOT NULL,
		floor TEXT NOT NULL DEFAULT '',
		capacity INTEGER NOT NULL DEFAULT 0 CHECK (capacity >= 0),
		UNIQUE (location_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id {{pk}},
		dni TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		faculty_id BIGINT NOT NULL REFERENCES faculties(id),
		status TEXT NOT NULL CHECK (status IN ('active', 'inactive'))
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id {{pk}},
		book_id BIGINT NOT NULL REFERENCES books(id),
		student_id BIGINT NOT NULL REFERENCES students(id),
		reserved_on {{date}},
		pickup_by {{date}},
		status TEXT NOT NULL CHECK (status IN ('active', 'inactive'))
	)`,
	`CREATE TABLE IF NOT EXISTS changes (
		id {{uuid}} PRIMARY KEY,
		kind TEXT NOT NULL,
		entity_id BIGINT NOT NULL,
		action TEXT NOT NULL,
		version INTEGER NOT NULL,
		payload {{json}} NOT NULL,
		recorded_at {{ts}} NOT NULL,
		UNIQUE (kind, entity_id, version)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_shelves_location ON shelves (location_id, position)`,
}

var dialectTypes = map[string]*strings.Replacer{
	dialectPostgres: strings.NewReplacer(
		"{{pk}}", "BIGSERIAL PRIMARY KEY",
		"{{date}}", "DATE",
		"{{json}}", "JSONB",
		"{{ts}}", "TIMESTAMPTZ",
		"{{uuid}}", "UUID",
	),
	dialectSQLite: strings.NewReplacer(
		"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{date}}", "TEXT",
		"{{json}}", "TEXT",
		"{{ts}}", "TEXT",
		"{{uuid}}", "TEXT",
	),
}

// Migrate creates any missing tables. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	r, ok := dialectTypes[s.dialect]
	if !ok {
		return fmt.Errorf("no schema for dialect %q", s.dialect)
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
