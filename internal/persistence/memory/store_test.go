package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"bookstudio/internal/catalog"
)

func TestTableInsertGetList(t *testing.T) {
	ctx := context.Background()
	s := New()

	id1, err := s.Genres().Insert(ctx, catalog.Genre{Name: "Poetry"})
	require.NoError(t, err)
	id2, err := s.Genres().Insert(ctx, catalog.Genre{Name: "Drama"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)

	got, err := s.Genres().Get(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, catalog.Genre{ID: 2, Name: "Drama"}, got)

	all, err := s.Genres().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Genre{{ID: 1, Name: "Poetry"}, {ID: 2, Name: "Drama"}}, all)

	_, err = s.Genres().Get(ctx, 99)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestTableRejectsDuplicatesWithoutOverwriting(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.Nationalities().Insert(ctx, catalog.Nationality{Name: "Peruvian"})
	require.NoError(t, err)

	_, err = s.Nationalities().Insert(ctx, catalog.Nationality{Name: "Peruvian"})
	assert.ErrorIs(t, err, catalog.ErrDuplicate)

	other, err := s.Nationalities().Insert(ctx, catalog.Nationality{Name: "Chilean"})
	require.NoError(t, err)
	err = s.Nationalities().Update(ctx, other, catalog.Nationality{Name: "Peruvian"})
	assert.ErrorIs(t, err, catalog.ErrDuplicate)

	all, err := s.Nationalities().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Nationality{{ID: id, Name: "Peruvian"}, {ID: other, Name: "Chilean"}}, all)

	// Re-saving a record under its own unique value is not a clash.
	require.NoError(t, s.Nationalities().Update(ctx, id, catalog.Nationality{Name: "Peruvian"}))
}

func TestTableFindUnique(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.Students().Insert(ctx, catalog.Student{DNI: "12345678", FirstName: "Ana"})
	require.NoError(t, err)

	got, err := s.Students().FindUnique(ctx, "dni", "12345678")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	_, err = s.Students().FindUnique(ctx, "dni", "00000000")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = s.Students().FindUnique(ctx, "email", "x@y.z")
	assert.Error(t, err)
}

func TestUpdateMissingRecord(t *testing.T) {
	err := New().Courses().Update(context.Background(), 7, catalog.Course{Name: "Algebra"})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestLocationShelvesKeepIdsByPosition(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.Locations().Insert(ctx, catalog.Location{
		Name:    "Main hall",
		Shelves: []catalog.Shelf{{Code: "A"}, {Code: "B"}, {Code: "C"}},
	})
	require.NoError(t, err)

	before, err := s.Locations().Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, before.Shelves, 3)

	require.NoError(t, s.Locations().Update(ctx, id, catalog.Location{
		Name:    "Main hall",
		Shelves: []catalog.Shelf{{Code: "Z"}, {Code: "Y"}},
	}))

	after, err := s.Locations().Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, after.Shelves, 2)
	for i, sh := range after.Shelves {
		assert.Equal(t, before.Shelves[i].ID, sh.ID)
		assert.Equal(t, i+1, sh.Position)
		assert.Equal(t, id, sh.LocationID)
	}
	assert.Equal(t, "Z", after.Shelves[0].Code)
	assert.Equal(t, "Y", after.Shelves[1].Code)
}

func TestLocationReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.Locations().Insert(ctx, catalog.Location{Name: "Annex", Shelves: []catalog.Shelf{{Code: "A"}}})
	require.NoError(t, err)

	got, err := s.Locations().Get(ctx, id)
	require.NoError(t, err)
	got.Shelves[0].Code = "mutated"

	again, err := s.Locations().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "A", again.Shelves[0].Code)
}

// Any sequence of shelf rewrites leaves exactly the last sequence stored,
// numbered 1..n, with surviving positions keeping their ids.
func TestLocationShelfRewritesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		s := New()
		id, err := s.Locations().Insert(ctx, catalog.Location{Name: "L"})
		if err != nil {
			t.Fatal(err)
		}

		known := map[int]int64{}
		rounds := rapid.IntRange(1, 6).Draw(t, "rounds")
		for r := 0; r < rounds; r++ {
			n := rapid.IntRange(0, 8).Draw(t, fmt.Sprintf("len%d", r))
			shelves := make([]catalog.Shelf, n)
			for i := range shelves {
				shelves[i].Code = fmt.Sprintf("r%d-%d", r, i)
			}
			if err := s.Locations().Update(ctx, id, catalog.Location{Name: "L", Shelves: shelves}); err != nil {
				t.Fatal(err)
			}

			got, err := s.Locations().Get(ctx, id)
			if err != nil {
				t.Fatal(err)
			}
			if len(got.Shelves) != n {
				t.Fatalf("stored %d shelves, want %d", len(got.Shelves), n)
			}
			for i, sh := range got.Shelves {
				if sh.Position != i+1 || sh.Code != shelves[i].Code {
					t.Fatalf("shelf %d = %+v", i, sh)
				}
				if prev, ok := known[i+1]; ok && prev != sh.ID {
					t.Fatalf("position %d changed id %d -> %d", i+1, prev, sh.ID)
				}
			}
			for pos := range known {
				if pos > n {
					delete(known, pos)
				}
			}
			for _, sh := range got.Shelves {
				known[sh.Position] = sh.ID
			}
		}
	})
}

func TestJournalVersions(t *testing.T) {
	ctx := context.Background()
	j := NewJournal()

	first, err := j.Append(ctx, catalog.Change{Kind: catalog.KindBook, EntityID: 1, Action: catalog.ActionCreated})
	require.NoError(t, err)
	second, err := j.Append(ctx, catalog.Change{Kind: catalog.KindBook, EntityID: 1, Action: catalog.ActionUpdated})
	require.NoError(t, err)
	other, err := j.Append(ctx, catalog.Change{Kind: catalog.KindAuthor, EntityID: 1, Action: catalog.ActionCreated})
	require.NoError(t, err)

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, 1, other.Version)
	assert.False(t, first.RecordedAt.IsZero())

	history, err := j.History(ctx, catalog.KindBook, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, catalog.ActionCreated, history[0].Action)
	assert.Equal(t, catalog.ActionUpdated, history[1].Action)

	empty, err := j.History(ctx, catalog.KindBook, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
