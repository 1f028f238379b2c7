package catalog_test

import (
	"cmp"
	"context"
	"slices"
	"testing"

	"pgregory.net/rapid"

	"bookstudio/internal/catalog"
	"bookstudio/internal/persistence/memory"
)

func TestPropertyListAndSelectOrdering(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		svc := catalog.NewService(memory.New())

		nat, err := svc.Nationalities().Create(ctx, catalog.Nationality{Name: "Peruvian"})
		if err != nil {
			t.Fatal(err)
		}

		names := rapid.SliceOfNDistinct(rapid.StringMatching(`[A-Z][a-z]{1,8}`), 1, 20, rapid.ID[string]).Draw(t, "names")
		active := make(map[int64]bool)
		for _, name := range names {
			status := rapid.SampledFrom([]catalog.Status{catalog.StatusActive, catalog.StatusInactive}).Draw(t, "status")
			info, err := svc.Publishers().Create(ctx, catalog.Publisher{Name: name, NationalityID: nat.ID, Status: status})
			if err != nil {
				t.Fatalf("create %q: %v", name, err)
			}
			active[info.ID] = status == catalog.StatusActive
		}

		rows, err := svc.Publishers().List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != len(names) {
			t.Fatalf("listed %d publishers, created %d", len(rows), len(names))
		}
		if !slices.IsSortedFunc(rows, func(a, b catalog.PublisherRow) int { return cmp.Compare(b.ID, a.ID) }) {
			t.Fatalf("list not ordered by id descending: %v", rows)
		}

		opts, err := svc.SelectOptions(ctx, "publishers")
		if err != nil {
			t.Fatal(err)
		}
		got := opts["publishers"]
		want := 0
		for _, ok := range active {
			if ok {
				want++
			}
		}
		if len(got) != want {
			t.Fatalf("select offered %d publishers, %d are active", len(got), want)
		}
		for i, o := range got {
			if !active[o.ID] {
				t.Fatalf("inactive publisher %d offered", o.ID)
			}
			if i > 0 && cmp.Or(cmp.Compare(got[i-1].Name, o.Name), cmp.Compare(got[i-1].ID, o.ID)) >= 0 {
				t.Fatalf("select not ordered by name then id: %v", got)
			}
		}
		if opts.Present() != (want > 0) {
			t.Fatalf("Present() = %v with %d entries", opts.Present(), want)
		}
	})
}

func TestPropertyShelfPositionsMatchInputOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		svc := catalog.NewService(memory.New())

		var id int64
		for round := range rapid.IntRange(1, 4).Draw(t, "rounds") {
			codes := rapid.SliceOfDistinct(rapid.StringMatching(`[a-z][0-9]{1,3}`), rapid.ID[string]).Draw(t, "codes")
			shelves := make([]catalog.Shelf, len(codes))
			for i, code := range codes {
				shelves[i] = catalog.Shelf{Code: code, Position: rapid.IntRange(-5, 50).Draw(t, "position")}
			}
			loc := catalog.Location{Name: "Stacks", Shelves: shelves}

			var info catalog.LocationInfo
			var err error
			if round == 0 {
				info, err = svc.Locations().Create(ctx, loc)
				id = info.ID
			} else {
				info, err = svc.Locations().Update(ctx, id, loc)
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(info.Shelves) != len(codes) {
				t.Fatalf("got %d shelves, sent %d", len(info.Shelves), len(codes))
			}
			for i, sh := range info.Shelves {
				if sh.Position != i+1 || sh.Code != codes[i] {
					t.Fatalf("shelf %d = %+v, want position %d code %q", i, sh, i+1, codes[i])
				}
			}
		}
	})
}
