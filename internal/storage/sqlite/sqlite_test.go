package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"animehub/internal/storage"
	"animehub/internal/storage/sqlite"
	"animehub/pkg/database"
	"animehub/pkg/models"
)

func newFactory(t *testing.T) (*sqlite.Factory, *sql.DB) {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlite.NewFactory(db, zerolog.Nop(), false), db
}

func testAnime(name string, genres ...string) *models.Anime {
	id := uuid.NewString()
	gs := make([]models.Genre, 0, len(genres))
	for _, g := range genres {
		gs = append(gs, models.Genre{ID: uuid.NewString(), Name: g})
	}
	return &models.Anime{
		ID:           id,
		NameEn:       name,
		Type:         models.AnimeTypeTV,
		AiringStatus: models.AiringStatusAiring,
		AiringStart:  time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
		Genres:       gs,
	}
}

func TestAnimeRoundTrip(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	aired := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
	total := 12
	a := testAnime("Frieren")
	a.NameJp = "Sousou no Frieren"
	a.TotalEpisodes = &total
	a.Rating = "PG-13"
	a.Episodes = []models.Episode{
		{ID: uuid.NewString(), Name: "The Journey's End", AiredDate: &aired},
		{ID: uuid.NewString(), Name: "It Didn't Have to Be Magic"},
	}
	a.Franchise = &models.Franchise{ID: uuid.NewString(), Name: "Frieren", AnimeID: a.ID}

	err := f.Do(ctx, func(uow storage.UnitOfWork) error {
		studios, err := uow.Anime().AddStudios(ctx, []models.Studio{{ID: uuid.NewString(), Name: "Madhouse"}})
		if err != nil {
			return err
		}
		a.Studios = studios

		stored, err := uow.Anime().Add(ctx, a)
		if err != nil {
			return err
		}
		if stored.ID != a.ID {
			t.Errorf("stored id = %q, want %q", stored.ID, a.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = f.Do(ctx, func(uow storage.UnitOfWork) error {
		got, err := uow.Anime().GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		if got == nil {
			t.Fatal("anime not found after commit")
		}
		if got.NameEn != "Frieren" || got.NameJp != "Sousou no Frieren" {
			t.Errorf("names = %q/%q", got.NameEn, got.NameJp)
		}
		if got.TotalEpisodes == nil || *got.TotalEpisodes != 12 {
			t.Errorf("total episodes = %v, want 12", got.TotalEpisodes)
		}
		if len(got.Episodes) != 2 {
			t.Fatalf("episodes = %d, want 2", len(got.Episodes))
		}
		if len(got.Studios) != 1 || got.Studios[0].Name != "Madhouse" {
			t.Errorf("studios = %v", got.Studios)
		}
		if got.Franchise == nil {
			t.Fatal("franchise not loaded")
		}
		if got.Franchise.Name != "Frieren" || got.Franchise.AnimeID != a.ID {
			t.Errorf("franchise = %+v", got.Franchise)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
}

func TestEpisodesOrderedByAiredDate(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	a := testAnime("Kaiji")
	a.Episodes = []models.Episode{
		{ID: uuid.NewString(), Name: "The Steel Beam", AiredDate: &mar},
		{ID: uuid.NewString(), Name: "The Bog", AiredDate: &jan},
		{ID: uuid.NewString(), Name: "Recap Special"}, // no aired date
	}

	err := f.Do(ctx, func(uow storage.UnitOfWork) error {
		_, err := uow.Anime().Add(ctx, a)
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = f.Do(ctx, func(uow storage.UnitOfWork) error {
		got, err := uow.Anime().GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		if got == nil {
			t.Fatal("anime not found")
		}
		// ascending aired date, undated episodes first
		want := []string{"Recap Special", "The Bog", "The Steel Beam"}
		if len(got.Episodes) != len(want) {
			t.Fatalf("episodes = %d, want %d", len(got.Episodes), len(want))
		}
		for i, name := range want {
			if got.Episodes[i].Name != name {
				t.Errorf("episode[%d] = %q, want %q", i, got.Episodes[i].Name, name)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
}

func TestUpdateReplacesFranchise(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	a := testAnime("Mobile Suit Gundam")
	a.Franchise = &models.Franchise{ID: uuid.NewString(), Name: "Universal Century", AnimeID: a.ID}
	err := f.Do(ctx, func(uow storage.UnitOfWork) error {
		_, err := uow.Anime().Add(ctx, a)
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// re-point at a different franchise by name
	err = f.Do(ctx, func(uow storage.UnitOfWork) error {
		stored, err := uow.Anime().GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		stored.Franchise = &models.Franchise{ID: uuid.NewString(), Name: "Cosmic Era", AnimeID: a.ID}
		_, err = uow.Anime().Update(ctx, stored)
		return err
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	err = f.Do(ctx, func(uow storage.UnitOfWork) error {
		got, err := uow.Anime().GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		if got.Franchise == nil {
			t.Fatal("franchise missing after replace")
		}
		if got.Franchise.Name != "Cosmic Era" {
			t.Errorf("franchise = %q, want Cosmic Era", got.Franchise.Name)
		}

		// the old row survives by name but no longer points at the anime
		old, err := uow.Anime().AddFranchise(ctx, models.Franchise{ID: uuid.NewString(), Name: "Universal Century"})
		if err != nil {
			return err
		}
		if old.AnimeID != "" {
			t.Errorf("old franchise still attached to %q", old.AnimeID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestAddDuplicateNameMapsToAlreadyExists(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	add := func(a *models.Anime) error {
		return f.Do(ctx, func(uow storage.UnitOfWork) error {
			_, err := uow.Anime().Add(ctx, a)
			return err
		})
	}

	if err := add(testAnime("Monster")); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err := add(testAnime("Monster"))
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("second add err = %v, want ErrAlreadyExists", err)
	}
}

func TestAddGenresIdempotent(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	var first, second []models.Genre
	err := f.Do(ctx, func(uow storage.UnitOfWork) error {
		var err error
		first, err = uow.Anime().AddGenres(ctx, []models.Genre{
			{ID: uuid.NewString(), Name: "Comedy"},
			{ID: uuid.NewString(), Name: "Drama"},
		})
		if err != nil {
			return err
		}
		// same names again, fresh ids: must return the stored rows
		second, err = uow.Anime().AddGenres(ctx, []models.Genre{
			{ID: uuid.NewString(), Name: "Comedy"},
			{ID: uuid.NewString(), Name: "Drama"},
		})
		return err
	})
	if err != nil {
		t.Fatalf("add genres: %v", err)
	}

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("lens = %d, %d, want 2, 2", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("genre %q id changed across calls: %q vs %q", first[i].Name, first[i].ID, second[i].ID)
		}
	}

	err = f.Do(ctx, func(uow storage.UnitOfWork) error {
		all, err := uow.Anime().GetAllGenres(ctx)
		if err != nil {
			return err
		}
		if len(all) != 2 {
			t.Errorf("stored genres = %d, want 2", len(all))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("get all genres: %v", err)
	}
}

func TestAddGenresEmptyInput(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	err := f.Do(ctx, func(uow storage.UnitOfWork) error {
		out, err := uow.Anime().AddGenres(ctx, nil)
		if err != nil {
			return err
		}
		if out == nil || len(out) != 0 {
			t.Errorf("out = %v, want empty non-nil slice", out)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("add genres: %v", err)
	}
}

func TestUpdateMissingAnimeReturnsNotFound(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	err := f.Do(ctx, func(uow storage.UnitOfWork) error {
		_, err := uow.Anime().Update(ctx, testAnime("Ghost"))
		return err
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPaginationGenreFilters(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	seed := []*models.Anime{
		testAnime("Aria", "Comedy"),
		testAnime("Berserk", "Horror"),
		testAnime("Chainsaw Man", "Comedy", "Horror"),
	}
	for _, a := range seed {
		err := f.Do(ctx, func(uow storage.UnitOfWork) error {
			genres, err := uow.Anime().AddGenres(ctx, a.Genres)
			if err != nil {
				return err
			}
			a.Genres = genres
			_, err = uow.Anime().Add(ctx, a)
			return err
		})
		if err != nil {
			t.Fatalf("seed %s: %v", a.NameEn, err)
		}
	}

	genreByName := func(uow storage.UnitOfWork, name string) models.Genre {
		all, err := uow.Anime().GetAllGenres(ctx)
		if err != nil {
			t.Fatalf("get genres: %v", err)
		}
		for _, g := range all {
			if g.Name == name {
				return g
			}
		}
		t.Fatalf("genre %q not stored", name)
		return models.Genre{}
	}

	err := f.Do(ctx, func(uow storage.UnitOfWork) error {
		comedy := genreByName(uow, "Comedy")
		horror := genreByName(uow, "Horror")

		got, err := uow.Anime().GetWithPagination(ctx, []models.Genre{comedy}, []models.Genre{horror}, 0, 10)
		if err != nil {
			return err
		}
		if len(got) != 1 || got[0].NameEn != "Aria" {
			t.Errorf("include Comedy exclude Horror = %v", names(got))
		}

		all, err := uow.Anime().GetWithPagination(ctx, nil, nil, 0, 10)
		if err != nil {
			return err
		}
		want := []string{"Aria", "Berserk", "Chainsaw Man"}
		if gotNames := names(all); !equal(gotNames, want) {
			t.Errorf("unfiltered order = %v, want %v", gotNames, want)
		}

		page, err := uow.Anime().GetWithPagination(ctx, nil, nil, 1, 1)
		if err != nil {
			return err
		}
		if len(page) != 1 || page[0].NameEn != "Berserk" {
			t.Errorf("skip=1 limit=1 = %v", names(page))
		}

		// out-of-range limit falls back to the default page size
		fallback, err := uow.Anime().GetWithPagination(ctx, nil, nil, 0, 1000)
		if err != nil {
			return err
		}
		if len(fallback) != 3 {
			t.Errorf("fallback page = %d items, want 3", len(fallback))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
}

func TestDeleteKeepsSharedReferenceRows(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	a := testAnime("Alpha", "Comedy")
	b := testAnime("Beta", "Comedy")
	for _, x := range []*models.Anime{a, b} {
		err := f.Do(ctx, func(uow storage.UnitOfWork) error {
			genres, err := uow.Anime().AddGenres(ctx, x.Genres)
			if err != nil {
				return err
			}
			x.Genres = genres
			_, err = uow.Anime().Add(ctx, x)
			return err
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	err := f.Do(ctx, func(uow storage.UnitOfWork) error {
		stored, err := uow.Anime().GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		return uow.Anime().Delete(ctx, stored)
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	err = f.Do(ctx, func(uow storage.UnitOfWork) error {
		gone, err := uow.Anime().GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		if gone != nil {
			t.Error("deleted anime still readable")
		}

		genres, err := uow.Anime().GetAllGenres(ctx)
		if err != nil {
			return err
		}
		if len(genres) != 1 || genres[0].Name != "Comedy" {
			t.Errorf("genres after delete = %v, want shared Comedy row", genres)
		}

		kept, err := uow.Anime().GetByID(ctx, b.ID)
		if err != nil {
			return err
		}
		if kept == nil || len(kept.Genres) != 1 {
			t.Errorf("sibling anime lost its genre link: %v", kept)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestDoRollsBackOnError(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	boom := errors.New("boom")
	a := testAnime("Rollback Me")
	err := f.Do(ctx, func(uow storage.UnitOfWork) error {
		if _, err := uow.Anime().Add(ctx, a); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, storage.ErrDatabase) {
		t.Fatalf("err = %v, want wrapped ErrDatabase", err)
	}

	err = f.Do(ctx, func(uow storage.UnitOfWork) error {
		got, err := uow.Anime().GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		if got != nil {
			t.Error("write survived a rolled back scope")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestDomainErrorsPassThroughUnwrapped(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	err := f.Do(ctx, func(uow storage.UnitOfWork) error {
		return storage.ErrNotFound
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if errors.Is(err, storage.ErrDatabase) {
		t.Fatal("domain error was wrapped into ErrDatabase")
	}
}

func names(as []models.Anime) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.NameEn)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
