package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"animehub/internal/storage"
	"animehub/pkg/models"
)

func TestUserRoundTripWithWatchlist(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	a := testAnime("Trigun")
	u := &models.User{
		ID:       uuid.NewString(),
		Login:    "vash",
		Password: "$2a$10$hash",
		Active:   true,
	}

	err := f.Do(ctx, func(uow storage.UnitOfWork) error {
		if _, err := uow.Anime().Add(ctx, a); err != nil {
			return err
		}
		u.WatchingList = []models.WatchingEntry{{
			ID:                 uuid.NewString(),
			Status:             models.WatchingStatusWatching,
			NumWatchedEpisodes: 3,
			AnimeID:            a.ID,
		}}
		_, err := uow.Users().Add(ctx, u)
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = f.Do(ctx, func(uow storage.UnitOfWork) error {
		got, err := uow.Users().GetByLogin(ctx, "vash")
		if err != nil {
			return err
		}
		if got == nil {
			t.Fatal("user not found after commit")
		}
		if !got.Active || got.Admin {
			t.Errorf("flags = active:%v admin:%v", got.Active, got.Admin)
		}
		if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
			t.Error("timestamps not set on insert")
		}
		if len(got.WatchingList) != 1 {
			t.Fatalf("watchlist = %d entries, want 1", len(got.WatchingList))
		}
		e := got.WatchingList[0]
		if e.Status != models.WatchingStatusWatching || e.NumWatchedEpisodes != 3 {
			t.Errorf("entry = %+v", e)
		}
		if e.Anime == nil || e.Anime.NameEn != "Trigun" {
			t.Errorf("entry anime snapshot = %v", e.Anime)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
}

func TestUserDuplicateLoginMapsToAlreadyExists(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	add := func() error {
		return f.Do(ctx, func(uow storage.UnitOfWork) error {
			_, err := uow.Users().Add(ctx, &models.User{
				ID:       uuid.NewString(),
				Login:    "dupe",
				Password: "x",
				Active:   true,
			})
			return err
		})
	}

	if err := add(); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := add(); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("second add err = %v, want ErrAlreadyExists", err)
	}
}

func TestUserUpdateReplacesWatchlist(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	a := testAnime("Akira")
	b := testAnime("Paprika")
	u := &models.User{ID: uuid.NewString(), Login: "kaneda", Password: "x", Active: true}

	err := f.Do(ctx, func(uow storage.UnitOfWork) error {
		if _, err := uow.Anime().Add(ctx, a); err != nil {
			return err
		}
		if _, err := uow.Anime().Add(ctx, b); err != nil {
			return err
		}
		u.WatchingList = []models.WatchingEntry{{
			ID:      uuid.NewString(),
			Status:  models.WatchingStatusPlanning,
			AnimeID: a.ID,
		}}
		stored, err := uow.Users().Add(ctx, u)
		if err != nil {
			return err
		}
		*u = *stored
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// swap the whole list for a single entry on the other anime
	u.WatchingList = []models.WatchingEntry{{
		ID:                 uuid.NewString(),
		Status:             models.WatchingStatusCompleted,
		NumWatchedEpisodes: 1,
		AnimeID:            b.ID,
	}}
	err = f.Do(ctx, func(uow storage.UnitOfWork) error {
		stored, err := uow.Users().Update(ctx, u)
		if err != nil {
			return err
		}
		if len(stored.WatchingList) != 1 {
			t.Fatalf("watchlist = %d entries, want 1", len(stored.WatchingList))
		}
		if stored.WatchingList[0].AnimeID != b.ID {
			t.Errorf("entry anime = %q, want %q", stored.WatchingList[0].AnimeID, b.ID)
		}
		if stored.WatchingList[0].Status != models.WatchingStatusCompleted {
			t.Errorf("status = %q", stored.WatchingList[0].Status)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestUserUpdateMissingReturnsNotFound(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	err := f.Do(ctx, func(uow storage.UnitOfWork) error {
		_, err := uow.Users().Update(ctx, &models.User{ID: uuid.NewString(), Login: "ghost"})
		return err
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUserGetMissingReturnsNilNil(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	err := f.Do(ctx, func(uow storage.UnitOfWork) error {
		u, err := uow.Users().GetByLogin(ctx, "nobody")
		if err != nil {
			return err
		}
		if u != nil {
			t.Errorf("u = %v, want nil", u)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
}
