package user

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"animehub/internal/storage"
	"animehub/pkg/models"
	"animehub/pkg/utils"
)

// Service orchestrates user and watchlist operations inside
// unit-of-work scopes.
type Service struct {
	uow storage.Factory
}

func NewService(uow storage.Factory) *Service {
	return &Service{uow: uow}
}

// Create registers a new user. Returns ErrAlreadyExists if the login
// is taken (the UNIQUE constraint on users.login backs the pre-check
// under races) and ErrHashing if the password cannot be hashed.
func (s *Service) Create(ctx context.Context, login, password string) (*models.User, error) {
	var created *models.User
	err := s.uow.Do(ctx, func(uow storage.UnitOfWork) error {
		existing, err := uow.Users().GetByLogin(ctx, login)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("login %q: %w", login, storage.ErrAlreadyExists)
		}

		hash, err := utils.HashPassword(password)
		if err != nil {
			return err
		}

		created, err = uow.Users().Add(ctx, &models.User{
			ID:       uuid.NewString(),
			Login:    login,
			Password: hash,
			Active:   true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateWatchingEntry appends an entry to the user's watchlist and
// persists the owning user. Entries are compared by anime id: a
// second entry for the same anime fails with ErrAlreadyExists and
// leaves the list unchanged.
func (s *Service) CreateWatchingEntry(ctx context.Context, status models.WatchingStatus, numWatched int, u *models.User, a *models.Anime) (*models.WatchingEntry, error) {
	if u.WatchlistEntryFor(a.ID) != nil {
		return nil, fmt.Errorf("anime %q already on watchlist: %w", a.NameEn, storage.ErrAlreadyExists)
	}

	entry := models.WatchingEntry{
		ID:                 uuid.NewString(),
		Status:             status,
		NumWatchedEpisodes: numWatched,
		AnimeID:            a.ID,
		UserID:             u.ID,
		Anime:              a,
	}
	// stage the change on a fresh slice so a failed persist leaves the
	// caller's user matching the committed state
	original := u.WatchingList
	u.WatchingList = append(append([]models.WatchingEntry(nil), original...), entry)

	err := s.uow.Do(ctx, func(uow storage.UnitOfWork) error {
		updated, err := uow.Users().Update(ctx, u)
		if err != nil {
			return err
		}
		*u = *updated
		return nil
	})
	if err != nil {
		u.WatchingList = original
		return nil, err
	}

	stored := u.WatchlistEntryFor(a.ID)
	if stored == nil {
		return nil, fmt.Errorf("watchlist entry missing after update: %w", storage.ErrDatabase)
	}
	return stored, nil
}

// RemoveWatchlistEntry removes the entry referencing the anime, or
// returns ErrNotFound.
func (s *Service) RemoveWatchlistEntry(ctx context.Context, u *models.User, a *models.Anime) (*models.WatchingEntry, error) {
	found := u.WatchlistEntryFor(a.ID)
	if found == nil {
		return nil, fmt.Errorf("anime %q not on watchlist: %w", a.NameEn, storage.ErrNotFound)
	}
	removed := *found

	original := u.WatchingList
	kept := make([]models.WatchingEntry, 0, len(original)-1)
	for _, e := range original {
		if e.AnimeID != a.ID {
			kept = append(kept, e)
		}
	}
	u.WatchingList = kept

	err := s.uow.Do(ctx, func(uow storage.UnitOfWork) error {
		updated, err := uow.Users().Update(ctx, u)
		if err != nil {
			return err
		}
		*u = *updated
		return nil
	})
	if err != nil {
		u.WatchingList = original
		return nil, err
	}
	return &removed, nil
}

// UpdateWatchlistEntry applies a diff update to the entry with the
// given id, or returns ErrNotFound.
func (s *Service) UpdateWatchlistEntry(ctx context.Context, u *models.User, entryID string, patch models.WatchlistPatch) (*models.WatchingEntry, error) {
	var entry *models.WatchingEntry
	for i := range u.WatchingList {
		if u.WatchingList[i].ID == entryID {
			entry = &u.WatchingList[i]
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("watchlist entry %s: %w", entryID, storage.ErrNotFound)
	}

	before := *entry
	if patch.Status != nil && *patch.Status != entry.Status {
		entry.Status = *patch.Status
	}
	if patch.NumWatchedEpisodes != nil && *patch.NumWatchedEpisodes != entry.NumWatchedEpisodes {
		entry.NumWatchedEpisodes = *patch.NumWatchedEpisodes
	}
	entry.UpdatedAt = time.Now().UTC()

	err := s.uow.Do(ctx, func(uow storage.UnitOfWork) error {
		updated, err := uow.Users().Update(ctx, u)
		if err != nil {
			return err
		}
		*u = *updated
		return nil
	})
	if err != nil {
		*entry = before
		return nil, err
	}

	for i := range u.WatchingList {
		if u.WatchingList[i].ID == entryID {
			return &u.WatchingList[i], nil
		}
	}
	return nil, fmt.Errorf("watchlist entry missing after update: %w", storage.ErrDatabase)
}

// GetByLoginAuth returns the user only when the login exists and the
// password verifies. Unknown login and wrong password are both
// (nil, nil), indistinguishable to the caller.
func (s *Service) GetByLoginAuth(ctx context.Context, login, password string) (*models.User, error) {
	var u *models.User
	err := s.uow.Do(ctx, func(uow storage.UnitOfWork) error {
		stored, err := uow.Users().GetByLogin(ctx, login)
		if err != nil {
			return err
		}
		if stored == nil {
			return nil
		}
		ok, err := utils.VerifyPassword(password, stored.Password)
		if err != nil {
			return err
		}
		if ok {
			u = stored
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByID returns (nil, nil) when the user does not exist.
func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u *models.User
	err := s.uow.Do(ctx, func(uow storage.UnitOfWork) error {
		var err error
		u, err = uow.Users().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}
