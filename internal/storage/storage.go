package storage

import (
	"context"

	"animehub/pkg/models"
)

// AnimeRepository is the storage contract for the anime catalog and
// its shared reference entities. Implementations operate inside an
// externally supplied transactional scope; a flush after each write
// makes rows visible to later reads in the same scope without ending
// the transaction.
type AnimeRepository interface {
	// Add persists the anime with its owned episodes and its
	// genre/studio/franchise associations as one unit.
	Add(ctx context.Context, a *models.Anime) (*models.Anime, error)

	// GetByID returns (nil, nil) when no row exists.
	GetByID(ctx context.Context, id string) (*models.Anime, error)

	// GetByName matches the English name exactly. (nil, nil) if absent.
	GetByName(ctx context.Context, name string) (*models.Anime, error)

	// Update persists in-place changes, replacing the episode
	// collection and the genre/studio/franchise associations. Returns
	// ErrNotFound if no row with that id exists.
	Update(ctx context.Context, a *models.Anime) (*models.Anime, error)

	// Delete removes the anime and cascades to its episodes.
	// Association rows are cleared but shared genre/studio/franchise
	// rows stay, since other anime may reference them.
	Delete(ctx context.Context, a *models.Anime) error

	// AddGenres is an idempotent get-or-create-many: genres absent by
	// name are inserted, existing ones are left alone, and the full
	// persisted set matching the input names is returned. Empty input
	// returns an empty result without touching the database.
	AddGenres(ctx context.Context, genres []models.Genre) ([]models.Genre, error)
	GetAllGenres(ctx context.Context) ([]models.Genre, error)

	// AddStudios is symmetric to AddGenres.
	AddStudios(ctx context.Context, studios []models.Studio) ([]models.Studio, error)
	GetAllStudios(ctx context.Context) ([]models.Studio, error)

	// AddFranchise gets-or-creates by name and always returns exactly
	// one franchise, existing or newly inserted.
	AddFranchise(ctx context.Context, f models.Franchise) (*models.Franchise, error)

	// GetWithPagination returns anime sorted by case-insensitive
	// English name. includeGenres keeps only anime with at least one
	// matching genre; excludeGenres then removes anime with any
	// matching genre. Nil/empty filters are skipped.
	GetWithPagination(ctx context.Context, includeGenres, excludeGenres []models.Genre, skip, limit int) ([]models.Anime, error)
}

// UserRepository is the storage contract for users and their owned
// watchlists.
type UserRepository interface {
	Add(ctx context.Context, u *models.User) (*models.User, error)

	// GetByID returns (nil, nil) when no row exists.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByLogin matches the login exactly. (nil, nil) if absent.
	GetByLogin(ctx context.Context, login string) (*models.User, error)

	// Update persists scalar changes and wholesale-replaces the
	// watching_entry child rows from u.WatchingList. Returns
	// ErrNotFound if no row with that id exists.
	Update(ctx context.Context, u *models.User) (*models.User, error)

	Delete(ctx context.Context, u *models.User) error
}

// UnitOfWork binds one transactional session to one anime repository
// and one user repository; operations across both participate in the
// same transaction.
type UnitOfWork interface {
	Anime() AnimeRepository
	Users() UserRepository
}

// Factory opens unit-of-work scopes. Do begins a transaction, hands a
// UnitOfWork to fn, commits when fn returns nil and rolls back
// otherwise. Domain errors pass through unchanged; anything else
// surfaces as ErrDatabase. The transaction is released on every exit
// path, including panics and context cancellation.
type Factory interface {
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error
}
