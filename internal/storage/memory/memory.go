// Package memory provides a map-backed implementation of the storage
// contracts. It exists for tests that exercise service logic without a
// database; writes are visible immediately and there is no rollback.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"animehub/internal/storage"
	"animehub/pkg/models"
)

type Store struct {
	mu         sync.Mutex
	anime      map[string]models.Anime
	users      map[string]models.User
	genres     map[string]models.Genre // keyed by name
	studios    map[string]models.Studio
	franchises map[string]models.Franchise
}

func NewStore() *Store {
	return &Store{
		anime:      make(map[string]models.Anime),
		users:      make(map[string]models.User),
		genres:     make(map[string]models.Genre),
		studios:    make(map[string]models.Studio),
		franchises: make(map[string]models.Franchise),
	}
}

// Do satisfies storage.Factory. fn runs against the shared maps under
// one lock; the commit/rollback distinction does not exist here.
func (s *Store) Do(ctx context.Context, fn func(uow storage.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := fn(&unitOfWork{
		anime: &animeRepo{s: s},
		users: &userRepo{s: s},
	})
	if err == nil {
		return nil
	}
	if storage.IsDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", storage.ErrDatabase, err)
}

type unitOfWork struct {
	anime *animeRepo
	users *userRepo
}

func (u *unitOfWork) Anime() storage.AnimeRepository { return u.anime }
func (u *unitOfWork) Users() storage.UserRepository  { return u.users }

type animeRepo struct {
	s *Store
}

func (r *animeRepo) Add(ctx context.Context, a *models.Anime) (*models.Anime, error) {
	for _, stored := range r.s.anime {
		if stored.NameEn == a.NameEn {
			return nil, fmt.Errorf("anime %q: %w", a.NameEn, storage.ErrAlreadyExists)
		}
	}
	if a.Franchise != nil {
		f, err := r.AddFranchise(ctx, *a.Franchise)
		if err != nil {
			return nil, err
		}
		a.Franchise = f
	}
	r.s.anime[a.ID] = cloneAnime(*a)
	return r.GetByID(ctx, a.ID)
}

func (r *animeRepo) GetByID(ctx context.Context, id string) (*models.Anime, error) {
	a, ok := r.s.anime[id]
	if !ok {
		return nil, nil
	}
	out := cloneAnime(a)
	return &out, nil
}

func (r *animeRepo) GetByName(ctx context.Context, name string) (*models.Anime, error) {
	for id, a := range r.s.anime {
		if a.NameEn == name {
			return r.GetByID(ctx, id)
		}
	}
	return nil, nil
}

func (r *animeRepo) Update(ctx context.Context, a *models.Anime) (*models.Anime, error) {
	if _, ok := r.s.anime[a.ID]; !ok {
		return nil, fmt.Errorf("anime %s: %w", a.ID, storage.ErrNotFound)
	}
	if a.Franchise != nil {
		f, err := r.AddFranchise(ctx, *a.Franchise)
		if err != nil {
			return nil, err
		}
		a.Franchise = f
		r.detachFranchises(a.ID, f.Name)
	} else {
		r.detachFranchises(a.ID, "")
	}
	r.s.anime[a.ID] = cloneAnime(*a)
	return r.GetByID(ctx, a.ID)
}

// detachFranchises clears the anime link from every franchise row
// except keep; the slot is one-to-one.
func (r *animeRepo) detachFranchises(animeID, keep string) {
	for name, f := range r.s.franchises {
		if f.AnimeID == animeID && name != keep {
			f.AnimeID = ""
			r.s.franchises[name] = f
		}
	}
}

func (r *animeRepo) Delete(ctx context.Context, a *models.Anime) error {
	delete(r.s.anime, a.ID)
	return nil
}

func (r *animeRepo) AddGenres(ctx context.Context, genres []models.Genre) ([]models.Genre, error) {
	out := make([]models.Genre, 0, len(genres))
	seen := make(map[string]bool, len(genres))
	for _, g := range genres {
		if seen[g.Name] {
			continue
		}
		seen[g.Name] = true
		stored, ok := r.s.genres[g.Name]
		if !ok {
			if g.ID == "" {
				g.ID = uuid.NewString()
			}
			r.s.genres[g.Name] = g
			stored = g
		}
		out = append(out, stored)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *animeRepo) GetAllGenres(ctx context.Context) ([]models.Genre, error) {
	out := make([]models.Genre, 0, len(r.s.genres))
	for _, g := range r.s.genres {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *animeRepo) AddStudios(ctx context.Context, studios []models.Studio) ([]models.Studio, error) {
	out := make([]models.Studio, 0, len(studios))
	seen := make(map[string]bool, len(studios))
	for _, s := range studios {
		if seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		stored, ok := r.s.studios[s.Name]
		if !ok {
			if s.ID == "" {
				s.ID = uuid.NewString()
			}
			r.s.studios[s.Name] = s
			stored = s
		}
		out = append(out, stored)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *animeRepo) GetAllStudios(ctx context.Context) ([]models.Studio, error) {
	out := make([]models.Studio, 0, len(r.s.studios))
	for _, s := range r.s.studios {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *animeRepo) AddFranchise(ctx context.Context, f models.Franchise) (*models.Franchise, error) {
	stored, ok := r.s.franchises[f.Name]
	if !ok {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		r.s.franchises[f.Name] = f
		stored = f
	}
	return &stored, nil
}

func (r *animeRepo) GetWithPagination(ctx context.Context, includeGenres, excludeGenres []models.Genre, skip, limit int) ([]models.Anime, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if skip < 0 {
		skip = 0
	}

	var all []models.Anime
	for _, a := range r.s.anime {
		if len(includeGenres) > 0 && !hasAny(a.Genres, includeGenres) {
			continue
		}
		if len(excludeGenres) > 0 && hasAny(a.Genres, excludeGenres) {
			continue
		}
		all = append(all, cloneAnime(a))
	}
	sort.Slice(all, func(i, j int) bool {
		return strings.ToLower(all[i].NameEn) < strings.ToLower(all[j].NameEn)
	})

	if skip >= len(all) {
		return []models.Anime{}, nil
	}
	all = all[skip:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func hasAny(have []models.Genre, want []models.Genre) bool {
	for _, w := range want {
		for _, h := range have {
			if h.ID == w.ID {
				return true
			}
		}
	}
	return false
}

type userRepo struct {
	s *Store
}

func (r *userRepo) Add(ctx context.Context, u *models.User) (*models.User, error) {
	for _, stored := range r.s.users {
		if stored.Login == u.Login {
			return nil, fmt.Errorf("login %q: %w", u.Login, storage.ErrAlreadyExists)
		}
	}
	r.s.users[u.ID] = cloneUser(*u)
	return r.GetByID(ctx, u.ID)
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	out := cloneUser(u)
	return &out, nil
}

func (r *userRepo) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	for id, u := range r.s.users {
		if u.Login == login {
			return r.GetByID(ctx, id)
		}
	}
	return nil, nil
}

func (r *userRepo) Update(ctx context.Context, u *models.User) (*models.User, error) {
	if _, ok := r.s.users[u.ID]; !ok {
		return nil, fmt.Errorf("user %s: %w", u.ID, storage.ErrNotFound)
	}
	r.s.users[u.ID] = cloneUser(*u)
	return r.GetByID(ctx, u.ID)
}

func (r *userRepo) Delete(ctx context.Context, u *models.User) error {
	delete(r.s.users, u.ID)
	return nil
}

func cloneAnime(a models.Anime) models.Anime {
	a.Episodes = append([]models.Episode(nil), a.Episodes...)
	a.Genres = append([]models.Genre(nil), a.Genres...)
	a.Studios = append([]models.Studio(nil), a.Studios...)
	if a.Franchise != nil {
		f := *a.Franchise
		a.Franchise = &f
	}
	return a
}

func cloneUser(u models.User) models.User {
	u.WatchingList = append([]models.WatchingEntry(nil), u.WatchingList...)
	for i := range u.WatchingList {
		if u.WatchingList[i].Anime != nil {
			a := cloneAnime(*u.WatchingList[i].Anime)
			u.WatchingList[i].Anime = &a
		}
	}
	return u
}
