package anime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"animehub/internal/storage"
	"animehub/pkg/models"
)

// CreateParams carries the caller-supplied fields of a new anime.
// Genre, studio and franchise names are reconciled against the shared
// reference tables, so repeated names never produce duplicate rows.
type CreateParams struct {
	// ID is optional; callers may supply one for idempotent retries.
	ID            string
	NameEn        string
	NameJp        string
	Type          models.AnimeType
	AiringStatus  models.AiringStatus
	AiringStart   time.Time
	AiringEnd     *time.Time
	TotalEpisodes *int
	Description   string
	Rating        string
	Episodes      []models.EpisodeParam
	Genres        []string
	Studios       []string
	Franchise     string
}

// Service orchestrates catalog operations. Each method runs inside
// exactly one unit-of-work scope, so multi-entity writes are atomic.
type Service struct {
	uow storage.Factory
}

func NewService(uow storage.Factory) *Service {
	return &Service{uow: uow}
}

// Create persists a new anime with its episodes, genres, studios and
// franchise as one unit. Returns ErrAlreadyExists if the English name
// is taken; the pre-check is an early exit, the UNIQUE constraint on
// name_en is the authoritative guard if two creates race.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.Anime, error) {
	var created *models.Anime
	err := s.uow.Do(ctx, func(uow storage.UnitOfWork) error {
		existing, err := uow.Anime().GetByName(ctx, p.NameEn)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("anime %q: %w", p.NameEn, storage.ErrAlreadyExists)
		}

		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}

		genres, err := uow.Anime().AddGenres(ctx, newGenres(p.Genres))
		if err != nil {
			return err
		}
		studios, err := uow.Anime().AddStudios(ctx, newStudios(p.Studios))
		if err != nil {
			return err
		}

		a := &models.Anime{
			ID:            id,
			NameEn:        p.NameEn,
			NameJp:        p.NameJp,
			Type:          p.Type,
			AiringStatus:  p.AiringStatus,
			AiringStart:   p.AiringStart,
			AiringEnd:     p.AiringEnd,
			TotalEpisodes: p.TotalEpisodes,
			Description:   p.Description,
			Rating:        p.Rating,
			Episodes:      newEpisodes(id, p.Episodes),
			Genres:        genres,
			Studios:       studios,
		}
		if p.Franchise != "" {
			a.Franchise = &models.Franchise{ID: uuid.NewString(), Name: p.Franchise, AnimeID: id}
		}

		created, err = uow.Anime().Add(ctx, a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID returns (nil, nil) when the anime does not exist.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Anime, error) {
	var a *models.Anime
	err := s.uow.Do(ctx, func(uow storage.UnitOfWork) error {
		var err error
		a, err = uow.Anime().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByName returns (nil, nil) when no anime has that English name.
func (s *Service) GetByName(ctx context.Context, name string) (*models.Anime, error) {
	var a *models.Anime
	err := s.uow.Do(ctx, func(uow storage.UnitOfWork) error {
		var err error
		a, err = uow.Anime().GetByName(ctx, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Update applies patch to the anime with the given id, or returns
// ErrNotFound. Scalar fields change only where the patch value
// differs from the stored one. Collection fields are tri-state: a nil
// pointer leaves the collection untouched, an empty slice clears it,
// a non-empty slice wholesale-replaces it (episodes get fresh ids;
// genres, studios and the franchise are reconciled by name).
func (s *Service) Update(ctx context.Context, id string, patch models.AnimePatch) (*models.Anime, error) {
	var updated *models.Anime
	err := s.uow.Do(ctx, func(uow storage.UnitOfWork) error {
		a, err := uow.Anime().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if a == nil {
			return fmt.Errorf("anime %s: %w", id, storage.ErrNotFound)
		}

		applyScalars(a, patch)

		if patch.Episodes != nil {
			a.Episodes = newEpisodes(a.ID, *patch.Episodes)
		}
		if patch.Genres != nil {
			a.Genres, err = uow.Anime().AddGenres(ctx, newGenres(*patch.Genres))
			if err != nil {
				return err
			}
		}
		if patch.Studios != nil {
			a.Studios, err = uow.Anime().AddStudios(ctx, newStudios(*patch.Studios))
			if err != nil {
				return err
			}
		}
		if patch.Franchise != nil {
			if *patch.Franchise == "" {
				a.Franchise = nil
			} else {
				a.Franchise, err = uow.Anime().AddFranchise(ctx, models.Franchise{
					ID:      uuid.NewString(),
					Name:    *patch.Franchise,
					AnimeID: a.ID,
				})
				if err != nil {
					return err
				}
			}
		}

		updated, err = uow.Anime().Update(ctx, a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetWithPagination resolves genre names against the genre table and
// returns the filtered, sorted page. Names that match no stored genre
// are silently dropped from the filter.
func (s *Service) GetWithPagination(ctx context.Context, includeGenres, excludeGenres []string, skip, limit int) ([]models.Anime, error) {
	var out []models.Anime
	err := s.uow.Do(ctx, func(uow storage.UnitOfWork) error {
		all, err := uow.Anime().GetAllGenres(ctx)
		if err != nil {
			return err
		}
		byName := make(map[string]models.Genre, len(all))
		for _, g := range all {
			byName[g.Name] = g
		}

		resolve := func(names []string) []models.Genre {
			var gs []models.Genre
			for _, n := range names {
				if g, ok := byName[n]; ok {
					gs = append(gs, g)
				}
			}
			return gs
		}

		out, err = uow.Anime().GetWithPagination(ctx, resolve(includeGenres), resolve(excludeGenres), skip, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Genres lists all stored genres.
func (s *Service) Genres(ctx context.Context) ([]models.Genre, error) {
	var out []models.Genre
	err := s.uow.Do(ctx, func(uow storage.UnitOfWork) error {
		var err error
		out, err = uow.Anime().GetAllGenres(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Studios lists all stored studios.
func (s *Service) Studios(ctx context.Context) ([]models.Studio, error) {
	var out []models.Studio
	err := s.uow.Do(ctx, func(uow storage.UnitOfWork) error {
		var err error
		out, err = uow.Anime().GetAllStudios(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an anime and its owned episodes. Shared reference
// rows stay.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.uow.Do(ctx, func(uow storage.UnitOfWork) error {
		a, err := uow.Anime().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if a == nil {
			return fmt.Errorf("anime %s: %w", id, storage.ErrNotFound)
		}
		return uow.Anime().Delete(ctx, a)
	})
}

func applyScalars(a *models.Anime, p models.AnimePatch) {
	if p.NameEn != nil && *p.NameEn != a.NameEn {
		a.NameEn = *p.NameEn
	}
	if p.NameJp != nil && *p.NameJp != a.NameJp {
		a.NameJp = *p.NameJp
	}
	if p.Type != nil && *p.Type != a.Type {
		a.Type = *p.Type
	}
	if p.AiringStatus != nil && *p.AiringStatus != a.AiringStatus {
		a.AiringStatus = *p.AiringStatus
	}
	if p.AiringStart != nil && !p.AiringStart.Equal(a.AiringStart) {
		a.AiringStart = *p.AiringStart
	}
	if p.AiringEnd != nil {
		a.AiringEnd = p.AiringEnd
	}
	if p.TotalEpisodes != nil {
		a.TotalEpisodes = p.TotalEpisodes
	}
	if p.Description != nil && *p.Description != a.Description {
		a.Description = *p.Description
	}
	if p.Rating != nil && *p.Rating != a.Rating {
		a.Rating = *p.Rating
	}
}

func newEpisodes(animeID string, params []models.EpisodeParam) []models.Episode {
	eps := make([]models.Episode, 0, len(params))
	for _, p := range params {
		eps = append(eps, models.Episode{
			ID:        uuid.NewString(),
			Name:      p.Name,
			AiredDate: p.AiredDate,
			AnimeID:   animeID,
		})
	}
	return eps
}

func newGenres(names []string) []models.Genre {
	gs := make([]models.Genre, 0, len(names))
	for _, n := range names {
		gs = append(gs, models.Genre{ID: uuid.NewString(), Name: n})
	}
	return gs
}

func newStudios(names []string) []models.Studio {
	ss := make([]models.Studio, 0, len(names))
	for _, n := range names {
		ss = append(ss, models.Studio{ID: uuid.NewString(), Name: n})
	}
	return ss
}
