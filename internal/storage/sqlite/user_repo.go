package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"animehub/internal/storage"
	"animehub/pkg/models"
)

type UserRepo struct {
	q querier
}

func NewUserRepo(q querier) *UserRepo {
	return &UserRepo{q: q}
}

func (r *UserRepo) Add(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, login, password, active, admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Login, u.Password, u.Active, u.Admin, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if mapped := mapUniqueErr(err); mapped == storage.ErrAlreadyExists {
			return nil, fmt.Errorf("insert user %q: %w", u.Login, mapped)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if err := r.insertEntries(ctx, u); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, u.ID)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, login, password, active, admin, created_at, updated_at
		FROM users
		WHERE id = ?
	`, id)
	return r.scanUser(ctx, row)
}

func (r *UserRepo) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, login, password, active, admin, created_at, updated_at
		FROM users
		WHERE login = ?
	`, login)
	return r.scanUser(ctx, row)
}

func (r *UserRepo) Update(ctx context.Context, u *models.User) (*models.User, error) {
	var one int
	if err := r.q.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, u.ID).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("update user %s: %w", u.ID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("update user lookup: %w", err)
	}

	u.UpdatedAt = time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET login = ?, password = ?, active = ?, admin = ?, updated_at = ?
		WHERE id = ?
	`, u.Login, u.Password, u.Active, u.Admin, u.UpdatedAt, u.ID)
	if err != nil {
		if mapped := mapUniqueErr(err); mapped == storage.ErrAlreadyExists {
			return nil, fmt.Errorf("update user %q: %w", u.Login, mapped)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	// the watchlist is owned by the user row: replace it wholesale so
	// additions, removals and in-place edits all persist the same way
	if _, err := r.q.ExecContext(ctx, `DELETE FROM watching_entry WHERE user_id = ?`, u.ID); err != nil {
		return nil, fmt.Errorf("clear watchlist: %w", err)
	}
	if err := r.insertEntries(ctx, u); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, u.ID)
}

func (r *UserRepo) Delete(ctx context.Context, u *models.User) error {
	// watching_entry rows go via ON DELETE CASCADE
	if _, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, u.ID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (r *UserRepo) insertEntries(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	for i := range u.WatchingList {
		e := &u.WatchingList[i]
		e.UserID = u.ID
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.UpdatedAt = now
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO watching_entry (id, status, num_watched_episodes, anime_id, user_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, e.ID, string(e.Status), e.NumWatchedEpisodes, e.AnimeID, u.ID, e.CreatedAt, e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert watching entry: %w", err)
		}
	}
	return nil
}

func (r *UserRepo) scanUser(ctx context.Context, row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Login, &u.Password, &u.Active, &u.Admin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if err := r.loadWatchlist(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// loadWatchlist attaches the user's entries with a scalar snapshot of
// each referenced anime. Episode/genre/studio collections are not
// loaded through the watchlist.
func (r *UserRepo) loadWatchlist(ctx context.Context, u *models.User) error {
	rows, err := r.q.QueryContext(ctx, `
		SELECT w.id, w.status, w.num_watched_episodes, w.anime_id, w.created_at, w.updated_at,
		       a.id, a.name_en, a.name_jp, a.type, a.airing_status, a.airing_start, a.airing_end,
		       a.total_episodes, a.description, a.rating
		FROM watching_entry w
		JOIN anime a ON a.id = w.anime_id
		WHERE w.user_id = ?
		ORDER BY w.created_at ASC, a.name_en COLLATE NOCASE ASC
	`, u.ID)
	if err != nil {
		return fmt.Errorf("load watchlist: %w", err)
	}
	defer rows.Close()

	u.WatchingList = []models.WatchingEntry{}
	for rows.Next() {
		var (
			e       models.WatchingEntry
			status  string
			a       models.Anime
			nameJp  sql.NullString
			typ     string
			airStat string
			airEnd  sql.NullTime
			total   sql.NullInt64
			desc    sql.NullString
			rating  sql.NullString
		)
		err := rows.Scan(&e.ID, &status, &e.NumWatchedEpisodes, &e.AnimeID, &e.CreatedAt, &e.UpdatedAt,
			&a.ID, &a.NameEn, &nameJp, &typ, &airStat, &a.AiringStart, &airEnd, &total, &desc, &rating)
		if err != nil {
			return fmt.Errorf("scan watchlist row: %w", err)
		}
		e.Status = models.WatchingStatus(status)
		e.UserID = u.ID
		a.NameJp = nameJp.String
		a.Type = models.AnimeType(typ)
		a.AiringStatus = models.AiringStatus(airStat)
		if airEnd.Valid {
			t := airEnd.Time
			a.AiringEnd = &t
		}
		if total.Valid {
			n := int(total.Int64)
			a.TotalEpisodes = &n
		}
		a.Description = desc.String
		a.Rating = rating.String
		e.Anime = &a
		u.WatchingList = append(u.WatchingList, e)
	}
	return rows.Err()
}
