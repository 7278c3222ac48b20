package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"animehub/internal/storage"
	"animehub/pkg/models"
)

type AnimeRepo struct {
	q querier
}

func NewAnimeRepo(q querier) *AnimeRepo {
	return &AnimeRepo{q: q}
}

func (r *AnimeRepo) Add(ctx context.Context, a *models.Anime) (*models.Anime, error) {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO anime (id, name_en, name_jp, type, airing_status, airing_start, airing_end, total_episodes, description, rating)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.NameEn, nullStr(a.NameJp), string(a.Type), string(a.AiringStatus),
		a.AiringStart, nullTime(a.AiringEnd), nullInt(a.TotalEpisodes), nullStr(a.Description), nullStr(a.Rating))
	if err != nil {
		if mapped := mapUniqueErr(err); mapped == storage.ErrAlreadyExists {
			return nil, fmt.Errorf("insert anime %q: %w", a.NameEn, mapped)
		}
		return nil, fmt.Errorf("insert anime: %w", err)
	}

	if err := r.insertEpisodes(ctx, a.ID, a.Episodes); err != nil {
		return nil, err
	}
	if err := r.replaceAssociations(ctx, a); err != nil {
		return nil, err
	}
	if a.Franchise != nil {
		f := *a.Franchise
		f.AnimeID = a.ID
		stored, err := r.AddFranchise(ctx, f)
		if err != nil {
			return nil, err
		}
		a.Franchise = stored
	}

	// read back within the same transaction so generated/defaulted
	// fields are populated, mirroring a flush+refresh
	return r.GetByID(ctx, a.ID)
}

func (r *AnimeRepo) GetByID(ctx context.Context, id string) (*models.Anime, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, name_en, name_jp, type, airing_status, airing_start, airing_end, total_episodes, description, rating
		FROM anime
		WHERE id = ?
	`, id)
	return r.scanAnime(ctx, row)
}

func (r *AnimeRepo) GetByName(ctx context.Context, name string) (*models.Anime, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, name_en, name_jp, type, airing_status, airing_start, airing_end, total_episodes, description, rating
		FROM anime
		WHERE name_en = ?
	`, name)
	return r.scanAnime(ctx, row)
}

func (r *AnimeRepo) Update(ctx context.Context, a *models.Anime) (*models.Anime, error) {
	var one int
	if err := r.q.QueryRowContext(ctx, `SELECT 1 FROM anime WHERE id = ?`, a.ID).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("update anime %s: %w", a.ID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("update anime lookup: %w", err)
	}

	_, err := r.q.ExecContext(ctx, `
		UPDATE anime
		SET name_en = ?, name_jp = ?, type = ?, airing_status = ?, airing_start = ?,
		    airing_end = ?, total_episodes = ?, description = ?, rating = ?
		WHERE id = ?
	`, a.NameEn, nullStr(a.NameJp), string(a.Type), string(a.AiringStatus), a.AiringStart,
		nullTime(a.AiringEnd), nullInt(a.TotalEpisodes), nullStr(a.Description), nullStr(a.Rating), a.ID)
	if err != nil {
		if mapped := mapUniqueErr(err); mapped == storage.ErrAlreadyExists {
			return nil, fmt.Errorf("update anime %q: %w", a.NameEn, mapped)
		}
		return nil, fmt.Errorf("update anime: %w", err)
	}

	// episodes are owned: wholesale replace, never merge
	if _, err := r.q.ExecContext(ctx, `DELETE FROM episodes WHERE anime_id = ?`, a.ID); err != nil {
		return nil, fmt.Errorf("clear episodes: %w", err)
	}
	if err := r.insertEpisodes(ctx, a.ID, a.Episodes); err != nil {
		return nil, err
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM anime_genre WHERE anime_id = ?`, a.ID); err != nil {
		return nil, fmt.Errorf("clear genre links: %w", err)
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM anime_studio WHERE anime_id = ?`, a.ID); err != nil {
		return nil, fmt.Errorf("clear studio links: %w", err)
	}
	if err := r.replaceAssociations(ctx, a); err != nil {
		return nil, err
	}

	if a.Franchise == nil {
		if _, err := r.q.ExecContext(ctx, `UPDATE franchises SET anime_id = NULL WHERE anime_id = ?`, a.ID); err != nil {
			return nil, fmt.Errorf("clear franchise link: %w", err)
		}
	} else {
		// the franchise slot is one-to-one: detach any other row still
		// pointing at this anime before attaching the replacement
		if _, err := r.q.ExecContext(ctx, `UPDATE franchises SET anime_id = NULL WHERE anime_id = ? AND name <> ?`, a.ID, a.Franchise.Name); err != nil {
			return nil, fmt.Errorf("detach franchise: %w", err)
		}
		f := *a.Franchise
		f.AnimeID = a.ID
		stored, err := r.AddFranchise(ctx, f)
		if err != nil {
			return nil, err
		}
		a.Franchise = stored
	}

	return r.GetByID(ctx, a.ID)
}

func (r *AnimeRepo) Delete(ctx context.Context, a *models.Anime) error {
	// episodes and association rows go via ON DELETE CASCADE; shared
	// genre/studio/franchise rows stay
	if _, err := r.q.ExecContext(ctx, `DELETE FROM anime WHERE id = ?`, a.ID); err != nil {
		return fmt.Errorf("delete anime: %w", err)
	}
	return nil
}

func (r *AnimeRepo) AddGenres(ctx context.Context, genres []models.Genre) ([]models.Genre, error) {
	if len(genres) == 0 {
		return []models.Genre{}, nil
	}

	for _, g := range genres {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO genres (id, name) VALUES (?, ?)
			ON CONFLICT(name) DO NOTHING
		`, g.ID, g.Name)
		if err != nil {
			return nil, fmt.Errorf("insert genre %q: %w", g.Name, err)
		}
	}

	names := make([]any, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name FROM genres WHERE name IN (`+placeholders(len(names))+`) ORDER BY name
	`, names...)
	if err != nil {
		return nil, fmt.Errorf("select genres: %w", err)
	}
	defer rows.Close()

	out := make([]models.Genre, 0, len(genres))
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *AnimeRepo) GetAllGenres(ctx context.Context) ([]models.Genre, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name FROM genres ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select all genres: %w", err)
	}
	defer rows.Close()

	var out []models.Genre
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *AnimeRepo) AddStudios(ctx context.Context, studios []models.Studio) ([]models.Studio, error) {
	if len(studios) == 0 {
		return []models.Studio{}, nil
	}

	for _, s := range studios {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO studios (id, name) VALUES (?, ?)
			ON CONFLICT(name) DO NOTHING
		`, s.ID, s.Name)
		if err != nil {
			return nil, fmt.Errorf("insert studio %q: %w", s.Name, err)
		}
	}

	names := make([]any, 0, len(studios))
	for _, s := range studios {
		names = append(names, s.Name)
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name FROM studios WHERE name IN (`+placeholders(len(names))+`) ORDER BY name
	`, names...)
	if err != nil {
		return nil, fmt.Errorf("select studios: %w", err)
	}
	defer rows.Close()

	out := make([]models.Studio, 0, len(studios))
	for rows.Next() {
		var s models.Studio
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("scan studio: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *AnimeRepo) GetAllStudios(ctx context.Context) ([]models.Studio, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name FROM studios ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select all studios: %w", err)
	}
	defer rows.Close()

	var out []models.Studio
	for rows.Next() {
		var s models.Studio
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("scan studio: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *AnimeRepo) AddFranchise(ctx context.Context, f models.Franchise) (*models.Franchise, error) {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO franchises (id, name, anime_id) VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, f.ID, f.Name, nullStr(f.AnimeID))
	if err != nil {
		return nil, fmt.Errorf("insert franchise %q: %w", f.Name, err)
	}

	var stored models.Franchise
	var animeID sql.NullString
	err = r.q.QueryRowContext(ctx, `SELECT id, name, anime_id FROM franchises WHERE name = ?`, f.Name).
		Scan(&stored.ID, &stored.Name, &animeID)
	if err != nil {
		return nil, fmt.Errorf("select franchise %q: %w", f.Name, err)
	}
	stored.AnimeID = animeID.String
	return &stored, nil
}

func (r *AnimeRepo) GetWithPagination(ctx context.Context, includeGenres, excludeGenres []models.Genre, skip, limit int) ([]models.Anime, error) {
	sqlStr := `
		SELECT id, name_en, name_jp, type, airing_status, airing_start, airing_end, total_episodes, description, rating
		FROM anime
	`
	var where []string
	var args []any

	if len(includeGenres) > 0 {
		where = append(where, `EXISTS (
			SELECT 1 FROM anime_genre ag JOIN genres g ON g.id = ag.genre_id
			WHERE ag.anime_id = anime.id AND g.name IN (`+placeholders(len(includeGenres))+`))`)
		for _, g := range includeGenres {
			args = append(args, g.Name)
		}
	}
	if len(excludeGenres) > 0 {
		where = append(where, `NOT EXISTS (
			SELECT 1 FROM anime_genre ag JOIN genres g ON g.id = ag.genre_id
			WHERE ag.anime_id = anime.id AND g.name IN (`+placeholders(len(excludeGenres))+`))`)
		for _, g := range excludeGenres {
			args = append(args, g.Name)
		}
	}

	if len(where) > 0 {
		sqlStr += " WHERE " + where[0]
		for _, w := range where[1:] {
			sqlStr += " AND " + w
		}
	}

	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if skip < 0 {
		skip = 0
	}
	sqlStr += ` ORDER BY name_en COLLATE NOCASE ASC LIMIT ? OFFSET ?`
	args = append(args, limit, skip)

	rows, err := r.q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("paginate anime: %w", err)
	}
	defer rows.Close()

	out := make([]models.Anime, 0, limit)
	for rows.Next() {
		a, err := scanAnimeColumns(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	for i := range out {
		if err := r.loadCollections(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *AnimeRepo) insertEpisodes(ctx context.Context, animeID string, episodes []models.Episode) error {
	for i := range episodes {
		e := &episodes[i]
		e.AnimeID = animeID
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO episodes (id, name, aired_date, anime_id) VALUES (?, ?, ?, ?)
		`, e.ID, e.Name, nullTime(e.AiredDate), animeID)
		if err != nil {
			return fmt.Errorf("insert episode %q: %w", e.Name, err)
		}
	}
	return nil
}

func (r *AnimeRepo) replaceAssociations(ctx context.Context, a *models.Anime) error {
	for _, g := range a.Genres {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO anime_genre (anime_id, genre_id) VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, a.ID, g.ID)
		if err != nil {
			return fmt.Errorf("link genre %q: %w", g.Name, err)
		}
	}
	for _, s := range a.Studios {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO anime_studio (anime_id, studio_id) VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, a.ID, s.ID)
		if err != nil {
			return fmt.Errorf("link studio %q: %w", s.Name, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnimeColumns(row rowScanner) (*models.Anime, error) {
	var (
		a       models.Anime
		nameJp  sql.NullString
		airEnd  sql.NullTime
		total   sql.NullInt64
		desc    sql.NullString
		rating  sql.NullString
		typ     string
		airStat string
	)
	if err := row.Scan(&a.ID, &a.NameEn, &nameJp, &typ, &airStat, &a.AiringStart, &airEnd, &total, &desc, &rating); err != nil {
		return nil, err
	}
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
	return &a, nil
}

func (r *AnimeRepo) scanAnime(ctx context.Context, row *sql.Row) (*models.Anime, error) {
	a, err := scanAnimeColumns(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan anime: %w", err)
	}
	if err := r.loadCollections(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AnimeRepo) loadCollections(ctx context.Context, a *models.Anime) error {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, aired_date FROM episodes
		WHERE anime_id = ?
		ORDER BY aired_date ASC, name ASC
	`, a.ID)
	if err != nil {
		return fmt.Errorf("load episodes: %w", err)
	}
	a.Episodes = []models.Episode{}
	for rows.Next() {
		var e models.Episode
		var aired sql.NullTime
		if err := rows.Scan(&e.ID, &e.Name, &aired); err != nil {
			rows.Close()
			return fmt.Errorf("scan episode: %w", err)
		}
		if aired.Valid {
			t := aired.Time
			e.AiredDate = &t
		}
		e.AnimeID = a.ID
		a.Episodes = append(a.Episodes, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("episode rows: %w", err)
	}

	rows, err = r.q.QueryContext(ctx, `
		SELECT g.id, g.name FROM genres g
		JOIN anime_genre ag ON ag.genre_id = g.id
		WHERE ag.anime_id = ?
		ORDER BY g.name
	`, a.ID)
	if err != nil {
		return fmt.Errorf("load genres: %w", err)
	}
	a.Genres = []models.Genre{}
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			rows.Close()
			return fmt.Errorf("scan genre: %w", err)
		}
		a.Genres = append(a.Genres, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("genre rows: %w", err)
	}

	rows, err = r.q.QueryContext(ctx, `
		SELECT s.id, s.name FROM studios s
		JOIN anime_studio ast ON ast.studio_id = s.id
		WHERE ast.anime_id = ?
		ORDER BY s.name
	`, a.ID)
	if err != nil {
		return fmt.Errorf("load studios: %w", err)
	}
	a.Studios = []models.Studio{}
	for rows.Next() {
		var s models.Studio
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			rows.Close()
			return fmt.Errorf("scan studio: %w", err)
		}
		a.Studios = append(a.Studios, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("studio rows: %w", err)
	}

	var f models.Franchise
	var animeID sql.NullString
	err = r.q.QueryRowContext(ctx, `SELECT id, name, anime_id FROM franchises WHERE anime_id = ?`, a.ID).
		Scan(&f.ID, &f.Name, &animeID)
	switch {
	case err == sql.ErrNoRows:
		a.Franchise = nil
	case err != nil:
		return fmt.Errorf("load franchise: %w", err)
	default:
		f.AnimeID = animeID.String
		a.Franchise = &f
	}
	return nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}
