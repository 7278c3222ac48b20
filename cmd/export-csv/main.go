package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"animehub/pkg/database"
)

func main() {
	var (
		animeOut     = flag.String("anime", "data/anime.csv", "output CSV path for the catalog")
		watchlistOut = flag.String("watchlist", "data/watchlist.csv", "output CSV path for watchlist entries")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportAnime(ctx, db, *animeOut); err != nil {
		log.Fatalf("export anime failed: %v", err)
	}
	if err := exportWatchlist(ctx, db, *watchlistOut); err != nil {
		log.Fatalf("export watchlist failed: %v", err)
	}

	log.Printf("exported catalog to %s and watchlists to %s", *animeOut, *watchlistOut)
}

func exportAnime(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"id", "name_en", "name_jp", "type", "airing_status", "airing_start",
		"airing_end", "total_episodes", "rating", "genres", "studios", "franchise",
	}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT a.id, a.name_en, a.name_jp, a.type, a.airing_status,
               a.airing_start, a.airing_end, a.total_episodes, a.rating,
               (SELECT GROUP_CONCAT(g.name, ';')
                  FROM genres g JOIN anime_genre ag ON ag.genre_id = g.id
                 WHERE ag.anime_id = a.id),
               (SELECT GROUP_CONCAT(s.name, ';')
                  FROM studios s JOIN anime_studio asu ON asu.studio_id = s.id
                 WHERE asu.anime_id = a.id),
               (SELECT fr.name FROM franchises fr WHERE fr.anime_id = a.id)
        FROM anime a
        ORDER BY a.name_en COLLATE NOCASE
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, nameEn  string
			nameJp      sql.NullString
			typ, status string
			airingStart time.Time
			airingEnd   sql.NullTime
			totalEps    sql.NullInt64
			rating      sql.NullString
			genres      sql.NullString
			studios     sql.NullString
			franchise   sql.NullString
		)

		if err := rows.Scan(&id, &nameEn, &nameJp, &typ, &status, &airingStart,
			&airingEnd, &totalEps, &rating, &genres, &studios, &franchise); err != nil {
			return err
		}

		end := ""
		if airingEnd.Valid {
			end = airingEnd.Time.Format("2006-01-02")
		}
		total := ""
		if totalEps.Valid {
			total = strconv.FormatInt(totalEps.Int64, 10)
		}

		if err := w.Write([]string{
			id,
			nameEn,
			nameJp.String,
			typ,
			status,
			airingStart.Format("2006-01-02"),
			end,
			total,
			rating.String,
			genres.String,
			studios.String,
			franchise.String,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportWatchlist(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"user_id", "anime_id", "status", "num_watched_episodes", "updated_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT user_id, anime_id, status, num_watched_episodes, updated_at
        FROM watching_entry
        ORDER BY updated_at DESC
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID, animeID string
			status          string
			numWatched      int64
			updatedAt       sql.NullTime
		)

		if err := rows.Scan(&userID, &animeID, &status, &numWatched, &updatedAt); err != nil {
			return err
		}

		updated := ""
		if updatedAt.Valid {
			updated = updatedAt.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			userID,
			animeID,
			status,
			strconv.FormatInt(numWatched, 10),
			updated,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
