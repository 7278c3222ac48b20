package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"animehub/internal/anime"
	"animehub/internal/logger"
	"animehub/internal/storage"
	"animehub/internal/storage/sqlite"
	"animehub/pkg/database"
	"animehub/pkg/models"
)

// import-csv seeds the catalog from a CSV produced by export-csv (or
// hand-written in the same column layout). Rows whose English name is
// already taken are skipped, so re-running the import is safe.

func main() {
	in := flag.String("anime", "data/anime.csv", "input CSV path for the catalog")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	svc := anime.NewService(sqlite.NewFactory(db, logger.New(false), false))

	f, err := os.Open(*in)
	if err != nil {
		log.Fatalf("open %s: %v", *in, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		log.Fatalf("read header: %v", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	var created, skipped int
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("read row: %v", err)
		}

		p, err := parseRow(rec, col)
		if err != nil {
			log.Printf("skip malformed row: %v", err)
			skipped++
			continue
		}

		if _, err := svc.Create(ctx, p); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				skipped++
				continue
			}
			log.Fatalf("create %q: %v", p.NameEn, err)
		}
		created++
	}

	log.Printf("imported %d anime, skipped %d", created, skipped)
}

func parseRow(rec []string, col map[string]int) (anime.CreateParams, error) {
	get := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	p := anime.CreateParams{
		NameEn:       get("name_en"),
		NameJp:       get("name_jp"),
		Type:         models.AnimeType(get("type")),
		AiringStatus: models.AiringStatus(get("airing_status")),
		Description:  get("description"),
		Rating:       get("rating"),
		Franchise:    get("franchise"),
		Genres:       splitList(get("genres")),
		Studios:      splitList(get("studios")),
	}
	if p.NameEn == "" {
		return p, errors.New("missing name_en")
	}

	start, err := time.Parse("2006-01-02", get("airing_start"))
	if err != nil {
		return p, err
	}
	p.AiringStart = start

	if s := get("airing_end"); s != "" {
		end, err := time.Parse("2006-01-02", s)
		if err != nil {
			return p, err
		}
		p.AiringEnd = &end
	}
	if s := get("total_episodes"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return p, err
		}
		p.TotalEpisodes = &n
	}
	return p, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
