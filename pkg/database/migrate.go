package database

import (
	"database/sql"
	"fmt"
)

// Uniqueness is enforced here, not only in service pre-checks: the
// UNIQUE constraints on anime.name_en, genres.name, studios.name,
// franchises.name and users.login are the authoritative guard against
// concurrent duplicate creates.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    login TEXT UNIQUE NOT NULL,
    password TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    admin INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS anime (
    id TEXT PRIMARY KEY,
    name_en TEXT UNIQUE NOT NULL,
    name_jp TEXT,
    type TEXT NOT NULL,
    airing_status TEXT NOT NULL,
    airing_start DATE NOT NULL,
    airing_end DATE,
    total_episodes INTEGER,
    description TEXT,
    rating TEXT
);

CREATE TABLE IF NOT EXISTS episodes (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    aired_date DATE,
    anime_id TEXT NOT NULL,
    FOREIGN KEY (anime_id) REFERENCES anime(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS genres (
    id TEXT PRIMARY KEY,
    name TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS studios (
    id TEXT PRIMARY KEY,
    name TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS franchises (
    id TEXT PRIMARY KEY,
    name TEXT UNIQUE NOT NULL,
    anime_id TEXT,
    FOREIGN KEY (anime_id) REFERENCES anime(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS anime_genre (
    anime_id TEXT NOT NULL,
    genre_id TEXT NOT NULL,
    PRIMARY KEY (anime_id, genre_id),
    FOREIGN KEY (anime_id) REFERENCES anime(id) ON DELETE CASCADE,
    FOREIGN KEY (genre_id) REFERENCES genres(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS anime_studio (
    anime_id TEXT NOT NULL,
    studio_id TEXT NOT NULL,
    PRIMARY KEY (anime_id, studio_id),
    FOREIGN KEY (anime_id) REFERENCES anime(id) ON DELETE CASCADE,
    FOREIGN KEY (studio_id) REFERENCES studios(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS watching_entry (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    num_watched_episodes INTEGER NOT NULL DEFAULT 0,
    anime_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    FOREIGN KEY (anime_id) REFERENCES anime(id) ON DELETE CASCADE,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_anime_name_en ON anime(name_en COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_episodes_anime ON episodes(anime_id);
CREATE INDEX IF NOT EXISTS idx_watching_entry_user ON watching_entry(user_id);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
