package models

import "time"

// WatchingStatus is the state of one watchlist entry.
type WatchingStatus string

const (
	WatchingStatusWatching  WatchingStatus = "WATCHING"
	WatchingStatusCompleted WatchingStatus = "COMPLETED"
	WatchingStatusDropped   WatchingStatus = "DROPPED"
	WatchingStatusPlanning  WatchingStatus = "PLANNING"
)

// WatchingEntry is exclusively owned by its user. A user has at most
// one entry per distinct anime, compared by anime id.
type WatchingEntry struct {
	ID                 string         `json:"id"`
	Status             WatchingStatus `json:"status"`
	NumWatchedEpisodes int            `json:"num_watched_episodes"`
	AnimeID            string         `json:"anime_id"`
	UserID             string         `json:"user_id,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`

	// Anime is a scalar snapshot of the referenced title, populated on
	// reads. Sub-collections (episodes, genres, studios) are not loaded
	// through the watchlist.
	Anime *Anime `json:"anime,omitempty"`
}

// User owns a watchlist. Password holds the bcrypt hash, never
// plaintext.
type User struct {
	ID        string    `json:"id"`
	Login     string    `json:"login"`
	Password  string    `json:"-"`
	Active    bool      `json:"active"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WatchingList []WatchingEntry `json:"watching_list"`
}

// WatchlistEntryFor returns the entry referencing anime id, or nil.
func (u *User) WatchlistEntryFor(animeID string) *WatchingEntry {
	for i := range u.WatchingList {
		if u.WatchingList[i].AnimeID == animeID {
			return &u.WatchingList[i]
		}
	}
	return nil
}
