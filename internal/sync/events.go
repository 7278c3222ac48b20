package sync

import "time"

type WatchlistEvent struct {
	Type               string    `json:"type"` // "watchlist.update" or "watchlist.remove"
	UserID             string    `json:"user_id"`
	AnimeID            string    `json:"anime_id"`
	Status             string    `json:"status,omitempty"`
	NumWatchedEpisodes int       `json:"num_watched_episodes,omitempty"`
	At                 time.Time `json:"at"`
}
