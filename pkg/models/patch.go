package models

import "time"

// EpisodeParam carries the caller-supplied fields of a new episode.
// IDs are assigned by the service when the collection is replaced.
type EpisodeParam struct {
	Name      string     `json:"name"`
	AiredDate *time.Time `json:"aired_date,omitempty"`
}

// AnimePatch is a partial update for an anime. Scalar fields follow
// pointer semantics: nil leaves the field unchanged.
//
// Collection fields are tri-state: a nil slice pointer leaves the
// collection unchanged, a pointer to an empty slice clears it, and a
// pointer to a non-empty slice wholesale-replaces it. "Clear" and
// "leave alone" are therefore distinct, type-checked choices.
type AnimePatch struct {
	NameEn        *string       `json:"name_en,omitempty"`
	NameJp        *string       `json:"name_jp,omitempty"`
	Type          *AnimeType    `json:"type,omitempty"`
	AiringStatus  *AiringStatus `json:"airing_status,omitempty"`
	AiringStart   *time.Time    `json:"airing_start,omitempty"`
	AiringEnd     *time.Time    `json:"airing_end,omitempty"`
	TotalEpisodes *int          `json:"total_episodes,omitempty"`
	Description   *string       `json:"description,omitempty"`
	Rating        *string       `json:"rating,omitempty"`

	Episodes  *[]EpisodeParam `json:"episodes,omitempty"`
	Genres    *[]string       `json:"genres,omitempty"`
	Studios   *[]string       `json:"studios,omitempty"`
	Franchise *string         `json:"franchise,omitempty"`
}

// WatchlistPatch is a partial update for a watchlist entry.
type WatchlistPatch struct {
	Status             *WatchingStatus `json:"status,omitempty"`
	NumWatchedEpisodes *int            `json:"num_watched_episodes,omitempty"`
}
