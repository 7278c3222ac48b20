package models

import "time"

// AnimeType is the broadcast format of a title.
type AnimeType string

const (
	AnimeTypeTV    AnimeType = "TV"
	AnimeTypeMovie AnimeType = "MOVIE"
)

// AiringStatus tells whether a title is still airing.
type AiringStatus string

const (
	AiringStatusAiring   AiringStatus = "AIRING"
	AiringStatusComplete AiringStatus = "COMPLETE"
)

// Genre is a shared reference entity, deduplicated by name.
type Genre struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Studio is a shared reference entity, deduplicated by name.
type Studio struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Franchise groups anime under one name. Deduplicated by name;
// AnimeID points at the title it was first attached to.
type Franchise struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	AnimeID string `json:"anime_id,omitempty"`
}

// Episode is exclusively owned by its anime and is wholesale-replaced
// whenever the anime's episode collection is updated.
type Episode struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	AiredDate *time.Time `json:"aired_date,omitempty"`
	AnimeID   string     `json:"anime_id,omitempty"`
}

// Anime is the aggregate root of the catalog. NameEn is unique across
// all titles and drives the default (case-insensitive) sort order.
type Anime struct {
	ID            string       `json:"id"`
	NameEn        string       `json:"name_en"`
	NameJp        string       `json:"name_jp,omitempty"`
	Type          AnimeType    `json:"type"`
	AiringStatus  AiringStatus `json:"airing_status"`
	AiringStart   time.Time    `json:"airing_start"`
	AiringEnd     *time.Time   `json:"airing_end,omitempty"`
	TotalEpisodes *int         `json:"total_episodes,omitempty"`
	Description   string       `json:"description,omitempty"`
	Rating        string       `json:"rating,omitempty"`

	Episodes  []Episode  `json:"episodes"`
	Genres    []Genre    `json:"genres"`
	Studios   []Studio   `json:"studios"`
	Franchise *Franchise `json:"franchise,omitempty"`
}
