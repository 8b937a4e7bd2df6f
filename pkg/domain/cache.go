package domain

import (
	"time"
)

// NameToIDEntry is the mapping-tier payload: a normalized artist name
// resolved to its canonical upstream identity.
type NameToIDEntry struct {
	ArtistID   int64  `json:"artist_id"`
	ArtistName string `json:"artist_name"`
}

// SongsPageEntry is the page-tier payload: one formatted song page for an
// (artist id, page, per_page) triple, with the freshness snapshot recorded
// at write time.
type SongsPageEntry struct {
	Artist    Artist    `json:"artist"`
	Songs     []Song    `json:"songs"`
	HasNext   bool      `json:"has_next"`
	FetchedAt time.Time `json:"fetched_at"`
}
