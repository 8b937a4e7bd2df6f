package domain

import (
	"time"
)

type Artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Song struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	ReleaseDate string `json:"release_date,omitempty"`
}

type SongPage struct {
	Songs   []Song `json:"songs"`
	HasNext bool   `json:"has_next"`
}

type Pagination struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	HasNext bool `json:"has_next"`
}

type Meta struct {
	FetchedAt      time.Time `json:"fetched_at"`
	Cached         bool      `json:"cached"`
	Stale          bool      `json:"stale"`
	APIUnavailable bool      `json:"api_unavailable"`
}

type LookupResult struct {
	Artist     Artist     `json:"artist"`
	Songs      []Song     `json:"songs"`
	Pagination Pagination `json:"pagination"`
	Meta       Meta       `json:"meta"`
}
