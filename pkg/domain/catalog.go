package domain

import (
	"context"
	"time"
)

// CacheStore is a key-value store with per-entry TTL. Implementations may
// fail on any call; callers are expected to treat failures as misses.
type CacheStore interface {
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type ArtistResolver interface {
	Resolve(ctx context.Context, name string) (*Artist, error)
}

type SongCatalog interface {
	ListSongs(ctx context.Context, artistID int64, page, perPage int) (*SongPage, error)
}

type LookupService interface {
	Lookup(ctx context.Context, name string, page, perPage int) (*LookupResult, error)
}
