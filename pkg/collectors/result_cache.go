package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/liav/songbook/pkg/domain"
)

// cacheVersion prefixes every key so a payload schema change invalidates old
// entries instead of misparsing them.
const cacheVersion = "v1"

type readOutcome int

const (
	outcomeHit readOutcome = iota
	outcomeMiss
	outcomeStoreError
)

// ResultCache owns the two cache tiers: normalized name -> artist identity,
// and (artist id, page, per_page) -> formatted song page. Both tiers are
// advisory: store failures are logged and collapse to a miss on read and a
// no-op on write, so a cache outage degrades lookups instead of failing them.
type ResultCache struct {
	store      domain.CacheStore
	mappingTTL time.Duration
	pageTTL    time.Duration
	logger     zerolog.Logger
}

func NewResultCache(store domain.CacheStore, mappingTTL, pageTTL time.Duration, logger zerolog.Logger) (*ResultCache, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if mappingTTL <= 0 || pageTTL <= 0 {
		return nil, fmt.Errorf("cache TTLs must be positive")
	}

	return &ResultCache{
		store:      store,
		mappingTTL: mappingTTL,
		pageTTL:    pageTTL,
		logger:     logger,
	}, nil
}

// NormalizeName folds an artist name for use as a mapping-tier key, so that
// "Drake" and "  DRAKE " share one entry.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func mappingKey(normalized string) string {
	return fmt.Sprintf("%s:name_to_id:%s", cacheVersion, normalized)
}

func pageKey(artistID int64, page, perPage int) string {
	return fmt.Sprintf("%s:artist:id:%d:p%d:pp%d", cacheVersion, artistID, page, perPage)
}

func (c *ResultCache) ReadMapping(ctx context.Context, name string) *domain.NameToIDEntry {
	entry, outcome := c.readMapping(ctx, NormalizeName(name))
	if outcome != outcomeHit {
		return nil
	}
	return entry
}

func (c *ResultCache) WriteMapping(ctx context.Context, name string, entry domain.NameToIDEntry) {
	key := mappingKey(NormalizeName(name))
	c.write(ctx, key, entry, c.mappingTTL)
}

func (c *ResultCache) ReadPage(ctx context.Context, artistID int64, page, perPage int) *domain.SongsPageEntry {
	entry, outcome := c.readPage(ctx, artistID, page, perPage)
	if outcome != outcomeHit {
		return nil
	}
	return entry
}

func (c *ResultCache) WritePage(ctx context.Context, artistID int64, page, perPage int, entry domain.SongsPageEntry) {
	c.write(ctx, pageKey(artistID, page, perPage), entry, c.pageTTL)
}

func (c *ResultCache) readMapping(ctx context.Context, normalized string) (*domain.NameToIDEntry, readOutcome) {
	var entry domain.NameToIDEntry
	outcome := c.read(ctx, mappingKey(normalized), &entry)
	if outcome != outcomeHit {
		return nil, outcome
	}
	return &entry, outcomeHit
}

func (c *ResultCache) readPage(ctx context.Context, artistID int64, page, perPage int) (*domain.SongsPageEntry, readOutcome) {
	var entry domain.SongsPageEntry
	outcome := c.read(ctx, pageKey(artistID, page, perPage), &entry)
	if outcome != outcomeHit {
		return nil, outcome
	}
	return &entry, outcomeHit
}

func (c *ResultCache) read(ctx context.Context, key string, target interface{}) readOutcome {
	value, found, err := c.store.Read(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		return outcomeStoreError
	}
	if !found {
		return outcomeMiss
	}

	if err := json.Unmarshal(value, target); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache entry unreadable, treating as miss")
		return outcomeMiss
	}

	return outcomeHit
}

func (c *ResultCache) write(ctx context.Context, key string, entry interface{}, ttl time.Duration) {
	value, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache entry not serializable, skipping write")
		return
	}

	if err := c.store.Write(ctx, key, value, ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed, continuing without cache")
	}
}
