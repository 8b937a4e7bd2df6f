package interfaces

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/liav/songbook/pkg/collectors"
	"github.com/liav/songbook/pkg/domain"
)

const (
	maxNameLength = 100
	MaxPerPage    = 50
)

// SongLookupService is the single public entry point of the lookup engine.
// It validates input, consults the two cache tiers, and falls back to the
// upstream catalog, serving stale cached pages when the upstream is down.
type SongLookupService struct {
	resolver domain.ArtistResolver
	catalog  domain.SongCatalog
	cache    *collectors.ResultCache
	logger   zerolog.Logger
	now      func() time.Time
}

func NewSongLookupService(resolver domain.ArtistResolver, catalog domain.SongCatalog, cache *collectors.ResultCache, logger zerolog.Logger) (*SongLookupService, error) {
	if resolver == nil {
		return nil, fmt.Errorf("artist resolver is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("song catalog is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("result cache is required")
	}

	return &SongLookupService{
		resolver: resolver,
		catalog:  catalog,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (s *SongLookupService) Lookup(ctx context.Context, name string, page, perPage int) (*domain.LookupResult, error) {
	if err := validateLookup(name, page, perPage); err != nil {
		return nil, err
	}

	if mapping := s.cache.ReadMapping(ctx, name); mapping != nil {
		if entry := s.cache.ReadPage(ctx, mapping.ArtistID, page, perPage); entry != nil {
			return s.serveCached(ctx, name, mapping, entry, page, perPage)
		}
	}

	return s.fetchFresh(ctx, name, page, perPage)
}

// serveCached handles the double-hit path. The artist is always re-resolved
// against the upstream so renames and merges show up even while the page
// itself comes from cache; only when that resolution fails on an upstream
// outage is the cached identity reused and the result flagged stale.
func (s *SongLookupService) serveCached(ctx context.Context, name string, mapping *domain.NameToIDEntry, entry *domain.SongsPageEntry, page, perPage int) (*domain.LookupResult, error) {
	artist, err := s.resolver.Resolve(ctx, name)
	switch {
	case err == nil:
		return cachedResult(*artist, entry, page, perPage, false), nil
	case domain.IsUpstreamOutage(err):
		s.logger.Warn().Err(err).Str("artist", mapping.ArtistName).
			Msg("upstream unreachable, serving stale cached page")
		return cachedResult(entry.Artist, entry, page, perPage, true), nil
	default:
		return nil, err
	}
}

func (s *SongLookupService) fetchFresh(ctx context.Context, name string, page, perPage int) (*domain.LookupResult, error) {
	artist, err := s.resolver.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	s.cache.WriteMapping(ctx, name, domain.NameToIDEntry{
		ArtistID:   artist.ID,
		ArtistName: artist.Name,
	})

	songPage, err := s.catalog.ListSongs(ctx, artist.ID, page, perPage)
	if err != nil {
		return nil, err
	}

	fetchedAt := s.now()
	s.cache.WritePage(ctx, artist.ID, page, perPage, domain.SongsPageEntry{
		Artist:    *artist,
		Songs:     songPage.Songs,
		HasNext:   songPage.HasNext,
		FetchedAt: fetchedAt,
	})

	return &domain.LookupResult{
		Artist: *artist,
		Songs:  songPage.Songs,
		Pagination: domain.Pagination{
			Page:    page,
			PerPage: perPage,
			HasNext: songPage.HasNext,
		},
		Meta: domain.Meta{
			FetchedAt: fetchedAt,
		},
	}, nil
}

func cachedResult(artist domain.Artist, entry *domain.SongsPageEntry, page, perPage int, stale bool) *domain.LookupResult {
	return &domain.LookupResult{
		Artist: artist,
		Songs:  entry.Songs,
		Pagination: domain.Pagination{
			Page:    page,
			PerPage: perPage,
			HasNext: entry.HasNext,
		},
		Meta: domain.Meta{
			FetchedAt:      entry.FetchedAt,
			Cached:         true,
			Stale:          stale,
			APIUnavailable: stale,
		},
	}
}

func validateLookup(name string, page, perPage int) error {
	if strings.TrimSpace(name) == "" {
		return domain.ValidationError{Field: "name", Message: "required"}
	}
	if len(name) > maxNameLength {
		return domain.ValidationError{Field: "name", Message: "too long"}
	}
	if page < 1 {
		return domain.ValidationError{Field: "page", Message: "must be positive"}
	}
	if perPage < 1 || perPage > MaxPerPage {
		return domain.ValidationError{Field: "per_page", Message: "must be 1-50"}
	}
	return nil
}
