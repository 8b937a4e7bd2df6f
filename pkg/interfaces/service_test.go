package interfaces

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/liav/songbook/pkg/collectors"
	"github.com/liav/songbook/pkg/domain"
)

type mockResolver struct {
	calls       int
	resolveFunc func(ctx context.Context, name string) (*domain.Artist, error)
}

func (m *mockResolver) Resolve(ctx context.Context, name string) (*domain.Artist, error) {
	m.calls++
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, name)
	}
	return &domain.Artist{ID: 1421, Name: "Kendrick Lamar"}, nil
}

type mockCatalog struct {
	calls         int
	listSongsFunc func(ctx context.Context, artistID int64, page, perPage int) (*domain.SongPage, error)
}

func (m *mockCatalog) ListSongs(ctx context.Context, artistID int64, page, perPage int) (*domain.SongPage, error) {
	m.calls++
	if m.listSongsFunc != nil {
		return m.listSongsFunc(ctx, artistID, page, perPage)
	}
	return &domain.SongPage{}, nil
}

type failingStore struct {
	reads, writes int
}

func (s *failingStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	s.reads++
	return nil, false, errors.New("connection refused")
}

func (s *failingStore) Write(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.writes++
	return errors.New("connection refused")
}

func tenSongs() []domain.Song {
	songs := make([]domain.Song, 0, 10)
	titles := []string{"HUMBLE.", "DNA.", "Alright", "Money Trees", "King Kunta",
		"LOYALTY.", "Swimming Pools", "Bitch, Don't Kill My Vibe", "ELEMENT.", "PRIDE."}
	for i, title := range titles {
		songs = append(songs, domain.Song{ID: int64(i + 1), Title: title, URL: "https://genius.com/" + title})
	}
	return songs
}

type serviceFixture struct {
	service  *SongLookupService
	resolver *mockResolver
	catalog  *mockCatalog
	store    *collectors.MemoryStore
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	store := collectors.NewMemoryStore(0)
	t.Cleanup(store.Close)

	cache, err := collectors.NewResultCache(store, 24*time.Hour, time.Hour, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	resolver := &mockResolver{}
	catalog := &mockCatalog{
		listSongsFunc: func(ctx context.Context, artistID int64, page, perPage int) (*domain.SongPage, error) {
			return &domain.SongPage{Songs: tenSongs(), HasNext: true}, nil
		},
	}

	service, err := NewSongLookupService(resolver, catalog, cache, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	return &serviceFixture{service: service, resolver: resolver, catalog: catalog, store: store}
}

func TestLookupValidation(t *testing.T) {
	tests := []struct {
		name    string
		artist  string
		page    int
		perPage int
		field   string
	}{
		{"blank name", "", 1, 50, "name"},
		{"whitespace name", "   ", 1, 50, "name"},
		{"name too long", strings.Repeat("a", 101), 1, 50, "name"},
		{"zero page", "Drake", 0, 50, "page"},
		{"negative page", "Drake", -3, 50, "page"},
		{"zero per_page", "Drake", 1, 0, "per_page"},
		{"per_page too large", "Drake", 1, 51, "per_page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.service.Lookup(context.Background(), tt.artist, tt.page, tt.perPage)

			var validationErr domain.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validationErr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, validationErr.Field)
			}
			if f.resolver.calls != 0 || f.catalog.calls != 0 {
				t.Errorf("expected no collaborator calls before validation, got resolver=%d catalog=%d",
					f.resolver.calls, f.catalog.calls)
			}
		})
	}
}

func TestLookupNameBoundary(t *testing.T) {
	f := newFixture(t)

	// Exactly 100 characters is still valid.
	if _, err := f.service.Lookup(context.Background(), strings.Repeat("a", 100), 1, 50); err != nil {
		t.Errorf("expected 100-char name to pass validation, got %v", err)
	}
}

func TestLookupFreshFetch(t *testing.T) {
	f := newFixture(t)
	fetchedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return fetchedAt }

	result, err := f.service.Lookup(context.Background(), "Kendrick Lamar", 1, 50)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.Artist.ID != 1421 {
		t.Errorf("expected artist id 1421, got %d", result.Artist.ID)
	}
	if len(result.Songs) != 10 {
		t.Errorf("expected 10 songs, got %d", len(result.Songs))
	}
	if result.Pagination.Page != 1 || result.Pagination.PerPage != 50 {
		t.Errorf("unexpected pagination: %+v", result.Pagination)
	}
	if !result.Pagination.HasNext {
		t.Error("expected has_next true")
	}
	if result.Meta.Cached || result.Meta.Stale || result.Meta.APIUnavailable {
		t.Errorf("fresh fetch must not be flagged cached or stale: %+v", result.Meta)
	}
	if !result.Meta.FetchedAt.Equal(fetchedAt) {
		t.Errorf("expected fetched_at %v, got %v", fetchedAt, result.Meta.FetchedAt)
	}
}

func TestLookupSecondCallServedFromCache(t *testing.T) {
	f := newFixture(t)

	first, err := f.service.Lookup(context.Background(), "Kendrick Lamar", 1, 50)
	if err != nil {
		t.Fatalf("first lookup failed: %v", err)
	}

	second, err := f.service.Lookup(context.Background(), "Kendrick Lamar", 1, 50)
	if err != nil {
		t.Fatalf("second lookup failed: %v", err)
	}

	if !second.Meta.Cached {
		t.Error("expected second lookup to be served from cache")
	}
	if second.Meta.Stale || second.Meta.APIUnavailable {
		t.Errorf("healthy upstream must not be flagged stale: %+v", second.Meta)
	}
	if second.Artist.ID != first.Artist.ID {
		t.Errorf("expected same artist id, got %d and %d", first.Artist.ID, second.Artist.ID)
	}
	if len(second.Songs) != len(first.Songs) {
		t.Fatalf("expected same number of songs, got %d and %d", len(first.Songs), len(second.Songs))
	}
	for i := range first.Songs {
		if second.Songs[i].ID != first.Songs[i].ID {
			t.Fatalf("expected identical song ordering at index %d", i)
		}
	}
	if !second.Meta.FetchedAt.Equal(first.Meta.FetchedAt) {
		t.Error("cached result must carry the original fetched_at")
	}

	// The page itself came from cache, so the catalog was only hit once;
	// the identity is still re-resolved on every request.
	if f.catalog.calls != 1 {
		t.Errorf("expected 1 catalog call, got %d", f.catalog.calls)
	}
	if f.resolver.calls != 2 {
		t.Errorf("expected 2 resolver calls, got %d", f.resolver.calls)
	}
}

func TestLookupCaseInsensitiveCacheHit(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.Lookup(context.Background(), "Kendrick Lamar", 1, 50); err != nil {
		t.Fatalf("first lookup failed: %v", err)
	}

	result, err := f.service.Lookup(context.Background(), "  KENDRICK LAMAR ", 1, 50)
	if err != nil {
		t.Fatalf("second lookup failed: %v", err)
	}

	if !result.Meta.Cached {
		t.Error("expected case-folded name to hit the same mapping entry")
	}
	if result.Artist.ID != 1421 {
		t.Errorf("expected artist id 1421, got %d", result.Artist.ID)
	}
}

func TestLookupStaleFallback(t *testing.T) {
	outages := []struct {
		name string
		err  error
	}{
		{"unavailable", domain.ErrUpstreamUnavailable},
		{"timeout", domain.ErrUpstreamTimeout},
	}

	for _, outage := range outages {
		t.Run(outage.name, func(t *testing.T) {
			f := newFixture(t)

			first, err := f.service.Lookup(context.Background(), "Kendrick Lamar", 1, 50)
			if err != nil {
				t.Fatalf("first lookup failed: %v", err)
			}

			f.resolver.resolveFunc = func(ctx context.Context, name string) (*domain.Artist, error) {
				return nil, outage.err
			}
			f.catalog.listSongsFunc = func(ctx context.Context, artistID int64, page, perPage int) (*domain.SongPage, error) {
				return nil, outage.err
			}

			result, err := f.service.Lookup(context.Background(), "Kendrick Lamar", 1, 50)
			if err != nil {
				t.Fatalf("expected stale fallback, got error %v", err)
			}

			if !result.Meta.Cached || !result.Meta.Stale || !result.Meta.APIUnavailable {
				t.Errorf("expected cached+stale+api_unavailable, got %+v", result.Meta)
			}
			if len(result.Songs) != 10 {
				t.Fatalf("expected the 10 cached songs, got %d", len(result.Songs))
			}
			for i := range first.Songs {
				if result.Songs[i].ID != first.Songs[i].ID {
					t.Fatalf("stale page must equal the last cached page at index %d", i)
				}
			}
			if result.Artist.ID != first.Artist.ID {
				t.Errorf("stale result must reuse the cached artist identity, got %d", result.Artist.ID)
			}
		})
	}
}

func TestLookupRenameDetectedOnCachedPage(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.Lookup(context.Background(), "Kendrick Lamar", 1, 50); err != nil {
		t.Fatalf("first lookup failed: %v", err)
	}

	f.resolver.resolveFunc = func(ctx context.Context, name string) (*domain.Artist, error) {
		return &domain.Artist{ID: 1421, Name: "Kendrick Lamar (K.Dot)"}, nil
	}

	result, err := f.service.Lookup(context.Background(), "Kendrick Lamar", 1, 50)
	if err != nil {
		t.Fatalf("second lookup failed: %v", err)
	}

	if result.Artist.Name != "Kendrick Lamar (K.Dot)" {
		t.Errorf("expected fresh artist record merged over cached page, got %s", result.Artist.Name)
	}
	if !result.Meta.Cached || result.Meta.Stale {
		t.Errorf("expected cached but not stale, got %+v", result.Meta)
	}
}

func TestLookupNonOutageErrorOnCachedPath(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.Lookup(context.Background(), "Kendrick Lamar", 1, 50); err != nil {
		t.Fatalf("first lookup failed: %v", err)
	}

	// An auth failure is not an outage; stale data would not help and the
	// error must surface.
	f.resolver.resolveFunc = func(ctx context.Context, name string) (*domain.Artist, error) {
		return nil, domain.ErrUpstreamAuth
	}

	if _, err := f.service.Lookup(context.Background(), "Kendrick Lamar", 1, 50); !errors.Is(err, domain.ErrUpstreamAuth) {
		t.Errorf("expected ErrUpstreamAuth to propagate, got %v", err)
	}
}

func TestLookupNoCacheNoUpstream(t *testing.T) {
	f := newFixture(t)

	f.resolver.resolveFunc = func(ctx context.Context, name string) (*domain.Artist, error) {
		return nil, domain.ErrUpstreamUnavailable
	}

	_, err := f.service.Lookup(context.Background(), "Kendrick Lamar", 1, 50)
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable with an empty cache, got %v", err)
	}
}

func TestLookupPageFetchFailureWithoutCacheEntry(t *testing.T) {
	f := newFixture(t)

	f.catalog.listSongsFunc = func(ctx context.Context, artistID int64, page, perPage int) (*domain.SongPage, error) {
		return nil, domain.ErrUpstreamTimeout
	}

	_, err := f.service.Lookup(context.Background(), "Kendrick Lamar", 1, 50)
	if !errors.Is(err, domain.ErrUpstreamTimeout) {
		t.Errorf("expected ErrUpstreamTimeout to propagate, got %v", err)
	}
}

func TestLookupArtistNotFound(t *testing.T) {
	f := newFixture(t)

	f.resolver.resolveFunc = func(ctx context.Context, name string) (*domain.Artist, error) {
		return nil, domain.ErrArtistNotFound
	}

	_, err := f.service.Lookup(context.Background(), "nobody at all", 1, 50)
	if !errors.Is(err, domain.ErrArtistNotFound) {
		t.Errorf("expected ErrArtistNotFound, got %v", err)
	}
}

func TestLookupMappingHitPageMiss(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.Lookup(context.Background(), "Kendrick Lamar", 1, 50); err != nil {
		t.Fatalf("first lookup failed: %v", err)
	}

	// A different page is not cached yet, so this takes the full fetch path.
	result, err := f.service.Lookup(context.Background(), "Kendrick Lamar", 2, 50)
	if err != nil {
		t.Fatalf("second lookup failed: %v", err)
	}

	if result.Meta.Cached {
		t.Error("expected uncached page to be fetched fresh")
	}
	if result.Pagination.Page != 2 {
		t.Errorf("expected page 2, got %d", result.Pagination.Page)
	}
	if f.catalog.calls != 2 {
		t.Errorf("expected 2 catalog calls, got %d", f.catalog.calls)
	}
}

func TestLookupSurvivesCacheOutage(t *testing.T) {
	store := &failingStore{}
	cache, err := collectors.NewResultCache(store, 24*time.Hour, time.Hour, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	resolver := &mockResolver{}
	catalog := &mockCatalog{
		listSongsFunc: func(ctx context.Context, artistID int64, page, perPage int) (*domain.SongPage, error) {
			return &domain.SongPage{Songs: tenSongs(), HasNext: true}, nil
		},
	}

	service, err := NewSongLookupService(resolver, catalog, cache, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	result, err := service.Lookup(context.Background(), "Kendrick Lamar", 1, 50)
	if err != nil {
		t.Fatalf("a cache outage must not fail the lookup, got %v", err)
	}
	if result.Meta.Cached {
		t.Error("expected fresh fetch when the cache store is down")
	}
	if store.reads == 0 || store.writes == 0 {
		t.Errorf("expected the cache to be attempted, got reads=%d writes=%d", store.reads, store.writes)
	}
}
