package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/liav/songbook/pkg/domain"
)

const (
	defaultBaseURL = "https://api.genius.com"

	requestTimeout = 10 * time.Second
	dialTimeout    = 5 * time.Second

	maxAttempts    = 3
	baseRetryDelay = 500 * time.Millisecond
)

// GeniusClient calls the Genius catalog API: artist search and per-artist
// song listings. Transient network failures and timeouts are retried with
// exponential backoff; HTTP error statuses are never retried, since the
// upstream has already answered.
type GeniusClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      zerolog.Logger
}

type GeniusConfig struct {
	AccessToken string
	BaseURL     string       // optional, used for testing
	HTTPClient  *http.Client // optional
	Logger      zerolog.Logger
}

func NewGeniusClient(config GeniusConfig) (*GeniusClient, error) {
	if config.AccessToken == "" {
		return nil, fmt.Errorf("genius access token is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: dialTimeout,
				}).DialContext,
			},
		}
	}

	return &GeniusClient{
		baseURL:     baseURL,
		accessToken: config.AccessToken,
		httpClient:  httpClient,
		logger:      config.Logger,
	}, nil
}

type geniusSearchResponse struct {
	Response struct {
		Hits []struct {
			Result struct {
				PrimaryArtist struct {
					ID   int64  `json:"id"`
					Name string `json:"name"`
				} `json:"primary_artist"`
			} `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

type geniusSongsResponse struct {
	Response struct {
		Songs []struct {
			ID                    int64  `json:"id"`
			Title                 string `json:"title"`
			URL                   string `json:"url"`
			ReleaseDateForDisplay string `json:"release_date_for_display"`
		} `json:"songs"`
		NextPage *int `json:"next_page"`
	} `json:"response"`
}

// SearchArtists returns the primary artists of the upstream search hits for
// name, preserving the upstream relevance order.
func (c *GeniusClient) SearchArtists(ctx context.Context, name string) ([]domain.Artist, error) {
	query := url.Values{}
	query.Set("q", name)

	body, err := c.get(ctx, "/search", query)
	if err != nil {
		return nil, err
	}

	var searchResp geniusSearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		c.logger.Debug().Err(err).Msg("genius: search response not parseable")
		return nil, domain.ErrUpstreamFormat
	}

	artists := make([]domain.Artist, 0, len(searchResp.Response.Hits))
	for _, hit := range searchResp.Response.Hits {
		artists = append(artists, domain.Artist{
			ID:   hit.Result.PrimaryArtist.ID,
			Name: hit.Result.PrimaryArtist.Name,
		})
	}

	return artists, nil
}

// ListSongs fetches one page of an artist's songs in the upstream popularity
// order.
func (c *GeniusClient) ListSongs(ctx context.Context, artistID int64, page, perPage int) (*domain.SongPage, error) {
	query := url.Values{}
	query.Set("sort", "popularity")
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))

	path := fmt.Sprintf("/artists/%d/songs", artistID)
	body, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	var songsResp geniusSongsResponse
	if err := json.Unmarshal(body, &songsResp); err != nil {
		c.logger.Debug().Err(err).Msg("genius: songs response not parseable")
		return nil, domain.ErrUpstreamFormat
	}

	songs := make([]domain.Song, 0, len(songsResp.Response.Songs))
	for _, song := range songsResp.Response.Songs {
		songs = append(songs, domain.Song{
			ID:          song.ID,
			Title:       song.Title,
			URL:         song.URL,
			ReleaseDate: song.ReleaseDateForDisplay,
		})
	}

	return &domain.SongPage{
		Songs:   songs,
		HasNext: songsResp.Response.NextPage != nil,
	}, nil
}

func (c *GeniusClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	delay := baseRetryDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts && isRetryableNetworkError(err) {
				c.logger.Debug().Err(err).Int("attempt", attempt).Str("path", path).
					Msg("genius: network error, retrying")
				if !sleep(ctx, delay) {
					return nil, ctx.Err()
				}
				delay *= 2
				continue
			}
			return nil, c.classifyTransportError(path, err)
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, c.classifyTransportError(path, err)
		}

		// HTTP error statuses are a definitive upstream answer, not a
		// transient condition, so they bypass the retry loop entirely.
		if resp.StatusCode != http.StatusOK {
			return nil, c.mapStatus(path, resp.StatusCode)
		}

		return body, nil
	}

	return nil, c.classifyTransportError(path, lastErr)
}

func (c *GeniusClient) mapStatus(path string, status int) error {
	c.logger.Debug().Int("status", status).Str("path", path).Msg("genius: request rejected")

	switch {
	case status == http.StatusUnauthorized:
		return domain.ErrUpstreamAuth
	case status == http.StatusTooManyRequests:
		return domain.ErrUpstreamThrottled
	case status >= 500:
		return domain.ErrUpstreamUnavailable
	default:
		return domain.UpstreamStatusError{Status: status}
	}
}

func (c *GeniusClient) classifyTransportError(path string, err error) error {
	c.logger.Debug().Err(err).Str("path", path).Msg("genius: request failed")

	if isTimeoutError(err) {
		return domain.ErrUpstreamTimeout
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return domain.ErrUpstreamUnavailable
}

// isRetryableNetworkError reports whether err is a connection failure or
// timeout worth another attempt. Context cancellation means the caller gave
// up, so it is never retried.
func isRetryableNetworkError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// sleep waits for the given duration or until the context is cancelled.
// Returns false if the context won.
func sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(duration):
		return true
	}
}
