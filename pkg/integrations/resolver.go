package integrations

import (
	"context"
	"fmt"
	"strings"

	"github.com/liav/songbook/pkg/domain"
)

type artistSearcher interface {
	SearchArtists(ctx context.Context, name string) ([]domain.Artist, error)
}

// Resolver turns a free-text artist name into a canonical artist record.
// An exact case-insensitive match among the search candidates wins; otherwise
// the upstream's own ranking is trusted and the top hit is used.
type Resolver struct {
	searcher artistSearcher
}

func NewResolver(searcher artistSearcher) (*Resolver, error) {
	if searcher == nil {
		return nil, fmt.Errorf("artist searcher is required")
	}

	return &Resolver{searcher: searcher}, nil
}

func (r *Resolver) Resolve(ctx context.Context, name string) (*domain.Artist, error) {
	candidates, err := r.searcher.SearchArtists(ctx, name)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, domain.ErrArtistNotFound
	}

	wanted := strings.TrimSpace(name)
	for i := range candidates {
		if strings.EqualFold(candidates[i].Name, wanted) {
			artist := candidates[i]
			return &artist, nil
		}
	}

	artist := candidates[0]
	return &artist, nil
}
