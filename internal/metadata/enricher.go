package metadata

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cinelist/internal/inbox"
)

// Fetcher is the provider side of the enricher, satisfied by *Client.
type Fetcher interface {
	Details(ctx context.Context, kind inbox.MediaKind, externalID int64) (*Details, error)
}

// Enricher implements inbox.Enricher: cache first, then provider.
type Enricher struct {
	fetcher Fetcher
	cache   Cache // optional
	ttl     time.Duration
	logger  *slog.Logger
}

var _ inbox.Enricher = (*Enricher)(nil)

func NewEnricher(fetcher Fetcher, cache Cache, ttl time.Duration, logger *slog.Logger) *Enricher {
	return &Enricher{fetcher: fetcher, cache: cache, ttl: ttl, logger: logger.With("component", "metadata_enricher")}
}

// Lookup returns an empty title for unknown items; the inbox substitutes
// its placeholder.
func (e *Enricher) Lookup(ctx context.Context, kind inbox.MediaKind, externalID int64) (string, string, error) {
	if e.cache != nil {
		entry, ok, err := e.cache.Get(ctx, kind, externalID)
		if err != nil {
			e.logger.Warn("metadata_cache_get_failed", "error", err)
		} else if ok {
			return entry.Title, entry.PosterPath, nil
		}
	}

	d, err := e.fetcher.Details(ctx, kind, externalID)
	switch {
	case errors.Is(err, ErrNotFound):
		e.store(ctx, kind, externalID, CacheEntry{Missing: true})
		return "", "", nil
	case err != nil:
		return "", "", err
	}

	e.store(ctx, kind, externalID, CacheEntry{Details: *d})
	return d.Title, d.PosterPath, nil
}

func (e *Enricher) store(ctx context.Context, kind inbox.MediaKind, externalID int64, entry CacheEntry) {
	if e.cache == nil || e.ttl <= 0 {
		return
	}
	if err := e.cache.Set(ctx, kind, externalID, entry, e.ttl); err != nil {
		e.logger.Warn("metadata_cache_set_failed", "error", err)
	}
}
