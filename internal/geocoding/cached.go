package geocoding

import (
	"context"
	"log/slog"
	"strings"

	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/UnknownOlympus/hermes/internal/models"
)

// Cache stores resolved coordinates keyed by normalized address.
type Cache interface {
	Get(ctx context.Context, address string) (models.Coordinates, bool, error)
	Put(ctx context.Context, address string, coords models.Coordinates) error
}

// CachedProvider consults a Cache before falling through to the wrapped provider.
// Only successful lookups are stored; misses are retried on the next call.
type CachedProvider struct {
	next    Provider
	cache   Cache
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewCachedProvider wraps next with cache.
func NewCachedProvider(next Provider, cache Cache, metrics *metrics.Metrics, log *slog.Logger) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, metrics: metrics, log: log}
}

// NormalizeAddress trims, lower-cases and collapses inner whitespace so equivalent
// spellings share one cache entry.
func NormalizeAddress(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}

// Geocode implements Provider.
func (cp *CachedProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	key := NormalizeAddress(address)
	if key == "" {
		return nil, ErrEmptyAddress
	}

	coords, found, err := cp.cache.Get(ctx, key)
	switch {
	case err != nil:
		// A broken cache must not block geocoding.
		cp.log.WarnContext(ctx, "Geocode cache lookup failed", "address", key, "error", err)
		cp.metrics.GeocodeCache.WithLabelValues("error").Inc()
	case found:
		cp.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		cp.log.DebugContext(ctx, "Geocode cache hit", "address", key)
		return &coords, nil
	default:
		cp.metrics.GeocodeCache.WithLabelValues("miss").Inc()
	}

	resolved, err := cp.next.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	if err = cp.cache.Put(ctx, key, *resolved); err != nil {
		cp.log.WarnContext(ctx, "Failed to store geocode result", "address", key, "error", err)
	}

	return resolved, nil
}
