package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/UnknownOlympus/hermes/internal/session"
	"github.com/jellydator/ttlcache/v3"
)

// Registry keeps one dashboard per identity and closes the ones left idle.
type Registry struct {
	deps  Deps
	cache *ttlcache.Cache[string, *Dashboard]
	mu    sync.Mutex
}

// NewRegistry returns a registry whose dashboards expire after idle without access.
func NewRegistry(deps Deps, idle time.Duration) *Registry {
	cache := ttlcache.New[string, *Dashboard](
		ttlcache.WithTTL[string, *Dashboard](idle),
	)

	cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Dashboard]) {
		deps.Metrics.ActiveDashboards.Dec()
		item.Value().Close()
		deps.Log.Debug("Dashboard evicted", "identity", item.Key(), "reason", reason)
	})

	return &Registry{deps: deps, cache: cache}
}

// Run drives expiry until ctx is cancelled, then closes every dashboard.
func (r *Registry) Run(ctx context.Context) {
	go r.cache.Start()

	<-ctx.Done()
	r.cache.Stop()
	r.closeAll()
}

// GetOrOpen returns the dashboard of identity, opening it on first use. Every call
// resets the idle timer.
func (r *Registry) GetOrOpen(ctx context.Context, identity session.Identity) *Dashboard {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item := r.cache.Get(identity.ID); item != nil {
		return item.Value()
	}

	d := Open(ctx, identity, r.deps)
	r.cache.Set(identity.ID, d, ttlcache.DefaultTTL)
	r.deps.Metrics.ActiveDashboards.Inc()

	return d
}

// Touch resets the idle timer of identity's dashboard. It reports whether the dashboard is still open.
func (r *Registry) Touch(id string) bool {
	return r.cache.Get(id) != nil
}

// Len is the number of open dashboards.
func (r *Registry) Len() int {
	return r.cache.Len()
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.cache.Items() {
		item.Value().Close()
	}
	r.cache.DeleteAll()
}
