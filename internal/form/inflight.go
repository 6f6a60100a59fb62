package form

import "sync"

// InFlight tracks shipment ids with an outstanding submit. One instance is shared by
// every controller in the process so two sessions cannot race on the same id.
type InFlight struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewInFlight returns an empty guard.
func NewInFlight() *InFlight {
	return &InFlight{ids: make(map[string]struct{})}
}

// Acquire marks id as busy. It reports false when id is already busy.
func (g *InFlight) Acquire(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.ids[id]; busy {
		return false
	}
	g.ids[id] = struct{}{}
	return true
}

// Release clears id.
func (g *InFlight) Release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.ids, id)
}
