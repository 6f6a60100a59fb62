// Package tracker holds the in-memory mirror of the shipment collection and the
// derived views the dashboard renders from it.
package tracker

import (
	"strings"
	"sync"

	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/samber/lo"
)

// Store is the authoritative local copy of the remote collection. It is replaced
// wholesale by ApplySnapshot and is otherwise read-only.
type Store struct {
	mu      sync.RWMutex
	records []models.Shipment
	version uint64
}

// Snapshot is an immutable view of the collection for one render cycle.
type Snapshot struct {
	Records []models.Shipment
	Version uint64
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// ApplySnapshot replaces the whole collection with records. The feed already delivers
// full state, so nothing from the previous collection survives.
func (s *Store) ApplySnapshot(records []models.Shipment) {
	next := make([]models.Shipment, len(records))
	copy(next, records)

	s.mu.Lock()
	s.records = next
	s.version++
	s.mu.Unlock()
}

// Snapshot returns a copy of the current collection together with its version.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Shipment, len(s.records))
	copy(out, s.records)

	return Snapshot{Records: out, Version: s.version}
}

// Version counts applied snapshots.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version
}

// Lookup finds a shipment by its exact id.
func (s *Store) Lookup(id string) (models.Shipment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return models.Shipment{}, false
}

// Filtered returns the shipments matching every non-empty field of criteria, in
// collection order.
func (s *Store) Filtered(criteria models.FilterCriteria) []models.Shipment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Filter(s.records, criteria)
}

// CountsByServiceType counts shipments per service type. Types without shipments are absent.
func (s *Store) CountsByServiceType() map[models.ServiceType]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return countServiceTypes(s.records)
}

// CountsByPersonnel counts shipments per personnel value. Values without shipments are absent.
func (s *Store) CountsByPersonnel() map[models.Personnel]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return countPersonnel(s.records)
}

// TotalCount is the size of the unfiltered collection.
func (s *Store) TotalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// Filtered applies criteria to the snapshot.
func (s Snapshot) Filtered(criteria models.FilterCriteria) []models.Shipment {
	return Filter(s.Records, criteria)
}

// CountsByServiceType is Store.CountsByServiceType for this snapshot.
func (s Snapshot) CountsByServiceType() map[models.ServiceType]int {
	return countServiceTypes(s.Records)
}

// CountsByPersonnel is Store.CountsByPersonnel for this snapshot.
func (s Snapshot) CountsByPersonnel() map[models.Personnel]int {
	return countPersonnel(s.Records)
}

func countServiceTypes(records []models.Shipment) map[models.ServiceType]int {
	return lo.CountValuesBy(records, func(rec models.Shipment) models.ServiceType {
		return rec.ServiceType
	})
}

func countPersonnel(records []models.Shipment) map[models.Personnel]int {
	return lo.CountValuesBy(records, func(rec models.Shipment) models.Personnel {
		return rec.Personnel
	})
}

// Filter applies criteria to records without touching any store.
func Filter(records []models.Shipment, criteria models.FilterCriteria) []models.Shipment {
	term := strings.ToLower(criteria.SearchTerm)

	return lo.Filter(records, func(rec models.Shipment, _ int) bool {
		return Matches(rec, criteria.ServiceType, criteria.Personnel, term)
	})
}

// Matches is the conjunction of the three filter predicates. lowerTerm must already be lower-cased.
func Matches(rec models.Shipment, st models.ServiceType, p models.Personnel, lowerTerm string) bool {
	if st != "" && rec.ServiceType != st {
		return false
	}
	if p != "" && rec.Personnel != p {
		return false
	}
	return strings.Contains(strings.ToLower(rec.ID), lowerTerm)
}
