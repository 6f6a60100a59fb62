package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/UnknownOlympus/hermes/internal/models"
)

// MemoryRepository keeps the collection in process memory. It backs local runs and tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]models.Shipment
}

// NewMemoryRepository returns an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]models.Shipment)}
}

// UpsertShipment implements Interface.
func (m *MemoryRepository) UpsertShipment(_ context.Context, shipment models.Shipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[shipment.ID] = shipment
	return nil
}

// DeleteShipment implements Interface.
func (m *MemoryRepository) DeleteShipment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.docs, id)
	return nil
}

// GetShipment implements Interface.
func (m *MemoryRepository) GetShipment(_ context.Context, id string) (models.Shipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	shipment, ok := m.docs[id]
	if !ok {
		return models.Shipment{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return shipment, nil
}

// ListShipments implements Interface; results are ordered by id like the Postgres store.
func (m *MemoryRepository) ListShipments(_ context.Context) ([]models.Shipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	shipments := make([]models.Shipment, 0, len(m.docs))
	for _, shipment := range m.docs {
		shipments = append(shipments, shipment)
	}
	sort.Slice(shipments, func(i, j int) bool { return shipments[i].ID < shipments[j].ID })

	return shipments, nil
}

// Ping implements Interface.
func (m *MemoryRepository) Ping(context.Context) error {
	return nil
}
