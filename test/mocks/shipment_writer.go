package mocks

import (
	"context"

	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/stretchr/testify/mock"
)

// ShipmentWriter is a mock of form.ShipmentWriter.
type ShipmentWriter struct {
	mock.Mock
}

// Upsert provides a mock function with given fields: ctx, shipment.
func (_m *ShipmentWriter) Upsert(ctx context.Context, shipment models.Shipment) error {
	return _m.Called(ctx, shipment).Error(0)
}

// Delete provides a mock function with given fields: ctx, id.
func (_m *ShipmentWriter) Delete(ctx context.Context, id string) error {
	return _m.Called(ctx, id).Error(0)
}

// NewShipmentWriter creates a new instance of ShipmentWriter and registers cleanup assertions.
func NewShipmentWriter(t interface {
	mock.TestingT
	Cleanup(func())
}) *ShipmentWriter {
	m := &ShipmentWriter{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
