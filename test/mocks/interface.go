package mocks

import (
	"context"

	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/stretchr/testify/mock"
)

// Interface is a mock of repository.Interface.
type Interface struct {
	mock.Mock
}

// UpsertShipment provides a mock function with given fields: ctx, shipment.
func (_m *Interface) UpsertShipment(ctx context.Context, shipment models.Shipment) error {
	return _m.Called(ctx, shipment).Error(0)
}

// DeleteShipment provides a mock function with given fields: ctx, id.
func (_m *Interface) DeleteShipment(ctx context.Context, id string) error {
	return _m.Called(ctx, id).Error(0)
}

// GetShipment provides a mock function with given fields: ctx, id.
func (_m *Interface) GetShipment(ctx context.Context, id string) (models.Shipment, error) {
	ret := _m.Called(ctx, id)

	var shipment models.Shipment
	if ret.Get(0) != nil {
		shipment = ret.Get(0).(models.Shipment)
	}

	return shipment, ret.Error(1)
}

// ListShipments provides a mock function with given fields: ctx.
func (_m *Interface) ListShipments(ctx context.Context) ([]models.Shipment, error) {
	ret := _m.Called(ctx)

	var shipments []models.Shipment
	if ret.Get(0) != nil {
		shipments = ret.Get(0).([]models.Shipment)
	}

	return shipments, ret.Error(1)
}

// Ping provides a mock function with given fields: ctx.
func (_m *Interface) Ping(ctx context.Context) error {
	return _m.Called(ctx).Error(0)
}

// NewInterface creates a new instance of Interface and registers cleanup assertions.
func NewInterface(t interface {
	mock.TestingT
	Cleanup(func())
}) *Interface {
	m := &Interface{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
