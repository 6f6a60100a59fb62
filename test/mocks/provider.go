package mocks

import (
	"context"

	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/stretchr/testify/mock"
)

// Provider is a mock of geocoding.Provider.
type Provider struct {
	mock.Mock
}

// Geocode provides a mock function with given fields: ctx, address.
func (_m *Provider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	ret := _m.Called(ctx, address)

	var coords *models.Coordinates
	if fn, ok := ret.Get(0).(func(context.Context, string) *models.Coordinates); ok {
		coords = fn(ctx, address)
	} else if ret.Get(0) != nil {
		coords = ret.Get(0).(*models.Coordinates)
	}

	return coords, ret.Error(1)
}

// NewProvider creates a new instance of Provider and registers cleanup assertions.
func NewProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *Provider {
	m := &Provider{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
