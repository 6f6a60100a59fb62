package geocoding

import (
	"context"
	"errors"
	"time"

	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/UnknownOlympus/hermes/internal/models"
)

// InstrumentedProvider records request latency and outcome for the wrapped provider.
type InstrumentedProvider struct {
	next    Provider
	name    string
	metrics *metrics.Metrics
}

// NewInstrumentedProvider labels every observation with name.
func NewInstrumentedProvider(next Provider, name string, metrics *metrics.Metrics) *InstrumentedProvider {
	return &InstrumentedProvider{next: next, name: name, metrics: metrics}
}

// Geocode implements Provider.
func (ip *InstrumentedProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	startTime := time.Now()
	coords, err := ip.next.Geocode(ctx, address)
	ip.metrics.GeocodeSeconds.WithLabelValues(ip.name).Observe(time.Since(startTime).Seconds())

	status := "success"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	ip.metrics.GeocodeRequests.WithLabelValues(ip.name, status).Inc()

	return coords, err
}
