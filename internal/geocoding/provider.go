package geocoding

import (
	"context"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/hermes/internal/models"
)

// Provider is an interface that defines a method for geocoding an address.
// The Geocode method takes a context and an address string as input,
// and returns the corresponding coordinates and an error if any occurs.
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.Coordinates, error)
}

var (
	// ErrNotFound is wrapped by every provider error that means the address has no match.
	ErrNotFound = errors.New("address not found")
	// ErrInvalidCoords is returned when a provider answers with a point outside valid ranges.
	ErrInvalidCoords = errors.New("geocoding provider returned invalid coordinates")
	// ErrEmptyAddress is returned before any request is made for a blank address.
	ErrEmptyAddress = fmt.Errorf("%w: empty address", ErrNotFound)
)

func checkCoords(coords *models.Coordinates) (*models.Coordinates, error) {
	if !coords.Valid() {
		return nil, fmt.Errorf("%w: lat=%v lng=%v", ErrInvalidCoords, coords.Latitude, coords.Longitude)
	}
	return coords, nil
}
