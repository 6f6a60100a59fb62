package geocoding_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/hermes/internal/geocoding"
	"github.com/UnknownOlympus/hermes/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func TestGoogleProvider_Geocode(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, slog.Default())
	ctx := t.Context()

	t.Run("api returns error", func(t *testing.T) {
		req := &maps.GeocodingRequest{Address: "Paris"}
		mockClient.On("Geocode", ctx, req).Return(nil, assert.AnError).Once()

		coords, err := provider.Geocode(ctx, "Paris")

		require.Nil(t, coords)
		require.ErrorIs(t, err, assert.AnError)
		assert.NotErrorIs(t, err, geocoding.ErrNotFound)
	})

	t.Run("zero results is a miss", func(t *testing.T) {
		req := &maps.GeocodingRequest{Address: "Atlantis"}
		mockClient.On("Geocode", ctx, req).Return(nil, errors.New("maps: ZERO_RESULTS - ")).Once()

		_, err := provider.Geocode(ctx, "Atlantis")

		require.ErrorIs(t, err, geocoding.ErrNotFound)
	})

	t.Run("empty response", func(t *testing.T) {
		req := &maps.GeocodingRequest{Address: "Atlantis"}
		mockClient.On("Geocode", ctx, req).Return(nil, nil).Once()

		coords, err := provider.Geocode(ctx, "  Atlantis ")

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrEmptyResponse)
		require.ErrorIs(t, err, geocoding.ErrNotFound)
	})

	t.Run("blank address never reaches the API", func(t *testing.T) {
		_, err := provider.Geocode(ctx, "   ")

		require.ErrorIs(t, err, geocoding.ErrEmptyAddress)
	})

	t.Run("successful geocoding", func(t *testing.T) {
		req := &maps.GeocodingRequest{Address: "Berlin"}
		response := []maps.GeocodingResult{
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 52.52, Lng: 13.405}}},
		}
		mockClient.On("Geocode", ctx, req).Return(response, nil).Once()

		coords, err := provider.Geocode(ctx, "Berlin")

		require.NoError(t, err)
		require.InEpsilon(t, 52.52, coords.Latitude, 0.0001)
		require.InEpsilon(t, 13.405, coords.Longitude, 0.0001)
	})

	t.Run("out of range coordinates", func(t *testing.T) {
		req := &maps.GeocodingRequest{Address: "Nowhere"}
		response := []maps.GeocodingResult{
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 95, Lng: 13.405}}},
		}
		mockClient.On("Geocode", ctx, req).Return(response, nil).Once()

		_, err := provider.Geocode(ctx, "Nowhere")

		require.ErrorIs(t, err, geocoding.ErrInvalidCoords)
	})
}
