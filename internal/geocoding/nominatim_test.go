package geocoding_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/UnknownOlympus/hermes/internal/geocoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// mockHTTPClient is a mock implementation of HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func respond(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(bytes.NewBufferString(body)),
		}, nil
	}
}

func TestNominatimProvider_Geocode(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()
	unlimited := rate.NewLimiter(rate.Inf, 0)

	t.Run("successful geocoding", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, http.MethodGet, req.Method)
				assert.Contains(t, req.URL.String(), "nominatim.openstreetmap.org/search")
				assert.Equal(t, "Paris", req.URL.Query().Get("q"))
				assert.Equal(t, "json", req.URL.Query().Get("format"))
				assert.Equal(t, "1", req.URL.Query().Get("limit"))
				assert.Contains(t, req.Header.Get("User-Agent"), "Hermes-Shipment-Dashboard")

				return respond(http.StatusOK, `[{"lat":"48.8566","lon":"2.3522"}]`)(req)
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, "", unlimited, logger)
		coords, err := provider.Geocode(ctx, " Paris ")

		require.NoError(t, err)
		assert.InEpsilon(t, 48.8566, coords.Latitude, 0.0001)
		assert.InEpsilon(t, 2.3522, coords.Longitude, 0.0001)
	})

	t.Run("custom base URL", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, "geo.internal", req.URL.Host)
				return respond(http.StatusOK, `[{"lat":"52.52","lon":"13.405"}]`)(req)
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, "http://geo.internal/search", unlimited, logger)
		_, err := provider.Geocode(ctx, "Berlin")

		require.NoError(t, err)
	})

	t.Run("empty response is a miss", func(t *testing.T) {
		provider := geocoding.NewNominatimProviderWithClient(
			&mockHTTPClient{doFunc: respond(http.StatusOK, `[]`)}, "", unlimited, logger)

		coords, err := provider.Geocode(ctx, "Atlantis")

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrNominatimEmptyResponse)
		require.ErrorIs(t, err, geocoding.ErrNotFound)
	})

	t.Run("HTTP error status", func(t *testing.T) {
		provider := geocoding.NewNominatimProviderWithClient(
			&mockHTTPClient{doFunc: respond(http.StatusTooManyRequests, `{"error":"Rate limit exceeded"}`)},
			"", unlimited, logger)

		coords, err := provider.Geocode(ctx, "Paris")

		require.Nil(t, coords)
		require.ErrorContains(t, err, "nominatim API returned status 429")
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		provider := geocoding.NewNominatimProviderWithClient(
			&mockHTTPClient{doFunc: respond(http.StatusOK, `invalid json`)}, "", unlimited, logger)

		_, err := provider.Geocode(ctx, "Paris")

		require.ErrorContains(t, err, "failed to decode nominatim response")
	})

	t.Run("invalid latitude", func(t *testing.T) {
		provider := geocoding.NewNominatimProviderWithClient(
			&mockHTTPClient{doFunc: respond(http.StatusOK, `[{"lat":"north","lon":"2.35"}]`)}, "", unlimited, logger)

		_, err := provider.Geocode(ctx, "Paris")

		require.ErrorIs(t, err, geocoding.ErrInvalidCoords)
		require.ErrorContains(t, err, "invalid latitude")
	})

	t.Run("invalid longitude", func(t *testing.T) {
		provider := geocoding.NewNominatimProviderWithClient(
			&mockHTTPClient{doFunc: respond(http.StatusOK, `[{"lat":"48.85","lon":"east"}]`)}, "", unlimited, logger)

		_, err := provider.Geocode(ctx, "Paris")

		require.ErrorIs(t, err, geocoding.ErrInvalidCoords)
		require.ErrorContains(t, err, "invalid longitude")
	})

	t.Run("HTTP client returns error", func(t *testing.T) {
		provider := geocoding.NewNominatimProviderWithClient(
			&mockHTTPClient{doFunc: func(*http.Request) (*http.Response, error) { return nil, assert.AnError }},
			"", unlimited, logger)

		_, err := provider.Geocode(ctx, "Paris")

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to execute geocoding request")
	})

	t.Run("empty address", func(t *testing.T) {
		provider := geocoding.NewNominatimProviderWithClient(&mockHTTPClient{doFunc: func(*http.Request) (*http.Response, error) {
			t.Fatal("HTTP client should not be called for an empty address")
			return nil, nil
		}}, "", unlimited, logger)

		_, err := provider.Geocode(ctx, "")

		require.ErrorIs(t, err, geocoding.ErrEmptyAddress)
	})

	t.Run("limiter respects context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		limiter := rate.NewLimiter(rate.Every(time.Second), 1)
		limiter.Allow() // drain the only token
		provider := geocoding.NewNominatimProviderWithClient(&mockHTTPClient{doFunc: func(*http.Request) (*http.Response, error) {
			t.Fatal("HTTP client should not be called when rate limit blocks")
			return nil, nil
		}}, "", limiter, logger)

		_, err := provider.Geocode(cancelled, "Paris")

		require.ErrorContains(t, err, "rate limit exceeded")
	})
}
