package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/hermes/internal/models"
	"golang.org/x/time/rate"
)

// NominatimBaseURL is the public OpenStreetMap search endpoint.
const NominatimBaseURL = "https://nominatim.openstreetmap.org/search"

// nominatimUserAgent must identify the application per the Nominatim usage policy:
// https://operations.osmfoundation.org/policies/nominatim/
const nominatimUserAgent = "Hermes-Shipment-Dashboard/1.0 (https://github.com/UnknownOlympus/hermes)"

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// The public instance allows 1 request/second, which is the default limiter rate.
type NominatimProvider struct {
	getter  *jsonGetter
	baseURL string
	log     *slog.Logger
}

// nominatimResponse represents one search hit; coordinates arrive as strings.
type nominatimResponse struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// ErrNominatimEmptyResponse is returned when the search has no hits.
var ErrNominatimEmptyResponse = fmt.Errorf("%w: nominatim API returned empty response", ErrNotFound)

// NewNominatimProvider creates a Nominatim provider talking to baseURL (the public endpoint when empty).
func NewNominatimProvider(baseURL string, rateLimit int, log *slog.Logger) *NominatimProvider {
	const timeout = 10
	if rateLimit <= 0 {
		rateLimit = 1
	}
	return NewNominatimProviderWithClient(
		&http.Client{Timeout: timeout * time.Second},
		baseURL,
		rate.NewLimiter(rate.Limit(rateLimit), 1),
		log,
	)
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client and limiter.
func NewNominatimProviderWithClient(
	client HTTPClient,
	baseURL string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *NominatimProvider {
	if baseURL == "" {
		baseURL = NominatimBaseURL
	}
	return &NominatimProvider{
		getter: &jsonGetter{
			name:    "nominatim",
			client:  client,
			limiter: limiter,
			headers: map[string]string{"User-Agent": nominatimUserAgent},
			log:     log,
		},
		baseURL: baseURL,
		log:     log,
	}
}

// Geocode resolves address to the best (first) Nominatim hit.
func (np *NominatimProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrEmptyAddress
	}

	np.log.DebugContext(ctx, "Geocoding using Nominatim", "address", address)

	query := url.Values{}
	query.Set("q", address)
	query.Set("format", "json")
	query.Set("limit", "1")

	var results []nominatimResponse
	if err := np.getter.get(ctx, np.baseURL, query, &results, nil); err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, ErrNominatimEmptyResponse
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude: %s", ErrInvalidCoords, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude: %s", ErrInvalidCoords, results[0].Lon)
	}

	np.log.DebugContext(ctx, "Nominatim found result", "address", address, "lat", lat, "lon", lon)

	return checkCoords(&models.Coordinates{Latitude: lat, Longitude: lon})
}
