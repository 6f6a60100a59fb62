package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UnknownOlympus/hermes/internal/models"
	"golang.org/x/time/rate"
)

// VisicomBaseURL -- Visicom API base URL.
const VisicomBaseURL = "https://api.visicom.ua/data-api/5.0/en/geocode.json"

// VisicomProvider implements geocoding using Visicom API.
type VisicomProvider struct {
	getter *jsonGetter
	apiKey string
	log    *slog.Logger
}

var (
	ErrVisicomEmptyResponse = fmt.Errorf("%w: visicom API returned empty response", ErrNotFound)
	ErrVisicomUnauthorized  = errors.New("visicom API unauthorized (invalid API key)")
)

// visicomResponse keeps only the centroid of the best feature.
type visicomResponse struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"geo_centroid"`
}

// NewVisicomProvider creates a new Visicom geocoding provider.
func NewVisicomProvider(apiKey string, rateLimit int, log *slog.Logger) *VisicomProvider {
	const timeout = 10

	return NewVisicomProviderWithClient(
		&http.Client{Timeout: timeout * time.Second},
		apiKey,
		rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		log,
	)
}

// NewVisicomProviderWithClient allows injecting custom HTTP client.
func NewVisicomProviderWithClient(
	client HTTPClient,
	apiKey string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *VisicomProvider {
	return &VisicomProvider{
		getter: &jsonGetter{name: "visicom", client: client, limiter: limiter, log: log},
		apiKey: apiKey,
		log:    log,
	}
}

// Geocode converts address into geographic coordinates using Visicom API.
func (vp *VisicomProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	const coordsListLength = 2

	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrEmptyAddress
	}

	vp.log.DebugContext(ctx, "Geocoding using Visicom", "address", address)

	query := url.Values{}
	query.Set("text", address)
	query.Set("limit", "1")
	query.Set("key", vp.apiKey)

	statusErrs := map[int]error{
		http.StatusUnauthorized: ErrVisicomUnauthorized,
		http.StatusForbidden:    ErrVisicomUnauthorized,
	}

	var result visicomResponse
	if err := vp.getter.get(ctx, VisicomBaseURL, query, &result, statusErrs); err != nil {
		return nil, err
	}

	coords := result.Geometry.Coordinates
	if len(coords) == 0 {
		return nil, ErrVisicomEmptyResponse
	}
	if len(coords) != coordsListLength {
		return nil, fmt.Errorf("%w: expected [lon, lat], got %v", ErrInvalidCoords, coords)
	}

	vp.log.DebugContext(ctx, "Visicom found result", "address", address, "lat", coords[1], "lon", coords[0])

	return checkCoords(&models.Coordinates{Latitude: coords[1], Longitude: coords[0]})
}
