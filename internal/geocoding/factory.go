package geocoding

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"googlemaps.github.io/maps"
)

// ProviderType represents the type of geocoding provider.
type ProviderType string

const (
	// ProviderTypeGoogle represents Google Maps geocoding provider.
	ProviderTypeGoogle ProviderType = "google"
	// ProviderTypeNominatim represents OpenStreetMap Nominatim geocoding provider.
	ProviderTypeNominatim ProviderType = "nominatim"
	// ProviderTypeVisicom represents Visicom Maps geocoding provider.
	ProviderTypeVisicom ProviderType = "visicom"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported geocoding provider")
	ErrMissingAPIKey       = errors.New("geocoding provider requires an API key")
)

// ParseProviderType accepts a provider name in any case and with surrounding spaces.
func ParseProviderType(raw string) (ProviderType, error) {
	switch t := ProviderType(strings.ToLower(strings.TrimSpace(raw))); t {
	case ProviderTypeGoogle, ProviderTypeNominatim, ProviderTypeVisicom:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, raw)
	}
}

// ProviderConfig holds configuration for creating a geocoding provider.
type ProviderConfig struct {
	Type      ProviderType // Type of provider to create
	APIKey    string       // API key (Google, Visicom)
	BaseURL   string       // Endpoint override (Nominatim, for self-hosted instances)
	RateLimit int          // Requests per second; zero picks the provider default
	Logger    *slog.Logger // Logger for the provider
}

// NewProvider creates the geocoding provider named by config.Type.
func NewProvider(config ProviderConfig) (Provider, error) {
	providerType, err := ParseProviderType(string(config.Type))
	if err != nil {
		return nil, err
	}

	switch providerType {
	case ProviderTypeGoogle:
		return newGoogleProvider(config)
	case ProviderTypeNominatim:
		return NewNominatimProvider(config.BaseURL, config.RateLimit, config.Logger), nil
	case ProviderTypeVisicom:
		return newVisicomProvider(config)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, config.Type)
	}
}

func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, ProviderTypeGoogle)
	}

	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(config.APIKey),
	}
	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, config.Logger), nil
}

func newVisicomProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, ProviderTypeVisicom)
	}

	if config.RateLimit == 0 {
		config.RateLimit = 5
		config.Logger.Warn("Rate limit for Visicom API not set, set a default value", "value", config.RateLimit)
	}

	return NewVisicomProvider(config.APIKey, config.RateLimit, config.Logger), nil
}
