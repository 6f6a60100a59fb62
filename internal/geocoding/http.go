package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"
)

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// statusError is returned for any non-200 answer not handled by the provider itself.
type statusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.Code, e.Body)
}

// jsonGetter performs rate limited GET requests against a JSON geocoding API.
type jsonGetter struct {
	name    string
	client  HTTPClient
	limiter *rate.Limiter
	headers map[string]string
	log     *slog.Logger
}

// get waits for the limiter, issues GET baseURL?query and decodes the body into out.
// Status codes listed in statusErrs are mapped to the given errors.
func (g *jsonGetter) get(
	ctx context.Context,
	baseURL string,
	query url.Values,
	out any,
	statusErrs map[int]error,
) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit exceeded: %w", err)
		}
	}

	reqURL, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("failed to parse base URL: %w", err)
	}
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range g.headers {
		req.Header.Set(key, value)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if mapped, ok := statusErrs[resp.StatusCode]; ok {
			return mapped
		}
		g.log.ErrorContext(ctx, "Geocoding API error", "provider", g.name, "status", resp.StatusCode, "body", string(body))
		return &statusError{Provider: g.name, Code: resp.StatusCode, Body: string(body)}
	}

	g.log.DebugContext(ctx, "Geocoding raw response", "provider", g.name, "body", string(body))

	if err = json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", g.name, err)
	}

	return nil
}
