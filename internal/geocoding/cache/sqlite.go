// Package cache persists geocoding results so repeated place names skip the provider.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/UnknownOlympus/hermes/internal/models"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address    TEXT PRIMARY KEY,
		lat        REAL NOT NULL,
		lng        REAL NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`

var ErrEmptyKey = errors.New("geocode cache: empty address key")

// SQLiteCache maps address strings to coordinates. Keys are expected to be normalized by the caller.
type SQLiteCache struct {
	db *sql.DB
}

// Open opens (creating when needed) the cache database at path.
func Open(ctx context.Context, path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geocode cache %q: %w", path, err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to verify geocode cache %q: %w", path, err)
	}

	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create geocode cache schema: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// Get returns the cached coordinates for address, if any.
func (c *SQLiteCache) Get(ctx context.Context, address string) (models.Coordinates, bool, error) {
	if strings.TrimSpace(address) == "" {
		return models.Coordinates{}, false, ErrEmptyKey
	}

	var coords models.Coordinates
	err := c.db.QueryRowContext(ctx,
		`SELECT lat, lng FROM geocode_cache WHERE address = ?;`, address,
	).Scan(&coords.Latitude, &coords.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Coordinates{}, false, nil
	}
	if err != nil {
		return models.Coordinates{}, false, fmt.Errorf("failed to query geocode cache: %w", err)
	}

	return coords, true, nil
}

// Put stores or replaces the coordinates for address.
func (c *SQLiteCache) Put(ctx context.Context, address string, coords models.Coordinates) error {
	if strings.TrimSpace(address) == "" {
		return ErrEmptyKey
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO geocode_cache (address, lat, lng) VALUES (?, ?, ?);`,
		address, coords.Latitude, coords.Longitude,
	)
	if err != nil {
		return fmt.Errorf("failed to insert geocode cache entry %q: %w", address, err)
	}

	return nil
}

// Close releases the underlying database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
