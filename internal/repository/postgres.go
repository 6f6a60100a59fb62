package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChangeChannel is the LISTEN/NOTIFY channel every write announces itself on.
const ChangeChannel = "shipments_changed"

const schema = `
	CREATE TABLE IF NOT EXISTS shipments (
		id           TEXT PRIMARY KEY,
		start_name   TEXT NOT NULL,
		start_lat    DOUBLE PRECISION NOT NULL,
		start_lng    DOUBLE PRECISION NOT NULL,
		end_name     TEXT NOT NULL,
		end_lat      DOUBLE PRECISION NOT NULL,
		end_lng      DOUBLE PRECISION NOT NULL,
		service_type TEXT NOT NULL,
		personnel    TEXT NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

// NewDatabase opens a pgx connection pool and verifies it with a ping.
func NewDatabase(ctx context.Context, host, port, user, password, name string) (*pgxpool.Pool, error) {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		Path:     name,
		RawQuery: "sslmode=disable",
	}

	pool, err := pgxpool.New(ctx, dsn.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the shipments table when it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create shipments schema: %w", err)
	}
	return nil
}

// UpsertShipment creates the document or overwrites it when the id already exists.
func (r *Repository) UpsertShipment(ctx context.Context, shipment models.Shipment) error {
	query := `
		INSERT INTO shipments (
			id, start_name, start_lat, start_lng, end_name, end_lat, end_lng, service_type, personnel
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			start_name = EXCLUDED.start_name,
			start_lat = EXCLUDED.start_lat,
			start_lng = EXCLUDED.start_lng,
			end_name = EXCLUDED.end_name,
			end_lat = EXCLUDED.end_lat,
			end_lng = EXCLUDED.end_lng,
			service_type = EXCLUDED.service_type,
			personnel = EXCLUDED.personnel,
			updated_at = now();
	`

	_, err := r.db.Exec(ctx, query,
		shipment.ID,
		shipment.StartLocation.Name, shipment.StartLocation.Lat, shipment.StartLocation.Lng,
		shipment.EndLocation.Name, shipment.EndLocation.Lat, shipment.EndLocation.Lng,
		string(shipment.ServiceType), string(shipment.Personnel),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert shipment: %w", err)
	}

	r.announce(ctx, shipment.ID)

	return nil
}

// DeleteShipment removes the document. Deleting a missing id is not an error.
func (r *Repository) DeleteShipment(ctx context.Context, id string) error {
	query := `DELETE FROM shipments WHERE id = $1;`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete shipment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.log.DebugContext(ctx, "Delete matched no shipment", "id", id)
		return nil
	}

	r.announce(ctx, id)

	return nil
}

// GetShipment reads a single document.
func (r *Repository) GetShipment(ctx context.Context, id string) (models.Shipment, error) {
	query := `
		SELECT id, start_name, start_lat, start_lng, end_name, end_lat, end_lng, service_type, personnel
		FROM shipments
		WHERE id = $1;
	`

	shipment, err := scanShipment(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Shipment{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return models.Shipment{}, fmt.Errorf("failed to get shipment: %w", err)
	}

	return shipment, nil
}

// ListShipments returns the whole collection ordered by id.
func (r *Repository) ListShipments(ctx context.Context) ([]models.Shipment, error) {
	query := `
		SELECT id, start_name, start_lat, start_lng, end_name, end_lat, end_lng, service_type, personnel
		FROM shipments
		ORDER BY id;
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipments: %w", err)
	}
	defer rows.Close()

	shipments := []models.Shipment{}
	for rows.Next() {
		shipment, errScan := scanShipment(rows)
		if errScan != nil {
			return nil, fmt.Errorf("failed to scan shipment: %w", errScan)
		}
		shipments = append(shipments, shipment)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return shipments, nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// announce tells other instances the collection changed. The write already
// succeeded, so a failed notification is only logged.
func (r *Repository) announce(ctx context.Context, id string) {
	if _, err := r.db.Exec(ctx, `SELECT pg_notify($1, $2);`, ChangeChannel, id); err != nil {
		r.log.WarnContext(ctx, "Failed to publish change notification", "id", id, "error", err)
	}
}

func scanShipment(row pgx.Row) (models.Shipment, error) {
	var (
		shipment    models.Shipment
		serviceType string
		personnel   string
	)

	err := row.Scan(
		&shipment.ID,
		&shipment.StartLocation.Name, &shipment.StartLocation.Lat, &shipment.StartLocation.Lng,
		&shipment.EndLocation.Name, &shipment.EndLocation.Lat, &shipment.EndLocation.Lng,
		&serviceType, &personnel,
	)
	if err != nil {
		return models.Shipment{}, err
	}

	shipment.ServiceType = models.ServiceType(serviceType)
	shipment.Personnel = models.Personnel(personnel)

	return shipment, nil
}
