package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned by point reads of a missing document.
var ErrNotFound = errors.New("shipment not found")

// Interface is the document store contract: one document per shipment, keyed by id.
type Interface interface {
	UpsertShipment(ctx context.Context, shipment models.Shipment) error
	DeleteShipment(ctx context.Context, id string) error
	GetShipment(ctx context.Context, id string) (models.Shipment, error)
	ListShipments(ctx context.Context) ([]models.Shipment, error)
	Ping(ctx context.Context) error
}

// Notifier is implemented by stores that can report writes made by other processes.
type Notifier interface {
	Listen(ctx context.Context, notify func(id string)) error
}

// Database is the subset of *pgxpool.Pool the repository needs; pgxmock satisfies it in tests.
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Repository stores shipments in Postgres.
type Repository struct {
	db  Database
	log *slog.Logger
}

// NewRepository creates a new instance of Repository with the provided Database.
// It returns a pointer to the newly created Repository.
func NewRepository(db Database, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log}
}
