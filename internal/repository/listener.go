package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// listenConn is the dedicated connection a Listener holds for its whole lifetime.
type listenConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Release()
}

// poolConn adapts a pooled connection to listenConn.
type poolConn struct {
	*pgxpool.Conn
}

func (c poolConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	return c.Conn.Conn().WaitForNotification(ctx)
}

// Listener receives change notifications published by any instance writing to the same database.
type Listener struct {
	acquire func(ctx context.Context) (listenConn, error)
	channel string
	log     *slog.Logger
}

// NewListener returns a Listener on ChangeChannel.
func NewListener(pool *pgxpool.Pool, log *slog.Logger) *Listener {
	return &Listener{
		acquire: func(ctx context.Context) (listenConn, error) {
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return nil, err
			}
			return poolConn{Conn: conn}, nil
		},
		channel: ChangeChannel,
		log:     log,
	}
}

// Listen holds one pooled connection and calls notify with the payload (the shipment id)
// of every notification until ctx is cancelled. It returns nil on cancellation.
func (l *Listener) Listen(ctx context.Context, notify func(id string)) error {
	conn, err := l.acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}

	l.log.InfoContext(ctx, "Listening for shipment changes", "channel", l.channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("failed to wait for notification: %w", err)
		}

		l.log.DebugContext(ctx, "Shipment change notification", "id", notification.Payload, "pid", notification.PID)
		notify(notification.Payload)
	}
}
