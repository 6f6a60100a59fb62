package repository

import (
	"context"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeListenConn struct {
	execErr       error
	notifications chan *pgconn.Notification
	waitErr       error

	executed []string
	released bool
}

func (c *fakeListenConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	c.executed = append(c.executed, sql)
	return pgconn.NewCommandTag("LISTEN"), c.execErr
}

func (c *fakeListenConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	if c.waitErr != nil {
		return nil, c.waitErr
	}
	select {
	case n := <-c.notifications:
		return n, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeListenConn) Release() {
	c.released = true
}

func newTestListener(conn *fakeListenConn, acquireErr error) *Listener {
	return &Listener{
		acquire: func(context.Context) (listenConn, error) {
			if acquireErr != nil {
				return nil, acquireErr
			}
			return conn, nil
		},
		channel: ChangeChannel,
		log:     slog.Default(),
	}
}

func TestListener_Listen(t *testing.T) {
	t.Parallel()

	t.Run("acquire failure", func(t *testing.T) {
		t.Parallel()
		l := newTestListener(nil, assert.AnError)

		err := l.Listen(t.Context(), func(string) { t.Fatal("unexpected notification") })

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to acquire listener connection")
	})

	t.Run("acquire interrupted by cancellation returns nil", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		l := newTestListener(nil, context.Canceled)

		require.NoError(t, l.Listen(ctx, func(string) {}))
	})

	t.Run("LISTEN failure releases the connection", func(t *testing.T) {
		t.Parallel()
		conn := &fakeListenConn{execErr: assert.AnError}
		l := newTestListener(conn, nil)

		err := l.Listen(t.Context(), func(string) {})

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to listen on shipments_changed")
		assert.True(t, conn.released)
	})

	t.Run("delivers payloads until cancelled", func(t *testing.T) {
		t.Parallel()
		conn := &fakeListenConn{notifications: make(chan *pgconn.Notification, 2)}
		conn.notifications <- &pgconn.Notification{Channel: ChangeChannel, Payload: "S1"}
		conn.notifications <- &pgconn.Notification{Channel: ChangeChannel, Payload: "S2"}
		l := newTestListener(conn, nil)

		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		var ids []string
		err := l.Listen(ctx, func(id string) {
			ids = append(ids, id)
			if len(ids) == 2 {
				cancel()
			}
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"S1", "S2"}, ids)
		assert.Equal(t, []string{`LISTEN "shipments_changed"`}, conn.executed)
		assert.True(t, conn.released)
	})

	t.Run("wait failure is returned", func(t *testing.T) {
		t.Parallel()
		conn := &fakeListenConn{waitErr: assert.AnError}
		l := newTestListener(conn, nil)

		err := l.Listen(t.Context(), func(string) {})

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to wait for notification")
		assert.True(t, conn.released)
	})
}
