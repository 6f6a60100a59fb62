package service_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/service"
	"github.com/UnknownOlympus/hermes/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// opencensus (pulled in by the maps client) starts a package-level worker in init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// recorder collects delivered snapshots.
type recorder struct {
	mu        sync.Mutex
	snapshots [][]models.Shipment
}

func (r *recorder) deliver(s []models.Shipment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recorder) last() ([]models.Shipment, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil, 0
	}
	return r.snapshots[len(r.snapshots)-1], len(r.snapshots)
}

// fakeNotifier lets a test trigger change notifications.
type fakeNotifier struct {
	ready chan func(string)
}

func (n *fakeNotifier) Listen(ctx context.Context, notify func(string)) error {
	n.ready <- notify
	<-ctx.Done()
	return nil
}

func shipment(id string) models.Shipment {
	return models.Shipment{
		ID:            id,
		StartLocation: models.Location{Name: "Paris", Lat: 48.8566, Lng: 2.3522},
		EndLocation:   models.Location{Name: "Berlin", Lat: 52.52, Lng: 13.405},
		ServiceType:   models.ServiceOneWayOBC,
		Personnel:     models.PersonnelLC,
	}
}

func newFeed(t *testing.T, repo *mocks.Interface) (*service.Feed, *metrics.Metrics) {
	t.Helper()
	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())
	return service.NewFeed(slog.Default(), repo, appMetrics, 0), appMetrics
}

func TestFeed_Subscribe(t *testing.T) {
	t.Parallel()

	t.Run("subscriber before load receives the initial snapshot", func(t *testing.T) {
		t.Parallel()
		repo := mocks.NewInterface(t)
		feed, _ := newFeed(t, repo)

		rec := &recorder{}
		unsubscribe := feed.Subscribe(rec.deliver)
		defer unsubscribe()

		repo.On("ListShipments", mock.Anything).Return([]models.Shipment{shipment("a")}, nil).Once()
		require.NoError(t, feed.Start(t.Context()))

		require.Eventually(t, func() bool {
			snap, n := rec.last()
			return n == 1 && len(snap) == 1 && snap[0].ID == "a"
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("late subscriber receives the current snapshot", func(t *testing.T) {
		t.Parallel()
		repo := mocks.NewInterface(t)
		feed, appMetrics := newFeed(t, repo)

		repo.On("ListShipments", mock.Anything).
			Return([]models.Shipment{shipment("a"), shipment("b")}, nil).Once()
		require.NoError(t, feed.Start(t.Context()))

		rec := &recorder{}
		unsubscribe := feed.Subscribe(rec.deliver)

		require.Eventually(t, func() bool {
			snap, _ := rec.last()
			return len(snap) == 2
		}, time.Second, 5*time.Millisecond)
		assert.InDelta(t, 1, testutil.ToFloat64(appMetrics.Subscribers), 0)

		unsubscribe()
		unsubscribe()
		assert.InDelta(t, 0, testutil.ToFloat64(appMetrics.Subscribers), 0)
	})

	t.Run("no delivery after unsubscribe", func(t *testing.T) {
		t.Parallel()
		repo := mocks.NewInterface(t)
		feed, _ := newFeed(t, repo)

		rec := &recorder{}
		unsubscribe := feed.Subscribe(rec.deliver)
		unsubscribe()

		repo.On("ListShipments", mock.Anything).Return([]models.Shipment{shipment("a")}, nil).Once()
		require.NoError(t, feed.Refresh(t.Context()))

		time.Sleep(20 * time.Millisecond)
		_, n := rec.last()
		assert.Zero(t, n)
	})

	t.Run("slow subscriber ends on the newest snapshot", func(t *testing.T) {
		t.Parallel()
		repo := mocks.NewInterface(t)
		feed, _ := newFeed(t, repo)

		release := make(chan struct{})
		rec := &recorder{}
		unsubscribe := feed.Subscribe(func(s []models.Shipment) {
			<-release
			rec.deliver(s)
		})
		defer unsubscribe()

		for i, id := range []string{"a", "b", "c", "d"} {
			snapshot := make([]models.Shipment, 0, i+1)
			for _, prev := range []string{"a", "b", "c", "d"}[:i+1] {
				snapshot = append(snapshot, shipment(prev))
			}
			repo.On("ListShipments", mock.Anything).Return(snapshot, nil).Once()
			require.NoError(t, feed.Refresh(t.Context()), id)
		}
		close(release)

		require.Eventually(t, func() bool {
			snap, _ := rec.last()
			return len(snap) == 4
		}, time.Second, 5*time.Millisecond)

		_, n := rec.last()
		assert.LessOrEqual(t, n, 2)
	})
}

func TestFeed_Start(t *testing.T) {
	t.Parallel()

	repo := mocks.NewInterface(t)
	feed, appMetrics := newFeed(t, repo)

	repo.On("ListShipments", mock.Anything).Return(nil, assert.AnError).Once()

	err := feed.Start(t.Context())

	require.ErrorIs(t, err, assert.AnError)
	require.ErrorContains(t, err, "failed to load initial snapshot")
	assert.InDelta(t, 1, testutil.ToFloat64(appMetrics.StoreErrors.WithLabelValues("list")), 0)
}

func TestFeed_Writes(t *testing.T) {
	t.Parallel()

	t.Run("upsert failure publishes nothing", func(t *testing.T) {
		t.Parallel()
		repo := mocks.NewInterface(t)
		feed, appMetrics := newFeed(t, repo)

		repo.On("UpsertShipment", mock.Anything, shipment("a")).Return(assert.AnError).Once()

		err := feed.Upsert(t.Context(), shipment("a"))

		require.ErrorIs(t, err, assert.AnError)
		assert.InDelta(t, 1, testutil.ToFloat64(appMetrics.StoreErrors.WithLabelValues("upsert")), 0)
		assert.InDelta(t, 0, testutil.ToFloat64(appMetrics.SnapshotsPublished), 0)
	})

	t.Run("upsert publishes the new snapshot", func(t *testing.T) {
		t.Parallel()
		repo := mocks.NewInterface(t)
		feed, appMetrics := newFeed(t, repo)

		rec := &recorder{}
		unsubscribe := feed.Subscribe(rec.deliver)
		defer unsubscribe()

		repo.On("UpsertShipment", mock.Anything, shipment("a")).Return(nil).Once()
		repo.On("ListShipments", mock.Anything).Return([]models.Shipment{shipment("a")}, nil).Once()

		require.NoError(t, feed.Upsert(t.Context(), shipment("a")))

		require.Eventually(t, func() bool {
			snap, _ := rec.last()
			return len(snap) == 1
		}, time.Second, 5*time.Millisecond)
		assert.InDelta(t, 1, testutil.ToFloat64(appMetrics.SnapshotsPublished), 0)
	})

	t.Run("successful write survives a failed refresh", func(t *testing.T) {
		t.Parallel()
		repo := mocks.NewInterface(t)
		feed, _ := newFeed(t, repo)

		repo.On("DeleteShipment", mock.Anything, "a").Return(nil).Once()
		repo.On("ListShipments", mock.Anything).Return(nil, assert.AnError).Once()

		require.NoError(t, feed.Delete(t.Context(), "a"))
	})

	t.Run("delete failure", func(t *testing.T) {
		t.Parallel()
		repo := mocks.NewInterface(t)
		feed, appMetrics := newFeed(t, repo)

		repo.On("DeleteShipment", mock.Anything, "a").Return(assert.AnError).Once()

		err := feed.Delete(t.Context(), "a")

		require.ErrorIs(t, err, assert.AnError)
		assert.InDelta(t, 1, testutil.ToFloat64(appMetrics.StoreErrors.WithLabelValues("delete")), 0)
	})

	t.Run("get passes through", func(t *testing.T) {
		t.Parallel()
		repo := mocks.NewInterface(t)
		feed, _ := newFeed(t, repo)

		repo.On("GetShipment", mock.Anything, "a").Return(shipment("a"), nil).Once()
		repo.On("GetShipment", mock.Anything, "b").Return(nil, assert.AnError).Once()

		got, err := feed.Get(t.Context(), "a")
		require.NoError(t, err)
		assert.Equal(t, shipment("a"), got)

		_, err = feed.Get(t.Context(), "b")
		require.ErrorIs(t, err, assert.AnError)
	})
}

func TestFeed_Run(t *testing.T) {
	t.Parallel()

	t.Run("notification triggers a refresh", func(t *testing.T) {
		t.Parallel()
		repo := mocks.NewInterface(t)
		feed, _ := newFeed(t, repo)

		rec := &recorder{}
		unsubscribe := feed.Subscribe(rec.deliver)
		defer unsubscribe()

		repo.On("ListShipments", mock.Anything).Return([]models.Shipment{shipment("remote")}, nil)

		notifier := &fakeNotifier{ready: make(chan func(string), 1)}
		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan struct{})
		go func() {
			defer close(done)
			feed.Run(ctx, notifier)
		}()

		notify := <-notifier.ready
		notify("remote")

		require.Eventually(t, func() bool {
			snap, _ := rec.last()
			return len(snap) == 1 && snap[0].ID == "remote"
		}, time.Second, 5*time.Millisecond)

		cancel()
		<-done
	})

	t.Run("resync ticker refreshes without a notifier", func(t *testing.T) {
		t.Parallel()
		repo := mocks.NewInterface(t)
		feed := service.NewFeed(slog.Default(), repo, metrics.NewMetrics(prometheus.NewRegistry()), 10*time.Millisecond)

		rec := &recorder{}
		unsubscribe := feed.Subscribe(rec.deliver)
		defer unsubscribe()

		repo.On("ListShipments", mock.Anything).Return([]models.Shipment{shipment("a")}, nil)

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan struct{})
		go func() {
			defer close(done)
			feed.Run(ctx, nil)
		}()

		require.Eventually(t, func() bool {
			_, n := rec.last()
			return n > 0
		}, time.Second, 5*time.Millisecond)

		cancel()
		<-done
	})
}
