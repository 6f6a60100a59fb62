package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/repository"
)

// Feed fronts the document store: writes go through it, and every change to the
// collection is broadcast to subscribers as a full snapshot.
type Feed struct {
	log     *slog.Logger         // Logger for feed activity
	repo    repository.Interface // Document store
	metrics *metrics.Metrics     // Metrics for snapshots and store failures
	resync  time.Duration        // Period of the full re-read in Run

	refreshMu sync.Mutex // serializes read-then-publish so snapshots go out in read order

	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	latest []models.Shipment
	loaded bool
}

type subscriber struct {
	mailbox  chan []models.Shipment // holds at most the newest undelivered snapshot
	done     chan struct{}
	finished chan struct{}
}

// NewFeed creates a Feed over repo. resync is the period of the full re-read
// performed by Run; a non-positive value disables it.
func NewFeed(log *slog.Logger, repo repository.Interface, metrics *metrics.Metrics, resync time.Duration) *Feed {
	return &Feed{
		log:     log,
		repo:    repo,
		metrics: metrics,
		resync:  resync,
		subs:    make(map[uint64]*subscriber),
	}
}

// Start performs the initial read of the collection.
func (f *Feed) Start(ctx context.Context) error {
	if err := f.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load initial snapshot: %w", err)
	}

	f.log.InfoContext(ctx, "Shipment feed started", "shipments", len(f.current()))

	return nil
}

// Run keeps the feed in sync with writes made elsewhere: it refreshes whenever the
// notifier reports a change and on every resync tick. notifier may be nil.
// Run blocks until ctx is cancelled.
func (f *Feed) Run(ctx context.Context, notifier repository.Notifier) {
	changes := make(chan struct{}, 1)
	listenDone := make(chan struct{})

	if notifier != nil {
		go func() {
			defer close(listenDone)
			err := notifier.Listen(ctx, func(string) {
				select {
				case changes <- struct{}{}:
				default:
				}
			})
			if err != nil {
				f.log.ErrorContext(ctx, "Change listener stopped, relying on periodic resync", "error", err)
			}
		}()
	} else {
		close(listenDone)
	}
	defer func() { <-listenDone }()

	var tick <-chan time.Time
	if f.resync > 0 {
		ticker := time.NewTicker(f.resync)
		defer ticker.Stop()
		tick = ticker.C
	}

	f.log.InfoContext(ctx, "Shipment feed sync loop started", "resync", f.resync)

	for {
		select {
		case <-ctx.Done():
			f.log.InfoContext(ctx, "Shipment feed sync loop stopped.")
			return
		case <-changes:
			f.refreshLogged(ctx, "notification")
		case <-tick:
			f.refreshLogged(ctx, "resync")
		}
	}
}

// Subscribe registers fn to receive full snapshots. If a snapshot has already been
// loaded, fn receives it first. Deliveries run on a dedicated goroutine, one at a
// time; when fn falls behind, intermediate snapshots are dropped in favour of the
// newest. The returned function unsubscribes and waits for an in-progress delivery
// to finish, so it must not be called from within fn.
func (f *Feed) Subscribe(fn func([]models.Shipment)) func() {
	sub := &subscriber{
		mailbox:  make(chan []models.Shipment, 1),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = sub
	if f.loaded {
		sub.mailbox <- f.latest
	}
	f.mu.Unlock()

	f.metrics.Subscribers.Inc()

	go func() {
		defer close(sub.finished)
		for {
			select {
			case <-sub.done:
				return
			case snapshot := <-sub.mailbox:
				select {
				case <-sub.done:
					return
				default:
				}
				fn(snapshot)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()

			close(sub.done)
			<-sub.finished
			f.metrics.Subscribers.Dec()
		})
	}
}

// Upsert writes the shipment and publishes the resulting snapshot.
func (f *Feed) Upsert(ctx context.Context, shipment models.Shipment) error {
	if err := f.repo.UpsertShipment(ctx, shipment); err != nil {
		f.metrics.StoreErrors.WithLabelValues("upsert").Inc()
		return fmt.Errorf("failed to upsert shipment %q: %w", shipment.ID, err)
	}

	f.refreshLogged(ctx, "upsert")

	return nil
}

// Delete removes the shipment and publishes the resulting snapshot.
func (f *Feed) Delete(ctx context.Context, id string) error {
	if err := f.repo.DeleteShipment(ctx, id); err != nil {
		f.metrics.StoreErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("failed to delete shipment %q: %w", id, err)
	}

	f.refreshLogged(ctx, "delete")

	return nil
}

// Get reads a single shipment straight from the store.
func (f *Feed) Get(ctx context.Context, id string) (models.Shipment, error) {
	shipment, err := f.repo.GetShipment(ctx, id)
	if err != nil {
		return models.Shipment{}, fmt.Errorf("failed to get shipment %q: %w", id, err)
	}
	return shipment, nil
}

// Ping checks the underlying store.
func (f *Feed) Ping(ctx context.Context) error {
	return f.repo.Ping(ctx)
}

// Refresh re-reads the collection and publishes it to every subscriber.
func (f *Feed) Refresh(ctx context.Context) error {
	f.refreshMu.Lock()
	defer f.refreshMu.Unlock()

	shipments, err := f.repo.ListShipments(ctx)
	if err != nil {
		f.metrics.StoreErrors.WithLabelValues("list").Inc()
		return fmt.Errorf("failed to list shipments: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.latest = shipments
	f.loaded = true
	for _, sub := range f.subs {
		select {
		case <-sub.mailbox:
		default:
		}
		sub.mailbox <- shipments
	}
	f.metrics.SnapshotsPublished.Inc()

	f.log.DebugContext(ctx, "Snapshot published", "shipments", len(shipments), "subscribers", len(f.subs))

	return nil
}

func (f *Feed) refreshLogged(ctx context.Context, cause string) {
	if err := f.Refresh(ctx); err != nil {
		f.log.ErrorContext(ctx, "Failed to refresh shipments", "cause", cause, "error", err)
	}
}

func (f *Feed) current() []models.Shipment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}
