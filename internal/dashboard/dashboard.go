// Package dashboard holds the per-session application state: the mirrored shipment
// collection, the draft form and the current filter.
package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/UnknownOlympus/hermes/internal/form"
	"github.com/UnknownOlympus/hermes/internal/geocoding"
	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/session"
	"github.com/UnknownOlympus/hermes/internal/tracker"
)

// Source publishes full snapshots of the collection. service.Feed implements it.
type Source interface {
	Subscribe(fn func([]models.Shipment)) func()
}

// Deps are the process-wide collaborators every dashboard shares.
type Deps struct {
	Log      *slog.Logger
	Source   Source
	Writer   form.ShipmentWriter
	Geocoder geocoding.Provider
	InFlight *form.InFlight
	Metrics  *metrics.Metrics
}

// View is everything one render needs, taken from a single snapshot.
type View struct {
	Identity            string                     `json:"identity"`
	Version             uint64                     `json:"version"`
	Shipments           []models.Shipment          `json:"shipments"`
	Total               int                        `json:"total"`
	CountsByServiceType map[models.ServiceType]int `json:"countsByServiceType"`
	CountsByPersonnel   map[models.Personnel]int   `json:"countsByPersonnel"`
	Filters             models.FilterCriteria      `json:"filters"`
	Draft               models.Draft               `json:"draft"`
	Mode                form.Mode                  `json:"mode"`
}

// Dashboard is the state of one anonymous session.
type Dashboard struct {
	identity session.Identity
	log      *slog.Logger
	store    *tracker.Store
	form     *form.Controller

	mu          sync.Mutex
	criteria    models.FilterCriteria
	changed     chan struct{}
	unsubscribe func()

	closeOnce sync.Once
	done      chan struct{}
}

// Open creates the dashboard of identity and subscribes it to the collection.
// The identity must already be established.
func Open(ctx context.Context, identity session.Identity, deps Deps) *Dashboard {
	log := deps.Log.With("identity", identity.ID)
	store := tracker.New()

	d := &Dashboard{
		identity: identity,
		log:      log,
		store:    store,
		form:     form.NewController(log, deps.Writer, deps.Geocoder, store, deps.InFlight, deps.Metrics),
		changed:  make(chan struct{}),
		done:     make(chan struct{}),
	}

	unsubscribe := deps.Source.Subscribe(d.applySnapshot)

	d.mu.Lock()
	d.unsubscribe = unsubscribe
	d.mu.Unlock()

	log.DebugContext(ctx, "Dashboard opened")

	return d
}

// Identity returns the owner of the dashboard.
func (d *Dashboard) Identity() session.Identity {
	return d.identity
}

// Changed returns a channel that is closed on the next state change. Take it before
// reading the View so no change is missed.
func (d *Dashboard) Changed() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.changed
}

// Done is closed when the dashboard is closed.
func (d *Dashboard) Done() <-chan struct{} {
	return d.done
}

// View renders the current state.
func (d *Dashboard) View() View {
	return d.ViewFor(d.Filters())
}

// ViewFor renders the dashboard with criteria instead of the stored filter. The stored
// filter is left as it is.
func (d *Dashboard) ViewFor(criteria models.FilterCriteria) View {
	draft, mode := d.form.State()
	snap := d.store.Snapshot()

	return View{
		Identity:            d.identity.ID,
		Version:             snap.Version,
		Shipments:           snap.Filtered(criteria),
		Total:               len(snap.Records),
		CountsByServiceType: snap.CountsByServiceType(),
		CountsByPersonnel:   snap.CountsByPersonnel(),
		Filters:             criteria,
		Draft:               draft,
		Mode:                mode,
	}
}

// Filtered returns the shipments matching the current filter.
func (d *Dashboard) Filtered() []models.Shipment {
	d.mu.Lock()
	criteria := d.criteria
	d.mu.Unlock()

	return d.store.Filtered(criteria)
}

// Filters returns the current filter criteria.
func (d *Dashboard) Filters() models.FilterCriteria {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.criteria
}

// SetFilters replaces the filter criteria.
func (d *Dashboard) SetFilters(criteria models.FilterCriteria) {
	d.mu.Lock()
	d.criteria = criteria
	d.mu.Unlock()

	d.notify()
}

// Draft returns the form state.
func (d *Dashboard) Draft() (models.Draft, form.Mode) {
	return d.form.State()
}

// ApplyDraft updates the draft from patch.
func (d *Dashboard) ApplyDraft(patch form.DraftPatch) error {
	if err := d.form.Apply(patch); err != nil {
		return err
	}
	d.notify()
	return nil
}

// ResetDraft discards the draft.
func (d *Dashboard) ResetDraft() {
	d.form.Reset()
	d.notify()
}

// BeginEdit loads shipment id into the form.
func (d *Dashboard) BeginEdit(id string) error {
	if err := d.form.BeginEdit(id); err != nil {
		return err
	}
	d.notify()
	return nil
}

// Submit saves the draft.
func (d *Dashboard) Submit(ctx context.Context) (models.Shipment, error) {
	shipment, err := d.form.Submit(ctx)
	if err != nil {
		return models.Shipment{}, err
	}
	d.notify()
	return shipment, nil
}

// Delete removes a shipment from the store. The list changes when the next snapshot arrives.
func (d *Dashboard) Delete(ctx context.Context, id string) error {
	return d.form.DeleteShipment(ctx, id)
}

// Close stops the store subscription. It is safe to call more than once.
func (d *Dashboard) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		unsubscribe := d.unsubscribe
		d.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		close(d.done)

		d.log.Debug("Dashboard closed")
	})
}

func (d *Dashboard) applySnapshot(shipments []models.Shipment) {
	d.store.ApplySnapshot(shipments)
	d.notify()
}

func (d *Dashboard) notify() {
	d.mu.Lock()
	defer d.mu.Unlock()

	close(d.changed)
	d.changed = make(chan struct{})
}
