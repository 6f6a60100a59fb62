package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/UnknownOlympus/hermes/internal/geocoding"
	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/UnknownOlympus/hermes/internal/models"
	"golang.org/x/sync/errgroup"
)

var (
	ErrIncompleteDraft  = errors.New("draft is incomplete")
	ErrGeocodeFailed    = errors.New("location could not be geocoded")
	ErrUpsertFailed     = errors.New("failed to save shipment")
	ErrDeleteFailed     = errors.New("failed to delete shipment")
	ErrSubmitInFlight   = errors.New("a submit for this shipment is already in progress")
	ErrShipmentNotFound = errors.New("shipment not found")
)

// Mode is the editing state of the form.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// MarshalText renders the mode as "create" or "edit".
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts the output of MarshalText.
func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "create":
		*m = ModeCreate
	case "edit":
		*m = ModeEdit
	default:
		return fmt.Errorf("unknown form mode %q", text)
	}
	return nil
}

// ShipmentWriter persists shipments. service.Feed implements it.
type ShipmentWriter interface {
	Upsert(ctx context.Context, shipment models.Shipment) error
	Delete(ctx context.Context, id string) error
}

// Lookup finds a shipment in the currently visible collection. tracker.Store implements it.
type Lookup interface {
	Lookup(id string) (models.Shipment, bool)
}

// DraftPatch carries a partial update of the draft. Nil fields are left untouched.
type DraftPatch struct {
	ID          *string `json:"id,omitempty"`
	StartName   *string `json:"startName,omitempty"`
	EndName     *string `json:"endName,omitempty"`
	ServiceType *string `json:"serviceType,omitempty"`
	Personnel   *string `json:"personnel,omitempty"`
}

// Controller owns one draft and drives it through create and edit.
type Controller struct {
	log      *slog.Logger
	writer   ShipmentWriter
	geocoder geocoding.Provider
	lookup   Lookup
	inflight *InFlight
	metrics  *metrics.Metrics

	mu    sync.Mutex
	draft models.Draft
	mode  Mode
}

// NewController returns a controller in Create mode with a default draft.
func NewController(
	log *slog.Logger,
	writer ShipmentWriter,
	geocoder geocoding.Provider,
	lookup Lookup,
	inflight *InFlight,
	metrics *metrics.Metrics,
) *Controller {
	return &Controller{
		log:      log,
		writer:   writer,
		geocoder: geocoder,
		lookup:   lookup,
		inflight: inflight,
		metrics:  metrics,
		draft:    models.NewDraft(),
		mode:     ModeCreate,
	}
}

// State returns a copy of the draft and the current mode.
func (c *Controller) State() (models.Draft, Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft, c.mode
}

// BeginEdit loads the shipment with the given id into the draft and switches to Edit.
func (c *Controller) BeginEdit(id string) error {
	shipment, ok := c.lookup.Lookup(id)
	if !ok {
		c.log.Warn("Cannot edit unknown shipment", "id", id)
		return fmt.Errorf("%w: %s", ErrShipmentNotFound, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.draft = models.DraftFromShipment(shipment)
	c.mode = ModeEdit

	return nil
}

// SetID sets the draft id. The id of a shipment being edited cannot change, so the
// call is ignored in Edit mode.
func (c *Controller) SetID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeEdit {
		return
	}
	c.draft.ID = id
}

func (c *Controller) SetStartName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.StartLocation = models.Location{Name: name}
}

func (c *Controller) SetEndName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.EndLocation = models.Location{Name: name}
}

func (c *Controller) SetServiceType(st models.ServiceType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.ServiceType = st
}

func (c *Controller) SetPersonnel(p models.Personnel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Personnel = p
}

// Apply updates every non-nil field of patch. Enum values are checked first; on
// error the draft is left unchanged.
func (c *Controller) Apply(patch DraftPatch) error {
	var (
		serviceType models.ServiceType
		personnel   models.Personnel
		err         error
	)
	if patch.ServiceType != nil {
		if serviceType, err = models.ParseServiceType(*patch.ServiceType); err != nil {
			return err
		}
	}
	if patch.Personnel != nil {
		if personnel, err = models.ParsePersonnel(*patch.Personnel); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if patch.ID != nil && c.mode == ModeCreate {
		c.draft.ID = *patch.ID
	}
	if patch.StartName != nil {
		c.draft.StartLocation = models.Location{Name: *patch.StartName}
	}
	if patch.EndName != nil {
		c.draft.EndLocation = models.Location{Name: *patch.EndName}
	}
	if patch.ServiceType != nil {
		c.draft.ServiceType = serviceType
	}
	if patch.Personnel != nil {
		c.draft.Personnel = personnel
	}

	return nil
}

// Reset discards the draft and returns to Create mode.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.draft = models.NewDraft()
	c.mode = ModeCreate
}

// Submit geocodes both locations of the draft and upserts the resulting shipment.
// On any failure the draft and mode are left as they were. On success the draft is
// reset and the form returns to Create mode, unless it was edited while the submit ran.
func (c *Controller) Submit(ctx context.Context) (models.Shipment, error) {
	c.mu.Lock()
	draft, mode := c.draft, c.mode
	c.mu.Unlock()

	id := strings.TrimSpace(draft.ID)
	startName := strings.TrimSpace(draft.StartLocation.Name)
	endName := strings.TrimSpace(draft.EndLocation.Name)

	if id == "" || startName == "" || endName == "" {
		c.metrics.Submits.WithLabelValues("incomplete").Inc()
		return models.Shipment{}, fmt.Errorf("%w: id, start and end location are required", ErrIncompleteDraft)
	}
	if !draft.ServiceType.Known() || !draft.Personnel.Known() {
		c.metrics.Submits.WithLabelValues("incomplete").Inc()
		return models.Shipment{}, fmt.Errorf("%w: service type and personnel must be selected", ErrIncompleteDraft)
	}

	if !c.inflight.Acquire(id) {
		c.metrics.Submits.WithLabelValues("in_flight").Inc()
		return models.Shipment{}, fmt.Errorf("%w: %s", ErrSubmitInFlight, id)
	}
	defer c.inflight.Release(id)

	var start, end *models.Coordinates
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		start, err = c.resolve(groupCtx, startName)
		return err
	})
	group.Go(func() error {
		var err error
		end, err = c.resolve(groupCtx, endName)
		return err
	})
	if err := group.Wait(); err != nil {
		c.log.WarnContext(ctx, "Submit aborted, geocoding failed", "id", id, "error", err)
		c.metrics.Submits.WithLabelValues("geocode_failed").Inc()
		return models.Shipment{}, err
	}

	shipment := models.Shipment{
		ID:            id,
		StartLocation: models.ResolveLocation(startName, *start),
		EndLocation:   models.ResolveLocation(endName, *end),
		ServiceType:   draft.ServiceType,
		Personnel:     draft.Personnel,
	}
	if err := shipment.Validate(); err != nil {
		c.metrics.Submits.WithLabelValues("geocode_failed").Inc()
		return models.Shipment{}, fmt.Errorf("%w: %w", ErrGeocodeFailed, err)
	}

	if err := c.writer.Upsert(ctx, shipment); err != nil {
		c.log.ErrorContext(ctx, "Failed to upsert shipment", "id", id, "error", err)
		c.metrics.Submits.WithLabelValues("upsert_failed").Inc()
		return models.Shipment{}, fmt.Errorf("%w: %w", ErrUpsertFailed, err)
	}

	c.mu.Lock()
	if c.draft == draft && c.mode == mode {
		c.draft = models.NewDraft()
		c.mode = ModeCreate
	} else {
		c.log.DebugContext(ctx, "Draft changed during submit, keeping it", "id", id)
	}
	c.mu.Unlock()

	c.metrics.Submits.WithLabelValues("success").Inc()
	c.log.InfoContext(ctx, "Shipment saved", "id", id, "service_type", shipment.ServiceType)

	return shipment, nil
}

func (c *Controller) resolve(ctx context.Context, name string) (*models.Coordinates, error) {
	coords, err := c.geocoder.Geocode(ctx, name)
	if err == nil && coords == nil {
		err = geocoding.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrGeocodeFailed, name, err)
	}
	return coords, nil
}

// DeleteShipment asks the store to remove the shipment. The draft is never touched;
// the visible list changes only when the next snapshot arrives.
func (c *Controller) DeleteShipment(ctx context.Context, id string) error {
	if err := c.writer.Delete(ctx, id); err != nil {
		c.log.ErrorContext(ctx, "Failed to delete shipment", "id", id, "error", err)
		return fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}

	c.log.InfoContext(ctx, "Shipment deleted", "id", id)

	return nil
}
