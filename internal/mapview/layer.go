// Package mapview turns visible shipments into the marker and connector layers the
// browser map draws.
package mapview

import (
	"github.com/UnknownOlympus/hermes/internal/geometry"
	"github.com/UnknownOlympus/hermes/internal/models"
)

const (
	MarkerStart = "start"
	MarkerEnd   = "end"

	connectorColor = "blue"
	defaultZoom    = 2
)

// DefaultCenter is where the map opens before the user pans.
var DefaultCenter = geometry.Point{Lat: 51.505, Lng: -0.09}

// Popup is the text shown when a marker is clicked.
type Popup struct {
	ShipmentID  string             `json:"shipmentId"`
	ServiceType models.ServiceType `json:"serviceType"`
	Personnel   models.Personnel   `json:"personnel"`
	Start       string             `json:"start"`
	End         string             `json:"end"`
}

// Marker is a single point on the map.
type Marker struct {
	Kind     string         `json:"kind"`
	Position geometry.Point `json:"position"`
	Popup    Popup          `json:"popup"`
}

// Connector is the bowed line joining a shipment's two markers.
type Connector struct {
	ShipmentID string            `json:"shipmentId"`
	Path       [3]geometry.Point `json:"path"`
	Color      string            `json:"color"`
}

// Layer is everything drawn on top of the base tiles.
type Layer struct {
	Center     geometry.Point `json:"center"`
	Zoom       int            `json:"zoom"`
	Markers    []Marker       `json:"markers"`
	Connectors []Connector    `json:"connectors"`
}

// Build renders two markers and one connector per shipment.
func Build(shipments []models.Shipment) Layer {
	layer := Layer{
		Center:     DefaultCenter,
		Zoom:       defaultZoom,
		Markers:    make([]Marker, 0, 2*len(shipments)),
		Connectors: make([]Connector, 0, len(shipments)),
	}

	for _, s := range shipments {
		popup := Popup{
			ShipmentID:  s.ID,
			ServiceType: s.ServiceType,
			Personnel:   s.Personnel,
			Start:       s.StartLocation.Name,
			End:         s.EndLocation.Name,
		}
		start := geometry.PointOf(s.StartLocation)
		end := geometry.PointOf(s.EndLocation)

		layer.Markers = append(layer.Markers,
			Marker{Kind: MarkerStart, Position: start, Popup: popup},
			Marker{Kind: MarkerEnd, Position: end, Popup: popup},
		)
		layer.Connectors = append(layer.Connectors, Connector{
			ShipmentID: s.ID,
			Path:       geometry.Curve(start, end),
			Color:      connectorColor,
		})
	}

	return layer
}
