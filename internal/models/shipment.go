package models

import (
	"errors"
	"fmt"
	"strings"
)

// ServiceType is the transport mode of a shipment.
type ServiceType string

const (
	ServiceOneWayOBC    ServiceType = "One-way OBC"
	ServiceAirfreight   ServiceType = "Airfreight"
	ServiceTrainfreight ServiceType = "Trainfreight"
	ServiceDirectDrive  ServiceType = "Direct drive"
)

// Personnel identifies the person a shipment is assigned to.
type Personnel string

const (
	PersonnelLC Personnel = "L C"
	PersonnelSM Personnel = "S M"
	PersonnelSD Personnel = "S D"
)

var (
	ErrUnknownServiceType = errors.New("unknown service type")
	ErrUnknownPersonnel   = errors.New("unknown personnel")
	ErrEmptyShipmentID    = errors.New("shipment id is empty")
	ErrUnresolvedLocation = errors.New("location is not resolved")
)

// ServiceTypes lists every service type in the order the form offers them.
func ServiceTypes() []ServiceType {
	return []ServiceType{ServiceOneWayOBC, ServiceAirfreight, ServiceTrainfreight, ServiceDirectDrive}
}

// PersonnelValues lists every personnel value in the order the form offers them.
func PersonnelValues() []Personnel {
	return []Personnel{PersonnelLC, PersonnelSM, PersonnelSD}
}

// Known reports whether st is one of the defined service types.
func (st ServiceType) Known() bool {
	for _, known := range ServiceTypes() {
		if st == known {
			return true
		}
	}
	return false
}

// Known reports whether p is one of the defined personnel values.
func (p Personnel) Known() bool {
	for _, known := range PersonnelValues() {
		if p == known {
			return true
		}
	}
	return false
}

// ParseServiceType converts raw input into a ServiceType. An empty string is accepted
// and returned as is, since filters use it to mean "any".
func ParseServiceType(raw string) (ServiceType, error) {
	st := ServiceType(raw)
	if raw == "" || st.Known() {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownServiceType, raw)
}

// ParsePersonnel converts raw input into a Personnel value, accepting the empty string.
func ParsePersonnel(raw string) (Personnel, error) {
	p := Personnel(raw)
	if raw == "" || p.Known() {
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPersonnel, raw)
}

// Location is a named place. Lat and Lng are meaningful only once the name was geocoded.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Resolved reports whether the location has a name and coordinates within valid ranges.
func (l Location) Resolved() bool {
	return strings.TrimSpace(l.Name) != "" && Coordinates{Latitude: l.Lat, Longitude: l.Lng}.Valid()
}

// ResolveLocation builds a resolved Location from a place name and its geocoded point.
func ResolveLocation(name string, coords Coordinates) Location {
	return Location{Name: name, Lat: coords.Latitude, Lng: coords.Longitude}
}

// Shipment is one tracked movement between two locations. It is stored as one document
// keyed by ID.
type Shipment struct {
	ID            string      `json:"id"`
	StartLocation Location    `json:"startLocation"`
	EndLocation   Location    `json:"endLocation"`
	ServiceType   ServiceType `json:"serviceType"`
	Personnel     Personnel   `json:"personnel"`
}

// Validate checks the invariants a shipment must hold before it is persisted.
func (s Shipment) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrEmptyShipmentID
	}
	if !s.StartLocation.Resolved() {
		return fmt.Errorf("start %w: %q", ErrUnresolvedLocation, s.StartLocation.Name)
	}
	if !s.EndLocation.Resolved() {
		return fmt.Errorf("end %w: %q", ErrUnresolvedLocation, s.EndLocation.Name)
	}
	if !s.ServiceType.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownServiceType, s.ServiceType)
	}
	if !s.Personnel.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownPersonnel, s.Personnel)
	}
	return nil
}
