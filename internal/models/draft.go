package models

// Draft is the form's working copy of a shipment. Any field may be blank.
type Draft struct {
	ID            string      `json:"id"`
	StartLocation Location    `json:"startLocation"`
	EndLocation   Location    `json:"endLocation"`
	ServiceType   ServiceType `json:"serviceType"`
	Personnel     Personnel   `json:"personnel"`
}

// NewDraft returns an empty draft preset with the form's default selections.
func NewDraft() Draft {
	return Draft{
		ServiceType: ServiceOneWayOBC,
		Personnel:   PersonnelLC,
	}
}

// DraftFromShipment copies every field of s into a draft.
func DraftFromShipment(s Shipment) Draft {
	return Draft(s)
}

// FilterCriteria narrows the visible shipments. Empty fields impose no constraint.
type FilterCriteria struct {
	ServiceType ServiceType `json:"serviceType"`
	Personnel   Personnel   `json:"personnel"`
	SearchTerm  string      `json:"searchTerm"`
}
