package models

import "time"

// ExportSchema is the accepted trip export schema version.
const ExportSchema = "tripscope.trips.v1"

// TripExport is the payload a fleet exporter posts to the receiver.
type TripExport struct {
	Schema       string           `json:"schema"`
	ExportID     string           `json:"export_id"`
	CreatedAtUTC string           `json:"created_at_utc"`
	Fleet        ExportFleet      `json:"fleet"`
	Trips        map[string]*Trip `json:"trips"`
}

// ExportFleet identifies the exporting fleet.
type ExportFleet struct {
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
}

// Validate checks the export payload against schema v1.
func (e *TripExport) Validate() error {
	if e.Schema != ExportSchema {
		return &ValidationError{Field: "schema", Message: "must be '" + ExportSchema + "'"}
	}
	if e.ExportID == "" {
		return &ValidationError{Field: "export_id", Message: "is required"}
	}
	if e.CreatedAtUTC == "" {
		return &ValidationError{Field: "created_at_utc", Message: "is required"}
	}
	if _, err := time.Parse(time.RFC3339, e.CreatedAtUTC); err != nil {
		return &ValidationError{Field: "created_at_utc", Message: "must be valid RFC3339 timestamp"}
	}
	if e.Fleet.Name == "" {
		return &ValidationError{Field: "fleet.name", Message: "is required"}
	}
	if len(e.Trips) == 0 {
		return &ValidationError{Field: "trips", Message: "must contain at least one trip"}
	}
	return nil
}

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ExportReceipt summarizes a received export back to the sender.
type ExportReceipt struct {
	ExportID   string `json:"export_id"`
	TripCount  int    `json:"trip_count"`
	EventCount int    `json:"event_count"`
	Duplicate  bool   `json:"duplicate"`
}

// NewExportReceipt builds the receipt for a received export.
func NewExportReceipt(export *TripExport, duplicate bool) *ExportReceipt {
	events := 0
	for _, trip := range export.Trips {
		if trip != nil {
			events += len(trip.Events)
		}
	}
	return &ExportReceipt{
		ExportID:   export.ExportID,
		TripCount:  len(export.Trips),
		EventCount: events,
		Duplicate:  duplicate,
	}
}
