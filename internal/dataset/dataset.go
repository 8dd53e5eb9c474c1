package dataset

import (
	"github.com/tripscope/tripscope-cli/internal/models"
)

// Dataset is a named collection of trips loaded from disk.
type Dataset struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Trips       map[string]*models.Trip `json:"trips"`
}

// EventsByTrip flattens the dataset into the tripId -> events mapping the
// replay engine consumes.
func (d *Dataset) EventsByTrip() map[string][]models.Event {
	out := make(map[string][]models.Event, len(d.Trips))
	for id, trip := range d.Trips {
		out[id] = trip.Events
	}
	return out
}

// EventCount returns the total number of events across all trips.
func (d *Dataset) EventCount() int {
	n := 0
	for _, trip := range d.Trips {
		n += len(trip.Events)
	}
	return n
}

// TripCount returns the number of trips.
func (d *Dataset) TripCount() int {
	return len(d.Trips)
}

// normalize backfills trip and event identifiers from the mapping keys so
// datasets may omit redundant tripId fields.
func (d *Dataset) normalize() {
	for id, trip := range d.Trips {
		if trip == nil {
			trip = &models.Trip{}
			d.Trips[id] = trip
		}
		if trip.TripID == "" {
			trip.TripID = id
		}
		for i := range trip.Events {
			if trip.Events[i].TripID == "" {
				trip.Events[i].TripID = id
			}
		}
	}
}
