package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Event types the replay engine gives special meaning to. The schema is
// open: any other eventType is carried and replayed generically.
const (
	EventTripStarted    = "trip_started"
	EventLocationPing   = "location_ping"
	EventVehicleStopped = "vehicle_stopped"
	EventVehicleMoving  = "vehicle_moving"
	EventTripCompleted  = "trip_completed"
	EventTripCancelled  = "trip_cancelled"
)

// Location is a latitude/longitude pair attached to position-bearing events.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event is one immutable telemetry record. Events are never mutated after
// load, only filtered and read. Unknown JSON fields round-trip untouched
// through Extra.
type Event struct {
	Timestamp           string                     `json:"timestamp"`
	TripID              string                     `json:"tripId"`
	EventType           string                     `json:"eventType"`
	Location            *Location                  `json:"location,omitempty"`
	SpeedKmh            *float64                   `json:"speedKmh,omitempty"`
	DistanceDeltaKm     *float64                   `json:"distanceDeltaKm,omitempty"`
	DistanceTravelledKm *float64                   `json:"distanceTravelledKm,omitempty"`
	PlannedDistanceKm   *float64                   `json:"plannedDistanceKm,omitempty"`
	Extra               map[string]json.RawMessage `json:"-"`
}

var knownEventKeys = []string{
	"timestamp", "tripId", "eventType", "location",
	"speedKmh", "distanceDeltaKm", "distanceTravelledKm", "plannedDistanceKm",
}

// Time parses the event timestamp. RFC3339Nano also accepts plain RFC3339.
func (e *Event) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, e.Timestamp)
}

// HasLocation reports whether this is a position-bearing event.
func (e *Event) HasLocation() bool {
	return e.Location != nil
}

// UnmarshalJSON decodes the known fields and stashes everything else in
// Extra so free-form source fields survive a replay round trip.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range knownEventKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		p.Extra = raw
	}

	*e = Event(p)
	return nil
}

// MarshalJSON re-emits the known fields merged with Extra.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	base, err := json.Marshal(plain(e))
	if err != nil {
		return nil, err
	}
	if len(e.Extra) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range e.Extra {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// Trip is a named, colored, vehicle-tagged ordered collection of events
// sharing a tripId. Identity is the tripId.
type Trip struct {
	TripID  string  `json:"tripId"`
	Name    string  `json:"name,omitempty"`
	Color   string  `json:"color,omitempty"`
	Vehicle string  `json:"vehicle,omitempty"`
	Events  []Event `json:"events"`
}

// UnmarshalJSON accepts both a bare event array and an {"events": [...]}
// wrapper, since source datasets use either form.
func (t *Trip) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(data, &t.Events)
	}

	type plain Trip
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Trip(p)
	return nil
}
