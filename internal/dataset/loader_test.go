package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadJSONEnvelope(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "fleet.json", `{
		"name": "north-fleet",
		"description": "Morning deliveries",
		"trips": {
			"trip-a": {
				"name": "Depot run",
				"color": "#22aa44",
				"events": [
					{"timestamp": "2025-03-01T08:00:00Z", "eventType": "trip_started"}
				]
			},
			"trip-b": [
				{"timestamp": "2025-03-01T08:05:00Z", "eventType": "location_ping"}
			]
		}
	}`)

	r := NewRegistry()
	if err := r.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	ds, err := r.Get("north-fleet")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ds.TripCount() != 2 || ds.EventCount() != 2 {
		t.Errorf("expected 2 trips with 2 events, got %d/%d", ds.TripCount(), ds.EventCount())
	}
	if ds.Trips["trip-a"].Name != "Depot run" {
		t.Errorf("wrapper trip lost metadata: %+v", ds.Trips["trip-a"])
	}
	// Bare-array trips and their events inherit the mapping key.
	if ds.Trips["trip-b"].TripID != "trip-b" {
		t.Errorf("bare-array trip missing id: %+v", ds.Trips["trip-b"])
	}
	if ds.Trips["trip-b"].Events[0].TripID != "trip-b" {
		t.Errorf("event tripId not backfilled: %+v", ds.Trips["trip-b"].Events[0])
	}
}

func TestLoadBareMapping(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "raw.json", `{
		"trip-x": [{"timestamp": "2025-03-01T08:00:00Z", "eventType": "trip_started"}]
	}`)

	r := NewRegistry()
	if err := r.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	// Name falls back to the file base name.
	ds, err := r.Get("raw")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ds.TripCount() != 1 {
		t.Errorf("expected 1 trip, got %d", ds.TripCount())
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "fleet.yaml", `
name: yaml-fleet
trips:
  trip-a:
    events:
      - timestamp: "2025-03-01T08:00:00Z"
        eventType: trip_started
      - timestamp: "2025-03-01T08:01:00Z"
        eventType: location_ping
        location: {lat: 52.5, lon: 13.4}
        speedKmh: 31.5
`)

	r := NewRegistry()
	if err := r.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	ds, err := r.Get("yaml-fleet")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	events := ds.Trips["trip-a"].Events
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Location == nil || events[1].Location.Lat != 52.5 {
		t.Errorf("location lost in yaml bridge: %+v", events[1].Location)
	}
	if events[1].SpeedKmh == nil || *events[1].SpeedKmh != 31.5 {
		t.Errorf("speed lost in yaml bridge: %v", events[1].SpeedKmh)
	}
}

func TestLoadNDJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "recorded.ndjson",
		`{"timestamp":"2025-03-01T08:00:00Z","tripId":"trip-a","eventType":"trip_started"}
{"timestamp":"2025-03-01T08:01:00Z","tripId":"trip-b","eventType":"location_ping"}
{"timestamp":"2025-03-01T08:02:00Z","tripId":"trip-a","eventType":"trip_completed"}
`)

	r := NewRegistry()
	if err := r.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	ds, err := r.Get("recorded")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ds.TripCount() != 2 {
		t.Errorf("expected 2 trips, got %d", ds.TripCount())
	}
	if len(ds.Trips["trip-a"].Events) != 2 {
		t.Errorf("expected 2 trip-a events, got %d", len(ds.Trips["trip-a"].Events))
	}
}

func TestLoadNDJSONMissingTripID(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.ndjson",
		`{"timestamp":"2025-03-01T08:00:00Z","eventType":"trip_started"}`)

	r := NewRegistry()
	if err := r.LoadFromFile(path); err == nil {
		t.Error("expected error for NDJSON event without tripId")
	}
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"trip-1": [{"timestamp": "2025-03-01T08:00:00Z", "eventType": "trip_started"}]}`)
	writeFile(t, dir, "b.json", `{"trip-2": [{"timestamp": "2025-03-01T08:00:00Z", "eventType": "trip_started"}]}`)
	writeFile(t, dir, "README.md", "not a dataset")

	r := NewRegistry()
	if err := r.LoadFromDir(dir); err != nil {
		t.Fatalf("LoadFromDir: %v", err)
	}

	names := r.List()
	if len(names) != 2 {
		t.Fatalf("expected 2 datasets, got %v", names)
	}
	if names[0] != "a" || names[1] != "b" {
		t.Errorf("expected sorted names [a b], got %v", names)
	}
}

func TestGetUnknownDataset(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nope"); err == nil {
		t.Error("expected error for unknown dataset")
	}
}
