package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tripscope/tripscope-cli/internal/models"
)

// Registry holds all loaded datasets keyed by name.
type Registry struct {
	datasets map[string]*Dataset
}

// NewRegistry creates an empty dataset registry.
func NewRegistry() *Registry {
	return &Registry{datasets: make(map[string]*Dataset)}
}

// LoadFromFile loads one dataset file. JSON and YAML documents hold either a
// dataset envelope ({name, trips}) or a bare tripId -> events mapping; each
// trip is a bare event array or an {events: [...]} wrapper. NDJSON files
// hold one event per line, grouped by tripId.
func (r *Registry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read dataset file: %w", err)
	}

	var ds *Dataset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		ds, err = parseYAML(data)
	case ".ndjson":
		ds, err = parseNDJSON(data)
	default:
		ds, err = parseJSON(data)
	}
	if err != nil {
		return fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}

	if ds.Name == "" {
		ds.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	ds.normalize()
	r.datasets[ds.Name] = ds
	return nil
}

// LoadFromDir loads every dataset file in a directory.
func (r *Registry) LoadFromDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read datasets directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml", ".ndjson":
		default:
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := r.LoadFromFile(path); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves a dataset by name.
func (r *Registry) Get(name string) (*Dataset, error) {
	ds, ok := r.datasets[name]
	if !ok {
		return nil, fmt.Errorf("dataset '%s' not found", name)
	}
	return ds, nil
}

// List returns all dataset names in sorted order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.datasets))
	for name := range r.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseJSON(data []byte) (*Dataset, error) {
	// Probe for the dataset envelope; anything without a "trips" key is
	// treated as a bare tripId -> events mapping.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	if _, ok := probe["trips"]; ok {
		var ds Dataset
		if err := json.Unmarshal(data, &ds); err != nil {
			return nil, err
		}
		return &ds, nil
	}

	trips := make(map[string]*models.Trip)
	if err := json.Unmarshal(data, &trips); err != nil {
		return nil, err
	}
	return &Dataset{Trips: trips}, nil
}

// parseYAML bridges through JSON so the Trip wrapper/array duality is
// handled in one place.
func parseYAML(data []byte) (*Dataset, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	bridged, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return parseJSON(bridged)
}

func parseNDJSON(data []byte) (*Dataset, error) {
	trips := make(map[string]*models.Trip)

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var ev models.Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if ev.TripID == "" {
			return nil, fmt.Errorf("line %d: event missing tripId", lineNum)
		}

		trip, ok := trips[ev.TripID]
		if !ok {
			trip = &models.Trip{TripID: ev.TripID}
			trips[ev.TripID] = trip
		}
		trip.Events = append(trip.Events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &Dataset{Trips: trips}, nil
}
