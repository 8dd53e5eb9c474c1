package generator

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/tripscope/tripscope-cli/internal/dataset"
	"github.com/tripscope/tripscope-cli/internal/models"
)

var vehicles = []string{"sedan", "van", "box-truck", "cargo-bike"}

var palette = []string{"#e6194b", "#3cb44b", "#4363d8", "#f58231", "#911eb4", "#46f022"}

// Config holds generator configuration.
type Config struct {
	Seed          int64
	Trips         int
	EventsPerTrip int
	TickInterval  time.Duration // simulated spacing between pings
	StartTime     time.Time
	CancelRatio   float64 // fraction of trips ending cancelled
}

// Generator produces synthetic trip datasets. The same seed always yields
// the same dataset.
type Generator struct {
	config Config
	rng    *rand.Rand
}

// NewGenerator creates a generator with defaults filled in.
func NewGenerator(config Config) *Generator {
	if config.Trips <= 0 {
		config.Trips = 3
	}
	if config.EventsPerTrip <= 0 {
		config.EventsPerTrip = 20
	}
	if config.TickInterval <= 0 {
		config.TickInterval = 5 * time.Second
	}
	if config.StartTime.IsZero() {
		config.StartTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	if config.CancelRatio < 0 || config.CancelRatio > 1 {
		config.CancelRatio = 0
	}

	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds the full synthetic dataset.
func (g *Generator) Generate() *dataset.Dataset {
	ds := &dataset.Dataset{
		Name:        fmt.Sprintf("synthetic-%d", g.config.Seed),
		Description: fmt.Sprintf("generated fleet of %d trips", g.config.Trips),
		Trips:       make(map[string]*models.Trip, g.config.Trips),
	}

	for i := 0; i < g.config.Trips; i++ {
		tripID := fmt.Sprintf("trip-%03d", i+1)
		// Stagger trip starts so the fleet interleaves.
		offset := time.Duration(i) * g.config.TickInterval / 2
		ds.Trips[tripID] = g.generateTrip(tripID, i, g.config.StartTime.Add(offset))
	}

	return ds
}

// WriteFile saves the dataset as a JSON envelope the loader accepts.
func (g *Generator) WriteFile(path string) (*dataset.Dataset, error) {
	ds := g.Generate()

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dataset: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write dataset: %w", err)
	}
	return ds, nil
}

func (g *Generator) generateTrip(tripID string, index int, start time.Time) *models.Trip {
	trip := &models.Trip{
		TripID:  tripID,
		Name:    fmt.Sprintf("Route %d", index+1),
		Color:   palette[index%len(palette)],
		Vehicle: vehicles[g.rng.Intn(len(vehicles))],
		Events:  make([]models.Event, 0, g.config.EventsPerTrip+2),
	}

	// Random walk around a city-sized bounding box.
	lat := 47.60 + g.rng.Float64()*0.05
	lon := -122.35 + g.rng.Float64()*0.05
	planned := 5.0 + g.rng.Float64()*20.0

	now := start
	trip.Events = append(trip.Events, models.Event{
		Timestamp:         now.Format(time.RFC3339),
		TripID:            tripID,
		EventType:         models.EventTripStarted,
		Location:          &models.Location{Lat: round5(lat), Lon: round5(lon)},
		PlannedDistanceKm: ptr(round2(planned)),
	})

	stopped := false
	for i := 0; i < g.config.EventsPerTrip; i++ {
		now = now.Add(g.config.TickInterval)

		// Roughly 1 in 8 pings toggles a stop.
		if g.rng.Intn(8) == 0 {
			stopped = !stopped
			eventType := models.EventVehicleStopped
			markerSpeed := 0.0
			if !stopped {
				// Pulling away from a stop, so below cruising speed.
				eventType = models.EventVehicleMoving
				markerSpeed = 10.0 + g.rng.Float64()*10.0
			}
			trip.Events = append(trip.Events, models.Event{
				Timestamp: now.Format(time.RFC3339),
				TripID:    tripID,
				EventType: eventType,
				Location:  &models.Location{Lat: round5(lat), Lon: round5(lon)},
				SpeedKmh:  ptr(round2(markerSpeed)),
			})
			continue
		}

		speed := 0.0
		delta := 0.0
		if !stopped {
			speed = 20.0 + g.rng.Float64()*40.0
			delta = speed * g.config.TickInterval.Hours()
			step := delta / 111.0 // km to degrees, roughly
			angle := g.rng.Float64() * 2 * math.Pi
			lat += step * math.Sin(angle)
			lon += step * math.Cos(angle)
		}

		trip.Events = append(trip.Events, models.Event{
			Timestamp:       now.Format(time.RFC3339),
			TripID:          tripID,
			EventType:       models.EventLocationPing,
			Location:        &models.Location{Lat: round5(lat), Lon: round5(lon)},
			SpeedKmh:        ptr(round2(speed)),
			DistanceDeltaKm: ptr(round5(delta)),
		})
	}

	now = now.Add(g.config.TickInterval)
	terminal := models.EventTripCompleted
	if g.rng.Float64() < g.config.CancelRatio {
		terminal = models.EventTripCancelled
	}
	trip.Events = append(trip.Events, models.Event{
		Timestamp: now.Format(time.RFC3339),
		TripID:    tripID,
		EventType: terminal,
		Location:  &models.Location{Lat: round5(lat), Lon: round5(lon)},
	})

	return trip
}

func ptr(v float64) *float64 { return &v }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round5(v float64) float64 { return math.Round(v*100000) / 100000 }
