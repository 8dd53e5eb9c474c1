package replay

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tripscope/tripscope-cli/internal/models"
)

// Session ties an EventIndex to a Clock and answers the host-facing
// snapshot and statistics queries. Independent sessions share nothing.
type Session struct {
	runID string
	index *EventIndex
	clock *Clock
}

// Snapshot is the "seen so far" view: every revealed event in timeline
// order plus per-trip metrics recomputed from that revealed prefix.
type Snapshot struct {
	Revealed []models.Event                `json:"revealed"`
	Metrics  map[string]models.TripMetrics `json:"metrics"`
}

// Stats summarizes replay state for dashboards and the /stats endpoint.
type Stats struct {
	RunID         string        `json:"runId"`
	Progress      float64       `json:"progress"`
	CurrentTime   time.Time     `json:"currentTime"`
	TotalDuration time.Duration `json:"totalDuration"`
	EventCount    int           `json:"eventCount"`
	TripCount     int           `json:"tripCount"`
	Speed         float64       `json:"speed"`
	Playing       bool          `json:"playing"`
}

// NewSession builds a session over the given trip data.
func NewSession(trips map[string][]models.Event, logger *slog.Logger) *Session {
	index := NewEventIndex(trips, logger)
	return &Session{
		runID: uuid.NewString(),
		index: index,
		clock: NewClock(index, logger),
	}
}

// RunID identifies this replay session.
func (s *Session) RunID() string { return s.runID }

// Clock exposes the transport controls.
func (s *Session) Clock() *Clock { return s.clock }

// Index exposes the underlying event index.
func (s *Session) Index() *EventIndex { return s.index }

// Snapshot rebuilds the revealed-so-far view at the current cutoff. Trips
// with nothing revealed yet report idle metrics.
func (s *Session) Snapshot() Snapshot {
	revealed := s.clock.Revealed()

	byTrip := make(map[string][]models.Event)
	for _, ev := range revealed {
		byTrip[ev.TripID] = append(byTrip[ev.TripID], ev)
	}

	metrics := make(map[string]models.TripMetrics, s.index.TripCount())
	for _, id := range s.index.TripIDs() {
		metrics[id] = ComputeMetrics(byTrip[id])
	}

	return Snapshot{Revealed: revealed, Metrics: metrics}
}

// Stats answers the statistics query.
func (s *Session) Stats() Stats {
	_, _, total := s.index.TimeRange()
	return Stats{
		RunID:         s.runID,
		Progress:      s.clock.Progress(),
		CurrentTime:   s.clock.CurrentTime(),
		TotalDuration: total,
		EventCount:    s.index.EventCount(),
		TripCount:     s.index.TripCount(),
		Speed:         s.clock.Speed(),
		Playing:       s.clock.State() == StatePlaying,
	}
}
