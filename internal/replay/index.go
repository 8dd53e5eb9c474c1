package replay

import (
	"log/slog"
	"sort"
	"time"

	"github.com/tripscope/tripscope-cli/internal/models"
)

// indexed pairs an event with its parsed timestamp so queries never
// re-parse on the hot path.
type indexed struct {
	ev models.Event
	at time.Time
}

// EventIndex is an immutable, globally time-ordered view over every event
// across all trips. Construction validates timestamps; events that fail to
// parse are logged as data-quality warnings and excluded without aborting
// the rest of the ingest.
type EventIndex struct {
	trips    map[string][]models.Event
	tripIDs  []string
	all      []indexed
	min, max time.Time
	duration time.Duration
	dropped  int
}

// NewEventIndex builds an index from a tripId -> events mapping. Trips are
// ingested in sorted tripId order so that ties between equal timestamps
// resolve the same way on every run.
func NewEventIndex(trips map[string][]models.Event, logger *slog.Logger) *EventIndex {
	if logger == nil {
		logger = slog.Default()
	}

	x := &EventIndex{trips: make(map[string][]models.Event, len(trips))}

	ids := make([]string, 0, len(trips))
	for id := range trips {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	x.tripIDs = ids

	for _, id := range ids {
		perTrip := make([]indexed, 0, len(trips[id]))
		for _, ev := range trips[id] {
			at, err := ev.Time()
			if err != nil {
				x.dropped++
				logger.Warn("dropping event with unparseable timestamp",
					"tripId", id, "timestamp", ev.Timestamp, "error", err)
				continue
			}
			if ev.TripID == "" {
				ev.TripID = id
			}
			perTrip = append(perTrip, indexed{ev: ev, at: at})

			if x.min.IsZero() || at.Before(x.min) {
				x.min = at
			}
			if x.max.IsZero() || at.After(x.max) {
				x.max = at
			}
		}

		sort.SliceStable(perTrip, func(i, j int) bool { return perTrip[i].at.Before(perTrip[j].at) })

		events := make([]models.Event, len(perTrip))
		for i, it := range perTrip {
			events[i] = it.ev
		}
		x.trips[id] = events
		x.all = append(x.all, perTrip...)
	}

	// Stable sort keeps the relative ingest order for equal timestamps,
	// which makes replay deterministic when events share an instant.
	sort.SliceStable(x.all, func(i, j int) bool { return x.all[i].at.Before(x.all[j].at) })

	if !x.min.IsZero() {
		x.duration = x.max.Sub(x.min)
	}
	return x
}

// EventsUpTo returns every event, across all trips and in global time order,
// whose timestamp is at or before minTimestamp + offset. Pure: the same
// offset always yields the same set.
func (x *EventIndex) EventsUpTo(offset time.Duration) []models.Event {
	if len(x.all) == 0 || offset < 0 {
		return nil
	}
	cutoff := x.min.Add(offset)
	n := sort.Search(len(x.all), func(i int) bool { return x.all[i].at.After(cutoff) })
	out := make([]models.Event, n)
	for i := 0; i < n; i++ {
		out[i] = x.all[i].ev
	}
	return out
}

// window returns the indexed events with after < timestamp <= until.
func (x *EventIndex) window(after, until time.Time) []indexed {
	if len(x.all) == 0 {
		return nil
	}
	lo := sort.Search(len(x.all), func(i int) bool { return x.all[i].at.After(after) })
	hi := sort.Search(len(x.all), func(i int) bool { return x.all[i].at.After(until) })
	if lo >= hi {
		return nil
	}
	return x.all[lo:hi]
}

// EventsForTrip returns the trip's full ordered event list. The returned
// slice is shared and must be treated as read-only.
func (x *EventIndex) EventsForTrip(tripID string) []models.Event {
	return x.trips[tripID]
}

// TimeRange returns the global minimum and maximum event timestamps and the
// total timeline duration. All three are zero for an empty index.
func (x *EventIndex) TimeRange() (time.Time, time.Time, time.Duration) {
	return x.min, x.max, x.duration
}

// TripIDs returns all trip identifiers in sorted order.
func (x *EventIndex) TripIDs() []string {
	return x.tripIDs
}

// EventCount returns the number of indexed events.
func (x *EventIndex) EventCount() int {
	return len(x.all)
}

// TripCount returns the number of trips.
func (x *EventIndex) TripCount() int {
	return len(x.tripIDs)
}

// DroppedCount returns how many events were excluded for malformed timestamps.
func (x *EventIndex) DroppedCount() int {
	return x.dropped
}

// Empty reports whether the index holds no events.
func (x *EventIndex) Empty() bool {
	return len(x.all) == 0
}
