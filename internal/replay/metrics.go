package replay

import (
	"math"
	"time"

	"github.com/tripscope/tripscope-cli/internal/models"
)

// ComputeMetrics derives a metrics snapshot from one trip's time-ordered
// event prefix. Pure and deterministic: the same input always yields the
// same output, with no dependence on the wall clock.
func ComputeMetrics(events []models.Event) models.TripMetrics {
	m := models.TripMetrics{Status: models.StatusIdle}
	if len(events) == 0 {
		return m
	}

	var (
		started, completed, cancelled bool

		deltaSum       float64
		lastCumulative *float64
		planned        *float64

		speedSum   float64
		speedCount int

		positionCount int

		prevMoving   bool
		movementSeen bool

		firstTime, lastTime time.Time
	)

	for i := range events {
		ev := &events[i]

		if at, err := ev.Time(); err == nil {
			if firstTime.IsZero() {
				firstTime = at
			}
			lastTime = at
		}

		switch ev.EventType {
		case models.EventTripStarted:
			started = true
		case models.EventTripCompleted:
			completed = true
		case models.EventTripCancelled:
			cancelled = true
		}

		if ev.SpeedKmh != nil {
			speedSum += *ev.SpeedKmh
			speedCount++
			if *ev.SpeedKmh > m.MaxSpeedKmh {
				m.MaxSpeedKmh = *ev.SpeedKmh
			}
		}
		if ev.PlannedDistanceKm != nil {
			planned = ev.PlannedDistanceKm
		}

		if ev.HasLocation() {
			positionCount++
			m.LastKnownLocation = ev.Location

			if ev.DistanceDeltaKm != nil {
				deltaSum += *ev.DistanceDeltaKm
			}
			if ev.DistanceTravelledKm != nil {
				lastCumulative = ev.DistanceTravelledKm
			}

			if moving, known := movement(ev); known {
				if movementSeen && prevMoving && !moving {
					m.StopCount++
				}
				prevMoving = moving
				movementSeen = true
			}
		}
	}

	// Datasets carry either incremental deltas or a cumulative counter;
	// prefer the deltas when both are present.
	m.TotalDistanceKm = deltaSum
	if deltaSum == 0 && lastCumulative != nil {
		m.TotalDistanceKm = *lastCumulative
	}

	if speedCount > 0 {
		m.AverageSpeedKmh = speedSum / float64(speedCount)
	}

	switch {
	case cancelled:
		m.Status = models.StatusCancelled
	case completed:
		m.Status = models.StatusCompleted
	case started:
		m.Status = models.StatusActive
	}

	// Cancellation leaves the percentage at whatever was reached before;
	// completion forces 100.
	m.CompletionPercentage = completionPct(m.TotalDistanceKm, planned, positionCount, len(events))
	if m.Status == models.StatusCompleted {
		m.CompletionPercentage = 100
	}

	m.StartTime = firstTime
	m.LastUpdateTime = lastTime
	if !firstTime.IsZero() && !lastTime.IsZero() {
		m.ElapsedDuration = lastTime.Sub(firstTime)
	}
	return m
}

func completionPct(distance float64, planned *float64, positionCount, totalCount int) int {
	var pct int
	switch {
	case planned != nil && *planned > 0:
		pct = int(math.Round(distance / *planned * 100))
	case totalCount > 0:
		// Coarse proxy when no planned distance is known.
		pct = int(math.Round(float64(positionCount) / float64(totalCount) * 100))
	}
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// movement classifies a position event as moving or stopped. Explicit
// vehicle_moving/vehicle_stopped types win; otherwise a carried speed
// decides; events with neither carry no movement information.
func movement(ev *models.Event) (moving, known bool) {
	switch ev.EventType {
	case models.EventVehicleMoving:
		return true, true
	case models.EventVehicleStopped:
		return false, true
	}
	if ev.SpeedKmh != nil {
		return *ev.SpeedKmh > 0, true
	}
	return false, false
}
