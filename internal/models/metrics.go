package models

import "time"

// TripStatus is the derived lifecycle state of a trip at a cutoff time.
type TripStatus string

const (
	StatusIdle      TripStatus = "idle"
	StatusActive    TripStatus = "active"
	StatusCompleted TripStatus = "completed"
	StatusCancelled TripStatus = "cancelled"
)

// TripMetrics is a derived snapshot over one trip's revealed event prefix.
// It is recomputed on demand and never stored as a source of truth.
type TripMetrics struct {
	Status               TripStatus    `json:"status"`
	TotalDistanceKm      float64       `json:"totalDistanceKm"`
	AverageSpeedKmh      float64       `json:"averageSpeedKmh"`
	MaxSpeedKmh          float64       `json:"maxSpeedKmh"`
	StopCount            int           `json:"stopCount"`
	CompletionPercentage int           `json:"completionPercentage"`
	LastKnownLocation    *Location     `json:"lastKnownLocation"`
	StartTime            time.Time     `json:"startTime"`
	LastUpdateTime       time.Time     `json:"lastUpdateTime"`
	ElapsedDuration      time.Duration `json:"elapsedDuration"`
}
