package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	EventsRevealed prometheus.Counter
	EventsDropped  prometheus.Counter
	TicksTotal     prometheus.Counter
	Completions    prometheus.Counter

	Progress         prometheus.Gauge
	SpeedMultiplier  prometheus.Gauge
	ConnectedClients *prometheus.GaugeVec // transport label: websocket|sse|udp
	TripsLoaded      prometheus.Gauge

	TickDuration prometheus.Histogram

	TickInterval prometheus.Gauge // seconds
}

func NewCollector(speedMultiplier float64, tickInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		EventsRevealed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_events_revealed_total",
			Help: "Total events revealed by the replay clock.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_events_dropped_total",
			Help: "Total events dropped by full subscriber buffers.",
		}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_ticks_total",
			Help: "Total replay ticks processed.",
		}),
		Completions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_completions_total",
			Help: "Total times a replay reached the end of its dataset.",
		}),
		Progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_progress_ratio",
			Help: "Replay progress through the dataset, 0 to 1.",
		}),
		SpeedMultiplier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_speed_multiplier",
			Help: "Current speed multiplier.",
		}),
		ConnectedClients: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "replay_connected_clients",
			Help: "Connected streaming clients per transport.",
		}, []string{"transport"}),
		TripsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_trips_loaded",
			Help: "Number of trips in the loaded dataset.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "replay_tick_duration_seconds",
			Help:    "Duration of replay tick computations.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		TickInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_tick_interval_seconds",
			Help: "Configured tick interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.EventsRevealed, c.EventsDropped, c.TicksTotal, c.Completions,
		c.Progress, c.SpeedMultiplier, c.ConnectedClients, c.TripsLoaded,
		c.TickDuration, c.TickInterval,
	)

	c.SpeedMultiplier.Set(speedMultiplier)
	c.TickInterval.Set(tickInterval.Seconds())

	return c
}

// ObserveClients records the current client count for each transport.
func (c *Collector) ObserveClients(websocket, sse, udp int) {
	c.ConnectedClients.WithLabelValues("websocket").Set(float64(websocket))
	c.ConnectedClients.WithLabelValues("sse").Set(float64(sse))
	c.ConnectedClients.WithLabelValues("udp").Set(float64(udp))
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
