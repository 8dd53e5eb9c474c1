package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCollectorExposition(t *testing.T) {
	c := NewCollector(2.0, 500*time.Millisecond)

	c.EventsRevealed.Add(3)
	c.TicksTotal.Inc()
	c.Progress.Set(0.25)
	c.ObserveClients(2, 1, 0)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, req)

	body := rr.Body.String()
	for _, want := range []string{
		"replay_events_revealed_total 3",
		"replay_ticks_total 1",
		"replay_progress_ratio 0.25",
		`replay_connected_clients{transport="websocket"} 2`,
		`replay_connected_clients{transport="sse"} 1`,
		`replay_connected_clients{transport="udp"} 0`,
		"replay_speed_multiplier 2",
		"replay_tick_interval_seconds 0.5",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
