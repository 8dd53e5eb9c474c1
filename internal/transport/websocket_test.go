package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tripscope/tripscope-cli/internal/encoding"
)

func TestWebSocketServerBroadcast(t *testing.T) {
	port := 19851
	server := NewWebSocketServer("127.0.0.1", port, encoding.NewEncoder(encoding.FormatJSON), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	url := fmt.Sprintf("ws://127.0.0.1:%d/stream", port)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer conn.Close()

	time.Sleep(100 * time.Millisecond)
	if server.ClientCount() != 1 {
		t.Fatalf("ClientCount = %d, want 1", server.ClientCount())
	}

	if err := server.Broadcast(testEvent("trip-a", 0)); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	if messageType != websocket.TextMessage {
		t.Errorf("messageType = %d, want text", messageType)
	}
	if !strings.Contains(string(data), "trip-a") {
		t.Errorf("payload missing trip id: %q", string(data))
	}
}

func TestWebSocketServerStats(t *testing.T) {
	port := 19852
	stats := func() any {
		return map[string]any{"runId": "run-1", "eventCount": 5}
	}
	server := NewWebSocketServer("127.0.0.1", port, encoding.NewEncoder(encoding.FormatJSON), stats)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/stats", port))
	if err != nil {
		t.Fatalf("failed to fetch stats: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if body["runId"] != "run-1" {
		t.Errorf("runId = %v, want run-1", body["runId"])
	}
}

func TestWebSocketServerStatsDisabled(t *testing.T) {
	port := 19853
	server := NewWebSocketServer("127.0.0.1", port, encoding.NewEncoder(encoding.FormatJSON), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/stats", port))
	if err != nil {
		t.Fatalf("failed to fetch stats: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestWebSocketServerAddress(t *testing.T) {
	server := NewWebSocketServer("localhost", 8080, encoding.NewEncoder(encoding.FormatJSON), nil)
	want := "ws://localhost:8080/stream"
	if got := server.Address(); got != want {
		t.Errorf("Address = %q, want %q", got, want)
	}
}
