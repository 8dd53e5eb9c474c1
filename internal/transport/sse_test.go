package transport

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tripscope/tripscope-cli/internal/encoding"
)

func TestSSEServerBroadcast(t *testing.T) {
	port := 19931
	server := NewSSEServer("127.0.0.1", port, encoding.NewEncoder(encoding.FormatJSON))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/stream/sse", port))
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	time.Sleep(100 * time.Millisecond)
	if server.ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", server.ClientCount())
	}

	if err := server.Broadcast(testEvent("trip-a", 0)); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	reader := bufio.NewReader(resp.Body)
	lineCh := make(chan string, 1)
	go func() {
		line, err := reader.ReadString('\n')
		if err == nil {
			lineCh <- line
		}
	}()

	select {
	case line := <-lineCh:
		if !strings.HasPrefix(line, "data: ") {
			t.Errorf("line missing SSE data prefix: %q", line)
		}
		if !strings.Contains(line, "trip-a") {
			t.Errorf("event payload missing trip id: %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for SSE event")
	}
}

func TestSSEServerBroadcastNoClients(t *testing.T) {
	server := NewSSEServer("127.0.0.1", 19932, encoding.NewEncoder(encoding.FormatJSON))

	// No listener started, no clients: must be a no-op.
	if err := server.Broadcast(testEvent("trip-a", 0)); err != nil {
		t.Errorf("Broadcast with no clients returned error: %v", err)
	}
}

func TestSSEServerAddress(t *testing.T) {
	server := NewSSEServer("localhost", 8090, encoding.NewEncoder(encoding.FormatJSON))
	want := "http://localhost:8090/stream/sse"
	if got := server.Address(); got != want {
		t.Errorf("Address = %q, want %q", got, want)
	}
}
