package transport

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/tripscope/tripscope-cli/internal/encoding"
)

func dialUDP(t *testing.T, port int) *net.UDPConn {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("failed to resolve address: %v", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	return conn
}

func TestUDPServerSubscribeAndBroadcast(t *testing.T) {
	port := 19841
	server := NewUDPServer("127.0.0.1", port, encoding.NewEncoder(encoding.FormatJSON))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	conn := dialUDP(t, port)
	defer conn.Close()

	if _, err := conn.Write([]byte("subscribe")); err != nil {
		t.Fatalf("failed to send subscribe: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if server.ClientCount() != 1 {
		t.Fatalf("ClientCount = %d, want 1", server.ClientCount())
	}

	if err := server.Broadcast(testEvent("trip-a", 0)); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("failed to read broadcast: %v", err)
	}

	payload := string(buf[:n])
	if !strings.Contains(payload, "trip-a") {
		t.Errorf("payload missing trip id: %q", payload)
	}
	if !strings.Contains(payload, "location_ping") {
		t.Errorf("payload missing event type: %q", payload)
	}
}

func TestUDPServerUnsubscribe(t *testing.T) {
	port := 19842
	server := NewUDPServer("127.0.0.1", port, encoding.NewEncoder(encoding.FormatJSON))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	conn := dialUDP(t, port)
	defer conn.Close()

	conn.Write([]byte("subscribe"))
	time.Sleep(200 * time.Millisecond)
	if server.ClientCount() != 1 {
		t.Fatalf("ClientCount after subscribe = %d, want 1", server.ClientCount())
	}

	conn.Write([]byte("unsubscribe"))
	time.Sleep(200 * time.Millisecond)
	if server.ClientCount() != 0 {
		t.Errorf("ClientCount after unsubscribe = %d, want 0", server.ClientCount())
	}
}

func TestUDPServerAnyMessageRegisters(t *testing.T) {
	port := 19843
	server := NewUDPServer("127.0.0.1", port, encoding.NewEncoder(encoding.FormatJSON))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	conn := dialUDP(t, port)
	defer conn.Close()

	conn.Write([]byte("hello"))
	time.Sleep(200 * time.Millisecond)

	if server.ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", server.ClientCount())
	}
}

func TestUDPServerAddress(t *testing.T) {
	server := NewUDPServer("localhost", 9999, encoding.NewEncoder(encoding.FormatJSON))
	want := "udp://localhost:9999"
	if got := server.Address(); got != want {
		t.Errorf("Address = %q, want %q", got, want)
	}
}
