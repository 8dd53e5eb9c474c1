package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tripscope/tripscope-cli/internal/encoding"
	"github.com/tripscope/tripscope-cli/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local dashboards only
	},
}

// WebSocketServer broadcasts revealed events to WebSocket clients and
// serves the replay statistics snapshot at /stats.
type WebSocketServer struct {
	host    string
	port    int
	encoder encoding.Encoder
	stats   func() any
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	server  *http.Server
}

// NewWebSocketServer creates a WebSocket broadcast server. stats may be nil
// to disable the /stats endpoint.
func NewWebSocketServer(host string, port int, encoder encoding.Encoder, stats func() any) *WebSocketServer {
	return &WebSocketServer{
		host:    host,
		port:    port,
		encoder: encoder,
		stats:   stats,
		clients: make(map[*websocket.Conn]bool),
	}
}

// Start runs the server until ctx is cancelled.
func (s *WebSocketServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", s.handleWebSocket)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.host, s.port),
		Handler: mux,
	}

	go func() {
		log.Printf("websocket server listening on ws://%s:%d/stream", s.host, s.port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("websocket server error: %v", err)
		}
	}()

	<-ctx.Done()
	return s.Shutdown()
}

func (s *WebSocketServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "Tripscope Replay Server\n\n")
	fmt.Fprintf(w, "WebSocket endpoint: ws://%s:%d/stream\n", s.host, s.port)
	fmt.Fprintf(w, "Stats endpoint:     http://%s:%d/stats\n", s.host, s.port)
	fmt.Fprintf(w, "Connected clients:  %d\n", s.ClientCount())
}

func (s *WebSocketServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		http.Error(w, "stats not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.stats()); err != nil {
		log.Printf("failed to write stats: %v", err)
	}
}

func (s *WebSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("failed to upgrade connection: %v", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.mu.Unlock()

	log.Printf("client connected from %s (total: %d)", r.RemoteAddr, clientCount)

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.mu.Unlock()

		conn.Close()
		log.Printf("client disconnected (total: %d)", clientCount)
	}()

	// Drain client messages to detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Broadcast sends one event to every connected client.
func (s *WebSocketServer) Broadcast(event models.Event) error {
	data, err := s.encoder.Encode(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	messageType := websocket.TextMessage
	if s.encoder.ContentType() != "application/json" {
		messageType = websocket.BinaryMessage
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for client := range s.clients {
		if err := client.WriteMessage(messageType, data); err != nil {
			log.Printf("failed to send to client: %v", err)
			// Cleaned up by the connection handler.
		}
	}
	return nil
}

// BroadcastFromChannel broadcasts every event read from the channel.
func (s *WebSocketServer) BroadcastFromChannel(ctx context.Context, events <-chan models.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := s.Broadcast(event); err != nil {
				log.Printf("broadcast error: %v", err)
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (s *WebSocketServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Shutdown closes all clients and stops the server.
func (s *WebSocketServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.mu.Lock()
	for client := range s.clients {
		client.Close()
	}
	s.clients = make(map[*websocket.Conn]bool)
	s.mu.Unlock()

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Address returns the WebSocket endpoint address.
func (s *WebSocketServer) Address() string {
	return fmt.Sprintf("ws://%s:%d/stream", s.host, s.port)
}
