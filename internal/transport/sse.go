package transport

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/tripscope/tripscope-cli/internal/encoding"
	"github.com/tripscope/tripscope-cli/internal/models"
)

// SSEServer broadcasts revealed events via Server-Sent Events.
type SSEServer struct {
	host    string
	port    int
	encoder encoding.Encoder
	clients map[chan []byte]bool
	mu      sync.RWMutex
	server  *http.Server
}

func NewSSEServer(host string, port int, encoder encoding.Encoder) *SSEServer {
	return &SSEServer{
		host:    host,
		port:    port,
		encoder: encoder,
		clients: make(map[chan []byte]bool),
	}
}

// Start runs the server until ctx is cancelled or the listener fails.
func (s *SSEServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/stream/sse", s.handleSSE)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.host, s.port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("sse server listening on http://%s:%d/stream/sse", s.host, s.port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("sse server failed: %w", err)
		}
		return nil
	}
}

func (s *SSEServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "Tripscope SSE Server\n\nEndpoint: http://%s:%d/stream/sse\n", s.host, s.port)
}

func (s *SSEServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	clientChan := make(chan []byte, 100)
	s.addClient(clientChan)
	defer s.removeClient(clientChan)

	log.Printf("sse client connected (total: %d)", s.ClientCount())

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-clientChan:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *SSEServer) addClient(ch chan []byte) {
	s.mu.Lock()
	s.clients[ch] = true
	s.mu.Unlock()
}

func (s *SSEServer) removeClient(ch chan []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clients[ch]; exists {
		delete(s.clients, ch)
		close(ch)
		log.Printf("sse client disconnected (total: %d)", len(s.clients))
	}
}

// Broadcast sends one event to every connected client.
func (s *SSEServer) Broadcast(event models.Event) error {
	if s.ClientCount() == 0 {
		return nil
	}

	data, err := s.encoder.Encode(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.clients {
		select {
		case ch <- data:
		default:
		}
	}
	return nil
}

// BroadcastFromChannel broadcasts every event read from the channel.
func (s *SSEServer) BroadcastFromChannel(ctx context.Context, events <-chan models.Event) error {
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
func (s *SSEServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Shutdown closes all clients and stops the server.
func (s *SSEServer) Shutdown() error {
	s.mu.Lock()
	for ch := range s.clients {
		close(ch)
	}
	s.clients = make(map[chan []byte]bool)
	s.mu.Unlock()

	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// Address returns the SSE endpoint address.
func (s *SSEServer) Address() string {
	return fmt.Sprintf("http://%s:%d/stream/sse", s.host, s.port)
}
