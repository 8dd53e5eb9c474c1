package transport

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/tripscope/tripscope-cli/internal/encoding"
	"github.com/tripscope/tripscope-cli/internal/models"
)

// UDPServer broadcasts revealed events via UDP to registered clients.
type UDPServer struct {
	host    string
	port    int
	encoder encoding.Encoder
	conn    *net.UDPConn
	clients map[string]*net.UDPAddr
	mu      sync.RWMutex
}

func NewUDPServer(host string, port int, encoder encoding.Encoder) *UDPServer {
	return &UDPServer{
		host:    host,
		port:    port,
		encoder: encoder,
		clients: make(map[string]*net.UDPAddr),
	}
}

// Start runs the server until ctx is cancelled.
func (s *UDPServer) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", s.host, s.port))
	if err != nil {
		return fmt.Errorf("failed to resolve address: %w", err)
	}

	s.conn, err = net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	log.Printf("udp server listening on %s:%d", s.host, s.port)

	go s.readLoop(ctx)

	<-ctx.Done()
	return s.Shutdown()
}

// readLoop handles client registration packets.
func (s *UDPServer) readLoop(ctx context.Context) {
	buf := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			s.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
			n, addr, err := s.conn.ReadFromUDP(buf)
			if err != nil {
				continue
			}
			s.handleMessage(string(buf[:n]), addr)
		}
	}
}

func (s *UDPServer) handleMessage(msg string, addr *net.UDPAddr) {
	key := addr.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg {
	case "subscribe":
		s.clients[key] = addr
		log.Printf("udp client subscribed: %s (total: %d)", key, len(s.clients))
	case "unsubscribe":
		delete(s.clients, key)
		log.Printf("udp client unsubscribed: %s (total: %d)", key, len(s.clients))
	default:
		// Any message registers the sender.
		if _, exists := s.clients[key]; !exists {
			s.clients[key] = addr
			log.Printf("udp client registered: %s (total: %d)", key, len(s.clients))
		}
	}
}

// Broadcast sends one event to every registered client.
func (s *UDPServer) Broadcast(event models.Event) error {
	if s.ClientCount() == 0 {
		return nil
	}

	data, err := s.encoder.Encode(event)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, addr := range s.clients {
		s.conn.WriteToUDP(data, addr)
	}
	return nil
}

// BroadcastFromChannel broadcasts every event read from the channel.
func (s *UDPServer) BroadcastFromChannel(ctx context.Context, events <-chan models.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			s.Broadcast(event)
		}
	}
}

// ClientCount returns the number of registered clients.
func (s *UDPServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Shutdown closes the UDP socket.
func (s *UDPServer) Shutdown() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Address returns the UDP endpoint address.
func (s *UDPServer) Address() string {
	return fmt.Sprintf("udp://%s:%d", s.host, s.port)
}
