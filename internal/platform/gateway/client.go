package gateway

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/soyeahso/beacon/internal/logging"
)

var ErrClientClosed = errors.New("client connection closed")

// Client represents an authenticated WebSocket connection.
type Client struct {
	ConnID      string
	Info        ClientInfo
	Socket      *websocket.Conn
	ConnectedAt time.Time

	mu     sync.Mutex
	closed bool
}

// NewClient creates a Client for a newly authenticated connection.
func NewClient(conn *websocket.Conn, info ClientInfo) *Client {
	return &Client{
		ConnID:      uuid.New().String(),
		Info:        info,
		Socket:      conn,
		ConnectedAt: time.Now(),
	}
}

// Send sends a frame to the client. Thread-safe.
func (c *Client) Send(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	return c.Socket.WriteJSON(frame)
}

// ReadFrame reads the next frame from the WebSocket.
func (c *Client) ReadFrame() (Frame, error) {
	_, msg, err := c.Socket.ReadMessage()
	if err != nil {
		return Frame{}, err
	}
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Close closes the WebSocket connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.Socket.Close()
}

// ClientRegistry manages connected clients.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client // connID → Client
	log     *logging.Logger
}

func NewClientRegistry(log *logging.Logger) *ClientRegistry {
	return &ClientRegistry{
		clients: make(map[string]*Client),
		log:     log,
	}
}

// Add registers a connected client.
func (r *ClientRegistry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ConnID] = c
	r.log.Info().Str("connId", c.ConnID).Str("client", c.Info.ID).Msg("client connected")
}

// Remove unregisters a client by connection ID.
func (r *ClientRegistry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, connID)
	r.log.Info().Str("connId", connID).Msg("client disconnected")
}

// Count returns the number of connected clients.
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// CloseAll closes all connected clients.
func (r *ClientRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.clients {
		c.Close()
		delete(r.clients, id)
	}
}
