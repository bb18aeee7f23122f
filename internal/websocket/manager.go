package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// NotificationType represents the kind of change being broadcast
type NotificationType string

const (
	Created   NotificationType = "created"
	Updated   NotificationType = "updated"
	Deleted   NotificationType = "deleted"
	Reordered NotificationType = "reordered"
	Replaced  NotificationType = "content_replaced"
)

// Notification describes one committed change.
type Notification struct {
	Type    NotificationType `json:"type"`
	Kind    string           `json:"kind"`
	ID      uint             `json:"id"`
	MediaID uint             `json:"media_id,omitempty"`
}

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
	pingPeriod   = 30 * time.Second
)

// Client represents a WebSocket client connection
type Client struct {
	Conn *websocket.Conn
	send chan []byte
}

// Manager fans notifications out to every connected client. Clients whose
// buffer is full are dropped.
type Manager struct {
	clients    map[*Client]struct{}
	mu         sync.RWMutex
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	upgrader   websocket.Upgrader
	log        zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Run processes registrations until ctx is done, then closes every client.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = struct{}{}
			m.mu.Unlock()
		case client := <-m.unregister:
			m.remove(client)
		case <-ctx.Done():
			m.mu.Lock()
			for client := range m.clients {
				delete(m.clients, client)
				close(client.send)
			}
			m.mu.Unlock()
			return
		}
	}
}

func (m *Manager) remove(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[client]; ok {
		delete(m.clients, client)
		close(client.send)
	}
}

// Clients returns the number of connected clients.
func (m *Manager) Clients() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Notify broadcasts n. It never blocks on a client.
func (m *Manager) Notify(n Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to encode notification")
		return
	}

	var slow []*Client
	m.mu.RLock()
	for client := range m.clients {
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	m.mu.RUnlock()

	for _, client := range slow {
		m.log.Warn().Str("remote", client.Conn.RemoteAddr().String()).Msg("dropping slow websocket client")
		m.remove(client)
	}
}

// Serve upgrades the request and pumps notifications to the connection
// until it fails or the manager stops.
func (m *Manager) Serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := &Client{Conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case m.register <- client:
	case <-m.done:
		conn.Close()
		return nil
	}

	go m.readPump(client)
	m.writePump(client)
	return nil
}

// readPump discards client messages and detects disconnects.
func (m *Manager) readPump(client *Client) {
	defer func() {
		select {
		case m.unregister <- client:
		case <-m.done:
		}
	}()
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (m *Manager) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
