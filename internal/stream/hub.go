// Package stream fans predictions out to websocket subscribers.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/hilo-oracle/internal/logger"
	"github.com/yourusername/hilo-oracle/internal/metrics"
	"github.com/yourusername/hilo-oracle/internal/models"
)

// Client stream events
const (
	EventConnected    = "CONNECTED"
	EventDisconnected = "DISCONNECTED"
	EventDropped      = "DROPPED"
)

// Config controls buffering and keepalive of subscriber connections
type Config struct {
	BufferSize     int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	AllowedOrigins []string
}

// Hub tracks websocket subscribers and broadcasts predictions to them
type Hub struct {
	cfg      Config
	upgrader websocket.Upgrader
	logger   *logrus.Entry
	audit    *logger.AuditLogger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	id      string
	session string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
}

// NewHub creates a hub
func NewHub(cfg Config, log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.New()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}

	h := &Hub{
		cfg:     cfg,
		logger:  log.WithField("component", "stream"),
		audit:   logger.NewAuditLogger(log),
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP upgrades the request and subscribes the connection. The
// optional session query parameter restricts delivery to one session.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}

	c := &client{
		id:      uuid.NewString(),
		session: r.URL.Query().Get("session"),
		conn:    conn,
		send:    make(chan []byte, h.cfg.BufferSize),
		done:    make(chan struct{}),
	}

	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
		conn.Close()
		return
	}
	h.audit.LogStreamClient(c.id, EventConnected, r.RemoteAddr, h.ClientCount())

	go h.writePump(c)
	h.readPump(c)
}

// Publish delivers a prediction to every matching subscriber. Subscribers
// whose buffer is full are disconnected rather than blocking the caller.
func (h *Hub) Publish(prediction *models.PredictionResponse) {
	payload, err := json.Marshal(prediction)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode prediction")
		return
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		if c.session != "" && c.session != prediction.Session {
			continue
		}
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.audit.LogStreamClient(c.id, EventDropped, c.conn.RemoteAddr().String(), h.ClientCount())
		h.remove(c)
	}
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.UpdateStreamClients(len(h.clients))
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.UpdateStreamClients(count)
	}
	c.once.Do(func() { close(c.done) })
}

// readPump discards inbound frames and returns once the peer goes away
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		h.audit.LogStreamClient(c.id, EventDisconnected, c.conn.RemoteAddr().String(), h.ClientCount())
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(h.cfg.WriteTimeout))
			return
		}
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
