// Package livefeed broadcasts tracking frames to WebSocket subscribers
// in real time, optionally gated by a bearer token.
package livefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gabe-ochoa/lidar-tracking/internal/engine"
)

// Config configures a Streamer.
type Config struct {
	// SigningSecret, when non-empty, requires every WebSocket upgrade
	// to present a valid "Authorization: Bearer <JWT>" header signed
	// with this secret (HS256). Empty disables the gate entirely.
	SigningSecret string

	// Logger defaults to logrus.StandardLogger() when nil.
	Logger *logrus.Logger
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

// Client is one connected WebSocket subscriber.
type Client struct {
	conn *websocket.Conn
	send chan engine.TrackingFrame
	id   string
}

// Streamer fans out engine.TrackingFrame values to connected WebSocket
// clients. A Streamer is safe for concurrent use; it is intended to run
// alongside, not inside, an Engine's synchronous ProcessScan loop.
type Streamer struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	broadcast chan engine.TrackingFrame
	upgrader  websocket.Upgrader
	config    Config
	logger    *logrus.Logger

	framesSent    uint64
	clientsServed uint64
}

// NewStreamer creates a Streamer with the given config.
func NewStreamer(cfg Config) *Streamer {
	cfg = cfg.withDefaults()
	return &Streamer{
		clients:   make(map[*Client]bool),
		broadcast: make(chan engine.TrackingFrame, 100),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		config: cfg,
		logger: cfg.Logger,
	}
}

// HandleWebSocket upgrades an HTTP request to a WebSocket connection
// and registers it as a subscriber, rejecting the upgrade with 401 if a
// signing secret is configured and the request lacks a valid token.
func (s *Streamer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.config.SigningSecret != "" {
		if !s.authorized(r) {
			http.Error(w, "invalid or missing bearer token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Error("failed to upgrade websocket")
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan engine.TrackingFrame, 50),
		id:   r.RemoteAddr,
	}
	s.registerClient(client)
	s.logger.WithField("client", client.id).Info("livefeed client connected")

	ctx, cancel := context.WithCancel(context.Background())
	go s.writePump(ctx, client)
	go s.readPump(ctx, cancel, client)
}

func (s *Streamer) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return false
	}
	raw := strings.TrimPrefix(auth, prefix)

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.config.SigningSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		s.logger.WithError(err).Warn("livefeed rejected token")
		return false
	}
	return true
}

func (s *Streamer) registerClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = true
	s.clientsServed++
}

func (s *Streamer) unregisterClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
		s.logger.WithField("client", c.id).Info("livefeed client disconnected")
	}
}

// Broadcast queues a frame for delivery to every connected client,
// dropping the oldest queued frame if the broadcast buffer is full.
func (s *Streamer) Broadcast(frame engine.TrackingFrame) {
	select {
	case s.broadcast <- frame:
	default:
		select {
		case <-s.broadcast:
		default:
		}
		s.broadcast <- frame
	}
}

// Run drains the broadcast queue and fans frames out to clients until
// ctx is canceled.
func (s *Streamer) Run(ctx context.Context) error {
	s.logger.Info("livefeed streamer started")
	for {
		select {
		case <-ctx.Done():
			s.closeAllClients()
			return ctx.Err()
		case frame := <-s.broadcast:
			s.sendToClients(frame)
		}
	}
}

func (s *Streamer) sendToClients(frame engine.TrackingFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		select {
		case client.send <- frame:
			s.framesSent++
		default:
			// client buffer full, drop this frame for this client
		}
	}
}

func (s *Streamer) closeAllClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		client.conn.Close()
		close(client.send)
		delete(s.clients, client)
	}
}

// Stats returns current connection/delivery counters.
func (s *Streamer) Stats() (clients int, framesSent, clientsServed uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients), s.framesSent, s.clientsServed
}

func (s *Streamer) writePump(ctx context.Context, c *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			data, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Streamer) readPump(ctx context.Context, cancel context.CancelFunc, c *Client) {
	defer func() {
		cancel()
		s.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.WithError(err).Warn("livefeed read error")
			}
			return
		}
		// Clients are subscribers only; inbound frames other than
		// pings/control messages are ignored.
	}
}
