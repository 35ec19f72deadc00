// Package live pushes ranking snapshots to websocket subscribers.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"SolPulse/internal/domain/models"
	domrepo "SolPulse/internal/domain/repository"
	applogger "SolPulse/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	TypeRankingsUpdated = "rankings.updated"

	sendBuffer = 16
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the envelope written to subscribers.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Hub fans messages out to every connected subscriber. A subscriber whose
// buffer is full is disconnected.
type Hub struct {
	mu           sync.RWMutex
	clients      map[*client]struct{}
	pingInterval time.Duration
	l            *applogger.Logger
}

func NewHub(l *applogger.Logger, pingInterval time.Duration) *Hub {
	if l == nil {
		l = applogger.Nop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		clients:      make(map[*client]struct{}),
		pingInterval: pingInterval,
		l:            l,
	}
}

var _ domrepo.RankingSink = (*Hub)(nil)

// SaveRanking broadcasts the snapshot as a rankings.updated message.
func (h *Hub) SaveRanking(_ context.Context, snap models.RankingSnapshot) error {
	return h.Broadcast(Message{Type: TypeRankingsUpdated, Payload: snap})
}

// Broadcast encodes msg once and queues it for every subscriber.
func (h *Hub) Broadcast(msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode live message: %w", err)
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.l.Warn("dropping slow live subscriber", applogger.String("remote_addr", c.conn.RemoteAddr().String()))
		h.remove(c)
	}
	return nil
}

// Clients is the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and blocks until the subscriber goes away.
// initial, when set, is sent before any broadcast.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, initial *Message) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if initial != nil {
		if b, err := json.Marshal(initial); err == nil {
			c.send <- b
		}
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.l.Info("live subscriber connected", applogger.String("remote_addr", r.RemoteAddr))

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(c)
	}()
	h.readLoop(c)
	h.remove(c)
	<-done

	h.l.Info("live subscriber disconnected", applogger.String("remote_addr", r.RemoteAddr))
	return nil
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.close()
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// readLoop discards client frames; it returns when the connection fails.
func (h *Hub) readLoop(c *client) {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
