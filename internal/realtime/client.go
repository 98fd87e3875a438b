package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teamstream-hq/teamstream/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Inbound frames are ignored except for control messages, so a small
	// cap is enough.
	maxMessageSize = 512

	sendBuffer = 64
)

// Client is one websocket connection, bound to a tenant and user at
// upgrade time and subscribed to the containers its guards admitted.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	tenantID uuid.UUID
	userID   uuid.UUID

	mu         sync.RWMutex
	containers map[models.ContainerRef]struct{}
}

// NewClient registers a connection with the hub. The caller starts the
// pumps with Serve once initial subscriptions are set.
func NewClient(hub *Hub, conn *websocket.Conn, tenantID, userID uuid.UUID) *Client {
	c := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		tenantID:   tenantID,
		userID:     userID,
		containers: map[models.ContainerRef]struct{}{},
	}
	hub.add(c)
	return c
}

// Subscribe adds a container to the client's filter. The caller must have
// already run the membership guard for it — the hub trusts its callers on
// that, exactly once, at subscribe time.
func (c *Client) Subscribe(ref models.ContainerRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.containers[ref] = struct{}{}
}

func (c *Client) subscribed(ref models.ContainerRef) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.containers[ref]
	return ok
}

// Serve runs the read and write pumps. Blocks until the peer goes away.
func (c *Client) Serve() {
	go c.writePump()
	c.readPump()
}

// readPump discards inbound data frames and watches for disconnect.
// Clients talk to the REST API; the socket is downstream-only.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
