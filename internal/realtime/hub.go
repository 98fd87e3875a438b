// Package realtime pushes chat events to connected websocket clients.
//
// Delivery is best-effort and carries no authorization decisions of its
// own: a connection is only subscribed to a container after the same
// membership guard used for reads has passed (see the ws route), and
// events for containers a client never subscribed to are never sent.
//
// With Redis configured, events round-trip through a pub/sub channel so
// every server instance fans out to its own local connections. Without
// Redis (single instance, tests) events deliver locally.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/teamstream-hq/teamstream/internal/models"
)

// eventsChannel is the Redis pub/sub channel shared by all instances.
const eventsChannel = "teamstream:chat:events"

// Event is what subscribers receive. One event per guarded write.
type Event struct {
	Type      string             `json:"type"`
	TenantID  uuid.UUID          `json:"tenant_id"`
	Container models.ContainerRef `json:"container"`
	Message   *models.Message    `json:"message,omitempty"`
}

// Hub tracks local websocket clients and bridges events across instances.
type Hub struct {
	logger *zap.Logger
	rdb    *redis.Client

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a hub. rdb may be nil for single-instance delivery.
func NewHub(rdb *redis.Client, logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		rdb:     rdb,
		clients: map[*Client]struct{}{},
	}
}

// Publish sends an event to all subscribed clients, on every instance.
// Fire-and-forget: a broken broadcast path never fails the write that
// triggered it.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	if h == nil {
		return
	}
	if h.rdb == nil {
		h.deliver(ev)
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Warn("marshal event", zap.Error(err))
		return
	}
	if err := h.rdb.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		h.logger.Warn("publish event", zap.Error(err))
		// Degrade to local delivery so this instance's clients still
		// hear about the write.
		h.deliver(ev)
	}
}

// Run consumes the Redis channel and delivers to local clients. Blocks
// until ctx is cancelled; no-op without Redis.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		return
	}

	sub := h.rdb.Subscribe(ctx, eventsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.logger.Warn("decode event", zap.Error(err))
				continue
			}
			h.deliver(ev)
		}
	}
}

func (h *Hub) deliver(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Warn("marshal event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.tenantID != ev.TenantID || !client.subscribed(ev.Container) {
			continue
		}
		select {
		case client.send <- payload:
		default:
			// Slow consumer: drop the event rather than block the hub.
			h.logger.Debug("dropping event for slow client",
				zap.String("tenant_id", ev.TenantID.String()))
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}
