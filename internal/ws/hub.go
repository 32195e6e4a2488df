package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	pkglogger "github.com/livepoll/livepoll-backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

const redisPubSubChannel = "livepoll:events"

var (
	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "livepoll",
		Name:      "ws_connections",
		Help:      "Open poll WebSocket connections",
	})
	wsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "livepoll",
		Name:      "ws_dropped_events_total",
		Help:      "Events dropped because the hub or a client was saturated",
	})
)

// Event is a real-time poll event sent via WebSocket
type Event struct {
	Type    string      `json:"type"`
	Code    string      `json:"code"`
	Payload interface{} `json:"payload"`
}

// roomMessage is an encoded event addressed to one poll room
type roomMessage struct {
	Code string
	Data []byte
}

// redisMessage carries an event between instances. Origin lets an instance
// skip its own messages, which it already delivered locally.
type redisMessage struct {
	Origin string          `json:"origin"`
	Code   string          `json:"code"`
	Event  json.RawMessage `json:"event"`
}

// Hub manages WebSocket clients grouped into rooms by poll code
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage

	instanceID  string
	mu          sync.RWMutex
	redisClient *redis.Client
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewHub creates a new Hub; redisClient may be nil for a single instance
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:       make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan roomMessage, 256),
		instanceID:  uuid.NewString(),
		redisClient: redisClient,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Register adds a client to its poll room
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	if h.redisClient != nil {
		go h.subscribeRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.code] == nil {
				h.rooms[client.code] = make(map[*Client]bool)
			}
			h.rooms[client.code][client] = true
			h.mu.Unlock()
			wsConnections.Inc()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.rooms[msg.Code] {
				select {
				case client.send <- msg.Data:
				default:
					// slow consumer
					wsDropped.Inc()
					h.remove(client)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			return
		}
	}
}

// remove must be called with mu held
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.code]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	wsConnections.Dec()
	if len(clients) == 0 {
		delete(h.rooms, client.code)
	}
}

// RoomSize number of clients watching code
func (h *Hub) RoomSize(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}

// Publish delivers an event to the poll room locally and on other instances
// through Redis. It never blocks on slow clients.
func (h *Hub) Publish(code, eventType string, payload interface{}) {
	data, err := json.Marshal(&Event{Type: eventType, Code: code, Payload: payload})
	if err != nil {
		pkglogger.Warn("ws: encode %s event for %s: %v", eventType, code, err)
		return
	}
	h.deliver(code, data)

	if h.redisClient != nil {
		msg, err := json.Marshal(&redisMessage{Origin: h.instanceID, Code: code, Event: data})
		if err == nil {
			h.redisClient.Publish(h.ctx, redisPubSubChannel, msg) //nolint:errcheck
		}
	}
}

func (h *Hub) deliver(code string, data []byte) {
	select {
	case h.broadcast <- roomMessage{Code: code, Data: data}:
	default:
		wsDropped.Inc()
		pkglogger.Warn("ws: broadcast queue full, dropping event for %s", code)
	}
}

// handleRemote delivers a message received from Redis unless this instance sent it
func (h *Hub) handleRemote(payload string) {
	var rm redisMessage
	if err := json.Unmarshal([]byte(payload), &rm); err != nil {
		return
	}
	if rm.Origin == h.instanceID || rm.Code == "" {
		return
	}
	h.deliver(rm.Code, rm.Event)
}

// subscribeRedis listens for events from other instances
func (h *Hub) subscribeRedis() {
	pubsub := h.redisClient.Subscribe(h.ctx, redisPubSubChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleRemote(msg.Payload)
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.cancel()
}
