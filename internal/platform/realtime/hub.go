// Package realtime expone el change feed del árbol realtime por websocket.
// Los clientes se suscriben a colecciones ("health_data/<uid>"), reciben un
// snapshot y después cada put/delete que publica el gateway.
package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"medicare-now/internal/gateway"
	"medicare-now/internal/platform/logger"
)

const (
	EventSnapshot = "snapshot"
	EventPut      = "put"
	EventDelete   = "delete"
	EventError    = "error"

	DefaultSnapshotLimit = 50
	sendBuffer           = 64
)

// Event es lo que recibe el cliente.
type Event struct {
	Type  string           `json:"type"`
	Topic string           `json:"topic"`
	ID    string           `json:"id,omitempty"`
	Value gateway.Document `json:"value,omitempty"`
	Items []SnapshotItem   `json:"items,omitempty"`
	Error string           `json:"error,omitempty"`
	At    time.Time        `json:"at"`
}

type SnapshotItem struct {
	ID    string           `json:"id"`
	Value gateway.Document `json:"value"`
}

// ClientMessage es lo que manda el cliente.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// Lister es la parte del gateway que usa el snapshot.
type Lister interface {
	List(ctx context.Context, collection string, q gateway.Query) ([]gateway.Entry, error)
}

type client struct {
	userID string
	send   chan []byte
	topics map[string]struct{}
}

var _ gateway.Notifier = (*Hub)(nil)

// Hub lleva el registro topic -> clientes. Un cliente lento pierde mensajes
// en lugar de bloquear al que escribe.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*client]struct{}
	clients map[*client]struct{}

	store         Lister
	snapshotLimit int
	log           logger.Logger
	now           func() time.Time
}

// NewHub crea el hub sin store; Bind lo conecta al gateway (que a su vez
// publica en el hub).
func NewHub(log logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		topics:        make(map[string]map[*client]struct{}),
		clients:       make(map[*client]struct{}),
		snapshotLimit: DefaultSnapshotLimit,
		log:           log.With(map[string]any{"component": "realtime"}),
		now:           time.Now,
	}
}

// Bind fija de dónde salen los snapshots. Se llama antes de servir.
func (h *Hub) Bind(store Lister) {
	h.store = store
}

// Publish implementa gateway.Notifier.
func (h *Hub) Publish(_ context.Context, c gateway.Change) error {
	ev := Event{Type: string(c.Op), Topic: c.Collection, ID: c.ID, Value: c.Value, At: c.At}
	h.broadcast(c.Collection, ev)
	return nil
}

// CanSubscribe: solo las colecciones propias ("<categoria>/<userID>/...").
func CanSubscribe(userID, topic string) bool {
	parts, err := gateway.SplitCollection(topic)
	if err != nil || len(parts) < 2 {
		return false
	}
	return parts[1] == userID
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Close desconecta a todos los clientes.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
	}
	h.clients = make(map[*client]struct{})
	h.topics = make(map[string]map[*client]struct{})
}

func (h *Hub) register(userID string) *client {
	c := &client{
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		topics: make(map[string]struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	for topic := range c.topics {
		h.removeLocked(c, topic)
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) removeLocked(c *client, topic string) {
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	delete(c.topics, topic)
}

// handle procesa un mensaje del cliente.
func (h *Hub) handle(ctx context.Context, c *client, msg ClientMessage) {
	switch strings.ToLower(strings.TrimSpace(msg.Action)) {
	case "subscribe":
		for _, topic := range msg.Topics {
			h.subscribe(ctx, c, strings.Trim(strings.TrimSpace(topic), "/"))
		}
	case "unsubscribe":
		h.mu.Lock()
		for _, topic := range msg.Topics {
			h.removeLocked(c, strings.Trim(strings.TrimSpace(topic), "/"))
		}
		h.mu.Unlock()
	default:
		h.sendTo(c, Event{Type: EventError, Error: "unknown action", At: h.now()})
	}
}

func (h *Hub) subscribe(ctx context.Context, c *client, topic string) {
	if !CanSubscribe(c.userID, topic) {
		h.sendTo(c, Event{Type: EventError, Topic: topic, Error: "forbidden topic", At: h.now()})
		return
	}

	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*client]struct{})
	}
	h.topics[topic][c] = struct{}{}
	c.topics[topic] = struct{}{}
	h.mu.Unlock()

	if h.store == nil {
		h.sendTo(c, Event{Type: EventSnapshot, Topic: topic, Items: []SnapshotItem{}, At: h.now()})
		return
	}

	// la suscripción queda antes del snapshot; un put concurrente puede llegar dos veces
	entries, err := h.store.List(ctx, topic, gateway.Query{Descending: true, Limit: h.snapshotLimit})
	if err != nil {
		h.log.Warn("snapshot failed", map[string]any{"topic": topic, "err": err})
		h.sendTo(c, Event{Type: EventError, Topic: topic, Error: "snapshot unavailable", At: h.now()})
		return
	}

	items := make([]SnapshotItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, SnapshotItem{ID: e.ID, Value: e.Value})
	}
	h.sendTo(c, Event{Type: EventSnapshot, Topic: topic, Items: items, At: h.now()})
}

func (h *Hub) broadcast(topic string, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal event", map[string]any{"topic": topic, "err": err})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.topics[topic] {
		h.deliverLocked(c, data)
	}
}

func (h *Hub) sendTo(c *client, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal event", map[string]any{"topic": ev.Topic, "err": err})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		h.deliverLocked(c, data)
	}
}

// deliverLocked requiere h.mu tomado (send no se cierra mientras tanto).
func (h *Hub) deliverLocked(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.log.Warn("slow client, dropping event", map[string]any{"user_id": c.userID})
	}
}
