// Package websocket pushes patient cache invalidation notices to connected
// dashboard clients so open views can refetch instead of polling.
package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	TypePatientsInvalidated = "patients.invalidated"

	// TopicPatients receives every invalidation. Clients showing a single
	// patient subscribe to PatientTopic(id) instead.
	TopicPatients = "patients"

	sendBuffer = 32
)

func PatientTopic(id string) string { return TopicPatients + "/" + id }

// Notice is the JSON frame sent to clients.
type Notice struct {
	Type      string    `json:"type"`
	PatientID string    `json:"patientId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is an inbound subscription change.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// Client is one connection's outbound queue and its subscriptions.
type Client struct {
	ID     string
	Topics []string
	Send   chan []byte
}

func newClient(id string, topics ...string) *Client {
	return &Client{ID: id, Topics: topics, Send: make(chan []byte, sendBuffer)}
}

// Hub tracks clients by topic. A slow client whose buffer is full misses
// notices rather than blocking the broadcaster.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Client]struct{}
	all     map[*Client]struct{}
	logger  zerolog.Logger
	nowFunc func() time.Time
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		topics:  make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger,
		nowFunc: time.Now,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[c] = struct{}{}
	h.subscribeLocked(c, c.Topics)
}

// Unregister removes c from every topic and closes its Send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[c]; !ok {
		return
	}
	for _, topic := range c.Topics {
		h.dropLocked(topic, c)
	}
	delete(h.all, c)
	close(c.Send)
}

func (h *Hub) Subscribe(c *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.subscribeLocked(c, topics)
	c.Topics = append(c.Topics, topics...)
}

func (h *Hub) subscribeLocked(c *Client, topics []string) {
	for _, topic := range topics {
		if h.topics[topic] == nil {
			h.topics[topic] = make(map[*Client]struct{})
		}
		h.topics[topic][c] = struct{}{}
	}
}

func (h *Hub) Unsubscribe(c *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	remove := make(map[string]struct{}, len(topics))
	for _, topic := range topics {
		remove[topic] = struct{}{}
		h.dropLocked(topic, c)
	}
	kept := c.Topics[:0]
	for _, topic := range c.Topics {
		if _, ok := remove[topic]; !ok {
			kept = append(kept, topic)
		}
	}
	c.Topics = kept
}

func (h *Hub) dropLocked(topic string, c *Client) {
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (h *Hub) ProcessMessage(c *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(c, msg.Topics)
	case "unsubscribe":
		h.Unsubscribe(c, msg.Topics)
	}
}

// Broadcast delivers n once to every client subscribed to any of topics.
func (h *Hub) Broadcast(n Notice, topics ...string) {
	data, err := json.Marshal(n)
	if err != nil {
		h.logger.Error().Err(err).Msg("encode websocket notice")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := make(map[*Client]struct{})
	for _, topic := range topics {
		for c := range h.topics[topic] {
			if _, done := sent[c]; done {
				continue
			}
			sent[c] = struct{}{}
			select {
			case c.Send <- data:
			default:
				h.logger.Debug().Str("client_id", c.ID).Msg("websocket client lagging, notice dropped")
			}
		}
	}
}

// PatientsInvalidated tells listing subscribers, and the patient's own
// subscribers when patientID is set, that cached data was dropped.
func (h *Hub) PatientsInvalidated(patientID string) {
	topics := []string{TopicPatients}
	if patientID != "" {
		topics = append(topics, PatientTopic(patientID))
	}
	h.Broadcast(Notice{
		Type:      TypePatientsInvalidated,
		PatientID: patientID,
		Timestamp: h.nowFunc().UTC(),
	}, topics...)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
