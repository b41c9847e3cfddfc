// services/notifier.go - Topic-based realtime fan-out
package services

import (
	"fmt"
	"log"
	"sync"
)

// Event is one realtime message on a topic.
type Event struct {
	Topic   string                 `json:"topic"`
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

// Realtime topics and event types.
const (
	EventMatchFound     = "match_found"
	EventPlayerAnswered = "player_answered"
	EventReaction       = "reaction"
	EventPhaseChanged   = "phase_changed"
)

// MatchmakingTopic is the private channel a queued user listens on.
func MatchmakingTopic(userID uint) string {
	return fmt.Sprintf("matchmaking:%d", userID)
}

// BattleTopic is the shared channel for one match.
func BattleTopic(matchID string) string {
	return fmt.Sprintf("battle:%s", matchID)
}

// Notifier is the broadcast side the core depends on. Delivery is
// at-least-once and advisory: every consumer also has a durable-poll path,
// so a dropped event is never a correctness problem.
type Notifier interface {
	Publish(topic, eventType string, payload map[string]interface{})
	Subscribe(topic string, ch chan<- Event) func()
}

// Hub is the in-process Notifier backing the WebSocket layer. Subscribers
// get a buffered channel; slow consumers drop events rather than block the
// publisher.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[chan<- Event]bool
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[chan<- Event]bool)}
}

// Publish fans an event out to every subscriber of the topic.
func (h *Hub) Publish(topic, eventType string, payload map[string]interface{}) {
	ev := Event{Topic: topic, Type: eventType, Payload: payload}

	h.mu.RLock()
	subs := make([]chan<- Event, 0, len(h.topics[topic]))
	for ch := range h.topics[topic] {
		subs = append(subs, ch)
	}
	h.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			log.Printf("⚠️  dropping %s event on %s: subscriber buffer full", eventType, topic)
		}
	}
}

// Subscribe registers ch on the topic and returns the matching unsubscribe.
// Unsubscribe is idempotent and safe to call from teardown paths.
func (h *Hub) Subscribe(topic string, ch chan<- Event) func() {
	h.mu.Lock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[chan<- Event]bool)
	}
	h.topics[topic][ch] = true
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, ok := h.topics[topic]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.topics, topic)
			}
		}
	}
}
