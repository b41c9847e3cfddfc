// handlers/ws.go - Realtime channel endpoint
package handlers

import (
	"log"
	"strings"
	"time"

	"coduel/middleware"
	"coduel/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
)

type wsRequest struct {
	Type  string `json:"type"` // subscribe | unsubscribe | ping
	Topic string `json:"topic,omitempty"`
}

// WSUpgrade gates the upgrade and authenticates the token query parameter.
func WSUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	userID, username, ok := middleware.ParseWSToken(c.Query("token"))
	if !ok {
		return fiber.ErrUnauthorized
	}
	c.Locals("userId", userID)
	c.Locals("username", username)
	return c.Next()
}

// HandleWS bridges one client connection onto the hub. The client is
// auto-subscribed to its private matchmaking topic and may subscribe to
// battle topics for matches it is shown. Outbound events ride a buffered
// channel; a full buffer drops the event (every consumer also polls).
func HandleWS(conn *websocket.Conn) {
	userID := conn.Locals("userId").(uint)
	username, _ := conn.Locals("username").(string)

	events := make(chan services.Event, sendBufferSize)
	unsubs := map[string]func(){}
	topic := services.MatchmakingTopic(userID)
	unsubs[topic] = hub.Subscribe(topic, events)

	done := make(chan struct{})
	defer func() {
		close(done)
		for _, unsub := range unsubs {
			unsub()
		}
		conn.Close()
		log.Printf("🔌 ws disconnected: %s (user %d)", username, userID)
	}()

	log.Printf("🎮 ws connected: %s (user %d)", username, userID)

	// Write pump.
	go func() {
		for {
			select {
			case ev := <-events:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	// Read pump (blocks until disconnect).
	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		switch req.Type {
		case "subscribe":
			if !validBattleTopic(req.Topic) {
				continue
			}
			if _, ok := unsubs[req.Topic]; !ok {
				unsubs[req.Topic] = hub.Subscribe(req.Topic, events)
			}
		case "unsubscribe":
			if unsub, ok := unsubs[req.Topic]; ok {
				unsub()
				delete(unsubs, req.Topic)
			}
		case "ping":
			// Routed through the write pump; concurrent writes on the conn
			// are not safe.
			select {
			case events <- services.Event{Type: "pong"}:
			default:
			}
		}
	}
}

// validBattleTopic restricts ad-hoc subscriptions to battle channels; the
// private matchmaking topic is assigned, never requested.
func validBattleTopic(topic string) bool {
	return strings.HasPrefix(topic, "battle:") && len(topic) > len("battle:")
}
