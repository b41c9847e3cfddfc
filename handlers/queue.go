// handlers/queue.go - Matchmaking endpoints
package handlers

import (
	"errors"

	"coduel/middleware"
	"coduel/services"

	"github.com/gofiber/fiber/v2"
)

type JoinQueueRequest struct {
	IsRanked bool   `json:"is_ranked"`
	Language string `json:"language,omitempty"`
}

type BotMatchRequest struct {
	IsRanked bool   `json:"is_ranked"`
	Language string `json:"language,omitempty"`
	Topic    string `json:"topic,omitempty"`
}

// JoinQueue puts the caller into matchmaking; the response is either the
// match that was created on the spot or confirmation that they are queued.
// POST /api/queue/join
func JoinQueue(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	var req JoinQueueRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	outcome, err := matchmaker.Join(userID, req.IsRanked, req.Language)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "Matchmaking failed, try a bot match"})
	}

	if outcome.Matched {
		if _, err := battleManager.StartBattle(outcome.MatchID); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "Failed to start battle"})
		}
	}
	return c.JSON(outcome)
}

// LeaveQueue drops the caller's queue entry. Always succeeds from the
// caller's point of view.
// POST /api/queue/leave
func LeaveQueue(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	matchmaker.Leave(userID)
	return c.JSON(fiber.Map{"success": true})
}

// CreateBotMatch starts an immediate duel against a synthetic opponent,
// the guaranteed fallback when no human shows up.
// POST /api/match/bot
func CreateBotMatch(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	var req BotMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	outcome, err := matchmaker.CreateBotMatch(userID, req.IsRanked, req.Language, req.Topic)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "Profile not found"})
		}
		if errors.Is(err, services.ErrEmptyQuestionPool) {
			return c.Status(503).JSON(fiber.Map{"error": "No questions available"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "Failed to create bot match"})
	}

	if _, err := battleManager.StartBattle(outcome.MatchID); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to start battle"})
	}
	return c.JSON(outcome)
}
