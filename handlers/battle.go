// handlers/battle.go - Live duel endpoints
package handlers

import (
	"errors"
	"time"

	"coduel/middleware"
	"coduel/services"

	"github.com/gofiber/fiber/v2"
)

type SubmitAnswerRequest struct {
	Index   int   `json:"index"`
	Indices []int `json:"indices,omitempty"`
}

type ReactionRequest struct {
	Reaction string `json:"reaction"`
}

// battleFor resolves the live orchestrator for a match, starting it if the
// caller is the first to arrive (the queued side learns about the match by
// event or poll and lands here).
func battleFor(c *fiber.Ctx) (*services.Battle, uint, error) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return nil, 0, c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	matchID := c.Params("id")
	battle, ok := battleManager.Get(matchID)
	if !ok {
		battle, err = battleManager.StartBattle(matchID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return nil, 0, c.Status(404).JSON(fiber.Map{"error": "Match not found"})
			}
			return nil, 0, c.Status(409).JSON(fiber.Map{"error": "Match is not joinable"})
		}
	}
	return battle, userID, nil
}

// GetBattle returns the caller's view of the duel. For a match that has
// already finished and been torn down, the durable record is served
// instead.
// GET /api/battle/:id
func GetBattle(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	matchID := c.Params("id")
	if battle, ok := battleManager.Get(matchID); ok {
		view, err := battle.View(userID)
		if err != nil {
			return c.Status(403).JSON(fiber.Map{"error": "Not a player in this match"})
		}
		return c.JSON(view)
	}

	match, err := store.GetMatch(matchID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Match not found"})
	}
	if match.SlotOf(userID) == 0 {
		return c.Status(403).JSON(fiber.Map{"error": "Not a player in this match"})
	}

	if match.IsOpen() {
		battle, err := battleManager.StartBattle(matchID)
		if err != nil {
			return c.Status(409).JSON(fiber.Map{"error": "Match is not joinable"})
		}
		view, err := battle.View(userID)
		if err != nil {
			return c.Status(403).JSON(fiber.Map{"error": "Not a player in this match"})
		}
		return c.JSON(view)
	}

	return c.JSON(match)
}

// SubmitAnswer records the caller's answer for the current round.
// POST /api/battle/:id/answer
func SubmitAnswer(c *fiber.Ctx) error {
	battle, userID, err := battleFor(c)
	if battle == nil {
		return err
	}

	var req SubmitAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ans := services.Answer{Index: req.Index, Indices: req.Indices}
	if err := battle.SubmitAnswer(userID, ans); err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyAnswered):
			return c.Status(409).JSON(fiber.Map{"error": "Answer already submitted"})
		case errors.Is(err, services.ErrWrongPhase):
			return c.Status(409).JSON(fiber.Map{"error": "No question is active"})
		case errors.Is(err, services.ErrNotInMatch):
			return c.Status(403).JSON(fiber.Map{"error": "Not a player in this match"})
		default:
			return c.Status(500).JSON(fiber.Map{"error": "Failed to submit answer"})
		}
	}

	view, _ := battle.View(userID)
	return c.JSON(view)
}

// Advance moves the duel out of the result/explanation reveal.
// POST /api/battle/:id/advance
func Advance(c *fiber.Ctx) error {
	battle, userID, err := battleFor(c)
	if battle == nil {
		return err
	}

	if err := battle.AdvanceAfterExplanation(userID); err != nil {
		switch {
		case errors.Is(err, services.ErrWrongPhase):
			return c.Status(409).JSON(fiber.Map{"error": "Nothing to advance"})
		case errors.Is(err, services.ErrNotInMatch):
			return c.Status(403).JSON(fiber.Map{"error": "Not a player in this match"})
		default:
			return c.Status(500).JSON(fiber.Map{"error": "Failed to advance"})
		}
	}

	if battle.Phase() == services.PhaseMatchEnd {
		// Terminal: give the other side a window to fetch the final view,
		// then free the slot.
		battleManager.RemoveLater(battle.ID, 2*time.Minute)
	}

	view, _ := battle.View(userID)
	return c.JSON(view)
}

// React relays a cosmetic emote to the opponent.
// POST /api/battle/:id/reaction
func React(c *fiber.Ctx) error {
	battle, userID, err := battleFor(c)
	if battle == nil {
		return err
	}

	var req ReactionRequest
	if err := c.BodyParser(&req); err != nil || req.Reaction == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid reaction"})
	}

	if err := battle.React(userID, req.Reaction); err != nil {
		return c.Status(403).JSON(fiber.Map{"error": "Not a player in this match"})
	}
	return c.JSON(fiber.Map{"success": true})
}
