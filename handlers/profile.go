// handlers/profile.go - Player profile and match history
package handlers

import (
	"coduel/database"
	"coduel/middleware"
	"coduel/models"
	"coduel/services"

	"github.com/gofiber/fiber/v2"
)

// GetProfile returns the caller's full profile with derived fields.
// GET /api/profile
func GetProfile(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	user, err := store.GetUser(userID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Profile not found"})
	}

	return c.JSON(fiber.Map{
		"success":            true,
		"user":               userInfo(user),
		"wins":               user.Wins,
		"losses":             user.Losses,
		"current_streak":     user.CurrentStreak,
		"best_streak":        user.BestStreak,
		"streak_freezes":     user.StreakFreezes,
		"last_battle_date":   user.LastBattleDate,
		"level_progress":     services.LevelProgress(user.XP),
		"difficulty":         services.DifficultyForRating(user.Rating),
		"preferred_language": user.PreferredLanguage,
	})
}

type UpdateProfileRequest struct {
	DisplayName       *string `json:"display_name"`
	Avatar            *string `json:"avatar"`
	PreferredLanguage *string `json:"preferred_language"`
}

// UpdateProfile lets the player change display settings. Rating, streaks
// and progression are battle-owned and not writable here.
// PUT /api/profile
func UpdateProfile(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, err := store.GetUser(userID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Profile not found"})
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	if req.PreferredLanguage != nil {
		user.PreferredLanguage = *req.PreferredLanguage
	}

	if err := store.SaveUser(user); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to save profile"})
	}
	return c.JSON(fiber.Map{"success": true, "user": userInfo(user)})
}

// GetMatchHistory lists the caller's recent finished matches.
// GET /api/profile/history?limit=20
func GetMatchHistory(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}
	limit := clampInt(queryInt(c, "limit", 20), 1, 50)

	db := database.GetDB()
	var matches []models.Match
	if err := db.Where("(player1_id = ? OR player2_id = ?) AND ended_at IS NOT NULL", userID, userID).
		Order("ended_at DESC").
		Limit(limit).
		Find(&matches).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch match history"})
	}

	return c.JSON(fiber.Map{"success": true, "matches": matches})
}

// DeleteAccount removes the caller's profile. The only path that ever
// deletes a user row.
// DELETE /api/profile
func DeleteAccount(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	matchmaker.Leave(userID)

	db := database.GetDB()
	if err := db.Delete(&models.User{}, userID).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to delete account"})
	}
	return c.JSON(fiber.Map{"success": true})
}
