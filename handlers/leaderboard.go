// handlers/leaderboard.go - Global and weekly league ladders
package handlers

import (
	"strconv"
	"time"

	"coduel/database"
	"coduel/middleware"
	"coduel/models"
	"coduel/services"

	"github.com/gofiber/fiber/v2"
)

// GetLeaderboard returns the global ladder.
// GET /api/leaderboard?category=rating&limit=100&offset=0
func GetLeaderboard(c *fiber.Ctx) error {
	category := c.Query("category", "rating")
	limit := clampInt(queryInt(c, "limit", 100), 1, 100)
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	var orderBy string
	switch category {
	case "rating":
		orderBy = "rating DESC, wins DESC"
	case "level":
		orderBy = "level DESC, xp DESC"
	case "wins":
		orderBy = "wins DESC"
	case "streak":
		orderBy = "best_streak DESC"
	default:
		category = "rating"
		orderBy = "rating DESC, wins DESC"
	}

	db := database.GetDB()
	var users []models.User
	if err := db.Where("is_guest = ?", false).
		Order(orderBy).
		Limit(limit).
		Offset(offset).
		Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch leaderboard"})
	}

	entries := make([]fiber.Map, 0, len(users))
	for i := range users {
		u := &users[i]
		entries = append(entries, fiber.Map{
			"id":          u.ID,
			"username":    u.Username,
			"rating":      u.Rating,
			"tier":        string(services.TierForRating(u.Rating)),
			"level":       u.Level,
			"wins":        u.Wins,
			"losses":      u.Losses,
			"best_streak": u.BestStreak,
		})
	}

	var total int64
	db.Model(&models.User{}).Where("is_guest = ?", false).Count(&total)

	return c.JSON(fiber.Map{
		"success":  true,
		"entries":  entries,
		"category": category,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetLeague returns the caller's weekly league standings: everyone in the
// caller's tier for the current ISO week, ordered by points.
// GET /api/league
func GetLeague(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	user, err := store.GetUser(userID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Profile not found"})
	}

	week := models.WeekStartFor(time.Now().UTC())
	tier := string(services.TierForRating(user.Rating))

	db := database.GetDB()
	var rows []models.LeagueMembership
	if err := db.Preload("User").
		Where("week_start = ? AND league_tier = ?", week, tier).
		Order("points DESC").
		Limit(100).
		Find(&rows).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch league"})
	}

	standings := make([]fiber.Map, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		username := ""
		if row.User != nil {
			username = row.User.Username
		}
		standings = append(standings, fiber.Map{
			"rank":     i + 1,
			"user_id":  row.UserID,
			"username": username,
			"points":   row.Points,
			"wins":     row.Wins,
			"losses":   row.Losses,
			"is_you":   row.UserID == userID,
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"league":     tier,
		"week_start": week.Format("2006-01-02"),
		"standings":  standings,
	})
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
