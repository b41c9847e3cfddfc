// database/migrate.go - Database Migration Runner
package database

import (
	"log"

	"coduel/models"
)

// RunMigrations runs all database migrations
func RunMigrations() {
	db := GetDB()
	log.Println("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.User{},
		&models.Question{},
		&models.QueueEntry{},
		&models.Match{},
		&models.MatchRound{},
		&models.QuestionHistory{},
		&models.LeagueMembership{},
	); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}

	createIndexes()

	log.Println("✅ All migrations completed successfully")
}

// createIndexes creates indexes the hot paths rely on beyond what the
// model tags declare.
func createIndexes() {
	db := GetDB()

	// Queue candidate search: rating band + oldest-first.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_queue_rating_joined ON queue_entries(rating, joined_at)")

	// Staleness checks and open-match lookups.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_matches_p1_started ON matches(player1_id, started_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_matches_p2_started ON matches(player2_id, started_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_matches_open ON matches(started_at) WHERE winner_id IS NULL AND ended_at IS NULL")

	// Question selection by band.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_questions_pool ON questions(language, difficulty) WHERE is_active")

	// Weekly ladder listing.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_league_week_points ON league_memberships(week_start, league_tier, points DESC)")
}
