// services/store.go - Persistence boundary for the duel core
package services

import (
	"errors"
	"time"

	"coduel/database"
	"coduel/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrEmptyQuestionPool = errors.New("question pool is empty")
)

// Store is everything the matchmaker, orchestrator and progression paths
// need from durable storage. The single correctness-critical operation is
// ClaimQueueEntry: a conditional delete that reports whether this caller
// actually removed the row. Everything else is upsert- or retry-tolerant.
type Store interface {
	// Profiles
	GetUser(id uint) (*models.User, error)
	SaveUser(u *models.User) error

	// Matchmaking queue
	DeleteQueueEntriesFor(userID uint) error
	InsertQueueEntry(e *models.QueueEntry) error
	FindQueueCandidate(excludeUserID uint, minRating, maxRating int, ranked bool, language string) (*models.QueueEntry, error)
	ClaimQueueEntry(entryID uint) (bool, error)
	DeleteStaleQueueEntries(olderThan time.Time) (int64, error)

	// Staleness checks for queue candidates
	CountMatchesSince(userID uint, since time.Time) (int64, error)
	HasOpenMatchSince(userID uint, since time.Time) (bool, error)

	// Matches and rounds
	CreateMatchWithRounds(m *models.Match, rounds []models.MatchRound) error
	GetMatch(id string) (*models.Match, error)
	GetRounds(matchID string) ([]models.MatchRound, error)
	SaveRoundAnswer(matchID string, roundNumber, slot int, answer string, timeMs int) error
	MarkRoundStarted(matchID string, roundNumber int, at time.Time) error
	ResolveRound(matchID string, roundNumber int, winnerID *uint) (bool, error)
	FinalizeMatch(matchID string, p1Score, p2Score int, winnerID *uint, p1Delta, p2Delta int, endedAt time.Time) (bool, error)
	ForfeitOpenMatches(olderThan time.Time) (int64, error)

	// Question bank
	GetQuestions(ids []uint) ([]models.Question, error)
	RandomQuestions(difficulty int, language string, excludeIDs []uint, limit int) ([]models.Question, error)
	SeenQuestionIDs(userID uint) ([]uint, error)
	RecordQuestionsSeen(userID uint, questionIDs []uint, at time.Time) error

	// Weekly league
	AddLeaguePoints(userID uint, weekStart time.Time, tier string, points int, won bool) error
}

// GormStore is the production Store over the shared gorm handle.
type GormStore struct{}

func NewGormStore() *GormStore { return &GormStore{} }

func (s *GormStore) GetUser(id uint) (*models.User, error) {
	db := database.GetDB()
	var u models.User
	if err := db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) SaveUser(u *models.User) error {
	return database.GetDB().Save(u).Error
}

func (s *GormStore) DeleteQueueEntriesFor(userID uint) error {
	return database.GetDB().Where("user_id = ?", userID).Delete(&models.QueueEntry{}).Error
}

func (s *GormStore) InsertQueueEntry(e *models.QueueEntry) error {
	return database.GetDB().Create(e).Error
}

// FindQueueCandidate returns the oldest waiting entry inside the rating
// band, excluding the caller's own row. Staleness is the matchmaker's
// problem; this is a plain read.
func (s *GormStore) FindQueueCandidate(excludeUserID uint, minRating, maxRating int, ranked bool, language string) (*models.QueueEntry, error) {
	db := database.GetDB()
	q := db.Where("user_id <> ? AND rating BETWEEN ? AND ? AND is_ranked = ?",
		excludeUserID, minRating, maxRating, ranked)
	if language != "" {
		q = q.Where("language = ? OR language = ''", language)
	}

	var entry models.QueueEntry
	if err := q.Order("joined_at ASC").First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ClaimQueueEntry deletes the row by primary key and reports whether this
// call removed it. Under concurrent joins only one caller sees true.
func (s *GormStore) ClaimQueueEntry(entryID uint) (bool, error) {
	res := database.GetDB().Where("id = ?", entryID).Delete(&models.QueueEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) DeleteStaleQueueEntries(olderThan time.Time) (int64, error) {
	res := database.GetDB().Where("joined_at < ?", olderThan).Delete(&models.QueueEntry{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) CountMatchesSince(userID uint, since time.Time) (int64, error) {
	var count int64
	err := database.GetDB().Model(&models.Match{}).
		Where("(player1_id = ? OR player2_id = ?) AND started_at >= ?", userID, userID, since).
		Count(&count).Error
	return count, err
}

func (s *GormStore) HasOpenMatchSince(userID uint, since time.Time) (bool, error) {
	var count int64
	err := database.GetDB().Model(&models.Match{}).
		Where("(player1_id = ? OR player2_id = ?)", userID, userID).
		Where("winner_id IS NULL AND ended_at IS NULL AND forfeited_by IS NULL").
		Where("started_at >= ?", since).
		Count(&count).Error
	return count > 0, err
}

// CreateMatchWithRounds writes the match and all of its rounds in one
// transaction so a half-created match can never be observed.
func (s *GormStore) CreateMatchWithRounds(m *models.Match, rounds []models.MatchRound) error {
	return database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		for i := range rounds {
			rounds[i].MatchID = m.ID
		}
		return tx.Create(&rounds).Error
	})
}

func (s *GormStore) GetMatch(id string) (*models.Match, error) {
	var m models.Match
	if err := database.GetDB().First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *GormStore) GetRounds(matchID string) ([]models.MatchRound, error) {
	var rounds []models.MatchRound
	err := database.GetDB().
		Where("match_id = ?", matchID).
		Order("round_number ASC").
		Find(&rounds).Error
	return rounds, err
}

func (s *GormStore) SaveRoundAnswer(matchID string, roundNumber, slot int, answer string, timeMs int) error {
	cols := map[string]interface{}{
		"player1_answer":  answer,
		"player1_time_ms": timeMs,
	}
	if slot == 2 {
		cols = map[string]interface{}{
			"player2_answer":  answer,
			"player2_time_ms": timeMs,
		}
	}
	return database.GetDB().Model(&models.MatchRound{}).
		Where("match_id = ? AND round_number = ?", matchID, roundNumber).
		Updates(cols).Error
}

func (s *GormStore) MarkRoundStarted(matchID string, roundNumber int, at time.Time) error {
	return database.GetDB().Model(&models.MatchRound{}).
		Where("match_id = ? AND round_number = ?", matchID, roundNumber).
		Update("round_started_at", at).Error
}

// ResolveRound sets the round winner exactly once; the conditional update
// reports whether this caller performed the write.
func (s *GormStore) ResolveRound(matchID string, roundNumber int, winnerID *uint) (bool, error) {
	res := database.GetDB().Model(&models.MatchRound{}).
		Where("match_id = ? AND round_number = ? AND resolved = ?", matchID, roundNumber, false).
		Updates(map[string]interface{}{
			"resolved":        true,
			"round_winner_id": winnerID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FinalizeMatch is write-once: the winner_id IS NULL / ended_at IS NULL
// guard makes a second finalize attempt a no-op.
func (s *GormStore) FinalizeMatch(matchID string, p1Score, p2Score int, winnerID *uint, p1Delta, p2Delta int, endedAt time.Time) (bool, error) {
	res := database.GetDB().Model(&models.Match{}).
		Where("id = ? AND ended_at IS NULL", matchID).
		Updates(map[string]interface{}{
			"player1_score":        p1Score,
			"player2_score":        p2Score,
			"winner_id":            winnerID,
			"player1_rating_delta": p1Delta,
			"player2_rating_delta": p2Delta,
			"ended_at":             endedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) ForfeitOpenMatches(olderThan time.Time) (int64, error) {
	now := time.Now().UTC()
	res := database.GetDB().Model(&models.Match{}).
		Where("winner_id IS NULL AND ended_at IS NULL AND forfeited_by IS NULL AND started_at < ?", olderThan).
		Updates(map[string]interface{}{
			"forfeited_by": 0,
			"ended_at":     now,
		})
	return res.RowsAffected, res.Error
}

func (s *GormStore) GetQuestions(ids []uint) ([]models.Question, error) {
	var qs []models.Question
	err := database.GetDB().Where("id IN ?", ids).Find(&qs).Error
	return qs, err
}

// RandomQuestions pulls up to limit active questions. Zero difficulty or
// empty language mean "any"; excludeIDs are the caller's seen questions.
func (s *GormStore) RandomQuestions(difficulty int, language string, excludeIDs []uint, limit int) ([]models.Question, error) {
	db := database.GetDB().Model(&models.Question{}).Where("is_active = ?", true)
	if difficulty > 0 {
		db = db.Where("difficulty = ?", difficulty)
	}
	if language != "" {
		db = db.Where("language = ?", language)
	}
	if len(excludeIDs) > 0 {
		db = db.Where("id NOT IN ?", excludeIDs)
	}

	var qs []models.Question
	err := db.Order("RANDOM()").Limit(limit).Find(&qs).Error
	return qs, err
}

func (s *GormStore) SeenQuestionIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := database.GetDB().Model(&models.QuestionHistory{}).
		Where("user_id = ?", userID).
		Pluck("question_id", &ids).Error
	return ids, err
}

func (s *GormStore) RecordQuestionsSeen(userID uint, questionIDs []uint, at time.Time) error {
	if len(questionIDs) == 0 {
		return nil
	}
	rows := make([]models.QuestionHistory, 0, len(questionIDs))
	for _, qid := range questionIDs {
		rows = append(rows, models.QuestionHistory{UserID: userID, QuestionID: qid, SeenAt: at})
	}
	return database.GetDB().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"seen_at"}),
	}).Create(&rows).Error
}

// AddLeaguePoints upserts the caller's row for the current ISO week and
// bumps its points and win/loss tallies.
func (s *GormStore) AddLeaguePoints(userID uint, weekStart time.Time, tier string, points int, won bool) error {
	winInc, lossInc := 0, 1
	if won {
		winInc, lossInc = 1, 0
	}
	row := models.LeagueMembership{
		UserID:     userID,
		WeekStart:  weekStart,
		LeagueTier: tier,
		Points:     points,
		Wins:       winInc,
		Losses:     lossInc,
	}
	return database.GetDB().Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "week_start"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"points":      gorm.Expr("league_memberships.points + ?", points),
			"wins":        gorm.Expr("league_memberships.wins + ?", winInc),
			"losses":      gorm.Expr("league_memberships.losses + ?", lossInc),
			"league_tier": tier,
		}),
	}).Create(&row).Error
}
