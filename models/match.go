// models/match.go - Duel match, round and matchmaking queue models
package models

import (
	"time"
)

// Match is one best-of-3 duel between two sides. Player2ID is nil iff the
// opponent is a synthetic bot, in which case BotName/BotRating describe it.
type Match struct {
	ID         string `gorm:"primaryKey;size:64" json:"id"` // UUID
	Player1ID  uint   `gorm:"not null;index" json:"player1_id"`
	Player2ID  *uint  `gorm:"index" json:"player2_id"`
	IsBotMatch bool   `gorm:"default:false" json:"is_bot_match"`
	IsRanked   bool   `gorm:"default:true" json:"is_ranked"`
	Language   string `gorm:"size:30;index" json:"language"`

	BotName   string `gorm:"size:60" json:"bot_name,omitempty"`
	BotRating int    `gorm:"default:0" json:"bot_rating,omitempty"`

	Player1Score int `gorm:"default:0" json:"player1_score"`
	Player2Score int `gorm:"default:0" json:"player2_score"`

	// WinnerID is nil until finalized, and stays nil on a draw.
	WinnerID           *uint `gorm:"index" json:"winner_id"`
	Player1RatingDelta int   `gorm:"default:0" json:"player1_rating_change"`
	Player2RatingDelta int   `gorm:"default:0" json:"player2_rating_change"`

	ForfeitedBy *uint `json:"forfeited_by,omitempty"`

	StartedAt time.Time  `gorm:"index;not null" json:"started_at"`
	EndedAt   *time.Time `gorm:"index" json:"ended_at"`

	Rounds []MatchRound `gorm:"foreignKey:MatchID" json:"rounds,omitempty"`
}

// MatchRound is one question within a match. Answers and times stay nil
// until the corresponding side submits; RoundWinnerID nil means tie or
// not yet resolved (Resolved disambiguates).
type MatchRound struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	MatchID     string `gorm:"not null;index:idx_match_round,unique;size:64" json:"match_id"`
	RoundNumber int    `gorm:"not null;index:idx_match_round,unique" json:"round_number"` // 1..3
	QuestionID  uint   `gorm:"not null" json:"question_id"`

	Player1Answer *string `gorm:"size:200" json:"player1_answer"`
	Player2Answer *string `gorm:"size:200" json:"player2_answer"`
	Player1TimeMs *int    `json:"player1_time_ms"`
	Player2TimeMs *int    `json:"player2_time_ms"`

	Resolved      bool  `gorm:"default:false" json:"resolved"`
	RoundWinnerID *uint `json:"round_winner_id"`

	RoundStartedAt *time.Time `json:"round_started_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QueueEntry is a user waiting for an opponent. At most one live entry per
// user; the row is deleted on match, leave or staleness eviction. Rating is
// snapshotted at join time.
type QueueEntry struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UserID   uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	Rating   int    `gorm:"not null;index" json:"rating"`
	IsRanked bool   `gorm:"default:true" json:"is_ranked"`
	Language string `gorm:"size:30" json:"language"`

	JoinedAt time.Time `gorm:"index;not null" json:"joined_at"`
}

// QuestionHistory marks a question as seen by a user, so the selector can
// bias toward unseen material.
type QuestionHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_user_question,unique" json:"user_id"`
	QuestionID uint      `gorm:"not null;index:idx_user_question,unique" json:"question_id"`
	SeenAt     time.Time `gorm:"not null" json:"seen_at"`
}

func (Match) TableName() string           { return "matches" }
func (MatchRound) TableName() string      { return "match_rounds" }
func (QueueEntry) TableName() string      { return "queue_entries" }
func (QuestionHistory) TableName() string { return "question_history" }

// IsOpen reports whether the match is still in progress.
func (m *Match) IsOpen() bool {
	return m.EndedAt == nil && m.WinnerID == nil && m.ForfeitedBy == nil
}

// SlotOf returns 1 or 2 for the given user, 0 if they are not a player.
func (m *Match) SlotOf(userID uint) int {
	if m.Player1ID == userID {
		return 1
	}
	if m.Player2ID != nil && *m.Player2ID == userID {
		return 2
	}
	return 0
}
