// models/user.go
package models

import (
	"time"
)

type User struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Username    string  `gorm:"uniqueIndex;not null" json:"username"`
	Email       *string `gorm:"uniqueIndex" json:"email,omitempty"`
	Password    string  `gorm:"not null" json:"-"`
	DisplayName string  `json:"display_name"`
	Avatar      string  `json:"avatar"`
	IsGuest     bool    `gorm:"default:false" json:"is_guest"`
	IsBanned    bool    `gorm:"default:false" json:"is_banned"`

	// Competitive rating
	Rating int `gorm:"default:1000" json:"rating"`

	// Progression
	Level int `gorm:"default:1" json:"level"`
	XP    int `gorm:"default:0" json:"xp"`

	// Stats
	Wins   int `gorm:"default:0" json:"wins"`
	Losses int `gorm:"default:0" json:"losses"`

	// Daily streak
	CurrentStreak  int        `gorm:"default:0" json:"current_streak"`
	BestStreak     int        `gorm:"default:0" json:"best_streak"`
	LastBattleDate *time.Time `json:"last_battle_date"`
	StreakFreezes  int        `gorm:"default:0" json:"streak_freezes"`

	// Settings
	PreferredLanguage string `gorm:"size:30" json:"preferred_language"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LastLogin time.Time `json:"last_login"`
}

// TotalGames is derived, never stored.
func (u *User) TotalGames() int {
	return u.Wins + u.Losses
}
