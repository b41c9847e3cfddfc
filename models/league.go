// models/league.go - Weekly league ladder
package models

import (
	"time"
)

// LeagueMembership is one user's row on the weekly ladder. WeekStart is the
// ISO week's Monday (UTC, midnight); one row per (user, week).
type LeagueMembership struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_user_week,unique" json:"user_id"`
	WeekStart  time.Time `gorm:"not null;index:idx_user_week,unique;index" json:"week_start"`
	LeagueTier string    `gorm:"not null;size:20;index" json:"league_tier"`
	Points     int       `gorm:"default:0" json:"points"`
	Wins       int       `gorm:"default:0" json:"wins"`
	Losses     int       `gorm:"default:0" json:"losses"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (LeagueMembership) TableName() string { return "league_memberships" }

// WeekStartFor returns the Monday 00:00 UTC of the ISO week containing t.
func WeekStartFor(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 { // Sunday
		weekday = 7
	}
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}
