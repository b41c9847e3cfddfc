package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestUpdateStreakFirstBattle(t *testing.T) {
	res := UpdateStreak(0, 0, nil, 0, day(2026, 3, 10))
	assert.Equal(t, 1, res.CurrentStreak)
	assert.Equal(t, 1, res.BestStreak)
	assert.Equal(t, 0, res.FreezesUsed)
}

func TestUpdateStreakSameDay(t *testing.T) {
	last := day(2026, 3, 10)
	res := UpdateStreak(4, 6, &last, 2, day(2026, 3, 10).Add(5*time.Hour))
	assert.Equal(t, 4, res.CurrentStreak)
	assert.Equal(t, 6, res.BestStreak)
	assert.Equal(t, 2, res.StreakFreezes)
}

func TestUpdateStreakConsecutiveDay(t *testing.T) {
	last := day(2026, 3, 10)
	res := UpdateStreak(4, 4, &last, 0, day(2026, 3, 11))
	assert.Equal(t, 5, res.CurrentStreak)
	assert.Equal(t, 5, res.BestStreak)
}

func TestUpdateStreakFreezeCoversGap(t *testing.T) {
	last := day(2026, 3, 10)
	// One fully missed day, one freeze available.
	res := UpdateStreak(7, 7, &last, 1, day(2026, 3, 12))
	assert.Equal(t, 8, res.CurrentStreak)
	assert.Equal(t, 0, res.StreakFreezes)
	assert.Equal(t, 1, res.FreezesUsed)
}

func TestUpdateStreakNotEnoughFreezes(t *testing.T) {
	last := day(2026, 3, 10)
	// Two missed days, only one freeze: reset, freezes untouched.
	res := UpdateStreak(7, 9, &last, 1, day(2026, 3, 13))
	assert.Equal(t, 1, res.CurrentStreak)
	assert.Equal(t, 9, res.BestStreak)
	assert.Equal(t, 1, res.StreakFreezes)
	assert.Equal(t, 0, res.FreezesUsed)
}

func TestMatchXP(t *testing.T) {
	assert.Equal(t, 75, MatchXP(true))
	assert.Equal(t, 50, MatchXP(false))
}

func TestLevelFromXP(t *testing.T) {
	assert.Equal(t, 1, LevelFromXP(0))
	assert.Equal(t, 1, LevelFromXP(99))
	assert.Equal(t, 2, LevelFromXP(100))
	assert.Equal(t, 2, LevelFromXP(249))
	assert.Equal(t, 3, LevelFromXP(250))
}

func TestLevelFromXPMonotonic(t *testing.T) {
	prev := LevelFromXP(0)
	for xp := 1; xp <= 5000; xp += 7 {
		level := LevelFromXP(xp)
		assert.GreaterOrEqual(t, level, prev, "xp=%d", xp)
		prev = level
	}
}

func TestXPForLevelRoundTrips(t *testing.T) {
	for level := 1; level <= 20; level++ {
		threshold := XPForLevel(level)
		assert.Equal(t, level, LevelFromXP(threshold), "at exact threshold for level %d", level)
		if threshold > 0 {
			assert.Equal(t, level-1, LevelFromXP(threshold-1), "just below threshold for level %d", level)
		}
	}
}

func TestLevelProgress(t *testing.T) {
	assert.InDelta(t, 0.0, LevelProgress(0), 1e-9)
	assert.InDelta(t, 0.5, LevelProgress(50), 1e-9)
	// Level 2 spans [100, 250); 150 XP is a third of the way.
	assert.InDelta(t, 1.0/3.0, LevelProgress(150), 1e-9)
}

func TestLeaguePoints(t *testing.T) {
	assert.Equal(t, 10, LeaguePoints(true))
	assert.Equal(t, 3, LeaguePoints(false))
}
