// services/progression.go - Daily streaks, XP/levels and league points
package services

import (
	"time"
)

const (
	// XP per completed match, ranked or casual.
	xpPerMatch = 50
	xpWinBonus = 25

	// Weekly league points per ranked match.
	leaguePointsWin  = 10
	leaguePointsLoss = 3
)

// StreakResult is the outcome of applying one day's battle to a streak.
type StreakResult struct {
	CurrentStreak  int
	BestStreak     int
	StreakFreezes  int
	LastBattleDate time.Time
	FreezesUsed    int
}

// UpdateStreak applies "played a battle today" to a daily streak. Same-day
// battles leave the streak alone; a 1-day gap extends it; a longer gap
// consumes one freeze per fully missed day when the player has enough,
// otherwise the streak resets to 1 with freezes untouched.
func UpdateStreak(currentStreak, bestStreak int, lastBattle *time.Time, freezes int, today time.Time) StreakResult {
	day := dateOnly(today)

	res := StreakResult{
		CurrentStreak:  currentStreak,
		BestStreak:     bestStreak,
		StreakFreezes:  freezes,
		LastBattleDate: day,
	}

	switch {
	case lastBattle == nil:
		res.CurrentStreak = 1
	default:
		gap := daysBetween(dateOnly(*lastBattle), day)
		switch {
		case gap <= 0:
			// Already battled today.
		case gap == 1:
			res.CurrentStreak = currentStreak + 1
		default:
			missed := gap - 1
			if freezes >= missed {
				res.StreakFreezes = freezes - missed
				res.FreezesUsed = missed
				res.CurrentStreak = currentStreak + 1
			} else {
				res.CurrentStreak = 1
			}
		}
	}

	if res.CurrentStreak > res.BestStreak {
		res.BestStreak = res.CurrentStreak
	}
	return res
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// MatchXP returns the XP grant for one completed match.
func MatchXP(won bool) int {
	if won {
		return xpPerMatch + xpWinBonus
	}
	return xpPerMatch
}

// xpCostForLevel is the XP needed to go from `level` to `level+1`. The first
// step is a flat 100; each later step grows linearly.
func xpCostForLevel(level int) int {
	if level < 1 {
		return 0
	}
	return 100 + 50*(level-1)
}

// XPForLevel is the total XP needed to have reached `level` from scratch.
func XPForLevel(level int) int {
	total := 0
	for l := 1; l < level; l++ {
		total += xpCostForLevel(l)
	}
	return total
}

// LevelFromXP maps a lifetime XP total to a level. Monotonic in totalXP.
func LevelFromXP(totalXP int) int {
	level := 1
	for totalXP >= xpCostForLevel(level) {
		totalXP -= xpCostForLevel(level)
		level++
	}
	return level
}

// LevelProgress returns the fraction [0,1) of the way from the current
// level to the next.
func LevelProgress(totalXP int) float64 {
	level := LevelFromXP(totalXP)
	into := totalXP - XPForLevel(level)
	cost := xpCostForLevel(level)
	if cost == 0 {
		return 0
	}
	return float64(into) / float64(cost)
}

// LeaguePoints returns the weekly ladder grant for one ranked match.
func LeaguePoints(won bool) int {
	if won {
		return leaguePointsWin
	}
	return leaguePointsLoss
}
