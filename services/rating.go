// services/rating.go - Elo-like rating math for duels
package services

import (
	"math"

	"coduel/models"
)

// Tier is the coarse rating band shown on profiles; it also drives question
// difficulty.
type Tier string

const (
	TierBronze  Tier = "bronze"
	TierSilver  Tier = "silver"
	TierGold    Tier = "gold"
	TierDiamond Tier = "diamond"
)

const (
	baseWinnerGain    = 25
	baseLoserLoss     = 15
	minDeltaMagnitude = 5
	comebackBonus     = 5
)

// RatingDelta returns (winnerDelta, loserDelta) for a decided match. The
// base gain/loss is adjusted by the rating gap in steps of 50 points:
// beating a stronger opponent pays more, beating a much weaker one pays the
// clamped minimum. The loser delta comes back negative. A comeback win
// (trailing before the deciding round) adds a flat bonus on top of the
// winner's clamp.
func RatingDelta(winnerRating, loserRating int, isComeback bool) (int, int) {
	adj := int(math.Round(float64(loserRating-winnerRating) / 50.0))

	winnerDelta := baseWinnerGain + adj
	if winnerDelta < minDeltaMagnitude {
		winnerDelta = minDeltaMagnitude
	}
	if isComeback {
		winnerDelta += comebackBonus
	}

	loserLoss := baseLoserLoss - adj
	if loserLoss < minDeltaMagnitude {
		loserLoss = minDeltaMagnitude
	}

	return winnerDelta, -loserLoss
}

// FloorProtection clamps a proposed post-match rating. Once the pre-match
// rating has reached a tier threshold the new rating cannot drop below the
// protected floor just under that threshold. Ratings never go below zero.
func FloorProtection(currentRating, proposedRating int) int {
	floors := [][2]int{
		{2000, 1950},
		{1500, 1450},
		{1000, 950},
	}
	for _, f := range floors {
		if currentRating >= f[0] && proposedRating < f[1] {
			return f[1]
		}
	}
	if proposedRating < 0 {
		return 0
	}
	return proposedRating
}

// TierForRating maps a rating to its band.
func TierForRating(rating int) Tier {
	switch {
	case rating < 1000:
		return TierBronze
	case rating < 1500:
		return TierSilver
	case rating < 2000:
		return TierGold
	default:
		return TierDiamond
	}
}

// DifficultyForRating maps a rating band to the question difficulty 1..4.
func DifficultyForRating(rating int) int {
	switch TierForRating(rating) {
	case TierBronze:
		return 1
	case TierSilver:
		return 2
	case TierGold:
		return 3
	default:
		return 4
	}
}

// TierOf is a convenience for profile rendering.
func TierOf(u *models.User) Tier {
	return TierForRating(u.Rating)
}
