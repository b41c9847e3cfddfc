// services/bot.go - Synthetic opponent identity and answer synthesis
package services

import (
	"math/rand"
	"time"

	"coduel/models"
)

var botNames = []string{
	"ByteKnight", "NullPointer", "SegFault", "StackSmasher", "LambdaLord",
	"MergeConflict", "RaceCondition", "OffByOne", "HeapHunter", "BitFlip",
	"DeadlockDan", "GoroutineGail", "CacheMiss", "ForkBomb", "TailCall",
}

// Accuracy per question difficulty. Higher-difficulty bots are currently
// both less accurate and slower; that is content balancing, tune freely.
var botAccuracy = map[int]float64{
	1: 0.87,
	2: 0.82,
	3: 0.77,
	4: 0.72,
}

// Think-time windows (ms) per difficulty.
var botLatency = map[int][2]int{
	1: {1500, 5000},
	2: {2000, 6500},
	3: {2500, 8000},
	4: {3000, 9500},
}

// BotIdentity is the synthesized opponent shown to the player.
type BotIdentity struct {
	Name   string
	Rating int
}

// NewBotIdentity builds a bot close to the caller's rating: a random name
// and a rating within ±50 of the player's, floored at zero.
func NewBotIdentity(playerRating int, rng *rand.Rand) BotIdentity {
	offset := rng.Intn(101) - 50
	rating := playerRating + offset
	if rating < 0 {
		rating = 0
	}
	return BotIdentity{
		Name:   botNames[rng.Intn(len(botNames))],
		Rating: rating,
	}
}

// SynthesizeBotAnswer draws a correct/incorrect outcome from the
// difficulty's accuracy and, if incorrect, picks uniformly among the wrong
// options. The returned latency is the bot's simulated response time.
func SynthesizeBotAnswer(q *models.Question, rng *rand.Rand) (Answer, time.Duration) {
	difficulty := q.Difficulty
	if difficulty < 1 {
		difficulty = 1
	}
	if difficulty > 4 {
		difficulty = 4
	}

	window := botLatency[difficulty]
	latencyMs := window[0] + rng.Intn(window[1]-window[0]+1)
	latency := time.Duration(latencyMs) * time.Millisecond

	correct, err := parseCorrectAnswer(q)
	if err != nil {
		return TimeoutAnswer(), latency
	}

	if rng.Float64() < botAccuracy[difficulty] {
		return correct, latency
	}
	return wrongAnswerFor(q, correct, rng), latency
}

func wrongAnswerFor(q *models.Question, correct Answer, rng *rand.Rand) Answer {
	optionCount := len(q.OptionList())

	if q.Type.HasScalarAnswer() {
		if optionCount <= 1 {
			return TimeoutAnswer()
		}
		pick := rng.Intn(optionCount - 1)
		if pick >= correct.Index {
			pick++
		}
		return Answer{Index: pick}
	}

	// Array-shaped answers: shuffle the correct indices until the sequence
	// differs, or drop one element for set-shaped answers.
	indices := make([]int, len(correct.Indices))
	copy(indices, correct.Indices)

	if q.Type == models.QuestionMultiSelect {
		if len(indices) > 1 {
			indices = indices[:len(indices)-1]
		} else if optionCount > 0 {
			indices = append(indices, rng.Intn(optionCount))
		}
		return Answer{Index: NoAnswerSentinel, Indices: indices}
	}

	if len(indices) > 1 {
		for tries := 0; tries < 5; tries++ {
			rng.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
			if !sameIndexSeq(indices, correct.Indices) {
				break
			}
		}
	}
	return Answer{Index: NoAnswerSentinel, Indices: indices}
}
