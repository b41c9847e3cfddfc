// services/config.go - Tunables for the duel core
package services

import (
	"os"
	"strconv"
	"time"
)

// Config carries every timing and matchmaking tunable. Tests shrink the
// durations to milliseconds; production values come from the environment.
type Config struct {
	// Matchmaking
	RatingWindow    int           // candidate must be within ±window of caller
	QueueStaleTTL   time.Duration // queue rows older than this are evicted
	OpenMatchWindow time.Duration // "currently in a match" recency check

	// Battle pacing
	RoundsPerMatch   int
	ScoreToWin       int
	CountdownTicks   int
	CountdownTick    time.Duration
	QuestionTime     time.Duration
	PollInterval     time.Duration
	PollTimeout      time.Duration
	AbandonedTimeout time.Duration
}

// DefaultConfig reads tunables from the environment with sane fallbacks.
func DefaultConfig() Config {
	return Config{
		RatingWindow:    getEnvInt("MATCHMAKING_RATING_WINDOW", 150),
		QueueStaleTTL:   getEnvDuration("QUEUE_STALE_TTL", 60*time.Second),
		OpenMatchWindow: getEnvDuration("OPEN_MATCH_WINDOW", 2*time.Minute),

		RoundsPerMatch:   3,
		ScoreToWin:       2,
		CountdownTicks:   3,
		CountdownTick:    time.Second,
		QuestionTime:     getEnvDuration("QUESTION_TIME", 20*time.Second),
		PollInterval:     getEnvDuration("ANSWER_POLL_INTERVAL", 2*time.Second),
		PollTimeout:      getEnvDuration("ANSWER_POLL_TIMEOUT", 25*time.Second),
		AbandonedTimeout: getEnvDuration("ABANDONED_MATCH_TIMEOUT", 10*time.Minute),
	}
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
