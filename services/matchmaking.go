// services/matchmaking.go - Opponent pairing queue
package services

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"coduel/models"

	"github.com/google/uuid"
)

// JoinOutcome is the result of a queue join: either an immediate match or a
// fresh queue entry.
type JoinOutcome struct {
	Matched        bool      `json:"matched"`
	MatchID        string    `json:"match_id,omitempty"`
	OpponentName   string    `json:"opponent_username,omitempty"`
	OpponentRating int       `json:"opponent_rating,omitempty"`
	QueuedAt       time.Time `json:"queued_at,omitempty"`
}

// Matchmaker owns the pairing queue: join, atomic claim-or-enqueue, leave
// and bot-fallback match creation.
type Matchmaker struct {
	store    Store
	notifier Notifier
	selector *QuestionSelector
	cfg      Config

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMatchmaker(store Store, notifier Notifier, cfg Config) *Matchmaker {
	return &Matchmaker{
		store:    store,
		notifier: notifier,
		selector: NewQuestionSelector(store),
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Join puts the caller into matchmaking. Any previous entry for the user is
// dropped first, so there is at most one live row per user. If a rating-band
// candidate is waiting, Join races to claim their row; the claim is a
// conditional delete, so exactly one of two concurrent joiners can win it.
// The loser, and anyone with no candidate, ends up queued.
func (mm *Matchmaker) Join(userID uint, ranked bool, language string) (*JoinOutcome, error) {
	user, err := mm.store.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("matchmaking join: %w", err)
	}

	if err := mm.store.DeleteQueueEntriesFor(userID); err != nil {
		return nil, fmt.Errorf("matchmaking join: clearing old entry: %w", err)
	}

	// A candidate can be stale (already matched through another path); skip
	// and evict those, up to a few attempts, before giving up and queueing.
	for attempts := 0; attempts < 5; attempts++ {
		candidate, err := mm.store.FindQueueCandidate(
			userID,
			user.Rating-mm.cfg.RatingWindow,
			user.Rating+mm.cfg.RatingWindow,
			ranked,
			language,
		)
		if err != nil {
			return nil, fmt.Errorf("matchmaking join: candidate search: %w", err)
		}
		if candidate == nil {
			break
		}

		stale, err := mm.isStale(candidate)
		if err != nil {
			log.Printf("⚠️  staleness check failed for queue entry %d: %v", candidate.ID, err)
		}
		if stale {
			if _, err := mm.store.ClaimQueueEntry(candidate.ID); err != nil {
				log.Printf("⚠️  evicting stale queue entry %d failed: %v", candidate.ID, err)
			}
			continue
		}

		claimed, err := mm.store.ClaimQueueEntry(candidate.ID)
		if err != nil {
			return nil, fmt.Errorf("matchmaking join: claim: %w", err)
		}
		if !claimed {
			// Lost the race for this row; fall through to enqueue.
			break
		}

		outcome, err := mm.createHumanMatch(user, candidate, ranked, language)
		if err != nil {
			return nil, err
		}
		return outcome, nil
	}

	entry := &models.QueueEntry{
		UserID:   userID,
		Rating:   user.Rating,
		IsRanked: ranked,
		Language: language,
		JoinedAt: time.Now().UTC(),
	}
	if err := mm.store.InsertQueueEntry(entry); err != nil {
		return nil, fmt.Errorf("matchmaking join: enqueue: %w", err)
	}

	log.Printf("🕓 user %d queued (rating %d, ranked %v)", userID, user.Rating, ranked)
	return &JoinOutcome{Matched: false, QueuedAt: entry.JoinedAt}, nil
}

// isStale flags entries whose owner already matched elsewhere: any match
// started at or after they queued, or an open match inside the recency
// window.
func (mm *Matchmaker) isStale(entry *models.QueueEntry) (bool, error) {
	count, err := mm.store.CountMatchesSince(entry.UserID, entry.JoinedAt)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	open, err := mm.store.HasOpenMatchSince(entry.UserID, time.Now().UTC().Add(-mm.cfg.OpenMatchWindow))
	if err != nil {
		return false, err
	}
	return open, nil
}

func (mm *Matchmaker) createHumanMatch(caller *models.User, claimed *models.QueueEntry, ranked bool, language string) (*JoinOutcome, error) {
	opponent, err := mm.store.GetUser(claimed.UserID)
	if err != nil {
		return nil, fmt.Errorf("matchmaking: claimed opponent profile: %w", err)
	}

	questionIDs, err := mm.selector.Select(caller.ID, DifficultyForRating(caller.Rating), language, mm.cfg.RoundsPerMatch)
	if err != nil {
		return nil, fmt.Errorf("matchmaking: question selection: %w", err)
	}

	opponentID := opponent.ID
	match := &models.Match{
		ID:        uuid.NewString(),
		Player1ID: caller.ID,
		Player2ID: &opponentID,
		IsRanked:  ranked,
		Language:  language,
		StartedAt: time.Now().UTC(),
	}
	rounds := roundsFor(questionIDs)

	if err := mm.store.CreateMatchWithRounds(match, rounds); err != nil {
		return nil, fmt.Errorf("matchmaking: create match: %w", err)
	}

	// History and notification are best-effort; the opponent's poll path
	// will find the match regardless.
	now := time.Now().UTC()
	if err := mm.store.RecordQuestionsSeen(caller.ID, questionIDs, now); err != nil {
		log.Printf("⚠️  question history for user %d: %v", caller.ID, err)
	}
	if err := mm.store.RecordQuestionsSeen(opponent.ID, questionIDs, now); err != nil {
		log.Printf("⚠️  question history for user %d: %v", opponent.ID, err)
	}

	mm.notifier.Publish(MatchmakingTopic(opponent.ID), EventMatchFound, map[string]interface{}{
		"match_id":          match.ID,
		"opponent_username": caller.Username,
		"opponent_rating":   caller.Rating,
	})

	log.Printf("⚔️  match %s: user %d vs user %d", match.ID, caller.ID, opponent.ID)
	return &JoinOutcome{
		Matched:        true,
		MatchID:        match.ID,
		OpponentName:   opponent.Username,
		OpponentRating: opponent.Rating,
	}, nil
}

// Leave drops the caller's queue entry. Best-effort: failures are logged
// and swallowed so navigation never blocks on it.
func (mm *Matchmaker) Leave(userID uint) {
	if err := mm.store.DeleteQueueEntriesFor(userID); err != nil {
		log.Printf("⚠️  queue leave for user %d: %v", userID, err)
	}
}

// CreateBotMatch builds an immediate match against a synthetic opponent
// whose rating sits near the caller's. No queueing is involved.
func (mm *Matchmaker) CreateBotMatch(userID uint, ranked bool, language, topic string) (*JoinOutcome, error) {
	user, err := mm.store.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("bot match: %w", err)
	}

	// A bot match supersedes any queue entry the caller still holds.
	mm.Leave(userID)

	questionIDs, err := mm.selector.Select(userID, DifficultyForRating(user.Rating), language, mm.cfg.RoundsPerMatch)
	if err != nil {
		return nil, fmt.Errorf("bot match: question selection: %w", err)
	}

	mm.mu.Lock()
	bot := NewBotIdentity(user.Rating, mm.rng)
	mm.mu.Unlock()

	match := &models.Match{
		ID:         uuid.NewString(),
		Player1ID:  userID,
		IsBotMatch: true,
		IsRanked:   ranked,
		Language:   language,
		BotName:    bot.Name,
		BotRating:  bot.Rating,
		StartedAt:  time.Now().UTC(),
	}
	rounds := roundsFor(questionIDs)

	if err := mm.store.CreateMatchWithRounds(match, rounds); err != nil {
		return nil, fmt.Errorf("bot match: create: %w", err)
	}

	if err := mm.store.RecordQuestionsSeen(userID, questionIDs, time.Now().UTC()); err != nil {
		log.Printf("⚠️  question history for user %d: %v", userID, err)
	}

	log.Printf("🤖 bot match %s: user %d vs %s (%d)", match.ID, userID, bot.Name, bot.Rating)
	return &JoinOutcome{
		Matched:        true,
		MatchID:        match.ID,
		OpponentName:   bot.Name,
		OpponentRating: bot.Rating,
	}, nil
}

func roundsFor(questionIDs []uint) []models.MatchRound {
	rounds := make([]models.MatchRound, 0, len(questionIDs))
	for i, qid := range questionIDs {
		rounds = append(rounds, models.MatchRound{
			RoundNumber: i + 1,
			QuestionID:  qid,
		})
	}
	return rounds
}
