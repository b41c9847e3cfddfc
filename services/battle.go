// services/battle.go - Per-match duel orchestration
//
// One Battle runs one match from loading to match_end. It is an event-driven
// reactor: countdown ticks, the question timer, the answer poll, bot timers
// and realtime events all funnel into methods that take the battle mutex and
// are gated by the current phase plus a per-round processed guard, so a
// duplicate or late event can never double-apply a round.
package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"coduel/models"
)

// Phase is the orchestrator's monotonically advancing state.
type Phase string

const (
	PhaseLoading     Phase = "loading"
	PhaseCountdown   Phase = "countdown"
	PhaseQuestion    Phase = "question"
	PhaseResult      Phase = "result"
	PhaseExplanation Phase = "explanation"
	PhaseMatchEnd    Phase = "match_end"
)

// BotUserID is the reserved user id for the synthetic opponent. Real users
// start at 1, so 0 never collides; a nil winner still means tie/draw.
const BotUserID uint = 0

var (
	ErrNotInMatch      = errors.New("user is not a player in this match")
	ErrWrongPhase      = errors.New("action not valid in current phase")
	ErrAlreadyAnswered = errors.New("answer already submitted for this round")
	ErrBattleStopped   = errors.New("battle has been stopped")
)

// PlayerState is one side's live view within a battle.
type PlayerState struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Score    int    `json:"score"`
	IsBot    bool   `json:"is_bot"`
}

// PlayerResult is the per-player outcome of a finished match.
type PlayerResult struct {
	Outcome      string `json:"outcome"` // win | loss | draw
	RatingChange int    `json:"rating_change"`
	NewRating    int    `json:"new_rating"`
	IsComeback   bool   `json:"is_comeback"`
	XPEarned     int    `json:"xp_earned"`
	NewLevel     int    `json:"new_level"`
	LeveledUp    bool   `json:"leveled_up"`
}

// QuestionView is the question as exposed to clients. CorrectAnswer and
// Explanation stay empty until the reveal phases.
type QuestionView struct {
	ID            uint                `json:"id"`
	Type          models.QuestionType `json:"type"`
	Language      string              `json:"language"`
	Prompt        string              `json:"prompt"`
	CodeSnippet   string              `json:"code_snippet,omitempty"`
	Options       []string            `json:"options"`
	CorrectAnswer string              `json:"correct_answer,omitempty"`
	Explanation   string              `json:"explanation,omitempty"`
}

// BattleView is the read-only view model handed to the UI layer.
type BattleView struct {
	MatchID          string        `json:"match_id"`
	Phase            Phase         `json:"phase"`
	RoundNumber      int           `json:"round_number"`
	CountdownLeft    int           `json:"countdown_left"`
	RemainingSeconds int           `json:"remaining_seconds"`
	Players          []PlayerState `json:"players"`
	Question         *QuestionView `json:"question,omitempty"`
	Result           *PlayerResult `json:"result,omitempty"`
}

// Battle drives one duel. All mutable state lives behind mu; timers and
// event callbacks re-check phase and round before acting.
type Battle struct {
	ID       string
	store    Store
	notifier Notifier
	cfg      Config

	mu      sync.Mutex
	rng     *rand.Rand
	stopped bool

	match     *models.Match
	rounds    []models.MatchRound
	questions map[uint]*models.Question
	players   [2]PlayerState

	phase         Phase
	roundNum      int // 1-based
	countdownLeft int
	roundStart    time.Time

	processed map[int]bool // round number -> resolution already applied
	finalized bool
	results   [2]*PlayerResult

	countdownTimer *time.Timer
	questionTimer  *time.Timer
	pollTimer      *time.Timer
	botTimer       *time.Timer
	pollDeadline   time.Time

	events      chan Event
	unsubscribe func()
	eventsDone  chan struct{}
}

// NewBattle constructs the orchestrator in the loading phase. Call Start to
// fetch state and begin the first countdown.
func NewBattle(matchID string, store Store, notifier Notifier, cfg Config) *Battle {
	return &Battle{
		ID:         matchID,
		store:      store,
		notifier:   notifier,
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		phase:      PhaseLoading,
		processed:  make(map[int]bool),
		events:     make(chan Event, 16),
		eventsDone: make(chan struct{}),
	}
}

// Start loads the match, its rounds, questions and both player identities,
// then kicks off the first countdown. It is an error to start a finished or
// unknown match.
func (b *Battle) Start() error {
	match, err := b.store.GetMatch(b.ID)
	if err != nil {
		return fmt.Errorf("battle start: %w", err)
	}
	if !match.IsOpen() {
		return fmt.Errorf("battle start: match %s already finished", b.ID)
	}

	rounds, err := b.store.GetRounds(b.ID)
	if err != nil {
		return fmt.Errorf("battle start: rounds: %w", err)
	}
	if len(rounds) == 0 {
		return fmt.Errorf("battle start: match %s has no rounds", b.ID)
	}

	questionIDs := make([]uint, 0, len(rounds))
	for _, r := range rounds {
		questionIDs = append(questionIDs, r.QuestionID)
	}
	questionRows, err := b.store.GetQuestions(questionIDs)
	if err != nil {
		return fmt.Errorf("battle start: questions: %w", err)
	}
	questions := make(map[uint]*models.Question, len(questionRows))
	for i := range questionRows {
		questions[questionRows[i].ID] = &questionRows[i]
	}

	p1, err := b.store.GetUser(match.Player1ID)
	if err != nil {
		return fmt.Errorf("battle start: player1 profile: %w", err)
	}

	var p2 PlayerState
	if match.IsBotMatch {
		p2 = PlayerState{ID: BotUserID, Username: match.BotName, Rating: match.BotRating, IsBot: true}
	} else {
		u2, err := b.store.GetUser(*match.Player2ID)
		if err != nil {
			return fmt.Errorf("battle start: player2 profile: %w", err)
		}
		p2 = PlayerState{ID: u2.ID, Username: u2.Username, Rating: u2.Rating}
	}

	b.mu.Lock()
	b.match = match
	b.rounds = rounds
	b.questions = questions
	b.players[0] = PlayerState{ID: p1.ID, Username: p1.Username, Rating: p1.Rating}
	b.players[1] = p2
	b.roundNum = 1
	b.mu.Unlock()

	// Realtime is one of two inputs (the poll is the other); either alone
	// is enough to make progress.
	b.unsubscribe = b.notifier.Subscribe(BattleTopic(b.ID), b.events)
	go b.eventLoop()

	b.mu.Lock()
	b.beginCountdownLocked()
	b.mu.Unlock()

	log.Printf("🎮 battle %s started: %s vs %s", b.ID, b.players[0].Username, b.players[1].Username)
	return nil
}

// eventLoop consumes realtime events until Stop. A player_answered from any
// source just triggers a durable re-check, so duplicates are harmless.
func (b *Battle) eventLoop() {
	for {
		select {
		case ev := <-b.events:
			if ev.Type == EventPlayerAnswered {
				b.checkBothAnswered()
			}
		case <-b.eventsDone:
			return
		}
	}
}

// Stop tears the battle down: every timer is cancelled and the realtime
// subscription removed before Stop returns, so nothing fires afterwards.
func (b *Battle) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	b.stopTimersLocked()
	b.mu.Unlock()

	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	close(b.eventsDone)
}

func (b *Battle) stopTimersLocked() {
	for _, t := range []*time.Timer{b.countdownTimer, b.questionTimer, b.pollTimer, b.botTimer} {
		if t != nil {
			t.Stop()
		}
	}
}

// --- countdown ---

func (b *Battle) beginCountdownLocked() {
	b.phase = PhaseCountdown
	b.countdownLeft = b.cfg.CountdownTicks
	b.scheduleCountdownTickLocked()
	b.publishPhaseLocked()
}

func (b *Battle) scheduleCountdownTickLocked() {
	round := b.roundNum
	b.countdownTimer = time.AfterFunc(b.cfg.CountdownTick, func() {
		b.countdownTick(round)
	})
}

func (b *Battle) countdownTick(round int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped || b.phase != PhaseCountdown || b.roundNum != round {
		return
	}
	b.countdownLeft--
	if b.countdownLeft > 0 {
		b.scheduleCountdownTickLocked()
		return
	}
	b.startQuestionLocked()
}

// --- question ---

func (b *Battle) startQuestionLocked() {
	b.phase = PhaseQuestion
	b.roundStart = time.Now().UTC()
	round := b.roundNum

	if err := b.store.MarkRoundStarted(b.ID, round, b.roundStart); err != nil {
		log.Printf("⚠️  battle %s: marking round %d started: %v", b.ID, round, err)
	}

	b.questionTimer = time.AfterFunc(b.cfg.QuestionTime, func() {
		b.questionTimeout(round)
	})

	if b.match.IsBotMatch {
		b.scheduleBotAnswerLocked(round)
	}

	b.publishPhaseLocked()
}

func (b *Battle) currentRoundLocked() *models.MatchRound {
	for i := range b.rounds {
		if b.rounds[i].RoundNumber == b.roundNum {
			return &b.rounds[i]
		}
	}
	return nil
}

func (b *Battle) currentQuestionLocked() *models.Question {
	r := b.currentRoundLocked()
	if r == nil {
		return nil
	}
	return b.questions[r.QuestionID]
}

// SubmitAnswer records the caller's answer for the current round. Exactly
// one submission per player per round is accepted; the elapsed time is
// measured from the round's start.
func (b *Battle) SubmitAnswer(userID uint, ans Answer) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return ErrBattleStopped
	}
	if b.phase != PhaseQuestion {
		b.mu.Unlock()
		return ErrWrongPhase
	}
	slot := b.match.SlotOf(userID)
	if slot == 0 {
		b.mu.Unlock()
		return ErrNotInMatch
	}
	round := b.currentRoundLocked()
	if round == nil {
		b.mu.Unlock()
		return fmt.Errorf("battle %s: round %d missing", b.ID, b.roundNum)
	}
	if (slot == 1 && round.Player1Answer != nil) || (slot == 2 && round.Player2Answer != nil) {
		b.mu.Unlock()
		return ErrAlreadyAnswered
	}

	elapsed := int(time.Since(b.roundStart).Milliseconds())
	b.applyAnswerLocked(round, slot, ans, elapsed)
	roundNum := b.roundNum
	b.mu.Unlock()

	b.notifier.Publish(BattleTopic(b.ID), EventPlayerAnswered, map[string]interface{}{
		"user_id":      userID,
		"round_number": roundNum,
	})

	b.checkBothAnswered()
	b.ensurePollStarted(roundNum)
	return nil
}

// applyAnswerLocked persists and caches one side's answer.
func (b *Battle) applyAnswerLocked(round *models.MatchRound, slot int, ans Answer, elapsedMs int) {
	encoded := ans.Encode()
	if slot == 1 {
		round.Player1Answer = &encoded
		round.Player1TimeMs = &elapsedMs
	} else {
		round.Player2Answer = &encoded
		round.Player2TimeMs = &elapsedMs
	}
	if err := b.store.SaveRoundAnswer(b.ID, round.RoundNumber, slot, encoded, elapsedMs); err != nil {
		// The in-memory copy still resolves the round; persistence catches
		// up on the next write.
		log.Printf("⚠️  battle %s: persisting answer (round %d slot %d): %v", b.ID, round.RoundNumber, slot, err)
	}
}

func (b *Battle) scheduleBotAnswerLocked(roundNum int) {
	q := b.currentQuestionLocked()
	if q == nil {
		return
	}
	ans, latency := SynthesizeBotAnswer(q, b.rng)
	if latency > b.cfg.QuestionTime {
		latency = b.cfg.QuestionTime / 2
	}
	b.botTimer = time.AfterFunc(latency, func() {
		b.botAnswer(roundNum, ans, latency)
	})
}

func (b *Battle) botAnswer(roundNum int, ans Answer, latency time.Duration) {
	b.mu.Lock()
	if b.stopped || b.phase != PhaseQuestion || b.roundNum != roundNum {
		b.mu.Unlock()
		return
	}
	round := b.currentRoundLocked()
	if round == nil || round.Player2Answer != nil {
		b.mu.Unlock()
		return
	}
	b.applyAnswerLocked(round, 2, ans, int(latency.Milliseconds()))
	b.mu.Unlock()

	b.notifier.Publish(BattleTopic(b.ID), EventPlayerAnswered, map[string]interface{}{
		"user_id":      BotUserID,
		"round_number": roundNum,
	})
	b.checkBothAnswered()
}

// questionTimeout fires when the round budget expires: every side that has
// not answered gets the no-answer sentinel, then the round resolves.
func (b *Battle) questionTimeout(roundNum int) {
	b.mu.Lock()
	if b.stopped || b.phase != PhaseQuestion || b.roundNum != roundNum {
		b.mu.Unlock()
		return
	}
	round := b.currentRoundLocked()
	if round == nil {
		b.mu.Unlock()
		return
	}
	budget := int(b.cfg.QuestionTime.Milliseconds())
	if round.Player1Answer == nil {
		b.applyAnswerLocked(round, 1, TimeoutAnswer(), budget)
	}
	if round.Player2Answer == nil {
		b.applyAnswerLocked(round, 2, TimeoutAnswer(), budget)
	}
	b.mu.Unlock()

	b.checkBothAnswered()
}

// --- poll fallback ---

// ensurePollStarted arms the bounded answer poll for a round. The poll
// re-reads durable state, so it reaches the same conclusion whether or not
// any realtime event was delivered.
func (b *Battle) ensurePollStarted(roundNum int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped || b.match.IsBotMatch || b.pollTimer != nil || b.phase != PhaseQuestion || b.roundNum != roundNum {
		return
	}
	b.pollDeadline = time.Now().Add(b.cfg.PollTimeout)
	b.schedulePollLocked(roundNum)
}

func (b *Battle) schedulePollLocked(roundNum int) {
	b.pollTimer = time.AfterFunc(b.cfg.PollInterval, func() {
		b.pollTick(roundNum)
	})
}

func (b *Battle) pollTick(roundNum int) {
	b.mu.Lock()
	if b.stopped || b.phase != PhaseQuestion || b.roundNum != roundNum {
		b.pollTimer = nil
		b.mu.Unlock()
		return
	}

	// Refresh the local round copy from storage; an answer persisted by a
	// path we never heard about still counts.
	if rounds, err := b.store.GetRounds(b.ID); err == nil {
		b.mergeRoundsLocked(rounds)
	} else {
		log.Printf("⚠️  battle %s: answer poll read: %v", b.ID, err)
	}

	round := b.currentRoundLocked()
	bothIn := round != nil && round.Player1Answer != nil && round.Player2Answer != nil

	if !bothIn && time.Now().Before(b.pollDeadline) {
		b.schedulePollLocked(roundNum)
		b.mu.Unlock()
		return
	}

	b.pollTimer = nil
	if !bothIn && round != nil {
		// Poll window exhausted: force-resolve with what we know.
		budget := int(b.cfg.PollTimeout.Milliseconds())
		if round.Player1Answer == nil {
			b.applyAnswerLocked(round, 1, TimeoutAnswer(), budget)
		}
		if round.Player2Answer == nil {
			b.applyAnswerLocked(round, 2, TimeoutAnswer(), budget)
		}
	}
	b.mu.Unlock()

	b.checkBothAnswered()
}

// mergeRoundsLocked folds freshly read rounds into the local cache without
// discarding answers we already hold.
func (b *Battle) mergeRoundsLocked(fresh []models.MatchRound) {
	for i := range fresh {
		local := b.roundByNumberLocked(fresh[i].RoundNumber)
		if local == nil {
			continue
		}
		if local.Player1Answer == nil && fresh[i].Player1Answer != nil {
			local.Player1Answer = fresh[i].Player1Answer
			local.Player1TimeMs = fresh[i].Player1TimeMs
		}
		if local.Player2Answer == nil && fresh[i].Player2Answer != nil {
			local.Player2Answer = fresh[i].Player2Answer
			local.Player2TimeMs = fresh[i].Player2TimeMs
		}
	}
}

func (b *Battle) roundByNumberLocked(n int) *models.MatchRound {
	for i := range b.rounds {
		if b.rounds[i].RoundNumber == n {
			return &b.rounds[i]
		}
	}
	return nil
}

// --- round resolution ---

// checkBothAnswered resolves the current round when both answers are in.
// Safe to call from any event source, any number of times.
func (b *Battle) checkBothAnswered() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped || b.phase != PhaseQuestion {
		return
	}
	round := b.currentRoundLocked()
	if round == nil || round.Player1Answer == nil || round.Player2Answer == nil {
		return
	}
	b.resolveRoundLocked(round)
}

// resolveRoundLocked applies the round outcome exactly once. The processed
// set is the idempotency guard: duplicate deliveries and racing timers all
// hit it and bail.
func (b *Battle) resolveRoundLocked(round *models.MatchRound) {
	if b.processed[round.RoundNumber] {
		return
	}
	b.processed[round.RoundNumber] = true

	if b.questionTimer != nil {
		b.questionTimer.Stop()
	}
	if b.pollTimer != nil {
		b.pollTimer.Stop()
		b.pollTimer = nil
	}

	winnerID := b.roundWinnerLocked(round)
	round.Resolved = true
	round.RoundWinnerID = winnerID

	if _, err := b.store.ResolveRound(b.ID, round.RoundNumber, winnerID); err != nil {
		log.Printf("⚠️  battle %s: persisting round %d result: %v", b.ID, round.RoundNumber, err)
	}

	b.recomputeScoresLocked()
	b.phase = PhaseResult

	if b.matchOverLocked() {
		b.finalizeLocked()
	}
	b.publishPhaseLocked()

	winnerStr := "tie"
	if winnerID != nil {
		winnerStr = fmt.Sprintf("user %d", *winnerID)
	}
	log.Printf("🏅 battle %s round %d: %s (%d-%d)", b.ID, round.RoundNumber, winnerStr, b.players[0].Score, b.players[1].Score)
}

// roundWinnerLocked implements the resolution rule: a lone correct side
// wins; two correct sides go to the faster; an exact time tie, or no
// correct answer, is a tie.
func (b *Battle) roundWinnerLocked(round *models.MatchRound) *uint {
	q := b.questions[round.QuestionID]
	if q == nil {
		return nil
	}

	a1, ok1 := DecodeAnswer(round.Player1Answer)
	a2, ok2 := DecodeAnswer(round.Player2Answer)
	c1 := ok1 && IsAnswerCorrect(q, a1)
	c2 := ok2 && IsAnswerCorrect(q, a2)

	switch {
	case c1 && !c2:
		return &b.match.Player1ID
	case c2 && !c1:
		return b.player2IDLocked()
	case c1 && c2:
		t1, t2 := answeredMs(round.Player1TimeMs), answeredMs(round.Player2TimeMs)
		if t1 < t2 {
			return &b.match.Player1ID
		}
		if t2 < t1 {
			return b.player2IDLocked()
		}
	}
	return nil
}

func (b *Battle) player2IDLocked() *uint {
	if b.match.IsBotMatch {
		id := BotUserID
		return &id
	}
	return b.match.Player2ID
}

func answeredMs(ms *int) int {
	if ms == nil {
		return int(^uint(0) >> 1)
	}
	return *ms
}

// recomputeScoresLocked derives scores from the resolved round set instead
// of accumulating, so a replayed resolution can never skew them.
func (b *Battle) recomputeScoresLocked() {
	s1, s2 := 0, 0
	p2id := b.player2IDLocked()
	for i := range b.rounds {
		r := &b.rounds[i]
		if !r.Resolved || r.RoundWinnerID == nil {
			continue
		}
		if *r.RoundWinnerID == b.match.Player1ID {
			s1++
		} else if p2id != nil && *r.RoundWinnerID == *p2id {
			s2++
		}
	}
	b.players[0].Score = s1
	b.players[1].Score = s2
}

func (b *Battle) matchOverLocked() bool {
	if b.players[0].Score >= b.cfg.ScoreToWin || b.players[1].Score >= b.cfg.ScoreToWin {
		return true
	}
	resolved := 0
	for i := range b.rounds {
		if b.rounds[i].Resolved {
			resolved++
		}
	}
	return resolved >= b.cfg.RoundsPerMatch
}

// --- phase progression ---

// AdvanceAfterExplanation moves result → explanation → next countdown or
// match end. Either player may drive it; repeated calls in the same phase
// are idempotent for the terminal transition.
func (b *Battle) AdvanceAfterExplanation(userID uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return ErrBattleStopped
	}
	if b.match.SlotOf(userID) == 0 {
		return ErrNotInMatch
	}

	switch b.phase {
	case PhaseResult:
		b.phase = PhaseExplanation
		b.publishPhaseLocked()
		return nil
	case PhaseExplanation:
		if b.matchOverLocked() {
			b.phase = PhaseMatchEnd
			b.stopTimersLocked()
			b.publishPhaseLocked()
			return nil
		}
		b.roundNum++
		b.beginCountdownLocked()
		return nil
	case PhaseMatchEnd:
		return nil
	default:
		return ErrWrongPhase
	}
}

// React relays a cosmetic emote to the opponent. Never affects state.
func (b *Battle) React(userID uint, reaction string) error {
	b.mu.Lock()
	slot := b.match.SlotOf(userID)
	b.mu.Unlock()
	if slot == 0 {
		return ErrNotInMatch
	}
	b.notifier.Publish(BattleTopic(b.ID), EventReaction, map[string]interface{}{
		"user_id":  userID,
		"reaction": reaction,
	})
	return nil
}

func (b *Battle) publishPhaseLocked() {
	b.notifier.Publish(BattleTopic(b.ID), EventPhaseChanged, map[string]interface{}{
		"phase":        string(b.phase),
		"round_number": b.roundNum,
	})
}

// --- finalization ---

// finalizeLocked computes and persists the match outcome exactly once: the
// conditional match update is the single authoritative write, then ratings,
// streaks, XP and league points are applied per human player.
func (b *Battle) finalizeLocked() {
	if b.finalized {
		return
	}
	b.finalized = true

	s1, s2 := b.players[0].Score, b.players[1].Score
	var winnerID *uint
	winnerSlot := 0
	switch {
	case s1 > s2:
		winnerID = &b.match.Player1ID
		winnerSlot = 1
	case s2 > s1:
		winnerID = b.player2IDLocked()
		winnerSlot = 2
	}

	comeback := winnerSlot != 0 && b.comebackLocked(winnerSlot)

	d1, d2 := 0, 0
	if b.match.IsRanked && winnerSlot != 0 {
		wRating, lRating := b.players[0].Rating, b.players[1].Rating
		if winnerSlot == 2 {
			wRating, lRating = lRating, wRating
		}
		wd, ld := RatingDelta(wRating, lRating, comeback)
		if winnerSlot == 1 {
			d1, d2 = wd, ld
		} else {
			d1, d2 = ld, wd
		}
	}

	wrote, err := b.store.FinalizeMatch(b.ID, s1, s2, winnerID, d1, d2, time.Now().UTC())
	if err != nil {
		log.Printf("⚠️  battle %s: finalize write: %v", b.ID, err)
		return
	}
	if !wrote {
		// Another writer (or an earlier attempt) already finalized; the
		// side effects below were theirs to apply.
		log.Printf("⚠️  battle %s: finalize already performed elsewhere", b.ID)
		return
	}

	b.results[0] = b.applyPlayerOutcomeLocked(b.match.Player1ID, 1, winnerSlot, d1, comeback)
	if !b.match.IsBotMatch {
		b.results[1] = b.applyPlayerOutcomeLocked(*b.match.Player2ID, 2, winnerSlot, d2, comeback)
	}

	log.Printf("🏁 battle %s finished %d-%d", b.ID, s1, s2)
}

// comebackLocked: the eventual winner dropped the opening round and took
// the match in the decider.
func (b *Battle) comebackLocked(winnerSlot int) bool {
	first := b.roundByNumberLocked(1)
	if first == nil || !first.Resolved || first.RoundWinnerID == nil {
		return false
	}
	winnerID := b.players[winnerSlot-1].ID
	return *first.RoundWinnerID != winnerID
}

// applyPlayerOutcomeLocked updates one human profile (rating with floor
// protection, W/L, streak with freezes, XP/level) and the weekly league.
// Profile-side failures are logged, never surfaced: the match result stands.
func (b *Battle) applyPlayerOutcomeLocked(userID uint, slot, winnerSlot, delta int, comeback bool) *PlayerResult {
	won := slot == winnerSlot
	outcome := "draw"
	if winnerSlot != 0 {
		if won {
			outcome = "win"
		} else {
			outcome = "loss"
		}
	}

	res := &PlayerResult{
		Outcome:      outcome,
		RatingChange: delta,
		IsComeback:   won && comeback,
		XPEarned:     MatchXP(won),
	}

	user, err := b.store.GetUser(userID)
	if err != nil {
		log.Printf("⚠️  battle %s: loading profile %d for outcome: %v", b.ID, userID, err)
		return res
	}

	oldLevel := LevelFromXP(user.XP)

	if delta != 0 {
		user.Rating = FloorProtection(user.Rating, user.Rating+delta)
	}
	if winnerSlot != 0 {
		if won {
			user.Wins++
		} else {
			user.Losses++
		}
	}

	streak := UpdateStreak(user.CurrentStreak, user.BestStreak, user.LastBattleDate, user.StreakFreezes, time.Now().UTC())
	user.CurrentStreak = streak.CurrentStreak
	user.BestStreak = streak.BestStreak
	user.StreakFreezes = streak.StreakFreezes
	last := streak.LastBattleDate
	user.LastBattleDate = &last

	user.XP += res.XPEarned
	user.Level = LevelFromXP(user.XP)

	if err := b.store.SaveUser(user); err != nil {
		log.Printf("⚠️  battle %s: saving profile %d: %v", b.ID, userID, err)
	}

	if b.match.IsRanked {
		week := models.WeekStartFor(time.Now().UTC())
		tier := string(TierForRating(user.Rating))
		if err := b.store.AddLeaguePoints(userID, week, tier, LeaguePoints(won), won); err != nil {
			log.Printf("⚠️  battle %s: league points for %d: %v", b.ID, userID, err)
		}
	}

	res.NewRating = user.Rating
	res.NewLevel = user.Level
	res.LeveledUp = user.Level > oldLevel
	b.playerStateForLocked(slot).Rating = user.Rating
	return res
}

func (b *Battle) playerStateForLocked(slot int) *PlayerState {
	return &b.players[slot-1]
}

// --- view model ---

// View renders the battle for one viewer. The question's correct answer and
// explanation are withheld until the result phases.
func (b *Battle) View(userID uint) (*BattleView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.match == nil {
		return nil, ErrWrongPhase
	}
	slot := b.match.SlotOf(userID)
	if slot == 0 {
		return nil, ErrNotInMatch
	}

	view := &BattleView{
		MatchID:       b.ID,
		Phase:         b.phase,
		RoundNumber:   b.roundNum,
		CountdownLeft: b.countdownLeft,
		Players:       []PlayerState{b.players[0], b.players[1]},
	}

	if b.phase == PhaseQuestion {
		remaining := b.cfg.QuestionTime - time.Since(b.roundStart)
		if remaining < 0 {
			remaining = 0
		}
		view.RemainingSeconds = int(remaining.Seconds())
	}

	if q := b.currentQuestionLocked(); q != nil && b.phase != PhaseCountdown && b.phase != PhaseLoading {
		qv := &QuestionView{
			ID:          q.ID,
			Type:        q.Type,
			Language:    q.Language,
			Prompt:      q.Prompt,
			CodeSnippet: q.CodeSnippet,
			Options:     q.OptionList(),
		}
		revealed := b.phase == PhaseResult || b.phase == PhaseExplanation || b.phase == PhaseMatchEnd
		if revealed {
			qv.CorrectAnswer = q.CorrectAnswer
			qv.Explanation = q.Explanation
		}
		view.Question = qv
	}

	if b.finalized {
		view.Result = b.results[slot-1]
	}
	return view, nil
}

// Phase returns the current phase (for tests and diagnostics).
func (b *Battle) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

// Scores returns the current (player1, player2) round-win counts.
func (b *Battle) Scores() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.players[0].Score, b.players[1].Score
}
