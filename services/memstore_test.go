package services

import (
	"sort"
	"sync"
	"time"

	"coduel/models"
)

// memStore is an in-memory Store with the same conditional-write semantics
// as the gorm implementation, for tests that exercise claim races and
// write-once paths without a database.
type memStore struct {
	mu sync.Mutex

	users       map[uint]*models.User
	queue       map[uint]*models.QueueEntry
	nextQueueID uint

	matches map[string]*models.Match
	rounds  map[string][]*models.MatchRound

	questions map[uint]*models.Question
	seen      map[uint]map[uint]bool

	league map[leagueKey]*models.LeagueMembership
}

type leagueKey struct {
	userID uint
	week   time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[uint]*models.User),
		queue:     make(map[uint]*models.QueueEntry),
		matches:   make(map[string]*models.Match),
		rounds:    make(map[string][]*models.MatchRound),
		questions: make(map[uint]*models.Question),
		seen:      make(map[uint]map[uint]bool),
		league:    make(map[leagueKey]*models.LeagueMembership),
	}
}

func (s *memStore) addUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

func (s *memStore) addQuestion(q models.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = &q
}

func (s *memStore) GetUser(id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) SaveUser(u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memStore) DeleteQueueEntriesFor(userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.queue {
		if e.UserID == userID {
			delete(s.queue, id)
		}
	}
	return nil
}

func (s *memStore) InsertQueueEntry(e *models.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQueueID++
	e.ID = s.nextQueueID
	cp := *e
	s.queue[e.ID] = &cp
	return nil
}

func (s *memStore) FindQueueCandidate(excludeUserID uint, minRating, maxRating int, ranked bool, language string) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.QueueEntry
	for _, e := range s.queue {
		if e.UserID == excludeUserID || e.IsRanked != ranked {
			continue
		}
		if e.Rating < minRating || e.Rating > maxRating {
			continue
		}
		if language != "" && e.Language != "" && e.Language != language {
			continue
		}
		if best == nil || e.JoinedAt.Before(best.JoinedAt) {
			best = e
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (s *memStore) ClaimQueueEntry(entryID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queue[entryID]; !ok {
		return false, nil
	}
	delete(s.queue, entryID)
	return true, nil
}

func (s *memStore) DeleteStaleQueueEntries(olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.queue {
		if e.JoinedAt.Before(olderThan) {
			delete(s.queue, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) queueSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *memStore) CountMatchesSince(userID uint, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.matches {
		if s.involves(m, userID) && !m.StartedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) HasOpenMatchSince(userID uint, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		if s.involves(m, userID) && m.IsOpen() && !m.StartedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) involves(m *models.Match, userID uint) bool {
	return m.Player1ID == userID || (m.Player2ID != nil && *m.Player2ID == userID)
}

func (s *memStore) CreateMatchWithRounds(m *models.Match, rounds []models.MatchRound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.matches[m.ID] = &cp
	stored := make([]*models.MatchRound, 0, len(rounds))
	for i := range rounds {
		r := rounds[i]
		r.MatchID = m.ID
		stored = append(stored, &r)
	}
	s.rounds[m.ID] = stored
	return nil
}

func (s *memStore) GetMatch(id string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) GetRounds(matchID string) ([]models.MatchRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MatchRound, 0, len(s.rounds[matchID]))
	for _, r := range s.rounds[matchID] {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out, nil
}

func (s *memStore) roundFor(matchID string, roundNumber int) *models.MatchRound {
	for _, r := range s.rounds[matchID] {
		if r.RoundNumber == roundNumber {
			return r
		}
	}
	return nil
}

func (s *memStore) SaveRoundAnswer(matchID string, roundNumber, slot int, answer string, timeMs int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.roundFor(matchID, roundNumber)
	if r == nil {
		return ErrNotFound
	}
	if slot == 1 {
		r.Player1Answer = &answer
		r.Player1TimeMs = &timeMs
	} else {
		r.Player2Answer = &answer
		r.Player2TimeMs = &timeMs
	}
	return nil
}

func (s *memStore) MarkRoundStarted(matchID string, roundNumber int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.roundFor(matchID, roundNumber)
	if r == nil {
		return ErrNotFound
	}
	r.RoundStartedAt = &at
	return nil
}

func (s *memStore) ResolveRound(matchID string, roundNumber int, winnerID *uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.roundFor(matchID, roundNumber)
	if r == nil || r.Resolved {
		return false, nil
	}
	r.Resolved = true
	r.RoundWinnerID = winnerID
	return true, nil
}

func (s *memStore) FinalizeMatch(matchID string, p1Score, p2Score int, winnerID *uint, p1Delta, p2Delta int, endedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok || m.EndedAt != nil {
		return false, nil
	}
	m.Player1Score = p1Score
	m.Player2Score = p2Score
	m.WinnerID = winnerID
	m.Player1RatingDelta = p1Delta
	m.Player2RatingDelta = p2Delta
	m.EndedAt = &endedAt
	return true, nil
}

func (s *memStore) ForfeitOpenMatches(olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var n int64
	for _, m := range s.matches {
		if m.IsOpen() && m.StartedAt.Before(olderThan) {
			zero := uint(0)
			m.ForfeitedBy = &zero
			m.EndedAt = &now
			n++
		}
	}
	return n, nil
}

func (s *memStore) GetQuestions(ids []uint) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := s.questions[id]; ok {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (s *memStore) RandomQuestions(difficulty int, language string, excludeIDs []uint, limit int) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	excluded := make(map[uint]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	ids := make([]uint, 0, len(s.questions))
	for id := range s.questions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]models.Question, 0, limit)
	for _, id := range ids {
		q := s.questions[id]
		if !q.IsActive || excluded[id] {
			continue
		}
		if difficulty > 0 && q.Difficulty != difficulty {
			continue
		}
		if language != "" && q.Language != language {
			continue
		}
		out = append(out, *q)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) SeenQuestionIDs(userID uint) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint, 0, len(s.seen[userID]))
	for id := range s.seen[userID] {
		out = append(out, id)
	}
	return out, nil
}

func (s *memStore) RecordQuestionsSeen(userID uint, questionIDs []uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[userID] == nil {
		s.seen[userID] = make(map[uint]bool)
	}
	for _, id := range questionIDs {
		s.seen[userID][id] = true
	}
	return nil
}

func (s *memStore) leagueRow(userID uint, week time.Time) *models.LeagueMembership {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.league[leagueKey{userID: userID, week: week}]
	if row == nil {
		return nil
	}
	cp := *row
	return &cp
}

func (s *memStore) AddLeaguePoints(userID uint, weekStart time.Time, tier string, points int, won bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := leagueKey{userID: userID, week: weekStart}
	row := s.league[key]
	if row == nil {
		row = &models.LeagueMembership{UserID: userID, WeekStart: weekStart}
		s.league[key] = row
	}
	row.LeagueTier = tier
	row.Points += points
	if won {
		row.Wins++
	} else {
		row.Losses++
	}
	return nil
}
