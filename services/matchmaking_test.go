package services

import (
	"sync"
	"testing"
	"time"

	"coduel/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchmakingConfig() Config {
	return Config{
		RatingWindow:    150,
		QueueStaleTTL:   time.Minute,
		OpenMatchWindow: 2 * time.Minute,
		RoundsPerMatch:  3,
		ScoreToWin:      2,
	}
}

func matchmakingStore(t *testing.T) *memStore {
	t.Helper()
	store := newMemStore()
	store.addUser(models.User{ID: 1, Username: "alice", Rating: 1000})
	store.addUser(models.User{ID: 2, Username: "bob", Rating: 1050})
	store.addUser(models.User{ID: 3, Username: "carol", Rating: 1700})
	for id := uint(1); id <= 10; id++ {
		store.addQuestion(seedQuestion(id, 2, "go"))
	}
	return store
}

func TestJoinEmptyQueueEnqueues(t *testing.T) {
	store := matchmakingStore(t)
	mm := NewMatchmaker(store, NewHub(), matchmakingConfig())

	out, err := mm.Join(1, true, "go")
	require.NoError(t, err)
	assert.False(t, out.Matched)
	assert.False(t, out.QueuedAt.IsZero())
	assert.Equal(t, 1, store.queueSize())
}

func TestJoinPairsWithWaitingCandidate(t *testing.T) {
	store := matchmakingStore(t)
	hub := NewHub()
	mm := NewMatchmaker(store, hub, matchmakingConfig())

	// Bob waits and listens for the match_found push.
	events := make(chan Event, 4)
	unsub := hub.Subscribe(MatchmakingTopic(2), events)
	defer unsub()

	_, err := mm.Join(2, true, "go")
	require.NoError(t, err)

	out, err := mm.Join(1, true, "go")
	require.NoError(t, err)
	require.True(t, out.Matched)
	assert.Equal(t, "bob", out.OpponentName)
	assert.Equal(t, 1050, out.OpponentRating)
	assert.Equal(t, 0, store.queueSize())

	match, err := store.GetMatch(out.MatchID)
	require.NoError(t, err)
	assert.Equal(t, uint(1), match.Player1ID)
	require.NotNil(t, match.Player2ID)
	assert.Equal(t, uint(2), *match.Player2ID)
	assert.True(t, match.IsRanked)
	assert.False(t, match.IsBotMatch)

	rounds, err := store.GetRounds(out.MatchID)
	require.NoError(t, err)
	assert.Len(t, rounds, 3)

	// Both players got the questions recorded as seen.
	for _, uid := range []uint{1, 2} {
		seen, err := store.SeenQuestionIDs(uid)
		require.NoError(t, err)
		assert.Len(t, seen, 3)
	}

	select {
	case ev := <-events:
		assert.Equal(t, EventMatchFound, ev.Type)
		assert.Equal(t, out.MatchID, ev.Payload["match_id"])
	default:
		t.Fatal("waiting player never received match_found")
	}
}

func TestJoinRespectsRatingWindow(t *testing.T) {
	store := matchmakingStore(t)
	mm := NewMatchmaker(store, NewHub(), matchmakingConfig())

	// Carol's 1700 is far outside Alice's 1000±150.
	_, err := mm.Join(3, true, "go")
	require.NoError(t, err)

	out, err := mm.Join(1, true, "go")
	require.NoError(t, err)
	assert.False(t, out.Matched)
	assert.Equal(t, 2, store.queueSize())
}

func TestJoinSkipsDifferentMode(t *testing.T) {
	store := matchmakingStore(t)
	mm := NewMatchmaker(store, NewHub(), matchmakingConfig())

	_, err := mm.Join(2, false, "go")
	require.NoError(t, err)

	out, err := mm.Join(1, true, "go")
	require.NoError(t, err)
	assert.False(t, out.Matched)
}

func TestJoinReplacesOwnEntry(t *testing.T) {
	store := matchmakingStore(t)
	mm := NewMatchmaker(store, NewHub(), matchmakingConfig())

	_, err := mm.Join(1, true, "go")
	require.NoError(t, err)
	_, err = mm.Join(1, true, "go")
	require.NoError(t, err)
	assert.Equal(t, 1, store.queueSize())
}

func TestJoinEvictsStaleCandidate(t *testing.T) {
	store := matchmakingStore(t)
	mm := NewMatchmaker(store, NewHub(), matchmakingConfig())

	_, err := mm.Join(2, true, "go")
	require.NoError(t, err)

	// Bob got into a match after queueing; his entry is stale.
	two := uint(2)
	err = store.CreateMatchWithRounds(&models.Match{
		ID:        "existing",
		Player1ID: 3,
		Player2ID: &two,
		StartedAt: time.Now().UTC().Add(time.Second),
	}, []models.MatchRound{{RoundNumber: 1, QuestionID: 1}})
	require.NoError(t, err)

	out, err := mm.Join(1, true, "go")
	require.NoError(t, err)
	assert.False(t, out.Matched)
	assert.Equal(t, 1, store.queueSize(), "stale entry evicted, only alice remains")
}

func TestConcurrentJoinClaimsCandidateOnce(t *testing.T) {
	store := matchmakingStore(t)
	store.addUser(models.User{ID: 4, Username: "dave", Rating: 1020})
	mm := NewMatchmaker(store, NewHub(), matchmakingConfig())

	// One candidate, two simultaneous joiners racing for them.
	_, err := mm.Join(2, true, "go")
	require.NoError(t, err)

	var wg sync.WaitGroup
	outcomes := make([]*JoinOutcome, 2)
	errs := make([]error, 2)
	for i, uid := range []uint{1, 4} {
		wg.Add(1)
		go func(i int, uid uint) {
			defer wg.Done()
			outcomes[i], errs[i] = mm.Join(uid, true, "go")
		}(i, uid)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	matched := 0
	for _, out := range outcomes {
		if out.Matched {
			matched++
			assert.Equal(t, "bob", out.OpponentName)
		}
	}
	assert.Equal(t, 1, matched, "exactly one joiner may claim the waiting entry")
	assert.Equal(t, 1, store.queueSize(), "the loser ends up queued")
}

func TestLeaveRemovesEntry(t *testing.T) {
	store := matchmakingStore(t)
	mm := NewMatchmaker(store, NewHub(), matchmakingConfig())

	_, err := mm.Join(1, true, "go")
	require.NoError(t, err)
	mm.Leave(1)
	assert.Equal(t, 0, store.queueSize())
}

func TestCreateBotMatch(t *testing.T) {
	store := matchmakingStore(t)
	mm := NewMatchmaker(store, NewHub(), matchmakingConfig())

	// A pending queue entry should be superseded.
	_, err := mm.Join(1, true, "go")
	require.NoError(t, err)

	out, err := mm.CreateBotMatch(1, true, "go", "")
	require.NoError(t, err)
	require.True(t, out.Matched)
	assert.NotEmpty(t, out.OpponentName)
	assert.InDelta(t, 1000, out.OpponentRating, 50)
	assert.Equal(t, 0, store.queueSize())

	match, err := store.GetMatch(out.MatchID)
	require.NoError(t, err)
	assert.True(t, match.IsBotMatch)
	assert.Nil(t, match.Player2ID)
	assert.Equal(t, out.OpponentName, match.BotName)

	rounds, err := store.GetRounds(out.MatchID)
	require.NoError(t, err)
	assert.Len(t, rounds, 3)
}

func TestCreateBotMatchEmptyPool(t *testing.T) {
	store := newMemStore()
	store.addUser(models.User{ID: 1, Username: "alice", Rating: 1000})
	mm := NewMatchmaker(store, NewHub(), matchmakingConfig())

	_, err := mm.CreateBotMatch(1, true, "go", "")
	assert.ErrorIs(t, err, ErrEmptyQuestionPool)
}
