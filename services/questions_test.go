package services

import (
	"testing"
	"time"

	"coduel/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedQuestion(id uint, difficulty int, language string) models.Question {
	return models.Question{
		ID:            id,
		Type:          models.QuestionMCQ,
		Language:      language,
		Difficulty:    difficulty,
		Prompt:        "q",
		Options:       `["a","b"]`,
		CorrectAnswer: "0",
		IsActive:      true,
	}
}

func TestSelectPrefersUnseen(t *testing.T) {
	store := newMemStore()
	for id := uint(1); id <= 6; id++ {
		store.addQuestion(seedQuestion(id, 2, "go"))
	}
	require.NoError(t, store.RecordQuestionsSeen(7, []uint{1, 2, 3}, time.Now()))

	picked, err := NewQuestionSelector(store).Select(7, 2, "go", 3)
	require.NoError(t, err)
	require.Len(t, picked, 3)
	for _, id := range picked {
		assert.NotContains(t, []uint{1, 2, 3}, id)
	}
}

func TestSelectFallsBackToSeen(t *testing.T) {
	store := newMemStore()
	store.addQuestion(seedQuestion(1, 2, "go"))
	store.addQuestion(seedQuestion(2, 2, "go"))
	store.addQuestion(seedQuestion(3, 2, "go"))
	require.NoError(t, store.RecordQuestionsSeen(7, []uint{1, 2, 3}, time.Now()))

	picked, err := NewQuestionSelector(store).Select(7, 2, "go", 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{1, 2, 3}, picked)
}

func TestSelectFallsBackAcrossLanguageAndDifficulty(t *testing.T) {
	store := newMemStore()
	store.addQuestion(seedQuestion(1, 2, "go"))
	store.addQuestion(seedQuestion(2, 2, "python"))
	store.addQuestion(seedQuestion(3, 4, "rust"))

	picked, err := NewQuestionSelector(store).Select(7, 2, "go", 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{1, 2, 3}, picked)
}

func TestSelectNeverRepeatsWithinMatch(t *testing.T) {
	store := newMemStore()
	store.addQuestion(seedQuestion(1, 2, "go"))
	store.addQuestion(seedQuestion(2, 2, "go"))

	// Pool smaller than n: the pick is short, never duplicated.
	picked, err := NewQuestionSelector(store).Select(7, 2, "go", 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{1, 2}, picked)
}

func TestSelectSkipsInactive(t *testing.T) {
	store := newMemStore()
	q := seedQuestion(1, 2, "go")
	q.IsActive = false
	store.addQuestion(q)
	store.addQuestion(seedQuestion(2, 2, "go"))

	picked, err := NewQuestionSelector(store).Select(7, 2, "go", 3)
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, picked)
}

func TestSelectEmptyPool(t *testing.T) {
	store := newMemStore()
	_, err := NewQuestionSelector(store).Select(7, 2, "go", 3)
	assert.ErrorIs(t, err, ErrEmptyQuestionPool)
}
