// services/questions.go - Unseen-biased question selection
package services

import (
	"log"
)

// QuestionSelector picks the question set for a match. It prefers questions
// the player has never seen at their difficulty and language, then degrades
// gracefully: seen questions at the same difficulty/language, any language
// at the difficulty, finally anything active at all.
type QuestionSelector struct {
	store Store
}

func NewQuestionSelector(store Store) *QuestionSelector {
	return &QuestionSelector{store: store}
}

// Select returns up to n question IDs for a player. Only errors when the
// whole active pool is empty.
func (qs *QuestionSelector) Select(userID uint, difficulty int, language string, n int) ([]uint, error) {
	seen, err := qs.store.SeenQuestionIDs(userID)
	if err != nil {
		log.Printf("⚠️  question history lookup failed for user %d: %v", userID, err)
		seen = nil
	}

	picked := make([]uint, 0, n)
	have := make(map[uint]bool, n)

	add := func(difficulty int, language string, exclude []uint) error {
		if len(picked) >= n {
			return nil
		}
		questions, err := qs.store.RandomQuestions(difficulty, language, exclude, n-len(picked))
		if err != nil {
			return err
		}
		for _, q := range questions {
			if !have[q.ID] {
				have[q.ID] = true
				picked = append(picked, q.ID)
			}
		}
		return nil
	}

	alreadyPicked := func() []uint {
		out := make([]uint, len(picked))
		copy(out, picked)
		return out
	}

	// Unseen first, then relax one constraint at a time.
	if err := add(difficulty, language, append(alreadyPicked(), seen...)); err != nil {
		return nil, err
	}
	if err := add(difficulty, language, alreadyPicked()); err != nil {
		return nil, err
	}
	if err := add(difficulty, "", alreadyPicked()); err != nil {
		return nil, err
	}
	if err := add(0, "", alreadyPicked()); err != nil {
		return nil, err
	}

	if len(picked) == 0 {
		return nil, ErrEmptyQuestionPool
	}
	return picked, nil
}
