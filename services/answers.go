// services/answers.go - Answer shapes and per-question-type correctness
package services

import (
	"encoding/json"
	"fmt"

	"coduel/models"
)

// NoAnswerSentinel marks a timeout / non-submission. It is never correct.
const NoAnswerSentinel = -1

// Answer is the submitted answer for any question type: Index for scalar
// types (mcq, true_false, spot_the_bug), Indices for multi_select, reorder
// and fill_blank.
type Answer struct {
	Index   int   `json:"index"`
	Indices []int `json:"indices,omitempty"`
}

// TimeoutAnswer is the auto-submitted answer when the question timer runs
// out before the player answers.
func TimeoutAnswer() Answer {
	return Answer{Index: NoAnswerSentinel}
}

// IsTimeout reports whether this is the no-answer sentinel.
func (a Answer) IsTimeout() bool {
	return a.Index == NoAnswerSentinel && len(a.Indices) == 0
}

// Encode serializes an answer for the match_rounds row.
func (a Answer) Encode() string {
	b, _ := json.Marshal(a)
	return string(b)
}

// DecodeAnswer parses a stored answer. Nil input means "not submitted yet".
func DecodeAnswer(raw *string) (Answer, bool) {
	if raw == nil {
		return Answer{}, false
	}
	var a Answer
	if err := json.Unmarshal([]byte(*raw), &a); err != nil {
		return Answer{}, false
	}
	return a, true
}

// parseCorrectAnswer reads a question's stored correct answer into the same
// Answer shape submissions use.
func parseCorrectAnswer(q *models.Question) (Answer, error) {
	raw := []byte(q.CorrectAnswer)
	if q.Type.HasScalarAnswer() {
		var idx int
		if err := json.Unmarshal(raw, &idx); err != nil {
			return Answer{}, fmt.Errorf("question %d: bad scalar answer: %w", q.ID, err)
		}
		return Answer{Index: idx}, nil
	}
	var indices []int
	if err := json.Unmarshal(raw, &indices); err != nil {
		return Answer{}, fmt.Errorf("question %d: bad answer array: %w", q.ID, err)
	}
	return Answer{Index: NoAnswerSentinel, Indices: indices}, nil
}

// IsAnswerCorrect checks a submission against a question. A timeout
// sentinel never matches. Scalar types compare the option index;
// multi_select compares as a set; reorder and fill_blank compare as an
// ordered sequence.
func IsAnswerCorrect(q *models.Question, a Answer) bool {
	if a.IsTimeout() {
		return false
	}

	correct, err := parseCorrectAnswer(q)
	if err != nil {
		return false
	}

	switch q.Type {
	case models.QuestionMCQ, models.QuestionTrueFalse, models.QuestionSpotTheBug:
		return a.Index == correct.Index
	case models.QuestionMultiSelect:
		return sameIndexSet(a.Indices, correct.Indices)
	case models.QuestionReorder, models.QuestionFillBlank:
		return sameIndexSeq(a.Indices, correct.Indices)
	}
	return false
}

func sameIndexSet(a, b []int) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	counts := make(map[int]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
		if counts[v] < 0 {
			return false
		}
	}
	return true
}

func sameIndexSeq(a, b []int) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
