// models/question.go - Coding trivia question bank
package models

import (
	"encoding/json"
	"time"
)

// QuestionType is a closed set: every type fixes both the answer shape and
// the correctness rule (see services.IsAnswerCorrect).
type QuestionType string

const (
	QuestionMCQ         QuestionType = "mcq"
	QuestionTrueFalse   QuestionType = "true_false"
	QuestionMultiSelect QuestionType = "multi_select"
	QuestionReorder     QuestionType = "reorder"
	QuestionFillBlank   QuestionType = "fill_blank"
	QuestionSpotTheBug  QuestionType = "spot_the_bug"
)

// Question is read-only to the battle core. CorrectAnswer is JSON: a scalar
// option index for mcq/true_false/spot_the_bug, an index array for
// multi_select/reorder/fill_blank.
type Question struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	Language      string       `json:"language" gorm:"not null;size:30;index"`
	Topic         string       `json:"topic" gorm:"size:60;index"`
	Type          QuestionType `json:"type" gorm:"not null;size:20;default:'mcq'"`
	Difficulty    int          `json:"difficulty" gorm:"not null;default:1;index"` // 1..4
	Prompt        string       `json:"prompt" gorm:"not null;type:text"`
	CodeSnippet   string       `json:"code_snippet" gorm:"type:text"`
	Options       string       `json:"options" gorm:"not null;type:text"` // JSON string array
	CorrectAnswer string       `json:"correct_answer" gorm:"not null;size:200"`
	Explanation   string       `json:"explanation" gorm:"type:text"`
	IsActive      bool         `json:"is_active" gorm:"default:true;index"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (Question) TableName() string { return "questions" }

// OptionList decodes the Options JSON array.
func (q *Question) OptionList() []string {
	var opts []string
	if err := json.Unmarshal([]byte(q.Options), &opts); err != nil {
		return []string{}
	}
	return opts
}

// HasOrderedAnswer reports whether answer-array order matters for this type.
func (t QuestionType) HasOrderedAnswer() bool {
	return t == QuestionReorder || t == QuestionFillBlank
}

// HasScalarAnswer reports whether the answer is a single option index.
func (t QuestionType) HasScalarAnswer() bool {
	switch t {
	case QuestionMCQ, QuestionTrueFalse, QuestionSpotTheBug:
		return true
	}
	return false
}
