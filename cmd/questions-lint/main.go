package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"coduel/models"
	"coduel/services"
)

func main() {
	files, err := filepath.Glob("./questions/*.json")
	if err != nil {
		fmt.Println("error: cannot read ./questions:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Println("no .json question bank files found in ./questions")
		return
	}

	exitCode := 0
	for _, f := range files {
		bad := lintFile(f)
		if bad > 0 {
			exitCode = 1
		} else {
			fmt.Printf("%s: OK\n", f)
		}
	}
	os.Exit(exitCode)
}

func lintFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("%s: read error: %v\n", path, err)
		return 1
	}

	var qf services.QuestionFile
	if err := json.Unmarshal(data, &qf); err != nil {
		fmt.Printf("%s: bad JSON: %v\n", path, err)
		return 1
	}

	bad := 0
	report := func(i int, msg string) {
		fmt.Printf("%s: question %d: %s\n", path, i+1, msg)
		bad++
	}

	if strings.TrimSpace(qf.Language) == "" {
		fmt.Printf("%s: missing language\n", path)
		bad++
	}

	for i, q := range qf.Questions {
		if strings.TrimSpace(q.Prompt) == "" {
			report(i, "empty prompt")
		}
		if q.Difficulty < 1 || q.Difficulty > 4 {
			report(i, fmt.Sprintf("difficulty %d out of range 1..4", q.Difficulty))
		}

		qType := models.QuestionType(q.Type)
		if q.Type == "" {
			qType = models.QuestionMCQ
		}
		switch qType {
		case models.QuestionMCQ, models.QuestionTrueFalse, models.QuestionMultiSelect,
			models.QuestionReorder, models.QuestionFillBlank, models.QuestionSpotTheBug:
		default:
			report(i, fmt.Sprintf("unknown type %q", q.Type))
			continue
		}

		if qType != models.QuestionTrueFalse && len(q.Options) < 2 {
			report(i, "fewer than 2 options")
		}

		if len(q.Answer) == 0 {
			report(i, "missing answer")
			continue
		}
		if qType.HasScalarAnswer() {
			var idx int
			if err := json.Unmarshal(q.Answer, &idx); err != nil {
				report(i, "answer must be an option index")
				continue
			}
			if idx < 0 || (len(q.Options) > 0 && idx >= len(q.Options)) {
				report(i, fmt.Sprintf("answer index %d out of bounds", idx))
			}
		} else {
			var idxs []int
			if err := json.Unmarshal(q.Answer, &idxs); err != nil {
				report(i, "answer must be an index array")
				continue
			}
			if len(idxs) == 0 {
				report(i, "answer array is empty")
			}
			for _, idx := range idxs {
				if idx < 0 || (len(q.Options) > 0 && idx >= len(q.Options)) {
					report(i, fmt.Sprintf("answer index %d out of bounds", idx))
				}
			}
		}
	}
	return bad
}
