package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"coduel/database"
	"coduel/models"
)

const QuestionsDirectory = "./questions"

// QuestionFile is the on-disk format for question bank files.
type QuestionFile struct {
	Language  string         `json:"language"`
	Topic     string         `json:"topic"`
	Questions []SeedQuestion `json:"questions"`
}

type SeedQuestion struct {
	Type        string          `json:"type"`
	Difficulty  int             `json:"difficulty"`
	Prompt      string          `json:"prompt"`
	Code        string          `json:"code,omitempty"`
	Options     []string        `json:"options"`
	Answer      json.RawMessage `json:"answer"`
	Explanation string          `json:"explanation"`
}

// InitQuestionData loads every question bank file into the database. Missing
// directory gets created with a sample file so a fresh checkout boots with a
// playable pool.
func InitQuestionData() {
	if err := LoadQuestionsFromFiles(); err != nil {
		log.Printf("⚠️ Error loading question banks: %v", err)
	}
}

func LoadQuestionsFromFiles() error {
	if _, err := os.Stat(QuestionsDirectory); os.IsNotExist(err) {
		log.Println("Questions directory not found, creating it...")
		if err := os.MkdirAll(QuestionsDirectory, 0755); err != nil {
			return fmt.Errorf("failed to create questions directory: %w", err)
		}
		if err := createSampleQuestionFile(); err != nil {
			return fmt.Errorf("failed to create sample file: %w", err)
		}
	}

	files, err := filepath.Glob(filepath.Join(QuestionsDirectory, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to read questions directory: %w", err)
	}
	if len(files) == 0 {
		log.Println("No question bank files found")
		if err := createSampleQuestionFile(); err != nil {
			return fmt.Errorf("failed to create sample file: %w", err)
		}
		files, _ = filepath.Glob(filepath.Join(QuestionsDirectory, "*.json"))
	}

	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	loaded := 0
	for _, file := range files {
		n, err := loadQuestionFile(db, file)
		if err != nil {
			log.Printf("⚠️ Failed to load %s: %v", file, err)
			continue
		}
		loaded += n
	}
	if loaded > 0 {
		log.Printf("✅ Loaded %d new questions from %d bank files", loaded, len(files))
	}
	return nil
}

func loadQuestionFile(db *gorm.DB, file string) (int, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return 0, err
	}

	var qf QuestionFile
	if err := json.Unmarshal(data, &qf); err != nil {
		return 0, fmt.Errorf("bad JSON: %w", err)
	}
	if qf.Language == "" {
		return 0, fmt.Errorf("missing language")
	}

	created := 0
	for _, sq := range qf.Questions {
		prompt := strings.TrimSpace(sq.Prompt)
		if prompt == "" || len(sq.Answer) == 0 {
			log.Printf("Skipping invalid question in %s", filepath.Base(file))
			continue
		}
		if sq.Difficulty < 1 || sq.Difficulty > 4 {
			sq.Difficulty = 2
		}
		qType := models.QuestionType(sq.Type)
		if sq.Type == "" {
			qType = models.QuestionMCQ
		}
		if qType != models.QuestionTrueFalse && qType != models.QuestionFillBlank && len(sq.Options) < 2 {
			log.Printf("Skipping question with too few options in %s", filepath.Base(file))
			continue
		}

		var existing models.Question
		err := db.Where("prompt = ? AND language = ?", prompt, qf.Language).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return created, err
		}

		optionsJSON, err := json.Marshal(sq.Options)
		if err != nil {
			continue
		}

		q := models.Question{
			Type:          qType,
			Language:      strings.ToLower(strings.TrimSpace(qf.Language)),
			Topic:         strings.TrimSpace(qf.Topic),
			Difficulty:    sq.Difficulty,
			Prompt:        prompt,
			CodeSnippet:   sq.Code,
			Options:       string(optionsJSON),
			CorrectAnswer: string(sq.Answer),
			Explanation:   strings.TrimSpace(sq.Explanation),
			IsActive:      true,
		}
		if err := db.Create(&q).Error; err != nil {
			log.Printf("Failed to create question: %v", err)
			continue
		}
		created++
	}
	return created, nil
}

func createSampleQuestionFile() error {
	sample := QuestionFile{
		Language: "javascript",
		Topic:    "fundamentals",
		Questions: []SeedQuestion{
			{
				Type:       string(models.QuestionMCQ),
				Difficulty: 1,
				Prompt:     "What does this expression evaluate to?",
				Code:       "typeof null",
				Options: []string{
					"\"object\"",
					"\"null\"",
					"\"undefined\"",
					"TypeError",
				},
				Answer:      json.RawMessage(`0`),
				Explanation: "A long-standing quirk: typeof null returns \"object\" because of how values were tagged in the original implementation.",
			},
			{
				Type:        string(models.QuestionTrueFalse),
				Difficulty:  1,
				Prompt:      "const variables cannot be reassigned, but objects they reference can still be mutated.",
				Options:     []string{"True", "False"},
				Answer:      json.RawMessage(`0`),
				Explanation: "const only freezes the binding, not the value. Object properties remain writable.",
			},
			{
				Type:       string(models.QuestionSpotTheBug),
				Difficulty: 2,
				Prompt:     "Which line causes every callback to log the same number?",
				Code:       "for (var i = 0; i < 3; i++) {\n  setTimeout(() => console.log(i), 0);\n}",
				Options: []string{
					"Line 1: var is function-scoped, so all callbacks share one i",
					"Line 2: setTimeout cannot be used inside loops",
					"Line 2: arrow functions capture by value",
					"Nothing, it logs 0 1 2",
				},
				Answer:      json.RawMessage(`0`),
				Explanation: "With var there is a single loop variable. By the time the callbacks run it is already 3. Use let for a fresh binding per iteration.",
			},
		},
	}

	data, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}

	filename := filepath.Join(QuestionsDirectory, "sample_javascript.json")
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write sample file: %w", err)
	}

	log.Printf("Created sample question file: %s", filename)
	return nil
}
