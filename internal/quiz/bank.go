package quiz

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pairboard/pairboard/internal/models"
)

// Bank is the fixed, immutable question list shared by every room.
// Loaded once at process start; rooms only ever read it.
type Bank struct {
	questions []models.Question
}

// LoadBank reads a YAML question file. An empty path falls back to the
// built-in default set.
func LoadBank(path string) (*Bank, error) {
	if path == "" {
		return &Bank{questions: defaultQuestions()}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question file: %w", err)
	}

	var file struct {
		Questions []models.Question `yaml:"questions"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse question file: %w", err)
	}
	if len(file.Questions) == 0 {
		return nil, fmt.Errorf("question file %s contains no questions", path)
	}
	for i, q := range file.Questions {
		if q.CorrectAnswer() < 0 {
			return nil, fmt.Errorf("question %d has no correct answer", i)
		}
	}

	return &Bank{questions: file.Questions}, nil
}

// Questions returns the full ordered question list.
func (b *Bank) Questions() []models.Question {
	return b.questions
}

// Len returns the number of questions.
func (b *Bank) Len() int {
	return len(b.questions)
}

func defaultQuestions() []models.Question {
	return []models.Question{
		{
			Question: "What is the capital of France?",
			Answers: []models.Answer{
				{Text: "Paris", Correct: true},
				{Text: "London"},
				{Text: "Berlin"},
			},
		},
		{
			Question: "What is the largest planet in our solar system?",
			Answers: []models.Answer{
				{Text: "Mars"},
				{Text: "Jupiter", Correct: true},
				{Text: "Saturn"},
			},
		},
		{
			Question: "What is the highest mountain in the world?",
			Answers: []models.Answer{
				{Text: "Everest", Correct: true},
				{Text: "K2"},
				{Text: "Kangchenjunga"},
			},
		},
	}
}
