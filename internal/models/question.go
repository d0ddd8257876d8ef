package models

// Answer is one selectable option on a quiz question.
type Answer struct {
	Text    string `json:"text" yaml:"text"`
	Correct bool   `json:"correct" yaml:"correct"`
}

// Question is a single quiz question with its ordered answer options.
// The list shipped to clients includes the correct flags; scoring happens
// client-side first and is confirmed by the coordinator on updateScore.
type Question struct {
	Question string   `json:"question" yaml:"question"`
	Answers  []Answer `json:"answers" yaml:"answers"`
}

// CorrectAnswer returns the index of the first correct option, or -1.
func (q Question) CorrectAnswer() int {
	for i, a := range q.Answers {
		if a.Correct {
			return i
		}
	}
	return -1
}
