package models

import (
	"time"

	"github.com/google/uuid"
)

// Group is a student pairing. Its ID doubles as the real-time room key.
type Group struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Student1  *uuid.UUID `json:"student1,omitempty"`
	Student2  *uuid.UUID `json:"student2,omitempty"`
	ImageURLs []string   `json:"image_urls"`
	Story     string     `json:"story"`
	QuizScore *int       `json:"quiz_score,omitempty"`
	TimeTaken *TimeTaken `json:"time_taken,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// TimeTaken records how long a group spent on the quiz round.
type TimeTaken struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// Student is a registered classroom participant.
type Student struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
