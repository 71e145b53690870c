package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of question events
type EventType string

const (
	// Authoring events
	EventQuestionImported EventType = "question.imported"
	EventQuestionDeleted  EventType = "question.deleted"

	// Student events
	EventQuestionAttempted         EventType = "question.attempted"
	EventQuestionAnsweredCorrectly EventType = "question.answered_correctly"
)

// QuestionEvent is the base event structure for all question events
type QuestionEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewQuestionEvent builds an event envelope with a fresh ID and timestamp.
func NewQuestionEvent(eventType EventType, data interface{}) *QuestionEvent {
	return &QuestionEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    "question-engine",
		Version:   "1.0",
		Data:      data,
	}
}

// Event payloads

type QuestionImportedEvent struct {
	QuestionID   uint   `json:"question_id"`
	DisplayName  string `json:"display_name"`
	QuestionType string `json:"question_type"`
	CreatedBy    string `json:"created_by"`
}

type QuestionDeletedEvent struct {
	QuestionID uint   `json:"question_id"`
	DeletedBy  string `json:"deleted_by"`
}

type QuestionAttemptedEvent struct {
	QuestionID   uint    `json:"question_id"`
	StudentID    string  `json:"student_id"`
	QuestionType string  `json:"question_type"`
	Attempt      int     `json:"attempt"`
	MaxAttempts  int     `json:"max_attempts"` // 0 = unlimited
	Correct      bool    `json:"correct"`
	Earned       float64 `json:"earned"`
	Possible     float64 `json:"possible"`
}
