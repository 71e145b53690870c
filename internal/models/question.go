package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	TypeStringResponse QuestionType = "stringresponse"
	TypeOptionResponse QuestionType = "optionresponse"
	TypeChoiceResponse QuestionType = "choiceresponse"
)

// DisplayStyle selects how a single-select question is rendered.
type DisplayStyle string

const (
	DisplayRadio    DisplayStyle = "radio"
	DisplayDropdown DisplayStyle = "dropdown"
)

// QuestionDocument is the normalized, immutable-after-parse representation of
// a question. Type selects exactly one of the String/Option/Choice payloads;
// the other two are nil. Documents are produced by the OLX parser at import
// time and are read-only afterwards (authors re-import to change them).
type QuestionDocument struct {
	Type        QuestionType `json:"type"`
	Question    string       `json:"question"` // HTML-formatted prompt
	DisplayName string       `json:"display_name"`
	MaxAttempts int          `json:"max_attempts"` // 0 = unlimited
	Weight      float64      `json:"weight"`       // points for a fully correct answer
	Hints       []Hint       `json:"hints"`

	String *StringResponse `json:"stringresponse,omitempty"`
	Option *OptionResponse `json:"optionresponse,omitempty"`
	Choice *ChoiceResponse `json:"choiceresponse,omitempty"`
}

// StringResponse is a free-text question. Answers is the ordered set of
// accepted values (case-insensitive, first entry is canonical). Comments maps
// lowercased answer text to feedback shown after that answer is submitted.
type StringResponse struct {
	Answers  []string          `json:"answers"`
	Comments map[string]string `json:"comments"`
}

// OptionResponse is a single-select question.
type OptionResponse struct {
	Options []Option     `json:"options"`
	Display DisplayStyle `json:"display"`
}

type Option struct {
	Content string `json:"content"`
	Correct bool   `json:"correct"`
	Comment string `json:"comment"` // shown when this option is the selected one
}

// ChoiceResponse is a multi-select question. Comments maps a group key to
// pooled feedback: either sorted space-joined selected indices ("1 2") or the
// literal outcome tags "correct"/"incorrect". Both schemes occur in imported
// content; lookups try the index key first and fall back to the outcome key.
type ChoiceResponse struct {
	Choices  []Choice          `json:"choices"`
	Comments map[string]string `json:"comments"`
}

type Choice struct {
	Content           string `json:"content"`
	Correct           bool   `json:"correct"`
	SelectedComment   string `json:"selected_comment"`
	UnselectedComment string `json:"unselected_comment"`
}

type Hint struct {
	Content string `json:"content"`
}

// Possible returns the points awarded for a fully correct answer.
func (d *QuestionDocument) Possible() float64 {
	if d.Weight > 0 {
		return d.Weight
	}
	return 1
}

// Question is the persisted row wrapping a QuestionDocument. The document
// itself is stored as JSONB; Type and DisplayName are denormalized for
// listing and filtering.
type Question struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	DisplayName string         `json:"display_name" gorm:"not null;size:200;index"`
	Type        QuestionType   `json:"type" gorm:"not null;size:32;index"`
	Document    datatypes.JSON `json:"document" gorm:"type:jsonb;not null"`

	CreatedBy string         `json:"created_by" gorm:"size:64;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Question) TableName() string {
	return "questions"
}
