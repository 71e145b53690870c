package models

// StudentViewState is the JSON document returned to the front-end renderer
// for every view read and every accepted submission. Correct is nil until the
// student has submitted an answer.
type StudentViewState struct {
	MaxAttempts     int          `json:"maxAttempts"`
	CurrentScore    float64      `json:"current_score"`
	TotalPossible   float64      `json:"total_possible"`
	QuestionData    QuestionView `json:"questionData"`
	Hints           []Hint       `json:"hints"`
	StudentAttempts int          `json:"studentAttempts"`
	Correct         *bool        `json:"correct"`
}

// QuestionView is the student-safe projection of a QuestionDocument plus the
// current answer state. Correct-answer flags are never included; per-item
// comments are populated only for items relevant to the submitted answer.
type QuestionView struct {
	Type          QuestionType  `json:"type"`
	Question      string        `json:"question"`
	StudentAnswer StudentAnswer `json:"studentAnswer"`

	// stringresponse: feedback for the submitted answer (present once an
	// answer exists) and the canonical answer (revealed only when attempts
	// are exhausted).
	Comment *string `json:"comment,omitempty"`
	Answer  *string `json:"answer,omitempty"`

	// optionresponse
	Display DisplayStyle `json:"display,omitempty"`
	Options []ItemView   `json:"options,omitempty"`

	// choiceresponse
	Choices []ItemView `json:"choices,omitempty"`
}

// ItemView is one redacted option or choice.
type ItemView struct {
	Content string `json:"content"`
	Checked bool   `json:"checked"`
	Comment string `json:"comment"`
}
