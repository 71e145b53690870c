package engine

import "github.com/open-courseware/question-engine/internal/models"

// SubmitResult carries the outcome of an accepted submission. Answer and
// Attempts are the new state to persist; View is the projection of that state.
type SubmitResult struct {
	Answer   models.StudentAnswer
	Attempts int
	Score    Score
	View     *models.StudentViewState
}

// Submit runs one submission through the attempt state machine. Gate checks
// run before validation, and validation failures leave the stored state
// untouched: a malformed payload never burns an attempt.
func (e *Engine) Submit(doc *models.QuestionDocument, answer models.StudentAnswer, attempts int, raw map[string]any) (*SubmitResult, error) {
	if doc.MaxAttempts > 0 && attempts >= doc.MaxAttempts {
		return nil, ErrAttemptsExhausted
	}

	current, err := ComputeScore(doc, answer)
	if err != nil {
		return nil, err
	}
	if current.Correct != nil && *current.Correct {
		return nil, ErrAlreadyCorrect
	}

	validated, err := Validate(doc, raw)
	if err != nil {
		return nil, err
	}

	attempts++
	view, err := e.Project(doc, validated, attempts)
	if err != nil {
		return nil, err
	}
	score, err := ComputeScore(doc, validated)
	if err != nil {
		return nil, err
	}

	return &SubmitResult{
		Answer:   validated,
		Attempts: attempts,
		Score:    score,
		View:     view,
	}, nil
}
