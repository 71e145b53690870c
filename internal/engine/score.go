package engine

import (
	"strings"

	"github.com/open-courseware/question-engine/internal/models"
)

// Score is the correctness outcome for one question. Correct is nil until
// the student has submitted an answer. Scoring is binary: Earned is either 0
// or Possible, never a fraction.
type Score struct {
	Correct  *bool   `json:"correct"`
	Earned   float64 `json:"earned"`
	Possible float64 `json:"possible"`
}

// ComputeScore evaluates the stored answer against the document.
func ComputeScore(doc *models.QuestionDocument, answer models.StudentAnswer) (Score, error) {
	if err := checkDocument(doc); err != nil {
		return Score{}, err
	}

	score := Score{Possible: doc.Possible()}

	if answer.IsEmpty() {
		return score, nil
	}

	var correct bool
	switch doc.Type {
	case models.TypeOptionResponse:
		correct = optionCorrect(doc.Option, answer)
	case models.TypeStringResponse:
		correct = stringCorrect(doc.String, answer)
	case models.TypeChoiceResponse:
		correct = choiceCorrect(doc.Choice, answer)
	default:
		return Score{}, ErrCorruptQuestion
	}

	score.Correct = &correct
	if correct {
		score.Earned = score.Possible
	}
	return score, nil
}

func optionCorrect(payload *models.OptionResponse, answer models.StudentAnswer) bool {
	if answer.Index == nil {
		return false
	}
	index := *answer.Index
	// The option list may have shrunk since the answer was stored; a stale
	// index counts as incorrect, not as an error.
	if index < 0 || index >= len(payload.Options) {
		return false
	}
	return payload.Options[index].Correct
}

func stringCorrect(payload *models.StringResponse, answer models.StudentAnswer) bool {
	if answer.Response == nil {
		return false
	}
	response := strings.TrimSpace(*answer.Response)
	for _, accepted := range payload.Answers {
		if strings.EqualFold(response, strings.TrimSpace(accepted)) {
			return true
		}
	}
	return false
}

// choiceCorrect requires an exact match of the full correct subset: every
// correct choice selected and no incorrect choice selected.
func choiceCorrect(payload *models.ChoiceResponse, answer models.StudentAnswer) bool {
	if answer.Selected == nil {
		return false
	}
	selected := make(map[int]bool, len(answer.Selected))
	for _, i := range answer.Selected {
		selected[i] = true
	}
	for i, choice := range payload.Choices {
		if choice.Correct != selected[i] {
			return false
		}
	}
	return true
}
