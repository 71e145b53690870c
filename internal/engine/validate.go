package engine

import (
	"strconv"
	"strings"

	"github.com/open-courseware/question-engine/internal/models"
)

// Validate checks a raw client submission against the document's shape
// constraints and returns the cleaned answer to store. It is a pure function:
// failures carry a *FieldError (client-correctable) or ErrCorruptQuestion and
// never mutate anything.
func Validate(doc *models.QuestionDocument, raw map[string]any) (models.StudentAnswer, error) {
	if err := checkDocument(doc); err != nil {
		return models.StudentAnswer{}, err
	}
	switch doc.Type {
	case models.TypeOptionResponse:
		return validateOptionAnswer(doc.Option, raw)
	case models.TypeStringResponse:
		return validateStringAnswer(raw)
	case models.TypeChoiceResponse:
		return validateChoiceAnswer(doc.Choice, raw)
	default:
		return models.StudentAnswer{}, ErrCorruptQuestion
	}
}

// checkDocument verifies the type tag has its matching payload. Stored
// documents bypass import validation when edited in place, so the tag alone
// cannot be trusted.
func checkDocument(doc *models.QuestionDocument) error {
	switch doc.Type {
	case models.TypeStringResponse:
		if doc.String == nil {
			return ErrCorruptQuestion
		}
	case models.TypeOptionResponse:
		if doc.Option == nil {
			return ErrCorruptQuestion
		}
	case models.TypeChoiceResponse:
		if doc.Choice == nil {
			return ErrCorruptQuestion
		}
	default:
		return ErrCorruptQuestion
	}
	return nil
}

func validateOptionAnswer(payload *models.OptionResponse, raw map[string]any) (models.StudentAnswer, error) {
	value, ok := raw["index"]
	if !ok {
		// Legacy submissions from the Open edX serialization name the
		// selected option by its content text instead of its index.
		if resp, ok := raw["response"]; ok {
			if text, ok := resp.(string); ok {
				return resolveOptionContent(payload, text), nil
			}
		}
		return models.StudentAnswer{}, newFieldError("index", "field missing")
	}

	index, ok := toInt(value)
	if !ok {
		return models.StudentAnswer{}, newFieldError("index", "field must be an integer")
	}
	if index < 0 || index >= len(payload.Options) {
		return models.StudentAnswer{}, newFieldError("index", "field must be >= 0 and < number of options")
	}
	return models.StudentAnswer{Index: &index}, nil
}

// resolveOptionContent maps legacy content-text answers onto an index by
// linear scan; the first match wins. Unmatched content means no selection,
// not an error.
func resolveOptionContent(payload *models.OptionResponse, text string) models.StudentAnswer {
	for i, opt := range payload.Options {
		if opt.Content == text {
			index := i
			return models.StudentAnswer{Index: &index}
		}
	}
	return models.StudentAnswer{}
}

func validateStringAnswer(raw map[string]any) (models.StudentAnswer, error) {
	value, ok := raw["response"]
	if !ok {
		return models.StudentAnswer{}, newFieldError("response", "field missing")
	}
	response, ok := value.(string)
	if !ok {
		return models.StudentAnswer{}, newFieldError("response", "field must be string")
	}
	return models.StudentAnswer{Response: &response}, nil
}

func validateChoiceAnswer(payload *models.ChoiceResponse, raw map[string]any) (models.StudentAnswer, error) {
	value, ok := raw["selected"]
	if !ok {
		return models.StudentAnswer{}, newFieldError("selected", "field missing")
	}
	list, ok := value.([]any)
	if !ok {
		return models.StudentAnswer{}, newFieldError("selected", "field must be list")
	}

	selected := make([]int, 0, len(list))
	for _, item := range list {
		i, ok := toInt(item)
		if !ok {
			return models.StudentAnswer{}, newFieldError("selected", "field list values must be integers")
		}
		if i < 0 || i >= len(payload.Choices) {
			return models.StudentAnswer{}, newFieldError("selected",
				"field list values must be an index >= 0 and index < number of choices")
		}
		selected = append(selected, i)
	}
	return models.StudentAnswer{Selected: selected}, nil
}

// toInt accepts the integer encodings a JSON body can carry: numbers
// (float64 after unmarshal), numeric strings, and native ints from internal
// callers. Fractional numbers are rejected.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
