package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/open-courseware/question-engine/internal/errors"
	"github.com/open-courseware/question-engine/internal/models"
)

// Validator wraps struct-tag validation plus the question document checks
// that tags cannot express.
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new validator instance with the custom rules registered.
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{structValidator: structValidator}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// ValidateDocument checks the cross-field consistency of a parsed question
// document: the type tag must select exactly the matching payload, and that
// payload must be answerable.
func (v *Validator) ValidateDocument(doc *models.QuestionDocument) ValidationErrors {
	var errs ValidationErrors

	if doc.MaxAttempts < 0 {
		errs = append(errs, *apperrors.NewValidationError("max_attempts", "must be >= 0", doc.MaxAttempts))
	}
	if doc.Weight < 0 {
		errs = append(errs, *apperrors.NewValidationError("weight", "must be >= 0", doc.Weight))
	}

	switch doc.Type {
	case models.TypeStringResponse:
		if doc.String == nil {
			errs = append(errs, *apperrors.NewValidationError("stringresponse", "payload missing", nil))
		} else if len(doc.String.Answers) == 0 {
			errs = append(errs, *apperrors.NewValidationError("answers", "at least one accepted answer is required", nil))
		}
	case models.TypeOptionResponse:
		if doc.Option == nil {
			errs = append(errs, *apperrors.NewValidationError("optionresponse", "payload missing", nil))
		} else if len(doc.Option.Options) == 0 {
			errs = append(errs, *apperrors.NewValidationError("options", "at least one option is required", nil))
		}
	case models.TypeChoiceResponse:
		if doc.Choice == nil {
			errs = append(errs, *apperrors.NewValidationError("choiceresponse", "payload missing", nil))
		} else if len(doc.Choice.Choices) == 0 {
			errs = append(errs, *apperrors.NewValidationError("choices", "at least one choice is required", nil))
		}
	default:
		errs = append(errs, *apperrors.NewValidationError("type",
			"must be a valid question type (stringresponse, optionresponse, choiceresponse)", string(doc.Type)))
	}

	return errs
}

// Validate performs complete validation (struct tags + document rules)
func (v *Validator) Validate(doc *models.QuestionDocument) error {
	if err := v.ValidateStruct(doc); err != nil {
		return ToValidationErrors(err)
	}
	if errs := v.ValidateDocument(doc); len(errs) > 0 {
		return errs
	}
	return nil
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("display_style", validateDisplayStyle)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuestionType(fl validator.FieldLevel) bool {
	validTypes := []models.QuestionType{
		models.TypeStringResponse,
		models.TypeOptionResponse,
		models.TypeChoiceResponse,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func validateDisplayStyle(fl validator.FieldLevel) bool {
	validStyles := []models.DisplayStyle{
		models.DisplayRadio,
		models.DisplayDropdown,
	}

	value := fl.Field().String()
	if value == "" {
		return true
	}
	for _, validStyle := range validStyles {
		if string(validStyle) == value {
			return true
		}
	}
	return false
}
