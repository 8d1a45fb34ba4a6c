package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator   *validator.Validate
	questionValidator *QuestionValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		questionValidator: NewQuestionValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate performs struct validation and converts failures to ValidationErrors
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// ValidateSurvey validates a survey definition: struct tags first, then the per-type rules
func (v *Validator) ValidateSurvey(s *models.Survey) error {
	if err := v.Validate(s); err != nil {
		return err
	}
	if errs := v.questionValidator.ValidateSurvey(s); len(errs) > 0 {
		return errs
	}
	return nil
}

// Question returns the question validator
func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

var surveyTypePattern = regexp.MustCompile(`^[a-z][a-z0-9-]{0,99}$`)

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("section_type", validateSectionType)
	validate.RegisterValidation("activity_kind", validateActivityKind)
	validate.RegisterValidation("survey_type", validateSurveyType)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validation functions
func validateQuestionType(fl validator.FieldLevel) bool {
	validTypes := []models.QuestionType{
		models.QuestionRadio,
		models.QuestionCheckbox,
		models.QuestionScale,
		models.QuestionScaleGrid,
		models.QuestionText,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func validateSectionType(fl validator.FieldLevel) bool {
	switch models.SectionType(fl.Field().String()) {
	case models.SectionInstructions, models.SectionQuestions:
		return true
	}
	return false
}

func validateActivityKind(fl validator.FieldLevel) bool {
	validKinds := []models.ActivityKind{
		models.ActivityPointer,
		models.ActivityKeyboard,
		models.ActivityScroll,
		models.ActivityTouch,
	}

	value := fl.Field().String()
	for _, kind := range validKinds {
		if string(kind) == value {
			return true
		}
	}
	return false
}

// survey types end up in cache keys and file names
func validateSurveyType(fl validator.FieldLevel) bool {
	return surveyTypePattern.MatchString(fl.Field().String())
}
