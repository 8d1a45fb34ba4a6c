package errors

import (
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestValidationError(t *testing.T) {
	// Test NewValidationError
	err := NewValidationError("test_field", "test message", "test_value")

	if err.Field != "test_field" {
		t.Errorf("Expected field to be 'test_field', got '%s'", err.Field)
	}

	if err.Message != "test message" {
		t.Errorf("Expected message to be 'test message', got '%s'", err.Message)
	}

	if err.Value != "test_value" {
		t.Errorf("Expected value to be 'test_value', got '%v'", err.Value)
	}

	// Test Error method
	expected := "validation error on field 'test_field': test message"
	if err.Error() != expected {
		t.Errorf("Expected error message to be '%s', got '%s'", expected, err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	// Test empty ValidationErrors
	var errs ValidationErrors
	if errs.Error() != "validation failed" {
		t.Errorf("Expected 'validation failed' for empty errors, got '%s'", errs.Error())
	}

	// Test single ValidationError
	errs = append(errs, *NewValidationError("field1", "message1", nil))
	expected := "validation failed: field1 message1"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for single error, got '%s'", expected, errs.Error())
	}

	// Test multiple ValidationErrors
	errs = append(errs, *NewValidationError("field2", "message2", nil))
	expected = "validation failed: 2 field errors"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for multiple errors, got '%s'", expected, errs.Error())
	}
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("test_field", "test message", "required", "test_value")

	if err.Rule != "required" {
		t.Errorf("Expected rule to be 'required', got '%s'", err.Rule)
	}

	if err.Field != "test_field" {
		t.Errorf("Expected field to be 'test_field', got '%s'", err.Field)
	}
}

type definitionInput struct {
	Type     string `validate:"survey_type"`
	Question string `validate:"question_type"`
	Section  string `validate:"section_type"`
	Activity string `validate:"activity_kind"`
	Title    string `validate:"required"`
}

func TestToValidationErrors_SurveyRules(t *testing.T) {
	v := validator.New()
	for _, tag := range []string{"survey_type", "question_type", "section_type", "activity_kind"} {
		if err := v.RegisterValidation(tag, func(validator.FieldLevel) bool { return false }); err != nil {
			t.Fatalf("failed to register %s: %v", tag, err)
		}
	}

	errs := ToValidationErrors(v.Struct(definitionInput{Type: "Course Feedback", Question: "slider", Section: "intro", Activity: "blink"}))
	if len(errs) != 5 {
		t.Fatalf("Expected 5 validation errors, got %d: %v", len(errs), errs)
	}

	expected := map[string]string{
		"Type":     "must be a lowercase slug of letters, digits and '-'",
		"Question": "must be a valid question type (radio, checkbox, scale, scale-grid, text)",
		"Section":  "must be a valid section type (instructions, questions)",
		"Activity": "must be a valid activity kind (pointer, keyboard, scroll, touch)",
		"Title":    "is required",
	}
	for _, e := range errs {
		want, ok := expected[e.Field]
		if !ok {
			t.Errorf("Unexpected field '%s'", e.Field)
			continue
		}
		if e.Message != want {
			t.Errorf("Expected message for '%s' to be '%s', got '%s'", e.Field, want, e.Message)
		}
	}

	if errs[0].Rule != "survey_type" || errs[0].Value != "Course Feedback" {
		t.Errorf("Expected rule 'survey_type' with the rejected value, got '%s' / '%v'", errs[0].Rule, errs[0].Value)
	}
}

func TestToValidationErrors_OtherErrors(t *testing.T) {
	if errs := ToValidationErrors(fmt.Errorf("boom")); errs != nil {
		t.Errorf("Expected nil for a non-validator error, got %v", errs)
	}
	if errs := ToValidationErrors(nil); errs != nil {
		t.Errorf("Expected nil for no error, got %v", errs)
	}
}
