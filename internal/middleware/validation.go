package middleware

import (
	"errors"
	"unicode/utf8"
)

// ValidateStudentResponse validates a submitted student response.
func ValidateStudentResponse(content string) error {
	if len(content) == 0 {
		return errors.New("student_response cannot be empty")
	}
	if len(content) > 10000 {
		return errors.New("student_response exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("student_response must be valid UTF-8")
	}
	return nil
}

// ValidateScenarioID validates a scenario identifier. Identifiers name
// files on disk, so path separators and dots are rejected outright.
func ValidateScenarioID(id string) error {
	if len(id) == 0 {
		return errors.New("scenario_name cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("scenario_name exceeds maximum length")
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return errors.New("scenario_name contains invalid characters")
		}
	}
	return nil
}
