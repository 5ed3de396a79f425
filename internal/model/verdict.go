package model

import "strings"

// ResponseType classifies one evaluated student utterance.
type ResponseType string

const (
	ResponseCorrect      ResponseType = "correct"
	ResponseGrammarError ResponseType = "grammar_error"
	ResponseIncomplete   ResponseType = "incomplete"
	ResponseInvalid      ResponseType = "invalid"
)

// ParseResponseType maps a model-reported rating onto the closed response
// type set. Unrecognized ratings come from untrusted model output and map
// to (ResponseInvalid, false) rather than becoming new variants.
func ParseResponseType(rating string) (ResponseType, bool) {
	switch ResponseType(strings.ToLower(strings.TrimSpace(rating))) {
	case ResponseCorrect:
		return ResponseCorrect, true
	case ResponseGrammarError:
		return ResponseGrammarError, true
	case ResponseIncomplete:
		return ResponseIncomplete, true
	case ResponseInvalid:
		return ResponseInvalid, true
	}
	return ResponseInvalid, false
}

// Verdict is the structured outcome of evaluating one student utterance.
type Verdict struct {
	Type               ResponseType   `json:"response_type"`
	IsValid            bool           `json:"is_valid"`
	ExtractedVariables map[string]any `json:"extracted_variables"`
	Feedback           string         `json:"feedback"`
	CorrectedResponse  string         `json:"corrected_response,omitempty"`
}

// Validity is the acceptance rule for a grammar-check result: the model
// must both report the grammar correct and rate the response CORRECT.
// A correct-but-differently-rated response is rejected.
func Validity(isCorrect bool, rt ResponseType) bool {
	return isCorrect && rt == ResponseCorrect
}
