package model

// TurnStatus tags the outcome of processing one student turn.
type TurnStatus string

const (
	// TurnNoScenario means no scenario is loaded for the session.
	TurnNoScenario TurnStatus = "no_scenario"
	// TurnComplete means the conversation already reached its end.
	TurnComplete TurnStatus = "complete"
	// TurnAccepted means the response was valid; state advanced.
	TurnAccepted TurnStatus = "success"
	// TurnRejected means the response was invalid; attempts incremented.
	TurnRejected TurnStatus = "needs_correction"
	// TurnAdvanced means the current event took no input; state advanced
	// without evaluation.
	TurnAdvanced TurnStatus = "continue"
)

// TurnResult is the structured outcome of one processed turn. Which fields
// are populated depends on Status.
type TurnResult struct {
	Status TurnStatus `json:"status"`

	// Accepted and Rejected turns.
	Feedback string `json:"feedback,omitempty"`

	// Every arm renders a prompt for the student's next step.
	NextPrompt string `json:"next_prompt"`

	// Accepted turns only.
	VariablesUpdated map[string]any `json:"variables_updated,omitempty"`

	// Rejected turns only.
	CorrectedResponse string `json:"corrected_response,omitempty"`
	AttemptCount      int    `json:"attempt_count,omitempty"`

	// Terminal and error arms.
	Message string `json:"message,omitempty"`
}
