package model

import (
	"fmt"
	"strings"
	"time"
)

// Prompts returned when no scenario event can be rendered.
const (
	PromptNoScenario = "No scenario loaded. Please load a scenario first."
	PromptComplete   = "Conversation completed! Great job!"
	PromptContinue   = "Continue the conversation..."
	PromptTryAgain   = "Please try again."
	PromptAllDone    = "Great job completing the scenario!"
	PromptReload     = "Please reload the scenario."
	PromptLoadFirst  = "Please load a scenario first."
)

// ConversationState is the minimal serializable per-session state. It holds
// a back-reference to the scenario by identifier only; scenario data is
// re-resolved from the store, never embedded.
type ConversationState struct {
	ScenarioID string         `json:"scenario_name"`
	EventIndex int            `json:"current_event_index"`
	Variables  map[string]any `json:"variables"`
	Attempts   int            `json:"attempts"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewConversationState returns an empty state with no scenario loaded.
func NewConversationState() *ConversationState {
	return &ConversationState{
		Variables: make(map[string]any),
		CreatedAt: time.Now().UTC(),
	}
}

// Initialize starts the given scenario from the beginning, copying its
// declared variable bindings.
func (s *ConversationState) Initialize(scn *Scenario) {
	s.ScenarioID = scn.ID
	s.EventIndex = 0
	s.Attempts = 0
	s.Variables = scn.InitialVariables()
}

// Reset restores the initial variables, index, and attempt counter while
// keeping the scenario identifier.
func (s *ConversationState) Reset(scn *Scenario) {
	s.EventIndex = 0
	s.Attempts = 0
	s.Variables = scn.InitialVariables()
}

// CurrentEvent returns the event at the current index, or nil when the
// conversation is complete.
func (s *ConversationState) CurrentEvent(scn *Scenario) *Event {
	if s.EventIndex >= len(scn.Events) {
		return nil
	}
	return &scn.Events[s.EventIndex]
}

// AdvanceToNext moves to the next event and resets the attempt counter.
// At the terminal condition (index at or past the end of the event list)
// it is a no-op; the index never exceeds the event count.
func (s *ConversationState) AdvanceToNext(scn *Scenario) {
	if s.EventIndex >= len(scn.Events) {
		return
	}
	s.EventIndex++
	s.Attempts = 0
}

// AdvanceToEvent jumps to the event with the declared identifier. It
// reports whether a matching event was found; on no match the state is
// unchanged.
func (s *ConversationState) AdvanceToEvent(scn *Scenario, eventID int) bool {
	for i := range scn.Events {
		if scn.Events[i].EventID == eventID {
			s.EventIndex = i
			s.Attempts = 0
			return true
		}
	}
	return false
}

// IncrementAttempts records one rejected response for the current event.
func (s *ConversationState) IncrementAttempts() {
	s.Attempts++
}

// UpdateVariables overwrites bindings for keys that already exist in the
// state's variable set. Unknown keys are dropped; the scenario's declared
// variables are the ceiling.
func (s *ConversationState) UpdateVariables(partial map[string]any) {
	for k, v := range partial {
		if _, ok := s.Variables[k]; ok {
			s.Variables[k] = v
		}
	}
}

// ExpectsInput reports whether the current event expects student input.
func (s *ConversationState) ExpectsInput(scn *Scenario) bool {
	ev := s.CurrentEvent(scn)
	return ev != nil && ev.ExpectingInput
}

// Complete reports whether the event index has reached the end of the
// scenario's event list.
func (s *ConversationState) Complete(scn *Scenario) bool {
	return s.EventIndex >= len(scn.Events)
}

// RenderTemplate substitutes {variable_name} placeholders with the current
// bindings. Placeholders whose value is nil or absent are left untouched.
func (s *ConversationState) RenderTemplate(template string) string {
	result := template
	for name, value := range s.Variables {
		if value == nil {
			continue
		}
		result = strings.ReplaceAll(result, "{"+name+"}", fmt.Sprintf("%v", value))
	}
	return result
}

// CurrentPrompt renders the display text for the current event, dispatching
// on its type tag.
func (s *ConversationState) CurrentPrompt(scn *Scenario) string {
	ev := s.CurrentEvent(scn)
	if ev == nil {
		return PromptComplete
	}

	switch ev.Type {
	case EventTeacherInitialPrompt, EventTeacherGuidance, EventTeacherFinalPrompt:
		return ev.Text
	case EventRolePlayAlex, EventRolePlayStacy:
		template := ev.TextTemplate
		if template == "" {
			template = ev.Text
		}
		return s.RenderTemplate(template)
	case EventStudentResponse:
		return "Please respond: " + ev.Instruction
	case EventTeacherFeedback:
		if ev.Text != "" {
			return ev.Text
		}
		return ev.Instruction
	}
	return PromptContinue
}

// StateSummary is the shape returned by the state endpoint.
type StateSummary struct {
	ScenarioID string         `json:"scenario_name"`
	EventIndex int            `json:"current_event_index"`
	Variables  map[string]any `json:"variables"`
	Attempts   int            `json:"attempts"`
	IsComplete bool           `json:"is_complete"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Summary reports the observable state for the owning session.
func (s *ConversationState) Summary(scn *Scenario) StateSummary {
	complete := false
	if scn != nil {
		complete = s.Complete(scn)
	}
	return StateSummary{
		ScenarioID: s.ScenarioID,
		EventIndex: s.EventIndex,
		Variables:  s.Variables,
		Attempts:   s.Attempts,
		IsComplete: complete,
		CreatedAt:  s.CreatedAt,
	}
}
