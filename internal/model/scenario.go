// Package model defines data structures for the language chat platform.
package model

// EventType tags one scripted step in a scenario.
type EventType string

const (
	EventTeacherInitialPrompt EventType = "teacher_initial_prompt"
	EventTeacherGuidance      EventType = "teacher_guidance_and_role_setup"
	EventTeacherFinalPrompt   EventType = "teacher_final_prompt"
	EventRolePlayAlex         EventType = "role_play_prompt_alex"
	EventRolePlayStacy        EventType = "role_play_prompt_stacy"
	EventStudentResponse      EventType = "student_response_expectation"
	EventTeacherFeedback      EventType = "teacher_feedback"
)

// TeacherPersona describes the voice used for generated feedback.
type TeacherPersona struct {
	Name string `json:"name"`
	Tone string `json:"tone"`
}

// Event is one scripted step in a scenario. EventID is expected to equal
// the event's position in the scenario's event list.
type Event struct {
	EventID         int       `json:"event_id"`
	Type            EventType `json:"type"`
	Text            string    `json:"text,omitempty"`
	TextTemplate    string    `json:"text_template,omitempty"`
	Instruction     string    `json:"instruction,omitempty"`
	ExpectingInput  bool      `json:"expecting_input"`
	EvaluationFocus []string  `json:"evaluation_focus,omitempty"`
}

// Scenario is an immutable, named script of conversation events plus
// default variable bindings and persona metadata.
type Scenario struct {
	ID        string         `json:"scenario_id"`
	Name      string         `json:"scenario_name"`
	Persona   TeacherPersona `json:"teacher_persona"`
	Variables map[string]any `json:"variables"`
	Events    []Event        `json:"conversation_events"`
}

// InitialVariables returns an independent copy of the scenario's declared
// variable bindings.
func (s *Scenario) InitialVariables() map[string]any {
	vars := make(map[string]any, len(s.Variables))
	for k, v := range s.Variables {
		vars[k] = v
	}
	return vars
}

// EventByID returns the event with the declared identifier, or nil.
func (s *Scenario) EventByID(eventID int) *Event {
	for i := range s.Events {
		if s.Events[i].EventID == eventID {
			return &s.Events[i]
		}
	}
	return nil
}
