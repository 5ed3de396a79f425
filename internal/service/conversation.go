package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cenizastevie/aws-language-chat-buddy/internal/model"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/scenario"
	"github.com/cenizastevie/aws-language-chat-buddy/pkg/logger"
	"github.com/cenizastevie/aws-language-chat-buddy/pkg/metrics"
)

// ConversationService drives a scripted conversation turn by turn. Per
// processed turn it applies exactly one state mutation group: variable
// merge plus advance on an accepted turn, an attempt increment on a
// rejected one, or a bare advance for non-input events.
type ConversationService struct {
	scenarios *scenario.Store
	evaluator *Evaluator
	feedback  *FeedbackGenerator
	logger    *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(
	scenarios *scenario.Store,
	evaluator *Evaluator,
	feedback *FeedbackGenerator,
	log *logger.Logger,
) *ConversationService {
	return &ConversationService{
		scenarios: scenarios,
		evaluator: evaluator,
		feedback:  feedback,
		logger:    log,
	}
}

// LoadScenario initializes the state for the named scenario. The event
// sequence is validated as a soft invariant: a mismatch is logged and does
// not block initialization.
func (s *ConversationService) LoadScenario(ctx context.Context, state *model.ConversationState, scenarioID string) error {
	scn, err := s.scenarios.Load(scenarioID)
	if err != nil {
		metrics.ScenarioLoadsTotal.WithLabelValues(scenarioID, "error").Inc()
		return fmt.Errorf("initialize scenario: %w", err)
	}

	if err := scenario.ValidateSequence(scn); err != nil {
		s.logger.Warn("event sequence validation failed",
			zap.String("scenario_id", scenarioID), zap.Error(err))
	}

	state.Initialize(scn)
	metrics.ScenarioLoadsTotal.WithLabelValues(scenarioID, "success").Inc()
	s.logger.Info("initialized scenario", zap.String("scenario_id", scenarioID))
	return nil
}

// CurrentPrompt renders the display text for the session's current event.
func (s *ConversationService) CurrentPrompt(state *model.ConversationState) string {
	scn, ok := s.loadCurrent(state)
	if !ok {
		return model.PromptNoScenario
	}
	return state.CurrentPrompt(scn)
}

// ProcessResponse evaluates one student turn and advances, retries, or
// reports completion. State mutations are all-or-nothing: callers persist
// the state only after this returns.
func (s *ConversationService) ProcessResponse(ctx context.Context, state *model.ConversationState, studentResponse string) *model.TurnResult {
	if state.ScenarioID == "" {
		return &model.TurnResult{
			Status:     model.TurnNoScenario,
			Message:    "No scenario loaded",
			NextPrompt: model.PromptLoadFirst,
		}
	}

	scn, ok := s.loadCurrent(state)
	if !ok {
		return &model.TurnResult{
			Status:     model.TurnNoScenario,
			Message:    "No current event",
			NextPrompt: model.PromptReload,
		}
	}

	if state.Complete(scn) {
		metrics.TurnsTotal.WithLabelValues(scn.ID, string(model.TurnComplete)).Inc()
		return &model.TurnResult{
			Status:     model.TurnComplete,
			Message:    "Conversation completed",
			NextPrompt: model.PromptAllDone,
		}
	}

	event := state.CurrentEvent(scn)

	// Non-input events advance unconditionally, with no evaluation.
	if !event.ExpectingInput {
		state.AdvanceToNext(scn)
		metrics.TurnsTotal.WithLabelValues(scn.ID, string(model.TurnAdvanced)).Inc()
		return &model.TurnResult{
			Status:     model.TurnAdvanced,
			NextPrompt: state.CurrentPrompt(scn),
		}
	}

	verdict := s.evaluator.Evaluate(ctx, studentResponse, event)

	if verdict.IsValid {
		state.UpdateVariables(verdict.ExtractedVariables)
		state.AdvanceToNext(scn)

		feedback := s.feedback.Generate(ctx, verdict, scn.Persona)
		metrics.TurnsTotal.WithLabelValues(scn.ID, string(model.TurnAccepted)).Inc()
		return &model.TurnResult{
			Status:           model.TurnAccepted,
			Feedback:         feedback,
			NextPrompt:       state.CurrentPrompt(scn),
			VariablesUpdated: verdict.ExtractedVariables,
		}
	}

	state.IncrementAttempts()

	feedback := s.feedback.Generate(ctx, verdict, scn.Persona)
	metrics.TurnsTotal.WithLabelValues(scn.ID, string(model.TurnRejected)).Inc()
	return &model.TurnResult{
		Status:            model.TurnRejected,
		Feedback:          feedback,
		CorrectedResponse: verdict.CorrectedResponse,
		NextPrompt:        model.PromptTryAgain,
		AttemptCount:      state.Attempts,
	}
}

// Reset restores the session's conversation to the beginning of its
// scenario.
func (s *ConversationService) Reset(state *model.ConversationState) error {
	if state.ScenarioID == "" {
		return nil
	}
	scn, err := s.scenarios.Load(state.ScenarioID)
	if err != nil {
		return fmt.Errorf("reset conversation: %w", err)
	}
	state.Reset(scn)
	return nil
}

// StateSummary reports the observable session state.
func (s *ConversationService) StateSummary(state *model.ConversationState) model.StateSummary {
	scn, _ := s.loadCurrent(state)
	return state.Summary(scn)
}

// JumpToEvent moves the conversation to the event with the declared
// identifier, reporting whether it exists.
func (s *ConversationService) JumpToEvent(state *model.ConversationState, eventID int) bool {
	scn, ok := s.loadCurrent(state)
	if !ok {
		return false
	}
	return state.AdvanceToEvent(scn, eventID)
}

func (s *ConversationService) loadCurrent(state *model.ConversationState) (*model.Scenario, bool) {
	if state.ScenarioID == "" {
		return nil, false
	}
	scn, err := s.scenarios.Load(state.ScenarioID)
	if err != nil {
		s.logger.Error("failed to load scenario",
			zap.String("scenario_id", state.ScenarioID), zap.Error(err))
		return nil, false
	}
	return scn, true
}
