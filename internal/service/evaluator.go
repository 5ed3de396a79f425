// Package service provides the conversation driver, response evaluator,
// and feedback generator for the language chat platform.
package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/cenizastevie/aws-language-chat-buddy/internal/llm"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/model"
	"github.com/cenizastevie/aws-language-chat-buddy/pkg/logger"
	"github.com/cenizastevie/aws-language-chat-buddy/pkg/metrics"
)

const (
	fallbackExplanation = "Could not analyze response"
	apologyFeedback     = "Sorry, I couldn't understand your response. Please try again."
)

// grammarCheck is the JSON contract expected from the grammar-check call.
type grammarCheck struct {
	IsCorrect         bool   `json:"is_correct"`
	CorrectedResponse string `json:"corrected_response"`
	Explanation       string `json:"explanation"`
	Rating            string `json:"rating"`
}

// extraction is the JSON contract expected from the variable-extraction call.
type extraction struct {
	ExtractedInfo map[string]any `json:"extracted_info"`
	Confidence    string         `json:"confidence"`
	IsComplete    bool           `json:"is_complete"`
}

// Evaluator scores free-text student responses against the current event's
// evaluation criteria using two independent LLM calls: a grammar check and,
// for input events, a variable extraction. It never returns an error; any
// capability failure degrades to an invalid verdict so the turn completes.
type Evaluator struct {
	client    llm.Client
	model     string
	maxTokens int
	logger    *logger.Logger
}

// NewEvaluator creates a new response evaluator.
func NewEvaluator(client llm.Client, modelName string, maxTokens int, log *logger.Logger) *Evaluator {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &Evaluator{
		client:    client,
		model:     modelName,
		maxTokens: maxTokens,
		logger:    log,
	}
}

// Evaluate scores the student's response against the given event.
func (e *Evaluator) Evaluate(ctx context.Context, studentResponse string, event *model.Event) *model.Verdict {
	grammarPrompt := buildGrammarCheckPrompt(studentResponse, event.EvaluationFocus)
	grammarRaw, err := e.invoke(ctx, "grammar_check", grammarPrompt)
	if err != nil {
		e.logger.Error("grammar check call failed", zap.Error(err))
		return e.degradedVerdict()
	}

	var grammar grammarCheck
	if err := json.Unmarshal(extractJSON(grammarRaw), &grammar); err != nil {
		e.logger.Error("failed to parse grammar check result",
			zap.String("raw", grammarRaw), zap.Error(err))
		grammar = grammarCheck{
			IsCorrect:         false,
			CorrectedResponse: studentResponse,
			Explanation:       fallbackExplanation,
			Rating:            "INVALID",
		}
	}

	extractedVariables := map[string]any{}
	if event.ExpectingInput {
		extractionPrompt := buildVariableExtractionPrompt(studentResponse, event.Instruction)
		extractionRaw, err := e.invoke(ctx, "extraction", extractionPrompt)
		if err != nil {
			e.logger.Error("extraction call failed", zap.Error(err))
			return e.degradedVerdict()
		}

		var ext extraction
		if err := json.Unmarshal(extractJSON(extractionRaw), &ext); err != nil {
			// Extraction parse failures are silent: logged, bindings
			// stay empty, the grammar rating is not downgraded.
			e.logger.Error("failed to parse extraction result",
				zap.String("raw", extractionRaw), zap.Error(err))
		} else if ext.ExtractedInfo != nil {
			extractedVariables = ext.ExtractedInfo
		}
	}

	responseType, ok := model.ParseResponseType(grammar.Rating)
	if !ok {
		e.logger.Warn("unexpected rating from grammar check",
			zap.String("rating", grammar.Rating))
	}
	metrics.EvaluationsTotal.WithLabelValues(string(responseType)).Inc()

	return &model.Verdict{
		Type:               responseType,
		IsValid:            model.Validity(grammar.IsCorrect, responseType),
		ExtractedVariables: extractedVariables,
		Feedback:           grammar.Explanation,
		CorrectedResponse:  grammar.CorrectedResponse,
	}
}

// degradedVerdict is returned when a capability call fails outright.
func (e *Evaluator) degradedVerdict() *model.Verdict {
	metrics.EvaluationsTotal.WithLabelValues(string(model.ResponseInvalid)).Inc()
	return &model.Verdict{
		Type:               model.ResponseInvalid,
		IsValid:            false,
		ExtractedVariables: map[string]any{},
		Feedback:           apologyFeedback,
	}
}

func (e *Evaluator) invoke(ctx context.Context, purpose, prompt string) (string, error) {
	resp, err := e.client.Complete(ctx, &llm.CompletionRequest{
		Model:       e.model,
		Prompt:      prompt,
		MaxTokens:   e.maxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		metrics.RecordLLMCall(e.client.Name(), purpose, "error", 0, 0, 0)
		return "", err
	}
	metrics.RecordLLMCall(e.client.Name(), purpose, "success",
		float64(resp.LatencyMs)/1000.0, resp.TokensIn, resp.TokensOut)
	return resp.Content, nil
}

func buildGrammarCheckPrompt(studentResponse string, evaluationFocus []string) string {
	focusAreas := strings.Join(evaluationFocus, ", ")

	var sb strings.Builder
	sb.WriteString("You are an English language teacher helping a student learn English.\n\n")
	sb.WriteString("Student's response: \"" + studentResponse + "\"\n\n")
	sb.WriteString("Focus areas for this exercise: " + focusAreas + "\n\n")
	sb.WriteString("Please analyze the student's response and provide:\n")
	sb.WriteString("1. Is the grammar correct? (Yes/No)\n")
	sb.WriteString("2. If incorrect, provide the corrected version\n")
	sb.WriteString("3. Brief explanation of any errors (keep it simple and encouraging)\n")
	sb.WriteString("4. Rate the response as: CORRECT, GRAMMAR_ERROR, INCOMPLETE, or INVALID\n\n")
	sb.WriteString("Format your response as JSON:\n")
	sb.WriteString(`{"is_correct": boolean, "corrected_response": "corrected version if needed", "explanation": "brief explanation", "rating": "CORRECT|GRAMMAR_ERROR|INCOMPLETE|INVALID"}`)
	sb.WriteString("\n")

	return sb.String()
}

func buildVariableExtractionPrompt(studentResponse, instruction string) string {
	var sb strings.Builder
	sb.WriteString("You are helping extract information from a student's response in a language learning exercise.\n\n")
	sb.WriteString("Student's response: \"" + studentResponse + "\"\n")
	sb.WriteString("What we're looking for: " + instruction + "\n\n")
	sb.WriteString("Please extract any relevant information and return it as JSON:\n")
	sb.WriteString(`{"extracted_info": {"key": "value pairs of extracted information"}, "confidence": "high|medium|low", "is_complete": boolean}`)
	sb.WriteString("\n")

	return sb.String()
}

// extractJSON trims any prose the model wrapped around its JSON object,
// keeping the outermost brace-delimited span.
func extractJSON(raw string) []byte {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return []byte(raw)
	}
	return []byte(raw[start : end+1])
}
