package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/cenizastevie/aws-language-chat-buddy/internal/llm"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/model"
	"github.com/cenizastevie/aws-language-chat-buddy/pkg/logger"
	"github.com/cenizastevie/aws-language-chat-buddy/pkg/metrics"
)

// FeedbackGenerator produces persona-styled natural-language feedback for a
// verdict. The model's output is presentation text and passes through
// verbatim, unparsed.
type FeedbackGenerator struct {
	client    llm.Client
	model     string
	maxTokens int
	logger    *logger.Logger
}

// NewFeedbackGenerator creates a new feedback generator.
func NewFeedbackGenerator(client llm.Client, modelName string, maxTokens int, log *logger.Logger) *FeedbackGenerator {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &FeedbackGenerator{
		client:    client,
		model:     modelName,
		maxTokens: maxTokens,
		logger:    log,
	}
}

// Generate builds a persona-styled feedback prompt for the verdict and
// returns the model's raw text output. On a capability failure it falls
// back to the verdict's own explanation so the turn still completes.
func (g *FeedbackGenerator) Generate(ctx context.Context, verdict *model.Verdict, persona model.TeacherPersona) string {
	prompt := buildFeedbackPrompt(verdict, persona)

	resp, err := g.client.Complete(ctx, &llm.CompletionRequest{
		Model:       g.model,
		Prompt:      prompt,
		MaxTokens:   g.maxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		metrics.RecordLLMCall(g.client.Name(), "feedback", "error", 0, 0, 0)
		g.logger.Error("feedback generation failed", zap.Error(err))
		if verdict.Feedback != "" {
			return verdict.Feedback
		}
		return apologyFeedback
	}
	metrics.RecordLLMCall(g.client.Name(), "feedback", "success",
		float64(resp.LatencyMs)/1000.0, resp.TokensIn, resp.TokensOut)

	return resp.Content
}

func buildFeedbackPrompt(verdict *model.Verdict, persona model.TeacherPersona) string {
	name := persona.Name
	if name == "" {
		name = "a teacher"
	}
	tone := persona.Tone
	if tone == "" {
		tone = "friendly and encouraging"
	}

	var sb strings.Builder
	sb.WriteString("You are " + name + " with a " + tone + " personality.\n")

	switch verdict.Type {
	case model.ResponseCorrect:
		sb.WriteString("The student gave a correct response. Provide positive, encouraging feedback.\n")
		sb.WriteString("Keep it brief and enthusiastic.\n")
	case model.ResponseGrammarError:
		sb.WriteString("The student made a grammar error.\n\n")
		sb.WriteString("Corrected version: \"" + verdict.CorrectedResponse + "\"\n\n")
		sb.WriteString("Provide gentle correction with encouragement. Say the corrected version and ask them to try again.\n")
	default:
		sb.WriteString("The student's response was incomplete or unclear.\n\n")
		sb.WriteString("Provide gentle guidance and ask them to try again with more specific direction.\n")
	}

	return sb.String()
}
