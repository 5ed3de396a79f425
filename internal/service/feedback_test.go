package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cenizastevie/aws-language-chat-buddy/internal/model"
	"github.com/cenizastevie/aws-language-chat-buddy/pkg/logger"
)

var testPersona = model.TeacherPersona{Name: "Ms. Rivera", Tone: "friendly and encouraging"}

func TestBuildFeedbackPromptCorrect(t *testing.T) {
	verdict := &model.Verdict{Type: model.ResponseCorrect}
	prompt := buildFeedbackPrompt(verdict, testPersona)

	assert.Contains(t, prompt, "You are Ms. Rivera")
	assert.Contains(t, prompt, "friendly and encouraging")
	assert.Contains(t, prompt, "correct response")
	assert.Contains(t, prompt, "brief and enthusiastic")
}

func TestBuildFeedbackPromptGrammarError(t *testing.T) {
	verdict := &model.Verdict{
		Type:              model.ResponseGrammarError,
		CorrectedResponse: "My name is Maria.",
	}
	prompt := buildFeedbackPrompt(verdict, testPersona)

	assert.Contains(t, prompt, "grammar error")
	assert.Contains(t, prompt, `"My name is Maria."`)
	assert.Contains(t, prompt, "try again")
}

func TestBuildFeedbackPromptIncompleteAndInvalid(t *testing.T) {
	for _, rt := range []model.ResponseType{model.ResponseIncomplete, model.ResponseInvalid} {
		prompt := buildFeedbackPrompt(&model.Verdict{Type: rt}, testPersona)
		assert.Contains(t, prompt, "incomplete or unclear")
		assert.Contains(t, prompt, "gentle guidance")
	}
}

func TestBuildFeedbackPromptDefaultPersona(t *testing.T) {
	prompt := buildFeedbackPrompt(&model.Verdict{Type: model.ResponseCorrect}, model.TeacherPersona{})

	assert.True(t, strings.HasPrefix(prompt, "You are a teacher with a friendly and encouraging personality."))
}

func TestGeneratePassesThroughModelOutput(t *testing.T) {
	client := &fakeClient{responses: []string{"Fantastic work, Maria! Keep it up!"}}
	g := NewFeedbackGenerator(client, "fake-model", 1000, logger.NewNop())

	got := g.Generate(context.Background(), &model.Verdict{Type: model.ResponseCorrect}, testPersona)
	assert.Equal(t, "Fantastic work, Maria! Keep it up!", got)
}

func TestGenerateFallsBackOnCapabilityFailure(t *testing.T) {
	client := &fakeClient{errs: []error{errors.New("model unreachable")}}
	g := NewFeedbackGenerator(client, "fake-model", 1000, logger.NewNop())

	verdict := &model.Verdict{Type: model.ResponseGrammarError, Feedback: "Remember the verb 'is'."}
	got := g.Generate(context.Background(), verdict, testPersona)
	assert.Equal(t, "Remember the verb 'is'.", got)

	client = &fakeClient{errs: []error{errors.New("model unreachable")}}
	g = NewFeedbackGenerator(client, "fake-model", 1000, logger.NewNop())
	got = g.Generate(context.Background(), &model.Verdict{Type: model.ResponseInvalid}, testPersona)
	assert.Equal(t, apologyFeedback, got)
}
