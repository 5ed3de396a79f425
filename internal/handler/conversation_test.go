package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cenizastevie/aws-language-chat-buddy/internal/llm"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/middleware"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/model"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/scenario"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/session"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/service"
	"github.com/cenizastevie/aws-language-chat-buddy/pkg/logger"
)

const handlerScenarioJSON = `{
  "scenario_id": "friend",
  "scenario_name": "Meeting a New Friend",
  "teacher_persona": {"name": "Ms. Rivera", "tone": "friendly and encouraging"},
  "variables": {"user_name": null},
  "conversation_events": [
    {"event_id": 0, "type": "teacher_initial_prompt", "text": "Welcome!", "expecting_input": false},
    {"event_id": 1, "type": "student_response_expectation", "instruction": "Introduce yourself",
     "expecting_input": true, "evaluation_focus": ["present simple"]},
    {"event_id": 2, "type": "teacher_final_prompt", "text": "All done.", "expecting_input": false}
  ]
}`

type scriptedClient struct {
	responses []string
	calls     int
}

func (c *scriptedClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	content := ""
	if c.calls < len(c.responses) {
		content = c.responses[c.calls]
	}
	c.calls++
	return &llm.CompletionResponse{Content: content, Model: "fake-model"}, nil
}

func (c *scriptedClient) Name() string     { return "fake" }
func (c *scriptedClient) Models() []string { return []string{"fake-model"} }

func newTestHandler(client llm.Client) (*ConversationHandler, session.Store) {
	store := scenario.NewStoreFS(fstest.MapFS{
		"friend.json": &fstest.MapFile{Data: []byte(handlerScenarioJSON)},
	})
	log := logger.NewNop()
	evaluator := service.NewEvaluator(client, "fake-model", 1000, log)
	feedback := service.NewFeedbackGenerator(client, "fake-model", 1000, log)
	svc := service.NewConversationService(store, evaluator, feedback, log)
	sessions := session.NewMemoryStore()
	return NewConversationHandler(svc, sessions, log), sessions
}

func doRequest(h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req = req.WithContext(context.WithValue(req.Context(), middleware.SessionIDKey, "test-session"))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLoadScenario(t *testing.T) {
	h, sessions := newTestHandler(&scriptedClient{})

	rec := doRequest(h.LoadScenario, http.MethodPost, "/api/v1/scenario",
		`{"scenario_name": "friend"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "loaded", body["status"])

	state, err := sessions.Get(context.Background(), "test-session")
	require.NoError(t, err)
	assert.Equal(t, "friend", state.ScenarioID)
}

func TestLoadScenarioByLegacyPath(t *testing.T) {
	h, _ := newTestHandler(&scriptedClient{})

	rec := doRequest(h.LoadScenario, http.MethodPost, "/api/v1/scenario",
		`{"scenario_path": "scenarios/friend.json"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoadScenarioNotFound(t *testing.T) {
	h, sessions := newTestHandler(&scriptedClient{})

	rec := doRequest(h.LoadScenario, http.MethodPost, "/api/v1/scenario",
		`{"scenario_name": "nonexistent"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Failed loads must not persist state
	_, err := sessions.Get(context.Background(), "test-session")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestLoadScenarioBadRequest(t *testing.T) {
	h, _ := newTestHandler(&scriptedClient{})

	rec := doRequest(h.LoadScenario, http.MethodPost, "/api/v1/scenario", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(h.LoadScenario, http.MethodPost, "/api/v1/scenario", `{"scenario_name": "../evil"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCurrentPromptWithoutScenario(t *testing.T) {
	h, _ := newTestHandler(&scriptedClient{})

	rec := doRequest(h.CurrentPrompt, http.MethodGet, "/api/v1/prompt", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, model.PromptNoScenario, body["prompt"])
}

func TestStudentResponseFlow(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"is_correct": true, "corrected_response": "My name is Maria.", "explanation": "Perfect!", "rating": "CORRECT"}`,
		`{"extracted_info": {"user_name": "Maria"}, "confidence": "high", "is_complete": true}`,
		"Wonderful, Maria!",
	}}
	h, sessions := newTestHandler(client)

	rec := doRequest(h.LoadScenario, http.MethodPost, "/api/v1/scenario", `{"scenario_name": "friend"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Event 0 takes no input: the turn advances without a model call
	rec = doRequest(h.StudentResponse, http.MethodPost, "/api/v1/response",
		`{"student_response": "Ready!"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, string(model.TurnAdvanced), body["status"])
	assert.Equal(t, 0, client.calls)

	// Event 1 expects input: accepted turn merges variables and advances
	rec = doRequest(h.StudentResponse, http.MethodPost, "/api/v1/response",
		`{"student_response": "My name is Maria."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, string(model.TurnAccepted), body["status"])
	assert.Equal(t, "Wonderful, Maria!", body["feedback"])
	assert.Equal(t, "All done.", body["next_prompt"])

	state, err := sessions.Get(context.Background(), "test-session")
	require.NoError(t, err)
	assert.Equal(t, 2, state.EventIndex)
	assert.Equal(t, "Maria", state.Variables["user_name"])
}

func TestStudentResponseValidation(t *testing.T) {
	h, _ := newTestHandler(&scriptedClient{})

	rec := doRequest(h.StudentResponse, http.MethodPost, "/api/v1/response",
		`{"student_response": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(h.StudentResponse, http.MethodPost, "/api/v1/response", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetRestoresInitialState(t *testing.T) {
	client := &scriptedClient{}
	h, sessions := newTestHandler(client)

	rec := doRequest(h.LoadScenario, http.MethodPost, "/api/v1/scenario", `{"scenario_name": "friend"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(h.StudentResponse, http.MethodPost, "/api/v1/response",
		`{"student_response": "Ready!"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(h.Reset, http.MethodPost, "/api/v1/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "reset", body["status"])

	state, err := sessions.Get(context.Background(), "test-session")
	require.NoError(t, err)
	assert.Equal(t, 0, state.EventIndex)
	assert.Equal(t, 0, state.Attempts)
}

func TestStateEndpoint(t *testing.T) {
	h, _ := newTestHandler(&scriptedClient{})

	rec := doRequest(h.LoadScenario, http.MethodPost, "/api/v1/scenario", `{"scenario_name": "friend"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(h.State, http.MethodGet, "/api/v1/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "friend", body["scenario_name"])
	assert.Equal(t, float64(0), body["current_event_index"])
	assert.Equal(t, false, body["is_complete"])
}

func TestSessionInfoAndClear(t *testing.T) {
	h, _ := newTestHandler(&scriptedClient{})

	rec := doRequest(h.SessionInfo, http.MethodGet, "/api/v1/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["has_prompter_state"])
	assert.Equal(t, "test-session", body["session_id"])

	rec = doRequest(h.LoadScenario, http.MethodPost, "/api/v1/scenario", `{"scenario_name": "friend"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(h.SessionInfo, http.MethodGet, "/api/v1/session", "")
	body = decodeBody(t, rec)
	assert.Equal(t, true, body["has_prompter_state"])

	rec = doRequest(h.ClearSession, http.MethodDelete, "/api/v1/session", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(h.SessionInfo, http.MethodGet, "/api/v1/session", "")
	body = decodeBody(t, rec)
	assert.Equal(t, false, body["has_prompter_state"])
}
