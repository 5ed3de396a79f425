// Package handler provides HTTP handlers for the API.
package handler

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/cenizastevie/aws-language-chat-buddy/internal/middleware"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/model"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/scenario"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/session"
	"github.com/cenizastevie/aws-language-chat-buddy/internal/service"
	"github.com/cenizastevie/aws-language-chat-buddy/pkg/logger"
)

// ConversationHandler handles the conversation endpoints. Per request it
// loads the session's state, runs one core operation, and persists the
// state only after the operation succeeds.
type ConversationHandler struct {
	service  *service.ConversationService
	sessions session.Store
	logger   *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, sessions session.Store, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service:  svc,
		sessions: sessions,
		logger:   log,
	}
}

// loadState returns the session's persisted state, or a fresh one when
// none exists yet.
func (h *ConversationHandler) loadState(r *http.Request) *model.ConversationState {
	sessionID := middleware.GetSessionID(r.Context())
	state, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			h.logger.Error("failed to load session state",
				zap.String("session_id", sessionID), zap.Error(err))
		}
		return model.NewConversationState()
	}
	return state
}

func (h *ConversationHandler) saveState(r *http.Request, state *model.ConversationState) error {
	sessionID := middleware.GetSessionID(r.Context())
	return h.sessions.Put(r.Context(), sessionID, state)
}

type loadScenarioRequest struct {
	ScenarioName string `json:"scenario_name"`
	ScenarioPath string `json:"scenario_path"`
}

// LoadScenario handles POST /api/v1/scenario
func (h *ConversationHandler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req loadScenarioRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scenarioName := req.ScenarioName
	if scenarioName == "" && req.ScenarioPath != "" {
		// Legacy clients send "scenarios/friend.json"
		base := path.Base(req.ScenarioPath)
		scenarioName = strings.TrimSuffix(base, path.Ext(base))
	}
	if err := middleware.ValidateScenarioID(scenarioName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state := h.loadState(r)
	if err := h.service.LoadScenario(r.Context(), state, scenarioName); err != nil {
		switch {
		case errors.Is(err, scenario.ErrNotFound):
			writeError(w, http.StatusNotFound, "scenario not found")
		case errors.Is(err, scenario.ErrMalformed):
			writeError(w, http.StatusUnprocessableEntity, "scenario definition is malformed")
		default:
			h.logger.Error("failed to load scenario", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load scenario")
		}
		return
	}

	if err := h.saveState(r, state); err != nil {
		h.logger.Error("failed to save session state", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"scenario": h.service.StateSummary(state),
	})
}

// CurrentPrompt handles GET /api/v1/prompt
func (h *ConversationHandler) CurrentPrompt(w http.ResponseWriter, r *http.Request) {
	state := h.loadState(r)
	writeJSON(w, http.StatusOK, map[string]string{
		"prompt": h.service.CurrentPrompt(state),
	})
}

type studentResponseRequest struct {
	StudentResponse string `json:"student_response"`
}

// StudentResponse handles POST /api/v1/response
func (h *ConversationHandler) StudentResponse(w http.ResponseWriter, r *http.Request) {
	var req studentResponseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateStudentResponse(req.StudentResponse); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state := h.loadState(r)
	result := h.service.ProcessResponse(r.Context(), state, req.StudentResponse)

	if err := h.saveState(r, state); err != nil {
		h.logger.Error("failed to save session state", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Reset handles POST /api/v1/reset
func (h *ConversationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	state := h.loadState(r)
	if err := h.service.Reset(state); err != nil {
		h.logger.Error("failed to reset conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to reset conversation")
		return
	}

	if err := h.saveState(r, state); err != nil {
		h.logger.Error("failed to save session state", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "reset",
		"state":  h.service.StateSummary(state),
	})
}

// State handles GET /api/v1/state
func (h *ConversationHandler) State(w http.ResponseWriter, r *http.Request) {
	state := h.loadState(r)
	writeJSON(w, http.StatusOK, h.service.StateSummary(state))
}

// SessionInfo handles GET /api/v1/session
func (h *ConversationHandler) SessionInfo(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	_, err := h.sessions.Get(r.Context(), sessionID)

	writeJSON(w, http.StatusOK, map[string]any{
		"has_prompter_state": err == nil,
		"session_id":         sessionID,
	})
}

// ClearSession handles DELETE /api/v1/session
func (h *ConversationHandler) ClearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
		h.logger.Error("failed to clear session",
			zap.String("session_id", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to clear session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "session_cleared",
	})
}
