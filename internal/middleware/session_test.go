package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sessionEcho(t *testing.T) (http.Handler, *string) {
	var captured string
	handler := Session(testSecret, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetSessionID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &captured
}

func TestSessionIssuesCookie(t *testing.T) {
	handler, captured := sessionEcho(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, *captured)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, SessionCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
}

func TestSessionKeepsExistingHandle(t *testing.T) {
	handler, captured := sessionEcho(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	firstID := *captured
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, firstID, *captured)
	// No replacement cookie for a valid handle
	assert.Empty(t, rec.Result().Cookies())
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	handler, captured := sessionEcho(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	firstID := *captured
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookie.Value + "x"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// A fresh handle replaces the tampered one
	assert.NotEqual(t, firstID, *captured)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestValidateStudentResponse(t *testing.T) {
	assert.NoError(t, ValidateStudentResponse("My name is Maria."))
	assert.Error(t, ValidateStudentResponse(""))
	assert.Error(t, ValidateStudentResponse(string(make([]byte, 10001))))
	assert.Error(t, ValidateStudentResponse("\xff\xfe"))
}

func TestValidateScenarioID(t *testing.T) {
	assert.NoError(t, ValidateScenarioID("friend"))
	assert.NoError(t, ValidateScenarioID("weather_v2"))
	assert.Error(t, ValidateScenarioID(""))
	assert.Error(t, ValidateScenarioID("../etc/passwd"))
	assert.Error(t, ValidateScenarioID("friend.json"))
}
