// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// SessionIDKey is the context key for the session handle.
	SessionIDKey ContextKey = "session_id"

	// SessionCookieName is the cookie carrying the signed session handle.
	SessionCookieName = "language_chat_session"
)

// sessionClaims is the signed payload of the session cookie. The handle is
// opaque; signing only guards against tampering, it is not user
// authentication.
type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// Session ensures every request carries a valid session handle. A missing,
// expired, or tampered cookie is replaced with a fresh one; the handle is
// placed in the request context either way.
func Session(secret string, lifetime time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""

			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				claims := &sessionClaims{}
				token, err := jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
					if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, jwt.ErrSignatureInvalid
					}
					return []byte(secret), nil
				})
				if err == nil && token.Valid {
					sessionID = claims.SessionID
				}
			}

			if sessionID == "" {
				sessionID = uuid.New().String()

				now := time.Now()
				claims := &sessionClaims{
					RegisteredClaims: jwt.RegisteredClaims{
						IssuedAt:  jwt.NewNumericDate(now),
						ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
					},
					SessionID: sessionID,
				}
				signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
				if err != nil {
					http.Error(w, `{"error":"failed to establish session"}`, http.StatusInternalServerError)
					return
				}

				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    signed,
					Path:     "/",
					MaxAge:   int(lifetime.Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteNoneMode,
				})
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionID gets the session handle from context.
func GetSessionID(ctx context.Context) string {
	if v := ctx.Value(SessionIDKey); v != nil {
		return v.(string)
	}
	return ""
}
