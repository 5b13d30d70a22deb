package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/taskdeck/apiserver/internal/token"
)

type contextKey string

const contextClaimsKey contextKey = "claims"

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func claimsFromContext(ctx context.Context) (token.Claims, bool) {
	claims, ok := ctx.Value(contextClaimsKey).(token.Claims)
	return claims, ok
}

func withClaims(ctx context.Context, claims token.Claims) context.Context {
	return context.WithValue(ctx, contextClaimsKey, claims)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// Healthz is a trivial liveness endpoint.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
