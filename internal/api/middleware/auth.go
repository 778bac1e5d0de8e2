package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/costwatch/costwatch/internal/auth"
	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/utils"
)

// ContextKey is a custom type for context keys
type ContextKey string

const (
	// ActorKey is the context key for the authenticated actor
	ActorKey ContextKey = "actor"
	// EmailKey is the context key for the actor's email
	EmailKey ContextKey = "email"
)

// Authenticate returns a middleware that requires a valid bearer token
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				utils.WriteError(w, errors.Unauthorized("Missing authentication token"))
				return
			}

			claims, err := auth.ParseClaims(tokenStr, jwtSecret)
			if err != nil {
				utils.WriteError(w, errors.Unauthorized("Invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), ActorKey, claims.Actor)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)

			AddLogField(w, "actor", claims.Actor)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	if cookie, err := r.Cookie("accessToken"); err == nil {
		return cookie.Value
	}
	return ""
}

// GetActor extracts the authenticated actor from the request context
func GetActor(r *http.Request) (string, bool) {
	actor, ok := r.Context().Value(ActorKey).(string)
	return actor, ok && actor != ""
}
