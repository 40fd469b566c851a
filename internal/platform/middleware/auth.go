package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"landregistry/pkg/domain"
	"landregistry/pkg/requestcontext"
)

// CredentialValidator resolves a bearer token to the caller credential it
// proves control of.
type CredentialValidator interface {
	ValidateToken(tokenString string) (domain.Credential, error)
}

// RequireAuth rejects requests without a valid bearer token and injects the
// caller credential into the context. Registration of a brand-new identity
// still passes through here: the token proves control of the credential, the
// registry decides whether a profile exists for it.
func RequireAuth(validator CredentialValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			cred, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, cred)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
