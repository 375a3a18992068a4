package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Context key type (unexported to prevent collisions).
type userIDCtxKey struct{}

var ctxKeyUserID = userIDCtxKey{}

// userIDFromContext retrieves the authenticated user from the request
// context. Returns uuid.Nil and false if not found.
func userIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	uid, ok := ctx.Value(ctxKeyUserID).(uuid.UUID)
	return uid, ok
}

// requireUserID fetches the authenticated user or writes a 401.
// The auth middleware normally guarantees presence; this guards handlers
// that are wired outside the stack by mistake.
func requireUserID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (uuid.UUID, bool) {
	uid, ok := userIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", logger)
		return uuid.Nil, false
	}
	return uid, true
}

// authenticator validates HS256 bearer tokens and resolves the subject to
// a user UUID.
type authenticator struct {
	secret []byte
	logger *slog.Logger
}

// verify parses and validates the compact JWT, returning the subject.
func (a *authenticator) verify(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return uuid.Nil, err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(sub)
}

// authMiddleware rejects requests without a valid bearer token and puts
// the user ID in the request context.
func authMiddleware(a *authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(raw, "Bearer ")
			if !ok || tokenString == "" {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", a.logger)
				return
			}

			userID, err := a.verify(tokenString)
			if err != nil {
				a.logger.Warn("token rejected",
					"error", err,
					"path", r.URL.Path,
					"method", r.Method,
				)
				WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token", a.logger)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
