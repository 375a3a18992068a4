package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Zchasse63/voice-fit-sub003/internal/testutil"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func mintToken(t *testing.T, secret []byte, sub string, expires time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub}
	if !expires.IsZero() {
		claims["exp"] = expires.Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

func TestAuthenticatorVerify(t *testing.T) {
	a := &authenticator{secret: testSecret, logger: testutil.DiscardLogger()}
	userID := uuid.New()

	t.Run("valid token", func(t *testing.T) {
		tok := mintToken(t, testSecret, userID.String(), time.Now().Add(time.Hour))
		got, err := a.verify(tok)
		if err != nil {
			t.Fatalf("verify() error = %v", err)
		}
		if got != userID {
			t.Errorf("verify() = %v, want %v", got, userID)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		tok := mintToken(t, testSecret, userID.String(), time.Now().Add(-time.Hour))
		if _, err := a.verify(tok); err == nil {
			t.Error("verify() accepted an expired token")
		}
	})

	t.Run("expiry within leeway", func(t *testing.T) {
		tok := mintToken(t, testSecret, userID.String(), time.Now().Add(-10*time.Second))
		if _, err := a.verify(tok); err != nil {
			t.Errorf("verify() rejected a token inside the clock-skew leeway: %v", err)
		}
	})

	t.Run("missing exp claim", func(t *testing.T) {
		tok := mintToken(t, testSecret, userID.String(), time.Time{})
		if _, err := a.verify(tok); err == nil {
			t.Error("verify() accepted a token without exp")
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		tok := mintToken(t, []byte("ffffffffffffffffffffffffffffffff"), userID.String(), time.Now().Add(time.Hour))
		if _, err := a.verify(tok); err == nil {
			t.Error("verify() accepted a token signed with another key")
		}
	})

	t.Run("non-uuid subject", func(t *testing.T) {
		tok := mintToken(t, testSecret, "alice", time.Now().Add(time.Hour))
		if _, err := a.verify(tok); err == nil {
			t.Error("verify() accepted a non-UUID subject")
		}
	})

	t.Run("alg none rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": userID.String(),
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		tok, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("signing none token: %v", err)
		}
		if _, err := a.verify(tok); err == nil {
			t.Error("verify() accepted an unsigned token")
		}
	})
}

func TestAuthMiddleware(t *testing.T) {
	a := &authenticator{secret: testSecret, logger: testutil.DiscardLogger()}
	userID := uuid.New()

	var gotUserID uuid.UUID
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, gotOK = userIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := authMiddleware(a)(next)

	t.Run("valid bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/workouts", nil)
		req.Header.Set("Authorization", "Bearer "+mintToken(t, testSecret, userID.String(), time.Now().Add(time.Hour)))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if !gotOK || gotUserID != userID {
			t.Errorf("context user = %v (ok=%v), want %v", gotUserID, gotOK, userID)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/workouts", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/workouts", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/workouts", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestRequireUserID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if _, ok := requireUserID(rec, req, testutil.DiscardLogger()); ok {
		t.Fatal("requireUserID() ok without an authenticated context")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
