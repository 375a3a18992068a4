package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Zchasse63/voice-fit-sub003/internal/testutil"
)

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	health(testutil.DiscardLogger())(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q", body["status"])
	}
}

func TestReadiness_NoPool(t *testing.T) {
	rec := httptest.NewRecorder()
	readiness(nil, testutil.DiscardLogger())(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 without a pool", rec.Code)
	}
}
