package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/weblivery/internal/app/features/health"
	"github.com/dalemusser/weblivery/internal/testutil"
	"go.uber.org/zap"
)

type healthBody struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Database string `json:"database"`
}

func serve(t *testing.T, h *health.Handler) (int, healthBody) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body healthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec.Code, body
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestServe_MemoryBackend(t *testing.T) {
	code, body := serve(t, health.NewHandler(nil, "memory", zap.NewNop()))
	if code != http.StatusOK || body.Status != "ok" || body.Backend != "memory" {
		t.Errorf("got %d %+v", code, body)
	}
}

func TestServe_StoreDown(t *testing.T) {
	down := pingFunc(func(ctx context.Context) error { return errors.New("no reachable servers") })
	code, body := serve(t, health.NewHandler(down, "mongo", zap.NewNop()))
	if code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", code)
	}
	if body.Status != "error" || body.Database != "disconnected" {
		t.Errorf("body: %+v", body)
	}
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	code, body := serve(t, health.NewHandler(health.MongoPinger{Client: db.Client()}, "mongo", zap.NewNop()))
	if code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, code)
	}
	if body.Database != "connected" {
		t.Errorf("database: got %q, want %q", body.Database, "connected")
	}
}
