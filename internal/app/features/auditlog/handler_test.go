package auditlog_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/weblivery/internal/app/features/auditlog"
	"github.com/dalemusser/weblivery/internal/app/store/audit"
	"github.com/dalemusser/weblivery/internal/testutil"
	"go.uber.org/zap"
)

type listBody struct {
	Items []struct {
		EventType string `json:"event_type"`
		ActorName string `json:"actor"`
	} `json:"items"`
	EventTypes []string `json:"event_types"`
	HasNext    bool     `json:"has_next"`
	NextPage   int      `json:"next_page"`
}

func serveList(t *testing.T, h *auditlog.Handler, target string) listBody {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeList(rec, testutil.NewRequest(http.MethodGet, target))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var body listBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestServeList_ResolvesActorAndFilters(t *testing.T) {
	fx := testutil.NewFixtures(t)
	h := auditlog.NewHandler(fx.DB.Audit(), fx.DB.Users(), zap.NewNop())

	admin := fx.CreateAdmin("Ops Admin", "ops@example.com")
	dev := fx.CreateDeveloper("Dev", "dev@example.com")
	fx.CreateProject(admin, "Website", dev)

	all := serveList(t, h, "/admin/audit")
	if len(all.Items) != 2 {
		t.Fatalf("items: got %d, want 2 (submitted + accepted)", len(all.Items))
	}
	if all.Items[0].EventType != audit.EventRequestAccepted || all.Items[0].ActorName != "Ops Admin" {
		t.Errorf("newest item: %+v", all.Items[0])
	}

	filtered := serveList(t, h, "/admin/audit?category=workflow&event_type="+audit.EventRequestSubmitted)
	if len(filtered.Items) != 1 || filtered.Items[0].EventType != audit.EventRequestSubmitted {
		t.Errorf("filtered: %+v", filtered.Items)
	}
	if len(filtered.EventTypes) != 6 {
		t.Errorf("workflow event types: got %d", len(filtered.EventTypes))
	}
}

func TestServeList_Paginates(t *testing.T) {
	fx := testutil.NewFixtures(t)
	h := auditlog.NewHandler(fx.DB.Audit(), fx.DB.Users(), zap.NewNop())

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 55; i++ {
		if err := fx.DB.Audit().Log(context.Background(), audit.Event{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Category:  audit.CategoryAuth,
			EventType: audit.EventLogout,
			Details:   map[string]string{"n": fmt.Sprint(i)},
		}); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	first := serveList(t, h, "/admin/audit")
	if len(first.Items) != 50 || !first.HasNext || first.NextPage != 2 {
		t.Errorf("page 1: items=%d has_next=%v next=%d", len(first.Items), first.HasNext, first.NextPage)
	}
	second := serveList(t, h, "/admin/audit?page=2")
	if len(second.Items) != 5 || second.HasNext {
		t.Errorf("page 2: items=%d has_next=%v", len(second.Items), second.HasNext)
	}
}

func TestRoutes_AdminOnly(t *testing.T) {
	fx := testutil.NewFixtures(t)
	sm := testutil.NewSessionManager(t, fx.DB.Users())
	h := auditlog.NewHandler(fx.DB.Audit(), fx.DB.Users(), zap.NewNop())
	dev := fx.CreateDeveloper("Dev", "dev@example.com")

	rec := httptest.NewRecorder()
	auditlog.Routes(h, sm).ServeHTTP(rec, testutil.WithUser(testutil.NewRequest(http.MethodGet, "/"), dev))
	if rec.Code != http.StatusForbidden {
		t.Errorf("developer: got %d, want 403", rec.Code)
	}
}
