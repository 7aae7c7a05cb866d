package dashboard_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/weblivery/internal/app/features/dashboard"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"github.com/dalemusser/weblivery/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type dashboardBody struct {
	View     string           `json:"view"`
	Projects []models.Project `json:"projects"`
	Pending  *int             `json:"pending_requests"`
}

func serveDashboard(t *testing.T, h *dashboard.Handler, u models.User) dashboardBody {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeDashboard(rec, testutil.WithUser(testutil.NewRequest(http.MethodGet, "/dashboard"), u))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var body dashboardBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestServeDashboard_Visibility(t *testing.T) {
	fx := testutil.NewFixtures(t)
	h := dashboard.NewHandler(fx.Engine, zap.NewNop())

	admin := fx.CreateAdmin("Ops", "ops@example.com")
	dev1 := fx.CreateDeveloper("Dev One", "dev1@example.com")
	dev2 := fx.CreateDeveloper("Dev Two", "dev2@example.com")
	dev3 := fx.CreateDeveloper("Dev Three", "dev3@example.com")
	fx.CreateProject(admin, "A", dev1)
	fx.CreateProject(admin, "B", dev1, dev2)
	fx.CreateRequest("Still pending", "c@x.com")

	tests := []struct {
		name      string
		user      models.User
		wantCount int
		wantView  string
	}{
		{"admin sees all", admin, 2, models.RoleAdmin},
		{"dev1 sees both", dev1, 2, models.RoleDeveloper},
		{"dev2 sees one", dev2, 1, models.RoleDeveloper},
		{"dev3 sees none", dev3, 0, models.RoleDeveloper},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := serveDashboard(t, h, tc.user)
			if len(body.Projects) != tc.wantCount {
				t.Errorf("projects: got %d, want %d", len(body.Projects), tc.wantCount)
			}
			if body.View != tc.wantView {
				t.Errorf("view: got %q", body.View)
			}
			if tc.user.Role == models.RoleAdmin {
				if body.Pending == nil || *body.Pending != 1 {
					t.Errorf("pending: got %v, want 1", body.Pending)
				}
			} else if body.Pending != nil {
				t.Error("developers must not see the pending count")
			}
		})
	}
}

func TestServeProject(t *testing.T) {
	fx := testutil.NewFixtures(t)
	h := dashboard.NewHandler(fx.Engine, zap.NewNop())
	admin := fx.CreateAdmin("Ops", "ops@example.com")
	dev := fx.CreateDeveloper("Dev", "dev@example.com")
	other := fx.CreateDeveloper("Other", "other@example.com")
	p := fx.CreateProject(admin, "A", dev)

	serve := func(u models.User, id string, browser bool) *httptest.ResponseRecorder {
		req := testutil.NewRequest(http.MethodGet, "/dashboard/"+id)
		if browser {
			req.Header.Set("Accept", "text/html")
		}
		req = testutil.WithChiURLParam(testutil.WithUser(req, u), "projectID", id)
		rec := httptest.NewRecorder()
		h.ServeProject(rec, req)
		return rec
	}

	if rec := serve(dev, p.ID.Hex(), false); rec.Code != http.StatusOK {
		t.Errorf("assigned developer: got %d", rec.Code)
	}
	if rec := serve(other, p.ID.Hex(), false); rec.Code != http.StatusForbidden {
		t.Errorf("unassigned developer: got %d, want 403", rec.Code)
	}
	if rec := serve(other, p.ID.Hex(), true); rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/forbidden" {
		t.Errorf("unassigned browser: got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if rec := serve(admin, primitive.NewObjectID().Hex(), false); rec.Code != http.StatusNotFound {
		t.Errorf("unknown project: got %d, want 404", rec.Code)
	}
	if rec := serve(admin, "not-an-id", false); rec.Code != http.StatusNotFound {
		t.Errorf("malformed id: got %d, want 404", rec.Code)
	}
}

func TestRoutes_RequireSignedIn(t *testing.T) {
	fx := testutil.NewFixtures(t)
	sm := testutil.NewSessionManager(t, fx.DB.Users())
	router := dashboard.Routes(dashboard.NewHandler(fx.Engine, zap.NewNop()), sm)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/"))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("API caller: got %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.NewBrowserRequest(http.MethodGet, "/"))
	if rec.Code != http.StatusSeeOther {
		t.Errorf("browser: got %d, want 303", rec.Code)
	}
}
