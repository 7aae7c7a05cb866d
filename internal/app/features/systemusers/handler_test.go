package systemusers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dalemusser/weblivery/internal/app/features/systemusers"
	"github.com/dalemusser/weblivery/internal/app/system/credentials"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"github.com/dalemusser/weblivery/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*systemusers.Handler, *testutil.Fixtures) {
	t.Helper()
	fx := testutil.NewFixtures(t)
	return systemusers.NewHandler(fx.Engine, zap.NewNop()), fx
}

func TestHandleRegister_Admin_Success(t *testing.T) {
	h, fx := newTestHandler(t)
	admin := fx.CreateAdmin("Ops", "ops@example.com")

	req := testutil.NewFormRequest("/admin/register", url.Values{
		"email":    {"NewDev@Example.com"},
		"password": {"long-enough-secret"},
		"name":     {"New Dev"},
		"role":     {"developer"},
	})
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.HandleRegister(rec, testutil.WithUser(req, admin))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status %d, got %d body=%s", http.StatusSeeOther, rec.Code, rec.Body.String())
	}

	u, err := fx.DB.Users().GetByEmail(context.Background(), "newdev@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if u.Name != "New Dev" || u.Role != models.RoleDeveloper {
		t.Errorf("identity: %+v", u)
	}
	if !credentials.Matches(u.PasswordHash, "long-enough-secret") {
		t.Error("password not stored as a verifier")
	}
}

func TestHandleRegister_ResponseHidesHash(t *testing.T) {
	h, fx := newTestHandler(t)
	admin := fx.CreateAdmin("Ops", "ops@example.com")

	rec := httptest.NewRecorder()
	h.HandleRegister(rec, testutil.WithUser(testutil.NewJSONRequest("/admin/register",
		`{"email":"a@example.com","password":"long-enough-secret","name":"A","role":"admin"}`), admin))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") || strings.Contains(rec.Body.String(), "$2a$") {
		t.Errorf("response leaks the verifier: %s", rec.Body.String())
	}
}

func TestHandleRegister_Errors(t *testing.T) {
	h, fx := newTestHandler(t)
	admin := fx.CreateAdmin("Ops", "ops@example.com")
	dev := fx.CreateDeveloper("Dev", "dev@example.com")

	tests := []struct {
		name string
		user models.User
		body string
		want int
	}{
		{"developer forbidden", dev, `{"email":"x@example.com","password":"long-enough","name":"X"}`, http.StatusForbidden},
		{"duplicate email", admin, `{"email":"dev@example.com","password":"long-enough","name":"X"}`, http.StatusConflict},
		{"short password", admin, `{"email":"y@example.com","password":"short","name":"Y"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleRegister(rec, testutil.WithUser(testutil.NewJSONRequest("/admin/register", tc.body), tc.user))
			if rec.Code != tc.want {
				t.Errorf("status: got %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestServeList(t *testing.T) {
	h, fx := newTestHandler(t)
	admin := fx.CreateAdmin("Ops", "ops@example.com")
	fx.CreateDeveloper("Dev", "dev@example.com")

	rec := httptest.NewRecorder()
	h.ServeList(rec, testutil.WithUser(testutil.NewRequest(http.MethodGet, "/admin/users"), admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var body struct {
		Users []models.User `json:"users"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Users) != 2 {
		t.Errorf("users: got %d, want 2", len(body.Users))
	}
}

func TestHandleUpdate(t *testing.T) {
	h, fx := newTestHandler(t)
	admin := fx.CreateAdmin("Ops", "ops@example.com")
	dev := fx.CreateDeveloper("Dev", "dev@example.com")

	update := func(id, body string) *httptest.ResponseRecorder {
		req := testutil.NewJSONRequest("/admin/users/"+id, body)
		req = testutil.WithChiURLParam(testutil.WithUser(req, admin), "userID", id)
		rec := httptest.NewRecorder()
		h.HandleUpdate(rec, req)
		return rec
	}

	if rec := update(dev.ID.Hex(), `{"name":"Dev Renamed","nickname":"dr"}`); rec.Code != http.StatusOK {
		t.Fatalf("update: got %d body=%s", rec.Code, rec.Body.String())
	}
	u, err := fx.DB.Users().GetByID(context.Background(), dev.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.Name != "Dev Renamed" || u.Nickname != "dr" {
		t.Errorf("identity: %+v", u)
	}

	if rec := update(primitive.NewObjectID().Hex(), `{"name":"X"}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown id: got %d, want 404", rec.Code)
	}
	if rec := update("nope", `{"name":"X"}`); rec.Code != http.StatusNotFound {
		t.Errorf("malformed id: got %d, want 404", rec.Code)
	}
}
