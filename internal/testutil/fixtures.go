package testutil

import (
	"context"
	"net/http"
	"testing"

	"github.com/dalemusser/weblivery/internal/app/store/memory"
	"github.com/dalemusser/weblivery/internal/app/system/auditlog"
	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/app/system/credentials"
	"github.com/dalemusser/weblivery/internal/app/workflow"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures is a workflow engine over the memory backend plus helpers for
// creating test data.
type Fixtures struct {
	t      *testing.T
	DB     *memory.DB
	Audit  *auditlog.Logger
	Engine *workflow.Engine
}

// NewFixtures creates an empty in-memory portal.
func NewFixtures(t *testing.T) *Fixtures {
	t.Helper()
	db := memory.New()
	audit := auditlog.New(db.Audit(), zap.NewNop(), auditlog.Config{})
	return &Fixtures{
		t:     t,
		DB:    db,
		Audit: audit,
		Engine: workflow.New(workflow.Deps{
			Requests:   db.Requests(),
			Projects:   db.Projects(),
			Identities: db.Users(),
			Audit:      audit,
			Log:        zap.NewNop(),
		}),
	}
}

// CreateUser stores an identity. A non-empty password is hashed.
func (f *Fixtures) CreateUser(name, email, role, password string) models.User {
	f.t.Helper()
	u := models.User{Name: name, Email: email, Role: role}
	if password != "" {
		hash, err := credentials.Hash(password)
		if err != nil {
			f.t.Fatalf("hash password: %v", err)
		}
		u.PasswordHash = hash
	}
	created, err := f.DB.Users().Create(context.Background(), u)
	if err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return created
}

// CreateAdmin stores an administrator without a password.
func (f *Fixtures) CreateAdmin(name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(name, email, models.RoleAdmin, "")
}

// CreateDeveloper stores a developer without a password.
func (f *Fixtures) CreateDeveloper(name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(name, email, models.RoleDeveloper, "")
}

// CreateRequest submits a valid public request.
func (f *Fixtures) CreateRequest(title, email string) models.ServiceRequest {
	f.t.Helper()
	r, err := f.Engine.Submit(context.Background(), workflow.SubmitInput{
		RequesterFullName: "Test Client",
		Title:             title,
		Description:       "Test description",
		Email:             email,
	})
	if err != nil {
		f.t.Fatalf("failed to create test request: %v", err)
	}
	return r
}

// CreateProject submits a request and accepts it as admin with the given
// developers.
func (f *Fixtures) CreateProject(admin models.User, title string, devs ...models.User) models.Project {
	f.t.Helper()
	req := f.CreateRequest(title, "client@example.com")
	ids := make([]primitive.ObjectID, 0, len(devs))
	for _, d := range devs {
		ids = append(ids, d.ID)
	}
	p, err := f.Engine.Accept(context.Background(), auth.IdentityFor(admin), workflow.AcceptInput{
		RequestID:    req.ID,
		DeveloperIDs: ids,
	})
	if err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	return p
}
