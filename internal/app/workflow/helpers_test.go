package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/weblivery/internal/app/store/memory"
	"github.com/dalemusser/weblivery/internal/app/system/auditlog"
	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/app/workflow"
	"github.com/dalemusser/weblivery/internal/domain/errs"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var errInjected = errors.New("injected failure")

// env is a workflow engine over the memory backend with hooks for failure
// injection.
type env struct {
	t        *testing.T
	db       *memory.DB
	requests *faultyRequests
	projects *faultyProjects
	engine   *workflow.Engine
	admin    auth.Identity
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := memory.New()
	e := &env{
		t:        t,
		db:       db,
		requests: &faultyRequests{Requests: db.Requests()},
		projects: &faultyProjects{Projects: db.Projects()},
	}
	e.engine = workflow.New(workflow.Deps{
		Requests:   e.requests,
		Projects:   e.projects,
		Identities: db.Users(),
		Audit:      auditlog.New(db.Audit(), zap.NewNop(), auditlog.Config{}),
		Log:        zap.NewNop(),
	})
	e.admin = e.identity("Ops Admin", "ops@example.com", models.RoleAdmin)
	return e
}

// withNow rebuilds the engine with a fixed clock.
func (e *env) withNow(now time.Time) *workflow.Engine {
	return workflow.New(workflow.Deps{
		Requests:   e.requests,
		Projects:   e.projects,
		Identities: e.db.Users(),
		Audit:      auditlog.New(e.db.Audit(), zap.NewNop(), auditlog.Config{}),
		Log:        zap.NewNop(),
		Now:        func() time.Time { return now },
	})
}

func (e *env) user(name, email, role string) models.User {
	e.t.Helper()
	u, err := e.db.Users().Create(context.Background(), models.User{Name: name, Email: email, Role: role})
	if err != nil {
		e.t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func (e *env) identity(name, email, role string) auth.Identity {
	return auth.IdentityFor(e.user(name, email, role))
}

func (e *env) submit(title, email string) models.ServiceRequest {
	e.t.Helper()
	r, err := e.engine.Submit(context.Background(), workflow.SubmitInput{
		RequesterFullName: "Ana Client",
		Title:             title,
		Description:       "Please build it",
		Email:             email,
		Phone:             "+55 11 99999-0000",
	})
	if err != nil {
		e.t.Fatalf("Submit: %v", err)
	}
	return r
}

func (e *env) pending() []models.ServiceRequest {
	e.t.Helper()
	list, err := e.engine.ListPending(context.Background(), e.admin)
	if err != nil {
		e.t.Fatalf("ListPending: %v", err)
	}
	return list
}

func (e *env) allProjects() []models.Project {
	e.t.Helper()
	list, err := e.db.Projects().List(context.Background())
	if err != nil {
		e.t.Fatalf("List projects: %v", err)
	}
	return list
}

func (e *env) isPending(id primitive.ObjectID) bool {
	for _, r := range e.pending() {
		if r.ID == id {
			return true
		}
	}
	return false
}

func (e *env) projectFor(id primitive.ObjectID) bool {
	for _, p := range e.allProjects() {
		if p.SourceRequestID == id {
			return true
		}
	}
	return false
}

func (e *env) requestExists(id primitive.ObjectID) bool {
	e.t.Helper()
	_, err := e.db.Requests().GetByID(context.Background(), id)
	if errors.Is(err, errs.ErrNotFound) {
		return false
	}
	if err != nil {
		e.t.Fatalf("GetByID: %v", err)
	}
	return true
}

// requireSettled fails unless exactly one of the request and its project
// exists.
func (e *env) requireSettled(id primitive.ObjectID) {
	e.t.Helper()
	req, proj := e.requestExists(id), e.projectFor(id)
	if req == proj {
		e.t.Fatalf("request %s: request exists=%v, project exists=%v", id.Hex(), req, proj)
	}
}

// faultyRequests fails selected operations on demand.
type faultyRequests struct {
	*memory.Requests
	mu                sync.Mutex
	failDeleteClaimed int // remaining failures
	failRelease       bool

	// loseClaim makes the next DeleteClaimed calls release the claim
	// (optionally re-claiming under stealWith) and report it lost.
	loseClaim int
	stealWith string
}

func (f *faultyRequests) DeleteClaimed(ctx context.Context, id primitive.ObjectID, claimID string) (bool, error) {
	f.mu.Lock()
	if f.failDeleteClaimed > 0 {
		f.failDeleteClaimed--
		f.mu.Unlock()
		return false, errInjected
	}
	if f.loseClaim > 0 {
		f.loseClaim--
		steal := f.stealWith
		f.mu.Unlock()
		if _, err := f.Requests.Release(ctx, id, claimID); err != nil {
			return false, err
		}
		if steal != "" {
			if _, err := f.Requests.Claim(ctx, id, steal, time.Now()); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	f.mu.Unlock()
	return f.Requests.DeleteClaimed(ctx, id, claimID)
}

func (f *faultyRequests) Release(ctx context.Context, id primitive.ObjectID, claimID string) (bool, error) {
	f.mu.Lock()
	fail := f.failRelease
	f.mu.Unlock()
	if fail {
		return false, errInjected
	}
	return f.Requests.Release(ctx, id, claimID)
}

type faultyProjects struct {
	*memory.Projects
	mu               sync.Mutex
	failCreate       bool
	failSourceLookup bool

	// When set, Create signals createStarted and then waits for
	// createRelease to be closed.
	createStarted chan struct{}
	createRelease chan struct{}
}

func (f *faultyProjects) Create(ctx context.Context, p models.Project) (models.Project, error) {
	f.mu.Lock()
	fail, started, release := f.failCreate, f.createStarted, f.createRelease
	f.mu.Unlock()
	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if release != nil {
		<-release
	}
	if fail {
		return models.Project{}, errInjected
	}
	return f.Projects.Create(ctx, p)
}

// gateCreate holds every Create until the returned release func is called.
// The channel receives once a Create is waiting.
func (f *faultyProjects) gateCreate() (started <-chan struct{}, release func()) {
	s := make(chan struct{}, 1)
	r := make(chan struct{})
	f.set(func(f *faultyProjects) {
		f.createStarted = s
		f.createRelease = r
	})
	var once sync.Once
	return s, func() { once.Do(func() { close(r) }) }
}

func (f *faultyProjects) GetBySourceRequest(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	f.mu.Lock()
	fail := f.failSourceLookup
	f.mu.Unlock()
	if fail {
		return models.Project{}, errInjected
	}
	return f.Projects.GetBySourceRequest(ctx, id)
}

func (f *faultyProjects) set(fn func(*faultyProjects)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

func (f *faultyRequests) set(fn func(*faultyRequests)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}
