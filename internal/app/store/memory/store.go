// Package memory provides in-process implementations of the identity,
// request, project and audit stores, used for development
// (store_backend=memory) and by tests that need no database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/dalemusser/weblivery/internal/app/store/audit"
	"github.com/dalemusser/weblivery/internal/app/system/normalize"
	"github.com/dalemusser/weblivery/internal/domain/errs"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DB holds every collection behind one mutex. Each method is atomic with
// respect to the others, which gives Claim and Delete the same
// single-document guarantees the mongo stores get from the server.
type DB struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]models.User
	requests map[primitive.ObjectID]models.ServiceRequest
	projects map[primitive.ObjectID]models.Project
	events   []audit.Event
}

// New returns an empty in-memory database.
func New() *DB {
	return &DB{
		users:    make(map[primitive.ObjectID]models.User),
		requests: make(map[primitive.ObjectID]models.ServiceRequest),
		projects: make(map[primitive.ObjectID]models.Project),
	}
}

// Users returns the identity store view.
func (db *DB) Users() *Users { return &Users{db: db} }

// Requests returns the service request store view.
func (db *DB) Requests() *Requests { return &Requests{db: db} }

// Projects returns the project store view.
func (db *DB) Projects() *Projects { return &Projects{db: db} }

// Audit returns the audit event sink.
func (db *DB) Audit() *Audit { return &Audit{db: db} }

/*─────────────────────────────────────────────────────────────────────────────*
| Identities                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

type Users struct{ db *DB }

func (s *Users) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)
	u.Nickname = normalize.Name(u.Nickname)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Role(u.Role)
	if u.Email == "" || !models.IsValidRole(u.Role) {
		v := errs.NewValidationError()
		if u.Email == "" {
			v.Add("email", "is required")
		}
		if !models.IsValidRole(u.Role) {
			v.Add("role", `must be "admin" or "developer"`)
		}
		return models.User{}, v
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, ex := range s.db.users {
		if ex.Email == u.Email {
			return models.User{}, errs.ErrDuplicate
		}
	}
	s.db.users[u.ID] = u
	return u, nil
}

func (s *Users) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

func (s *Users) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalize.Email(email)
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (s *Users) List(ctx context.Context) ([]models.User, error) {
	s.db.mu.Lock()
	out := make([]models.User, 0, len(s.db.users))
	for _, u := range s.db.users {
		out = append(out, u)
	}
	s.db.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].NameCI != out[j].NameCI {
			return out[i].NameCI < out[j].NameCI
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (s *Users) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.Name = normalize.Name(upd.Name)
	u.NameCI = text.Fold(u.Name)
	u.Nickname = normalize.Name(upd.Nickname)
	u.UpdatedAt = time.Now().UTC()
	s.db.users[id] = u
	return nil
}

func (s *Users) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	s.db.users[id] = u
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Service requests                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

type Requests struct{ db *DB }

func (s *Requests) Create(ctx context.Context, r models.ServiceRequest) (models.ServiceRequest, error) {
	r.ID = primitive.NewObjectID()
	r.ClaimID = ""
	r.ClaimedAt = nil
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now().UTC()
	}
	s.db.mu.Lock()
	s.db.requests[r.ID] = r
	s.db.mu.Unlock()
	return r, nil
}

func (s *Requests) ListPending(ctx context.Context) ([]models.ServiceRequest, error) {
	s.db.mu.Lock()
	out := []models.ServiceRequest{}
	for _, r := range s.db.requests {
		if !r.Claimed() {
			out = append(out, r)
		}
	}
	s.db.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

func (s *Requests) GetByID(ctx context.Context, id primitive.ObjectID) (models.ServiceRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.requests[id]
	if !ok {
		return models.ServiceRequest{}, errs.ErrNotFound
	}
	return r, nil
}

func (s *Requests) Claim(ctx context.Context, id primitive.ObjectID, claimID string, at time.Time) (models.ServiceRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.requests[id]
	if !ok || r.Claimed() {
		return models.ServiceRequest{}, errs.ErrNotFound
	}
	at = at.UTC()
	r.ClaimID = claimID
	r.ClaimedAt = &at
	s.db.requests[id] = r
	return r, nil
}

func (s *Requests) Release(ctx context.Context, id primitive.ObjectID, claimID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.requests[id]
	if !ok || r.ClaimID != claimID {
		return false, nil
	}
	r.ClaimID = ""
	r.ClaimedAt = nil
	s.db.requests[id] = r
	return true, nil
}

func (s *Requests) DeleteClaimed(ctx context.Context, id primitive.ObjectID, claimID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.requests[id]
	if !ok || r.ClaimID != claimID {
		return false, nil
	}
	delete(s.db.requests, id)
	return true, nil
}

func (s *Requests) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.requests[id]
	if !ok || r.Claimed() {
		return false, nil
	}
	delete(s.db.requests, id)
	return true, nil
}

func (s *Requests) ListStaleClaims(ctx context.Context, before time.Time) ([]models.ServiceRequest, error) {
	s.db.mu.Lock()
	out := []models.ServiceRequest{}
	for _, r := range s.db.requests {
		if r.Claimed() && r.ClaimedAt != nil && r.ClaimedAt.Before(before) {
			out = append(out, r)
		}
	}
	s.db.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ClaimedAt.Before(*out[j].ClaimedAt) })
	return out, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Projects                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

type Projects struct{ db *DB }

// cloneProject copies the embedded slices so callers never share backing
// arrays with the stored document.
func cloneProject(p models.Project) models.Project {
	p.ToDoList = append([]models.ToDoItem{}, p.ToDoList...)
	p.Developers = append([]models.DeveloperSnapshot{}, p.Developers...)
	if p.Deadline != nil {
		d := *p.Deadline
		p.Deadline = &d
	}
	return p
}

func (s *Projects) Create(ctx context.Context, p models.Project) (models.Project, error) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p = cloneProject(p)

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, ex := range s.db.projects {
		if ex.SourceRequestID == p.SourceRequestID {
			return models.Project{}, errs.ErrDuplicate
		}
	}
	s.db.projects[p.ID] = p
	return cloneProject(p), nil
}

func (s *Projects) List(ctx context.Context) ([]models.Project, error) {
	s.db.mu.Lock()
	out := make([]models.Project, 0, len(s.db.projects))
	for _, p := range s.db.projects {
		out = append(out, cloneProject(p))
	}
	s.db.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return strings.Compare(out[i].ID.Hex(), out[j].ID.Hex()) < 0
	})
	return out, nil
}

func (s *Projects) GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.projects[id]
	if !ok {
		return models.Project{}, errs.ErrNotFound
	}
	return cloneProject(p), nil
}

func (s *Projects) GetBySourceRequest(ctx context.Context, requestID primitive.ObjectID) (models.Project, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, p := range s.db.projects {
		if p.SourceRequestID == requestID {
			return cloneProject(p), nil
		}
	}
	return models.Project{}, errs.ErrNotFound
}

/*─────────────────────────────────────────────────────────────────────────────*
| Audit                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

type Audit struct{ db *DB }

// Log appends event, assigning an id and timestamp when missing.
func (s *Audit) Log(ctx context.Context, event audit.Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	s.db.mu.Lock()
	s.db.events = append(s.db.events, event)
	s.db.mu.Unlock()
	return nil
}

// Events returns the recorded events, oldest first.
func (s *Audit) Events() []audit.Event {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return append([]audit.Event(nil), s.db.events...)
}

// Query returns matching events, most recent first.
func (s *Audit) Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	s.db.mu.Lock()
	out := []audit.Event{}
	for i := len(s.db.events) - 1; i >= 0; i-- {
		if filter.Matches(s.db.events[i]) {
			out = append(out, s.db.events[i])
		}
	}
	s.db.mu.Unlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = audit.DefaultLimit
	}
	if filter.Offset >= int64(len(out)) {
		return []audit.Event{}, nil
	}
	out = out[filter.Offset:]
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}
