package auth

import (
	"context"
	"net/http"

	"github.com/dalemusser/weblivery/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity is an authenticated caller. Its fields are unexported so a value
// can only come from a loaded identity record (IdentityFor), which is what
// the session gate produces; protected operations take an Identity rather
// than a bare id.
type Identity struct {
	id       primitive.ObjectID
	email    string
	name     string
	nickname string
	role     string
}

// IdentityFor builds the Identity of a loaded user record.
func IdentityFor(u models.User) Identity {
	return Identity{
		id:       u.ID,
		email:    u.Email,
		name:     u.Name,
		nickname: u.Nickname,
		role:     u.Role,
	}
}

func (i Identity) ID() primitive.ObjectID { return i.id }
func (i Identity) Email() string          { return i.email }
func (i Identity) Name() string           { return i.name }
func (i Identity) Nickname() string       { return i.nickname }
func (i Identity) Role() string           { return i.role }

// IsAdmin reports whether the identity may run administrative operations.
// The decision rests on the role assigned at registration, nothing else.
func (i Identity) IsAdmin() bool {
	return i.role == models.RoleAdmin
}

// IsZero reports whether i was never populated.
func (i Identity) IsZero() bool {
	return i.id.IsZero()
}

type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity returns r carrying id. Used by the gate and by handler tests.
func WithIdentity(r *http.Request, id Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey, id))
}

// CurrentIdentity returns the request's identity and whether there is one.
func CurrentIdentity(r *http.Request) (Identity, bool) {
	id, ok := r.Context().Value(identityKey).(Identity)
	if !ok || id.IsZero() {
		return Identity{}, false
	}
	return id, true
}
