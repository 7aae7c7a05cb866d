// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles an identity can hold. The role is fixed at registration time and is
// the only input to administrative authorization.
const (
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
)

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleDeveloper
}

// User is an identity that can sign in: the administrator or a developer.
//
// PasswordHash is an opaque bcrypt verifier and is never serialised to JSON.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"` // normalised, unique login handle
	PasswordHash string             `bson:"password_hash" json:"-"`
	Nickname     string             `bson:"nickname,omitempty" json:"nickname,omitempty"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"` // folded for sorting
	Role         string             `bson:"role" json:"role"` // admin | developer

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Snapshot copies the identity fields embedded into a project at
// assignment time.
func (u User) Snapshot() DeveloperSnapshot {
	return DeveloperSnapshot{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Nickname: u.Nickname,
		Role:     u.Role,
	}
}

// ProfileUpdate holds the editable display fields of an identity.
type ProfileUpdate struct {
	Name     string
	Nickname string
}
