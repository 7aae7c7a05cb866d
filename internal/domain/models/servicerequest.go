// internal/domain/models/servicerequest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServiceRequest is an unauthenticated submission from a prospective client.
// It is consumed exactly once, by accept (turned into a Project) or decline.
//
// ClaimID/ClaimedAt are set while an accept is in flight. A claimed request
// is no longer pending and cannot be claimed or declined again.
type ServiceRequest struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequesterFullName string             `bson:"requester_full_name" json:"requester_full_name"`
	Title             string             `bson:"title" json:"title"`
	Description       string             `bson:"description" json:"description"`
	Email             string             `bson:"email" json:"email"`
	Phone             string             `bson:"phone,omitempty" json:"phone,omitempty"`
	WhatsApp          string             `bson:"whatsapp,omitempty" json:"whatsapp,omitempty"`
	SubmittedAt       time.Time          `bson:"submitted_at" json:"submitted_at"`

	ClaimID   string     `bson:"claim_id,omitempty" json:"-"`
	ClaimedAt *time.Time `bson:"claimed_at,omitempty" json:"-"`
}

// Claimed reports whether an accept currently holds this request.
func (r ServiceRequest) Claimed() bool {
	return r.ClaimID != ""
}
