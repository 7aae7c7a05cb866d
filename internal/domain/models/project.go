// internal/domain/models/project.go
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StatusPlanning is the workflow label every new project starts with.
const StatusPlanning = "Planning"

// ToDoItem is an entry of a project's ordered to-do list.
type ToDoItem struct {
	Title   string `bson:"title" json:"title"`
	Content string `bson:"content" json:"content"`
}

// DeveloperSnapshot is a copy of an identity taken when it was assigned to a
// project. Later edits to the identity do not change it.
type DeveloperSnapshot struct {
	ID       primitive.ObjectID `bson:"id" json:"id"`
	Email    string             `bson:"email" json:"email"`
	Name     string             `bson:"name" json:"name"`
	Nickname string             `bson:"nickname,omitempty" json:"nickname,omitempty"`
	Role     string             `bson:"role" json:"role"`
}

// Project is tracked work created when a ServiceRequest is accepted.
type Project struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ClientName         string              `bson:"client_name" json:"client_name"`
	ClientEmail        string              `bson:"client_email" json:"client_email"`
	ClientPhone        string              `bson:"client_phone,omitempty" json:"client_phone,omitempty"`
	ProjectName        string              `bson:"project_name" json:"project_name"`
	ProjectDescription string              `bson:"project_description" json:"project_description"`
	Owner              string              `bson:"owner" json:"owner"`
	Status             string              `bson:"status" json:"status"`
	Deadline           *time.Time          `bson:"deadline,omitempty" json:"deadline,omitempty"`
	ToDoList           []ToDoItem          `bson:"todolist" json:"todolist"`
	Developers         []DeveloperSnapshot `bson:"developers" json:"developers"`
	SourceRequestID    primitive.ObjectID  `bson:"source_request_id" json:"source_request_id"`
	CreatedAt          time.Time           `bson:"created_at" json:"created_at"`
}

// HasDeveloper reports whether email belongs to one of the assigned
// developers. Emails are compared case-insensitively.
func (p Project) HasDeveloper(email string) bool {
	if email == "" {
		return false
	}
	for _, d := range p.Developers {
		if strings.EqualFold(d.Email, email) {
			return true
		}
	}
	return false
}
