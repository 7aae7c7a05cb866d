// Package projectpolicy decides which projects an identity may see.
//
// Authorization rules:
//   - Administrators see every project
//   - Everyone else sees exactly the projects whose developer snapshots
//     carry their email (compared case-insensitively)
//   - The rule is evaluated on every call; nothing is cached
package projectpolicy

import (
	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/domain/models"
)

// VisibleProjects filters all down to what id may see, preserving order.
// Admins receive all unchanged.
func VisibleProjects(id auth.Identity, all []models.Project) []models.Project {
	if id.IsAdmin() {
		return all
	}
	out := make([]models.Project, 0)
	for _, p := range all {
		if p.HasDeveloper(id.Email()) {
			out = append(out, p)
		}
	}
	return out
}

// CanView reports whether id may see p.
func CanView(id auth.Identity, p models.Project) bool {
	return id.IsAdmin() || p.HasDeveloper(id.Email())
}
