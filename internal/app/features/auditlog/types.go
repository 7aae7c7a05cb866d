// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/weblivery/internal/app/store/audit"
)

// listItem represents a single audit event row.
type listItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	ActorName     string            `json:"actor,omitempty"`  // resolved from ActorID
	TargetName    string            `json:"target,omitempty"` // resolved from UserID
	IP            string            `json:"ip,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

// listData is the response of the audit log list.
type listData struct {
	Items []listItem `json:"items"`

	// Filters
	Category  string `json:"category,omitempty"`
	EventType string `json:"event_type,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`

	// Filter options
	Categories []categoryOption `json:"categories"`
	EventTypes []string         `json:"event_types"`

	// Pagination
	Page     int  `json:"page"`
	HasPrev  bool `json:"has_prev"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// categoryOption represents a category for the filter dropdown.
type categoryOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// allCategories returns the available categories for filtering.
func allCategories() []categoryOption {
	return []categoryOption{
		{Value: audit.CategoryAuth, Label: "Authentication"},
		{Value: audit.CategoryAdmin, Label: "Administration"},
		{Value: audit.CategoryWorkflow, Label: "Requests and projects"},
	}
}

// eventTypesForCategory returns the event types for a given category.
// If category is empty, returns all event types.
func eventTypesForCategory(category string) []string {
	authEvents := []string{
		audit.EventLoginSuccess,
		audit.EventLoginFailedUserNotFound,
		audit.EventLoginFailedWrongPassword,
		audit.EventLoginFailedRateLimit,
		audit.EventLogout,
	}

	adminEvents := []string{
		audit.EventIdentityRegistered,
		audit.EventIdentityUpdated,
	}

	workflowEvents := []string{
		audit.EventRequestSubmitted,
		audit.EventRequestAccepted,
		audit.EventRequestDeclined,
		audit.EventAcceptCompensated,
		audit.EventClaimRolledForward,
		audit.EventClaimRolledBack,
	}

	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryAdmin:
		return adminEvents
	case audit.CategoryWorkflow:
		return workflowEvents
	case "":
		all := make([]string, 0, len(authEvents)+len(adminEvents)+len(workflowEvents))
		all = append(all, authEvents...)
		all = append(all, adminEvents...)
		all = append(all, workflowEvents...)
		return all
	default:
		return nil
	}
}
