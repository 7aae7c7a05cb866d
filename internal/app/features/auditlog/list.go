// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/weblivery/internal/app/store/audit"
	"github.com/dalemusser/weblivery/internal/app/system/respond"
	"github.com/dalemusser/weblivery/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const pageSize = 50

// ServeList handles GET /admin/audit - lists audit events with filtering,
// most recent first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	category := strings.TrimSpace(query.Get(r, "category"))
	eventType := strings.TrimSpace(query.Get(r, "event_type"))
	startDate := strings.TrimSpace(query.Get(r, "start_date"))
	endDate := strings.TrimSpace(query.Get(r, "end_date"))

	page := 1
	if p, err := strconv.Atoi(query.Get(r, "page")); err == nil && p > 0 {
		page = p
	}

	// One extra row tells whether a next page exists.
	filter := audit.QueryFilter{
		Category:  category,
		EventType: eventType,
		Limit:     pageSize + 1,
		Offset:    int64((page - 1) * pageSize),
	}
	if startDate != "" {
		if t, err := time.Parse("2006-01-02", startDate); err == nil {
			filter.StartTime = &t
		}
	}
	if endDate != "" {
		if t, err := time.Parse("2006-01-02", endDate); err == nil {
			endOfDay := t.Add(24*time.Hour - time.Second)
			filter.EndTime = &endOfDay
		}
	}
	if uid := query.Get(r, "user_id"); uid != "" {
		if oid, err := primitive.ObjectIDFromHex(uid); err == nil {
			filter.UserID = &oid
		}
	}

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	hasNext := len(events) > pageSize
	if hasNext {
		events = events[:pageSize]
	}

	names := h.resolveNames(r, events)

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.ActorID != nil {
			item.ActorName = nameOr(names, *e.ActorID)
		}
		if e.UserID != nil {
			item.TargetName = nameOr(names, *e.UserID)
		}
		items = append(items, item)
	}

	data := listData{
		Items:      items,
		Category:   category,
		EventType:  eventType,
		StartDate:  startDate,
		EndDate:    endDate,
		Categories: allCategories(),
		EventTypes: eventTypesForCategory(category),
		Page:       page,
		HasPrev:    page > 1,
		HasNext:    hasNext,
	}
	if data.HasPrev {
		data.PrevPage = page - 1
	}
	if data.HasNext {
		data.NextPage = page + 1
	}
	respond.JSON(w, http.StatusOK, data)
}

// resolveNames looks up the display name of every identity the events
// mention. Lookup failures fall back to the raw id.
func (h *Handler) resolveNames(r *http.Request, events []audit.Event) map[primitive.ObjectID]string {
	ids := make(map[primitive.ObjectID]struct{})
	for _, e := range events {
		if e.ActorID != nil {
			ids[*e.ActorID] = struct{}{}
		}
		if e.UserID != nil {
			ids[*e.UserID] = struct{}{}
		}
	}

	names := make(map[primitive.ObjectID]string, len(ids))
	if h.Users == nil {
		return names
	}
	for id := range ids {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "audit name lookup")
		u, err := h.Users.GetByID(ctx, id)
		cancel()
		if err != nil {
			h.Log.Debug("audit log: identity not resolved", zap.String("user_id", id.Hex()), zap.Error(err))
			continue
		}
		names[id] = u.Name
	}
	return names
}

func nameOr(names map[primitive.ObjectID]string, id primitive.ObjectID) string {
	if name, ok := names[id]; ok {
		return name
	}
	return id.Hex()
}
