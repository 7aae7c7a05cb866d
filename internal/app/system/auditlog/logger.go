// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/weblivery/internal/app/store/audit"
	"github.com/dalemusser/weblivery/internal/app/system/ratelimit"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for one event category.
const (
	All = "all" // MongoDB (or the configured sink) + zap
	DB  = "db"  // sink only
	Log = "log" // zap only
	Off = "off" // disabled
)

// Config selects a destination per event category.
type Config struct {
	Auth     string // login, logout
	Admin    string // identity registration and edits
	Workflow string // submissions, accept, decline, compensation, reconciliation
}

// Sink persists audit events. Both the mongo audit store and the
// in-memory backend satisfy it.
type Sink interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger records audit events to a Sink and to zap according to Config.
type Logger struct {
	sink   Sink
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(sink Sink, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{sink: sink, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) setting(category string) string {
	var s string
	switch category {
	case audit.CategoryAuth:
		s = l.config.Auth
	case audit.CategoryAdmin:
		s = l.config.Admin
	case audit.CategoryWorkflow:
		s = l.config.Workflow
	}
	if s == "" {
		return All
	}
	return s
}

// Log records event according to its category's setting. A nil Logger is a
// no-op. Sink failures are logged, never returned: auditing must not fail
// the operation it describes.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	setting := l.setting(event.Category)
	if setting == Off {
		return
	}
	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.sink != nil {
		if err := l.sink.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func fromRequest(r *http.Request, e audit.Event) audit.Event {
	if r != nil {
		e.IP = ratelimit.ClientIP(r)
		e.UserAgent = r.UserAgent()
	}
	return e
}

// --- Authentication Events ---

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"email": email},
	}))
}

func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		FailureReason: "user not found",
		Details:       map[string]string{"attempted_email": attemptedEmail},
	}))
}

func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		UserID:        &userID,
		FailureReason: "wrong password",
		Details:       map[string]string{"email": email},
	}))
}

func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, attemptedEmail string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedRateLimit,
		FailureReason: "rate limit exceeded",
		Details:       map[string]string{"attempted_email": attemptedEmail},
	}))
}

func (l *Logger) Logout(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	e := audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		Success:   true,
	}
	if !userID.IsZero() {
		e.UserID = &userID
	}
	l.Log(ctx, fromRequest(r, e))
}

// --- Admin Events ---

func (l *Logger) IdentityRegistered(ctx context.Context, actorID primitive.ObjectID, u models.User) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventIdentityRegistered,
		UserID:    &u.ID,
		ActorID:   actorPtr(actorID),
		Success:   true,
		Details:   map[string]string{"email": u.Email, "role": u.Role},
	})
}

func (l *Logger) IdentityUpdated(ctx context.Context, actorID, userID primitive.ObjectID, passwordChanged bool) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventIdentityUpdated,
		UserID:    &userID,
		ActorID:   actorPtr(actorID),
		Success:   true,
		Details:   map[string]string{"password_changed": strconv.FormatBool(passwordChanged)},
	})
}

// --- Workflow Events ---

func (l *Logger) RequestSubmitted(ctx context.Context, req models.ServiceRequest) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryWorkflow,
		EventType: audit.EventRequestSubmitted,
		Success:   true,
		Details:   requestDetails(req),
	})
}

// RequestAccepted records the consumed request's summary next to the new
// project, since the request document itself is deleted.
func (l *Logger) RequestAccepted(ctx context.Context, actorID primitive.ObjectID, req models.ServiceRequest, p models.Project) {
	d := requestDetails(req)
	d["project_id"] = p.ID.Hex()
	d["developers"] = strconv.Itoa(len(p.Developers))
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryWorkflow,
		EventType: audit.EventRequestAccepted,
		ActorID:   actorPtr(actorID),
		Success:   true,
		Details:   d,
	})
}

func (l *Logger) RequestDeclined(ctx context.Context, actorID primitive.ObjectID, req models.ServiceRequest) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryWorkflow,
		EventType: audit.EventRequestDeclined,
		ActorID:   actorPtr(actorID),
		Success:   true,
		Details:   requestDetails(req),
	})
}

// AcceptCompensated records a failed accept and whether its claim was
// released.
func (l *Logger) AcceptCompensated(ctx context.Context, actorID, requestID primitive.ObjectID, released bool, cause error) {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryWorkflow,
		EventType:     audit.EventAcceptCompensated,
		ActorID:       actorPtr(actorID),
		FailureReason: reason,
		Details: map[string]string{
			"request_id": requestID.Hex(),
			"released":   strconv.FormatBool(released),
		},
	})
}

// ClaimReconciled records a stale claim resolved by the background worker.
func (l *Logger) ClaimReconciled(ctx context.Context, requestID primitive.ObjectID, rolledForward bool) {
	typ := audit.EventClaimRolledBack
	if rolledForward {
		typ = audit.EventClaimRolledForward
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryWorkflow,
		EventType: typ,
		Success:   true,
		Details:   map[string]string{"request_id": requestID.Hex()},
	})
}

func requestDetails(req models.ServiceRequest) map[string]string {
	return map[string]string{
		"request_id":     req.ID.Hex(),
		"requester_name": req.RequesterFullName,
		"requester_mail": req.Email,
		"title":          req.Title,
	}
}

func actorPtr(id primitive.ObjectID) *primitive.ObjectID {
	if id.IsZero() {
		return nil
	}
	return &id
}
