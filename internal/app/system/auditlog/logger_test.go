package auditlog_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/weblivery/internal/app/store/audit"
	"github.com/dalemusser/weblivery/internal/app/store/memory"
	"github.com/dalemusser/weblivery/internal/app/system/auditlog"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx := context.Background()
	req := httptest.NewRequest("GET", "/", nil)

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, primitive.NewObjectID(), "a@example.com")
	logger.Logout(ctx, req, primitive.NilObjectID)
	logger.RequestDeclined(ctx, primitive.NewObjectID(), models.ServiceRequest{})
}

func TestLogger_Destinations(t *testing.T) {
	tests := []struct {
		setting  string
		wantSink int
		wantZap  int
	}{
		{auditlog.All, 1, 1},
		{auditlog.DB, 1, 0},
		{auditlog.Log, 0, 1},
		{auditlog.Off, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			sink := memory.New().Audit()
			core, logs := observer.New(zap.InfoLevel)
			logger := auditlog.New(sink, zap.New(core), auditlog.Config{Auth: tt.setting})

			logger.LoginSuccess(context.Background(), httptest.NewRequest("POST", "/login", nil), primitive.NewObjectID(), "dev@example.com")

			if got := len(sink.Events()); got != tt.wantSink {
				t.Errorf("sink events: got %d, want %d", got, tt.wantSink)
			}
			if got := logs.FilterMessage("audit event").Len(); got != tt.wantZap {
				t.Errorf("zap entries: got %d, want %d", got, tt.wantZap)
			}
		})
	}
}

func TestLogger_CategoriesAreIndependent(t *testing.T) {
	sink := memory.New().Audit()
	logger := auditlog.New(sink, zap.NewNop(), auditlog.Config{Auth: auditlog.Off, Admin: auditlog.DB, Workflow: auditlog.DB})
	ctx := context.Background()

	logger.LoginSuccess(ctx, nil, primitive.NewObjectID(), "x@example.com")
	logger.IdentityRegistered(ctx, primitive.NewObjectID(), models.User{ID: primitive.NewObjectID(), Email: "d@example.com", Role: models.RoleDeveloper})
	logger.RequestSubmitted(ctx, models.ServiceRequest{ID: primitive.NewObjectID(), Title: "Site"})

	events := sink.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events (auth off), got %d", len(events))
	}
	if events[0].EventType != audit.EventIdentityRegistered || events[1].EventType != audit.EventRequestSubmitted {
		t.Errorf("unexpected events: %q, %q", events[0].EventType, events[1].EventType)
	}
}

func TestLogger_RequestAcceptedKeepsRequestSummary(t *testing.T) {
	sink := memory.New().Audit()
	logger := auditlog.New(sink, zap.NewNop(), auditlog.Config{})

	req := models.ServiceRequest{ID: primitive.NewObjectID(), RequesterFullName: "Ana", Email: "ana@client.com", Title: "Site"}
	p := models.Project{ID: primitive.NewObjectID(), Developers: []models.DeveloperSnapshot{{Email: "d@example.com"}}}
	logger.RequestAccepted(context.Background(), primitive.NewObjectID(), req, p)

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	d := events[0].Details
	if d["request_id"] != req.ID.Hex() || d["title"] != "Site" || d["project_id"] != p.ID.Hex() || d["developers"] != "1" {
		t.Errorf("details: %+v", d)
	}
}

type failingSink struct{}

func (failingSink) Log(context.Context, audit.Event) error { return errors.New("disk full") }

func TestLogger_SinkFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := auditlog.New(failingSink{}, zap.New(core), auditlog.Config{Workflow: auditlog.DB})

	logger.AcceptCompensated(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), true, errors.New("boom"))

	if logs.FilterMessage("failed to store audit event").Len() != 1 {
		t.Error("expected sink failure to be logged")
	}
}
