package projectstore_test

import (
	"errors"
	"testing"
	"time"

	projectstore "github.com/dalemusser/weblivery/internal/app/store/projects"
	"github.com/dalemusser/weblivery/internal/app/system/indexes"
	"github.com/dalemusser/weblivery/internal/domain/errs"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"github.com/dalemusser/weblivery/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestStore_CreateDefaultsSlices(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p, err := store.Create(ctx, models.Project{
		ClientName:      "Ana",
		ProjectName:     "Site",
		Status:          models.StatusPlanning,
		SourceRequestID: primitive.NewObjectID(),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ToDoList == nil || got.Developers == nil {
		t.Errorf("expected empty, non-nil slices: todo=%v devs=%v", got.ToDoList, got.Developers)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStore_DuplicateSourceRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := projectstore.New(db)

	src := primitive.NewObjectID()
	if _, err := store.Create(ctx, models.Project{ProjectName: "a", SourceRequestID: src}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.Project{ProjectName: "b", SourceRequestID: src})
	if !errors.Is(err, errs.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestStore_ListInCreationOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Add(-time.Hour)
	for i, name := range []string{"P1", "P2", "P3"} {
		if _, err := store.Create(ctx, models.Project{
			ProjectName:     name,
			SourceRequestID: primitive.NewObjectID(),
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("Create %s failed: %v", name, err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len: got %d, want 3", len(list))
	}
	for i, want := range []string{"P1", "P2", "P3"} {
		if list[i].ProjectName != want {
			t.Errorf("list[%d]: got %q, want %q", i, list[i].ProjectName, want)
		}
	}
}

func TestStore_GetBySourceRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	src := primitive.NewObjectID()
	p, err := store.Create(ctx, models.Project{ProjectName: "x", SourceRequestID: src})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetBySourceRequest(ctx, src)
	if err != nil {
		t.Fatalf("GetBySourceRequest failed: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("ID: got %v, want %v", got.ID, p.ID)
	}
	if _, err := store.GetBySourceRequest(ctx, primitive.NewObjectID()); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
