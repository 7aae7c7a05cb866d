package requeststore_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	requeststore "github.com/dalemusser/weblivery/internal/app/store/requests"
	"github.com/dalemusser/weblivery/internal/domain/errs"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"github.com/dalemusser/weblivery/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newRequest(title string, at time.Time) models.ServiceRequest {
	return models.ServiceRequest{
		RequesterFullName: "Ana Client",
		Title:             title,
		Description:       "Build a site",
		Email:             "ana@client.com",
		SubmittedAt:       at,
	}
}

func TestStore_CreateAndListPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := requeststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Add(-time.Hour)
	second, err := store.Create(ctx, newRequest("second", base.Add(time.Minute)))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	first, err := store.Create(ctx, newRequest("first", base))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if first.ID.IsZero() || second.ID.IsZero() {
		t.Fatal("expected ids to be assigned")
	}

	pending, err := store.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending: got %d, want 2", len(pending))
	}
	if pending[0].Title != "first" || pending[1].Title != "second" {
		t.Errorf("order: got %q, %q", pending[0].Title, pending[1].Title)
	}
}

func TestStore_ClaimHidesFromPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := requeststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	r, err := store.Create(ctx, newRequest("site", time.Now()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	claimed, err := store.Claim(ctx, r.ID, "claim-1", time.Now())
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if claimed.ClaimID != "claim-1" || claimed.ClaimedAt == nil {
		t.Errorf("claim bookkeeping not returned: %+v", claimed)
	}

	pending, err := store.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("claimed request still pending: %+v", pending)
	}

	if _, err := store.Claim(ctx, r.ID, "claim-2", time.Now()); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("second Claim: expected ErrNotFound, got %v", err)
	}
	if deleted, err := store.Delete(ctx, r.ID); err != nil || deleted {
		t.Errorf("Delete of claimed request: deleted=%v err=%v", deleted, err)
	}
}

func TestStore_ReleaseAndDeleteClaimed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := requeststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	r, err := store.Create(ctx, newRequest("site", time.Now()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Claim(ctx, r.ID, "c1", time.Now()); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	if ok, err := store.Release(ctx, r.ID, "other"); err != nil || ok {
		t.Errorf("Release with wrong claim: ok=%v err=%v", ok, err)
	}
	if ok, err := store.Release(ctx, r.ID, "c1"); err != nil || !ok {
		t.Fatalf("Release: ok=%v err=%v", ok, err)
	}

	got, err := store.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Claimed() {
		t.Error("released request still claimed")
	}

	if _, err := store.Claim(ctx, r.ID, "c2", time.Now()); err != nil {
		t.Fatalf("re-Claim failed: %v", err)
	}
	if ok, err := store.DeleteClaimed(ctx, r.ID, "c1"); err != nil || ok {
		t.Errorf("DeleteClaimed with stale claim: ok=%v err=%v", ok, err)
	}
	if ok, err := store.DeleteClaimed(ctx, r.ID, "c2"); err != nil || !ok {
		t.Errorf("DeleteClaimed: ok=%v err=%v", ok, err)
	}
	if _, err := store.GetByID(ctx, r.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("GetByID after delete: expected ErrNotFound, got %v", err)
	}
}

func TestStore_DeleteOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := requeststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	r, err := store.Create(ctx, newRequest("site", time.Now()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if ok, err := store.Delete(ctx, r.ID); err != nil || !ok {
		t.Fatalf("first Delete: ok=%v err=%v", ok, err)
	}
	if ok, err := store.Delete(ctx, r.ID); err != nil || ok {
		t.Errorf("second Delete: ok=%v err=%v", ok, err)
	}
	if ok, err := store.Delete(ctx, primitive.NewObjectID()); err != nil || ok {
		t.Errorf("Delete unknown: ok=%v err=%v", ok, err)
	}
}

func TestStore_ConcurrentClaim_ExactlyOneWins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := requeststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	r, err := store.Create(ctx, newRequest("race", time.Now()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.Claim(ctx, r.ID, primitive.NewObjectID().Hex(), time.Now()); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("winning claims: got %d, want 1", wins)
	}
}

func TestStore_ListStaleClaims(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := requeststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	old, _ := store.Create(ctx, newRequest("old", now))
	fresh, _ := store.Create(ctx, newRequest("fresh", now))
	_, _ = store.Create(ctx, newRequest("pending", now))

	if _, err := store.Claim(ctx, old.ID, "c-old", now.Add(-time.Hour)); err != nil {
		t.Fatalf("Claim old failed: %v", err)
	}
	if _, err := store.Claim(ctx, fresh.ID, "c-fresh", now); err != nil {
		t.Fatalf("Claim fresh failed: %v", err)
	}

	stale, err := store.ListStaleClaims(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("ListStaleClaims failed: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != old.ID {
		t.Errorf("stale claims: got %+v", stale)
	}
}
