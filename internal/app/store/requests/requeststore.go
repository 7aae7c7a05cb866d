// internal/app/store/requests/requeststore.go
package requeststore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/weblivery/internal/domain/errs"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the service request collection.
const Collection = "service_requests"

// unclaimed matches requests no accept currently holds.
var unclaimed = bson.M{"claim_id": bson.M{"$exists": false}}

// Store persists ServiceRequests. A request is pending while it carries no
// claim; Claim is the single-document serialization point of accept.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a new pending request and returns it with its id.
func (s *Store) Create(ctx context.Context, r models.ServiceRequest) (models.ServiceRequest, error) {
	r.ID = primitive.NewObjectID()
	r.ClaimID = ""
	r.ClaimedAt = nil
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.ServiceRequest{}, err
	}
	return r, nil
}

// ListPending returns every unclaimed request, oldest submission first.
func (s *Store) ListPending(ctx context.Context) ([]models.ServiceRequest, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "submitted_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.c.Find(ctx, unclaimed, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ServiceRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID loads a request whether or not it is claimed.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.ServiceRequest, error) {
	var r models.ServiceRequest
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ServiceRequest{}, errs.ErrNotFound
		}
		return models.ServiceRequest{}, err
	}
	return r, nil
}

// Claim marks an unclaimed request with claimID and returns the claimed
// document. Missing or already claimed requests return errs.ErrNotFound, so
// of two concurrent claims on one id exactly one succeeds.
func (s *Store) Claim(ctx context.Context, id primitive.ObjectID, claimID string, at time.Time) (models.ServiceRequest, error) {
	filter := bson.M{"_id": id, "claim_id": bson.M{"$exists": false}}
	update := bson.M{"$set": bson.M{"claim_id": claimID, "claimed_at": at.UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var r models.ServiceRequest
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ServiceRequest{}, errs.ErrNotFound
		}
		return models.ServiceRequest{}, err
	}
	return r, nil
}

// Release drops claimID from the request, making it pending again. It
// reports whether the claim was still held.
func (s *Store) Release(ctx context.Context, id primitive.ObjectID, claimID string) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "claim_id": claimID},
		bson.M{"$unset": bson.M{"claim_id": "", "claimed_at": ""}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// DeleteClaimed removes the request held by claimID. It reports whether a
// document was deleted.
func (s *Store) DeleteClaimed(ctx context.Context, id primitive.ObjectID, claimID string) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "claim_id": claimID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// Delete removes an unclaimed request. A request being accepted is left
// alone and reported as not deleted.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "claim_id": bson.M{"$exists": false}})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// ListStaleClaims returns requests claimed before the cutoff, oldest first.
func (s *Store) ListStaleClaims(ctx context.Context, before time.Time) ([]models.ServiceRequest, error) {
	filter := bson.M{
		"claim_id":   bson.M{"$exists": true},
		"claimed_at": bson.M{"$lt": before.UTC()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "claimed_at", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ServiceRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
