// internal/app/store/projects/projectstore.go
package projectstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/weblivery/internal/domain/errs"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the project collection.
const Collection = "projects"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts p. The unique index on source_request_id turns a second
// project for the same request into errs.ErrDuplicate.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.ToDoList == nil {
		p.ToDoList = []models.ToDoItem{}
	}
	if p.Developers == nil {
		p.Developers = []models.DeveloperSnapshot{}
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Project{}, errs.ErrDuplicate
		}
		return models.Project{}, err
	}
	return p, nil
}

// List returns every project in creation order.
func (s *Store) List(ctx context.Context) ([]models.Project, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Project{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID loads one project.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetBySourceRequest loads the project created from request id.
func (s *Store) GetBySourceRequest(ctx context.Context, requestID primitive.ObjectID) (models.Project, error) {
	return s.findOne(ctx, bson.M{"source_request_id": requestID})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Project{}, errs.ErrNotFound
		}
		return models.Project{}, err
	}
	return p, nil
}
