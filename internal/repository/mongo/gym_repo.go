package mongo

import (
	"context"
	"errors"
	"time"

	"gymez/checkin-api/internal/domain"
	"gymez/checkin-api/internal/geo"
	"gymez/checkin-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const gymCollectionName = "gyms"

// mongoGymRepository implements repository.GymRepository
type mongoGymRepository struct {
	collection *mongo.Collection
}

// NewMongoGymRepository creates a new Gym repository.
func NewMongoGymRepository(db *mongo.Database) repository.GymRepository {
	return &mongoGymRepository{
		collection: db.Collection(gymCollectionName),
	}
}

// Create inserts a new gym.
func (r *mongoGymRepository) Create(ctx context.Context, gym *domain.Gym) (primitive.ObjectID, error) {
	if gym.Name == "" {
		return primitive.NilObjectID, errors.New("gym requires a name")
	}
	if !gym.Location().Valid() {
		return primitive.NilObjectID, errors.New("gym requires valid coordinates")
	}
	gym.ID = primitive.NewObjectID()
	gym.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, gym)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted gym ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single gym by its ID.
func (r *mongoGymRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Gym, error) {
	var gym domain.Gym
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&gym)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if err := checkRecord(&gym); err != nil {
		return nil, err
	}
	return &gym, nil
}

// FindInBox returns gyms inside box. Documents that fail validation are skipped.
func (r *mongoGymRepository) FindInBox(ctx context.Context, box geo.Box) ([]domain.Gym, error) {
	filter := bson.M{
		"latitude":  bson.M{"$gte": box.MinLat, "$lte": box.MaxLat},
		"longitude": bson.M{"$gte": box.MinLon, "$lte": box.MaxLon},
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var gyms []domain.Gym
	for cursor.Next(ctx) {
		var gym domain.Gym
		if err := cursor.Decode(&gym); err != nil {
			return nil, err
		}
		if checkRecord(&gym) != nil {
			continue
		}
		gyms = append(gyms, gym)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return gyms, nil
}

func gymIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "latitude", Value: 1}, {Key: "longitude", Value: 1}},
			Options: options.Index(),
		},
	}
}
