package mongo

import (
	"context"
	"errors"
	"time"

	"gymez/checkin-api/internal/domain"
	"gymez/checkin-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const userGymCollectionName = "user_gyms"

type mongoUserGymRepository struct {
	collection *mongo.Collection
}

// NewMongoUserGymRepository creates a new user-gym registration repository.
func NewMongoUserGymRepository(db *mongo.Database) repository.UserGymRepository {
	return &mongoUserGymRepository{
		collection: db.Collection(userGymCollectionName),
	}
}

// GetPrimary returns the user's primary gym registration.
func (r *mongoUserGymRepository) GetPrimary(ctx context.Context, userID primitive.ObjectID) (*domain.UserGym, error) {
	var link domain.UserGym
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "isPrimary": true}).Decode(&link)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if err := checkRecord(&link); err != nil {
		return nil, err
	}
	return &link, nil
}

// ClearPrimary unsets isPrimary on every registration of the user.
func (r *mongoUserGymRepository) ClearPrimary(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"userId": userID, "isPrimary": true},
		bson.M{"$set": bson.M{"isPrimary": false}},
	)
	return err
}

// Upsert creates or updates the (userId, gymId) registration.
func (r *mongoUserGymRepository) Upsert(ctx context.Context, link *domain.UserGym) error {
	if link.UserID == primitive.NilObjectID || link.GymID == primitive.NilObjectID {
		return errors.New("user gym requires userId and gymId")
	}
	filter := bson.M{"userId": link.UserID, "gymId": link.GymID}
	update := bson.M{
		"$set":         bson.M{"isPrimary": link.IsPrimary},
		"$setOnInsert": bson.M{"createdAt": time.Now().UTC()},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func userGymIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "gymId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "isPrimary", Value: 1}},
			Options: options.Index(),
		},
	}
}
