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

const monthlyRewardCollectionName = "monthly_rewards"

type mongoMonthlyRewardRepository struct {
	collection *mongo.Collection
}

// NewMongoMonthlyRewardRepository creates a new monthly reward repository.
func NewMongoMonthlyRewardRepository(db *mongo.Database) repository.MonthlyRewardRepository {
	return &mongoMonthlyRewardRepository{
		collection: db.Collection(monthlyRewardCollectionName),
	}
}

func periodFilter(userID primitive.ObjectID, p domain.Period) bson.M {
	return bson.M{"userId": userID, "month": p.Month, "year": p.Year}
}

// Get returns the counter for the period, or ErrNotFound if none exists yet.
func (r *mongoMonthlyRewardRepository) Get(ctx context.Context, userID primitive.ObjectID, p domain.Period) (*domain.MonthlyReward, error) {
	var rec domain.MonthlyReward
	err := r.collection.FindOne(ctx, periodFilter(userID, p)).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if err := checkRecord(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Increment atomically adds one verified workout, creating the record on
// first use. The unique (userId, year, month) index makes concurrent
// first increments safe; the loser retries once as a plain update.
func (r *mongoMonthlyRewardRepository) Increment(ctx context.Context, userID primitive.ObjectID, p domain.Period) (*domain.MonthlyReward, error) {
	update := bson.M{
		"$inc": bson.M{"verifiedWorkouts": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
		"$setOnInsert": bson.M{
			"rewardTier":         nil,
			"discountPercentage": 0,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var rec domain.MonthlyReward
	err := r.collection.FindOneAndUpdate(ctx, periodFilter(userID, p), update, opts).Decode(&rec)
	if mongo.IsDuplicateKeyError(err) {
		err = r.collection.FindOneAndUpdate(ctx, periodFilter(userID, p), update, opts).Decode(&rec)
	}
	if err != nil {
		return nil, err
	}
	if err := checkRecord(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetTier stores the tier derived from the current counter.
func (r *mongoMonthlyRewardRepository) SetTier(ctx context.Context, id primitive.ObjectID, tier *string, discountPercentage int) error {
	update := bson.M{
		"$set": bson.M{
			"rewardTier":         tier,
			"discountPercentage": discountPercentage,
			"updatedAt":          time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetRedemption writes code only when the record has none yet.
func (r *mongoMonthlyRewardRepository) SetRedemption(ctx context.Context, id primitive.ObjectID, code string, at time.Time) (*domain.MonthlyReward, error) {
	filter := bson.M{"_id": id, "redemptionCode": bson.M{"$exists": false}}
	update := bson.M{"$set": bson.M{"redemptionCode": code, "redeemedAt": at, "updatedAt": time.Now().UTC()}}
	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return nil, err
	}

	var rec domain.MonthlyReward
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if err := checkRecord(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func monthlyRewardIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "year", Value: 1}, {Key: "month", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
}
