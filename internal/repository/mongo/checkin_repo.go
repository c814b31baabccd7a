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

const checkInCollectionName = "gym_checkins"

// mongoCheckInRepository implements repository.CheckInRepository
type mongoCheckInRepository struct {
	collection *mongo.Collection
}

// NewMongoCheckInRepository creates a new check-in repository.
func NewMongoCheckInRepository(db *mongo.Database) repository.CheckInRepository {
	return &mongoCheckInRepository{
		collection: db.Collection(checkInCollectionName),
	}
}

// Create inserts a new open check-in.
func (r *mongoCheckInRepository) Create(ctx context.Context, checkIn *domain.CheckIn) (primitive.ObjectID, error) {
	if checkIn.UserID == primitive.NilObjectID || checkIn.GymID == primitive.NilObjectID || checkIn.CheckInTime.IsZero() {
		return primitive.NilObjectID, errors.New("check-in requires userId, gymId and checkInTime")
	}
	checkIn.ID = primitive.NewObjectID()
	checkIn.CheckOutTime = nil

	result, err := r.collection.InsertOne(ctx, checkIn)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted check-in ID")
	}
	return insertedID, nil
}

// GetByID retrieves a check-in owned by userID.
func (r *mongoCheckInRepository) GetByID(ctx context.Context, id, userID primitive.ObjectID) (*domain.CheckIn, error) {
	var checkIn domain.CheckIn
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&checkIn)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if err := checkRecord(&checkIn); err != nil {
		return nil, err
	}
	return &checkIn, nil
}

// ExistsSince reports whether userID has any check-in at or after since.
func (r *mongoCheckInRepository) ExistsSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (bool, error) {
	filter := bson.M{"userId": userID, "checkInTime": bson.M{"$gte": since}}
	n, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close sets the checkout fields if the check-in is still open.
func (r *mongoCheckInRepository) Close(ctx context.Context, id, userID primitive.ObjectID, c repository.CloseCheckIn) error {
	filter := bson.M{"_id": id, "userId": userID, "checkOutTime": nil}
	update := bson.M{
		"$set": bson.M{
			"checkOutTime":    c.CheckOutTime,
			"durationMinutes": c.DurationMinutes,
			"isVerified":      c.IsVerified,
			"closedReason":    c.Reason,
		},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound // gone, someone else's, or already closed
	}
	return nil
}

// ListByUser returns the user's check-ins, newest first.
func (r *mongoCheckInRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]domain.CheckIn, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "checkInTime", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{"userId": userID}, findOptions)
}

// FindOpenBefore returns open check-ins started before cutoff.
func (r *mongoCheckInRepository) FindOpenBefore(ctx context.Context, cutoff time.Time) ([]domain.CheckIn, error) {
	filter := bson.M{"checkOutTime": nil, "checkInTime": bson.M{"$lt": cutoff}}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "checkInTime", Value: 1}}))
}

func (r *mongoCheckInRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.CheckIn, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var checkIns []domain.CheckIn
	if err = cursor.All(ctx, &checkIns); err != nil {
		return nil, err
	}
	for i := range checkIns {
		if err := checkRecord(&checkIns[i]); err != nil {
			return nil, err
		}
	}
	return checkIns, nil
}

func checkInIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			// once-per-day lookup and history listing
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "checkInTime", Value: -1}},
			Options: options.Index(),
		},
		{
			// one check-in per user per local day; older records without the
			// field are left out of the constraint
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "checkInDay", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"checkInDay": bson.M{"$type": "string"}}),
		},
		{
			// sweeper scan for forgotten sessions
			Keys:    bson.D{{Key: "checkOutTime", Value: 1}, {Key: "checkInTime", Value: 1}},
			Options: options.Index(),
		},
	}
}
