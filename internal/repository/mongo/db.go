package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// The driver connects lazily; ping so a bad URI fails at startup.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}
	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection used by the service.
// Failures are logged and do not stop the server.
func EnsureIndexes(ctx context.Context, db *mongo.Database, log *zap.Logger) {
	ensure := func(name string, models []mongo.IndexModel) {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			log.Warn("failed to create indexes", zap.String("collection", name), zap.Error(err))
		}
	}
	ensure(userCollectionName, userIndexes())
	ensure(gymCollectionName, gymIndexes())
	ensure(userGymCollectionName, userGymIndexes())
	ensure(checkInCollectionName, checkInIndexes())
	ensure(monthlyRewardCollectionName, monthlyRewardIndexes())
	log.Info("index creation process completed")
}
