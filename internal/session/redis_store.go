package session

import (
	"context"
	"fmt"
	"time"

	"gymez/checkin-api/internal/config"
	"gymez/checkin-api/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	fieldCheckInID = "checkInId"
	fieldGymName   = "gymName"

	// Sessions nobody closes are dropped after this long; the sweeper
	// closes the matching check-in records well before.
	sessionTTL = 48 * time.Hour
)

// clearIfScript deletes the hash only while its check-in id matches.
var clearIfScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], ARGV[1]) == ARGV[2] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps active sessions in Redis hashes keyed by user id.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisClient builds a client from config and pings it.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisStore creates a Store. prefix namespaces keys, e.g. "gymez:".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(userID primitive.ObjectID) string {
	return s.prefix + "active_checkin:" + userID.Hex()
}

func (s *RedisStore) Get(ctx context.Context, userID primitive.ObjectID) (domain.ActiveSession, bool, error) {
	vals, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return domain.ActiveSession{}, false, err
	}
	raw, ok := vals[fieldCheckInID]
	if !ok {
		return domain.ActiveSession{}, false, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		// Unreadable entries count as absent; drop them.
		_ = s.client.Del(ctx, s.key(userID)).Err()
		return domain.ActiveSession{}, false, nil
	}
	return domain.ActiveSession{CheckInID: id, GymName: vals[fieldGymName]}, true, nil
}

func (s *RedisStore) Set(ctx context.Context, userID primitive.ObjectID, a domain.ActiveSession) error {
	key := s.key(userID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fieldCheckInID, a.CheckInID.Hex(), fieldGymName, a.GymName)
	pipe.Expire(ctx, key, sessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) ClearIf(ctx context.Context, userID, checkInID primitive.ObjectID) (bool, error) {
	n, err := clearIfScript.Run(ctx, s.client, []string{s.key(userID)}, fieldCheckInID, checkInID.Hex()).Int()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
