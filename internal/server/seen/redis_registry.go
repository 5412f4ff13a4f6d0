package seen

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/enoylitydev/Collabglam-sub004/pkg/log"
)

// RedisConfig holds connection parameters for the redis-backed registry.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RedisRegistry stores seen state in a redis hash per room, so multiple
// server instances share one view.
type RedisRegistry struct {
	client *redis.Client
	prefix string
}

// NewRedisRegistry connects and pings the redis backend.
func NewRedisRegistry(cfg RedisConfig) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "chat:seen"
	}

	return &RedisRegistry{client: client, prefix: prefix}, nil
}

func (r *RedisRegistry) keyFor(roomID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, roomID)
}

// MarkSeen records that the user has seen the room as of now.
func (r *RedisRegistry) MarkSeen(ctx context.Context, roomID, userID string) error {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := r.client.HSet(ctx, r.keyFor(roomID), userID, ts).Err(); err != nil {
		return fmt.Errorf("failed to mark seen: %w", err)
	}
	log.Ctx(ctx).Debug().Str(log.FieldRoomID, roomID).Str(log.FieldUserID, userID).Msg("marked seen")
	return nil
}

// LastSeen returns when the user last saw the room.
func (r *RedisRegistry) LastSeen(ctx context.Context, roomID, userID string) (time.Time, bool, error) {
	val, err := r.client.HGet(ctx, r.keyFor(roomID), userID).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read seen state: %w", err)
	}
	millis, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt seen timestamp %q: %w", val, err)
	}
	return time.UnixMilli(millis), true, nil
}

// Close releases the redis connection.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
