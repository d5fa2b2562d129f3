package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key the state document is stored under.
const DefaultRedisKey = "tap-sendgrid:state"

// Prometheus metrics for state store operations.
var stateErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sendgrid_state_errors_total",
	Help: "Total state store errors by operation",
}, []string{"operation"})

// RedisStore persists state in Redis, for deployments where the tap runs on
// ephemeral workers without a stable filesystem.
type RedisStore struct {
	redis *redis.Client
	key   string
}

// NewRedisStore creates a Redis-backed store. An empty key selects
// DefaultRedisKey.
func NewRedisStore(redisClient *redis.Client, key string) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{
		redis: redisClient,
		key:   key,
	}
}

// Load reads the state document. A missing key yields a fresh state.
func (r *RedisStore) Load(ctx context.Context) (*State, error) {
	data, err := r.redis.Get(ctx, r.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return New(), nil
		}
		stateErrors.WithLabelValues("load").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		stateErrors.WithLabelValues("load").Inc()
		return nil, fmt.Errorf("parse state at %s: %w", r.key, err)
	}
	st.normalize()
	return &st, nil
}

// Save writes the state document. No TTL: bookmarks must outlive any idle
// period between runs.
func (r *RedisStore) Save(ctx context.Context, st *State) error {
	data, err := json.Marshal(st)
	if err != nil {
		stateErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := r.redis.Set(ctx, r.key, data, 0).Err(); err != nil {
		stateErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
