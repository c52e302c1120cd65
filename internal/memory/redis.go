package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	redisIndexKey  = "jobengine:opportunities"
	redisKeyPrefix = "jobengine:opp:"
)

// RedisStore keeps one hash per opportunity (vector and payload as JSON) plus
// a set index for scanning. Similarity search is brute-force cosine over the
// index; upserts are per-key atomic, which is all the contract needs.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore parses redisURL and verifies connectivity.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Upsert(ctx context.Context, key string, vector []float32, payload Payload) error {
	vectorJSON, err := json.Marshal(vector)
	if err != nil {
		return err
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, redisKeyPrefix+key, map[string]any{
		"vector":  string(vectorJSON),
		"payload": string(payloadJSON),
	})
	pipe.SAdd(ctx, redisIndexKey, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis upsert %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) QuerySimilar(ctx context.Context, vector []float32, threshold float64) ([]Match, error) {
	keys, err := s.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis index scan: %w", err)
	}

	var matches []Match
	for _, key := range keys {
		fields, err := s.client.HGetAll(ctx, redisKeyPrefix+key).Result()
		if err != nil {
			return nil, fmt.Errorf("redis read %q: %w", key, err)
		}

		var stored []float32
		if err := json.Unmarshal([]byte(fields["vector"]), &stored); err != nil {
			// Skip entries written by an incompatible version.
			continue
		}

		similarity := Cosine(vector, stored)
		if similarity < threshold {
			continue
		}

		var payload Payload
		_ = json.Unmarshal([]byte(fields["payload"]), &payload)

		matches = append(matches, Match{
			Key:        key,
			Similarity: similarity,
			Payload:    payload,
		})
	}

	return matches, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
