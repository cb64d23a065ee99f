package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/intellicoi/coi-backend/internal/logger"
)

// RedisJobStore backs the simulator with Redis so simulated jobs survive
// restarts and are visible across replicas in shared dev environments.
type RedisJobStore struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedisJobStore(log *logger.Logger) (*RedisJobStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisJobStore{
		log: log.With("service", "RedisJobStore"),
		rdb: rdb,
		ttl: 24 * time.Hour,
	}, nil
}

func jobKey(jobID string) string {
	return "extraction:job:" + jobID
}

func (s *RedisJobStore) Set(ctx context.Context, jobID string, result *ExtractionJobResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, jobKey(jobID), raw, s.ttl).Err()
}

func (s *RedisJobStore) Get(ctx context.Context, jobID string) (*ExtractionJobResult, error) {
	raw, err := s.rdb.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, fmt.Errorf("extraction job %q not found", jobID)
		}
		return nil, err
	}
	var result ExtractionJobResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *RedisJobStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
