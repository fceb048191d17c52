package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"twostep-routing-service/internal/ports"
	"twostep-routing-service/internal/solver"
)

// RedisSolutionCache decorates a Solver with a read-through cache keyed
// by a hash of the serialized request. Identical sub-requests (retries,
// replayed scenarios) skip the backend entirely. Cache failures never
// fail the solve; they are logged and the call falls through.
type RedisSolutionCache struct {
	inner ports.Solver
	rdb   *redis.Client
	ttl   time.Duration
}

func NewRedisSolutionCache(inner ports.Solver, rdb *redis.Client, ttl time.Duration) *RedisSolutionCache {
	return &RedisSolutionCache{inner: inner, rdb: rdb, ttl: ttl}
}

func (c *RedisSolutionCache) OptimizeTours(ctx context.Context, req *solver.Request) (*solver.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("solution cache: encode request: %w", err)
	}
	key := fmt.Sprintf("solution:%016x", xxhash.Sum64(payload))

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var resp solver.Response
		decodeErr := json.Unmarshal(data, &resp)
		if decodeErr == nil {
			return &resp, nil
		}
		log.Printf("solution cache decode failed key=%s err=%v", key, decodeErr)
	case !errors.Is(err, redis.Nil):
		log.Printf("solution cache read failed key=%s err=%v", key, err)
	}

	resp, err := c.inner.OptimizeTours(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			log.Printf("solution cache write failed key=%s err=%v", key, err)
		}
	}

	return resp, nil
}
