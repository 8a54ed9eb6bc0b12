// Package cache keeps the raw body of completed booking requests in Redis so
// that retries can be matched without a store round trip.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ticketbooking/entity"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "request:"
	fieldHash  = "hash"
	fieldData  = "data"
	DefaultTTL = time.Hour
)

type RequestCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRequestCache(rdb redis.Cmdable, ttl time.Duration) RequestCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return RequestCache{
		rdb: rdb,
		ttl: ttl,
	}
}

// Entry returns the cached request. An entry with missing or corrupt fields is
// reported as a miss.
func (c RequestCache) Entry(ctx context.Context, requestID string) (entity.CacheEntry, bool, error) {
	fields, err := c.rdb.HGetAll(ctx, key(requestID)).Result()
	if err != nil {
		return entity.CacheEntry{}, false, fmt.Errorf("reading cached request %s: %w", requestID, err)
	}

	hash, ok := fields[fieldHash]
	if !ok {
		return entity.CacheEntry{}, false, nil
	}
	data, ok := fields[fieldData]
	if !ok || !json.Valid([]byte(data)) {
		return entity.CacheEntry{}, false, nil
	}

	return entity.CacheEntry{
		RequestID: requestID,
		Hash:      hash,
		Body:      []byte(data),
	}, true, nil
}

func (c RequestCache) Put(ctx context.Context, requestID string, body []byte) error {
	k := key(requestID)

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, fieldHash, entity.RequestFingerprint(body), fieldData, string(body))
		pipe.Expire(ctx, k, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("caching request %s: %w", requestID, err)
	}

	return nil
}

func key(requestID string) string {
	return keyPrefix + requestID
}
