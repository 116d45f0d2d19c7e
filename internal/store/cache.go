// internal/store/cache.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"buyer-group-workers/internal/buyergroup"

	"github.com/redis/go-redis/v9"
)

const candidateKeyPrefix = "buyer-group:candidates:"

// CandidateCache keeps a company's candidate list in Redis as JSON.
type CandidateCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCandidateCache(client *redis.Client, ttl time.Duration) *CandidateCache {
	return &CandidateCache{client: client, ttl: ttl}
}

func candidateKey(scope buyergroup.Scope) string {
	return candidateKeyPrefix + scope.WorkspaceID + ":" + scope.CompanyID
}

// Get returns the cached list and whether it was present.
func (c *CandidateCache) Get(ctx context.Context, scope buyergroup.Scope) ([]buyergroup.PersonCandidate, bool, error) {
	val, err := c.client.Get(ctx, candidateKey(scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached candidates: %w", err)
	}

	var candidates []buyergroup.PersonCandidate
	if err := json.Unmarshal(val, &candidates); err != nil {
		return nil, false, fmt.Errorf("decode cached candidates: %w", err)
	}
	return candidates, true, nil
}

func (c *CandidateCache) Set(ctx context.Context, scope buyergroup.Scope, candidates []buyergroup.PersonCandidate) error {
	data, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}
	if err := c.client.Set(ctx, candidateKey(scope), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache candidates: %w", err)
	}
	return nil
}

// Invalidate drops the cached list, e.g. after enrichment changed a row.
func (c *CandidateCache) Invalidate(ctx context.Context, scope buyergroup.Scope) error {
	if err := c.client.Del(ctx, candidateKey(scope)).Err(); err != nil {
		return fmt.Errorf("invalidate candidates: %w", err)
	}
	return nil
}
