package leads

import (
	"context"
	"fmt"
	"time"

	"github.com/n0rdy/leadflow/common"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	claimKeyPrefix = "leadflow:lead:"
)

// ClaimStore records which leads have been taken for processing.
type ClaimStore interface {
	// Claim returns false if the lead is already claimed.
	Claim(ctx context.Context, leadID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, leadID string) error
}

type RedisClaimStore struct {
	rdb redis.Cmdable
}

func NewRedisClaimStore(rdb redis.Cmdable) *RedisClaimStore {
	return &RedisClaimStore{
		rdb: rdb,
	}
}

func (rcs *RedisClaimStore) Claim(ctx context.Context, leadID string, ttl time.Duration) (bool, error) {
	claimed, err := rcs.rdb.SetNX(ctx, claimKeyPrefix+leadID, time.Now().UnixMilli(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim lead %s: %w", leadID, err)
	}
	return claimed, nil
}

func (rcs *RedisClaimStore) Release(ctx context.Context, leadID string) error {
	if err := rcs.rdb.Del(ctx, claimKeyPrefix+leadID).Err(); err != nil {
		return fmt.Errorf("release lead %s: %w", leadID, err)
	}
	return nil
}

// IdempotentHandler drops duplicate deliveries of a lead that was already handled, or is being handled elsewhere.
// A failed attempt releases its claim so the retry can run.
// A duplicate is acked optimistically: it is deleted while the claim holder may still fail, and if that holder
// then also fails to re-publish, the lead is lost.
type IdempotentHandler struct {
	next     Handler
	claims   ClaimStore
	claimTtl time.Duration
	logger   zerolog.Logger
}

func NewIdempotentHandler(next Handler, claims ClaimStore, claimTtl time.Duration, logger zerolog.Logger) *IdempotentHandler {
	return &IdempotentHandler{
		next:     next,
		claims:   claims,
		claimTtl: claimTtl,
		logger:   logger,
	}
}

func (ih *IdempotentHandler) HandleLead(ctx context.Context, lead common.Lead) error {
	claimed, err := ih.claims.Claim(ctx, lead.ID, ih.claimTtl)
	if err != nil {
		return err
	}
	if !claimed {
		ih.logger.Info().Str("lead_id", lead.ID).Msg("lead already claimed, skipping duplicate delivery")
		return nil
	}

	if err := ih.next.HandleLead(ctx, lead); err != nil {
		// the ctx may be the reason of the failure, the release must still go through
		if releaseErr := ih.claims.Release(context.WithoutCancel(ctx), lead.ID); releaseErr != nil {
			ih.logger.Error().Err(releaseErr).Str("lead_id", lead.ID).Msg("failed to release lead claim, retries will be skipped until it expires")
		}
		return err
	}
	return nil
}
