package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatflowers/entitlement/internal/models"
	"github.com/redis/go-redis/v9"
)

const rankKeyPrefix = "listing:rank:"

// RankKey is the sorted set holding the listings of one priority tier.
func RankKey(priority int) string {
	return fmt.Sprintf("%s%d", rankKeyPrefix, priority)
}

// ListingIndex orders listings inside their tier by last promotion time,
// newest first.
type ListingIndex struct {
	client *redis.Client
}

func NewListingIndex(client *redis.Client) *ListingIndex {
	return &ListingIndex{client: client}
}

// MoveToTop scores the listing with at so it sorts before every listing
// promoted earlier in the same tier.
func (i *ListingIndex) MoveToTop(ctx context.Context, listing *models.Listing, at time.Time) error {
	err := i.client.ZAdd(ctx, RankKey(listing.Package.Priority), redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: listing.ID,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to re-rank listing %s: %w", listing.ID, err)
	}
	return nil
}

func (i *ListingIndex) Remove(ctx context.Context, listing *models.Listing) error {
	return i.client.ZRem(ctx, RankKey(listing.Package.Priority), listing.ID).Err()
}

// Reassign moves a ranked listing from the fromPriority tier to the tier of
// its current package, keeping its promotion score. Listings that were never
// promoted are left unranked.
func (i *ListingIndex) Reassign(ctx context.Context, listing *models.Listing, fromPriority int) error {
	from, to := RankKey(fromPriority), RankKey(listing.Package.Priority)
	if from == to {
		return nil
	}
	score, err := i.client.ZScore(ctx, from, listing.ID).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read rank of listing %s: %w", listing.ID, err)
	}
	_, err = i.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, from, listing.ID)
		pipe.ZAdd(ctx, to, redis.Z{Score: score, Member: listing.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to move listing %s to %s: %w", listing.ID, to, err)
	}
	return nil
}
