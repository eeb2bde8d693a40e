package readmodel

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CachedRepository decorates a Repository with a redis read-through cache on
// single-view lookups. Save writes through so the cache never serves a view
// older than the last projection. Member and sweep queries always hit the
// underlying store; the sweep must not act on cached data anyway.
type CachedRepository struct {
	inner Repository
	redis *redis.Client
	ttl   time.Duration
}

func NewCachedRepository(inner Repository, redisClient *redis.Client, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		inner: inner,
		redis: redisClient,
		ttl:   ttl,
	}
}

func cacheKey(loanID uuid.UUID) string {
	return fmt.Sprintf("loan_view:%s", loanID)
}

func (r *CachedRepository) Save(ctx context.Context, view *LoanView) error {
	if err := r.inner.Save(ctx, view); err != nil {
		return err
	}

	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	if err := r.redis.Set(ctx, cacheKey(view.LoanID), data, r.ttl).Err(); err != nil {
		// The store is the source of the view; a cache write failure only
		// costs the next read a round trip.
		log.Printf("readmodel cache: set %s failed: %v", view.LoanID, err)
	}

	return nil
}

func (r *CachedRepository) GetByID(ctx context.Context, loanID uuid.UUID) (*LoanView, error) {
	data, err := r.redis.Get(ctx, cacheKey(loanID)).Bytes()
	if err == nil {
		var view LoanView
		if unmarshalErr := json.Unmarshal(data, &view); unmarshalErr == nil {
			return &view, nil
		}
		// Unreadable cache entry; fall through to the store.
	} else if err != redis.Nil {
		log.Printf("readmodel cache: get %s failed: %v", loanID, err)
	}

	view, err := r.inner.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if data, marshalErr := json.Marshal(view); marshalErr == nil {
		if setErr := r.redis.Set(ctx, cacheKey(loanID), data, r.ttl).Err(); setErr != nil {
			log.Printf("readmodel cache: set %s failed: %v", loanID, setErr)
		}
	}

	return view, nil
}

func (r *CachedRepository) FindByMemberID(ctx context.Context, memberID uuid.UUID) ([]*LoanView, error) {
	return r.inner.FindByMemberID(ctx, memberID)
}

func (r *CachedRepository) CountActiveForMember(ctx context.Context, memberID uuid.UUID) (int, error) {
	return r.inner.CountActiveForMember(ctx, memberID)
}

func (r *CachedRepository) FindOverdueCandidates(ctx context.Context, cutoff time.Time) ([]*LoanView, error) {
	return r.inner.FindOverdueCandidates(ctx, cutoff)
}
