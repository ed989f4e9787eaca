package redis

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"sync"
	"time"

	"case-trainer-service/internal/domain"
	"case-trainer-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CaseRepository caches whole cases in Redis and falls back to a loader on cache miss.
// Cases are stored as: SET case:{caseID} {case JSON} EX ttl
type CaseRepository struct {
	client *redis.Client
	loader memory.CaseLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewCaseRepository(client *redis.Client, loader memory.CaseLoader, ttl time.Duration) *CaseRepository {
	return &CaseRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CaseRepository) GetCase(ctx context.Context, caseID string) (domain.Case, error) {
	if c, ok := r.cached(ctx, caseID); ok {
		return c, nil
	}

	result, err, _ := r.sf.Do(caseID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if c, ok := r.cached(ctx, caseID); ok {
			return c, nil
		}

		c, err := r.loader.LoadCase(ctx, caseID)
		if err != nil {
			return domain.Case{}, err
		}

		raw, err := json.Marshal(c)
		if err != nil {
			return c, nil
		}
		if err := r.client.Set(ctx, r.caseKey(caseID), raw, r.ttlWithJitter()).Err(); err != nil {
			log.Printf("warn: cache case %s: %v", caseID, err)
		}
		return c, nil
	})
	if err != nil {
		return domain.Case{}, err
	}
	return result.(domain.Case), nil
}

// Invalidate drops a cached case so the next read goes to the loader.
func (r *CaseRepository) Invalidate(ctx context.Context, caseID string) error {
	return r.client.Del(ctx, r.caseKey(caseID)).Err()
}

func (r *CaseRepository) cached(ctx context.Context, caseID string) (domain.Case, bool) {
	raw, err := r.client.Get(ctx, r.caseKey(caseID)).Bytes()
	if err != nil {
		return domain.Case{}, false
	}
	var c domain.Case
	if err := json.Unmarshal(raw, &c); err != nil {
		log.Printf("warn: dropping unreadable cached case %s: %v", caseID, err)
		return domain.Case{}, false
	}
	return c, true
}

func (r *CaseRepository) caseKey(caseID string) string {
	return "case:" + caseID
}

func (r *CaseRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
