package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"case-trainer-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CaseLoader fetches case content from a backing store (e.g., document DB).
type CaseLoader interface {
	LoadCase(ctx context.Context, caseID string) (domain.Case, error)
}

// CaseRepository caches cases with TTL to avoid repeated DB hits.
type CaseRepository struct {
	loader CaseLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedCase
}

type cachedCase struct {
	c         domain.Case
	expiresAt time.Time
}

func NewCaseRepository(loader CaseLoader, ttl time.Duration) *CaseRepository {
	return &CaseRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedCase),
	}
}

func (r *CaseRepository) GetCase(ctx context.Context, caseID string) (domain.Case, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[caseID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.c, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(caseID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[caseID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.c, nil
		}
		r.mu.RUnlock()

		c, err := r.loader.LoadCase(ctx, caseID)
		if err != nil {
			return domain.Case{}, err
		}

		r.mu.Lock()
		r.cache[caseID] = cachedCase{
			c:         c,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return domain.Case{}, err
	}
	return result.(domain.Case), nil
}

func (r *CaseRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCaseLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticCaseLoader struct {
	cases map[string]domain.Case
}

func NewStaticCaseLoader(cases map[string]domain.Case) *StaticCaseLoader {
	return &StaticCaseLoader{cases: cases}
}

// NewStaticCaseLoaderFromData indexes a case bundle by id.
func NewStaticCaseLoaderFromData(data domain.CasesData) *StaticCaseLoader {
	cases := make(map[string]domain.Case, len(data.Cases))
	for _, c := range data.Cases {
		cases[c.ID] = c
	}
	return NewStaticCaseLoader(cases)
}

// LoadCasesFile reads a JSON case bundle ({"featured_case_id": ..., "cases": [...]}).
func LoadCasesFile(path string) (domain.CasesData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.CasesData{}, fmt.Errorf("read cases file: %w", err)
	}
	return ParseCases(raw)
}

// ParseCases decodes a JSON case bundle.
func ParseCases(raw []byte) (domain.CasesData, error) {
	var data domain.CasesData
	if err := json.Unmarshal(raw, &data); err != nil {
		return domain.CasesData{}, fmt.Errorf("unmarshal cases file: %w", err)
	}
	return data, nil
}

func (l *StaticCaseLoader) LoadCase(_ context.Context, caseID string) (domain.Case, error) {
	if c, ok := l.cases[caseID]; ok {
		return c, nil
	}
	return domain.Case{}, domain.ErrCaseNotFound
}
