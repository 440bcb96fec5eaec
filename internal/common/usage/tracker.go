// Package usage keeps a running estimate of cloud spend per UTC day.
package usage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Stats struct {
	TotalCost               float64 `json:"totalCost"`
	BudgetLimit             float64 `json:"budgetLimit"`
	RequestsToday           int64   `json:"requestsToday"`
	EstimatedCostPerRequest float64 `json:"estimatedCostPerRequest"`
}

// OverBudget reports whether the accumulated estimate has reached the budget.
func (s Stats) OverBudget() bool {
	return s.BudgetLimit > 0 && s.TotalCost >= s.BudgetLimit
}

type Tracker interface {
	Record(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}

func dayKey(t time.Time) string {
	return t.UTC().Format("20060102")
}

// RedisTracker stores a per-day request counter and a running cost total.
type RedisTracker struct {
	client         redis.Cmdable
	prefix         string
	costPerRequest float64
	budget         float64
	now            func() time.Time
}

func NewRedisTracker(client redis.Cmdable, prefix string, costPerRequest, budget float64) *RedisTracker {
	return &RedisTracker{
		client:         client,
		prefix:         prefix,
		costPerRequest: costPerRequest,
		budget:         budget,
		now:            time.Now,
	}
}

func (t *RedisTracker) requestsKey() string {
	return t.prefix + "requests:" + dayKey(t.now())
}

func (t *RedisTracker) costKey() string {
	return t.prefix + "cost:total"
}

func (t *RedisTracker) Record(ctx context.Context) error {
	key := t.requestsKey()
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, 48*time.Hour)
		pipe.IncrByFloat(ctx, t.costKey(), t.costPerRequest)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func (t *RedisTracker) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{BudgetLimit: t.budget, EstimatedCostPerRequest: t.costPerRequest}

	requests, err := t.client.Get(ctx, t.requestsKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return stats, fmt.Errorf("read request count: %w", err)
	}
	stats.RequestsToday = requests

	total, err := t.client.Get(ctx, t.costKey()).Float64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return stats, fmt.Errorf("read total cost: %w", err)
	}
	stats.TotalCost = total

	return stats, nil
}

// MemoryTracker is the single-process fallback used when Redis is not configured.
type MemoryTracker struct {
	mu             sync.Mutex
	costPerRequest float64
	budget         float64
	day            string
	requests       int64
	total          float64
	now            func() time.Time
}

func NewMemoryTracker(costPerRequest, budget float64) *MemoryTracker {
	return &MemoryTracker{costPerRequest: costPerRequest, budget: budget, now: time.Now}
}

func (t *MemoryTracker) Record(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover()
	t.requests++
	t.total += t.costPerRequest
	return nil
}

func (t *MemoryTracker) Stats(ctx context.Context) (Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover()
	return Stats{
		TotalCost:               t.total,
		BudgetLimit:             t.budget,
		RequestsToday:           t.requests,
		EstimatedCostPerRequest: t.costPerRequest,
	}, nil
}

func (t *MemoryTracker) rollover() {
	if today := dayKey(t.now()); today != t.day {
		t.day = today
		t.requests = 0
	}
}
