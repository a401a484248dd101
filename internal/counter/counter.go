// Package counter keeps the global upload tally that drives milestone broadcasts.
package counter

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/kiranshivaraju/healthradar/internal/cache"
)

// DefaultEvery is the number of uploads between milestone broadcasts.
const DefaultEvery = 4

// UploadCounter tallies completed uploads across all municipalities.
// The tally is shared: every municipality contributes to the same count.
type UploadCounter interface {
	// RecordUpload increments the tally and reports whether the new count is a milestone.
	RecordUpload(ctx context.Context, municipality string) (count int64, milestone bool, err error)
	Count(ctx context.Context) (int64, error)
	Reset(ctx context.Context) error
}

// IsMilestone reports whether count lands on a multiple of every.
func IsMilestone(count, every int64) bool {
	return every > 0 && count > 0 && count%every == 0
}

func normalizeEvery(every int64) int64 {
	if every <= 0 {
		return DefaultEvery
	}
	return every
}

// Memory is a per-process counter. It starts at 0 and is lost on restart,
// so replicas each keep their own cadence.
type Memory struct {
	n     atomic.Int64
	every int64
}

func NewMemory(every int64) *Memory {
	return &Memory{every: normalizeEvery(every)}
}

func (m *Memory) RecordUpload(_ context.Context, _ string) (int64, bool, error) {
	n := m.n.Add(1)
	return n, IsMilestone(n, m.every), nil
}

func (m *Memory) Count(_ context.Context) (int64, error) {
	return m.n.Load(), nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.n.Store(0)
	return nil
}

// Redis keeps the tally in Redis so every server instance shares one cadence.
type Redis struct {
	cache cache.Cache
	every int64
}

func NewRedis(c cache.Cache, every int64) *Redis {
	return &Redis{cache: c, every: normalizeEvery(every)}
}

func (r *Redis) RecordUpload(ctx context.Context, _ string) (int64, bool, error) {
	n, err := r.cache.Incr(ctx, cache.UploadCounterKey)
	if err != nil {
		return 0, false, fmt.Errorf("increment upload counter: %w", err)
	}
	return n, IsMilestone(n, r.every), nil
}

func (r *Redis) Count(ctx context.Context) (int64, error) {
	val, found, err := r.cache.Get(ctx, cache.UploadCounterKey)
	if err != nil {
		return 0, fmt.Errorf("read upload counter: %w", err)
	}
	if !found {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(val), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse upload counter %q: %w", val, err)
	}
	return n, nil
}

func (r *Redis) Reset(ctx context.Context) error {
	if err := r.cache.Delete(ctx, cache.UploadCounterKey); err != nil {
		return fmt.Errorf("reset upload counter: %w", err)
	}
	return nil
}

// New picks the backend named by cfg ("memory" or "redis").
func New(backend string, c cache.Cache, every int64) (UploadCounter, error) {
	switch backend {
	case "", "memory":
		return NewMemory(every), nil
	case "redis":
		if c == nil {
			return nil, fmt.Errorf("redis upload counter requires a cache")
		}
		return NewRedis(c, every), nil
	default:
		return nil, fmt.Errorf("unknown upload counter backend %q: must be memory or redis", backend)
	}
}

var (
	_ UploadCounter = (*Memory)(nil)
	_ UploadCounter = (*Redis)(nil)
)
