package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

type shard struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

// Memory is a sliding-window-log limiter kept in process memory. Keys are
// spread over shards, each guarded by its own mutex, so requests for one key
// are serialized while unrelated keys proceed in parallel.
type Memory struct {
	cfg    settings
	shards []*shard
	keys   atomic.Int64
}

// NewMemory creates an in-memory limiter.
func NewMemory(opts ...Option) *Memory {
	cfg := defaults()
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Memory{cfg: cfg, shards: make([]*shard, cfg.shards)}
	for i := range m.shards {
		m.shards[i] = &shard{hits: make(map[string][]time.Time)}
	}
	return m
}

func (m *Memory) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return m.shards[h.Sum32()%uint32(len(m.shards))]
}

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	sh := m.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := m.cfg.now()
	hits, existed := sh.hits[key]
	hits = prune(hits, now.Add(-m.cfg.window))

	if len(hits) >= m.cfg.limit {
		sh.hits[key] = hits
		return Decision{
			Allowed:    false,
			Limit:      m.cfg.limit,
			Remaining:  0,
			ResetAfter: hits[0].Add(m.cfg.window).Sub(now),
		}, nil
	}

	hits = append(hits, now)
	sh.hits[key] = hits
	if !existed {
		m.keys.Add(1)
	}
	return Decision{
		Allowed:    true,
		Limit:      m.cfg.limit,
		Remaining:  m.cfg.limit - len(hits),
		ResetAfter: hits[0].Add(m.cfg.window).Sub(now),
	}, nil
}

// prune drops timestamps at or before cutoff. hits is ascending.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}

// Sweep removes keys with no hits inside the window and returns how many were removed.
func (m *Memory) Sweep() int {
	cutoff := m.cfg.now().Add(-m.cfg.window)
	removed := 0
	for _, sh := range m.shards {
		sh.mu.Lock()
		for key, hits := range sh.hits {
			hits = prune(hits, cutoff)
			if len(hits) == 0 {
				delete(sh.hits, key)
				removed++
				continue
			}
			sh.hits[key] = hits
		}
		sh.mu.Unlock()
	}
	m.keys.Add(int64(-removed))
	return removed
}

// Run sweeps idle keys once per window until ctx is done.
func (m *Memory) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int64 {
	return m.keys.Load()
}
