package store

import (
	"context"
	"sync"

	"github.com/scythe504/impostor-backend/internal"
)

// Memory keeps the leaderboard in process memory.
type Memory struct {
	mu      sync.RWMutex
	applied map[string]bool
	stats   map[string]*internal.StatDelta
}

func NewMemory() *Memory {
	return &Memory{
		applied: make(map[string]bool),
		stats:   make(map[string]*internal.StatDelta),
	}
}

func (m *Memory) Apply(ctx context.Context, gameID string, deltas []internal.StatDelta) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.applied[gameID] {
		return false, nil
	}
	m.applied[gameID] = true
	for _, d := range deltas {
		s, ok := m.stats[d.Model]
		if !ok {
			s = &internal.StatDelta{}
			m.stats[d.Model] = s
		}
		add(s, d)
	}
	return true, nil
}

func (m *Memory) Leaderboard(ctx context.Context) ([]internal.LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make([]internal.StatDelta, 0, len(m.stats))
	for _, s := range m.stats {
		stats = append(stats, *s)
	}
	return rank(stats), nil
}

func (m *Memory) Close() error {
	return nil
}
