package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/scythe504/impostor-backend/internal"
	"go.etcd.io/bbolt"
)

const (
	statsBucket = "stats"
	gamesBucket = "games"
)

// Bolt stores the leaderboard in an embedded bbolt file. Model totals are
// JSON values keyed by model tag; applied game ids live in their own bucket.
type Bolt struct {
	db *bbolt.DB
}

func OpenBolt(path string) (*Bolt, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("bolt path is required")
	}
	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{statsBucket, gamesBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Apply(ctx context.Context, gameID string, deltas []internal.StatDelta) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	applied := false
	err := b.db.Update(func(tx *bbolt.Tx) error {
		games := tx.Bucket([]byte(gamesBucket))
		if games.Get([]byte(gameID)) != nil {
			return nil
		}
		if err := games.Put([]byte(gameID), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
			return fmt.Errorf("mark game %s: %w", gameID, err)
		}

		stats := tx.Bucket([]byte(statsBucket))
		for _, d := range deltas {
			var total internal.StatDelta
			if raw := stats.Get([]byte(d.Model)); raw != nil {
				if err := json.Unmarshal(raw, &total); err != nil {
					return fmt.Errorf("unmarshal stats for %s: %w", d.Model, err)
				}
			}
			add(&total, d)
			payload, err := json.Marshal(total)
			if err != nil {
				return fmt.Errorf("marshal stats for %s: %w", d.Model, err)
			}
			if err := stats.Put([]byte(d.Model), payload); err != nil {
				return fmt.Errorf("put stats for %s: %w", d.Model, err)
			}
		}
		applied = true
		return nil
	})
	return applied, err
}

func (b *Bolt) Leaderboard(ctx context.Context) ([]internal.LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var stats []internal.StatDelta
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(statsBucket)).ForEach(func(_, v []byte) error {
			var s internal.StatDelta
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("unmarshal stats: %w", err)
			}
			stats = append(stats, s)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rank(stats), nil
}

func (b *Bolt) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
