package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/scythe504/impostor-backend/internal"
)

// Store persists cumulative per-model results.
type Store interface {
	// Apply adds one finished game's deltas. Applying the same game id
	// twice is a no-op and reports false.
	Apply(ctx context.Context, gameID string, deltas []internal.StatDelta) (bool, error)
	// Leaderboard returns every model sorted by score.
	Leaderboard(ctx context.Context) ([]internal.LeaderboardEntry, error)
	Close() error
}

var ErrUnknownDriver = errors.New("unknown store driver")

// Open builds the Store named by driver.
func Open(ctx context.Context, driver, databaseURL, boltPath string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", "memory":
		return NewMemory(), nil
	case "bolt", "bbolt":
		return OpenBolt(boltPath)
	case "postgres", "postgresql":
		return OpenPostgres(ctx, databaseURL)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

func add(dst *internal.StatDelta, d internal.StatDelta) {
	dst.Model = d.Model
	dst.Score += d.Score
	dst.GamesPlayed += d.GamesPlayed
	dst.WinsAsInformed += d.WinsAsInformed
	dst.WinsAsImpostor += d.WinsAsImpostor
	dst.TimesImpostor += d.TimesImpostor
	dst.CorrectGuesses += d.CorrectGuesses
	dst.CorrectVotes += d.CorrectVotes
	dst.TotalVotes += d.TotalVotes
}

// VoteAccuracy is correct votes as a percentage rounded to one decimal.
func VoteAccuracy(s internal.StatDelta) float64 {
	if s.TotalVotes == 0 {
		return 0
	}
	return math.Round(float64(s.CorrectVotes)/float64(s.TotalVotes)*1000) / 10
}

// rank turns raw totals into leaderboard entries, highest score first and
// then by model name.
func rank(stats []internal.StatDelta) []internal.LeaderboardEntry {
	entries := make([]internal.LeaderboardEntry, 0, len(stats))
	for _, s := range stats {
		entries = append(entries, internal.LeaderboardEntry{StatDelta: s, VoteAccuracy: VoteAccuracy(s)})
	}
	slices.SortFunc(entries, func(a, b internal.LeaderboardEntry) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return strings.Compare(a.Model, b.Model)
	})
	return entries
}
