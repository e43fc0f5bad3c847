package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scythe504/impostor-backend/internal"
)

const schema = `
CREATE TABLE IF NOT EXISTS applied_games (
	game_id    TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS model_stats (
	model            TEXT PRIMARY KEY,
	score            INTEGER NOT NULL DEFAULT 0,
	games_played     INTEGER NOT NULL DEFAULT 0,
	wins_as_informed INTEGER NOT NULL DEFAULT 0,
	wins_as_impostor INTEGER NOT NULL DEFAULT 0,
	times_impostor   INTEGER NOT NULL DEFAULT 0,
	correct_guesses  INTEGER NOT NULL DEFAULT 0,
	correct_votes    INTEGER NOT NULL DEFAULT 0,
	total_votes      INTEGER NOT NULL DEFAULT 0
);`

const upsertStats = `
INSERT INTO model_stats (model, score, games_played, wins_as_informed, wins_as_impostor,
	times_impostor, correct_guesses, correct_votes, total_votes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (model) DO UPDATE SET
	score            = model_stats.score + EXCLUDED.score,
	games_played     = model_stats.games_played + EXCLUDED.games_played,
	wins_as_informed = model_stats.wins_as_informed + EXCLUDED.wins_as_informed,
	wins_as_impostor = model_stats.wins_as_impostor + EXCLUDED.wins_as_impostor,
	times_impostor   = model_stats.times_impostor + EXCLUDED.times_impostor,
	correct_guesses  = model_stats.correct_guesses + EXCLUDED.correct_guesses,
	correct_votes    = model_stats.correct_votes + EXCLUDED.correct_votes,
	total_votes      = model_stats.total_votes + EXCLUDED.total_votes`

// Postgres stores the leaderboard in PostgreSQL through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Apply(ctx context.Context, gameID string, deltas []internal.StatDelta) (applied bool, err error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil || !applied {
			_ = tx.Rollback(ctx)
		}
	}()

	var inserted string
	err = tx.QueryRow(ctx,
		`INSERT INTO applied_games (game_id) VALUES ($1) ON CONFLICT DO NOTHING RETURNING game_id`,
		gameID).Scan(&inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mark game %s: %w", gameID, err)
	}

	batch := &pgx.Batch{}
	for _, d := range deltas {
		batch.Queue(upsertStats, d.Model, d.Score, d.GamesPlayed, d.WinsAsInformed, d.WinsAsImpostor,
			d.TimesImpostor, d.CorrectGuesses, d.CorrectVotes, d.TotalVotes)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return false, fmt.Errorf("upsert stats: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func (p *Postgres) Leaderboard(ctx context.Context) ([]internal.LeaderboardEntry, error) {
	rows, err := p.pool.Query(ctx, `SELECT model, score, games_played, wins_as_informed, wins_as_impostor,
		times_impostor, correct_guesses, correct_votes, total_votes FROM model_stats`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	stats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (internal.StatDelta, error) {
		var s internal.StatDelta
		err := row.Scan(&s.Model, &s.Score, &s.GamesPlayed, &s.WinsAsInformed, &s.WinsAsImpostor,
			&s.TimesImpostor, &s.CorrectGuesses, &s.CorrectVotes, &s.TotalVotes)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan stats: %w", err)
	}
	return rank(stats), nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
