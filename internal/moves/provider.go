package moves

import (
	"context"
	"errors"
	"fmt"

	"github.com/scythe504/impostor-backend/internal"
)

// Task names the kind of move being requested.
type Task string

const (
	TaskWord   Task = "word"
	TaskDebate Task = "debate"
	TaskVote   Task = "vote"
	TaskGuess  Task = "guess"
)

// Candidate is a player a vote may name.
type Candidate struct {
	ID   string
	Name string
}

// Request is the structured context handed to a Provider.
type Request struct {
	GameID     string
	Task       Task
	Player     internal.Player
	Round      int
	TurnIndex  int
	SecretWord string // empty when Player is the impostor
	Category   string
	WordLog    []internal.WordEntry
	DebateLog  []internal.DebateMessage
	Candidates []Candidate
	Active     []string
	Eliminated []string
}

// Provider produces a raw textual move for an autonomous player.
type Provider interface {
	Move(ctx context.Context, req Request) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (string, error)

func (f ProviderFunc) Move(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// ErrUnusable is returned by Invoke when both attempts failed.
var ErrUnusable = errors.New("move unusable after retry")

const attempts = 2

// Invoke asks p for a move and parses it, retrying once with the same
// request. Callers substitute a fallback when ErrUnusable is returned.
func Invoke[T any](ctx context.Context, p Provider, req Request, parse func(string) (T, bool)) (T, error) {
	var zero T
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		raw, err := p.Move(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			lastErr = err
			continue
		}
		if v, ok := parse(raw); ok {
			return v, nil
		}
		lastErr = fmt.Errorf("unparseable %s response %q", req.Task, raw)
	}
	return zero, fmt.Errorf("%w: %v", ErrUnusable, lastErr)
}
