package game

import (
	"context"
	"errors"
	"time"

	"github.com/scythe504/impostor-backend/internal"
	"github.com/scythe504/impostor-backend/internal/moves"
)

// =============================================================================
// DEBATE
// =============================================================================

type moveResult[T any] struct {
	value T
	err   error
}

func (g *Game) debateSettings() (rounds int, duration time.Duration) {
	rounds, duration = g.timing.DebateRounds, g.timing.DebateDuration
	if g.session.Config.DebateRounds > 0 {
		rounds = g.session.Config.DebateRounds
	}
	if g.session.Config.DebateDuration > 0 {
		duration = time.Duration(g.session.Config.DebateDuration) * time.Second
	}
	if rounds <= 0 {
		rounds = internal.DebatePhaseRounds
	}
	if duration <= 0 {
		duration = internal.DebatePhaseTime
	}
	return rounds, duration
}

// runDebate runs the bounded round-robin discussion. Participant messages
// are appended as they arrive, between or during autonomous turns. The
// countdown ends the phase even in the middle of a round.
func (g *Game) runDebate(ctx context.Context) error {
	rounds, duration := g.debateSettings()
	endsAt := time.Now().Add(duration)

	if !g.enterPhase(ctx, internal.PhaseDebate, duration, func(s *internal.Session) {
		s.DebateEndsAt = endsAt
	}) {
		return ctx.Err()
	}

	g.session.Mu.RLock()
	human := g.session.Interactive()
	g.session.Mu.RUnlock()
	if human != nil && !human.IsEliminated {
		g.gate.OpenDebate()
	}

	debateCtx, cancel := context.WithDeadline(ctx, endsAt)
	defer cancel()
	stop := g.startCountdown(debateCtx, internal.PhaseDebate, endsAt)

	err := g.debateRounds(ctx, debateCtx, rounds, human)

	stop()
	g.gate.CloseDebate()
	if human != nil {
		g.drainDebate(ctx, human)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	g.stopTimer(ctx, internal.PhaseDebate)
	g.logger.Infof("[Debate] game=%s ended (timeout=%v)", g.session.Id, errors.Is(err, context.DeadlineExceeded))
	return nil
}

// Participant messages are committed under parent so a message taken off
// the queue at the deadline is still recorded.
func (g *Game) debateRounds(parent, ctx context.Context, rounds int, human *internal.Player) error {
	for round := 1; round <= rounds; round++ {
		g.session.Mu.RLock()
		active := g.session.ActivePlayers()
		g.session.Mu.RUnlock()

		for _, player := range active {
			if player.IsInteractive() {
				continue
			}
			if err := g.debateTurn(parent, ctx, player, human); err != nil {
				return err
			}
			if err := g.pauseDebate(parent, ctx, g.timing.TurnDelay, human); err != nil {
				return err
			}
		}
		g.logger.Debugf("[Debate] game=%s round %d/%d done", g.session.Id, round, rounds)
	}
	return nil
}

// debateTurn asks player for a message while still accepting participant
// messages. A pass appends nothing.
func (g *Game) debateTurn(parent, ctx context.Context, player, human *internal.Player) error {
	if !g.commit(ctx, func(*internal.Session) []event {
		return []event{{internal.EventPlayerThinking, internal.PlayerThinkingData{
			PlayerID: player.Id, Name: player.Name, Phase: internal.PhaseDebate,
		}}}
	}) {
		return ctx.Err()
	}

	req := g.request(moves.TaskDebate, player)
	secret := g.session.SecretWord
	results := make(chan moveResult[string], 1)
	go func() {
		text, err := moves.Invoke(ctx, g.provider, req, func(raw string) (string, bool) {
			return moves.Debate(raw, secret)
		})
		results <- moveResult[string]{text, err}
	}()

	for {
		select {
		case res := <-results:
			if res.err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				g.fallback(ctx, player, internal.PhaseDebate, res.err)
				return nil
			}
			g.appendDebate(ctx, player, res.value)
			return nil
		case text := <-g.gate.Debate():
			g.appendDebate(parent, human, text)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (g *Game) pauseDebate(parent, ctx context.Context, d time.Duration, human *internal.Player) error {
	t := time.NewTimer(max(d, 0))
	defer t.Stop()
	for {
		select {
		case <-t.C:
			return nil
		case text := <-g.gate.Debate():
			g.appendDebate(parent, human, text)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// drainDebate appends participant messages accepted before the gate closed.
func (g *Game) drainDebate(ctx context.Context, human *internal.Player) {
	for {
		select {
		case text := <-g.gate.Debate():
			g.appendDebate(ctx, human, text)
		default:
			return
		}
	}
}

func (g *Game) appendDebate(ctx context.Context, player *internal.Player, text string) {
	g.commit(ctx, func(s *internal.Session) []event {
		msg := internal.DebateMessage{
			PlayerID:    player.Id,
			Name:        player.Name,
			Text:        text,
			Order:       len(s.DebateLog),
			Interactive: player.IsInteractive(),
			At:          time.Now(),
		}
		s.DebateLog = append(s.DebateLog, msg)
		return []event{{internal.EventDebateMessage, msg}}
	})
}
