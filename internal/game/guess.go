package game

import (
	"context"

	"github.com/scythe504/impostor-backend/internal"
	"github.com/scythe504/impostor-backend/internal/gate"
	"github.com/scythe504/impostor-backend/internal/moves"
	"github.com/scythe504/impostor-backend/internal/words"
)

// =============================================================================
// IMPOSTOR GUESS
// =============================================================================

// CheckGuess compares a guess with the secret word ignoring case, spacing
// and accents. An empty guess is never correct.
func CheckGuess(guess, secret string) bool {
	return words.IsMatch(guess, secret)
}

// runImpostorGuess gives the eliminated impostor one chance to name the
// secret word.
func (g *Game) runImpostorGuess(ctx context.Context, impostorID string) error {
	g.session.Mu.RLock()
	impostor := g.session.PlayerByID(impostorID)
	secret := g.session.SecretWord
	g.session.Mu.RUnlock()

	var slot *gate.Slot
	if impostor.IsInteractive() {
		slot = g.gate.Open(gate.KindGuess, 0)
	}
	if !g.enterPhase(ctx, internal.PhaseImpostorGuess, g.timing.InteractiveTimeout, nil) {
		return ctx.Err()
	}

	var guess string
	if slot != nil {
		action, err := g.awaitInteractive(ctx, slot, impostor, gate.Action{Kind: gate.KindGuess})
		g.gate.Close(gate.KindGuess)
		if err != nil {
			return err
		}
		guess = action.Text
	} else {
		if !g.commit(ctx, func(*internal.Session) []event {
			return []event{{internal.EventPlayerThinking, internal.PlayerThinkingData{
				PlayerID: impostor.Id, Name: impostor.Name, Phase: internal.PhaseImpostorGuess,
			}}}
		}) {
			return ctx.Err()
		}
		text, err := moves.Invoke(ctx, g.provider, g.request(moves.TaskGuess, impostor), moves.Guess)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.fallback(ctx, impostor, internal.PhaseImpostorGuess, err)
		}
		guess = text
	}

	correct := CheckGuess(guess, secret)
	if !g.commit(ctx, func(*internal.Session) []event {
		return []event{{internal.EventImpostorGuess, internal.ImpostorGuessData{
			PlayerID: impostor.Id,
			Guess:    guess,
			Correct:  correct,
		}}}
	}) {
		return ctx.Err()
	}
	g.logger.Infof("[ImpostorGuess] game=%s guess=%q correct=%v", g.session.Id, guess, correct)

	if err := pause(ctx, g.timing.ResultDelay); err != nil {
		return err
	}

	result := internal.Result{
		Outcome:      internal.OutcomeInformedWin,
		Winner:       internal.WinnerInformed,
		EliminatedID: impostorID,
		Guess:        guess,
		GuessMade:    true,
	}
	if correct {
		result.Outcome = internal.OutcomeImpostorGuess
		result.Winner = internal.WinnerImpostor
	}
	return g.finish(ctx, result)
}
