package game

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/scythe504/impostor-backend/internal"
	"github.com/scythe504/impostor-backend/internal/gate"
	"github.com/scythe504/impostor-backend/internal/moves"
)

// =============================================================================
// GAME FLOW - PHASE MANAGEMENT
// =============================================================================

func (g *Game) run(ctx context.Context) {
	defer close(g.done)

	g.logger.Infof("[Run] game=%s starting", g.session.Id)
	err := g.play(ctx)
	g.gate.Shutdown()

	switch {
	case err == nil:
		g.logger.Infof("[Run] game=%s finished", g.session.Id)
	case errors.Is(err, context.Canceled):
		g.logger.Infof("[Run] game=%s cancelled", g.session.Id)
	default:
		g.logger.Errorf("[Run] game=%s stopped: %v", g.session.Id, err)
	}
}

func (g *Game) play(ctx context.Context) error {
	if err := g.revealWords(ctx); err != nil {
		return err
	}
	if err := g.runWordRound(ctx); err != nil {
		return err
	}
	if err := g.runDebate(ctx); err != nil {
		return err
	}
	target, err := g.runVoting(ctx)
	if err != nil {
		return err
	}
	return g.eliminate(ctx, target)
}

// enterPhase commits a phase change together with any extra mutation.
func (g *Game) enterPhase(ctx context.Context, phase internal.GamePhase, duration time.Duration, mutate func(s *internal.Session)) bool {
	return g.commit(ctx, func(s *internal.Session) []event {
		g.logger.Infof("[EnterPhase] game=%s phase %s -> %s", s.Id, s.Phase, phase)
		s.Phase = phase
		if mutate != nil {
			mutate(s)
		}
		return []event{{internal.EventPhaseChanged, internal.PhaseChangedData{
			Phase:      phase,
			Round:      s.Round,
			VoteRound:  s.VoteRound,
			DurationMs: duration.Milliseconds(),
		}}}
	})
}

// revealWords moves SETUP to WORD_REVEAL and hands each player their word.
// Only the participant socket receives the reveal; the autonomous players
// get theirs through the move requests.
func (g *Game) revealWords(ctx context.Context) error {
	if !g.enterPhase(ctx, internal.PhaseWordReveal, g.timing.WordRevealDelay, nil) {
		return ctx.Err()
	}

	g.session.Mu.RLock()
	reveal, ok := g.revealLocked()
	if ok {
		g.hub.SendParticipants(internal.EventReveal, reveal)
	}
	g.session.Mu.RUnlock()

	return pause(ctx, g.timing.WordRevealDelay)
}

// runWordRound gives every active player one word in roster order. The
// turn index only moves forward: after the participant submits, play
// resumes at the next seat.
func (g *Game) runWordRound(ctx context.Context) error {
	// a participant in the first seat gets its slot before the phase is
	// announced
	var first *gate.Slot
	g.session.Mu.RLock()
	if p := g.session.PlayerAt(0); p != nil && p.IsInteractive() && !p.IsEliminated {
		first = g.gate.Open(gate.KindWord, 0)
	}
	g.session.Mu.RUnlock()

	if !g.enterPhase(ctx, internal.PhaseWordRound, 0, func(s *internal.Session) {
		s.Round = 1
		s.TurnIndex = 0
	}) {
		return ctx.Err()
	}

	for {
		g.session.Mu.RLock()
		index := g.session.TurnIndex
		player := g.session.PlayerAt(index)
		g.session.Mu.RUnlock()

		if player == nil {
			return nil
		}
		if player.IsEliminated {
			g.commit(ctx, func(s *internal.Session) []event {
				s.TurnIndex = index + 1
				return nil
			})
			continue
		}

		word, err := g.takeWordTurn(ctx, index, player, first)
		first = nil
		if err != nil {
			return err
		}

		ok := g.commit(ctx, func(s *internal.Session) []event {
			player.AppendWord(word)
			s.WordLog = append(s.WordLog, internal.WordEntry{
				PlayerID:  player.Id,
				Name:      player.Name,
				Word:      word,
				Round:     s.Round,
				TurnIndex: index,
			})
			s.TurnIndex = index + 1
			return []event{{internal.EventWordSubmitted, internal.WordSubmittedData{
				PlayerID:  player.Id,
				Name:      player.Name,
				Word:      word,
				TurnIndex: index,
			}}}
		})
		if !ok {
			return ctx.Err()
		}
		g.logger.Debugf("[WordRound] game=%s player=%s word=%q", g.session.Id, player.Id, word)

		if err := pause(ctx, g.timing.TurnDelay); err != nil {
			return err
		}
	}
}

// takeWordTurn collects one word from player. slot is the participant's
// already opened slot, if any.
func (g *Game) takeWordTurn(ctx context.Context, index int, player *internal.Player, slot *gate.Slot) (string, error) {
	if slot == nil && player.IsInteractive() {
		// open before announcing the turn so a fast participant never sees
		// its own turn without a slot behind it
		slot = g.gate.Open(gate.KindWord, index)
	}

	turn := []event{{internal.EventTurnAdvanced, internal.TurnAdvancedData{
		PlayerID:    player.Id,
		Name:        player.Name,
		TurnIndex:   index,
		Interactive: player.IsInteractive(),
	}}}
	if !player.IsInteractive() {
		turn = append(turn, event{internal.EventPlayerThinking, internal.PlayerThinkingData{
			PlayerID: player.Id, Name: player.Name, Phase: internal.PhaseWordRound,
		}})
	}
	if !g.commit(ctx, func(*internal.Session) []event { return turn }) {
		return "", ctx.Err()
	}

	if slot != nil {
		action, err := g.awaitInteractive(ctx, slot, player, gate.Action{Kind: gate.KindWord, Text: moves.FallbackWord()})
		g.gate.Close(gate.KindWord)
		if err != nil {
			return "", err
		}
		return strings.ToLower(strings.TrimSpace(action.Text)), nil
	}

	word, err := moves.Invoke(ctx, g.provider, g.request(moves.TaskWord, player), moves.Word)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		word = moves.FallbackWord()
		g.fallback(ctx, player, internal.PhaseWordRound, err)
	}
	return word, nil
}

// awaitInteractive waits on slot. When the participant does not act in
// time the orchestrator fills the slot with fallback through the same
// compare-and-set, so a late submission and the fallback never both land.
func (g *Game) awaitInteractive(ctx context.Context, slot *gate.Slot, player *internal.Player, fallback gate.Action) (gate.Action, error) {
	action, err := g.gate.Wait(ctx, slot, g.timing.InteractiveTimeout)
	if err == nil {
		return action, nil
	}
	if !errors.Is(err, gate.ErrTimeout) {
		return gate.Action{}, err
	}

	if g.gate.Fill(slot, fallback) {
		g.logger.Warnf("[AwaitInteractive] game=%s player=%s slot=%s timed out (connected=%v), using fallback",
			g.session.Id, player.Id, slot.Kind, g.hub.ParticipantConnected())
		g.fallback(ctx, player, g.Phase(), err)
	}
	action, _ = slot.Action()
	return action, nil
}

func (g *Game) fallback(ctx context.Context, player *internal.Player, phase internal.GamePhase, cause error) {
	g.logger.Warnf("[Fallback] game=%s player=%s phase=%s: %v", g.session.Id, player.Id, phase, cause)
	g.commit(ctx, func(*internal.Session) []event {
		return []event{{internal.EventMoveFallback, internal.MoveFallbackData{
			PlayerID: player.Id,
			Phase:    phase,
			Reason:   cause.Error(),
		}}}
	})
}

// request builds the provider context for player. The impostor never sees
// the secret word.
func (g *Game) request(task moves.Task, player *internal.Player) moves.Request {
	g.session.Mu.RLock()
	defer g.session.Mu.RUnlock()

	s := g.session
	req := moves.Request{
		GameID:    s.Id,
		Task:      task,
		Player:    *player.ToPublicPlayer(true),
		Round:     s.Round,
		TurnIndex: s.TurnIndex,
		Category:  s.Category,
		WordLog:   append([]internal.WordEntry(nil), s.WordLog...),
		DebateLog: append([]internal.DebateMessage(nil), s.DebateLog...),
	}
	if !player.IsImpostor() {
		req.SecretWord = s.SecretWord
	}
	for _, p := range s.Players {
		if p.IsEliminated {
			req.Eliminated = append(req.Eliminated, p.Name)
			continue
		}
		req.Active = append(req.Active, p.Name)
		if p.Id != player.Id {
			req.Candidates = append(req.Candidates, moves.Candidate{ID: p.Id, Name: p.Name})
		}
	}
	return req
}

// eliminate marks target out and decides whether the impostor gets a guess.
func (g *Game) eliminate(ctx context.Context, targetID string) error {
	var wasImpostor bool
	ok := g.enterPhase(ctx, internal.PhaseElimination, g.timing.ResultDelay, func(s *internal.Session) {
		target := s.PlayerByID(targetID)
		target.IsEliminated = true
		wasImpostor = target.IsImpostor()
		s.DecidingVote = append([]internal.Vote(nil), s.Votes...)
	})
	if !ok {
		return ctx.Err()
	}

	ok = g.commit(ctx, func(s *internal.Session) []event {
		target := s.PlayerByID(targetID)
		return []event{{internal.EventPlayerEliminated, internal.PlayerEliminatedData{
			PlayerID:    target.Id,
			Name:        target.Name,
			WasImpostor: wasImpostor,
		}}}
	})
	if !ok {
		return ctx.Err()
	}
	g.logger.Infof("[Eliminate] game=%s player=%s impostor=%v", g.session.Id, targetID, wasImpostor)

	if err := pause(ctx, g.timing.ResultDelay); err != nil {
		return err
	}
	if wasImpostor {
		return g.runImpostorGuess(ctx, targetID)
	}
	return g.finish(ctx, internal.Result{
		Outcome:      internal.OutcomeImpostorEvasion,
		Winner:       internal.WinnerImpostor,
		EliminatedID: targetID,
	})
}

// finish commits GAME_OVER with the final scores and hands the final state
// to OnFinish.
func (g *Game) finish(ctx context.Context, result internal.Result) error {
	var final internal.GameStateData
	ok := g.enterPhase(ctx, internal.PhaseGameOver, 0, func(s *internal.Session) {
		impostor := s.Impostor()
		result.SecretWord = s.SecretWord
		result.Category = s.Category
		result.ImpostorID = impostor.Id
		result.ImpostorName = impostor.Name
		result.FinishedAt = time.Now()
		s.Result = &result
		results := CalculateFinalResults(s)
		s.Final = &results
	})
	if !ok {
		return ctx.Err()
	}

	ok = g.commit(ctx, func(s *internal.Session) []event {
		players := make([]*internal.Player, 0, len(s.Players))
		for _, p := range s.Players {
			players = append(players, p.ToPublicPlayer(true))
		}
		final = s.Snapshot(nil)
		return []event{{internal.EventGameOver, internal.GameOverData{
			Result:  *s.Result,
			Players: players,
			WordLog: append([]internal.WordEntry(nil), s.WordLog...),
			Final:   s.Final,
		}}}
	})
	if !ok {
		return ctx.Err()
	}
	final.Seq = g.hub.Seq()

	g.logger.Infof("[Finish] game=%s outcome=%s winner=%s", g.session.Id, result.Outcome, result.Winner)
	if g.onFinish != nil {
		g.onFinish(ctx, final)
	}
	return nil
}
