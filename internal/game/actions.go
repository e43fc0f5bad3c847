package game

import (
	"strings"

	"github.com/scythe504/impostor-backend/internal"
	apperrors "github.com/scythe504/impostor-backend/internal/errors"
	"github.com/scythe504/impostor-backend/internal/gate"
	"github.com/scythe504/impostor-backend/internal/moves"
)

// =============================================================================
// PARTICIPANT ACTIONS
// =============================================================================

// Action is an inbound request from the participant session.
type Action struct {
	Type          string `json:"type"`
	Text          string `json:"text,omitempty"`
	TargetID      string `json:"target_id,omitempty"`
	Justification string `json:"justification,omitempty"`
}

// Submit validates a participant action against the current phase and the
// participant's eligibility, then hands it to the gate. It never mutates
// the session; a rejected action leaves no trace.
func (g *Game) Submit(a Action) error {
	g.session.Mu.RLock()
	phase := g.session.Phase
	human := g.session.Interactive()
	var err error
	if human == nil {
		err = apperrors.WithMetadata(apperrors.CodeNotEligible, "game has no interactive player",
			map[string]string{"game_id": g.session.Id})
	} else {
		err = g.checkActionLocked(a, phase, human)
	}
	g.session.Mu.RUnlock()
	if err != nil {
		return err
	}

	switch a.Type {
	case internal.ActionPlayerWord:
		return g.gate.Submit(gate.Action{Kind: gate.KindWord, Text: strings.TrimSpace(a.Text)})
	case internal.ActionDebateMessage:
		return g.gate.SubmitDebate(moves.CensorSecret(strings.TrimSpace(a.Text), g.session.SecretWord))
	case internal.ActionCastVote:
		return g.gate.Submit(gate.Action{Kind: gate.KindVote, TargetID: a.TargetID, Justification: strings.TrimSpace(a.Justification)})
	case internal.ActionImpostorGuess:
		return g.gate.Submit(gate.Action{Kind: gate.KindGuess, Text: strings.TrimSpace(a.Text)})
	}
	return apperrors.WithMetadata(apperrors.CodeInvalidAction, "unknown action",
		map[string]string{"type": a.Type})
}

func wrongPhase(action string, phase internal.GamePhase) error {
	return apperrors.WithMetadata(apperrors.CodeWrongPhase, action+" not allowed in this phase",
		map[string]string{"phase": string(phase)})
}

func (g *Game) checkActionLocked(a Action, phase internal.GamePhase, human *internal.Player) error {
	s := g.session
	switch a.Type {
	case internal.ActionPlayerWord:
		if phase != internal.PhaseWordRound {
			return wrongPhase(a.Type, phase)
		}
		if current := s.PlayerAt(s.TurnIndex); current == nil || current.Id != human.Id {
			return apperrors.New(apperrors.CodeNotEligible, "not your turn")
		}
		if fields := strings.Fields(a.Text); len(fields) != 1 {
			return apperrors.New(apperrors.CodeInvalidAction, "submit exactly one word")
		}

	case internal.ActionDebateMessage:
		if phase != internal.PhaseDebate {
			return wrongPhase(a.Type, phase)
		}
		if human.IsEliminated {
			return apperrors.ErrNotEligible
		}
		if strings.TrimSpace(a.Text) == "" {
			return apperrors.New(apperrors.CodeInvalidAction, "message is empty")
		}

	case internal.ActionCastVote:
		if phase != internal.PhaseVoting {
			return wrongPhase(a.Type, phase)
		}
		if a.TargetID == "" {
			return apperrors.New(apperrors.CodeInvalidTarget, "target_id is required")
		}
		return CheckVote(s, human.Id, a.TargetID)

	case internal.ActionImpostorGuess:
		if phase != internal.PhaseImpostorGuess {
			return wrongPhase(a.Type, phase)
		}
		if !human.IsImpostor() {
			return apperrors.New(apperrors.CodeNotEligible, "only the impostor guesses")
		}
		if strings.TrimSpace(a.Text) == "" {
			return apperrors.New(apperrors.CodeInvalidAction, "guess is empty")
		}

	default:
		return apperrors.WithMetadata(apperrors.CodeInvalidAction, "unknown action",
			map[string]string{"type": a.Type})
	}
	return nil
}
