package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/scythe504/impostor-backend/internal"
)

// view prints server frames for a human reader.
type view struct {
	out   io.Writer
	names map[string]string
}

func (v *view) name(id string) string {
	if n, ok := v.names[id]; ok {
		return n
	}
	return id
}

func decode[T any](raw json.RawMessage) T {
	var out T
	_ = json.Unmarshal(raw, &out)
	return out
}

func (v *view) show(msg internal.Message[json.RawMessage]) {
	switch msg.Type {
	case internal.EventGameState:
		state := decode[internal.GameStateData](msg.Data)
		fmt.Fprintf(v.out, "game %s, phase %s\n", state.GameID, state.Phase)
		for _, p := range state.Players {
			v.names[p.Id] = p.Name
			fmt.Fprintf(v.out, "  %s  %s %s\n", p.Id, p.Icon, p.Name)
		}
	case internal.EventReveal:
		r := decode[internal.RevealData](msg.Data)
		if r.IsImpostor {
			fmt.Fprintln(v.out, "*** you are the IMPOSTOR ***")
		} else {
			fmt.Fprintf(v.out, "*** the secret word is %q ***\n", r.Word)
		}
	case internal.EventPhaseChanged:
		p := decode[internal.PhaseChangedData](msg.Data)
		fmt.Fprintf(v.out, "== %s ==\n", p.Phase)
	case internal.EventTurnAdvanced:
		t := decode[internal.TurnAdvancedData](msg.Data)
		if t.Interactive {
			fmt.Fprintln(v.out, "your turn: /word <word>")
		}
	case internal.EventWordSubmitted:
		w := decode[internal.WordSubmittedData](msg.Data)
		fmt.Fprintf(v.out, "%s: %s\n", w.Name, w.Word)
	case internal.EventDebateMessage:
		d := decode[internal.DebateMessage](msg.Data)
		fmt.Fprintf(v.out, "[%s] %s\n", d.Name, d.Text)
	case internal.EventVoteCast:
		vote := decode[internal.VoteCastData](msg.Data).Vote
		if vote.Abstained() {
			fmt.Fprintf(v.out, "%s abstains\n", v.name(vote.VoterID))
		} else {
			fmt.Fprintf(v.out, "%s votes %s\n", v.name(vote.VoterID), v.name(vote.TargetID))
		}
	case internal.EventVoteResolved:
		r := decode[internal.VoteResolvedData](msg.Data)
		if r.Tie && !r.TieBreak {
			fmt.Fprintf(v.out, "tie in vote round %d, voting again\n", r.VoteRound)
		}
	case internal.EventImpostorGuess:
		g := decode[internal.ImpostorGuessData](msg.Data)
		fmt.Fprintf(v.out, "%s guesses %q (correct: %v)\n", v.name(g.PlayerID), g.Guess, g.Correct)
	case internal.EventPlayerEliminated:
		e := decode[internal.PlayerEliminatedData](msg.Data)
		fmt.Fprintf(v.out, "%s is eliminated (impostor: %v)\n", e.Name, e.WasImpostor)
	case internal.EventGameOver:
		over := decode[internal.GameOverData](msg.Data)
		fmt.Fprintf(v.out, "GAME OVER: %s wins (%s), the word was %q\n",
			over.Result.Winner, over.Result.Outcome, over.Result.SecretWord)
		if over.Final != nil {
			board := over.Final.Leaderboard
			sort.SliceStable(board, func(i, j int) bool { return board[i].Position < board[j].Position })
			for _, r := range board {
				fmt.Fprintf(v.out, "  %d. %s %d\n", r.Position, r.Name, r.Score)
			}
		}
	case internal.EventError:
		e := decode[internal.ErrorData](msg.Data)
		fmt.Fprintf(v.out, "! %s: %s\n", e.Code, e.Message)
	case internal.EventMoveFallback:
		f := decode[internal.MoveFallbackData](msg.Data)
		fmt.Fprintf(v.out, "(%s used a fallback)\n", v.name(f.PlayerID))
	}
}
