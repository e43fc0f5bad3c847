package game

import (
	"slices"

	"github.com/scythe504/impostor-backend/internal"
)

// Points awarded at GAME_OVER.
const (
	PointsVoteCorrect        = 10
	PointsImpostorEliminated = 5
	PointsImpostorGuessed    = -5
	PointsImpostorNotFound   = 15
	PointsImpostorGuessWord  = 20
	PointsEliminatedInnocent = -3
)

// CalculateFinalResults scores a finished game, ranks the players and
// builds the per-model stat deltas. Player scores are updated in place.
// The caller holds the session lock and s.Result is set.
func CalculateFinalResults(s *internal.Session) internal.FinalResults {
	result := s.Result
	impostor := s.Impostor()

	votedImpostor := make(map[string]bool)
	for _, v := range s.DecidingVote {
		if impostor != nil && v.TargetID == impostor.Id {
			votedImpostor[v.VoterID] = true
		}
	}

	for _, p := range s.Players {
		switch result.Outcome {
		case internal.OutcomeInformedWin:
			if !p.IsImpostor() {
				p.Score += PointsImpostorEliminated
				if votedImpostor[p.Id] {
					p.Score += PointsVoteCorrect
				}
			}
		case internal.OutcomeImpostorGuess:
			if p.IsImpostor() {
				p.Score += PointsImpostorGuessWord
			} else {
				p.Score += PointsImpostorGuessed
			}
		case internal.OutcomeImpostorEvasion:
			if p.IsImpostor() {
				p.Score += PointsImpostorNotFound
			} else if p.Id == result.EliminatedID {
				p.Score += PointsEliminatedInnocent
			}
		}
	}

	leaderboard := make([]internal.GameResultData, 0, len(s.Players))
	for _, p := range s.Players {
		leaderboard = append(leaderboard, internal.GameResultData{
			PlayerID: p.Id,
			Name:     p.Name,
			Model:    p.Model,
			Role:     p.Role,
			Score:    p.Score,
		})
	}
	slices.SortStableFunc(leaderboard, func(a, b internal.GameResultData) int {
		return b.Score - a.Score
	})
	for idx := range leaderboard {
		leaderboard[idx].Position = idx + 1
	}

	final := internal.FinalResults{
		Leaderboard: leaderboard,
		Deltas:      statDeltas(s, votedImpostor),
		VoteRounds:  s.VoteRound,
	}
	if len(leaderboard) > 0 {
		mvp := leaderboard[0]
		final.MVP = &mvp
	}
	return final
}

// statDeltas merges one delta per autonomous seat into one per model, in
// roster order. Vote accuracy counts informed voters in the deciding round.
func statDeltas(s *internal.Session, votedImpostor map[string]bool) []internal.StatDelta {
	winner := s.Result.Winner
	byModel := make(map[string]*internal.StatDelta)
	var order []string

	for _, p := range s.Players {
		if p.IsInteractive() || p.Model == "" {
			continue
		}
		d, ok := byModel[p.Model]
		if !ok {
			d = &internal.StatDelta{Model: p.Model}
			byModel[p.Model] = d
			order = append(order, p.Model)
		}
		d.Score += p.Score
		d.GamesPlayed++
		if p.IsImpostor() {
			d.TimesImpostor++
			if winner == internal.WinnerImpostor {
				d.WinsAsImpostor++
			}
			if s.Result.Outcome == internal.OutcomeImpostorGuess {
				d.CorrectGuesses++
			}
			continue
		}
		if winner == internal.WinnerInformed {
			d.WinsAsInformed++
		}
		for _, v := range s.DecidingVote {
			if v.VoterID == p.Id && !v.Abstained() {
				d.TotalVotes++
				if votedImpostor[p.Id] {
					d.CorrectVotes++
				}
			}
		}
	}

	deltas := make([]internal.StatDelta, 0, len(order))
	for _, model := range order {
		deltas = append(deltas, *byModel[model])
	}
	return deltas
}
