package game

import (
	"context"
	"slices"
	"time"

	"github.com/scythe504/impostor-backend/internal"
	apperrors "github.com/scythe504/impostor-backend/internal/errors"
	"github.com/scythe504/impostor-backend/internal/gate"
	"github.com/scythe504/impostor-backend/internal/moves"
)

// =============================================================================
// VOTING
// =============================================================================

// CheckVote reports whether voter may vote for target in the current round.
// An empty target is an abstention. The caller holds the session lock.
func CheckVote(s *internal.Session, voterID, targetID string) error {
	voter := s.PlayerByID(voterID)
	if voter == nil || voter.IsEliminated {
		return apperrors.WithMetadata(apperrors.CodeNotEligible, "voter cannot vote",
			map[string]string{"voter_id": voterID})
	}
	if s.HasVoted(voterID) {
		return apperrors.ErrDuplicateAction
	}
	if targetID == "" {
		return nil
	}
	target := s.PlayerByID(targetID)
	switch {
	case target == nil:
		return apperrors.WithMetadata(apperrors.CodeInvalidTarget, "unknown target",
			map[string]string{"target_id": targetID})
	case target.IsEliminated:
		return apperrors.WithMetadata(apperrors.CodeInvalidTarget, "target is eliminated",
			map[string]string{"target_id": targetID})
	case target.Id == voterID:
		return apperrors.WithMetadata(apperrors.CodeInvalidTarget, "cannot vote for yourself",
			map[string]string{"target_id": targetID})
	}
	return nil
}

// RecordVote validates and appends a vote, updating the live tally.
// The caller holds the session lock.
func RecordVote(s *internal.Session, vote internal.Vote) (internal.Vote, error) {
	if err := CheckVote(s, vote.VoterID, vote.TargetID); err != nil {
		return internal.Vote{}, err
	}
	vote.Order = len(s.Votes)
	if vote.At.IsZero() {
		vote.At = time.Now()
	}
	s.Votes = append(s.Votes, vote)
	s.LastTally = Tally(s.Votes)
	return vote, nil
}

// Tally counts votes per target. Abstentions are not counted.
func Tally(votes []internal.Vote) map[string]int {
	tally := make(map[string]int)
	for _, v := range votes {
		if !v.Abstained() {
			tally[v.TargetID]++
		}
	}
	return tally
}

// Resolution is the outcome of one voting round.
type Resolution struct {
	Tally map[string]int
	// Target is set when one target has strictly more votes than any other.
	Target string
	// Tied lists the targets sharing the maximum, sorted. It is empty when
	// every vote abstained.
	Tied []string
}

func (r Resolution) Decisive() bool {
	return r.Target != ""
}

// Resolve applies the strict-maximum rule to a round of votes.
func Resolve(votes []internal.Vote) Resolution {
	res := Resolution{Tally: Tally(votes)}
	best := 0
	for target, n := range res.Tally {
		switch {
		case n > best:
			best = n
			res.Tied = []string{target}
		case n == best:
			res.Tied = append(res.Tied, target)
		}
	}
	slices.Sort(res.Tied)
	if len(res.Tied) == 1 {
		res.Target = res.Tied[0]
		res.Tied = nil
	}
	return res
}

// runVoting repeats voting rounds until one resolves to an elimination.
// A tie voids the round; once the configured number of consecutive ties is
// reached a random tied player is eliminated instead.
func (g *Game) runVoting(ctx context.Context) (string, error) {
	for {
		slot := g.openVoteSlot()
		if !g.enterPhase(ctx, internal.PhaseVoting, 0, func(s *internal.Session) {
			s.VoteRound++
			s.Votes = nil
			s.LastTally = map[string]int{}
		}) {
			return "", ctx.Err()
		}

		if err := g.collectVotes(ctx, slot); err != nil {
			return "", err
		}

		target, done := g.resolveRound(ctx)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if done {
			return target, nil
		}
		if err := pause(ctx, g.timing.ResultDelay); err != nil {
			return "", err
		}
	}
}

// openVoteSlot opens the participant's slot for the coming voting round,
// before the round is announced. It returns nil when no active participant
// is seated.
func (g *Game) openVoteSlot() *gate.Slot {
	g.session.Mu.RLock()
	defer g.session.Mu.RUnlock()

	human := g.session.Interactive()
	if human == nil || human.IsEliminated {
		return nil
	}
	return g.gate.Open(gate.KindVote, g.session.VoteRound+1)
}

// collectVotes gathers one vote from every active player. The participant
// slot is watched while autonomous votes are requested, so an early
// participant vote is recorded as soon as it arrives and never requested
// again. The round is not resolved until both sides are in.
func (g *Game) collectVotes(ctx context.Context, slot *gate.Slot) error {
	g.session.Mu.RLock()
	active := g.session.ActivePlayers()
	human := g.session.Interactive()
	g.session.Mu.RUnlock()

	var filled <-chan struct{}
	if slot != nil {
		filled = slot.Filled()
	}
	defer g.gate.Close(gate.KindVote)

	takeHuman := func() {
		action, _ := slot.Action()
		g.castVote(ctx, human, action.TargetID, action.Justification)
		filled = nil
	}

	for _, player := range active {
		if player.IsInteractive() {
			continue
		}
		if !g.commit(ctx, func(*internal.Session) []event {
			return []event{{internal.EventPlayerThinking, internal.PlayerThinkingData{
				PlayerID: player.Id, Name: player.Name, Phase: internal.PhaseVoting,
			}}}
		}) {
			return ctx.Err()
		}

		req := g.request(moves.TaskVote, player)
		results := make(chan moveResult[moves.VoteChoice], 1)
		go func() {
			choice, err := moves.Invoke(ctx, g.provider, req, func(raw string) (moves.VoteChoice, bool) {
				return moves.Vote(raw, req.Candidates)
			})
			results <- moveResult[moves.VoteChoice]{choice, err}
		}()

	wait:
		for {
			select {
			case res := <-results:
				if res.err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					g.fallback(ctx, player, internal.PhaseVoting, res.err)
					g.castVote(ctx, player, "", "")
				} else {
					g.castVote(ctx, player, res.value.TargetID, res.value.Justification)
				}
				break wait
			case <-filled:
				takeHuman()
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := pause(ctx, g.timing.VoteDelay); err != nil {
			return err
		}
	}

	if slot != nil && filled != nil {
		action, err := g.awaitInteractive(ctx, slot, human, gate.Action{Kind: gate.KindVote})
		if err != nil {
			return err
		}
		g.castVote(ctx, human, action.TargetID, action.Justification)
	}
	return nil
}

// castVote records a vote and broadcasts it with the live tally. A target
// that fails validation is recorded as an abstention.
func (g *Game) castVote(ctx context.Context, voter *internal.Player, targetID, justification string) {
	g.commit(ctx, func(s *internal.Session) []event {
		vote, err := RecordVote(s, internal.Vote{VoterID: voter.Id, TargetID: targetID, Justification: justification})
		if err != nil && targetID != "" && apperrors.CodeOf(err) == apperrors.CodeInvalidTarget {
			g.logger.Warnf("[CastVote] game=%s voter=%s invalid target %s, abstaining", s.Id, voter.Id, targetID)
			vote, err = RecordVote(s, internal.Vote{VoterID: voter.Id, Justification: justification})
		}
		if err != nil {
			g.logger.Warnf("[CastVote] game=%s voter=%s rejected: %v", s.Id, voter.Id, err)
			return nil
		}

		tally := make(map[string]int, len(s.LastTally))
		for k, v := range s.LastTally {
			tally[k] = v
		}
		return []event{{internal.EventVoteCast, internal.VoteCastData{Vote: vote, Tally: tally}}}
	})
}

// resolveRound commits the result of the finished round. It returns the
// player to eliminate and true when the round was decisive or tie-broken.
func (g *Game) resolveRound(ctx context.Context) (string, bool) {
	var target string
	var done bool

	g.commit(ctx, func(s *internal.Session) []event {
		if !s.HasEveryoneVoted() {
			g.logger.Errorf("[ResolveVote] game=%s round=%d resolving with %d/%d votes",
				s.Id, s.VoteRound, len(s.Votes), len(s.ActivePlayers()))
		}
		res := Resolve(s.Votes)
		data := internal.VoteResolvedData{
			VoteRound: s.VoteRound,
			Tally:     res.Tally,
			Votes:     append([]internal.Vote(nil), s.Votes...),
		}

		switch {
		case res.Decisive():
			s.TieCount = 0
			target, done = res.Target, true
		default:
			s.TieCount++
			data.Tie = true
			data.Tied = res.Tied
			if s.TieCount >= max(g.timing.TieBreakAfter, 1) {
				pool := res.Tied
				if len(pool) == 0 {
					for _, p := range s.ActivePlayers() {
						pool = append(pool, p.Id)
					}
				}
				target, done = pool[g.pick(len(pool))], true
				data.TieBreak = true
				s.TieCount = 0
			} else {
				// void round: the tally is cleared before the re-vote
				s.LastTally = map[string]int{}
			}
		}
		data.EliminatedID = target
		g.logger.Infof("[ResolveVote] game=%s round=%d tally=%v tie=%v eliminated=%q",
			s.Id, s.VoteRound, res.Tally, data.Tie, target)
		return []event{{internal.EventVoteResolved, data}}
	})
	return target, done
}
