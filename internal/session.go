package internal

import (
	"sync"
	"time"
)

// Session is the authoritative record of one game. Only the game's
// orchestrator mutates it, always while holding Mu.
type Session struct {
	Id        string
	Config    GameConfig
	Players   []*Player
	CreatedAt time.Time

	// Game State
	Phase      GamePhase
	Round      int
	TurnIndex  int
	SecretWord string
	Category   string

	// Logs
	WordLog   []WordEntry
	DebateLog []DebateMessage

	// Voting State
	Votes        []Vote
	VoteRound    int
	TieCount     int
	LastTally    map[string]int
	DecidingVote []Vote

	Result *Result
	Final  *FinalResults

	// Seq is the sequence number of the last committed event.
	Seq uint64

	// DebateEndsAt is set while the debate countdown runs.
	DebateEndsAt time.Time

	Mu sync.RWMutex
}

// Methods (Session Struct)

func (s *Session) PlayerByID(id string) *Player {
	for _, p := range s.Players {
		if p.Id == id {
			return p
		}
	}
	return nil
}

func (s *Session) PlayerAt(index int) *Player {
	if index < 0 || index >= len(s.Players) {
		return nil
	}
	return s.Players[index]
}

func (s *Session) Impostor() *Player {
	for _, p := range s.Players {
		if p.IsImpostor() {
			return p
		}
	}
	return nil
}

func (s *Session) Interactive() *Player {
	for _, p := range s.Players {
		if p.IsInteractive() {
			return p
		}
	}
	return nil
}

func (s *Session) ActivePlayers() []*Player {
	active := make([]*Player, 0, len(s.Players))
	for _, p := range s.Players {
		if !p.IsEliminated {
			active = append(active, p)
		}
	}
	return active
}

func (s *Session) HasVoted(playerID string) bool {
	for _, v := range s.Votes {
		if v.VoterID == playerID {
			return true
		}
	}
	return false
}

// HasEveryoneVoted reports whether every non-eliminated player has a
// recorded vote in the current voting round.
func (s *Session) HasEveryoneVoted() bool {
	for _, p := range s.ActivePlayers() {
		if !s.HasVoted(p.Id) {
			return false
		}
	}
	return true
}

// RevealFor returns what a player is told at WORD_REVEAL.
func (s *Session) RevealFor(p *Player) string {
	if p.IsImpostor() {
		return ImpostorSentinel
	}
	return s.SecretWord
}

// Snapshot builds the full public state. The secret word and roles are
// only included once the game is over.
func (s *Session) Snapshot(maskWord func(string) string) GameStateData {
	over := s.Phase == PhaseGameOver

	state := GameStateData{
		GameID:    s.Id,
		Mode:      s.Config.Mode,
		Phase:     s.Phase,
		Round:     s.Round,
		TurnIndex: s.TurnIndex,
		Category:  s.Category,
		WordLog:   append([]WordEntry(nil), s.WordLog...),
		DebateLog: append([]DebateMessage(nil), s.DebateLog...),
		Votes:     append([]Vote(nil), s.Votes...),
		VoteRound: s.VoteRound,
		Result:    s.Result,
		Final:     s.Final,
		Seq:       s.Seq,
		CreatedAt: s.CreatedAt,
	}
	for _, p := range s.Players {
		state.Players = append(state.Players, p.ToPublicPlayer(over))
	}
	if s.Phase == PhaseWordRound {
		if current := s.PlayerAt(s.TurnIndex); current != nil {
			state.CurrentPlayer = current.Id
		}
	}
	if s.LastTally != nil {
		state.Tally = make(map[string]int, len(s.LastTally))
		for k, v := range s.LastTally {
			state.Tally[k] = v
		}
	}
	if !s.DebateEndsAt.IsZero() && s.Phase == PhaseDebate {
		state.TimeRemaining = max(time.Until(s.DebateEndsAt), 0).Milliseconds()
	}

	switch {
	case over:
		state.SecretWord = s.SecretWord
	case maskWord != nil:
		state.SecretWord = maskWord(s.SecretWord)
	}
	return state
}
