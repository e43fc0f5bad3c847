package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/scythe504/impostor-backend/internal"
)

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// GetMaskedWord converts word to underscores for display, keeping spaces.
func GetMaskedWord(word string) string {
	if word == "" {
		return ""
	}
	runes := []rune(word)
	masked := make([]string, 0, len(runes))
	for _, r := range runes {
		if r == ' ' {
			masked = append(masked, " ")
		} else {
			masked = append(masked, "_")
		}
	}
	return strings.Join(masked, " ")
}

// GenerateGameID returns a new random game id.
func GenerateGameID() string {
	return uuid.NewString()
}

// PlayerID is the stable id for the roster seat at index.
func PlayerID(index int) string {
	return fmt.Sprintf("player_%d", index)
}

// ValidateGameState checks session invariants. The caller holds the session lock.
func ValidateGameState(s *internal.Session) error {
	if n := len(s.Players); n < internal.MinPlayersPerGame || n > internal.MaxPlayersPerGame {
		return fmt.Errorf("roster size %d outside %d-%d", n, internal.MinPlayersPerGame, internal.MaxPlayersPerGame)
	}

	impostors, interactive := 0, 0
	seen := make(map[string]bool, len(s.Players))
	for _, p := range s.Players {
		if seen[p.Id] {
			return fmt.Errorf("duplicate player id %s", p.Id)
		}
		seen[p.Id] = true
		if p.IsImpostor() {
			impostors++
		}
		if p.IsInteractive() {
			interactive++
		}
	}
	if impostors != 1 {
		return fmt.Errorf("expected exactly one impostor, found %d", impostors)
	}
	if interactive > 1 {
		return fmt.Errorf("expected at most one interactive player, found %d", interactive)
	}
	if s.SecretWord == "" {
		return fmt.Errorf("secret word is empty")
	}
	if s.Phase == internal.PhaseWordRound && (s.TurnIndex < 0 || s.TurnIndex > len(s.Players)) {
		return fmt.Errorf("turn index %d out of range", s.TurnIndex)
	}
	for _, v := range s.Votes {
		if voter := s.PlayerByID(v.VoterID); voter == nil || voter.IsEliminated {
			return fmt.Errorf("vote from ineligible player %s", v.VoterID)
		}
	}
	return nil
}
