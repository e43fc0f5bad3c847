package utils

import (
	"testing"

	"github.com/scythe504/impostor-backend/internal"
	"github.com/stretchr/testify/assert"
)

func TestGetMaskedWord(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", GetMaskedWord(""))
	assert.Equal(t, "_ _ _ _ _", GetMaskedWord("hotel"))
	assert.Equal(t, "_ _ _ _", GetMaskedWord("niño"))
	assert.Equal(t, "_ _   _", GetMaskedWord("ab c"))
}

func newSession() *internal.Session {
	return &internal.Session{
		Id:         "g1",
		SecretWord: "hotel",
		Players: []*internal.Player{
			{Id: PlayerID(0), Role: internal.RoleInformed, Kind: internal.KindAutonomous},
			{Id: PlayerID(1), Role: internal.RoleImpostor, Kind: internal.KindAutonomous},
			{Id: PlayerID(2), Role: internal.RoleInformed, Kind: internal.KindInteractive},
		},
	}
}

func TestValidateGameState(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateGameState(newSession()))

	s := newSession()
	s.Players[0].Role = internal.RoleImpostor
	assert.Error(t, ValidateGameState(s))

	s = newSession()
	s.Players = s.Players[:2]
	assert.Error(t, ValidateGameState(s))

	s = newSession()
	s.Players[1].IsEliminated = true
	s.Votes = []internal.Vote{{VoterID: PlayerID(1), TargetID: PlayerID(0)}}
	assert.Error(t, ValidateGameState(s))
}

func TestPlayerID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "player_3", PlayerID(3))
	assert.NotEqual(t, GenerateGameID(), GenerateGameID())
}
