package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scythe504/impostor-backend/internal"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line     string
		wantType string
		wantData any
		wantErr  bool
	}{
		{line: "/start", wantType: internal.ActionStartGame},
		{line: "/word llave", wantType: internal.ActionPlayerWord, wantData: "llave"},
		{line: "/guess  hotel ", wantType: internal.ActionImpostorGuess, wantData: "hotel"},
		{line: "/vote player_2 dijo algo raro", wantType: internal.ActionCastVote,
			wantData: internal.CastVoteData{TargetID: "player_2", Justification: "dijo algo raro"}},
		{line: "/vote player_2", wantType: internal.ActionCastVote, wantData: internal.CastVoteData{TargetID: "player_2"}},
		{line: "creo que fue Beta", wantType: internal.ActionDebateMessage, wantData: "creo que fue Beta"},
		{line: "/word", wantErr: true},
		{line: "/vote", wantErr: true},
		{line: "/dance", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()
			msgType, data, err := parseCommand(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, msgType)
			assert.Equal(t, tt.wantData, data)
		})
	}
}

func TestViewShowsVotesByName(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	v := &view{out: &out, names: make(map[string]string)}

	frame := func(eventType string, data any) internal.Message[json.RawMessage] {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		return internal.Message[json.RawMessage]{Type: eventType, Data: raw}
	}

	v.show(frame(internal.EventGameState, internal.GameStateData{
		GameID:  "g1",
		Phase:   internal.PhaseSetup,
		Players: []*internal.Player{{Id: "player_0", Name: "Ana"}, {Id: "player_1", Name: "gemma3"}},
	}))
	v.show(frame(internal.EventVoteCast, internal.VoteCastData{Vote: internal.Vote{VoterID: "player_0", TargetID: "player_1"}}))
	v.show(frame(internal.EventVoteCast, internal.VoteCastData{Vote: internal.Vote{VoterID: "player_1"}}))

	assert.Contains(t, out.String(), "Ana votes gemma3")
	assert.Contains(t, out.String(), "gemma3 abstains")
}
