package roster

import (
	"testing"

	"github.com/scythe504/impostor-backend/internal"
	apperrors "github.com/scythe504/impostor-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestBuildAssignsExactlyOneImpostor(t *testing.T) {
	t.Parallel()

	for size := internal.MinPlayersPerGame; size <= internal.MaxPlayersPerGame; size++ {
		for trial := 0; trial < 20; trial++ {
			players, err := Build(internal.GameConfig{SingleModel: "gemma3", PlayerCount: size}, nil)
			require.NoError(t, err)
			require.Len(t, players, size)

			impostors := 0
			for _, p := range players {
				if p.IsImpostor() {
					impostors++
				}
			}
			assert.Equal(t, 1, impostors, "size %d", size)
		}
	}
}

func TestBuildPinnedPositions(t *testing.T) {
	t.Parallel()

	players, err := Build(internal.GameConfig{
		Mode:                internal.ModePlay,
		Players:             []string{"gemma3", "mistral", "olmo2", "dolphin"},
		InteractivePosition: intPtr(2),
		InteractiveName:     "Ana",
		ImpostorPosition:    intPtr(3),
	}, nil)
	require.NoError(t, err)
	require.Len(t, players, 5)

	assert.Equal(t, "player_2", players[2].Id)
	assert.Equal(t, internal.KindInteractive, players[2].Kind)
	assert.Equal(t, "Ana", players[2].Name)
	assert.Equal(t, "olmo2", players[3].Name)
	assert.True(t, players[3].IsImpostor())
	assert.Equal(t, "player_4", players[4].Id)
}

func TestBuildDefaultsAndDuplicates(t *testing.T) {
	t.Parallel()

	players, err := Build(internal.GameConfig{}, func(int) int { return 0 })
	require.NoError(t, err)
	require.Len(t, players, len(DefaultModels))
	assert.True(t, players[0].IsImpostor())

	players, err = Build(internal.GameConfig{Players: []string{"qwen3", "qwen3", "mistral"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "qwen3", players[0].Name)
	assert.Equal(t, "qwen3 2", players[1].Name)
}

func TestBuildRejectsInvalidRosters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  internal.GameConfig
	}{
		{name: "too few", cfg: internal.GameConfig{Players: []string{"gemma3", "qwen3"}}},
		{name: "too many", cfg: internal.GameConfig{
			Mode:    internal.ModePlay,
			Players: []string{"gemma3", "mistral", "olmo2", "dolphin", "qwen3", "llama3.2", "gemma3"},
		}},
		{name: "unknown model", cfg: internal.GameConfig{Players: []string{"gemma3", "gpt9", "qwen3"}}},
		{name: "impostor out of range", cfg: internal.GameConfig{ImpostorPosition: intPtr(9)}},
		{name: "interactive out of range", cfg: internal.GameConfig{Mode: internal.ModePlay, InteractivePosition: intPtr(-1)}},
		{name: "single model count", cfg: internal.GameConfig{SingleModel: "gemma3", PlayerCount: 8}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Build(tc.cfg, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidRoster)
		})
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	m, ok := Lookup("QWEN3")
	require.True(t, ok)
	assert.Equal(t, "qwen3:8b", m.Model)

	_, ok = Lookup("qwen3:8b")
	assert.True(t, ok)

	_, ok = Lookup("nope")
	assert.False(t, ok)
}
