package roster

import (
	"fmt"

	"github.com/scythe504/impostor-backend/internal"
	apperrors "github.com/scythe504/impostor-backend/internal/errors"
	"github.com/scythe504/impostor-backend/internal/utils"
	"github.com/valyala/fastrand"
)

// Picker returns a uniformly random index in [0, n).
type Picker func(n int) int

// FastPicker is the default Picker.
func FastPicker(n int) int {
	return int(fastrand.Uint32n(uint32(n)))
}

const defaultSingleModelSeats = 5

// Build validates cfg and returns the ordered roster with roles assigned.
// Exactly one seat is the impostor and at most one seat is interactive.
func Build(cfg internal.GameConfig, pick Picker) ([]*internal.Player, error) {
	if pick == nil {
		pick = FastPicker
	}

	seats, err := autonomousSeats(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Mode == internal.ModePlay {
		var position int
		if cfg.InteractivePosition != nil {
			position = *cfg.InteractivePosition
		} else {
			position = pick(len(seats) + 1)
		}
		if position < 0 || position > len(seats) {
			return nil, apperrors.WithMetadata(apperrors.CodeInvalidRoster, "interactive position out of range",
				map[string]string{"position": fmt.Sprint(position)})
		}
		name := cfg.InteractiveName
		if name == "" {
			name = DefaultHumanName
		}
		human := &internal.Player{
			Name:  name,
			Color: InteractiveColor,
			Icon:  InteractiveIcon,
			Kind:  internal.KindInteractive,
		}
		seats = append(seats[:position], append([]*internal.Player{human}, seats[position:]...)...)
	}

	if n := len(seats); n < internal.MinPlayersPerGame || n > internal.MaxPlayersPerGame {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidRoster,
			fmt.Sprintf("roster needs %d-%d players, got %d", internal.MinPlayersPerGame, internal.MaxPlayersPerGame, n),
			map[string]string{"size": fmt.Sprint(n)})
	}

	var impostor int
	if cfg.ImpostorPosition != nil {
		impostor = *cfg.ImpostorPosition
		if impostor < 0 || impostor >= len(seats) {
			return nil, apperrors.WithMetadata(apperrors.CodeInvalidRoster, "impostor position out of range",
				map[string]string{"position": fmt.Sprint(impostor)})
		}
	} else {
		impostor = pick(len(seats))
	}

	names := make(map[string]int, len(seats))
	for i, p := range seats {
		p.Id = utils.PlayerID(i)
		p.Role = internal.RoleInformed
		if i == impostor {
			p.Role = internal.RoleImpostor
		}
		if p.Color == "" {
			p.Color = seatColors[i%len(seatColors)]
		}
		p.Words = make([]string, 0, 1)

		names[p.Name]++
		if names[p.Name] > 1 {
			p.Name = fmt.Sprintf("%s %d", p.Name, names[p.Name])
		}
	}
	return seats, nil
}

func autonomousSeats(cfg internal.GameConfig) ([]*internal.Player, error) {
	if cfg.SingleModel != "" {
		model, ok := Lookup(cfg.SingleModel)
		if !ok {
			return nil, apperrors.WithMetadata(apperrors.CodeInvalidRoster, "unknown model",
				map[string]string{"model": cfg.SingleModel})
		}
		count := cfg.PlayerCount
		if count == 0 {
			count = defaultSingleModelSeats
		}
		if count < 1 || count > len(greekNames) {
			return nil, apperrors.WithMetadata(apperrors.CodeInvalidRoster, "player count out of range",
				map[string]string{"player_count": fmt.Sprint(count)})
		}
		seats := make([]*internal.Player, 0, count)
		for i := 0; i < count; i++ {
			seats = append(seats, &internal.Player{
				Name:  greekNames[i],
				Model: model.Model,
				Color: seatColors[i%len(seatColors)],
				Icon:  model.Icon,
				Kind:  internal.KindAutonomous,
			})
		}
		return seats, nil
	}

	names := cfg.Players
	if len(names) == 0 {
		names = DefaultModels
	}
	seats := make([]*internal.Player, 0, len(names))
	for _, name := range names {
		model, ok := Lookup(name)
		if !ok {
			return nil, apperrors.WithMetadata(apperrors.CodeInvalidRoster, "unknown model",
				map[string]string{"model": name})
		}
		seats = append(seats, &internal.Player{
			Name:  model.DisplayName,
			Model: model.Model,
			Color: model.Color,
			Icon:  model.Icon,
			Kind:  internal.KindAutonomous,
		})
	}
	return seats, nil
}
