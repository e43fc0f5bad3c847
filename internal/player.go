package internal

type Player struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model,omitempty"`
	Color string `json:"color,omitempty"`
	Icon  string `json:"icon,omitempty"`

	Role Role `json:"role,omitempty"`
	Kind Kind `json:"kind"`

	// Game state
	IsEliminated bool     `json:"is_eliminated"`
	Words        []string `json:"words"`
	Score        int      `json:"score"`
}

func (p *Player) IsImpostor() bool {
	return p.Role == RoleImpostor
}

func (p *Player) IsInteractive() bool {
	return p.Kind == KindInteractive
}

// AppendWord records a word-round submission. Words are never removed.
func (p *Player) AppendWord(word string) {
	p.Words = append(p.Words, word)
}

func (p *Player) LastWord() string {
	if len(p.Words) == 0 {
		return ""
	}
	return p.Words[len(p.Words)-1]
}

// ToPublicPlayer copies the player for broadcast. The role is dropped
// unless revealRole is set.
func (p *Player) ToPublicPlayer(revealRole bool) *Player {
	public := &Player{
		Id:           p.Id,
		Name:         p.Name,
		Model:        p.Model,
		Color:        p.Color,
		Icon:         p.Icon,
		Kind:         p.Kind,
		IsEliminated: p.IsEliminated,
		Words:        append([]string(nil), p.Words...),
		Score:        p.Score,
	}
	if revealRole {
		public.Role = p.Role
	}
	return public
}
