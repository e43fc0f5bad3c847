package roster

import "strings"

// ModelConfig describes one autonomous player model.
type ModelConfig struct {
	Model       string `json:"model"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

// Catalog is the pool of models a roster can draw from.
var Catalog = []ModelConfig{
	{Model: "gemma3:4b", DisplayName: "gemma3", Color: "#FF6B6B", Icon: "💎"},
	{Model: "mistral:7b", DisplayName: "mistral", Color: "#4ECDC4", Icon: "🌪️"},
	{Model: "olmo2:7b", DisplayName: "olmo2", Color: "#45B7D1", Icon: "🧠"},
	{Model: "dolphin-mistral:7b", DisplayName: "dolphin", Color: "#96CEB4", Icon: "🐬"},
	{Model: "qwen3:8b", DisplayName: "qwen3", Color: "#DDA0DD", Icon: "🐼"},
	{Model: "llama3.2:3b-instruct-q4_0", DisplayName: "llama3.2", Color: "#FFA500", Icon: "🦙"},
}

// DefaultModels is the quick-start lineup.
var DefaultModels = []string{"gemma3", "mistral", "olmo2", "dolphin", "qwen3"}

var greekNames = []string{"Alfa", "Beta", "Gamma", "Delta", "Epsilon", "Zeta", "Eta"}

var seatColors = []string{"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#DDA0DD", "#FFA500", "#A3A1FF"}

const (
	InteractiveColor = "#FFFFFF"
	InteractiveIcon  = "🧑"
	DefaultHumanName = "Tú"
)

// Lookup finds a model by display name or model tag.
func Lookup(name string) (ModelConfig, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, m := range Catalog {
		if strings.ToLower(m.DisplayName) == name || strings.ToLower(m.Model) == name {
			return m, true
		}
	}
	return ModelConfig{}, false
}
