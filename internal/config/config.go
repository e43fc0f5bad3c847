package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration for the game server.
type Config struct {
	Port       int    `env:"PORT" envDefault:"8080"`
	Debug      bool   `env:"DEBUG" envDefault:"false"`
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"*"`
	PublicURL  string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	Game    Game
	Store   Store
	LLM     LLM
	Archive int `env:"ARCHIVE_SIZE" envDefault:"64"`
}

// Game holds orchestration timing and policy knobs.
type Game struct {
	WordRevealDelay    time.Duration `env:"WORD_REVEAL_DELAY" envDefault:"3s"`
	TurnDelay          time.Duration `env:"TURN_DELAY" envDefault:"1s"`
	DebateRounds       int           `env:"DEBATE_ROUNDS" envDefault:"5"`
	DebateDuration     time.Duration `env:"DEBATE_DURATION" envDefault:"60s"`
	VoteDelay          time.Duration `env:"VOTE_DELAY" envDefault:"500ms"`
	ResultDelay        time.Duration `env:"RESULT_DELAY" envDefault:"3s"`
	InteractiveTimeout time.Duration `env:"INTERACTIVE_TIMEOUT" envDefault:"120s"`
	TieBreakAfter      int           `env:"TIE_BREAK_AFTER" envDefault:"2"`
	ObserverBuffer     int           `env:"OBSERVER_BUFFER" envDefault:"256"`
}

// Store selects the leaderboard backend.
type Store struct {
	Driver      string `env:"STORE_DRIVER" envDefault:"memory"`
	DatabaseURL string `env:"DATABASE_URL"`
	BoltPath    string `env:"BOLT_PATH" envDefault:"impostor.db"`
}

// LLM configures the OpenAI-compatible move provider.
type LLM struct {
	BaseURL     string        `env:"LLM_BASE_URL" envDefault:"http://localhost:11434/v1/"`
	APIKey      string        `env:"LLM_API_KEY" envDefault:"ollama"`
	Timeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	Temperature float64       `env:"LLM_TEMPERATURE" envDefault:"0.8"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "bolt":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Game.DebateRounds < 1 {
		return fmt.Errorf("DEBATE_ROUNDS must be positive, got %d", c.Game.DebateRounds)
	}
	if c.Game.TieBreakAfter < 1 {
		return fmt.Errorf("TIE_BREAK_AFTER must be positive, got %d", c.Game.TieBreakAfter)
	}
	if c.Game.ObserverBuffer < 1 {
		return fmt.Errorf("OBSERVER_BUFFER must be positive, got %d", c.Game.ObserverBuffer)
	}
	return nil
}
