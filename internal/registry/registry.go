package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/scythe504/impostor-backend/internal"
	"github.com/scythe504/impostor-backend/internal/config"
	apperrors "github.com/scythe504/impostor-backend/internal/errors"
	"github.com/scythe504/impostor-backend/internal/game"
	"github.com/scythe504/impostor-backend/internal/logging"
	"github.com/scythe504/impostor-backend/internal/moves"
	"github.com/scythe504/impostor-backend/internal/roster"
	"github.com/scythe504/impostor-backend/internal/store"
	"github.com/scythe504/impostor-backend/internal/utils"
	"github.com/scythe504/impostor-backend/internal/words"
	"go.uber.org/zap"
)

// =============================================================================
// GAME REGISTRY
// =============================================================================

// Options configure a Registry.
type Options struct {
	Timing      config.Game
	Provider    moves.Provider
	Store       store.Store
	Words       *words.Bank
	ArchiveSize int
	Logger      *zap.SugaredLogger
	Pick        roster.Picker
}

// Registry owns every live game in the process, keyed by game id. Finished
// games leave the live map and their final state moves to the archive.
type Registry struct {
	ctx     context.Context
	opts    Options
	logger  *zap.SugaredLogger
	archive *lru.ARCCache

	mu    sync.RWMutex
	games map[string]*game.Game
}

// Summary describes a live game for listings.
type Summary struct {
	GameID    string             `json:"game_id"`
	Mode      internal.GameMode  `json:"mode"`
	Phase     internal.GamePhase `json:"phase"`
	Players   int                `json:"players"`
	Observers int                `json:"observers"`
	Started   bool               `json:"started"`
	// Participant is set while a participant session is connected.
	Participant bool      `json:"participant"`
	CreatedAt   time.Time `json:"created_at"`
}

// New returns a Registry whose games run under ctx. Without an explicit
// logger it uses the one carried by ctx.
func New(ctx context.Context, opts Options) (*Registry, error) {
	if opts.ArchiveSize <= 0 {
		opts.ArchiveSize = 64
	}
	archive, err := lru.NewARC(opts.ArchiveSize)
	if err != nil {
		return nil, fmt.Errorf("lru new instance of arc archive: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = logging.FromContext(ctx)
	}
	if opts.Words == nil {
		opts.Words = words.Default()
	}
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}
	if opts.Pick == nil {
		opts.Pick = roster.FastPicker
	}
	return &Registry{
		ctx:     ctx,
		opts:    opts,
		logger:  opts.Logger.Named("registry"),
		archive: archive,
		games:   make(map[string]*game.Game),
	}, nil
}

// Create validates cfg, assigns roles and the secret word and registers a
// new game in SETUP. A bad roster is rejected before any game exists.
func (r *Registry) Create(cfg internal.GameConfig) (*game.Game, error) {
	if cfg.Mode == "" {
		cfg.Mode = internal.ModeSpectate
	}
	if cfg.Mode != internal.ModeSpectate && cfg.Mode != internal.ModePlay {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidRoster, "unknown mode",
			map[string]string{"mode": string(cfg.Mode)})
	}

	players, err := roster.Build(cfg, r.opts.Pick)
	if err != nil {
		return nil, err
	}

	secret, category := strings.TrimSpace(cfg.SecretWord), cfg.Category
	if secret == "" {
		entry := r.opts.Words.Random(cfg.Category)
		secret, category = entry.Word, entry.Category
	}

	session := &internal.Session{
		Id:         utils.GenerateGameID(),
		Config:     cfg,
		Players:    players,
		CreatedAt:  time.Now(),
		Phase:      internal.PhaseSetup,
		SecretWord: secret,
		Category:   category,
	}
	if err := utils.ValidateGameState(session); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidRoster, "invalid game", err)
	}

	g := game.New(session, game.Options{
		Timing:   r.opts.Timing,
		Provider: r.opts.Provider,
		Logger:   r.opts.Logger,
		Pick:     r.opts.Pick,
		OnFinish: r.finished,
	})

	r.mu.Lock()
	r.games[session.Id] = g
	r.mu.Unlock()

	r.logger.Infof("[Create] game=%s mode=%s players=%d category=%s", session.Id, cfg.Mode, len(players), category)
	return g, nil
}

// Get returns a live game.
func (r *Registry) Get(id string) (*game.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.games[id]
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeGameNotFound, "game not found",
			map[string]string{"game_id": id})
	}
	return g, nil
}

// Start runs a game in SETUP.
func (r *Registry) Start(id string) error {
	g, err := r.Get(id)
	if err != nil {
		return err
	}
	return g.Start(r.ctx)
}

// Cancel stops a live game and forgets it.
func (r *Registry) Cancel(id string) error {
	r.mu.Lock()
	g, ok := r.games[id]
	delete(r.games, id)
	r.mu.Unlock()

	if !ok {
		return apperrors.WithMetadata(apperrors.CodeGameNotFound, "game not found",
			map[string]string{"game_id": id})
	}
	g.Cancel()
	r.forget(id)
	r.logger.Infof("[Cancel] game=%s removed", id)
	return nil
}

// Remove drops a game from the live map without cancelling it.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, id)
}

// List summarizes the live games, oldest first.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	games := make([]*game.Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	r.mu.RUnlock()

	out := make([]Summary, 0, len(games))
	for _, g := range games {
		state := g.Snapshot()
		out = append(out, Summary{
			GameID:    state.GameID,
			Mode:      state.Mode,
			Phase:     state.Phase,
			Players:   len(state.Players),
			Observers:   g.ObserverCount(),
			Started:     g.Started(),
			Participant: g.ParticipantConnected(),
			CreatedAt:   state.CreatedAt,
		})
	}
	slices.SortFunc(out, func(a, b Summary) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// Count returns the number of live games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// Archived returns the final state of a finished game.
func (r *Registry) Archived(id string) (internal.GameStateData, bool) {
	v, ok := r.archive.Get(id)
	if !ok {
		return internal.GameStateData{}, false
	}
	return v.(internal.GameStateData), true
}

// Lookup returns the current state of a live game or the archived state of
// a finished one.
func (r *Registry) Lookup(id string) (internal.GameStateData, error) {
	if g, err := r.Get(id); err == nil {
		return g.Snapshot(), nil
	}
	if state, ok := r.Archived(id); ok {
		return state, nil
	}
	return internal.GameStateData{}, apperrors.WithMetadata(apperrors.CodeGameNotFound, "game not found",
		map[string]string{"game_id": id})
}

// Leaderboard reads the cumulative standings.
func (r *Registry) Leaderboard(ctx context.Context) ([]internal.LeaderboardEntry, error) {
	return r.opts.Store.Leaderboard(ctx)
}

// Shutdown cancels every live game.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	games := r.games
	r.games = make(map[string]*game.Game)
	r.mu.Unlock()

	for _, g := range games {
		g.Cancel()
	}
	r.logger.Infof("[Shutdown] cancelled %d games", len(games))
}

// finished archives a game at GAME_OVER and records its deltas. The game
// leaves the live map; connected observers keep their subscription until
// they disconnect.
func (r *Registry) finished(ctx context.Context, state internal.GameStateData) {
	r.archive.Add(state.GameID, state)
	r.Remove(state.GameID)
	r.forget(state.GameID)

	if state.Final == nil {
		return
	}
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	applied, err := r.opts.Store.Apply(storeCtx, state.GameID, state.Final.Deltas)
	if err != nil {
		r.logger.Errorf("[Finished] game=%s store apply failed: %v", state.GameID, err)
		return
	}
	r.logger.Infof("[Finished] game=%s archived, leaderboard updated=%v", state.GameID, applied)
}

// forgetter is implemented by providers that keep per-game memory.
type forgetter interface {
	Forget(gameID string)
}

func (r *Registry) forget(gameID string) {
	if f, ok := r.opts.Provider.(forgetter); ok {
		f.Forget(gameID)
	}
}
