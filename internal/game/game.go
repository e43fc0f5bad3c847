package game

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scythe504/impostor-backend/internal"
	"github.com/scythe504/impostor-backend/internal/broadcast"
	"github.com/scythe504/impostor-backend/internal/config"
	apperrors "github.com/scythe504/impostor-backend/internal/errors"
	"github.com/scythe504/impostor-backend/internal/gate"
	"github.com/scythe504/impostor-backend/internal/moves"
	"github.com/scythe504/impostor-backend/internal/roster"
	"github.com/scythe504/impostor-backend/internal/utils"
	"go.uber.org/zap"
)

// =============================================================================
// GAME ORCHESTRATOR
// =============================================================================

// Options configure a Game.
type Options struct {
	Timing   config.Game
	Provider moves.Provider
	Logger   *zap.SugaredLogger

	// Pick breaks ties once the re-vote ceiling is reached.
	Pick roster.Picker

	// OnFinish runs after GAME_OVER has been committed and published.
	OnFinish func(ctx context.Context, state internal.GameStateData)
}

// Game is the single mutator of one Session. The run loop is the only
// goroutine that changes session state; everything else reads under
// Session.Mu or goes through the gate.
type Game struct {
	session  *internal.Session
	hub      *broadcast.Hub
	gate     *gate.Gate
	provider moves.Provider
	timing   config.Game
	pick     roster.Picker
	onFinish func(ctx context.Context, state internal.GameStateData)
	logger   *zap.SugaredLogger

	started atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// event is one outbound broadcast produced by a commit.
type event struct {
	Type string
	Data any
}

func New(session *internal.Session, opts Options) *Game {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	pick := opts.Pick
	if pick == nil {
		pick = roster.FastPicker
	}
	logger = logger.Named("orchestrator").With("game_id", session.Id)

	return &Game{
		session:  session,
		hub:      broadcast.NewHub(session.Id, opts.Timing.ObserverBuffer, logger),
		gate:     gate.New(opts.Timing.ObserverBuffer),
		provider: opts.Provider,
		timing:   opts.Timing,
		pick:     pick,
		onFinish: opts.OnFinish,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

func (g *Game) ID() string {
	return g.session.Id
}

// Done is closed when the run loop has exited.
func (g *Game) Done() <-chan struct{} {
	return g.done
}

// Start leaves SETUP and runs the game in its own goroutine. It fails if
// the game was already started.
func (g *Game) Start(parent context.Context) error {
	if !g.started.CompareAndSwap(false, true) {
		return apperrors.WithMetadata(apperrors.CodeWrongPhase, "game already started",
			map[string]string{"game_id": g.session.Id})
	}

	g.session.Mu.RLock()
	err := utils.ValidateGameState(g.session)
	g.session.Mu.RUnlock()
	if err != nil {
		g.started.Store(false)
		return apperrors.Wrap(apperrors.CodeInvalidRoster, "cannot start game", err)
	}

	ctx, cancel := context.WithCancel(parent)
	g.mu.Lock()
	g.cancel = cancel
	g.mu.Unlock()

	go g.run(ctx)
	return nil
}

// Started reports whether Start has succeeded.
func (g *Game) Started() bool {
	return g.started.Load()
}

// Cancel ends the game early. Pending provider calls are abandoned,
// interactive slots are closed and observers stop receiving events.
func (g *Game) Cancel() {
	g.mu.Lock()
	cancel := g.cancel
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	g.gate.Shutdown()
	g.hub.Close()
	g.logger.Infof("[Cancel] game=%s cancelled", g.session.Id)
}

// commit applies mutate under the session lock and publishes the events it
// returns before releasing the lock, so every observer sees events in the
// order the mutations were committed. Nothing is applied once ctx is done.
func (g *Game) commit(ctx context.Context, mutate func(s *internal.Session) []event) bool {
	g.session.Mu.Lock()
	defer g.session.Mu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	for _, ev := range mutate(g.session) {
		g.session.Seq = g.hub.Publish(ev.Type, ev.Data)
	}
	return true
}

// Snapshot returns the current public state.
func (g *Game) Snapshot() internal.GameStateData {
	g.session.Mu.RLock()
	defer g.session.Mu.RUnlock()
	return g.session.Snapshot(utils.GetMaskedWord)
}

// Phase returns the current phase.
func (g *Game) Phase() internal.GamePhase {
	g.session.Mu.RLock()
	defer g.session.Mu.RUnlock()
	return g.session.Phase
}

// Subscribe attaches an observer. The first frame it receives is a full
// snapshot consistent with the last committed event. A participant session
// also gets its private reveal once the words have been handed out.
func (g *Game) Subscribe(id string, sink broadcast.Sink, participant bool) (*broadcast.Subscriber, error) {
	g.session.Mu.RLock()
	defer g.session.Mu.RUnlock()

	sub, ok := g.hub.Subscribe(id, sink, participant, func(seq uint64) any {
		state := g.session.Snapshot(utils.GetMaskedWord)
		state.Seq = seq
		return state
	})
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeGameNotFound, "game is closed",
			map[string]string{"game_id": g.session.Id})
	}
	if participant && g.session.Phase != internal.PhaseSetup {
		if reveal, ok := g.revealLocked(); ok {
			sub.Send(internal.EventReveal, "", reveal)
		}
	}
	return sub, nil
}

func (g *Game) revealLocked() (internal.RevealData, bool) {
	human := g.session.Interactive()
	if human == nil {
		return internal.RevealData{}, false
	}
	return internal.RevealData{
		PlayerID:   human.Id,
		Word:       g.session.RevealFor(human),
		IsImpostor: human.IsImpostor(),
		Category:   g.session.Category,
	}, true
}

// Pending lists the interactive slots currently open.
func (g *Game) Pending() []gate.Kind {
	return g.gate.Pending()
}

// ObserverCount returns the number of subscribed sessions.
func (g *Game) ObserverCount() int {
	return g.hub.Count()
}

// ParticipantConnected reports whether a participant session is attached.
func (g *Game) ParticipantConnected() bool {
	return g.hub.ParticipantConnected()
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
