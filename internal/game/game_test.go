package game

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scythe504/impostor-backend/internal"
	"github.com/scythe504/impostor-backend/internal/broadcast"
	"github.com/scythe504/impostor-backend/internal/config"
	apperrors "github.com/scythe504/impostor-backend/internal/errors"
	"github.com/scythe504/impostor-backend/internal/gate"
	"github.com/scythe504/impostor-backend/internal/moves"
	"github.com/scythe504/impostor-backend/internal/roster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider answers moves from fixed tables.
type scriptedProvider struct {
	mu        sync.Mutex
	calls     []moves.Request
	votes     map[string][]string // voter id -> target per voting round
	voteCalls map[string]int
	guess     string
	hook      func(req moves.Request)
}

func newScripted(votes map[string][]string) *scriptedProvider {
	return &scriptedProvider{votes: votes, voteCalls: make(map[string]int), guess: "playa"}
}

func (p *scriptedProvider) Move(ctx context.Context, req moves.Request) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	hook := p.hook
	var target string
	if req.Task == moves.TaskVote {
		plan := p.votes[req.Player.Id]
		n := p.voteCalls[req.Player.Id]
		p.voteCalls[req.Player.Id]++
		if len(plan) > 0 {
			target = plan[min(n, len(plan)-1)]
		}
	}
	p.mu.Unlock()

	if hook != nil {
		hook(req)
	}

	switch req.Task {
	case moves.TaskWord:
		return "Edificio", nil
	case moves.TaskDebate:
		return "Creo que alguien no conoce la palabra", nil
	case moves.TaskVote:
		for _, c := range req.Candidates {
			if c.ID == target {
				return "VOTO: " + c.Name + "\nRAZON: sospechoso", nil
			}
		}
		return "no sé", nil
	case moves.TaskGuess:
		return p.guess, nil
	}
	return "", errors.New("unexpected task")
}

func (p *scriptedProvider) requests(task moves.Task) []moves.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []moves.Request
	for _, r := range p.calls {
		if r.Task == task {
			out = append(out, r)
		}
	}
	return out
}

type frameSink struct {
	mu     sync.Mutex
	frames []broadcast.Frame
}

func (s *frameSink) WriteJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, v.(broadcast.Frame))
	return nil
}

func (s *frameSink) all() []broadcast.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]broadcast.Frame(nil), s.frames...)
}

func (s *frameSink) ofType(eventType string) []broadcast.Frame {
	var out []broadcast.Frame
	for _, f := range s.all() {
		if f.Type == eventType {
			out = append(out, f)
		}
	}
	return out
}

func (s *frameSink) phases() []internal.GamePhase {
	var out []internal.GamePhase
	for _, f := range s.ofType(internal.EventPhaseChanged) {
		out = append(out, f.Data.(internal.PhaseChangedData).Phase)
	}
	return out
}

func intPtr(i int) *int { return &i }

func testTiming() config.Game {
	return config.Game{
		DebateRounds:       5,
		DebateDuration:     time.Minute,
		InteractiveTimeout: 2 * time.Second,
		TieBreakAfter:      2,
		ObserverBuffer:     4096,
	}
}

func newSession(t *testing.T, cfg internal.GameConfig) *internal.Session {
	t.Helper()
	players, err := roster.Build(cfg, func(int) int { return 0 })
	require.NoError(t, err)
	return &internal.Session{
		Id:         "game-" + t.Name(),
		Config:     cfg,
		Players:    players,
		CreatedAt:  time.Now(),
		Phase:      internal.PhaseSetup,
		SecretWord: "hotel",
		Category:   "lugares",
	}
}

type harness struct {
	game     *Game
	session  *internal.Session
	provider *scriptedProvider
	sink     *frameSink
	finished chan internal.GameStateData
}

func newHarness(t *testing.T, cfg internal.GameConfig, timing config.Game, provider *scriptedProvider) *harness {
	t.Helper()
	h := newHarnessWith(t, cfg, timing, provider)
	h.provider = provider
	return h
}

func newHarnessWith(t *testing.T, cfg internal.GameConfig, timing config.Game, provider moves.Provider) *harness {
	t.Helper()
	h := &harness{
		session:  newSession(t, cfg),
		sink:     &frameSink{},
		finished: make(chan internal.GameStateData, 1),
	}
	h.game = New(h.session, Options{
		Timing:   timing,
		Provider: provider,
		Pick:     func(int) int { return 0 },
		OnFinish: func(_ context.Context, state internal.GameStateData) {
			h.finished <- state
		},
	})
	_, err := h.game.Subscribe("observer", h.sink, false)
	require.NoError(t, err)
	return h
}

func (h *harness) wait(t *testing.T) internal.GameStateData {
	t.Helper()
	select {
	case state := <-h.finished:
		<-h.game.Done()
		require.Eventually(t, func() bool {
			return len(h.sink.ofType(internal.EventGameOver)) == 1
		}, time.Second, time.Millisecond)
		return state
	case <-time.After(10 * time.Second):
		t.Fatal("game did not finish")
		return internal.GameStateData{}
	}
}

func waitPending(t *testing.T, g *Game, kind gate.Kind) {
	t.Helper()
	require.Eventually(t, func() bool {
		return slices.Contains(g.Pending(), kind)
	}, 5*time.Second, time.Millisecond)
}

func TestEndToEndImpostorEvades(t *testing.T) {
	t.Parallel()

	cfg := internal.GameConfig{
		Mode:             internal.ModeSpectate,
		Players:          []string{"gemma3", "mistral", "olmo2", "dolphin", "qwen3"},
		ImpostorPosition: intPtr(3),
	}
	provider := newScripted(map[string][]string{
		"player_0": {"player_1"},
		"player_1": {"player_0"},
		"player_2": {"player_0"},
		"player_3": {"player_0"},
		"player_4": {"player_1"},
	})
	h := newHarness(t, cfg, testTiming(), provider)

	require.NoError(t, h.game.Start(context.Background()))
	state := h.wait(t)

	require.NotNil(t, state.Result)
	assert.Equal(t, internal.OutcomeImpostorEvasion, state.Result.Outcome)
	assert.Equal(t, internal.WinnerImpostor, state.Result.Winner)
	assert.Equal(t, "player_3", state.Result.ImpostorID)
	assert.Equal(t, "player_0", state.Result.EliminatedID)
	assert.Equal(t, "hotel", state.SecretWord)
	assert.False(t, state.Result.GuessMade)

	assert.Len(t, state.WordLog, 5)
	assert.Len(t, state.DebateLog, 25)
	assert.Equal(t, map[string]int{"player_0": 3, "player_1": 2}, state.Tally)

	assert.Equal(t, []internal.GamePhase{
		internal.PhaseWordReveal,
		internal.PhaseWordRound,
		internal.PhaseDebate,
		internal.PhaseVoting,
		internal.PhaseElimination,
		internal.PhaseGameOver,
	}, h.sink.phases())

	for _, req := range provider.calls {
		if req.Player.Id == "player_3" {
			assert.Empty(t, req.SecretWord, "impostor must not see the word")
		} else {
			assert.Equal(t, "hotel", req.SecretWord)
		}
	}

	require.Eventually(t, func() bool {
		return len(h.sink.ofType(internal.EventGameOver)) == 1
	}, time.Second, time.Millisecond)
	frames := h.sink.all()
	for i := 1; i < len(frames); i++ {
		assert.Equal(t, frames[i-1].Seq+1, frames[i].Seq, "frame %d", i)
	}
	assert.Len(t, h.sink.ofType(internal.EventVoteCast), 5)

	scores := map[string]int{}
	for _, p := range state.Players {
		scores[p.Id] = p.Score
	}
	assert.Equal(t, 15, scores["player_3"])
	assert.Equal(t, -3, scores["player_0"])
	assert.Equal(t, 0, scores["player_1"])
}

func TestWordRoundResumesAfterInteractive(t *testing.T) {
	t.Parallel()

	cfg := internal.GameConfig{
		Mode:                internal.ModePlay,
		Players:             []string{"gemma3", "mistral", "olmo2", "dolphin"},
		InteractivePosition: intPtr(2),
		ImpostorPosition:    intPtr(4),
	}
	timing := testTiming()
	timing.InteractiveTimeout = 200 * time.Millisecond
	provider := newScripted(map[string][]string{
		"player_0": {"player_1"},
		"player_1": {"player_0"},
		"player_3": {"player_0"},
		"player_4": {"player_0"},
	})
	h := newHarness(t, cfg, timing, provider)

	require.NoError(t, h.game.Start(context.Background()))
	waitPending(t, h.game, gate.KindWord)

	words := provider.requests(moves.TaskWord)
	require.Len(t, words, 2)
	require.NoError(t, h.game.Submit(Action{Type: internal.ActionPlayerWord, Text: " Maleta "}))

	state := h.wait(t)

	var turns []int
	for _, req := range provider.requests(moves.TaskWord) {
		turns = append(turns, req.TurnIndex)
	}
	assert.Equal(t, []int{0, 1, 3, 4}, turns)

	require.Len(t, state.WordLog, 5)
	for i, entry := range state.WordLog {
		assert.Equal(t, i, entry.TurnIndex)
	}
	assert.Equal(t, "maleta", state.WordLog[2].Word)
	assert.Equal(t, "player_2", state.WordLog[2].PlayerID)
	assert.Equal(t, internal.OutcomeImpostorEvasion, state.Result.Outcome)
}

func TestEarlyInteractiveVoteCountedOnce(t *testing.T) {
	t.Parallel()

	cfg := internal.GameConfig{
		Mode:                internal.ModePlay,
		Players:             []string{"gemma3", "mistral", "olmo2"},
		InteractivePosition: intPtr(0),
		ImpostorPosition:    intPtr(3),
	}
	provider := newScripted(map[string][]string{
		"player_1": {"player_3"},
		"player_2": {"player_3"},
		"player_3": {"player_1"},
	})
	h := newHarness(t, cfg, testTiming(), provider)

	var once sync.Once
	var voteErrs []error
	var debateOnce sync.Once
	provider.hook = func(req moves.Request) {
		switch req.Task {
		case moves.TaskDebate:
			debateOnce.Do(func() {
				_ = h.game.Submit(Action{Type: internal.ActionDebateMessage, Text: "no es un Hotel barato"})
			})
		case moves.TaskVote:
			once.Do(func() {
				voteErrs = append(voteErrs,
					h.game.Submit(Action{Type: internal.ActionCastVote, TargetID: "player_3", Justification: "dudó"}),
					h.game.Submit(Action{Type: internal.ActionCastVote, TargetID: "player_1"}),
				)
			})
		}
	}

	require.NoError(t, h.game.Start(context.Background()))
	waitPending(t, h.game, gate.KindWord)
	require.NoError(t, h.game.Submit(Action{Type: internal.ActionPlayerWord, Text: "maleta"}))

	state := h.wait(t)

	require.Len(t, voteErrs, 2)
	assert.NoError(t, voteErrs[0])
	assert.True(t, errors.Is(voteErrs[1], apperrors.ErrDuplicateAction))

	humanVotes := 0
	for _, v := range state.Votes {
		if v.VoterID == "player_0" {
			humanVotes++
			assert.Equal(t, "player_3", v.TargetID)
		}
	}
	assert.Equal(t, 1, humanVotes)
	assert.Len(t, state.Votes, 4)

	resolved := h.sink.ofType(internal.EventVoteResolved)
	require.Len(t, resolved, 1)
	data := resolved[0].Data.(internal.VoteResolvedData)
	assert.Len(t, data.Votes, 4)
	assert.Equal(t, "player_3", data.EliminatedID)

	assert.Contains(t, h.sink.phases(), internal.PhaseImpostorGuess)
	assert.Equal(t, internal.OutcomeInformedWin, state.Result.Outcome)
	assert.Equal(t, "playa", state.Result.Guess)

	var human []internal.DebateMessage
	for _, m := range state.DebateLog {
		if m.Interactive {
			human = append(human, m)
		}
	}
	require.Len(t, human, 1)
	assert.Equal(t, "no es un **** barato", human[0].Text)

	require.NotNil(t, state.Final)
	byModel := map[string]internal.StatDelta{}
	for _, d := range state.Final.Deltas {
		byModel[d.Model] = d
	}
	assert.Len(t, byModel, 3)
	assert.Equal(t, 1, byModel["gemma3:4b"].CorrectVotes)
	assert.Equal(t, 15, byModel["gemma3:4b"].Score)
	assert.Equal(t, 1, byModel["olmo2:7b"].TimesImpostor)
	assert.Equal(t, 0, byModel["olmo2:7b"].TotalVotes)
}

func TestTieRevotesWithClearedTally(t *testing.T) {
	t.Parallel()

	cfg := internal.GameConfig{
		Mode:             internal.ModeSpectate,
		Players:          []string{"gemma3", "mistral", "olmo2"},
		ImpostorPosition: intPtr(2),
	}
	timing := testTiming()
	timing.TieBreakAfter = 3
	provider := newScripted(map[string][]string{
		"player_0": {"player_1", "player_2"},
		"player_1": {"player_2", "player_2"},
		"player_2": {"player_0", "player_0"},
	})
	provider.guess = " Hotel "
	h := newHarness(t, cfg, timing, provider)

	require.NoError(t, h.game.Start(context.Background()))
	state := h.wait(t)

	resolved := h.sink.ofType(internal.EventVoteResolved)
	require.Len(t, resolved, 2)
	first := resolved[0].Data.(internal.VoteResolvedData)
	assert.True(t, first.Tie)
	assert.False(t, first.TieBreak)
	assert.Empty(t, first.EliminatedID)
	assert.Equal(t, []string{"player_0", "player_1", "player_2"}, first.Tied)

	second := resolved[1].Data.(internal.VoteResolvedData)
	assert.False(t, second.Tie)
	assert.Equal(t, "player_2", second.EliminatedID)
	assert.Len(t, second.Votes, 3)

	assert.Equal(t, 2, state.VoteRound)
	assert.Len(t, state.Votes, 3)
	assert.Equal(t, internal.OutcomeImpostorGuess, state.Result.Outcome)
	assert.Equal(t, internal.WinnerImpostor, state.Result.Winner)
	assert.Equal(t, 2, state.Final.VoteRounds)
}

func TestTieBreakAfterCeiling(t *testing.T) {
	t.Parallel()

	cfg := internal.GameConfig{
		Mode:             internal.ModeSpectate,
		Players:          []string{"gemma3", "mistral", "olmo2"},
		ImpostorPosition: intPtr(2),
	}
	provider := newScripted(map[string][]string{
		"player_0": {"player_1"},
		"player_1": {"player_2"},
		"player_2": {"player_0"},
	})
	h := newHarness(t, cfg, testTiming(), provider)

	require.NoError(t, h.game.Start(context.Background()))
	state := h.wait(t)

	resolved := h.sink.ofType(internal.EventVoteResolved)
	require.Len(t, resolved, 2)
	last := resolved[1].Data.(internal.VoteResolvedData)
	assert.True(t, last.Tie)
	assert.True(t, last.TieBreak)
	assert.Equal(t, "player_0", last.EliminatedID)
	assert.Equal(t, internal.OutcomeImpostorEvasion, state.Result.Outcome)
}

func TestInteractiveTimeoutFallsBack(t *testing.T) {
	t.Parallel()

	cfg := internal.GameConfig{
		Mode:                internal.ModePlay,
		Players:             []string{"gemma3", "mistral", "olmo2"},
		InteractivePosition: intPtr(0),
		ImpostorPosition:    intPtr(1),
	}
	timing := testTiming()
	timing.InteractiveTimeout = 50 * time.Millisecond
	provider := newScripted(map[string][]string{
		"player_1": {"player_2"},
		"player_2": {"player_3"},
		"player_3": {"player_2"},
	})
	h := newHarness(t, cfg, timing, provider)

	require.NoError(t, h.game.Start(context.Background()))
	state := h.wait(t)

	require.Len(t, state.WordLog, 4)
	assert.NotEmpty(t, state.WordLog[0].Word)
	assert.Equal(t, "player_0", state.WordLog[0].PlayerID)

	var humanVote *internal.Vote
	for i := range state.Votes {
		if state.Votes[i].VoterID == "player_0" {
			humanVote = &state.Votes[i]
		}
	}
	require.NotNil(t, humanVote)
	assert.True(t, humanVote.Abstained())

	fallbacks := 0
	for _, f := range h.sink.ofType(internal.EventMoveFallback) {
		if f.Data.(internal.MoveFallbackData).PlayerID == "player_0" {
			fallbacks++
		}
	}
	assert.Equal(t, 2, fallbacks)
	assert.Equal(t, "player_2", state.Result.EliminatedID)

	err := h.game.Submit(Action{Type: internal.ActionCastVote, TargetID: "player_1"})
	assert.Equal(t, apperrors.CodeWrongPhase, apperrors.CodeOf(err))
}

// stallingDebate answers the first n debate turns and holds every later
// one until its context ends.
type stallingDebate struct {
	*scriptedProvider
	n        int32
	answered atomic.Int32
}

func (p *stallingDebate) Move(ctx context.Context, req moves.Request) (string, error) {
	if req.Task == moves.TaskDebate && p.answered.Add(1) > p.n {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return p.scriptedProvider.Move(ctx, req)
}

func TestDebateDeadlineForcesVoting(t *testing.T) {
	t.Parallel()

	cfg := internal.GameConfig{
		Mode:             internal.ModeSpectate,
		Players:          []string{"gemma3", "mistral", "olmo2"},
		ImpostorPosition: intPtr(2),
	}
	timing := testTiming()
	timing.DebateDuration = 300 * time.Millisecond
	provider := &stallingDebate{
		scriptedProvider: newScripted(map[string][]string{
			"player_0": {"player_1"},
			"player_1": {"player_0"},
			"player_2": {"player_0"},
		}),
		n: 2,
	}
	h := newHarnessWith(t, cfg, timing, provider)

	start := time.Now()
	require.NoError(t, h.game.Start(context.Background()))
	state := h.wait(t)
	assert.GreaterOrEqual(t, time.Since(start), timing.DebateDuration)

	phases := h.sink.phases()
	at := slices.Index(phases, internal.PhaseDebate)
	require.GreaterOrEqual(t, at, 0)
	require.Less(t, at+1, len(phases))
	assert.Equal(t, internal.PhaseVoting, phases[at+1])

	var stopped []internal.TimerUpdateData
	for _, f := range h.sink.ofType(internal.EventTimerUpdate) {
		if data := f.Data.(internal.TimerUpdateData); !data.IsActive {
			stopped = append(stopped, data)
		}
	}
	require.Len(t, stopped, 1)
	assert.Equal(t, internal.PhaseDebate, stopped[0].Phase)
	assert.Zero(t, stopped[0].TimeRemaining)

	assert.Len(t, state.DebateLog, 2)
	assert.Less(t, len(state.DebateLog), timing.DebateRounds*len(state.Players))
	assert.Len(t, h.sink.ofType(internal.EventDebateMessage), 2)
	assert.Empty(t, h.sink.ofType(internal.EventMoveFallback), "a deadline is not a failed move")

	assert.Equal(t, internal.OutcomeImpostorEvasion, state.Result.Outcome)
	assert.Equal(t, "player_0", state.Result.EliminatedID)
}

func TestFailingProviderFallsBack(t *testing.T) {
	t.Parallel()

	cfg := internal.GameConfig{
		Mode:             internal.ModeSpectate,
		Players:          []string{"gemma3", "mistral", "olmo2"},
		ImpostorPosition: intPtr(2),
	}
	timing := testTiming()
	timing.DebateRounds = 1

	type callKey struct {
		player string
		task   moves.Task
	}
	var mu sync.Mutex
	calls := map[callKey]int{}
	failing := moves.ProviderFunc(func(ctx context.Context, req moves.Request) (string, error) {
		mu.Lock()
		calls[callKey{req.Player.Id, req.Task}]++
		mu.Unlock()
		return "", errors.New("model unavailable")
	})
	h := newHarnessWith(t, cfg, timing, failing)

	require.NoError(t, h.game.Start(context.Background()))
	state := h.wait(t)

	fallbacks := h.sink.ofType(internal.EventMoveFallback)
	perPhase := map[internal.GamePhase]int{}
	for _, f := range fallbacks {
		data := f.Data.(internal.MoveFallbackData)
		perPhase[data.Phase]++
		assert.Contains(t, data.Reason, "model unavailable")
	}
	// one word and one debate turn each, then two all-abstain voting rounds
	assert.Equal(t, map[internal.GamePhase]int{
		internal.PhaseWordRound: 3,
		internal.PhaseDebate:    3,
		internal.PhaseVoting:    6,
	}, perPhase)

	mu.Lock()
	total := 0
	for key, n := range calls {
		turns := 1
		if key.task == moves.TaskVote {
			turns = 2
		}
		assert.Equal(t, 2*turns, n, "%s %s", key.player, key.task)
		total += n
	}
	mu.Unlock()
	assert.Equal(t, 2*len(fallbacks), total)

	generic := []string{"algo", "cosa", "idea", "momento", "lugar", "objeto"}
	require.Len(t, state.WordLog, 3)
	for _, entry := range state.WordLog {
		assert.Contains(t, generic, entry.Word)
	}
	assert.Empty(t, state.DebateLog)

	casts := h.sink.ofType(internal.EventVoteCast)
	assert.Len(t, casts, 6)
	for _, f := range casts {
		assert.True(t, f.Data.(internal.VoteCastData).Vote.Abstained())
	}

	resolved := h.sink.ofType(internal.EventVoteResolved)
	require.Len(t, resolved, 2)
	first := resolved[0].Data.(internal.VoteResolvedData)
	assert.True(t, first.Tie)
	assert.Empty(t, first.Tied)
	assert.Empty(t, first.EliminatedID)
	last := resolved[1].Data.(internal.VoteResolvedData)
	assert.True(t, last.TieBreak)
	assert.Equal(t, "player_0", last.EliminatedID)

	assert.Equal(t, internal.OutcomeImpostorEvasion, state.Result.Outcome)
	assert.Equal(t, internal.WinnerImpostor, state.Result.Winner)
}

// eagerParticipant submits the moment a phase it can act in is announced.
type eagerParticipant struct {
	frameSink
	game *Game
	act  map[internal.GamePhase]Action

	mu   sync.Mutex
	errs map[internal.GamePhase]error
}

func (p *eagerParticipant) WriteJSON(v any) error {
	if f := v.(broadcast.Frame); f.Type == internal.EventPhaseChanged {
		phase := f.Data.(internal.PhaseChangedData).Phase
		if action, ok := p.act[phase]; ok {
			err := p.game.Submit(action)
			p.mu.Lock()
			p.errs[phase] = err
			p.mu.Unlock()
		}
	}
	return p.frameSink.WriteJSON(v)
}

func TestSlotsOpenBeforePhaseAnnouncement(t *testing.T) {
	t.Parallel()

	cfg := internal.GameConfig{
		Mode:                internal.ModePlay,
		Players:             []string{"gemma3", "mistral", "olmo2"},
		InteractivePosition: intPtr(0),
		ImpostorPosition:    intPtr(0),
	}
	provider := newScripted(map[string][]string{
		"player_1": {"player_0"},
		"player_2": {"player_0"},
		"player_3": {"player_0"},
	})
	h := newHarness(t, cfg, testTiming(), provider)

	participant := &eagerParticipant{
		game: h.game,
		act: map[internal.GamePhase]Action{
			internal.PhaseWordRound:     {Type: internal.ActionPlayerWord, Text: "maleta"},
			internal.PhaseVoting:        {Type: internal.ActionCastVote, TargetID: "player_1"},
			internal.PhaseImpostorGuess: {Type: internal.ActionImpostorGuess, Text: "Hotel"},
		},
		errs: map[internal.GamePhase]error{},
	}
	_, err := h.game.Subscribe("participant", participant, true)
	require.NoError(t, err)

	require.NoError(t, h.game.Start(context.Background()))
	state := h.wait(t)

	participant.mu.Lock()
	errs := participant.errs
	participant.mu.Unlock()
	require.Len(t, errs, 3)
	for phase, err := range errs {
		assert.NoError(t, err, phase)
	}

	for _, f := range h.sink.ofType(internal.EventMoveFallback) {
		assert.NotEqual(t, "player_0", f.Data.(internal.MoveFallbackData).PlayerID)
	}
	require.NotEmpty(t, state.WordLog)
	assert.Equal(t, "maleta", state.WordLog[0].Word)

	var humanVote *internal.Vote
	for i := range state.Votes {
		if state.Votes[i].VoterID == "player_0" {
			humanVote = &state.Votes[i]
		}
	}
	require.NotNil(t, humanVote)
	assert.Equal(t, "player_1", humanVote.TargetID)

	assert.Equal(t, internal.OutcomeImpostorGuess, state.Result.Outcome)
	assert.Equal(t, "Hotel", state.Result.Guess)
	assert.Empty(t, provider.requests(moves.TaskGuess))
}

func TestSubmitRejections(t *testing.T) {
	t.Parallel()

	play := internal.GameConfig{
		Mode:                internal.ModePlay,
		Players:             []string{"gemma3", "mistral", "olmo2"},
		InteractivePosition: intPtr(0),
		ImpostorPosition:    intPtr(1),
	}
	spectate := internal.GameConfig{
		Mode:    internal.ModeSpectate,
		Players: []string{"gemma3", "mistral", "olmo2"},
	}

	tests := []struct {
		name   string
		cfg    internal.GameConfig
		setup  func(s *internal.Session)
		action Action
		code   apperrors.Code
	}{
		{
			name:   "spectate game has no participant",
			cfg:    spectate,
			action: Action{Type: internal.ActionPlayerWord, Text: "hola"},
			code:   apperrors.CodeNotEligible,
		},
		{
			name:   "word before the game starts",
			cfg:    play,
			action: Action{Type: internal.ActionPlayerWord, Text: "hola"},
			code:   apperrors.CodeWrongPhase,
		},
		{
			name:   "word out of turn",
			cfg:    play,
			setup:  func(s *internal.Session) { s.Phase = internal.PhaseWordRound; s.TurnIndex = 2 },
			action: Action{Type: internal.ActionPlayerWord, Text: "hola"},
			code:   apperrors.CodeNotEligible,
		},
		{
			name:   "two words",
			cfg:    play,
			setup:  func(s *internal.Session) { s.Phase = internal.PhaseWordRound },
			action: Action{Type: internal.ActionPlayerWord, Text: "hola mundo"},
			code:   apperrors.CodeInvalidAction,
		},
		{
			name:   "vote for self",
			cfg:    play,
			setup:  func(s *internal.Session) { s.Phase = internal.PhaseVoting },
			action: Action{Type: internal.ActionCastVote, TargetID: "player_0"},
			code:   apperrors.CodeInvalidTarget,
		},
		{
			name: "vote for eliminated player",
			cfg:  play,
			setup: func(s *internal.Session) {
				s.Phase = internal.PhaseVoting
				s.Players[2].IsEliminated = true
			},
			action: Action{Type: internal.ActionCastVote, TargetID: "player_2"},
			code:   apperrors.CodeInvalidTarget,
		},
		{
			name:   "vote for unknown player",
			cfg:    play,
			setup:  func(s *internal.Session) { s.Phase = internal.PhaseVoting },
			action: Action{Type: internal.ActionCastVote, TargetID: "player_9"},
			code:   apperrors.CodeInvalidTarget,
		},
		{
			name:   "vote without an open slot",
			cfg:    play,
			setup:  func(s *internal.Session) { s.Phase = internal.PhaseVoting },
			action: Action{Type: internal.ActionCastVote, TargetID: "player_1"},
			code:   apperrors.CodeNoOpenSlot,
		},
		{
			name:   "guess from informed player",
			cfg:    play,
			setup:  func(s *internal.Session) { s.Phase = internal.PhaseImpostorGuess },
			action: Action{Type: internal.ActionImpostorGuess, Text: "hotel"},
			code:   apperrors.CodeNotEligible,
		},
		{
			name:   "empty debate message",
			cfg:    play,
			setup:  func(s *internal.Session) { s.Phase = internal.PhaseDebate },
			action: Action{Type: internal.ActionDebateMessage, Text: "   "},
			code:   apperrors.CodeInvalidAction,
		},
		{
			name:   "unknown action",
			cfg:    play,
			action: Action{Type: "dance"},
			code:   apperrors.CodeInvalidAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			session := newSession(t, tt.cfg)
			if tt.setup != nil {
				tt.setup(session)
			}
			g := New(session, Options{Timing: testTiming()})

			err := g.Submit(tt.action)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
			assert.Empty(t, session.Votes)
			assert.Empty(t, session.WordLog)
		})
	}
}

func TestCancelStopsGame(t *testing.T) {
	t.Parallel()

	cfg := internal.GameConfig{Mode: internal.ModeSpectate, Players: []string{"gemma3", "mistral", "olmo2"}}
	session := newSession(t, cfg)
	blocking := moves.ProviderFunc(func(ctx context.Context, req moves.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	g := New(session, Options{Timing: testTiming(), Provider: blocking})
	sink := &frameSink{}
	_, err := g.Subscribe("obs", sink, false)
	require.NoError(t, err)

	require.NoError(t, g.Start(context.Background()))
	require.Eventually(t, func() bool { return g.Phase() == internal.PhaseWordRound }, time.Second, time.Millisecond)
	g.Cancel()

	select {
	case <-g.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run loop did not stop")
	}
	assert.Equal(t, internal.PhaseWordRound, g.Phase())
	assert.Empty(t, session.WordLog)

	_, err = g.Subscribe("late", &frameSink{}, false)
	assert.Equal(t, apperrors.CodeGameNotFound, apperrors.CodeOf(err))
	assert.Error(t, g.Start(context.Background()))
}

func TestLateObserverMatchesContinuousObserver(t *testing.T) {
	t.Parallel()

	cfg := internal.GameConfig{
		Mode:             internal.ModeSpectate,
		Players:          []string{"gemma3", "mistral", "olmo2"},
		ImpostorPosition: intPtr(0),
	}
	provider := newScripted(map[string][]string{
		"player_0": {"player_1"},
		"player_1": {"player_0"},
		"player_2": {"player_0"},
	})
	h := newHarness(t, cfg, testTiming(), provider)

	require.NoError(t, h.game.Start(context.Background()))
	h.wait(t)
	require.Eventually(t, func() bool {
		return len(h.sink.ofType(internal.EventGameOver)) == 1
	}, time.Second, time.Millisecond)

	late := &frameSink{}
	_, err := h.game.Subscribe("late", late, false)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(late.all()) == 1 }, time.Second, time.Millisecond)

	snapshot := late.all()[0].Data.(internal.GameStateData)
	continuous := h.sink.all()
	assert.Equal(t, continuous[len(continuous)-1].Seq, snapshot.Seq)
	assert.Equal(t, internal.PhaseGameOver, snapshot.Phase)
	assert.Equal(t, "hotel", snapshot.SecretWord)
	assert.Equal(t, len(h.sink.ofType(internal.EventWordSubmitted)), len(snapshot.WordLog))
	assert.Equal(t, len(h.sink.ofType(internal.EventDebateMessage)), len(snapshot.DebateLog))
}

func TestSnapshotMasksWordBeforeGameOver(t *testing.T) {
	t.Parallel()

	session := newSession(t, internal.GameConfig{Mode: internal.ModeSpectate, Players: []string{"gemma3", "mistral", "olmo2"}})
	g := New(session, Options{Timing: testTiming()})

	state := g.Snapshot()
	assert.Equal(t, "_ _ _ _ _", state.SecretWord)
	for _, p := range state.Players {
		assert.Empty(t, p.Role)
	}
}
