package internal

import "time"

// Message is the envelope for every frame on the realtime channel.
type Message[T any] struct {
	Type      string `json:"type"`
	Seq       uint64 `json:"seq,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Data      T      `json:"data"`
}

// Outbound event types.
const (
	EventGameState        = "game_state"
	EventPhaseChanged     = "phase_changed"
	EventTurnAdvanced     = "turn_advanced"
	EventPlayerThinking   = "player_thinking"
	EventWordSubmitted    = "word_submitted"
	EventDebateMessage    = "debate_message"
	EventVoteCast         = "vote_cast"
	EventVoteResolved     = "vote_resolved"
	EventPlayerEliminated = "player_eliminated"
	EventImpostorGuess    = "impostor_guess"
	EventGameOver         = "game_over"
	EventTimerUpdate      = "timer_update"
	EventMoveFallback     = "move_fallback"
	EventReveal           = "reveal"
	EventError            = "error"
	EventAck              = "ack"
)

// Inbound action types.
const (
	ActionStartGame     = "start_game"
	ActionPlayerWord    = "player_word"
	ActionDebateMessage = "debate_message"
	ActionCastVote      = "cast_vote"
	ActionImpostorGuess = "impostor_guess"
)

type GameStateData struct {
	GameID        string          `json:"game_id"`
	Mode          GameMode        `json:"mode"`
	Phase         GamePhase       `json:"phase"`
	Round         int             `json:"round"`
	TurnIndex     int             `json:"turn_index"`
	CurrentPlayer string          `json:"current_player,omitempty"`
	Players       []*Player       `json:"players"`
	Category      string          `json:"category,omitempty"`
	SecretWord    string          `json:"secret_word,omitempty"`
	WordLog       []WordEntry     `json:"word_log"`
	DebateLog     []DebateMessage `json:"debate_log"`
	Votes         []Vote          `json:"votes"`
	VoteRound     int             `json:"vote_round"`
	Tally         map[string]int  `json:"tally,omitempty"`
	TimeRemaining int64           `json:"time_remaining_ms,omitempty"`
	Result        *Result         `json:"result,omitempty"`
	Final         *FinalResults   `json:"final,omitempty"`
	Seq           uint64          `json:"seq"`
	CreatedAt     time.Time       `json:"created_at"`
}

type PhaseChangedData struct {
	Phase      GamePhase `json:"phase"`
	Round      int       `json:"round"`
	VoteRound  int       `json:"vote_round,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}

type TurnAdvancedData struct {
	PlayerID    string `json:"player_id"`
	Name        string `json:"name"`
	TurnIndex   int    `json:"turn_index"`
	Interactive bool   `json:"interactive"`
}

type PlayerThinkingData struct {
	PlayerID string    `json:"player_id"`
	Name     string    `json:"name"`
	Phase    GamePhase `json:"phase"`
}

type WordSubmittedData struct {
	PlayerID  string `json:"player_id"`
	Name      string `json:"name"`
	Word      string `json:"word"`
	TurnIndex int    `json:"turn_index"`
}

type VoteCastData struct {
	Vote  Vote           `json:"vote"`
	Tally map[string]int `json:"tally"`
}

type VoteResolvedData struct {
	VoteRound    int            `json:"vote_round"`
	Tie          bool           `json:"tie"`
	TieBreak     bool           `json:"tie_break"`
	Tied         []string       `json:"tied,omitempty"`
	EliminatedID string         `json:"eliminated_id,omitempty"`
	Tally        map[string]int `json:"tally"`
	Votes        []Vote         `json:"votes"`
}

type PlayerEliminatedData struct {
	PlayerID    string `json:"player_id"`
	Name        string `json:"name"`
	WasImpostor bool   `json:"was_impostor"`
}

type ImpostorGuessData struct {
	PlayerID string `json:"player_id"`
	Guess    string `json:"guess"`
	Correct  bool   `json:"correct"`
}

type GameOverData struct {
	Result  Result        `json:"result"`
	Players []*Player     `json:"players"`
	WordLog []WordEntry   `json:"word_log"`
	Final   *FinalResults `json:"final,omitempty"`
}

type TimerUpdateData struct {
	TimeRemaining int64     `json:"time_remaining_ms"`
	Phase         GamePhase `json:"phase"`
	IsActive      bool      `json:"is_active"`
}

type MoveFallbackData struct {
	PlayerID string    `json:"player_id"`
	Phase    GamePhase `json:"phase"`
	Reason   string    `json:"reason"`
}

type RevealData struct {
	PlayerID   string `json:"player_id"`
	Word       string `json:"word"`
	IsImpostor bool   `json:"is_impostor"`
	Category   string `json:"category,omitempty"`
}

type ErrorData struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Inbound payloads.

type CastVoteData struct {
	TargetID      string `json:"target_id"`
	Justification string `json:"justification,omitempty"`
}
