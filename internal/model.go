package internal

import (
	"time"
)

const (
	WordRevealDuration = 3 * time.Second
	DebatePhaseRounds  = 5
	DebatePhaseTime    = 60 * time.Second
	MinPlayersPerGame  = 3
	MaxPlayersPerGame  = 7
	MinDebateLength    = 3

	// ImpostorSentinel is revealed to the impostor in place of the secret word.
	ImpostorSentinel = "IMPOSTOR"
)

type GamePhase string

const (
	PhaseSetup         GamePhase = "setup"
	PhaseWordReveal    GamePhase = "word_reveal"
	PhaseWordRound     GamePhase = "word_round"
	PhaseDebate        GamePhase = "debate"
	PhaseVoting        GamePhase = "voting"
	PhaseElimination   GamePhase = "elimination"
	PhaseImpostorGuess GamePhase = "impostor_guess"
	PhaseGameOver      GamePhase = "game_over"
)

type Role string

const (
	RoleImpostor Role = "impostor"
	RoleInformed Role = "informed"
)

type Kind string

const (
	KindAutonomous  Kind = "autonomous"
	KindInteractive Kind = "interactive"
)

type GameMode string

const (
	ModeSpectate GameMode = "spectate"
	ModePlay     GameMode = "play"
)

type Outcome string

const (
	OutcomeInformedWin     Outcome = "informed_win"
	OutcomeImpostorGuess   Outcome = "impostor_wins_guess"
	OutcomeImpostorEvasion Outcome = "impostor_wins_evasion"
)

type Winner string

const (
	WinnerInformed Winner = "informed"
	WinnerImpostor Winner = "impostor"
)

// GameConfig is the client request to create a game.
type GameConfig struct {
	Mode                GameMode `json:"mode"`
	Players             []string `json:"players,omitempty"`
	SingleModel         string   `json:"single_model,omitempty"`
	PlayerCount         int      `json:"player_count,omitempty"`
	InteractivePosition *int     `json:"interactive_position,omitempty"` // nil picks a random seat
	InteractiveName     string   `json:"interactive_name,omitempty"`
	ImpostorPosition    *int     `json:"impostor_position,omitempty"` // nil picks a random seat
	SecretWord          string   `json:"secret_word,omitempty"`
	Category            string   `json:"category,omitempty"`
	DebateRounds        int      `json:"debate_rounds,omitempty"`
	DebateDuration      int      `json:"debate_duration,omitempty"` // seconds
}

type WordEntry struct {
	PlayerID  string `json:"player_id"`
	Name      string `json:"name"`
	Word      string `json:"word"`
	Round     int    `json:"round"`
	TurnIndex int    `json:"turn_index"`
}

type DebateMessage struct {
	PlayerID    string    `json:"player_id"`
	Name        string    `json:"name"`
	Text        string    `json:"text"`
	Order       int       `json:"order"`
	Interactive bool      `json:"interactive"`
	At          time.Time `json:"at"`
}

type Vote struct {
	VoterID       string    `json:"voter_id"`
	TargetID      string    `json:"target_id,omitempty"` // empty is an abstention
	Justification string    `json:"justification,omitempty"`
	Order         int       `json:"order"`
	At            time.Time `json:"at"`
}

// Abstained reports whether the vote names no target.
func (v Vote) Abstained() bool {
	return v.TargetID == ""
}

type Result struct {
	Outcome      Outcome   `json:"outcome"`
	Winner       Winner    `json:"winner"`
	SecretWord   string    `json:"secret_word"`
	Category     string    `json:"category,omitempty"`
	ImpostorID   string    `json:"impostor_id"`
	ImpostorName string    `json:"impostor_name"`
	EliminatedID string    `json:"eliminated_id,omitempty"`
	Guess        string    `json:"guess,omitempty"`
	GuessMade    bool      `json:"guess_made"`
	FinishedAt   time.Time `json:"finished_at"`
}

type GameResultData struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Model    string `json:"model,omitempty"`
	Role     Role   `json:"role"`
	Score    int    `json:"score"`
	Position int    `json:"position"`
}

// StatDelta is the change to one model's cumulative record from one game.
type StatDelta struct {
	Model          string `json:"model"`
	Score          int    `json:"score"`
	GamesPlayed    int    `json:"games_played"`
	WinsAsInformed int    `json:"wins_as_informed"`
	WinsAsImpostor int    `json:"wins_as_impostor"`
	TimesImpostor  int    `json:"times_impostor"`
	CorrectGuesses int    `json:"correct_guesses"`
	CorrectVotes   int    `json:"correct_votes"`
	TotalVotes     int    `json:"total_votes"`
}

type FinalResults struct {
	Leaderboard []GameResultData `json:"leaderboard"`
	MVP         *GameResultData  `json:"mvp,omitempty"`
	Deltas      []StatDelta      `json:"deltas"`
	VoteRounds  int              `json:"vote_rounds"`
}

// LeaderboardEntry is one model's cumulative record across games.
type LeaderboardEntry struct {
	StatDelta
	VoteAccuracy float64 `json:"vote_accuracy"`
}

type Response struct {
	StatusCode    int   `json:"status_code"`
	RespStartTime int64 `json:"resp_time_start_ms"`
	RespEndTime   int64 `json:"resp_time_end_ms"`
	NetRespTime   int64 `json:"net_resp_time_ms"`
	Data          any   `json:"data"`
}
