package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	rl "github.com/chzyer/readline"
	"github.com/gorilla/websocket"

	"github.com/scythe504/impostor-backend/internal"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "game server address")
	gameID := flag.String("game", "", "game to join as the participant")
	create := flag.Bool("create", false, "create a new game with an interactive seat")
	name := flag.String("name", "", "display name for the interactive seat")
	players := flag.String("players", "", "comma separated model names for a created game")
	flag.Parse()

	if err := run(*serverURL, *gameID, *create, *name, *players); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(serverURL, gameID string, create bool, name, players string) error {
	if create {
		cfg := internal.GameConfig{Mode: internal.ModePlay, InteractiveName: name}
		if players != "" {
			cfg.Players = strings.Split(players, ",")
		}
		id, err := createGame(serverURL, cfg)
		if err != nil {
			return err
		}
		gameID = id
		fmt.Printf("created game %s\n", gameID)
	}
	if gameID == "" {
		return errors.New("pass -game <id> or -create")
	}

	conn, err := dial(serverURL, gameID)
	if err != nil {
		return err
	}
	defer conn.Close()

	completer := rl.NewPrefixCompleter(
		rl.PcItem("/start"),
		rl.PcItem("/word"),
		rl.PcItem("/vote"),
		rl.PcItem("/guess"),
		rl.PcItem("/quit"),
	)
	l, err := rl.NewEx(&rl.Config{
		Prompt:            "\033[36m»\033[0m ",
		HistoryFile:       "/tmp/impostor-cli.hist",
		AutoComplete:      completer,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return err
	}
	defer l.Close()

	view := &view{out: l.Stdout(), names: make(map[string]string)}
	go func() {
		for {
			var msg internal.Message[json.RawMessage]
			if err := conn.ReadJSON(&msg); err != nil {
				fmt.Fprintf(l.Stdout(), "connection closed: %v\n", err)
				l.Close()
				return
			}
			view.show(msg)
		}
	}()

	return repl(l, conn)
}

func createGame(serverURL string, cfg internal.GameConfig) (string, error) {
	body, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	resp, err := http.Post(strings.TrimSuffix(serverURL, "/")+"/api/games", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create game: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		var e internal.ErrorData
		_ = json.Unmarshal(out.Data, &e)
		return "", fmt.Errorf("create game: %s: %s", e.Code, e.Message)
	}
	var state internal.GameStateData
	if err := json.Unmarshal(out.Data, &state); err != nil {
		return "", err
	}
	return state.GameID, nil
}

func dial(serverURL, gameID string) (*websocket.Conn, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/" + gameID
	u.RawQuery = "role=participant"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	return conn, nil
}

func repl(l *rl.Instance, conn *websocket.Conn) error {
	requests := 0
	for {
		line, err := l.Readline()
		if errors.Is(err, rl.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/quit" {
			return nil
		}

		msgType, data, err := parseCommand(line)
		if err != nil {
			fmt.Fprintln(l.Stdout(), err)
			continue
		}
		requests++
		frame := map[string]any{"type": msgType, "request_id": strconv.Itoa(requests), "data": data}
		if err := conn.WriteJSON(frame); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}
}

// parseCommand turns a typed line into an inbound frame. Lines that are not
// commands are debate messages.
func parseCommand(line string) (string, any, error) {
	if !strings.HasPrefix(line, "/") {
		return internal.ActionDebateMessage, line, nil
	}
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/start":
		return internal.ActionStartGame, nil, nil
	case "/word":
		if rest == "" {
			return "", nil, errors.New("usage: /word <word>")
		}
		return internal.ActionPlayerWord, rest, nil
	case "/guess":
		if rest == "" {
			return "", nil, errors.New("usage: /guess <word>")
		}
		return internal.ActionImpostorGuess, rest, nil
	case "/vote":
		target, reason, _ := strings.Cut(rest, " ")
		if target == "" {
			return "", nil, errors.New("usage: /vote <player_id> [reason]")
		}
		return internal.ActionCastVote, internal.CastVoteData{TargetID: target, Justification: strings.TrimSpace(reason)}, nil
	}
	return "", nil, fmt.Errorf("unknown command %s", cmd)
}
