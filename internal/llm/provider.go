package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scythe504/impostor-backend/internal/config"
	"github.com/scythe504/impostor-backend/internal/moves"
)

const (
	// MaxExchanges bounds the remembered prompt/reply pairs per player.
	MaxExchanges = 10
	maxTokens    = 100
	gamesTracked = 128
)

var ErrEmptyResponse = errors.New("model returned no choices")

type exchange struct {
	prompt string
	reply  string
}

type gameMemory struct {
	mu      sync.Mutex
	players map[string][]exchange
}

// Provider asks an OpenAI-compatible chat endpoint for moves. Each
// autonomous player keeps its own short conversation per game.
type Provider struct {
	client      openai.Client
	temperature float64
	logger      *zap.SugaredLogger
	games       *lru.Cache
}

// New builds a Provider for the endpoint in cfg.
func New(cfg config.LLM, logger *zap.SugaredLogger, opts ...option.RequestOption) (*Provider, error) {
	games, err := lru.New(gamesTracked)
	if err != nil {
		return nil, err
	}
	base := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		base = append(base, option.WithRequestTimeout(cfg.Timeout))
	}
	return &Provider{
		client:      openai.NewClient(append(base, opts...)...),
		temperature: cfg.Temperature,
		logger:      logger,
		games:       games,
	}, nil
}

func (p *Provider) memory(gameID string) *gameMemory {
	if m, ok := p.games.Get(gameID); ok {
		return m.(*gameMemory)
	}
	m := &gameMemory{players: make(map[string][]exchange)}
	// a concurrent first call for the same game keeps whichever landed first
	if ok, _ := p.games.ContainsOrAdd(gameID, m); ok {
		if existing, found := p.games.Get(gameID); found {
			return existing.(*gameMemory)
		}
	}
	return m
}

// Move implements moves.Provider.
func (p *Provider) Move(ctx context.Context, req moves.Request) (string, error) {
	system, err := BuildSystemPrompt(req)
	if err != nil {
		return "", err
	}
	prompt, err := BuildPrompt(req)
	if err != nil {
		return "", err
	}
	prompt = WithThinkingDisabled(req.Player.Model, prompt)

	mem := p.memory(req.GameID)
	mem.mu.Lock()
	history := append([]exchange(nil), mem.players[req.Player.Id]...)
	mem.mu.Unlock()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2+2*len(history))
	messages = append(messages, openai.SystemMessage(system))
	for _, ex := range history {
		messages = append(messages, openai.UserMessage(ex.prompt), openai.AssistantMessage(ex.reply))
	}
	messages = append(messages, openai.UserMessage(prompt))

	start := time.Now()
	reply, err := p.complete(ctx, req.Player.Model, messages)
	if err != nil {
		p.logger.Warnf("[Move] game=%s player=%s model=%s task=%s failed after %s: %v",
			req.GameID, req.Player.Id, req.Player.Model, req.Task, time.Since(start), err)
		return "", err
	}
	p.logger.Debugf("[Move] game=%s player=%s task=%s took %s reply=%q",
		req.GameID, req.Player.Id, req.Task, time.Since(start), reply)

	mem.mu.Lock()
	turns := append(mem.players[req.Player.Id], exchange{prompt: prompt, reply: reply})
	if len(turns) > MaxExchanges {
		turns = turns[len(turns)-MaxExchanges:]
	}
	mem.players[req.Player.Id] = turns
	mem.mu.Unlock()

	return reply, nil
}

func (p *Provider) complete(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(p.temperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion %s: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// Forget drops the conversations kept for a finished game.
func (p *Provider) Forget(gameID string) {
	p.games.Remove(gameID)
}

// History returns how many exchanges are remembered for a player.
func (p *Provider) History(gameID, playerID string) int {
	m, ok := p.games.Peek(gameID)
	if !ok {
		return 0
	}
	mem := m.(*gameMemory)
	mem.mu.Lock()
	defer mem.mu.Unlock()
	return len(mem.players[playerID])
}

// Warmup sends a short prompt to every model concurrently so the first
// turn of a game does not pay the model load time.
func (p *Provider) Warmup(ctx context.Context, models []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, model := range models {
		g.Go(func() error {
			start := time.Now()
			_, err := p.complete(ctx, model, []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(WithThinkingDisabled(model, "Responde solo: listo")),
			})
			if err != nil {
				return fmt.Errorf("warmup %s: %w", model, err)
			}
			p.logger.Infof("[Warmup] model=%s ready in %s", model, time.Since(start))
			return nil
		})
	}
	return g.Wait()
}
