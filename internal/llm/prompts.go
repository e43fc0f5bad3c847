package llm

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/scythe504/impostor-backend/internal/moves"
)

var funcs = template.FuncMap{
	"join": strings.Join,
}

var systemPrompt = template.Must(template.New("system").Parse(
	`Eres {{.Name}}, jugador de "Palabra Impostor". Todos menos uno conocen una palabra secreta; ` +
		`el impostor no la conoce e intenta pasar desapercibido. Responde siempre en español, ` +
		`sin explicar tu razonamiento y solo con lo que se te pide.`))

var prompts = map[string]*template.Template{
	"word_informed": template.Must(template.New("word_informed").Funcs(funcs).Parse(`Ronda {{.Round}}, turno #{{.Turn}}.
La palabra secreta es "{{.Secret}}" (categoría: {{.Category}}). El impostor no la conoce.
Palabras dichas hasta ahora: {{if .Words}}{{join .Words ", "}}{{else}}ninguna{{end}}.

Di UNA palabra relacionada con la secreta de forma sutil, que puedas defender en el debate.
No digas la palabra secreta, no repitas palabras ya dichas y evita sinónimos obvios.
Responde con una sola palabra:`)),

	"word_impostor": template.Must(template.New("word_impostor").Funcs(funcs).Parse(`Ronda {{.Round}}, turno #{{.Turn}}.
ERES EL IMPOSTOR: no conoces la palabra secreta.
Palabras dichas hasta ahora: {{if .Words}}{{join .Words ", "}}{{else}}ninguna, eres el primero{{end}}.

Busca el tema que conecta esas palabras y di una que encaje con naturalidad.
Debe ser defendible en el debate. No puedes quedarte en blanco.
Responde con una sola palabra:`)),

	"debate_informed": template.Must(template.New("debate_informed").Funcs(funcs).Parse(`Debate. Conoces la palabra secreta "{{.Secret}}" y tienes PROHIBIDO decirla.
Tu palabra fue "{{.YourWord}}".
Jugadores activos: {{join .Active ", "}}.{{if .Eliminated}} Eliminados: {{join .Eliminated ", "}}.{{end}}
Palabras dichas: {{join .Words ", "}}.
Debate hasta ahora:
{{if .Debate}}{{join .Debate "\n"}}{{else}}(nadie ha hablado){{end}}

Defiende tu palabra sin revelar la secreta y señala a quien dijo la palabra menos conectada.
Responde en 2 o 3 oraciones:`)),

	"debate_impostor": template.Must(template.New("debate_impostor").Funcs(funcs).Parse(`Debate. ERES EL IMPOSTOR y no conoces la palabra secreta.
Tu palabra fue "{{.YourWord}}".
Jugadores activos: {{join .Active ", "}}.{{if .Eliminated}} Eliminados: {{join .Eliminated ", "}}.{{end}}
Palabras dichas: {{join .Words ", "}}.
Debate hasta ahora:
{{if .Debate}}{{join .Debate "\n"}}{{else}}(nadie ha hablado){{end}}

Conecta tu palabra con las de los demás y actúa con confianza. Cuestiona a otro jugador para desviar sospechas.
Responde en 2 o 3 oraciones:`)),

	"vote": template.Must(template.New("vote").Funcs(funcs).Parse(`Votación. Tu palabra fue "{{.YourWord}}".
Palabras de cada jugador:
{{join .Words "\n"}}
Debate completo:
{{if .Debate}}{{join .Debate "\n"}}{{else}}(sin debate){{end}}

Piensa quién dio la palabra menos coherente y quién se defendió peor.
Puedes votar a: {{join .Candidates ", "}}. No puedes votarte a ti mismo.
Responde EXACTAMENTE con este formato:
VOTO: nombre del jugador
RAZON: una o dos oraciones`)),

	"guess": template.Must(template.New("guess").Funcs(funcs).Parse(`Te descubrieron: eras el impostor. Aún puedes ganar si adivinas la palabra secreta.
Palabras que dijeron los demás:
{{join .Words "\n"}}
Lo que se dijo en el debate:
{{if .Debate}}{{join .Debate "\n"}}{{else}}(sin debate){{end}}

¿Qué palabra describían sin decirla?
Responde con una sola palabra:`)),
}

type promptData struct {
	Name       string
	Round      int
	Turn       int
	Secret     string
	Category   string
	YourWord   string
	Words      []string
	Debate     []string
	Active     []string
	Eliminated []string
	Candidates []string
}

func newPromptData(req moves.Request) promptData {
	data := promptData{
		Name:       req.Player.Name,
		Round:      req.Round,
		Turn:       req.TurnIndex + 1,
		Secret:     req.SecretWord,
		Category:   req.Category,
		YourWord:   req.Player.LastWord(),
		Active:     req.Active,
		Eliminated: req.Eliminated,
	}
	for _, w := range req.WordLog {
		if req.Task == moves.TaskWord {
			data.Words = append(data.Words, w.Word)
		} else {
			data.Words = append(data.Words, fmt.Sprintf("%s: %s", w.Name, w.Word))
		}
	}
	for _, m := range req.DebateLog {
		data.Debate = append(data.Debate, fmt.Sprintf("%s: %s", m.Name, m.Text))
	}
	for _, c := range req.Candidates {
		data.Candidates = append(data.Candidates, c.Name)
	}
	return data
}

func promptKey(req moves.Request) (string, error) {
	impostor := req.Player.IsImpostor()
	switch req.Task {
	case moves.TaskWord:
		if impostor {
			return "word_impostor", nil
		}
		return "word_informed", nil
	case moves.TaskDebate:
		if impostor {
			return "debate_impostor", nil
		}
		return "debate_informed", nil
	case moves.TaskVote:
		return "vote", nil
	case moves.TaskGuess:
		return "guess", nil
	}
	return "", fmt.Errorf("no prompt for task %q", req.Task)
}

// BuildPrompt renders the user prompt for req.
func BuildPrompt(req moves.Request) (string, error) {
	key, err := promptKey(req)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := prompts[key].Execute(&buf, newPromptData(req)); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", key, err)
	}
	return buf.String(), nil
}

// BuildSystemPrompt renders the per-player system message.
func BuildSystemPrompt(req moves.Request) (string, error) {
	var buf bytes.Buffer
	if err := systemPrompt.Execute(&buf, newPromptData(req)); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return buf.String(), nil
}

var thinkingModels = []string{"qwen3", "deepseek-r1", "qwq"}

// WithThinkingDisabled appends /no_think for models that reason by default.
func WithThinkingDisabled(model, prompt string) string {
	lower := strings.ToLower(model)
	for _, m := range thinkingModels {
		if strings.HasPrefix(lower, m) {
			return prompt + "\n/no_think"
		}
	}
	return prompt
}
