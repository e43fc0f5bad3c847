package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/enescakir/emoji"

	"github.com/scythe504/impostor-backend/internal"
)

// ErrNotFinished is returned when a transcript is asked for before GAME_OVER.
var ErrNotFinished = errors.New("game has not finished")

var headings = map[string]string{
	"players": emoji.Parse(":busts_in_silhouette: Jugadores"),
	"words":   emoji.Parse(":memo: Ronda de palabras"),
	"debate":  emoji.Parse(":speech_balloon: Debate"),
	"votes":   emoji.Parse(":ballot_box_with_ballot: Votación"),
	"result":  emoji.Parse(":trophy: Resultado"),
	"scores":  emoji.Parse(":bar_chart: Puntuaciones"),
}

var transcript = template.Must(template.New("transcript").Funcs(template.FuncMap{
	"heading": func(key string) string { return headings[key] },
	"name":    playerName,
	"when":    func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
}).Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Partida {{.State.GameID}}</title>
<style>
body { background: #1a1a2e; color: #e5e7eb; font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; padding: 20px; }
.container { max-width: 900px; margin: 0 auto; }
section { background: rgba(45,45,68,.8); border-radius: 12px; padding: 16px 20px; margin-bottom: 16px; }
h1 { text-align: center; }
.secret { color: #fbbf24; font-size: 1.4rem; text-align: center; }
.impostor { color: #f87171; font-weight: bold; }
.eliminated { text-decoration: line-through; opacity: .6; }
.muted { color: #9ca3af; font-size: .85rem; }
table { width: 100%; border-collapse: collapse; }
td, th { padding: 6px; text-align: left; border-bottom: 1px solid rgba(255,255,255,.1); }
</style>
</head>
<body>
<div class="container">
<h1>{{.Banner}}</h1>
<p class="muted" style="text-align:center">Partida {{.State.GameID}} · {{when .State.CreatedAt}}</p>
{{with .State.Result}}<p class="secret">Palabra secreta: <strong>{{.SecretWord}}</strong>{{if .Category}} ({{.Category}}){{end}}</p>{{end}}

<section>
<h2>{{heading "players"}}</h2>
<ul>
{{range .State.Players}}<li style="color: {{.Color}}"{{if .IsEliminated}} class="eliminated"{{end}}>{{.Icon}} {{.Name}}{{if .Model}} <span class="muted">{{.Model}}</span>{{end}}{{if .IsImpostor}} <span class="impostor">IMPOSTOR</span>{{end}}</li>
{{end}}</ul>
</section>

<section>
<h2>{{heading "words"}}</h2>
<ol>
{{range .State.WordLog}}<li>{{.Name}}: <strong>{{.Word}}</strong></li>
{{end}}</ol>
</section>

<section>
<h2>{{heading "debate"}}</h2>
{{range .State.DebateLog}}<p><strong>{{.Name}}</strong>{{if .Interactive}} <span class="muted">(humano)</span>{{end}}: {{.Text}}</p>
{{else}}<p class="muted">Sin mensajes.</p>
{{end}}</section>

<section>
<h2>{{heading "votes"}}</h2>
<p class="muted">Rondas de votación: {{.State.VoteRound}}</p>
<table>
<tr><th>Votante</th><th>Voto</th><th>Razón</th></tr>
{{range .State.Votes}}<tr><td>{{name $.State .VoterID}}</td><td>{{if .Abstained}}<em>abstención</em>{{else}}{{name $.State .TargetID}}{{end}}</td><td>{{.Justification}}</td></tr>
{{end}}</table>
</section>

{{with .State.Result}}<section>
<h2>{{heading "result"}}</h2>
<p>Impostor: <span class="impostor">{{.ImpostorName}}</span></p>
{{if .EliminatedID}}<p>Eliminado: {{name $.State .EliminatedID}}</p>{{end}}
{{if .GuessMade}}<p>Intento del impostor: <strong>{{.Guess}}</strong></p>{{end}}
<p>Resultado: {{.Outcome}}</p>
</section>{{end}}

{{with .State.Final}}<section>
<h2>{{heading "scores"}}</h2>
<table>
<tr><th>#</th><th>Jugador</th><th>Rol</th><th>Puntos</th></tr>
{{range .Leaderboard}}<tr><td>{{.Position}}</td><td>{{.Name}}</td><td>{{.Role}}</td><td>{{.Score}}</td></tr>
{{end}}</table>
{{with .MVP}}<p>MVP: <strong>{{.Name}}</strong> ({{.Score}})</p>{{end}}
</section>{{end}}

<p class="muted" style="text-align:center">Generado {{when .GeneratedAt}}</p>
</div>
</body>
</html>
`))

type page struct {
	State       internal.GameStateData
	Banner      string
	GeneratedAt time.Time
}

func playerName(state internal.GameStateData, id string) string {
	for _, p := range state.Players {
		if p.Id == id {
			return p.Name
		}
	}
	return id
}

func banner(result *internal.Result) string {
	if result.Winner == internal.WinnerInformed {
		return emoji.Parse(":tada: ¡Ganan los inocentes!")
	}
	return emoji.Parse(":performing_arts: ¡Gana el impostor!")
}

// HTML renders a standalone transcript of a finished game.
func HTML(state internal.GameStateData) ([]byte, error) {
	if state.Result == nil {
		return nil, ErrNotFinished
	}
	var buf bytes.Buffer
	err := transcript.Execute(&buf, page{
		State:       state,
		Banner:      banner(state.Result),
		GeneratedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("render transcript: %w", err)
	}
	return buf.Bytes(), nil
}

// Document is the autosave form of a game.
type Document struct {
	ExportedAt time.Time              `json:"exported_at"`
	Game       internal.GameStateData `json:"game"`
}

// JSON renders the autosave document for state.
func JSON(state internal.GameStateData) ([]byte, error) {
	return json.MarshalIndent(Document{ExportedAt: time.Now().UTC(), Game: state}, "", "  ")
}
