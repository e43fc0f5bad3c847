package moves

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/scythe504/impostor-backend/internal"
	"github.com/valyala/fastrand"
)

var (
	thinkBlock     = regexp.MustCompile(`(?is)<\s*think(?:ing)?\s*>.*?<\s*/\s*think(?:ing)?\s*>`)
	thinkUnclosed  = regexp.MustCompile(`(?is)<\s*think(?:ing)?\s*>.*`)
	thinkOrphan    = regexp.MustCompile(`(?i)<\s*/\s*think(?:ing)?\s*>`)
	htmlTag        = regexp.MustCompile(`<[^>]+>`)
	bracketed      = regexp.MustCompile(`\[.*?\]`)
	thinkingParens = regexp.MustCompile(`(?i)\((?:pensando|thinking).*?\)`)
	answerPrefix   = regexp.MustCompile(`(?im)^\s*(?:respuesta|answer|output|response)\s*:\s*`)
)

var reasoningMarkers = []string{"pensando:", "thinking:", "razonamiento:", "analisis:", "análisis:", "<think", "</think"}

// ForbiddenWords are model artifacts never accepted as a word move.
var ForbiddenWords = map[string]bool{
	"think":     true,
	"thinking":  true,
	"pensando":  true,
	"respuesta": true,
	"answer":    true,
	"output":    true,
	"response":  true,
}

var genericWords = []string{"algo", "cosa", "idea", "momento", "lugar", "objeto"}

// Clean strips reasoning blocks, markup and answer prefixes from raw model output.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = thinkBlock.ReplaceAllString(text, "")
	text = thinkUnclosed.ReplaceAllString(text, "")
	text = thinkOrphan.ReplaceAllString(text, "")
	text = htmlTag.ReplaceAllString(text, "")
	text = bracketed.ReplaceAllString(text, "")
	text = thinkingParens.ReplaceAllString(text, "")
	text = answerPrefix.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		lower := strings.ToLower(strings.TrimSpace(line))
		skip := false
		for _, marker := range reasoningMarkers {
			if strings.HasPrefix(lower, marker) {
				skip = true
				break
			}
		}
		if !skip {
			kept = append(kept, line)
		}
	}
	text = strings.TrimSpace(strings.Join(kept, "\n"))

	if len(text) >= 2 {
		if (text[0] == '"' && text[len(text)-1] == '"') || (text[0] == '\'' && text[len(text)-1] == '\'') {
			text = text[1 : len(text)-1]
		}
	}
	return strings.TrimSpace(text)
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// IsValidWord rejects artifacts and single characters.
func IsValidWord(word string) bool {
	return !ForbiddenWords[strings.ToLower(word)] && utf8.RuneCountInString(word) > 1
}

// Word extracts a single word from a model response.
func Word(text string) (string, bool) {
	for _, field := range strings.Fields(Clean(text)) {
		word := strings.ToLower(trimPunct(field))
		if word == "" {
			continue
		}
		return word, IsValidWord(word)
	}
	return "", false
}

// Guess extracts the impostor's guess from a model response.
func Guess(text string) (string, bool) {
	return Word(text)
}

// CensorSecret replaces every case-insensitive occurrence of secret with ****.
func CensorSecret(text, secret string) string {
	if text == "" || secret == "" {
		return text
	}
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(secret))
	return pattern.ReplaceAllString(text, "****")
}

// Debate cleans a debate message and censors the secret word.
func Debate(text, secret string) (string, bool) {
	cleaned := CensorSecret(Clean(text), secret)
	if utf8.RuneCountInString(cleaned) < internal.MinDebateLength {
		return "", false
	}
	return cleaned, true
}

// VoteChoice is a parsed vote.
type VoteChoice struct {
	TargetID      string
	Justification string
}

var justificationPrefixes = []string{"porque", "because", "ya que", "dado que", "pues", ".", ",", ":", "-"}

// Vote extracts a vote target and justification from a model response.
// Structured "VOTE:"/"VOTO:" and "REASON:"/"RAZON:" lines win, then any
// candidate name in the text, then a word-prefix match.
func Vote(text string, candidates []Candidate) (VoteChoice, bool) {
	cleaned := Clean(text)
	var choice VoteChoice
	var target *Candidate

	for _, line := range strings.Split(cleaned, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "voto:") || strings.HasPrefix(lower, "vote:"):
			part := strings.ToLower(trimmed[5:])
			if target == nil {
				target = findName(part, candidates)
			}
		case strings.HasPrefix(lower, "razon:") || strings.HasPrefix(lower, "razón:") || strings.HasPrefix(lower, "reason:"):
			if _, after, ok := strings.Cut(trimmed, ":"); ok {
				choice.Justification = strings.TrimSpace(after)
			}
		}
	}

	if target == nil {
		target = findName(strings.ToLower(cleaned), candidates)
	}
	if target == nil {
		target = prefixMatch(cleaned, candidates)
	}
	if target == nil {
		return VoteChoice{}, false
	}
	choice.TargetID = target.ID

	if choice.Justification == "" {
		choice.Justification = justificationAfter(cleaned, target.Name)
	}
	return choice, true
}

// justificationAfter returns the text following name in cleaned, minus a
// leading connective, with the original casing kept.
func justificationAfter(cleaned, name string) string {
	lower := strings.ToLower(cleaned)
	at := strings.Index(lower, strings.ToLower(name))
	if at < 0 {
		return ""
	}
	source := cleaned
	if len(lower) != len(cleaned) {
		// lowering changed byte widths, offsets only hold in lower
		source = lower
	}
	just := strings.TrimSpace(source[at+len(name):])
	for _, prefix := range justificationPrefixes {
		if len(just) >= len(prefix) && strings.EqualFold(just[:len(prefix)], prefix) {
			just = strings.TrimSpace(just[len(prefix):])
		}
	}
	return just
}

// findName returns the candidate whose name appears earliest in text,
// preferring the longest name at the same position.
func findName(text string, candidates []Candidate) *Candidate {
	var best *Candidate
	bestAt := -1
	for i := range candidates {
		name := strings.ToLower(candidates[i].Name)
		if name == "" {
			continue
		}
		at := strings.Index(text, name)
		if at < 0 {
			continue
		}
		if best == nil || at < bestAt || (at == bestAt && len(name) > len(best.Name)) {
			best = &candidates[i]
			bestAt = at
		}
	}
	return best
}

func prefixMatch(text string, candidates []Candidate) *Candidate {
	for _, field := range strings.Fields(strings.ToLower(text)) {
		word := trimPunct(field)
		if utf8.RuneCountInString(word) < 3 {
			continue
		}
		for i := range candidates {
			name := strings.ToLower(candidates[i].Name)
			if strings.HasPrefix(name, word) || strings.HasPrefix(word, name) {
				return &candidates[i]
			}
		}
	}
	return nil
}

// FallbackWord returns a generic word used when a word move is unusable.
func FallbackWord() string {
	return genericWords[fastrand.Uint32n(uint32(len(genericWords)))]
}
