package words

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/valyala/fastrand"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

//go:embed words.csv
var embeddedCSV []byte

// Entry is one secret word candidate.
type Entry struct {
	Word     string `json:"word"`
	Category string `json:"category"`
}

// Bank is an immutable set of words grouped by category.
type Bank struct {
	categories map[string][]string
	names      []string
}

// Default returns the bank built from the embedded word list.
func Default() *Bank {
	bank, err := ReadCSV(bytes.NewReader(embeddedCSV))
	if err != nil {
		panic(fmt.Sprintf("embedded word list: %v", err))
	}
	return bank
}

// ReadCSV parses "category,word" records. A leading header row is skipped.
func ReadCSV(r io.Reader) (*Bank, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse word csv: %w", err)
	}

	bank := &Bank{categories: make(map[string][]string)}
	for i, record := range records {
		if len(record) < 2 {
			continue
		}
		category := strings.ToLower(strings.TrimSpace(record[0]))
		word := strings.ToLower(strings.TrimSpace(record[1]))
		if i == 0 && category == "category" {
			continue
		}
		if category == "" || word == "" {
			continue
		}
		bank.categories[category] = append(bank.categories[category], word)
	}
	if len(bank.categories) == 0 {
		return nil, fmt.Errorf("word csv has no entries")
	}

	for name := range bank.categories {
		bank.names = append(bank.names, name)
	}
	sort.Strings(bank.names)
	return bank, nil
}

func (b *Bank) Categories() []string {
	return append([]string(nil), b.names...)
}

// Random picks a word, from category when it is non-empty and known.
func (b *Bank) Random(category string) Entry {
	category = strings.ToLower(strings.TrimSpace(category))
	list, ok := b.categories[category]
	if !ok {
		category = b.names[fastrand.Uint32n(uint32(len(b.names)))]
		list = b.categories[category]
	}
	return Entry{
		Word:     list[fastrand.Uint32n(uint32(len(list)))],
		Category: category,
	}
}

// Fold lowercases, trims and strips diacritics so "Pingüino " folds to "pinguino".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return folded
}

// IsMatch reports whether guess names the secret word.
func IsMatch(guess, secret string) bool {
	g := Fold(guess)
	return g != "" && g == Fold(secret)
}
