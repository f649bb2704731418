package extract

import (
	"bufio"
	"embed"
	"fmt"
	"strings"

	"github.com/kljensen/snowball"
)

//go:embed lexicon/*.txt
var lexiconFS embed.FS

// Lexicon is a set of stemmed English words
type Lexicon struct {
	stems map[string]struct{}
}

// LoadLexicon reads an embedded word list, one word per line, '#' comments allowed
func LoadLexicon(name string) (*Lexicon, error) {
	f, err := lexiconFS.Open("lexicon/" + name)
	if err != nil {
		return nil, fmt.Errorf("open lexicon %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	lex := &Lexicon{stems: make(map[string]struct{})}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lex.stems[stem(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lexicon %s: %w", name, err)
	}

	return lex, nil
}

// Contains reports whether the stem of word is in the lexicon
func (l *Lexicon) Contains(word string) bool {
	_, ok := l.stems[stem(word)]
	return ok
}

// stem reduces a lower-case word with the English snowball stemmer.
// Words the stemmer rejects are used as-is.
func stem(word string) string {
	word = strings.ToLower(word)
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

// wordSet loads an embedded word list without stemming
func wordSet(name string) (map[string]struct{}, error) {
	f, err := lexiconFS.Open("lexicon/" + name)
	if err != nil {
		return nil, fmt.Errorf("open word list %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	set := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[line] = struct{}{}
	}
	return set, scanner.Err()
}
