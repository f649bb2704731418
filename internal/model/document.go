package model

import (
	"strings"
	"unicode"
)

// Document is the raw text submitted for analysis
type Document struct {
	text  string
	words []string
}

// NewDocument creates a document from raw text
func NewDocument(text string) Document {
	return Document{
		text:  text,
		words: strings.Fields(text),
	}
}

// Text returns the raw text
func (d Document) Text() string {
	return d.text
}

// Words returns the whitespace-delimited words in order.
// Punctuation stays attached to its word.
func (d Document) Words() []string {
	out := make([]string, len(d.words))
	copy(out, d.words)
	return out
}

// Units returns the distinct words in first-occurrence order
func (d Document) Units() []string {
	seen := make(map[string]bool, len(d.words))
	var units []string
	for _, w := range d.words {
		if !seen[w] {
			seen[w] = true
			units = append(units, w)
		}
	}
	return units
}

// Without rebuilds the text keeping only words whose unit is retained.
// Remaining words keep their original order and are joined by single spaces.
func (d Document) Without(removed map[string]bool) string {
	kept := make([]string, 0, len(d.words))
	for _, w := range d.words {
		if !removed[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// IsAnalyzable reports whether a token carries a letter or a digit
func IsAnalyzable(token string) bool {
	for _, r := range token {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
