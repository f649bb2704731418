package extract

import (
	"strings"

	"github.com/jdkato/prose/summarize"
)

// Flesch-Kincaid grade level coefficients
const (
	fkSentenceWeight = 0.39
	fkSyllableWeight = 11.8
	fkOffset         = 15.59
)

// fleschKincaidGrade estimates the US school grade needed to read a text
func fleschKincaidGrade(words, sentences, syllables int) float64 {
	if words == 0 {
		return 0
	}
	if sentences < 1 {
		sentences = 1
	}
	return fkSentenceWeight*(float64(words)/float64(sentences)) +
		fkSyllableWeight*(float64(syllables)/float64(words)) -
		fkOffset
}

// countSyllables counts the syllables of one word. Words without letters
// have none; every other word has at least one.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	if !strings.ContainsFunc(word, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
		return 0
	}
	if n := summarize.Syllables(word); n > 0 {
		return n
	}
	return 1
}
