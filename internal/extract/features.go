package extract

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
	"github.com/ppiankov/taieye/internal/model"
)

var thirdPersonPronouns = map[string]struct{}{
	"he": {}, "she": {}, "it": {}, "they": {},
	"him": {}, "her": {}, "them": {},
	"his": {}, "hers": {}, "its": {}, "their": {}, "theirs": {},
	"himself": {}, "herself": {}, "itself": {}, "themselves": {},
}

// Extractor computes the fixed linguistic feature schema for a text.
// It holds only read-only lexicons and a shared tagging model and is
// safe for concurrent use.
type Extractor struct {
	positive *Lexicon
	trust    *Lexicon
	easy     map[string]struct{}
	tagger   *prose.Model
}

// NewExtractor loads the embedded lexicons and the tagging model
func NewExtractor() (*Extractor, error) {
	positive, err := LoadLexicon("nrc_positive.txt")
	if err != nil {
		return nil, err
	}
	trust, err := LoadLexicon("nrc_trust.txt")
	if err != nil {
		return nil, err
	}
	easy, err := wordSet("easy_words.txt")
	if err != nil {
		return nil, err
	}

	// prose builds its tagger and entity model per document unless one is passed in
	seed, err := prose.NewDocument("Load the model once.")
	if err != nil {
		return nil, fmt.Errorf("load tagging model: %w", err)
	}

	return &Extractor{
		positive: positive,
		trust:    trust,
		easy:     easy,
		tagger:   seed.Model,
	}, nil
}

// Extract computes every schema feature for text.
// All frequencies are divided by the number of analyzable words.
func (e *Extractor) Extract(text string) (model.FeatureVector, error) {
	words := analyzableWords(text)
	if len(words) == 0 {
		return model.FeatureVector{}, model.ErrEmptyInput
	}
	n := float64(len(words))

	doc, err := prose.NewDocument(text, prose.UsingModel(e.tagger))
	if err != nil {
		return model.FeatureVector{}, fmt.Errorf("tag text: %w", err)
	}

	var nouns, verbs, cardinals int
	for _, tok := range doc.Tokens() {
		switch {
		case strings.HasPrefix(tok.Tag, "NN"):
			nouns++
		case strings.HasPrefix(tok.Tag, "VB"):
			verbs++
		case tok.Tag == "CD":
			cardinals++
		}
	}

	persons := 0
	for _, ent := range doc.Entities() {
		if ent.Label == "PERSON" {
			persons++
		}
	}

	var pronouns, positive, trust, syllables int
	difficult := make(map[string]struct{})
	for _, w := range words {
		if _, ok := thirdPersonPronouns[w]; ok {
			pronouns++
		}
		if e.positive.Contains(w) {
			positive++
		}
		if e.trust.Contains(w) {
			trust++
		}
		s := countSyllables(w)
		syllables += s
		if _, easy := e.easy[w]; s >= 2 && !easy {
			difficult[w] = struct{}{}
		}
	}

	verbBase := verbs
	if verbBase < 1 {
		verbBase = 1
	}

	values := map[model.FeatureName]float64{
		model.FeatureExclamation:    float64(strings.Count(text, "!")) / n,
		model.FeatureThirdPerson:    float64(pronouns) / n,
		model.FeatureNounToVerb:     float64(nouns) / float64(verbBase),
		model.FeatureCardinal:       float64(cardinals) / n,
		model.FeaturePerson:         float64(persons) / n,
		model.FeatureNRCPositive:    float64(positive) / n,
		model.FeatureNRCTrust:       float64(trust) / n,
		model.FeatureFleschKincaid:  fleschKincaidGrade(len(words), len(doc.Sentences()), syllables),
		model.FeatureDifficultWords: float64(len(difficult)) / n,
		model.FeatureCapitalLetters: float64(countUpper(text)) / n,
	}

	names := model.Schema()
	ordered := make([]float64, len(names))
	for i, name := range names {
		ordered[i] = values[name]
	}
	return model.NewFeatureVector(names, ordered)
}

// WordCount returns the number of analyzable words in text
func WordCount(text string) int {
	return len(analyzableWords(text))
}

// analyzableWords lower-cases whitespace tokens that carry a letter or digit
// and trims surrounding punctuation ("WON'T!!!" becomes "won't").
func analyzableWords(text string) []string {
	var words []string
	for _, tok := range strings.Fields(text) {
		if !model.IsAnalyzable(tok) {
			continue
		}
		w := strings.TrimFunc(strings.ToLower(tok), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		words = append(words, w)
	}
	return words
}

func countUpper(text string) int {
	count := 0
	for _, r := range text {
		if unicode.IsUpper(r) {
			count++
		}
	}
	return count
}
