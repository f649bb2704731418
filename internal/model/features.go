package model

import (
	"encoding/json"
	"fmt"
)

// FeatureName identifies one linguistic feature
type FeatureName string

const (
	FeatureExclamation    FeatureName = "exclamation_point_frequency"
	FeatureThirdPerson    FeatureName = "third_person_pronoun_frequency"
	FeatureNounToVerb     FeatureName = "noun_to_verb_ratio"
	FeatureCardinal       FeatureName = "cardinal_named_entity_frequency"
	FeaturePerson         FeatureName = "person_named_entity_frequency"
	FeatureNRCPositive    FeatureName = "nrc_positive_emotion_score"
	FeatureNRCTrust       FeatureName = "nrc_trust_emotion_score"
	FeatureFleschKincaid  FeatureName = "flesch_kincaid_readability_score"
	FeatureDifficultWords FeatureName = "difficult_words_readability_score"
	FeatureCapitalLetters FeatureName = "capital_letter_frequency"
)

// schema is the frozen feature order shared by the extractor and the scaler
var schema = []FeatureName{
	FeatureExclamation,
	FeatureThirdPerson,
	FeatureNounToVerb,
	FeatureCardinal,
	FeaturePerson,
	FeatureNRCPositive,
	FeatureNRCTrust,
	FeatureFleschKincaid,
	FeatureDifficultWords,
	FeatureCapitalLetters,
}

// Schema returns the fixed feature names in canonical order
func Schema() []FeatureName {
	out := make([]FeatureName, len(schema))
	copy(out, schema)
	return out
}

var featureExplanations = map[FeatureName]string{
	FeatureExclamation:    "High exclamation marks often indicate emotional or sensational writing, commonly seen in fake news.",
	FeatureThirdPerson:    "Frequent use of 'he', 'she', or 'they' shows a narrative style often tied to story-like fake content.",
	FeatureNounToVerb:     "Higher noun usage implies a descriptive, factual tone, more typical of real news.",
	FeatureCardinal:       "Frequent numbers signal factual reporting; real news tends to include more quantifiable data.",
	FeaturePerson:         "Focus on people can indicate propaganda-style disinformation.",
	FeatureNRCPositive:    "Texts with balanced or positive tone are often more credible.",
	FeatureNRCTrust:       "Measures trust-related words; real news typically scores higher.",
	FeatureFleschKincaid:  "Complex writing correlates more with real news; fake news often simplifies language.",
	FeatureDifficultWords: "Advanced vocabulary is typical of professional reporting.",
	FeatureCapitalLetters: "Higher capitalization can suggest emphasis or acronyms; moderate values are common in real news.",
}

// Explanation returns a short human description of the feature
func (f FeatureName) Explanation() string {
	return featureExplanations[f]
}

// FeatureVector is an immutable, ordered set of named feature values
type FeatureVector struct {
	names  []FeatureName
	values []float64
}

// NewFeatureVector builds a vector from parallel name/value slices
func NewFeatureVector(names []FeatureName, values []float64) (FeatureVector, error) {
	if len(names) != len(values) {
		return FeatureVector{}, fmt.Errorf("%w: %d names for %d values", ErrSchemaMismatch, len(names), len(values))
	}
	fv := FeatureVector{
		names:  make([]FeatureName, len(names)),
		values: make([]float64, len(values)),
	}
	copy(fv.names, names)
	copy(fv.values, values)
	return fv, nil
}

// ZeroFeatureVector returns the schema with every value set to 0
func ZeroFeatureVector() FeatureVector {
	return FeatureVector{
		names:  Schema(),
		values: make([]float64, len(schema)),
	}
}

// Len returns the number of features
func (v FeatureVector) Len() int {
	return len(v.names)
}

// Names returns the feature names in vector order
func (v FeatureVector) Names() []FeatureName {
	out := make([]FeatureName, len(v.names))
	copy(out, v.names)
	return out
}

// Values returns the feature values in vector order
func (v FeatureVector) Values() []float64 {
	out := make([]float64, len(v.values))
	copy(out, v.values)
	return out
}

// Get returns the value for a feature name
func (v FeatureVector) Get(name FeatureName) (float64, bool) {
	for i, n := range v.names {
		if n == name {
			return v.values[i], true
		}
	}
	return 0, false
}

// Masked returns a copy with the given features zeroed
func (v FeatureVector) Masked(names ...FeatureName) FeatureVector {
	drop := make(map[FeatureName]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out, _ := NewFeatureVector(v.names, v.values)
	for i, n := range out.names {
		if drop[n] {
			out.values[i] = 0
		}
	}
	return out
}

// Equal reports whether both vectors hold the same names and values in the same order
func (v FeatureVector) Equal(other FeatureVector) bool {
	if len(v.names) != len(other.names) {
		return false
	}
	for i := range v.names {
		if v.names[i] != other.names[i] || v.values[i] != other.values[i] {
			return false
		}
	}
	return true
}

// MarshalJSON renders the vector as an object keyed by feature name
func (v FeatureVector) MarshalJSON() ([]byte, error) {
	m := make(map[FeatureName]float64, len(v.names))
	for i, n := range v.names {
		m[n] = v.values[i]
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads an object keyed by feature name into schema order
func (v *FeatureVector) UnmarshalJSON(data []byte) error {
	var m map[FeatureName]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	names := Schema()
	values := make([]float64, len(names))
	for i, n := range names {
		val, ok := m[n]
		if !ok {
			return fmt.Errorf("%w: missing feature %s", ErrSchemaMismatch, n)
		}
		values[i] = val
	}
	v.names = names
	v.values = values
	return nil
}
