package model

import "time"

// Report is the complete result of one analysis call
type Report struct {
	ID        string    `json:"id"`         // Classification ID
	CreatedAt time.Time `json:"created_at"` // When the analysis ran
	TextChars int       `json:"text_chars"` // Length of the analyzed text
	WordCount int       `json:"word_count"` // Whitespace words in the text

	Probability float64 `json:"probability"` // Calibrated probability of fake
	Label       Label   `json:"label"`       // Derived verdict
	Threshold   float64 `json:"threshold"`   // Threshold used for the label

	Language LanguageInfo  `json:"language"` // Language guard outcome
	Features FeatureVector `json:"features"` // Raw extracted features

	WordContributions    []Contribution `json:"word_contributions"`    // Ranked word weights
	FeatureContributions []Contribution `json:"feature_contributions"` // Ranked feature weights

	WordExplanation    ExplanationMeta `json:"word_explanation"`    // Surrogate fit for words
	FeatureExplanation ExplanationMeta `json:"feature_explanation"` // Surrogate fit for features

	Artifacts ArtifactVersions `json:"artifacts"` // Model identities used

	Narrative *Narrative `json:"narrative,omitempty"` // Optional LLM narrative (never affects scoring)

	ElapsedMS int64 `json:"elapsed_ms"`
	Cached    bool  `json:"cached,omitempty"`
}

// Prediction returns the report's probability and label
func (r *Report) Prediction() PredictionResult {
	return PredictionResult{Probability: r.Probability, Label: r.Label}
}

// ExplanationMeta describes one local surrogate fit
type ExplanationMeta struct {
	Granularity     string  `json:"granularity"`      // word or feature
	Samples         int     `json:"samples"`          // Perturbations actually used
	Units           int     `json:"units"`            // Units in the surrogate, before any top-k cut
	Seed            int64   `json:"seed"`             // PRNG seed
	Intercept       float64 `json:"intercept"`        // Surrogate intercept
	LocalPrediction float64 `json:"local_prediction"` // Surrogate output at the original input
	Score           float64 `json:"score"`            // Weighted R² of the surrogate
}

// ArtifactVersions identifies the frozen artifacts behind a prediction
type ArtifactVersions struct {
	Embedding  string `json:"embedding"`
	Scaler     string `json:"scaler"`
	Classifier string `json:"classifier"`
}

// LanguageVerdict is the three-valued language guard outcome
type LanguageVerdict string

const (
	LanguageEnglish       LanguageVerdict = "english"
	LanguageNonEnglish    LanguageVerdict = "non_english"
	LanguageIndeterminate LanguageVerdict = "indeterminate"
)

// LanguageInfo is the language guard result
type LanguageInfo struct {
	Verdict    LanguageVerdict `json:"verdict"`
	Language   string          `json:"language,omitempty"` // ISO 639-3 code when detected
	Confidence float64         `json:"confidence"`
	Reason     string          `json:"reason,omitempty"` // Why the verdict is indeterminate
}

// Narrative contains an optional LLM-generated plain-language summary
type Narrative struct {
	Enabled  bool     `json:"enabled"`
	Provider string   `json:"provider,omitempty"`
	Model    string   `json:"model,omitempty"`
	Strict   bool     `json:"strict"`
	Text     string   `json:"text,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// FeatureReport is the output of the feature-only path
type FeatureReport struct {
	WordCount int           `json:"word_count"`
	Language  LanguageInfo  `json:"language"`
	Features  FeatureVector `json:"features"`
}
