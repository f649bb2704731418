package langguard

import (
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"

	"github.com/ppiankov/taieye/internal/model"
)

// Indeterminate reasons
const (
	ReasonTooFewWords   = "too_few_words"
	ReasonTooFewLetters = "too_few_letters"
	ReasonUndetected    = "undetected"
	ReasonLowConfidence = "low_confidence"
)

// Guard decides whether a text is English. It never coerces an
// uncertain outcome into yes or no.
type Guard struct {
	cfg model.LanguageConfig
}

// New creates a guard with the given thresholds
func New(cfg model.LanguageConfig) *Guard {
	return &Guard{cfg: cfg}
}

// Check returns the three-valued language verdict for text
func (g *Guard) Check(text string) model.LanguageInfo {
	words := strings.Fields(text)
	if len(words) < g.cfg.MinWords {
		return indeterminate(ReasonTooFewWords)
	}

	letters := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < g.cfg.MinLetters {
		return indeterminate(ReasonTooFewLetters)
	}

	info := whatlanggo.Detect(text)
	if info.Lang < 0 || info.Script == nil {
		return indeterminate(ReasonUndetected)
	}

	code := info.Lang.Iso6393()
	if info.Confidence < g.cfg.MinConfidence {
		out := indeterminate(ReasonLowConfidence)
		out.Language = code
		out.Confidence = info.Confidence
		return out
	}

	verdict := model.LanguageNonEnglish
	if info.Lang == whatlanggo.Eng {
		verdict = model.LanguageEnglish
	}
	return model.LanguageInfo{
		Verdict:    verdict,
		Language:   code,
		Confidence: info.Confidence,
	}
}

func indeterminate(reason string) model.LanguageInfo {
	return model.LanguageInfo{Verdict: model.LanguageIndeterminate, Reason: reason}
}
