package extract

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/ppiankov/taieye/internal/model"
)

// FeatureExtractor is anything that maps text to the feature schema
type FeatureExtractor interface {
	Extract(text string) (model.FeatureVector, error)
}

type memoEntry struct {
	fv  model.FeatureVector
	err error
}

// Memo caches extraction results per exact text.
// Extraction is deterministic, so perturbation variants that repeat are tagged once.
type Memo struct {
	inner FeatureExtractor
	cache *gocache.Cache
}

// NewMemo wraps an extractor with an in-memory cache
func NewMemo(inner FeatureExtractor, ttl time.Duration) *Memo {
	return &Memo{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Extract returns the cached result for text or computes it
func (m *Memo) Extract(text string) (model.FeatureVector, error) {
	if v, ok := m.cache.Get(text); ok {
		entry := v.(memoEntry)
		return entry.fv, entry.err
	}

	fv, err := m.inner.Extract(text)
	m.cache.SetDefault(text, memoEntry{fv: fv, err: err})
	return fv, err
}
