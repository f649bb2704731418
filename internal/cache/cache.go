package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/taieye/internal/model"
)

// Cache stores serialized reports keyed by CacheKey
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Backend names
const (
	BackendMemory  = "memory"
	BackendDisk    = "disk"
	BackendLayered = "layered"
	BackendRedis   = "redis"
)

// CacheKey identifies one analysis: the exact text, the sampling
// parameters and the artifacts that scored it.
func CacheKey(text string, samples int, seed int64, versions model.ArtifactVersions) string {
	h := sha256.New()
	for _, part := range []string{
		text,
		strconv.Itoa(samples),
		strconv.FormatInt(seed, 10),
		versions.Embedding,
		versions.Scaler,
		versions.Classifier,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "taieye:v1:" + hex.EncodeToString(h.Sum(nil))
}

// New builds the configured cache backend. It returns nil when caching is disabled.
func New(cfg model.CacheConfig, logger *zap.Logger) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute), nil
	case BackendDisk:
		return NewDiskCache(cfg.Dir, cfg.DiskTTL), nil
	case BackendLayered:
		return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL), nil
	case BackendRedis:
		return NewRedisCache(cfg.RedisAddr, cfg.RedisDB, cfg.DiskTTL, logger)
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", model.ErrInvalidParameter, cfg.Backend)
	}
}
