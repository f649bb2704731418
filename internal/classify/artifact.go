package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/ppiankov/taieye/internal/model"
	"gopkg.in/yaml.v3"
)

// readArtifact decodes a YAML (or JSON) artifact and returns its content hash
func readArtifact(path string, out interface{}) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", model.ErrModelUnavailable, path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return "", fmt.Errorf("%w: decode %s: %v", model.ErrModelUnavailable, path, err)
	}
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])[:16], nil
}

// writeArtifact encodes an artifact as YAML
func writeArtifact(path string, in interface{}) error {
	data, err := yaml.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
