package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/taieye/internal/model"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"line-3", "line-3"},
		{"a/b:c", "a_b_c"},
		{"two words", "two-words"},
		{strings.Repeat("x", 150), strings.Repeat("x", 100)},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReadText(t *testing.T) {
	got, err := readText([]string{"BREAKING!!!", "news"}, "", nil)
	if err != nil || got != "BREAKING!!! news" {
		t.Errorf("args: got %q, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(path, []byte("from file"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = readText([]string{"ignored"}, path, nil)
	if err != nil || got != "from file" {
		t.Errorf("file: got %q, %v", got, err)
	}

	got, err = readText(nil, "", strings.NewReader("from stdin"))
	if err != nil || got != "from stdin" {
		t.Errorf("stdin: got %q, %v", got, err)
	}

	if _, err := readText(nil, filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSetDefaults_EnvOverrides(t *testing.T) {
	t.Setenv("TAIEYE_EXPLAIN_SAMPLES", "123")
	t.Setenv("TAIEYE_CACHE_BACKEND", "disk")

	v := viper.New()
	if err := setDefaults(v, model.DefaultConfig()); err != nil {
		t.Fatalf("setDefaults failed: %v", err)
	}
	v.SetEnvPrefix("TAIEYE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &model.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if cfg.Explain.Samples != 123 {
		t.Errorf("samples = %d, want 123", cfg.Explain.Samples)
	}
	if cfg.Cache.Backend != "disk" {
		t.Errorf("backend = %q, want disk", cfg.Cache.Backend)
	}
	defaults := model.DefaultConfig()
	if cfg.Cache.MemoryTTL != defaults.Cache.MemoryTTL {
		t.Errorf("memory ttl = %v, want %v", cfg.Cache.MemoryTTL, defaults.Cache.MemoryTTL)
	}
	if cfg.Explain.KernelWidth != defaults.Explain.KernelWidth || cfg.Classifier.Threshold != defaults.Classifier.Threshold {
		t.Errorf("defaults lost: %+v / %+v", cfg.Explain, cfg.Classifier)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".taieye", "config.yaml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config does not parse: %v", err)
	}
	if cfg.Explain.Samples != 50 || cfg.Cache.DiskTTL != 24*time.Hour {
		t.Errorf("unexpected config: %+v", cfg.Explain)
	}

	if err := writeDefaultConfig(path); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second write error = %v, want already exists", err)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	if !strings.HasPrefix(buf.String(), "taieye ") {
		t.Errorf("version output = %q", buf.String())
	}
}
