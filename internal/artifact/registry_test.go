package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ppiankov/taieye/internal/artifact/artifacttest"
	"github.com/ppiankov/taieye/internal/classify"
	"github.com/ppiankov/taieye/internal/embed"
	"github.com/ppiankov/taieye/internal/model"
)

func TestRegistry_LoadsPipeline(t *testing.T) {
	paths := artifacttest.Write(t, t.TempDir())
	r := NewRegistry(paths, model.DefaultThreshold, nil)

	p, err := r.Pipeline()
	if err != nil {
		t.Fatalf("Pipeline: %v", err)
	}
	if p.EmbeddingDim() != artifacttest.EmbeddingDim {
		t.Errorf("embedding dim = %d", p.EmbeddingDim())
	}

	v := r.Versions()
	if v.Embedding == "" || v.Scaler == "" || v.Classifier == "" {
		t.Errorf("missing versions: %+v", v)
	}
}

func TestRegistry_LoadsOnceConcurrently(t *testing.T) {
	paths := artifacttest.Write(t, t.TempDir())
	r := NewRegistry(paths, model.DefaultThreshold, nil)

	var wg sync.WaitGroup
	results := make([]*embed.Model, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			emb, err := r.Embedding()
			if err != nil {
				t.Errorf("Embedding: %v", err)
				return
			}
			results[i] = emb
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d saw a different model instance", i)
		}
	}
}

func TestRegistry_RemembersFailure(t *testing.T) {
	dir := t.TempDir()
	paths := artifacttest.Write(t, dir)
	missing := paths
	missing.Classifier = filepath.Join(dir, "absent.yaml")
	r := NewRegistry(missing, model.DefaultThreshold, nil)

	if _, err := r.Pipeline(); !errors.Is(err, model.ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}

	// the artifact appearing later does not trigger a reload
	data, _ := os.ReadFile(paths.Classifier)
	if err := os.WriteFile(missing.Classifier, data, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Classifier(); !errors.Is(err, model.ErrModelUnavailable) {
		t.Errorf("err = %v, want remembered ErrModelUnavailable", err)
	}

	status := r.Status()
	if status["embedding"] != "ok" || status["scaler"] != "ok" {
		t.Errorf("status = %v", status)
	}
	if status["classifier"] == "ok" {
		t.Error("classifier reported ok after failed load")
	}
}

func TestRegistry_LayoutDisagreement(t *testing.T) {
	dir := t.TempDir()
	paths := artifacttest.Write(t, dir)

	spec := artifacttest.ClassifierSpec()
	spec.InputDim++
	for i := range spec.Members {
		spec.Members[i].Weights = append(spec.Members[i].Weights, 0)
	}
	if err := classify.SaveClassifier(paths.Classifier, spec); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(paths, model.DefaultThreshold, nil)
	if _, err := r.Pipeline(); !errors.Is(err, model.ErrSchemaMismatch) {
		t.Errorf("err = %v, want ErrSchemaMismatch", err)
	}
}
