package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/taieye/internal/model"
)

// mockAnalyzer implements Analyzer
type mockAnalyzer struct {
	shouldError bool
}

func (m *mockAnalyzer) AnalyzeText(ctx context.Context, text string) (*model.Report, error) {
	time.Sleep(10 * time.Millisecond) // Simulate work
	if m.shouldError {
		return nil, model.ErrNonEnglish
	}
	return &model.Report{
		TextChars:   len(text),
		Probability: 0.25,
		Label:       model.LabelReal,
	}, nil
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docs.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessDocuments(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{}, 2, 0, 0)

	docs := []Document{
		{ID: "a", Text: "first"},
		{ID: "b", Text: "second text"},
		{ID: "c", Text: "third document here"},
	}
	results := processor.ProcessDocuments(context.Background(), docs)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.ID, res.Error)
			continue
		}
		if res.ID != docs[i].ID {
			t.Errorf("result %d has ID %s, want %s (input order)", i, res.ID, docs[i].ID)
		}
		if res.Report.TextChars != len(docs[i].Text) {
			t.Errorf("result %d report belongs to another document", i)
		}
	}
}

func TestBatchProcessor_ProcessDocuments_Error(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{shouldError: true}, 2, 0, 0)

	results := processor.ProcessDocuments(context.Background(), []Document{{ID: "x", Text: "bonjour"}})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !errors.Is(results[0].Error, model.ErrNonEnglish) {
		t.Errorf("expected ErrNonEnglish, got %v", results[0].Error)
	}
	if results[0].Report != nil {
		t.Error("expected nil report on error")
	}
}

func TestBatchProcessor_ProcessDocuments_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{}, 2, 0, 0)

	results := processor.ProcessDocuments(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{}, 1, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := []Document{{ID: "a", Text: "one"}, {ID: "b", Text: "two"}}
	results := processor.ProcessDocuments(ctx, docs)

	if len(results) != 2 {
		t.Fatalf("expected a result per document, got %d", len(results))
	}
	for _, r := range results {
		if r == nil || r.Error == nil {
			t.Errorf("expected cancellation error, got %+v", r)
		}
	}
}

func TestBatchProcessor_RateLimited(t *testing.T) {
	// 20 rps, burst 1: three documents need at least ~100ms
	processor := NewBatchProcessor(&mockAnalyzer{}, 3, 20, 1)
	docs := []Document{{ID: "a", Text: "a"}, {ID: "b", Text: "b"}, {ID: "c", Text: "c"}}

	start := time.Now()
	results := processor.ProcessDocuments(context.Background(), docs)
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("expected throttling, batch finished in %v", elapsed)
	}
	for _, r := range results {
		if r.Error != nil {
			t.Errorf("unexpected error: %v", r.Error)
		}
	}
}

func TestReadDocumentsFromFile(t *testing.T) {
	content := `BREAKING!!! You won't believe this
# comment
The committee met on Tuesday.
   
  Officials discussed the budget.   `

	docs, err := ReadDocumentsFromFile(writeTemp(t, content))
	if err != nil {
		t.Fatalf("ReadDocumentsFromFile failed: %v", err)
	}

	expected := []Document{
		{ID: "line-1", Text: "BREAKING!!! You won't believe this"},
		{ID: "line-3", Text: "The committee met on Tuesday."},
		{ID: "line-5", Text: "Officials discussed the budget."},
	}
	if len(docs) != len(expected) {
		t.Fatalf("expected %d documents, got %d", len(expected), len(docs))
	}
	for i, doc := range docs {
		if doc != expected[i] {
			t.Errorf("document %d = %+v, want %+v", i, doc, expected[i])
		}
	}
}

func TestReadDocumentsFromFile_NonExistent(t *testing.T) {
	_, err := ReadDocumentsFromFile("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestReadDocumentsFromFile_Deduplication(t *testing.T) {
	docs, err := ReadDocumentsFromFile(writeTemp(t, "same text\nsame text\n"))
	if err != nil {
		t.Fatalf("ReadDocumentsFromFile failed: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("expected 1 document after deduplication, got %d", len(docs))
	}
}

func TestReadDocumentsFromFile_LongLine(t *testing.T) {
	long := strings.Repeat("word ", 40000)
	docs, err := ReadDocumentsFromFile(writeTemp(t, long))
	if err != nil {
		t.Fatalf("ReadDocumentsFromFile failed: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("expected 1 document, got %d", len(docs))
	}
}

func TestAnalysisResult_GetError(t *testing.T) {
	r1 := &AnalysisResult{ID: "a"}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("analysis failed")
	r2 := &AnalysisResult{ID: "b", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeTemp(t, "first text\nsecond text\n# comment\n\nthird text\n")
	processor := NewBatchProcessor(&mockAnalyzer{}, 2, 0, 0)

	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{}, 2, 0, 0)

	_, err := processor.ProcessFile(context.Background(), "no_such_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}
