package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/taieye/internal/model"
)

// Analyzer scores and explains one text
type Analyzer interface {
	AnalyzeText(ctx context.Context, text string) (*model.Report, error)
}

// Document is one input of a batch run
type Document struct {
	ID   string
	Text string
}

// AnalyzeJob represents one document analysis
type AnalyzeJob struct {
	Index    int
	Document Document
	Analyzer Analyzer
	Limiter  *Limiter
}

// Execute executes the analysis job
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, batchKey); err != nil {
			return &AnalysisResult{Index: j.Index, ID: j.Document.ID, Error: err}
		}
	}

	report, err := j.Analyzer.AnalyzeText(ctx, j.Document.Text)
	if err != nil {
		return &AnalysisResult{Index: j.Index, ID: j.Document.ID, Error: err}
	}
	return &AnalysisResult{Index: j.Index, ID: j.Document.ID, Report: report}
}

// AnalysisResult represents the result of an analysis job
type AnalysisResult struct {
	Index  int
	ID     string
	Report *model.Report
	Error  error
}

// GetError returns the error from the analysis result
func (r *AnalysisResult) GetError() error {
	return r.Error
}

const batchKey = "batch"

// BatchProcessor analyzes multiple documents concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a new batch processor. A non-positive
// requestsPerSecond disables throttling.
func NewBatchProcessor(analyzer Analyzer, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	var limiter *Limiter
	if requestsPerSecond > 0 {
		limiter = NewLimiter(requestsPerSecond, burst)
	}
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

// ProcessDocuments analyzes documents concurrently. Results keep input order;
// documents never started because ctx was cancelled carry ctx.Err().
func (b *BatchProcessor) ProcessDocuments(ctx context.Context, docs []Document) []*AnalysisResult {
	out := make([]*AnalysisResult, len(docs))
	if len(docs) == 0 {
		return out
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, doc := range docs {
		job := &AnalyzeJob{
			Index:    i,
			Document: doc,
			Analyzer: b.analyzer,
			Limiter:  b.limiter,
		}
		if err := pool.Submit(job); err != nil {
			break
		}
	}

	for _, result := range pool.Wait() {
		r := result.(*AnalysisResult)
		out[r.Index] = r
	}

	for i, r := range out {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = &AnalysisResult{Index: i, ID: docs[i].ID, Error: err}
		}
	}
	return out
}

// ProcessFile reads documents from a file and analyzes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AnalysisResult, error) {
	docs, err := ReadDocumentsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}

	return b.ProcessDocuments(ctx, docs), nil
}

// ReadDocumentsFromFile reads one document per line. Blank lines and
// lines starting with # are skipped; repeated texts are analyzed once.
// IDs are the 1-based line numbers.
func ReadDocumentsFromFile(filePath string) ([]Document, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var docs []Document
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			docs = append(docs, Document{ID: fmt.Sprintf("line-%d", lineNo), Text: line})
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return docs, nil
}
