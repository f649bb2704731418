package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/taieye/internal/artifact/artifacttest"
	"github.com/ppiankov/taieye/internal/model"
	"github.com/ppiankov/taieye/internal/pipeline"
)

const headline = "BREAKING!!! You WON'T believe what happened!!!"

func testServer(t *testing.T, mutate func(*model.Config)) *Server {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Artifacts = artifacttest.Write(t, t.TempDir())
	cfg.Cache.Enabled = false
	cfg.Language.MinConfidence = 1.01
	cfg.RateLimiting.RequestsPerSecond = 0
	if mutate != nil {
		mutate(cfg)
	}
	analyzer, err := pipeline.NewAnalyzer(cfg, nil)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}
	return New(cfg, analyzer, nil)
}

func post(t *testing.T, s *Server, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func TestAnalyzeEndpoint(t *testing.T) {
	s := testServer(t, nil)

	status, body := post(t, s, "/v1/analyze", `{"text": "`+headline+`", "samples": 40, "seed": 3}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %s", status, body)
	}

	var report model.Report
	if err := json.Unmarshal(body, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Label != model.LabelFake {
		t.Errorf("label = %s, want fake", report.Label)
	}
	if report.WordExplanation.Samples != 40 || report.WordExplanation.Seed != 3 {
		t.Errorf("explanation meta = %+v", report.WordExplanation)
	}
	if len(report.FeatureContributions) != len(model.Schema()) {
		t.Errorf("feature contributions = %d", len(report.FeatureContributions))
	}
}

func TestAnalyzeEndpoint_Errors(t *testing.T) {
	s := testServer(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
		reason model.Reason
	}{
		{"empty text", `{"text": ""}`, http.StatusBadRequest, model.ReasonEmptyInput},
		{"negative samples", `{"text": "` + headline + `", "samples": -5}`, http.StatusBadRequest, model.ReasonInvalidParameter},
		{"malformed body", `{"text": `, http.StatusBadRequest, model.ReasonInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := post(t, s, "/v1/analyze", tt.body)
			if status != tt.status {
				t.Errorf("status = %d, want %d (%s)", status, tt.status, body)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if resp.Reason != tt.reason {
				t.Errorf("reason = %s, want %s", resp.Reason, tt.reason)
			}
		})
	}
}

func TestAnalyzeEndpoint_ModelUnavailable(t *testing.T) {
	s := testServer(t, func(cfg *model.Config) {
		cfg.Artifacts.Classifier = filepath.Join(t.TempDir(), "missing.yaml")
	})

	status, body := post(t, s, "/v1/analyze", `{"text": "`+headline+`"}`)
	if status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 (%s)", status, body)
	}

	// features keep working without artifacts
	status, body = post(t, s, "/v1/features", `{"text": "`+headline+`"}`)
	if status != http.StatusOK {
		t.Fatalf("features status = %d (%s)", status, body)
	}
	var fr model.FeatureReport
	if err := json.Unmarshal(body, &fr); err != nil {
		t.Fatalf("decode features: %v", err)
	}
	if fr.Features.Len() != len(model.Schema()) {
		t.Errorf("features = %d", fr.Features.Len())
	}
}

func TestHealthz(t *testing.T) {
	s := testServer(t, func(cfg *model.Config) {
		cfg.Artifacts.Embedding = filepath.Join(t.TempDir(), "missing.bin")
	})

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var health struct {
		Status    string            `json:"status"`
		Artifacts map[string]string `json:"artifacts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "degraded" {
		t.Errorf("status = %s, want degraded", health.Status)
	}
	if health.Artifacts["scaler"] != "ok" || health.Artifacts["embedding"] == "ok" {
		t.Errorf("artifacts = %v", health.Artifacts)
	}
}

func TestRateLimit(t *testing.T) {
	s := testServer(t, func(cfg *model.Config) {
		cfg.RateLimiting.RequestsPerSecond = 0.001
		cfg.RateLimiting.BurstSize = 1
	})

	if status, _ := post(t, s, "/v1/features", `{"text": "`+headline+`"}`); status != http.StatusOK {
		t.Fatalf("first request status = %d", status)
	}
	if status, _ := post(t, s, "/v1/features", `{"text": "`+headline+`"}`); status != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := testServer(t, nil)
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.ErrEmptyInput, http.StatusBadRequest},
		{model.ErrNonEnglish, http.StatusUnprocessableEntity},
		{model.ErrLanguageIndeterminate, http.StatusUnprocessableEntity},
		{model.ErrModelUnavailable, http.StatusServiceUnavailable},
		{model.ErrSchemaMismatch, http.StatusServiceUnavailable},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
