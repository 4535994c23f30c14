package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("server port = %s", cfg.Server.Port)
	}
	if cfg.Pipeline.Mode != ModeDatalab {
		t.Errorf("mode = %s", cfg.Pipeline.Mode)
	}
	if cfg.Pipeline.QualityMinScore != 0.55 {
		t.Errorf("quality min = %v", cfg.Pipeline.QualityMinScore)
	}
	if cfg.Pipeline.FieldMinConfidence != 0.75 {
		t.Errorf("field min = %v", cfg.Pipeline.FieldMinConfidence)
	}
	if cfg.Datalab.BaseURL != "https://www.datalab.to/api/v1" {
		t.Errorf("datalab base = %s", cfg.Datalab.BaseURL)
	}
	if cfg.Datalab.PollInterval != 2*time.Second {
		t.Errorf("poll interval = %v", cfg.Datalab.PollInterval)
	}
	if cfg.Datalab.MaxPollAttempts != 60 {
		t.Errorf("max attempts = %d", cfg.Datalab.MaxPollAttempts)
	}
	if cfg.Datalab.HTTPTimeout != 60*time.Second {
		t.Errorf("http timeout = %v", cfg.Datalab.HTTPTimeout)
	}
	if len(cfg.Tesseract.Languages) != 2 || cfg.Tesseract.Languages[0] != "por" || cfg.Tesseract.Languages[1] != "eng" {
		t.Errorf("tesseract langs = %v", cfg.Tesseract.Languages)
	}
	if cfg.DocAI.Configured() {
		t.Errorf("docai should not be configured by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PIPELINE_MODE", ModeTesseract)
	t.Setenv("API_POLL_INTERVAL_SECONDS", "0.5")
	t.Setenv("API_MAX_POLL_ATTEMPTS", "5")
	t.Setenv("QUALITY_MIN_SCORE", "0.7")
	t.Setenv("USE_DOCAI_GATE", "true")
	t.Setenv("RESULTS_PERSIST", "true")
	t.Setenv("API_SKIP_CACHE", "true")
	t.Setenv("TESSERACT_LANGS", " por , spa ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.Mode != ModeTesseract {
		t.Errorf("mode = %s", cfg.Pipeline.Mode)
	}
	if cfg.Datalab.PollInterval != 500*time.Millisecond {
		t.Errorf("poll interval = %v", cfg.Datalab.PollInterval)
	}
	if cfg.Datalab.MaxPollAttempts != 5 {
		t.Errorf("max attempts = %d", cfg.Datalab.MaxPollAttempts)
	}
	if cfg.Pipeline.QualityMinScore != 0.7 {
		t.Errorf("quality min = %v", cfg.Pipeline.QualityMinScore)
	}
	if !cfg.Pipeline.UseDocAIGate || !cfg.Pipeline.Persist || !cfg.Datalab.SkipCache {
		t.Errorf("boolean flags not applied: %+v", cfg.Pipeline)
	}
	if len(cfg.Tesseract.Languages) != 2 || cfg.Tesseract.Languages[1] != "spa" {
		t.Errorf("tesseract langs = %v", cfg.Tesseract.Languages)
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("API_MAX_POLL_ATTEMPTS", "many")
	if _, err := Load(); err == nil {
		t.Fatalf("expected an error for a non-numeric attempt count")
	}
}

func TestLoadRejectsBadFloat(t *testing.T) {
	t.Setenv("QUALITY_MIN_SCORE", "high")
	if _, err := Load(); err == nil {
		t.Fatalf("expected an error for a non-numeric threshold")
	}
}

func TestDocAIConfigured(t *testing.T) {
	cfg := DocAIConfig{ProjectID: "p", Location: "us", ProcessorID: "123"}
	if !cfg.Configured() {
		t.Errorf("complete config reported as unconfigured")
	}
	cfg.ProcessorID = ""
	if cfg.Configured() {
		t.Errorf("partial config reported as configured")
	}
}

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"por,eng", []string{"por", "eng"}},
		{" a ,, b ", []string{"a", "b"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := splitCSV(tt.raw)
		if len(got) != len(tt.want) {
			t.Errorf("splitCSV(%q) = %v, want %v", tt.raw, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("splitCSV(%q)[%d] = %q, want %q", tt.raw, i, got[i], tt.want[i])
			}
		}
	}
}
