// Package artifact persists the per-document outputs: the normalized OCR
// payload, a human-readable summary, the validation verdict and a PDF
// report. Each input file gets its own subdirectory named after the stem.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"canhoto-ocr/internal/models"

	"go.uber.org/zap"
)

type Writer struct {
	outputDir string
	logger    *zap.Logger
}

func NewWriter(outputDir string, logger *zap.Logger) *Writer {
	return &Writer{outputDir: outputDir, logger: logger}
}

// Paths lists the artifacts written for one document.
type Paths struct {
	Dir        string `json:"dir"`
	OCRJSON    string `json:"json"`
	Text       string `json:"text"`
	Validation string `json:"validation"`
	Report     string `json:"report"`
	Raw        string `json:"raw,omitempty"`
}

// ocrArtifact is the shape of the <stem>_ocr.json file.
type ocrArtifact struct {
	Mode        string                  `json:"mode"`
	EngineUsed  string                  `json:"engine_used"`
	EngineChain []string                `json:"engine_chain"`
	Latencies   map[string]float64      `json:"latencies"`
	Quality     models.QualityGate      `json:"quality"`
	Fields      map[string]models.Field `json:"fields"`
	FullText    string                  `json:"full_text"`
	Lines       []models.Line           `json:"lines"`
	RawPayload  json.RawMessage         `json:"raw_payload,omitempty"`
}

func (w *Writer) Write(outcome *models.Outcome, validation models.Validation) (*Paths, error) {
	stem := strings.TrimSuffix(filepath.Base(outcome.SourcePath), filepath.Ext(outcome.SourcePath))
	targetDir := filepath.Join(w.outputDir, stem)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	paths := &Paths{
		Dir:        targetDir,
		OCRJSON:    filepath.Join(targetDir, stem+"_ocr.json"),
		Text:       filepath.Join(targetDir, stem+"_ocr.txt"),
		Validation: filepath.Join(targetDir, stem+"_validation.json"),
		Report:     filepath.Join(targetDir, stem+"_validation.pdf"),
	}

	normalized := outcome.Normalized
	if err := w.writeJSON(paths.OCRJSON, ocrArtifact{
		Mode:        outcome.Mode,
		EngineUsed:  outcome.EngineUsed,
		EngineChain: outcome.EngineChain,
		Latencies:   outcome.Latencies,
		Quality:     validation.Quality,
		Fields:      validation.Fields,
		FullText:    normalized.FullText,
		Lines:       normalized.Lines,
		RawPayload:  normalized.Raw,
	}); err != nil {
		return nil, err
	}

	if err := w.writeText(paths.Text, outcome, validation); err != nil {
		return nil, err
	}
	if err := w.writeJSON(paths.Validation, validation); err != nil {
		return nil, err
	}
	if err := buildReport(paths.Report, outcome, validation); err != nil {
		return nil, fmt.Errorf("failed to build pdf report: %w", err)
	}

	if len(normalized.Raw) > 0 {
		suffix := "raw"
		if strings.Contains(outcome.EngineUsed, "docai") {
			suffix = "docai_raw"
		}
		paths.Raw = filepath.Join(targetDir, fmt.Sprintf("%s_%s.json", stem, suffix))
		if err := w.writeRaw(paths.Raw, normalized.Raw); err != nil {
			return nil, err
		}
	}

	w.logger.Info("Artifacts written",
		zap.String("file", filepath.Base(outcome.SourcePath)),
		zap.String("dir", targetDir),
	)
	return paths, nil
}

func (w *Writer) writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeRaw re-indents the provider payload without re-decoding it, so the
// bytes stay exactly what the provider returned.
func (w *Writer) writeRaw(path string, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (w *Writer) writeText(path string, outcome *models.Outcome, validation models.Validation) error {
	var sections []string
	sections = append(sections,
		"File: "+filepath.Base(outcome.SourcePath),
		"Mode: "+outcome.Mode,
		"Final engine: "+outcome.EngineUsed,
		"Engine chain: "+joinOrDash(outcome.EngineChain),
		"",
		"== Quality ==",
		"score_min: "+formatScore(validation.Quality.ScoreMin),
		"score_avg: "+formatScore(validation.Quality.ScoreAvg),
		fmt.Sprintf("Applied threshold: %.2f", validation.Quality.Threshold),
		"Hints: "+joinOrDash(validation.Quality.Hints),
		"",
		"== Decision ==",
		"State: "+string(validation.Decision),
		fmt.Sprintf("Decision score: %.4f", validation.DecisionScore),
		"Issues: "+joinOrNone(validation.Issues),
		"",
		"== Extracted fields ==",
	)

	for _, name := range models.FieldOrder {
		field, ok := validation.Fields[name]
		if !ok {
			continue
		}
		sections = append(sections, fmt.Sprintf(
			"- %s: value=%s, confidence=%.4f, page=%d, bbox=%v",
			name, FormatValue(field.Value), field.Confidence, field.Page, field.BBox,
		))
	}

	fullText := outcome.Normalized.FullText
	if fullText == "" {
		fullText = "(no extracted content)"
	}
	sections = append(sections, "", "== OCR text ==", fullText)

	if err := os.WriteFile(path, []byte(strings.Join(sections, "\n")), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// FormatValue renders a field value for display. A nil value shows as "-".
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "-"
	case string:
		if v == "" {
			return "-"
		}
		return v
	case bool:
		if v {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *score)
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, "; ")
}
