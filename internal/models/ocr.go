package models

import (
	"encoding/json"
	"strings"
)

// OCRLine is a single text line inside a page of a backend response.
type OCRLine struct {
	Text       string      `json:"text,omitempty"`
	Confidence *float64    `json:"confidence,omitempty"`
	BBox       []float64   `json:"bbox,omitempty"`
	Polygon    [][]float64 `json:"polygon,omitempty"`
}

// PlainText returns the line text stripped and safe for display.
func (l OCRLine) PlainText() string {
	return strings.TrimSpace(l.Text)
}

// OCRPage is one page of a backend response. Some providers name the line
// array "text_lines", others "lines"; IterLines prefers the former.
type OCRPage struct {
	Page      int       `json:"page,omitempty"`
	TextLines []OCRLine `json:"text_lines,omitempty"`
	Lines     []OCRLine `json:"lines,omitempty"`
	ImageBBox []float64 `json:"image_bbox,omitempty"`
}

func (p OCRPage) IterLines() []OCRLine {
	if len(p.TextLines) > 0 {
		return p.TextLines
	}
	return p.Lines
}

// PlainLines returns the cleaned line strings for this page, skipping empty
// lines and collapsing consecutive duplicates.
func (p OCRPage) PlainLines() []string {
	var out []string
	previous := ""
	for _, line := range p.IterLines() {
		text := line.PlainText()
		if text == "" || text == previous {
			continue
		}
		out = append(out, text)
		previous = text
	}
	return out
}

// Block joins the deduplicated lines into a single block of text.
func (p OCRPage) Block() string {
	return strings.Join(p.PlainLines(), "\n")
}

// OCRResponse is the top-level final payload of the asynchronous REST OCR
// backend. The LLM backend synthesizes the same shape so both normalize the
// same way.
type OCRResponse struct {
	Status    string    `json:"status,omitempty"`
	Success   *bool     `json:"success,omitempty"`
	Error     string    `json:"error,omitempty"`
	PageCount int       `json:"page_count,omitempty"`
	Pages     []OCRPage `json:"pages,omitempty"`
}

func (r OCRResponse) StatusLabel() string {
	return strings.ToLower(r.Status)
}

// Line is a normalized text line shared by all backends.
type Line struct {
	Text       string    `json:"text"`
	Confidence *float64  `json:"confidence"`
	BBox       []float64 `json:"bbox,omitempty"`
	Page       int       `json:"page,omitempty"`
}

// Quality holds the raw capture-quality metrics a backend reported, if any.
type Quality struct {
	ScoreMin *float64 `json:"score_min"`
	ScoreAvg *float64 `json:"score_avg"`
	Reasons  []string `json:"reasons,omitempty"`
}

// QualityGate is a Quality evaluated against the configured threshold.
type QualityGate struct {
	Quality
	Pass      bool     `json:"pass"`
	Hints     []string `json:"hints,omitempty"`
	Threshold float64  `json:"threshold"`
}

// Normalized is the provider-independent view of one processed document.
type Normalized struct {
	Lines     []Line          `json:"lines"`
	FullText  string          `json:"full_text"`
	Quality   Quality         `json:"quality"`
	Raw       json.RawMessage `json:"raw_payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	PageCount int             `json:"page_count,omitempty"`
}

// Outcome is everything the pipeline produced for one input file.
type Outcome struct {
	SourcePath        string
	Mode              string
	EngineUsed        string
	EngineChain       []string
	Normalized        *Normalized
	Gate              QualityGate
	Latencies         map[string]float64
	SkippedExtraction bool
}
