package backend

import (
	"encoding/json"
	"testing"

	"canhoto-ocr/internal/models"
)

func TestNormalizeResponse(t *testing.T) {
	resp := &models.OCRResponse{
		Status:    "complete",
		PageCount: 2,
		Pages: []models.OCRPage{
			{
				Page: 1,
				TextLines: []models.OCRLine{
					{Text: " Recebedor: Maria ", Confidence: floatPtr(0.9), BBox: []float64{1, 2, 3, 4}},
					{Text: "Recebedor: Maria", Confidence: floatPtr(0.8)},
					{Text: "", Confidence: floatPtr(0.5)},
					{Text: "Data: 15/08/2024"},
				},
			},
			{
				Page: 2,
				TextLines: []models.OCRLine{
					{Text: "AB123456789BR", Polygon: [][]float64{{10, 20}, {30, 20}, {30, 40}, {10, 40}}},
				},
			},
		},
	}
	raw := json.RawMessage(`{"status":"complete"}`)

	n := NormalizeResponse(resp, raw, "req-1")

	if len(n.Lines) != 3 {
		t.Fatalf("lines = %d, want 3 (empty and duplicate dropped)", len(n.Lines))
	}
	if n.Lines[0].Text != "Recebedor: Maria" {
		t.Fatalf("line[0] = %q, want trimmed text", n.Lines[0].Text)
	}
	if n.Lines[0].Page != 1 || n.Lines[2].Page != 2 {
		t.Fatalf("pages = %d/%d, want 1/2", n.Lines[0].Page, n.Lines[2].Page)
	}

	wantBBox := []float64{10, 20, 30, 40}
	gotBBox := n.Lines[2].BBox
	if len(gotBBox) != 4 {
		t.Fatalf("bbox = %v, want 4 coordinates", gotBBox)
	}
	for i := range wantBBox {
		if gotBBox[i] != wantBBox[i] {
			t.Fatalf("bbox = %v, want %v", gotBBox, wantBBox)
		}
	}

	wantText := "Recebedor: Maria\nData: 15/08/2024\n\nAB123456789BR"
	if n.FullText != wantText {
		t.Fatalf("full text = %q, want %q", n.FullText, wantText)
	}
	if n.RequestID != "req-1" {
		t.Fatalf("request id = %q, want req-1", n.RequestID)
	}
	if n.PageCount != 2 {
		t.Fatalf("page count = %d, want 2", n.PageCount)
	}
	if string(n.Raw) != `{"status":"complete"}` {
		t.Fatalf("raw payload changed: %s", n.Raw)
	}
}

func TestNormalizeResponsePageFallbacks(t *testing.T) {
	resp := &models.OCRResponse{
		Status: "complete",
		Pages: []models.OCRPage{
			{Lines: []models.OCRLine{{Text: "linha um"}}},
			{Lines: []models.OCRLine{{Text: "linha dois"}}},
		},
	}

	n := NormalizeResponse(resp, nil, "req-2")
	if n.PageCount != 2 {
		t.Fatalf("page count = %d, want fallback to len(pages)", n.PageCount)
	}
	if n.Lines[0].Page != 1 || n.Lines[1].Page != 2 {
		t.Fatalf("pages = %d/%d, want index fallback 1/2", n.Lines[0].Page, n.Lines[1].Page)
	}
}

func TestGuessMimeType(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"doc.pdf", "application/pdf"},
		{"scan.png", "image/png"},
		{"photo.jpg", "image/jpeg"},
		{"", "application/octet-stream"},
		{"noext", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := GuessMimeType(tt.file); got != tt.want {
			t.Errorf("GuessMimeType(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}
