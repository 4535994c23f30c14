package models

import "testing"

func TestOCRPagePlainLines(t *testing.T) {
	page := OCRPage{
		TextLines: []OCRLine{
			{Text: "  linha um  "},
			{Text: "linha um"},
			{Text: ""},
			{Text: "linha dois"},
			{Text: "linha um"},
		},
	}
	got := page.PlainLines()
	want := []string{"linha um", "linha dois", "linha um"}
	if len(got) != len(want) {
		t.Fatalf("lines = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestOCRPageIterLinesPrefersTextLines(t *testing.T) {
	page := OCRPage{
		TextLines: []OCRLine{{Text: "from text_lines"}},
		Lines:     []OCRLine{{Text: "from lines"}},
	}
	got := page.IterLines()
	if len(got) != 1 || got[0].Text != "from text_lines" {
		t.Fatalf("IterLines = %+v, want text_lines", got)
	}

	page = OCRPage{Lines: []OCRLine{{Text: "from lines"}}}
	got = page.IterLines()
	if len(got) != 1 || got[0].Text != "from lines" {
		t.Fatalf("IterLines = %+v, want lines fallback", got)
	}
}

func TestOCRPageBlock(t *testing.T) {
	page := OCRPage{Lines: []OCRLine{{Text: "a"}, {Text: "b"}}}
	if got := page.Block(); got != "a\nb" {
		t.Fatalf("Block = %q, want \"a\\nb\"", got)
	}
}

func TestOCRResponseStatusLabel(t *testing.T) {
	resp := OCRResponse{Status: "Complete"}
	if got := resp.StatusLabel(); got != "complete" {
		t.Fatalf("StatusLabel = %q, want complete", got)
	}
}
