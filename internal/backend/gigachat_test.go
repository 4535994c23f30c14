package backend

import (
	"strings"
	"testing"
)

func TestResponseFromContentStructured(t *testing.T) {
	content := "```json\n{\n" +
		`  "receiver": "Maria da Silva",` + "\n" +
		`  "delivery_date": "2024-08-15",` + "\n" +
		`  "delivery_time": "14:30:00",` + "\n" +
		`  "invoice_numbers": ["12345", "67890"],` + "\n" +
		`  "documents": [],` + "\n" +
		`  "extracted_text": "canhoto assinado",` + "\n" +
		`  "confidence": "high"` + "\n" +
		"}\n```"

	resp := responseFromContent(content)
	if resp.Status != "complete" {
		t.Fatalf("status = %q, want complete", resp.Status)
	}
	if resp.PageCount != 1 || len(resp.Pages) != 1 {
		t.Fatalf("pages = %d, want single page", len(resp.Pages))
	}

	lines := resp.Pages[0].TextLines
	want := []string{
		"Recebedor: Maria da Silva",
		"Data de Recebimento: 2024-08-15",
		"Hora de Recebimento: 14:30:00",
		"Notas Fiscais: 12345, 67890",
		"Texto Extraído: canhoto assinado",
		"Confiança: high",
	}
	if len(lines) != len(want) {
		t.Fatalf("lines = %d, want %d: %+v", len(lines), len(want), lines)
	}
	for i, text := range want {
		if lines[i].Text != text {
			t.Fatalf("line[%d] = %q, want %q", i, lines[i].Text, text)
		}
	}
}

func TestResponseFromContentPlainFallback(t *testing.T) {
	content := "Recebedor Maria\n\nData 15/08/2024\n"
	resp := responseFromContent(content)
	lines := resp.Pages[0].TextLines
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if lines[0].Text != "Recebedor Maria" || lines[1].Text != "Data 15/08/2024" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

func TestParseTranscription(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantNil bool
	}{
		{"bare json", `{"receiver":"Ana"}`, false},
		{"wrapped in prose", `Segue o resultado: {"receiver":"Ana"} conforme pedido`, false},
		{"no json", "nenhum dado estruturado", true},
		{"broken json", `{"receiver": }`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTranscription(tt.content)
			if tt.wantNil && got != nil {
				t.Fatalf("expected nil, got %+v", got)
			}
			if !tt.wantNil {
				if got == nil {
					t.Fatal("expected parsed transcription, got nil")
				}
				if got.Receiver != "Ana" {
					t.Fatalf("receiver = %q, want Ana", got.Receiver)
				}
			}
		})
	}
}

func TestStructuredLinesEmptyFields(t *testing.T) {
	lines := structuredLines(`{"receiver":"","delivery_date":"","invoice_numbers":[]}`)
	if len(lines) != 0 {
		t.Fatalf("lines = %+v, want none for empty payload", lines)
	}
}

func TestVisionPromptIsPortuguese(t *testing.T) {
	if !strings.Contains(visionPrompt, "recebedor") {
		t.Fatal("prompt should ask for the receiver field")
	}
	if !strings.Contains(visionPrompt, `"receiver"`) {
		t.Fatal("prompt should pin the JSON schema")
	}
}
