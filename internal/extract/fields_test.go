package extract

import (
	"testing"

	"canhoto-ocr/internal/models"
)

func confPtr(v float64) *float64 { return &v }

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"12/03/2024", "2024-03-12"},
		{"12-03-2024", "2024-03-12"},
		{"2024/03/12", "2024-03-12"},
		{"05/01/24", "2024-01-05"},
		{"05/01/99", "1999-01-05"},
		{"1/2/2024", "2024-02-01"},
	}
	for _, tt := range tests {
		if got := normalizeDate(tt.raw); got != tt.want {
			t.Errorf("normalizeDate(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFieldsDate(t *testing.T) {
	lines := []models.Line{
		{Text: "Entrega realizada em 15/08/2024", Confidence: confPtr(0.91), Page: 1},
		{Text: "Previsao 01/01/2020", Confidence: confPtr(0.40), Page: 1},
	}

	fields := Fields(lines, "")
	date := fields[models.FieldDate]
	if date.Value != "2024-08-15" {
		t.Fatalf("date value = %v, want 2024-08-15", date.Value)
	}
	if date.Confidence != 0.91 {
		t.Fatalf("date confidence = %v, want 0.91", date.Confidence)
	}
	if date.Page != 1 {
		t.Fatalf("date page = %d, want 1", date.Page)
	}
}

func TestFieldsDateMissing(t *testing.T) {
	fields := Fields([]models.Line{{Text: "sem numeros aqui"}}, "")
	date := fields[models.FieldDate]
	if date.Value != nil {
		t.Fatalf("date value = %v, want nil", date.Value)
	}
	if date.Confidence != 0 {
		t.Fatalf("date confidence = %v, want 0", date.Confidence)
	}
}

func TestFieldsRecipient(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"with separator", "Recebedor: Maria da Silva", "Maria da Silva"},
		{"trailing digits", "Recebedor: Joao Souza 12345", "Joao Souza"},
		{"dash separator", "Responsável - Ana Paula", "Ana Paula"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := Fields([]models.Line{{Text: tt.line, Confidence: confPtr(0.8)}}, "")
			got := fields[models.FieldRecipientName]
			if got.Value != tt.want {
				t.Fatalf("recipient value = %v, want %q", got.Value, tt.want)
			}
		})
	}
}

func TestFieldsRecipientPrefersHigherConfidence(t *testing.T) {
	lines := []models.Line{
		{Text: "Recebedor: Borrado Ilegivel", Confidence: confPtr(0.3)},
		{Text: "Recebido por: Carlos Pereira", Confidence: confPtr(0.85)},
	}
	fields := Fields(lines, "")
	got := fields[models.FieldRecipientName]
	if got.Value != "Carlos Pereira" {
		t.Fatalf("recipient value = %v, want Carlos Pereira", got.Value)
	}
}

func TestFieldsSignature(t *testing.T) {
	tests := []struct {
		name     string
		lines    []models.Line
		wantVal  bool
		wantConf float64
	}{
		{
			name:     "trace present",
			lines:    []models.Line{{Text: "Assinatura: ____________", Confidence: confPtr(0.7)}},
			wantVal:  true,
			wantConf: 0.9,
		},
		{
			name:     "label without trace",
			lines:    []models.Line{{Text: "Assinatura do recebedor", Confidence: confPtr(0.4)}},
			wantVal:  false,
			wantConf: 0.6,
		},
		{
			name:     "no label anywhere",
			lines:    []models.Line{{Text: "Data: 01/01/2024"}},
			wantVal:  false,
			wantConf: 0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := Fields(tt.lines, "")
			got := fields[models.FieldSignaturePresent]
			if got.Value != tt.wantVal {
				t.Fatalf("signature value = %v, want %v", got.Value, tt.wantVal)
			}
			if got.Confidence != tt.wantConf {
				t.Fatalf("signature confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
		})
	}
}

func TestFieldsTracking(t *testing.T) {
	lines := []models.Line{
		{Text: "Objeto AB123456789BR entregue", Confidence: confPtr(0.88)},
	}
	fields := Fields(lines, "")
	got := fields[models.FieldTrackingCode]
	if got.Value != "AB123456789BR" {
		t.Fatalf("tracking value = %v, want AB123456789BR", got.Value)
	}
	if got.Confidence != 0.88 {
		t.Fatalf("tracking confidence = %v, want 0.88", got.Confidence)
	}
}

func TestFieldsTrackingLongNumberWithoutConfidence(t *testing.T) {
	fields := Fields([]models.Line{{Text: "Pedido 1234567890123"}}, "")
	got := fields[models.FieldTrackingCode]
	if got.Value != "1234567890123" {
		t.Fatalf("tracking value = %v, want 1234567890123", got.Value)
	}
	if got.Confidence != 0.6 {
		t.Fatalf("tracking confidence = %v, want 0.6", got.Confidence)
	}
}

func TestFieldsTrackingFullTextFallback(t *testing.T) {
	fields := Fields(nil, "rodape com codigo AB123456789BR no texto")
	got := fields[models.FieldTrackingCode]
	if got.Value != "AB123456789BR" {
		t.Fatalf("tracking value = %v, want AB123456789BR", got.Value)
	}
	if got.Confidence != 0.4 {
		t.Fatalf("tracking confidence = %v, want 0.4", got.Confidence)
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"  Maria   da  Silva ", "Maria da Silva"},
		{"Jose Santos 4411", "Jose Santos"},
		{": - Pedro", "Pedro"},
	}
	for _, tt := range tests {
		if got := cleanName(tt.raw); got != tt.want {
			t.Errorf("cleanName(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
