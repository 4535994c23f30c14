package artifact

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"canhoto-ocr/internal/models"
)

// decisionColor maps the decision onto the banner fill color.
func decisionColor(decision models.Decision) (int, int, int) {
	switch decision {
	case models.DecisionOK:
		return 15, 157, 88
	case models.DecisionNeedsReview:
		return 251, 140, 0
	case models.DecisionRejected:
		return 229, 57, 53
	}
	return 99, 102, 241
}

func decisionLabel(decision models.Decision) string {
	switch decision {
	case models.DecisionOK:
		return "VALIDATION APPROVED"
	case models.DecisionNeedsReview:
		return "VALIDATION NEEDS REVIEW"
	case models.DecisionRejected:
		return "VALIDATION REJECTED"
	}
	return "UNKNOWN STATUS"
}

// buildReport renders the validation verdict as a two-page PDF: the summary
// on page one and, for supported image types, the source document on page
// two.
func buildReport(path string, outcome *models.Outcome, validation models.Validation) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Delivery Receipt Validation", false)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentWidth := pageWidth - left - right

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(31, 41, 51)
	pdf.CellFormat(contentWidth, 12, "Delivery Receipt Validation", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	r, g, b := decisionColor(validation.Decision)
	pdf.SetFillColor(r, g, b)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentWidth, 9, decisionLabel(validation.Decision), "", 1, "C", true, 0, "")
	pdf.Ln(4)

	pdf.SetTextColor(31, 41, 51)
	writeSummaryTable(pdf, tr, contentWidth, outcome, validation)
	pdf.Ln(4)

	sectionTitle(pdf, "Extracted Fields")
	pdf.SetFont("Helvetica", "", 10)
	for _, name := range models.FieldOrder {
		field, ok := validation.Fields[name]
		if !ok {
			continue
		}
		line := fmt.Sprintf("%s: %s (confidence %.2f)", name, FormatValue(field.Value), field.Confidence)
		pdf.MultiCell(contentWidth, 6, tr(line), "", "L", false)
	}

	if len(validation.Issues) > 0 {
		pdf.Ln(3)
		sectionTitle(pdf, "Issues Found")
		pdf.SetFont("Helvetica", "", 10)
		for _, issue := range validation.Issues {
			pdf.MultiCell(contentWidth, 6, tr("- "+issue), "", "L", false)
		}
	}

	if sample := textSample(outcome.Normalized.Lines, 15); sample != "" {
		pdf.Ln(3)
		sectionTitle(pdf, "OCR Text Sample")
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(71, 85, 105)
		pdf.MultiCell(contentWidth, 4.5, tr(sample), "", "L", false)
		pdf.SetTextColor(31, 41, 51)
	}

	if embeddable(outcome.SourcePath) {
		pdf.AddPage()
		sectionTitle(pdf, "Source Document")
		pdf.Ln(2)
		pdf.ImageOptions(outcome.SourcePath, left, pdf.GetY(), contentWidth, 0, false,
			fpdf.ImageOptions{ReadDpi: true}, 0, "")
	}

	return pdf.OutputFileAndClose(path)
}

func sectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func writeSummaryTable(pdf *fpdf.Fpdf, tr func(string) string, width float64, outcome *models.Outcome, validation models.Validation) {
	rows := [][2]string{
		{"Source file", filepath.Base(outcome.SourcePath)},
		{"Generated at", time.Now().Format("02/01/2006 15:04:05")},
		{"Request ID", orDash(outcome.Normalized.RequestID)},
		{"Mode", outcome.Mode},
		{"Engine", outcome.EngineUsed},
		{"Engine chain", orDash(strings.Join(outcome.EngineChain, ", "))},
		{"Decision score", fmt.Sprintf("%.4f", validation.DecisionScore)},
		{"Quality score (min)", formatScore(validation.Quality.ScoreMin)},
	}

	labelWidth := 55.0
	pdf.SetDrawColor(203, 213, 225)
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(labelWidth, 7, tr(row[0]), "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(width-labelWidth, 7, tr(row[1]), "1", 1, "L", false, 0, "")
	}
}

func textSample(lines []models.Line, limit int) string {
	var texts []string
	for _, line := range lines {
		if len(texts) == limit {
			break
		}
		texts = append(texts, line.Text)
	}
	return strings.Join(texts, "\n")
}

// embeddable reports whether fpdf can place the source file directly.
func embeddable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return true
	}
	return false
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
