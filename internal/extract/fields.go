// Package extract pulls the validated delivery-receipt fields out of the
// normalized OCR lines using keyword and pattern heuristics.
package extract

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"canhoto-ocr/internal/models"
)

var (
	datePattern       = regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}[/-]\d{1,2}[/-]\d{1,2})\b`)
	trackingPattern   = regexp.MustCompile(`\b([A-Z]{2}\d{9}[A-Z]{2})\b`)
	longNumberPattern = regexp.MustCompile(`\b\d{10,}\b`)
	nameSeparators    = regexp.MustCompile(`[:\-–—]\s*`)
	dateSeparators    = regexp.MustCompile(`[/-]`)
	multiSpace        = regexp.MustCompile(`\s{2,}`)
)

var signatureTraces = []string{"____", "----", "_____", "------", "_______"}

// Keyword sets match the Brazilian delivery receipts this pipeline targets.
var (
	recipientKeywords = []string{"recebedor", "recebido", "responsavel", "responsável", "assinatura", "assinante"}
	signatureKeywords = []string{"assinatura", "signature"}
)

// Fields runs every extractor over the normalized lines and returns the
// field map keyed by field name. Absent fields are present with a nil value
// and zero confidence so validation can flag them.
func Fields(lines []models.Line, fullText string) map[string]models.Field {
	return map[string]models.Field{
		models.FieldDate:             extractDate(lines),
		models.FieldRecipientName:    extractRecipient(lines),
		models.FieldSignaturePresent: extractSignature(lines),
		models.FieldTrackingCode:     extractTracking(lines, fullText),
	}
}

func extractDate(lines []models.Line) models.Field {
	var best *models.Field
	for _, line := range lines {
		for _, match := range datePattern.FindAllString(line.Text, -1) {
			candidate := models.Field{
				Name:       models.FieldDate,
				Value:      normalizeDate(match),
				Confidence: lineConfidence(line),
				BBox:       line.BBox,
				Page:       line.Page,
			}
			best = chooseBest(best, candidate)
		}
	}
	if best != nil {
		return *best
	}
	return models.Field{Name: models.FieldDate}
}

func extractRecipient(lines []models.Line) models.Field {
	var best *models.Field
	for _, line := range lines {
		if !containsAny(strings.ToLower(line.Text), recipientKeywords) {
			continue
		}
		value := cleanName(splitAfterSeparator(line.Text))
		if value == "" {
			continue
		}
		candidate := models.Field{
			Name:       models.FieldRecipientName,
			Value:      value,
			Confidence: lineConfidence(line),
			BBox:       line.BBox,
			Page:       line.Page,
		}
		best = chooseBest(best, candidate)
	}
	if best != nil {
		return *best
	}
	return models.Field{Name: models.FieldRecipientName}
}

// extractSignature reports whether a signature trace (underscores or dashes)
// appears near a signature label. A trace bumps confidence to at least 0.9,
// a bare label to 0.6; no label at all defaults to false at 0.5.
func extractSignature(lines []models.Line) models.Field {
	for _, line := range lines {
		if !containsAny(strings.ToLower(line.Text), signatureKeywords) {
			continue
		}
		traceFound := false
		for _, marker := range signatureTraces {
			if strings.Contains(line.Text, marker) {
				traceFound = true
				break
			}
		}
		confidence := lineConfidence(line)
		if traceFound {
			confidence = math.Max(confidence, 0.9)
		} else {
			confidence = math.Max(confidence, 0.6)
		}
		return models.Field{
			Name:       models.FieldSignaturePresent,
			Value:      traceFound,
			Confidence: confidence,
			BBox:       line.BBox,
			Page:       line.Page,
		}
	}
	return models.Field{
		Name:       models.FieldSignaturePresent,
		Value:      false,
		Confidence: 0.5,
	}
}

func extractTracking(lines []models.Line, fullText string) models.Field {
	var best *models.Field
	for _, line := range lines {
		if match := trackingPattern.FindStringSubmatch(line.Text); match != nil {
			candidate := models.Field{
				Name:       models.FieldTrackingCode,
				Value:      match[1],
				Confidence: lineConfidence(line),
				BBox:       line.BBox,
				Page:       line.Page,
			}
			best = chooseBest(best, candidate)
			continue
		}
		if match := longNumberPattern.FindString(line.Text); match != "" {
			confidence := lineConfidence(line)
			if line.Confidence == nil {
				confidence = 0.6
			}
			candidate := models.Field{
				Name:       models.FieldTrackingCode,
				Value:      match,
				Confidence: confidence,
				BBox:       line.BBox,
				Page:       line.Page,
			}
			best = chooseBest(best, candidate)
		}
	}
	if best != nil {
		return *best
	}

	// Positions are lost at the full-text level, so the fallback match gets
	// a low fixed confidence.
	if match := trackingPattern.FindStringSubmatch(fullText); match != nil {
		return models.Field{Name: models.FieldTrackingCode, Value: match[1], Confidence: 0.4}
	}
	if match := longNumberPattern.FindString(fullText); match != "" {
		return models.Field{Name: models.FieldTrackingCode, Value: match, Confidence: 0.4}
	}
	return models.Field{Name: models.FieldTrackingCode}
}

func lineConfidence(line models.Line) float64 {
	if line.Confidence == nil {
		return 0
	}
	return math.Round(*line.Confidence*10000) / 10000
}

// chooseBest keeps the candidate with the highest confidence, preferring the
// later one on ties.
func chooseBest(current *models.Field, candidate models.Field) *models.Field {
	if current == nil || candidate.Confidence >= current.Confidence {
		return &candidate
	}
	return current
}

// normalizeDate rewrites the matched date as ISO YYYY-MM-DD. Two-digit years
// below 50 land in the 2000s, the rest in the 1900s.
func normalizeDate(raw string) string {
	tokens := dateSeparators.Split(raw, -1)
	if len(tokens) != 3 {
		return raw
	}

	var day, month, year string
	if len(tokens[0]) == 4 {
		year, month, day = tokens[0], tokens[1], tokens[2]
	} else {
		day, month, year = tokens[0], tokens[1], tokens[2]
	}

	yearNum, err := strconv.Atoi(year)
	if err != nil {
		return raw
	}
	if len(year) == 2 {
		if yearNum < 50 {
			yearNum += 2000
		} else {
			yearNum += 1900
		}
	}
	monthNum, _ := strconv.Atoi(month)
	dayNum, _ := strconv.Atoi(day)
	return fmt.Sprintf("%04d-%02d-%02d", yearNum, monthNum, dayNum)
}

func splitAfterSeparator(text string) string {
	parts := nameSeparators.Split(text, 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(text)
}

func cleanName(name string) string {
	cleaned := strings.Trim(strings.TrimSpace(name), ":.-–— ")
	cleaned = multiSpace.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimRight(cleaned, "0123456789")
	return strings.TrimSpace(cleaned)
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
