package backend

import (
	"encoding/json"
	"strings"

	"canhoto-ocr/internal/models"
)

// NormalizeResponse maps an OCRResponse (REST and LLM backends) into the
// common normalized structure. The raw payload is retained verbatim.
func NormalizeResponse(resp *models.OCRResponse, raw json.RawMessage, requestID string) *models.Normalized {
	var lines []models.Line
	var blocks []string

	for pageIndex, page := range resp.Pages {
		pageNumber := page.Page
		if pageNumber == 0 {
			pageNumber = pageIndex + 1
		}
		var blockLines []string
		previous := ""
		for _, line := range page.IterLines() {
			text := line.PlainText()
			if text == "" || text == previous {
				continue
			}
			previous = text
			lines = append(lines, models.Line{
				Text:       text,
				Confidence: line.Confidence,
				BBox:       resolveBBox(line),
				Page:       pageNumber,
			})
			blockLines = append(blockLines, text)
		}
		if len(blockLines) > 0 {
			blocks = append(blocks, strings.Join(blockLines, "\n"))
		}
	}

	pageCount := resp.PageCount
	if pageCount == 0 {
		pageCount = len(resp.Pages)
	}

	return &models.Normalized{
		Lines:     lines,
		FullText:  strings.Join(blocks, "\n\n"),
		Quality:   models.Quality{},
		Raw:       raw,
		RequestID: requestID,
		PageCount: pageCount,
	}
}

// resolveBBox prefers an explicit box and otherwise derives one from the
// polygon extents as [x_min, y_min, x_max, y_max].
func resolveBBox(line models.OCRLine) []float64 {
	if len(line.BBox) > 0 {
		return line.BBox
	}
	if len(line.Polygon) == 0 {
		return nil
	}
	var xs, ys []float64
	for _, point := range line.Polygon {
		if len(point) < 2 {
			continue
		}
		xs = append(xs, point[0])
		ys = append(ys, point[1])
	}
	if len(xs) == 0 {
		return nil
	}
	return []float64{minOf(xs), minOf(ys), maxOf(xs), maxOf(ys)}
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func floatPtr(v float64) *float64 { return &v }
