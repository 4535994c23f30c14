// Package quality evaluates backend capture-quality metrics against the
// configured minimum score and maps detected defects to capture hints.
package quality

import (
	"strings"

	"canhoto-ocr/internal/models"
)

// hints translates detected defect types into actionable capture advice.
var hints = map[string]string{
	"motion_blur":           "Avoid moving the device during capture.",
	"defocus_blur":          "Bring the camera closer and refocus before capturing.",
	"insufficient_lighting": "Increase ambient lighting or avoid dark environments.",
	"low_brightness":        "Increase ambient lighting or avoid dark environments.",
	"over_exposure":         "Reduce glare or adjust the angle to avoid blown-out areas.",
	"under_exposure":        "Bring the camera closer or use a brighter environment.",
	"specular_glare":        "Avoid reflections by positioning the document at another angle.",
	"camera_shake":          "Hold the device steady or use a support while capturing.",
}

// Assess checks the quality metrics against minScore. Backends that report
// no score pass by default so they do not block extraction.
func Assess(q models.Quality, minScore float64) models.QualityGate {
	gate := models.QualityGate{
		Quality:   q,
		Threshold: minScore,
	}

	if q.ScoreMin == nil {
		gate.Pass = true
		return gate
	}

	gate.Pass = *q.ScoreMin >= minScore
	for _, reason := range q.Reasons {
		if hint := hintFor(reason); hint != "" {
			gate.Hints = append(gate.Hints, hint)
		}
	}
	return gate
}

// hintFor looks up the defect type, ignoring the confidence suffix that
// providers append as "type (0.87)".
func hintFor(reason string) string {
	key := reason
	if idx := strings.Index(reason, " "); idx != -1 {
		key = reason[:idx]
	}
	return hints[key]
}
