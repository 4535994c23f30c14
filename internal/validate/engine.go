// Package validate fuses the extracted fields and the quality gate into the
// final per-document decision.
package validate

import (
	"fmt"
	"math"

	"canhoto-ocr/internal/models"
)

// Run applies the decision rules. A failed quality gate or a missing
// required field rejects the document; low field confidence rejects below
// 0.5 and asks for review below the configured minimum. An absent signature
// alone only downgrades to review.
func Run(
	fields map[string]models.Field,
	gate models.QualityGate,
	thresholds models.Thresholds,
	engineUsed string,
	engineChain []string,
) models.Validation {
	issues := []string{}
	decision := models.DecisionOK
	var scores []float64

	qualityPassed, qualityScore, qualityIssues := assessGate(gate, thresholds.QualityMinScore)
	scores = append(scores, qualityScore)
	issues = append(issues, qualityIssues...)
	if !qualityPassed {
		decision = models.DecisionRejected
	}

	for _, name := range models.FieldOrder {
		field, ok := fields[name]
		if !ok {
			continue
		}
		confidence := field.Confidence

		if name == models.FieldSignaturePresent {
			if present, isBool := field.Value.(bool); isBool && !present {
				issues = append(issues, "Signature not detected on the receipt.")
				if decision != models.DecisionRejected {
					decision = models.DecisionNeedsReview
				}
			}
			scores = append(scores, confidence)
			continue
		}

		if isEmpty(field.Value) {
			issues = append(issues, fmt.Sprintf("Required field '%s' was not identified.", name))
			decision = models.DecisionRejected
			scores = append(scores, confidence)
			continue
		}

		scores = append(scores, confidence)
		if confidence < 0.5 {
			issues = append(issues, fmt.Sprintf("Field '%s' came back with low confidence (%.2f).", name, confidence))
			decision = models.DecisionRejected
		} else if confidence < thresholds.FieldMinConfidence && decision != models.DecisionRejected {
			issues = append(issues, fmt.Sprintf("Field '%s' needs review (confidence %.2f).", name, confidence))
			decision = models.DecisionNeedsReview
		}
	}

	decisionScore := 0.0
	if len(scores) > 0 {
		decisionScore = scores[0]
		for _, score := range scores[1:] {
			decisionScore = math.Min(decisionScore, score)
		}
	}

	return models.Validation{
		Decision:      decision,
		DecisionScore: math.Round(decisionScore*10000) / 10000,
		Issues:        issues,
		Fields:        fields,
		Quality:       gate,
		EngineUsed:    engineUsed,
		EngineChain:   engineChain,
		Thresholds:    thresholds,
	}
}

// assessGate turns the gate result into a score contribution. Without a
// reported score the threshold itself is used as a neutral baseline, so
// quality never dominates decision_score for backends that report nothing.
func assessGate(gate models.QualityGate, minScore float64) (bool, float64, []string) {
	var issues []string
	passed := gate.Pass

	if gate.ScoreMin == nil {
		if !passed {
			issues = append(issues, "Document quality does not meet the minimum threshold.")
			return false, 0, issues
		}
		return true, minScore, issues
	}

	scoreMin := *gate.ScoreMin
	if scoreMin < minScore {
		passed = false
		issues = append(issues, fmt.Sprintf("Quality below threshold (%.2f < %.2f).", scoreMin, minScore))
		issues = append(issues, gate.Hints...)
	}
	return passed, scoreMin, issues
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	default:
		return false
	}
}
