package quality

import (
	"testing"

	"canhoto-ocr/internal/models"
)

func confPtr(v float64) *float64 { return &v }

func TestAssessNoScorePasses(t *testing.T) {
	gate := Assess(models.Quality{}, 0.55)
	if !gate.Pass {
		t.Fatal("expected pass when no score is reported")
	}
	if gate.Threshold != 0.55 {
		t.Fatalf("threshold = %v, want 0.55", gate.Threshold)
	}
	if len(gate.Hints) != 0 {
		t.Fatalf("hints = %v, want none", gate.Hints)
	}
}

func TestAssessAboveThreshold(t *testing.T) {
	q := models.Quality{ScoreMin: confPtr(0.7), ScoreAvg: confPtr(0.8)}
	gate := Assess(q, 0.55)
	if !gate.Pass {
		t.Fatal("expected pass for score above threshold")
	}
}

func TestAssessExactThresholdPasses(t *testing.T) {
	gate := Assess(models.Quality{ScoreMin: confPtr(0.55)}, 0.55)
	if !gate.Pass {
		t.Fatal("expected pass at exactly the threshold")
	}
}

func TestAssessBelowThresholdWithHints(t *testing.T) {
	q := models.Quality{
		ScoreMin: confPtr(0.3),
		Reasons:  []string{"motion_blur (0.92)", "specular_glare", "something_unknown"},
	}
	gate := Assess(q, 0.55)
	if gate.Pass {
		t.Fatal("expected fail for score below threshold")
	}
	want := []string{
		"Avoid moving the device during capture.",
		"Avoid reflections by positioning the document at another angle.",
	}
	if len(gate.Hints) != len(want) {
		t.Fatalf("hints = %v, want %v", gate.Hints, want)
	}
	for i, hint := range want {
		if gate.Hints[i] != hint {
			t.Fatalf("hint[%d] = %q, want %q", i, gate.Hints[i], hint)
		}
	}
}
