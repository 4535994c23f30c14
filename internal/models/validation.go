package models

// Decision is the final per-file outcome classification.
type Decision string

const (
	DecisionOK          Decision = "OK"
	DecisionNeedsReview Decision = "NEEDS_REVIEW"
	DecisionRejected    Decision = "REJECTED"
)

// Field names produced by heuristic extraction, in artifact order.
const (
	FieldDate             = "date"
	FieldRecipientName    = "recipient_name"
	FieldSignaturePresent = "signature_present"
	FieldTrackingCode     = "tracking_code"
)

// FieldOrder fixes the iteration order over extracted fields so that
// artifacts and issue lists come out deterministic.
var FieldOrder = []string{
	FieldDate,
	FieldRecipientName,
	FieldSignaturePresent,
	FieldTrackingCode,
}

// Field is one heuristically extracted value. Value is a string for textual
// fields and a bool for signature_present; nil when nothing was found.
type Field struct {
	Name       string    `json:"name"`
	Value      any       `json:"value"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox,omitempty"`
	Page       int       `json:"page,omitempty"`
}

type Thresholds struct {
	FieldMinConfidence float64 `json:"field_min_confidence"`
	QualityMinScore    float64 `json:"quality_min_score"`
}

// Validation fuses extracted fields and quality into a decision. It is built
// once per file and never mutated afterwards.
type Validation struct {
	Decision      Decision         `json:"decision"`
	DecisionScore float64          `json:"decision_score"`
	Issues        []string         `json:"issues"`
	Fields        map[string]Field `json:"fields"`
	Quality       QualityGate      `json:"quality"`
	EngineUsed    string           `json:"engine_used"`
	EngineChain   []string         `json:"engine_chain"`
	Thresholds    Thresholds       `json:"thresholds"`
}
