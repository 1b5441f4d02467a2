// Package verify defines the verdict returned by the image-verification
// oracle and how a verdict is stored on a record. The oracle itself is an
// external service; this package only fixes its contract.
package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

// Kinds of evidence the oracle judges.
const (
	KindSafetyKit         = "safety_kit"
	KindSegregation       = "segregation"
	KindCommunityReport   = "community_report"
	KindTreatmentDelivery = "treatment_delivery"
)

// Segregation quality values.
const (
	QualityGood    = "good"
	QualityAverage = "average"
	QualityPoor    = "poor"
	QualityUnknown = "unknown"
)

// Community report severity values.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Verdict validation errors.
var (
	ErrUnknownKind       = errors.New("unknown verdict kind")
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
	ErrInvalidQuality    = errors.New("invalid segregation quality")
	ErrInvalidSeverity   = errors.New("invalid report severity")
)

// Oracle judges submitted image evidence.
type Oracle interface {
	Verify(ctx context.Context, kind string, image []byte) (Verdict, error)
}

// Verdict is the oracle's structured judgment. Which fields apply depends
// on Kind:
//
//	safety_kit          Verified, Items, Concerns
//	segregation         Quality, Issues, Recommendations
//	community_report    Valid, Severity, WasteType, Description, ActionRequired
//	treatment_delivery  Verified, SegregationQuality, VehicleCompliance, Notes
type Verdict struct {
	Kind       string  `json:"kind"`
	Verified   bool    `json:"verified"`
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes,omitempty"`
	Error      string  `json:"error,omitempty"`

	Items    []string `json:"items_detected,omitempty"`
	Concerns []string `json:"concerns,omitempty"`

	Quality         string   `json:"quality,omitempty"`
	Issues          []string `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`

	Valid          bool   `json:"valid,omitempty"`
	Severity       string `json:"severity,omitempty"`
	WasteType      string `json:"waste_type,omitempty"`
	Description    string `json:"description,omitempty"`
	ActionRequired bool   `json:"action_required,omitempty"`

	SegregationQuality string `json:"segregation_quality,omitempty"`
	VehicleCompliance  bool   `json:"vehicle_compliance,omitempty"`
}

// Validate checks the verdict's kind, confidence range and the enumerated
// values its kind uses.
func (v Verdict) Validate() error {
	switch v.Kind {
	case KindSafetyKit:
	case KindSegregation:
		if !validQuality(v.Quality) {
			return fmt.Errorf("%w: %q", ErrInvalidQuality, v.Quality)
		}
	case KindCommunityReport:
		switch v.Severity {
		case "", SeverityLow, SeverityMedium, SeverityHigh:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidSeverity, v.Severity)
		}
	case KindTreatmentDelivery:
		if v.SegregationQuality != "" && !validQuality(v.SegregationQuality) {
			return fmt.Errorf("%w: %q", ErrInvalidQuality, v.SegregationQuality)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, v.Kind)
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidConfidence, v.Confidence)
	}
	return nil
}

func validQuality(q string) bool {
	switch q {
	case QualityGood, QualityAverage, QualityPoor, QualityUnknown:
		return true
	}
	return false
}

// Failed is the verdict recorded when the oracle could not judge the
// evidence: not verified or valid, unknown quality, zero confidence.
func Failed(kind string, err error) Verdict {
	v := Verdict{Kind: kind}
	if kind == KindSegregation {
		v.Quality = QualityUnknown
	}
	if err != nil {
		v.Error = err.Error()
	}
	return v
}

// Run asks the oracle for a verdict. An oracle error or an invalid verdict
// becomes a Failed verdict so the caller can always store the outcome.
func Run(ctx context.Context, o Oracle, kind string, image []byte) Verdict {
	if o == nil {
		return Failed(kind, errors.New("verification oracle not configured"))
	}
	v, err := o.Verify(ctx, kind, image)
	if err != nil {
		return Failed(kind, err)
	}
	if v.Kind == "" {
		v.Kind = kind
	}
	if err := v.Validate(); err != nil {
		return Failed(kind, err)
	}
	return v
}

// Fields flattens the verdict into record fields for Store.Update.
// Community reports record ai_validated; every other kind ai_verified.
func (v Verdict) Fields() types.Record {
	f := types.Record{
		"ai_kind":       v.Kind,
		"ai_confidence": v.Confidence,
	}
	switch v.Kind {
	case KindCommunityReport:
		f["ai_validated"] = v.Valid
		f["ai_action_required"] = v.ActionRequired
	case KindTreatmentDelivery:
		f["ai_verified"] = v.Verified
		f["ai_vehicle_compliance"] = v.VehicleCompliance
	default:
		f["ai_verified"] = v.Verified
	}

	optional := map[string]string{
		"ai_quality":             v.Quality,
		"ai_notes":               v.Notes,
		"ai_error":               v.Error,
		"ai_severity":            v.Severity,
		"ai_waste_type":          v.WasteType,
		"ai_description":         v.Description,
		"ai_segregation_quality": v.SegregationQuality,
	}
	for k, val := range optional {
		if val != "" {
			f[k] = val
		}
	}
	lists := map[string][]string{
		"ai_items":           v.Items,
		"ai_concerns":        v.Concerns,
		"ai_issues":          v.Issues,
		"ai_recommendations": v.Recommendations,
	}
	for k, val := range lists {
		if len(val) > 0 {
			f[k] = val
		}
	}
	return f
}
