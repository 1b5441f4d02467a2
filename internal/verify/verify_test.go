package verify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/wasteledger/internal/jsonfile"
	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

type stubOracle struct {
	verdict Verdict
	err     error
	gotKind string
}

func (s *stubOracle) Verify(_ context.Context, kind string, _ []byte) (Verdict, error) {
	s.gotKind = kind
	return s.verdict, s.err
}

func TestVerdictValidate(t *testing.T) {
	tests := []struct {
		name    string
		verdict Verdict
		wantErr error
	}{
		{"safety kit ok", Verdict{Kind: KindSafetyKit, Verified: true, Confidence: 0.9}, nil},
		{"segregation ok", Verdict{Kind: KindSegregation, Quality: QualityAverage, Confidence: 1}, nil},
		{"unknown kind", Verdict{Kind: "selfie", Confidence: 0.5}, ErrUnknownKind},
		{"confidence above 1", Verdict{Kind: KindSafetyKit, Confidence: 1.2}, ErrInvalidConfidence},
		{"negative confidence", Verdict{Kind: KindSafetyKit, Confidence: -0.1}, ErrInvalidConfidence},
		{"bad quality", Verdict{Kind: KindSegregation, Quality: "excellent", Confidence: 0.5}, ErrInvalidQuality},
		{"missing quality", Verdict{Kind: KindSegregation, Confidence: 0.5}, ErrInvalidQuality},
		{"community report ok", Verdict{Kind: KindCommunityReport, Valid: true, Severity: SeverityHigh, Confidence: 0.8}, nil},
		{"community report without severity", Verdict{Kind: KindCommunityReport, Error: "no image"}, nil},
		{"bad severity", Verdict{Kind: KindCommunityReport, Severity: "urgent", Confidence: 0.5}, ErrInvalidSeverity},
		{"treatment delivery ok", Verdict{Kind: KindTreatmentDelivery, Verified: true, SegregationQuality: QualityGood, Confidence: 0.7}, nil},
		{"treatment delivery bad quality", Verdict{Kind: KindTreatmentDelivery, SegregationQuality: "mixed", Confidence: 0.7}, ErrInvalidQuality},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.verdict.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRun(t *testing.T) {
	t.Run("passes a valid verdict through", func(t *testing.T) {
		o := &stubOracle{verdict: Verdict{Verified: true, Confidence: 0.8, Items: []string{"gloves", "mask"}}}
		v := Run(context.Background(), o, KindSafetyKit, []byte{0xff, 0xd8})
		assert.Equal(t, KindSafetyKit, o.gotKind)
		assert.Equal(t, KindSafetyKit, v.Kind)
		assert.True(t, v.Verified)
		assert.Empty(t, v.Error)
	})

	t.Run("oracle error becomes failed verdict", func(t *testing.T) {
		o := &stubOracle{err: errors.New("quota exceeded")}
		v := Run(context.Background(), o, KindSegregation, nil)
		assert.False(t, v.Verified)
		assert.Equal(t, QualityUnknown, v.Quality)
		assert.Equal(t, "quota exceeded", v.Error)
	})

	t.Run("invalid verdict becomes failed verdict", func(t *testing.T) {
		o := &stubOracle{verdict: Verdict{Verified: true, Confidence: 7}}
		v := Run(context.Background(), o, KindSafetyKit, nil)
		assert.False(t, v.Verified)
		assert.Contains(t, v.Error, "confidence")
	})

	t.Run("missing oracle", func(t *testing.T) {
		v := Run(context.Background(), nil, KindSafetyKit, nil)
		assert.False(t, v.Verified)
		assert.Contains(t, v.Error, "not configured")
	})
}

func TestFieldsStoredOnRecord(t *testing.T) {
	s := jsonfile.NewBackend()
	require.NoError(t, s.Attach(types.Config{Backend: types.BackendJSON, DataDir: t.TempDir()}))
	defer s.Detach()

	rec, err := s.Add(types.CollectionsTable, types.Record{"family_id": 1, "kg": 4.5})
	require.NoError(t, err)

	v := Verdict{
		Kind:       KindSegregation,
		Quality:    QualityPoor,
		Confidence: 0.72,
		Issues:     []string{"plastic in organic bin"},
	}
	updated, err := s.Update(types.CollectionsTable, rec.ID(), v.Fields())
	require.NoError(t, err)

	assert.Equal(t, "poor", updated["ai_quality"])
	assert.Equal(t, 0.72, updated["ai_confidence"])
	assert.Equal(t, false, updated["ai_verified"])
	assert.Equal(t, []any{"plastic in organic bin"}, updated["ai_issues"])
	assert.NotContains(t, updated, "ai_error")
	assert.NotContains(t, updated, "ai_items")
	assert.Equal(t, 4.5, updated["kg"])
}

func TestDecodeOracleResponses(t *testing.T) {
	tests := []struct {
		name string
		kind string
		body string
		want types.Record
	}{
		{
			name: "safety kit",
			kind: KindSafetyKit,
			body: `{"verified": true, "confidence": 0.9, "items_detected": ["gloves", "mask"], "concerns": ["no boots"]}`,
			want: types.Record{
				"ai_kind":       KindSafetyKit,
				"ai_verified":   true,
				"ai_confidence": 0.9,
				"ai_items":      []string{"gloves", "mask"},
				"ai_concerns":   []string{"no boots"},
			},
		},
		{
			name: "segregation",
			kind: KindSegregation,
			body: `{"quality": "average", "confidence": 0.6, "issues": ["mixed plastics"], "recommendations": ["separate bottles"]}`,
			want: types.Record{
				"ai_kind":            KindSegregation,
				"ai_verified":        false,
				"ai_confidence":      0.6,
				"ai_quality":         QualityAverage,
				"ai_issues":          []string{"mixed plastics"},
				"ai_recommendations": []string{"separate bottles"},
			},
		},
		{
			name: "community report",
			kind: KindCommunityReport,
			body: `{"valid": true, "severity": "medium", "waste_type": "construction debris", "description": "rubble on footpath", "action_required": true, "confidence": 0.75}`,
			want: types.Record{
				"ai_kind":            KindCommunityReport,
				"ai_validated":       true,
				"ai_action_required": true,
				"ai_confidence":      0.75,
				"ai_severity":        SeverityMedium,
				"ai_waste_type":      "construction debris",
				"ai_description":     "rubble on footpath",
			},
		},
		{
			name: "treatment delivery",
			kind: KindTreatmentDelivery,
			body: `{"verified": true, "segregation_quality": "good", "vehicle_compliance": true, "notes": "covered load", "confidence": 0.8}`,
			want: types.Record{
				"ai_kind":                KindTreatmentDelivery,
				"ai_verified":            true,
				"ai_vehicle_compliance":  true,
				"ai_confidence":          0.8,
				"ai_segregation_quality": QualityGood,
				"ai_notes":               "covered load",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Verdict
			require.NoError(t, json.Unmarshal([]byte(tt.body), &v))
			o := &stubOracle{verdict: v}
			got := Run(context.Background(), o, tt.kind, nil)
			require.Empty(t, got.Error)
			assert.Equal(t, tt.want, got.Fields())
		})
	}
}

func TestFailedCommunityReportIsNotValidated(t *testing.T) {
	v := Run(context.Background(), nil, KindCommunityReport, nil)
	f := v.Fields()
	assert.Equal(t, false, f["ai_validated"])
	assert.NotContains(t, f, "ai_verified")
	assert.Contains(t, f["ai_error"], "not configured")
}
