package services

import (
	"github.com/intellicoi/coi-backend/internal/types"
)

// TransformExtraction normalizes a raw extraction payload into the canonical
// coverage record. The payload is untyped on purpose: extraction backends are
// unreliable, and every field here is optional at the edge. Absent or
// malformed sub-objects become absent coverage entries, never errors.
func TransformExtraction(raw map[string]any) *types.ExtractedCOIData {
	data := &types.ExtractedCOIData{
		PolicyNumber:        stringField(raw, "policy_number"),
		InsuredName:         stringField(raw, "insured_name"),
		EffectiveDate:       stringField(raw, "effective_date"),
		ExpirationDate:      stringField(raw, "expiration_date"),
		CertificateHolder:   stringField(raw, "certificate_holder"),
		AdditionalInsured:   stringSliceField(raw, "additional_insured"),
		WaiverOfSubrogation: raw["waiver_of_subrogation"] == true,
		Coverages:           map[string]*types.Coverage{},
	}

	data.Carrier = stringField(raw, "insurance_company")
	if data.Carrier == "" {
		data.Carrier = stringField(raw, "carrier")
	}

	if gl, ok := subObject(raw, "general_liability"); ok {
		data.Coverages[types.CoverageGeneralLiability] = &types.Coverage{
			PolicyNumber:  stringField(gl, "policy_number"),
			Limit:         numberField(gl, "each_occurrence"),
			PerOccurrence: numberField(gl, "each_occurrence"),
			Aggregate:     numberField(gl, "general_aggregate"),
		}
	}
	if auto, ok := subObject(raw, "automobile_liability"); ok {
		data.Coverages[types.CoverageAutoLiability] = &types.Coverage{
			PolicyNumber:        stringField(auto, "policy_number"),
			Limit:               numberField(auto, "combined_single_limit"),
			PerOccurrence:       numberField(auto, "combined_single_limit"),
			CombinedSingleLimit: numberField(auto, "combined_single_limit"),
		}
	}
	if wc, ok := subObject(raw, "workers_compensation"); ok {
		data.Coverages[types.CoverageWorkersCompensation] = &types.Coverage{
			PolicyNumber:  stringField(wc, "policy_number"),
			Limit:         numberField(wc, "each_accident"),
			PerOccurrence: numberField(wc, "each_accident"),
			EachAccident:  numberField(wc, "each_accident"),
		}
	}

	return data
}

func subObject(raw map[string]any, key string) (map[string]any, bool) {
	if raw == nil {
		return nil, false
	}
	sub, ok := raw[key].(map[string]any)
	if !ok || sub == nil {
		return nil, false
	}
	return sub, true
}

func stringField(raw map[string]any, key string) string {
	if raw == nil {
		return ""
	}
	s, _ := raw[key].(string)
	return s
}

// numberField accepts the numeric types json.Unmarshal and hand-built test
// payloads produce. Anything else counts as absent.
func numberField(raw map[string]any, key string) *float64 {
	if raw == nil {
		return nil
	}
	switch v := raw[key].(type) {
	case float64:
		return &v
	case float32:
		f := float64(v)
		return &f
	case int:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

func stringSliceField(raw map[string]any, key string) []string {
	if raw == nil {
		return nil
	}
	switch v := raw[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
