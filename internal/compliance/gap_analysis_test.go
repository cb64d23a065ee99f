package compliance

import (
	"strings"
	"testing"

	"github.com/intellicoi/coi-backend/internal/types"
)

func amt(v float64) *float64 { return &v }

func compliantData() types.ExtractedCOIData {
	return types.ExtractedCOIData{
		Carrier:        "Test Insurance Co",
		PolicyNumber:   "TEST-123",
		InsuredName:    "Test Company LLC",
		EffectiveDate:  "2024-01-01",
		ExpirationDate: "2025-01-01",
		Coverages: map[string]*types.Coverage{
			types.CoverageGeneralLiability:    {Limit: amt(1000000), PerOccurrence: amt(1000000)},
			types.CoverageAutoLiability:       {Limit: amt(1000000), PerOccurrence: amt(1000000)},
			types.CoverageWorkersCompensation: {Limit: amt(500000), PerOccurrence: amt(500000)},
		},
	}
}

func TestAnalyzeGapsFullyCompliant(t *testing.T) {
	engine := NewEngine(nil)
	gaps := engine.AnalyzeGaps(compliantData())
	if len(gaps) != 0 {
		t.Fatalf("gap count: want=0 got=%d", len(gaps))
	}
	if !engine.IsCompliant(compliantData()) {
		t.Fatalf("IsCompliant: want=true got=false")
	}
}

func TestAnalyzeGapsMissingCoverages(t *testing.T) {
	engine := NewEngine(nil)
	data := types.ExtractedCOIData{
		Coverages: map[string]*types.Coverage{
			types.CoverageGeneralLiability: {Limit: amt(1000000)},
		},
	}

	gaps := engine.AnalyzeGaps(data)
	if len(gaps) != 2 {
		t.Fatalf("gap count: want=2 got=%d", len(gaps))
	}
	if gaps[0].CoverageType != types.CoverageAutoLiability {
		t.Fatalf("first gap coverage type: want=%q got=%q", types.CoverageAutoLiability, gaps[0].CoverageType)
	}
	if gaps[0].Actual != nil {
		t.Fatalf("missing coverage actual: want=nil got=%v", *gaps[0].Actual)
	}
	if !strings.Contains(gaps[0].Instruction, "Add Automobile Liability Insurance") {
		t.Fatalf("instruction %q missing add phrase", gaps[0].Instruction)
	}
	if gaps[1].CoverageType != types.CoverageWorkersCompensation {
		t.Fatalf("second gap coverage type: want=%q got=%q", types.CoverageWorkersCompensation, gaps[1].CoverageType)
	}
	if !strings.Contains(gaps[1].Instruction, "Add Workers Compensation Insurance") {
		t.Fatalf("instruction %q missing add phrase", gaps[1].Instruction)
	}
}

func TestAnalyzeGapsInsufficientCoverage(t *testing.T) {
	engine := NewEngine(nil)
	data := types.ExtractedCOIData{
		Coverages: map[string]*types.Coverage{
			types.CoverageGeneralLiability:    {Limit: amt(500000)},
			types.CoverageAutoLiability:       {Limit: amt(1000000)},
			types.CoverageWorkersCompensation: {Limit: amt(250000)},
		},
	}

	gaps := engine.AnalyzeGaps(data)
	if len(gaps) != 2 {
		t.Fatalf("gap count: want=2 got=%d", len(gaps))
	}

	gl := gaps[0]
	if gl.CoverageType != types.CoverageGeneralLiability {
		t.Fatalf("coverage type: want=%q got=%q", types.CoverageGeneralLiability, gl.CoverageType)
	}
	if gl.Actual == nil || *gl.Actual != 500000 {
		t.Fatalf("actual: want=500000 got=%v", gl.Actual)
	}
	if gl.Required != 1000000 {
		t.Fatalf("required: want=1000000 got=%v", gl.Required)
	}
	if gl.Gap != 500000 {
		t.Fatalf("gap: want=500000 got=%v", gl.Gap)
	}
	if !strings.Contains(gl.Instruction, "Increase General Liability Insurance from $500,000 to $1,000,000") {
		t.Fatalf("instruction wrong: %q", gl.Instruction)
	}

	wc := gaps[1]
	if wc.CoverageType != types.CoverageWorkersCompensation {
		t.Fatalf("coverage type: want=%q got=%q", types.CoverageWorkersCompensation, wc.CoverageType)
	}
	if wc.Actual == nil || *wc.Actual != 250000 {
		t.Fatalf("actual: want=250000 got=%v", wc.Actual)
	}
	if wc.Gap != 250000 {
		t.Fatalf("gap: want=250000 got=%v", wc.Gap)
	}
}

func TestAnalyzeGapsZeroAmountIsIncreaseNotMissing(t *testing.T) {
	engine := NewEngine(nil)
	data := types.ExtractedCOIData{
		Coverages: map[string]*types.Coverage{
			types.CoverageGeneralLiability:    {Limit: amt(0)},
			types.CoverageAutoLiability:       {Limit: amt(0)},
			types.CoverageWorkersCompensation: {Limit: amt(0)},
		},
	}

	gaps := engine.AnalyzeGaps(data)
	if len(gaps) != 3 {
		t.Fatalf("gap count: want=3 got=%d", len(gaps))
	}
	for _, gap := range gaps {
		if gap.Actual == nil || *gap.Actual != 0 {
			t.Fatalf("%s actual: want=0 got=%v", gap.CoverageType, gap.Actual)
		}
		if !strings.Contains(gap.Instruction, "Increase") {
			t.Fatalf("%s instruction %q should say Increase", gap.CoverageType, gap.Instruction)
		}
	}
}

func TestAnalyzeGapsAlternativeFieldNames(t *testing.T) {
	engine := NewEngine(nil)
	data := types.ExtractedCOIData{
		Coverages: map[string]*types.Coverage{
			types.CoverageGeneralLiability:    {PerOccurrence: amt(1000000)},
			types.CoverageAutoLiability:       {CombinedSingleLimit: amt(1000000)},
			types.CoverageWorkersCompensation: {EachAccident: amt(500000)},
		},
	}

	if gaps := engine.AnalyzeGaps(data); len(gaps) != 0 {
		t.Fatalf("gap count: want=0 got=%d", len(gaps))
	}
}

func TestAnalyzeGapsNilAndEmptyCoverageAreMissing(t *testing.T) {
	engine := NewEngine(nil)
	data := types.ExtractedCOIData{
		Coverages: map[string]*types.Coverage{
			types.CoverageGeneralLiability:    nil,
			types.CoverageWorkersCompensation: {},
		},
	}

	gaps := engine.AnalyzeGaps(data)
	if len(gaps) != 3 {
		t.Fatalf("gap count: want=3 got=%d", len(gaps))
	}
	for _, gap := range gaps {
		if gap.Actual != nil {
			t.Fatalf("%s actual: want=nil got=%v", gap.CoverageType, *gap.Actual)
		}
		if !strings.Contains(gap.Instruction, "Add") {
			t.Fatalf("%s instruction %q should say Add", gap.CoverageType, gap.Instruction)
		}
	}
}

func TestResolveActualAmountPriorityOrder(t *testing.T) {
	cases := []struct {
		name     string
		coverage *types.Coverage
		want     *float64
	}{
		{name: "nil_coverage", coverage: nil, want: nil},
		{name: "no_amount_fields", coverage: &types.Coverage{PolicyNumber: "GL-1"}, want: nil},
		{name: "limit_wins_over_per_occurrence", coverage: &types.Coverage{Limit: amt(100), PerOccurrence: amt(200)}, want: amt(100)},
		{name: "per_occurrence_before_csl", coverage: &types.Coverage{PerOccurrence: amt(200), CombinedSingleLimit: amt(300)}, want: amt(200)},
		{name: "csl_before_each_accident", coverage: &types.Coverage{CombinedSingleLimit: amt(300), EachAccident: amt(400)}, want: amt(300)},
		{name: "each_accident_before_amount", coverage: &types.Coverage{EachAccident: amt(400), Amount: amt(500)}, want: amt(400)},
		{name: "amount_last", coverage: &types.Coverage{Amount: amt(500)}, want: amt(500)},
		{name: "zero_limit_is_a_number", coverage: &types.Coverage{Limit: amt(0), PerOccurrence: amt(900)}, want: amt(0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveActualAmount(tc.coverage)
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("resolved: want=%v got=%v", tc.want, got)
			}
			if got != nil && *got != *tc.want {
				t.Fatalf("resolved: want=%v got=%v", *tc.want, *got)
			}
		})
	}
}

func TestCompliancePercentage(t *testing.T) {
	engine := NewEngine(nil)

	if got := engine.CompliancePercentage(compliantData()); got != 100 {
		t.Fatalf("percentage: want=100 got=%d", got)
	}

	twoOfThree := types.ExtractedCOIData{
		Coverages: map[string]*types.Coverage{
			types.CoverageGeneralLiability: {Limit: amt(1000000)},
			types.CoverageAutoLiability:    {Limit: amt(1000000)},
		},
	}
	if got := engine.CompliancePercentage(twoOfThree); got != 67 {
		t.Fatalf("percentage: want=67 got=%d", got)
	}

	none := types.ExtractedCOIData{Coverages: map[string]*types.Coverage{}}
	if got := engine.CompliancePercentage(none); got != 0 {
		t.Fatalf("percentage: want=0 got=%d", got)
	}
}

func TestCustomRequirementsReplaceDefaults(t *testing.T) {
	custom := []types.ComplianceRequirement{
		{
			ID:            types.CoverageGeneralLiability,
			CoverageType:  types.CoverageGeneralLiability,
			MinimumAmount: 2000000,
			Required:      true,
			Description:   "General Liability Insurance",
		},
	}
	engine := NewEngine(custom)

	data := types.ExtractedCOIData{
		Coverages: map[string]*types.Coverage{
			types.CoverageGeneralLiability: {Limit: amt(1000000)},
		},
	}

	gaps := engine.AnalyzeGaps(data)
	if len(gaps) != 1 {
		t.Fatalf("gap count: want=1 got=%d", len(gaps))
	}
	if gaps[0].Required != 2000000 {
		t.Fatalf("required: want=2000000 got=%v", gaps[0].Required)
	}
	if gaps[0].Gap != 1000000 {
		t.Fatalf("gap: want=1000000 got=%v", gaps[0].Gap)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "$0"},
		{500, "$500"},
		{500000, "$500,000"},
		{1000000, "$1,000,000"},
		{1234567, "$1,234,567"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.in); got != tc.want {
			t.Fatalf("FormatAmount(%v): want=%q got=%q", tc.in, tc.want, got)
		}
	}
}
