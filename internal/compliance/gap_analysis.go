package compliance

import (
	"fmt"
	"math"
	"strconv"

	"github.com/intellicoi/coi-backend/internal/types"
)

// Engine evaluates extracted coverage data against a requirement catalog.
// It is pure: no I/O, no clock, no stored state beyond the catalog.
type Engine struct {
	requirements []types.ComplianceRequirement
}

// NewEngine builds an engine over the given catalog. A nil or empty catalog
// falls back to the default requirement set.
func NewEngine(requirements []types.ComplianceRequirement) *Engine {
	if len(requirements) == 0 {
		requirements = DefaultRequirements()
	}
	return &Engine{requirements: requirements}
}

func (e *Engine) Requirements() []types.ComplianceRequirement {
	return e.requirements
}

// AnalyzeGaps walks the catalog in order and emits at most one gap per
// requirement. An empty result means the certificate is fully compliant.
func (e *Engine) AnalyzeGaps(data types.ExtractedCOIData) []types.ComplianceGap {
	gaps := []types.ComplianceGap{}
	for _, req := range e.requirements {
		if gap := e.analyzeSingleCoverage(req, data); gap != nil {
			gaps = append(gaps, *gap)
		}
	}
	return gaps
}

func (e *Engine) analyzeSingleCoverage(req types.ComplianceRequirement, data types.ExtractedCOIData) *types.ComplianceGap {
	coverage := data.Coverages[req.CoverageType]
	actual := ResolveActualAmount(coverage)

	// Absent coverage (or no resolvable amount) is a "missing" gap; an
	// amount of zero is an "increase" gap instead.
	if actual == nil {
		return &types.ComplianceGap{
			CoverageType: req.CoverageType,
			Required:     req.MinimumAmount,
			Actual:       nil,
			Gap:          req.MinimumAmount,
			Instruction:  missingCoverageInstruction(req),
		}
	}

	if *actual < req.MinimumAmount {
		gapAmount := req.MinimumAmount - *actual
		return &types.ComplianceGap{
			CoverageType: req.CoverageType,
			Required:     req.MinimumAmount,
			Actual:       actual,
			Gap:          gapAmount,
			Instruction:  insufficientCoverageInstruction(req, *actual, gapAmount),
		}
	}

	return nil
}

// ResolveActualAmount picks the actual coverage amount out of the aliased
// limit fields, first present field wins: limit, per-occurrence, combined
// single limit, each-accident, generic amount. Zero is a valid amount.
func ResolveActualAmount(c *types.Coverage) *float64 {
	if c == nil {
		return nil
	}
	for _, candidate := range []*float64{c.Limit, c.PerOccurrence, c.CombinedSingleLimit, c.EachAccident, c.Amount} {
		if candidate != nil {
			return candidate
		}
	}
	return nil
}

func (e *Engine) IsCompliant(data types.ExtractedCOIData) bool {
	return len(e.AnalyzeGaps(data)) == 0
}

// CompliancePercentage reports the share of requirements met, rounded to the
// nearest whole percent (2 of 3 is 67).
func (e *Engine) CompliancePercentage(data types.ExtractedCOIData) int {
	total := len(e.requirements)
	if total == 0 {
		return 100
	}
	compliant := total - len(e.AnalyzeGaps(data))
	return int(math.Round(float64(compliant) / float64(total) * 100))
}

func missingCoverageInstruction(req types.ComplianceRequirement) string {
	return fmt.Sprintf("Add %s coverage of at least %s", req.Description, FormatAmount(req.MinimumAmount))
}

func insufficientCoverageInstruction(req types.ComplianceRequirement, actual, gap float64) string {
	return fmt.Sprintf("Increase %s from %s to %s (gap of %s)",
		req.Description, FormatAmount(actual), FormatAmount(req.MinimumAmount), FormatAmount(gap))
}

// FormatAmount renders a dollar amount with thousands separators, e.g.
// 1000000 -> "$1,000,000".
func FormatAmount(amount float64) string {
	neg := amount < 0
	whole := int64(math.Round(math.Abs(amount)))
	digits := strconv.FormatInt(whole, 10)

	var grouped []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, d)
	}
	if neg {
		return "-$" + string(grouped)
	}
	return "$" + string(grouped)
}

// FormatCoverageType maps a coverage type key to its display name.
func FormatCoverageType(coverageType string) string {
	switch coverageType {
	case types.CoverageGeneralLiability:
		return "General Liability"
	case types.CoverageAutoLiability:
		return "Automobile Liability"
	case types.CoverageWorkersCompensation:
		return "Workers Compensation"
	default:
		return coverageType
	}
}
