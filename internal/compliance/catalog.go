package compliance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/intellicoi/coi-backend/internal/types"
)

// DefaultRequirements returns the built-in requirement catalog. Order is
// significant: gap rows come out in catalog order.
func DefaultRequirements() []types.ComplianceRequirement {
	return []types.ComplianceRequirement{
		{
			ID:            types.CoverageGeneralLiability,
			CoverageType:  types.CoverageGeneralLiability,
			MinimumAmount: 1000000,
			Required:      true,
			VendorTypes:   []string{},
			Description:   "General Liability Insurance",
		},
		{
			ID:            types.CoverageAutoLiability,
			CoverageType:  types.CoverageAutoLiability,
			MinimumAmount: 1000000,
			Required:      true,
			VendorTypes:   []string{},
			Description:   "Automobile Liability Insurance",
		},
		{
			ID:            types.CoverageWorkersCompensation,
			CoverageType:  types.CoverageWorkersCompensation,
			MinimumAmount: 500000,
			Required:      true,
			VendorTypes:   []string{},
			Description:   "Workers Compensation Insurance",
		},
	}
}

type catalogFile struct {
	Requirements []types.ComplianceRequirement `yaml:"requirements"`
}

// LoadRequirements reads a replacement catalog from a YAML file. The loaded
// set fully replaces the default catalog; there are no partial overrides.
func LoadRequirements(path string) ([]types.ComplianceRequirement, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read requirement catalog: %w", err)
	}
	var cf catalogFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("parse requirement catalog: %w", err)
	}
	if len(cf.Requirements) == 0 {
		return nil, fmt.Errorf("requirement catalog %q contains no requirements", path)
	}
	for i, req := range cf.Requirements {
		if req.CoverageType == "" {
			return nil, fmt.Errorf("requirement %d: coverage_type is required", i)
		}
		if req.MinimumAmount <= 0 {
			return nil, fmt.Errorf("requirement %q: minimum_amount must be positive", req.CoverageType)
		}
	}
	return cf.Requirements, nil
}
