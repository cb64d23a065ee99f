package types

// Coverage type keys as they appear in requirement catalogs, gap rows and
// normalized extraction output.
const (
	CoverageGeneralLiability    = "general_liability"
	CoverageAutoLiability       = "auto_liability"
	CoverageWorkersCompensation = "workers_compensation"
)

// Coverage holds the limits extracted for one coverage type. Extraction
// backends report the amount under several synonymous field names; all of
// them stay optional here and are resolved to a single actual amount by the
// gap analysis engine.
type Coverage struct {
	PolicyNumber        string   `json:"policyNumber,omitempty"`
	Limit               *float64 `json:"limit,omitempty"`
	Aggregate           *float64 `json:"aggregate,omitempty"`
	Deductible          *float64 `json:"deductible,omitempty"`
	PerOccurrence       *float64 `json:"perOccurrence,omitempty"`
	CombinedSingleLimit *float64 `json:"combinedSingleLimit,omitempty"`
	EachAccident        *float64 `json:"eachAccident,omitempty"`
	Amount              *float64 `json:"amount,omitempty"`
}

// ExtractedCOIData is the normalized form of an extraction backend payload.
// Coverages is keyed by coverage type; an absent key means the document shows
// no such coverage at all.
type ExtractedCOIData struct {
	Carrier             string               `json:"carrier,omitempty"`
	PolicyNumber        string               `json:"policyNumber,omitempty"`
	InsuredName         string               `json:"insuredName,omitempty"`
	EffectiveDate       string               `json:"effectiveDate,omitempty"`
	ExpirationDate      string               `json:"expirationDate,omitempty"`
	Coverages           map[string]*Coverage `json:"coverages,omitempty"`
	AdditionalInsured   []string             `json:"additionalInsured,omitempty"`
	CertificateHolder   string               `json:"certificateHolder,omitempty"`
	WaiverOfSubrogation bool                 `json:"waiverOfSubrogation,omitempty"`
}
