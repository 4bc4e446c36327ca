/*
stress.go - Scenario stress testing

PURPOSE:
  Applies a fixed catalog of multiplicative macro shocks to aggregate assets
  and liability and classifies the resulting solvency ratio.

CATALOG (declaration order is output order):
  Base                           liability ×1.00  assets ×1.00
  Global Recession               liability ×1.15  assets ×0.85
  Extreme Currency Depreciation  liability ×1.45  assets ×0.95
  High Saudi Inflation           liability ×1.25  assets ×1.02
  Combined Shock                 liability ×1.60  assets ×0.80

STATUS THRESHOLDS:
  ratio >= 1.2        Safe
  1.0 <= ratio < 1.2  Caution
  ratio < 1.0         High Risk

SEE ALSO:
  - montecarlo.go: Random rather than named shocks
*/
package actuarial

var stressCatalog = [...]StressScenario{
	{
		Name:                "Base",
		LiabilityMultiplier: 1.00,
		AssetMultiplier:     1.00,
		Description:         "Normal conditions without external shocks",
	},
	{
		Name:                "Global Recession",
		LiabilityMultiplier: 1.15,
		AssetMultiplier:     0.85,
		Description:         "Investment yields fall while costs rise",
	},
	{
		Name:                "Extreme Currency Depreciation",
		LiabilityMultiplier: 1.45,
		AssetMultiplier:     0.95,
		Description:         "Rupiah weakens 30% within 2 years",
	},
	{
		Name:                "High Saudi Inflation",
		LiabilityMultiplier: 1.25,
		AssetMultiplier:     1.02,
		Description:         "Saudi inflation reaches 8% per year",
	},
	{
		Name:                "Combined Shock",
		LiabilityMultiplier: 1.60,
		AssetMultiplier:     0.80,
		Description:         "Recession, depreciation and inflation together",
	},
}

// Solvency thresholds.
const (
	SafeThreshold    = 1.2
	CautionThreshold = 1.0
)

// StressCatalog returns a copy of the fixed scenario catalog in order.
func StressCatalog() []StressScenario {
	out := make([]StressScenario, len(stressCatalog))
	copy(out, stressCatalog[:])
	return out
}

// Classify maps a solvency ratio to its status.
func Classify(ratio float64) Status {
	switch {
	case ratio >= SafeThreshold:
		return StatusSafe
	case ratio >= CautionThreshold:
		return StatusCaution
	default:
		return StatusHighRisk
	}
}

// SolvencyRatio returns assets / liability.
func SolvencyRatio(assets, liability float64) (float64, error) {
	if liability == 0 {
		return 0, ErrDivisionByZero
	}
	return assets / liability, nil
}

// RunStress applies every catalog scenario to the given aggregates.
func RunStress(baseAssets, baseLiability float64) ([]StressResult, error) {
	results := make([]StressResult, 0, len(stressCatalog))
	for _, sc := range stressCatalog {
		liability := baseLiability * sc.LiabilityMultiplier
		assets := baseAssets * sc.AssetMultiplier

		ratio, err := SolvencyRatio(assets, liability)
		if err != nil {
			return nil, err
		}

		results = append(results, StressResult{
			Scenario:         sc.Name,
			Description:      sc.Description,
			ShockedAssets:    assets,
			ShockedLiability: liability,
			SolvencyRatio:    ratio,
			Status:           Classify(ratio),
		})
	}
	return results, nil
}
