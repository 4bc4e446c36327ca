/*
montecarlo.go - Seeded Monte Carlo solvency simulation

PURPOSE:
  Estimates the distribution of the solvency ratio under random
  multiplicative shocks to liability and assets.

SAMPLING:
  liability factor ~ |Normal(1.0, 0.15)|
  asset factor     ~ |Normal(1.0, 0.10)|

  ratio_i = (assets × asset_i) / (liability × liability_i)

  The absolute value keeps factors positive. It folds the left tail rather
  than sampling a half-normal or log-normal distribution; the behavior is
  kept for compatibility with historical runs.

  All n liability factors are drawn first, then all n asset factors, from one
  generator.

DETERMINISM:
  Simulate builds its generator from the seed on every call, so identical
  (assets, liability, n, seed) always give identical samples, including
  under concurrent callers. SimulateRand accepts a caller-owned generator.

SEE ALSO:
  - stress.go: CautionThreshold used for the "safe" probability
*/
package actuarial

import (
	"math"
	"math/rand"
)

const (
	// DefaultSeed is the seed used when the caller has no preference.
	DefaultSeed int64 = 42

	// DefaultSimulations is the reference sample count.
	DefaultSimulations = 1000

	// MaxSimulations bounds a single run.
	MaxSimulations = 1_000_000

	LiabilityShockStdDev = 0.15
	AssetShockStdDev     = 0.10
)

// Simulate runs n samples using a generator seeded with seed.
func Simulate(baseAssets, baseLiability float64, n int, seed int64) (MonteCarloResult, error) {
	return SimulateRand(baseAssets, baseLiability, n, rand.New(rand.NewSource(seed)))
}

// SimulateRand runs n samples drawing from rng. rng must not be shared with
// concurrent callers.
func SimulateRand(baseAssets, baseLiability float64, n int, rng *rand.Rand) (MonteCarloResult, error) {
	if n <= 0 {
		return MonteCarloResult{}, invalid("n_simulations", float64(n), "must be positive")
	}
	if n > MaxSimulations {
		return MonteCarloResult{}, invalid("n_simulations", float64(n), "exceeds maximum")
	}
	if baseLiability == 0 {
		return MonteCarloResult{}, ErrDivisionByZero
	}

	liabilityFactors := make([]float64, n)
	for i := range liabilityFactors {
		liabilityFactors[i] = math.Abs(1.0 + rng.NormFloat64()*LiabilityShockStdDev)
	}
	assetFactors := make([]float64, n)
	for i := range assetFactors {
		assetFactors[i] = math.Abs(1.0 + rng.NormFloat64()*AssetShockStdDev)
	}

	samples := make([]float64, n)
	for i := range samples {
		denom := baseLiability * liabilityFactors[i]
		if denom == 0 {
			return MonteCarloResult{}, ErrDivisionByZero
		}
		samples[i] = (baseAssets * assetFactors[i]) / denom
	}

	return summarize(samples), nil
}

func summarize(samples []float64) MonteCarloResult {
	res := MonteCarloResult{
		Samples:   samples,
		WorstCase: math.Inf(1),
		BestCase:  math.Inf(-1),
	}

	var sum float64
	safe := 0
	for _, s := range samples {
		sum += s
		if s >= CautionThreshold {
			safe++
		}
		res.WorstCase = math.Min(res.WorstCase, s)
		res.BestCase = math.Max(res.BestCase, s)
	}
	n := float64(len(samples))
	res.Mean = sum / n

	var sq float64
	for _, s := range samples {
		d := s - res.Mean
		sq += d * d
	}
	res.StdDev = math.Sqrt(sq / n)
	res.ProbabilitySafePercent = float64(safe) / n * 100
	return res
}
