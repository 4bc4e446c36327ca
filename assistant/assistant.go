/*
Package assistant answers dashboard questions from a fixed topic table.

PURPOSE:
  The dashboard chat box sends free text. Answer looks for the first topic
  whose keyword appears in the prompt (case-insensitive) and returns the
  canned explanation for it. There is no language model and no access to
  the engine: figures quoted in the answers are the reference values.

TOPICS (checked in this order):
  liability   (liabilitas)
  solvency    (solvabilitas)
  inflation   (inflasi)
  stress test
  projection  (proyeksi)
  regulation  (regulasi)

  A prompt matching nothing gets the help text listing the topics.
*/
package assistant

import "strings"

// Reply is the answer to a prompt.
type Reply struct {
	Topic   string `json:"topic,omitempty"`
	Text    string `json:"text"`
	Matched bool   `json:"matched"`
}

type topic struct {
	name     string
	keywords []string
	text     string
}

var topics = []topic{
	{
		name:     "liability",
		keywords: []string{"liability", "liabilities", "liabilitas"},
		text: `Current total liability: about Rp 145.2 trillion based on the latest actuarial calculation.

Formula: L_total = Σ (C_t × J_t) / (1+r)^t
- 2.5 million waiting pilgrims
- Saudi inflation projected at 3.5% per year
- 6.5% discount rate
- 20-year projection horizon

Use POST /api/liability/project to run the calculation with different parameters.`,
	},
	{
		name:     "solvency",
		keywords: []string{"solvency", "solvabilitas"},
		text: `The solvency ratio compares total assets with total liabilities.

Formula: ratio = total assets ÷ total liabilities

Current position:
- Total assets: Rp 180.5 trillion
- Total liabilities: Rp 145.2 trillion
- Solvency ratio: 1.24 (Safe)

Interpretation:
- ratio ≥ 1.2: Safe
- 1.0 ≤ ratio < 1.2: Caution
- ratio < 1.0: High Risk`,
	},
	{
		name:     "inflation",
		keywords: []string{"inflation", "inflasi"},
		text: `Saudi inflation drives the cost of hajj directly.

Current inflation: 3.2% per year

Direct effects:
- Accommodation costs follow inflation
- Pilgrim living costs rise
- Local transport fares rise

Simulated impact:
- +1% inflation → liability up about 8.5%
- +2% inflation → liability up about 17.2%

Mitigation: currency diversification and hedging of currency exposure.`,
	},
	{
		name:     "stress test",
		keywords: []string{"stress test", "stress-test", "stress testing"},
		text: `Running a stress test:
1. Choose the shock scenarios (recession, depreciation, inflation)
2. Apply them to assets and liabilities
3. Compare the resulting solvency ratios
4. Evaluate mitigation actions

Standard scenarios:
- Recession: assets -15%, liabilities +15%
- Depreciation: rupiah weakens 30%
- Inflation: Saudi inflation rises to 8%

Use POST /api/stress/scenarios for the full catalog.`,
	},
	{
		name:     "projection",
		keywords: []string{"projection", "forecast", "proyeksi"},
		text: `Hajj cost projection for the next five years.

Assumptions:
- Saudi inflation: 3.5% per year
- Rupiah depreciation: 3% per year

Projected cost per pilgrim:
- 2026: Rp 100.7 million
- 2027: Rp 107.4 million
- 2028: Rp 114.5 million
- 2029: Rp 122.0 million
- 2030: Rp 130.1 million

Total funding needs grow exponentially over the horizon.`,
	},
	{
		name:     "regulation",
		keywords: []string{"regulation", "regulasi"},
		text: `Hajj fund management regulations.

Legal basis:
- Law No. 8/2019 on Hajj and Umrah Organization
- Government Regulation No. 5/2018 on BPKH
- BPKH regulations on investment

Investment principles:
- Shariah compliant
- Prudent
- Transparent and accountable
- Safety of funds first

Investment limits:
- At most 30% in equity instruments
- At least 40% in fixed income instruments`,
	},
}

const helpText = `Sorry, I did not understand the question.

You can ask about:
- Liability: total hajj financial obligations
- Solvency: the fund's financial health ratio
- Inflation: impact of Saudi inflation on hajj costs
- Regulation: laws and rules governing the fund
- Stress test: risk scenario simulation
- Projection: future cost estimates`

// Answer returns the reply for prompt.
func Answer(prompt string) Reply {
	p := strings.ToLower(prompt)
	for _, t := range topics {
		for _, kw := range t.keywords {
			if strings.Contains(p, kw) {
				return Reply{Topic: t.name, Text: t.text, Matched: true}
			}
		}
	}
	return Reply{Text: helpText}
}

// Topics returns the topic names in match order.
func Topics() []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.name
	}
	return out
}
