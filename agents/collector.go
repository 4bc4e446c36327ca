package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/astha/treasury-engine/cache"
)

// Data sources served by the collector.
const (
	SourceExchangeRates      = "exchange_rates"
	SourceEconomicIndicators = "economic_indicators"
	SourceMarketData         = "market_data"
	SourceBIData             = "bi_data"
)

var allSources = []string{SourceExchangeRates, SourceEconomicIndicators, SourceMarketData, SourceBIData}

// Reference values used until a live feed is configured.
const simulatedSource = "Default Values"

// ExchangeRates are IDR prices of one USD and one SAR.
type ExchangeRates struct {
	USD    float64 `json:"USD"`
	SAR    float64 `json:"SAR"`
	Source string  `json:"source"`
}

// EconomicIndicators are the macro rates (percent) the liability model uses.
type EconomicIndicators struct {
	SaudiInflation     float64 `json:"saudi_inflation"`
	IndonesiaInflation float64 `json:"indonesia_inflation"`
	BIRate             float64 `json:"bi_rate"`
	USTreasury10Y      float64 `json:"us_treasury_10y"`
	Source             string  `json:"source"`
}

// MarketData is a snapshot of the investable market.
type MarketData struct {
	SukukYield10Y      float64 `json:"sukuk_yield_10y"`
	CorporateBondYield float64 `json:"corporate_bond_yield"`
	EquityIndex        float64 `json:"equity_index"`
	GoldPriceUSD       float64 `json:"gold_price_usd"`
	OilPriceBrent      float64 `json:"oil_price_brent"`
}

// BIData is the Bank Indonesia monetary snapshot.
type BIData struct {
	BIRate            float64 `json:"bi_rate"`
	InflationMoM      float64 `json:"inflation_mom"`
	InflationYoY      float64 `json:"inflation_yoy"`
	MoneySupplyGrowth float64 `json:"money_supply_growth"`
}

// CollectedData is the result of a data_collector execution. Sources that
// were not requested are nil.
type CollectedData struct {
	CollectedAt        time.Time           `json:"collected_at"`
	ExchangeRates      *ExchangeRates      `json:"exchange_rates,omitempty"`
	EconomicIndicators *EconomicIndicators `json:"economic_indicators,omitempty"`
	MarketData         *MarketData         `json:"market_data,omitempty"`
	BIData             *BIData             `json:"bi_data,omitempty"`
	SourcesCount       int                 `json:"sources_count"`
}

// DataCollector gathers the external inputs of the daily analysis. Values are
// served through the cache so repeated requests within the TTL are stable.
type DataCollector struct {
	base

	cache cache.Cache
	ttl   time.Duration
}

// NewDataCollector creates the collector.
func NewDataCollector(c cache.Cache, ttl time.Duration, recorder Recorder, logger *zap.Logger) *DataCollector {
	if c == nil {
		c = cache.NewMemory()
	}
	return &DataCollector{
		base:  newBase("data_collector", "Collects exchange rates, economic indicators and market data", recorder, logger),
		cache: c,
		ttl:   ttl,
	}
}

// Execute collects req.Sources, or every source when empty.
func (a *DataCollector) Execute(ctx context.Context, req Request) (any, error) {
	return a.run(ctx, req, func() (any, error) {
		return a.Collect(ctx, req.Sources)
	})
}

// Collect gathers sources without touching agent status.
func (a *DataCollector) Collect(ctx context.Context, sources []string) (*CollectedData, error) {
	if len(sources) == 0 {
		sources = allSources
	}

	out := &CollectedData{CollectedAt: a.now().UTC()}
	for _, src := range sources {
		var err error
		switch src {
		case SourceExchangeRates:
			out.ExchangeRates, err = a.ExchangeRates(ctx)
		case SourceEconomicIndicators:
			out.EconomicIndicators, err = a.EconomicIndicators(ctx)
		case SourceMarketData:
			out.MarketData, err = cached(ctx, a, "market:data", func() (*MarketData, error) {
				return &MarketData{
					SukukYield10Y:      6.85,
					CorporateBondYield: 7.25,
					EquityIndex:        7245.82,
					GoldPriceUSD:       2065.50,
					OilPriceBrent:      82.15,
				}, nil
			})
		case SourceBIData:
			out.BIData, err = cached(ctx, a, "market:bi", func() (*BIData, error) {
				return &BIData{BIRate: 6.00, InflationMoM: 0.15, InflationYoY: 2.75, MoneySupplyGrowth: 8.5}, nil
			})
		default:
			return nil, fmt.Errorf("%w: source %q", ErrUnknownKind, src)
		}
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", src, err)
		}
		out.SourcesCount++
	}
	return out, nil
}

// ExchangeRates returns the current IDR rates.
func (a *DataCollector) ExchangeRates(ctx context.Context) (*ExchangeRates, error) {
	return cached(ctx, a, "market:rates", func() (*ExchangeRates, error) {
		return &ExchangeRates{USD: 15_500, SAR: 4_133, Source: simulatedSource}, nil
	})
}

// EconomicIndicators returns the current macro indicators.
func (a *DataCollector) EconomicIndicators(ctx context.Context) (*EconomicIndicators, error) {
	return cached(ctx, a, "market:indicators", func() (*EconomicIndicators, error) {
		return &EconomicIndicators{
			SaudiInflation:     3.2,
			IndonesiaInflation: 2.8,
			BIRate:             6.0,
			USTreasury10Y:      4.5,
			Source:             simulatedSource,
		}, nil
	})
}

// cached reads key through the collector's cache. A failed cache write is
// logged and the loaded value is still returned.
func cached[T any](ctx context.Context, a *DataCollector, key string, load func() (T, error)) (T, error) {
	v, err := cache.GetOrLoad(ctx, a.cache, key, a.ttl, load)
	if errors.Is(err, cache.ErrWrite) {
		a.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return v, nil
	}
	return v, err
}
