// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package predict

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// MaxForecastYears bounds a market forecast horizon.
const MaxForecastYears = 30

// ForecastRequest describes a market to project.
type ForecastRequest struct {
	Molecule   string `json:"molecule" yaml:"molecule" jsonschema:"drug molecule name"`
	Indication string `json:"indication" yaml:"indication" jsonschema:"target indication"`

	// CurrentMarketSize is in USD millions.
	CurrentMarketSize float64 `json:"current_market_size" yaml:"current_market_size" jsonschema:"current market size in USD millions"`

	// CAGR is the compound annual growth rate as a percentage.
	CAGR float64 `json:"cagr" yaml:"cagr" jsonschema:"compound annual growth rate in percent"`

	Years      int     `json:"years" yaml:"years" jsonschema:"forecast horizon in years"`
	Volatility float64 `json:"volatility" yaml:"volatility" jsonschema:"market volatility between 0 and 1"`
}

// ForecastYear is one projected year.
type ForecastYear struct {
	Year           int     `json:"year" yaml:"year"`
	CalendarYear   int     `json:"calendar_year" yaml:"calendar_year"`
	ForecastedSize float64 `json:"forecasted_size" yaml:"forecasted_size"`
	LowerBound     float64 `json:"lower_bound" yaml:"lower_bound"`
	UpperBound     float64 `json:"upper_bound" yaml:"upper_bound"`
}

// Forecast is a market size projection.
type Forecast struct {
	Molecule            string         `json:"molecule" yaml:"molecule"`
	Indication          string         `json:"indication" yaml:"indication"`
	CurrentSize         float64        `json:"current_size" yaml:"current_size"`
	CAGR                float64        `json:"cagr" yaml:"cagr"`
	Years               []ForecastYear `json:"forecast" yaml:"forecast"`
	ProjectedSize       float64        `json:"projected_size" yaml:"projected_size"`
	TotalGrowthPercent  float64        `json:"total_growth_percent" yaml:"total_growth_percent"`
	AverageAnnualGrowth float64        `json:"average_annual_growth" yaml:"average_annual_growth"`
}

// MarketForecast projects market size by compound growth. Each year's
// bounds are the projection scaled by 1 ± 1.5·volatility, with the lower
// bound floored at zero.
func MarketForecast(req ForecastRequest, now time.Time) (Forecast, error) {
	if req.Years == 0 {
		req.Years = 5
	}
	switch {
	case req.Years < 0 || req.Years > MaxForecastYears:
		return Forecast{}, fmt.Errorf("forecast years %d outside [1,%d]", req.Years, MaxForecastYears)
	case req.CurrentMarketSize < 0:
		return Forecast{}, fmt.Errorf("current market size must not be negative")
	case req.Volatility < 0 || req.Volatility > 1:
		return Forecast{}, fmt.Errorf("volatility %.2f outside [0,1]", req.Volatility)
	case req.CAGR <= -100:
		return Forecast{}, fmt.Errorf("CAGR %.1f%% would shrink the market below zero", req.CAGR)
	}

	f := Forecast{
		Molecule:    req.Molecule,
		Indication:  req.Indication,
		CurrentSize: req.CurrentMarketSize,
		CAGR:        req.CAGR,
	}
	growth := 1 + req.CAGR/100
	spread := req.Volatility * 1.5
	for y := 1; y <= req.Years; y++ {
		size := req.CurrentMarketSize * math.Pow(growth, float64(y))
		f.Years = append(f.Years, ForecastYear{
			Year:           y,
			CalendarYear:   now.Year() + y,
			ForecastedSize: size,
			LowerBound:     math.Max(0, size*(1-spread)),
			UpperBound:     size * (1 + spread),
		})
	}

	f.ProjectedSize = f.Years[len(f.Years)-1].ForecastedSize
	if req.CurrentMarketSize > 0 {
		f.TotalGrowthPercent = (f.ProjectedSize/req.CurrentMarketSize - 1) * 100
	}
	f.AverageAnnualGrowth = f.TotalGrowthPercent / float64(req.Years)
	return f, nil
}

// genericPenetration is the generic share of volume in the years after
// patent expiry.
var genericPenetration = []struct {
	year  int
	share float64
}{
	{1, 0.15},
	{2, 0.40},
	{3, 0.60},
	{5, 0.80},
}

// priceErosion is the typical price reduction generic entry causes.
const priceErosion = 0.85

// ExpiryRequest describes a patent whose expiry is modeled.
type ExpiryRequest struct {
	Molecule string `json:"molecule" yaml:"molecule" jsonschema:"drug molecule name"`

	// ExpiryDate is YYYY-MM-DD.
	ExpiryDate string `json:"expiry_date" yaml:"expiry_date" jsonschema:"patent expiry date as YYYY-MM-DD"`

	CurrentMarketSize float64 `json:"current_market_size" yaml:"current_market_size" jsonschema:"current market size in USD millions"`
}

// ExpiryScenario is the market shape a number of years after expiry.
type ExpiryScenario struct {
	YearsFromExpiry        int     `json:"years_from_expiry" yaml:"years_from_expiry"`
	GenericPenetration     float64 `json:"generic_penetration" yaml:"generic_penetration"`
	BrandRevenue           float64 `json:"brand_revenue" yaml:"brand_revenue"`
	GenericRevenue         float64 `json:"generic_revenue" yaml:"generic_revenue"`
	TotalMarket            float64 `json:"total_market" yaml:"total_market"`
	MarketShrinkagePercent float64 `json:"market_shrinkage_percent" yaml:"market_shrinkage_percent"`
}

// ExpiryImpact is the modeled effect of a patent expiry.
type ExpiryImpact struct {
	Molecule          string           `json:"molecule" yaml:"molecule"`
	ExpiryDate        string           `json:"expiry_date" yaml:"expiry_date"`
	YearsUntilExpiry  float64          `json:"years_until_expiry" yaml:"years_until_expiry"`
	CurrentMarketSize float64          `json:"current_market_size" yaml:"current_market_size"`
	Scenarios         []ExpiryScenario `json:"scenarios" yaml:"scenarios"`
	Recommendation    string           `json:"recommendation" yaml:"recommendation"`
}

// PatentExpiryImpact models brand and generic revenue at 1, 2, 3, and 5
// years after expiry. Past expiry dates count as zero years away.
func PatentExpiryImpact(req ExpiryRequest, now time.Time) (ExpiryImpact, error) {
	expiry, err := time.Parse("2006-01-02", strings.TrimSpace(req.ExpiryDate))
	if err != nil {
		return ExpiryImpact{}, fmt.Errorf("parsing expiry date %q: want YYYY-MM-DD", req.ExpiryDate)
	}
	if req.CurrentMarketSize < 0 {
		return ExpiryImpact{}, fmt.Errorf("current market size must not be negative")
	}

	years := expiry.Sub(now).Hours() / 24 / 365.25
	if years < 0 {
		years = 0
	}

	out := ExpiryImpact{
		Molecule:          req.Molecule,
		ExpiryDate:        expiry.Format("2006-01-02"),
		YearsUntilExpiry:  years,
		CurrentMarketSize: req.CurrentMarketSize,
		Recommendation:    expiryRecommendation(years),
	}
	size := req.CurrentMarketSize
	for _, gp := range genericPenetration {
		brand := size * (1 - gp.share) * (1 - priceErosion*gp.share)
		generic := size * gp.share * (1 - priceErosion)
		total := brand + generic
		var shrinkage float64
		if size > 0 {
			shrinkage = (size - total) / size * 100
		}
		out.Scenarios = append(out.Scenarios, ExpiryScenario{
			YearsFromExpiry:        gp.year,
			GenericPenetration:     gp.share,
			BrandRevenue:           brand,
			GenericRevenue:         generic,
			TotalMarket:            total,
			MarketShrinkagePercent: shrinkage,
		})
	}
	return out, nil
}

func expiryRecommendation(years float64) string {
	switch {
	case years > 5:
		return "Patent protection secure - Good time for market expansion"
	case years > 3:
		return "Prepare for patent expiry - Consider lifecycle management strategies"
	case years > 1:
		return "Patent expiry imminent - Implement generic competition strategies"
	default:
		return "Patent expired - Focus on differentiation and cost leadership"
	}
}
