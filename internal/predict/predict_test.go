// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package predict

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

type stubModel struct {
	p   float64
	err error
}

func (m stubModel) PredictSuccess(context.Context, Features) (float64, error) { return m.p, m.err }

func TestHeuristicSuccess(t *testing.T) {
	tests := []struct {
		name string
		f    Features
		want float64
	}{
		{
			name: "neutral",
			f:    FeaturesFor(SuccessRequest{Molecule: "m", CompetitionLevel: 0.5, ClinicalEvidence: 0.5, ExistingIndications: 1}),
			// 0.5 base + 0.075 evidence
			want: 0.575,
		},
		{
			name: "strong oncology candidate clamps at one",
			f: FeaturesFor(SuccessRequest{
				Molecule: "metformin", TherapyArea: "Oncology", MarketSize: 50000,
				CompetitionLevel: 0.1, PatentRisk: "LOW", ClinicalEvidence: 1, ExistingIndications: 3,
			}),
			want: 1,
		},
		{
			name: "weak candidate",
			f: FeaturesFor(SuccessRequest{
				Molecule: "m", MarketSize: 0, CompetitionLevel: 0.9, PatentRisk: "high", ClinicalEvidence: 0,
			}),
			// 0.5 - 0.10 - 0.15
			want: 0.25,
		},
		{
			name: "moderate market and two indications",
			f: FeaturesFor(SuccessRequest{
				Molecule: "m", MarketSize: 5000, CompetitionLevel: 0.4, PatentRisk: "medium", ExistingIndications: 2,
			}),
			// 0.5 + 0.10 market + 0.10 competition + 0.03 indications
			want: 0.73,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, HeuristicSuccess(tt.f), 1e-9)
		})
	}
}

func TestFeaturesFor(t *testing.T) {
	f := FeaturesFor(SuccessRequest{MarketSize: -10, PatentRisk: "", TherapyArea: " Diabetes "})
	assert.Zero(t, f.MarketSizeLog)
	assert.Equal(t, types.PatentRiskMedium, f.PatentRisk)
	assert.Equal(t, "diabetes", f.TherapyArea)

	f = FeaturesFor(SuccessRequest{MarketSize: math.E - 1})
	assert.InDelta(t, 1, f.MarketSizeLog, 1e-9)
}

func TestRepurposingSuccess_Heuristic(t *testing.T) {
	p := &Predictor{}
	req := DefaultSuccessRequest()
	req.Molecule = "metformin"
	req.Indication = "breast cancer"
	req.TherapyArea = "oncology"
	req.MarketSize = 25000
	req.PatentRisk = "low"

	got, err := p.RepurposingSuccess(context.Background(), req)
	require.NoError(t, err)

	// 0.5 + 0.15 market + 0.10 low risk + 0.075 evidence + 0.05 oncology
	assert.InDelta(t, 0.875, got.SuccessProbability, 1e-9)
	assert.Equal(t, ConfidenceMedium, got.Confidence)
	assert.Equal(t, []string{"Large market opportunity", "Low patent risk"}, got.KeyFactors)
	assert.Empty(t, got.RiskFactors)
	assert.NotNil(t, got.RiskFactors)
	assert.Equal(t, "Strong candidate - Highly recommend pursuing this opportunity", got.Recommendation)
	assert.Equal(t, "metformin", got.Molecule)
	assert.Equal(t, "breast cancer", got.Indication)
}

func TestRepurposingSuccess_RiskFactors(t *testing.T) {
	got, err := (&Predictor{}).RepurposingSuccess(context.Background(), SuccessRequest{
		Molecule: "m", CompetitionLevel: 0.8, PatentRisk: "high", ClinicalEvidence: 0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"High patent risk may limit freedom to operate",
		"High competition may reduce market share",
		"Limited clinical evidence increases regulatory risk",
		"Small market size may limit commercial viability",
	}, got.RiskFactors)
	assert.Equal(t, []string{"High competition", "High patent risk", "Limited clinical evidence"}, got.KeyFactors)
}

func TestRepurposingSuccess_DefaultKeyFactor(t *testing.T) {
	got, err := (&Predictor{}).RepurposingSuccess(context.Background(), SuccessRequest{
		Molecule: "m", CompetitionLevel: 0.5, ClinicalEvidence: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Moderate opportunity across all factors"}, got.KeyFactors)
}

func TestRepurposingSuccess_Model(t *testing.T) {
	req := SuccessRequest{Molecule: "m", CompetitionLevel: 0.5, ClinicalEvidence: 0.5}

	got, err := (&Predictor{Model: stubModel{p: 0.42}}).RepurposingSuccess(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0.42, got.SuccessProbability)
	assert.Equal(t, ConfidenceHigh, got.Confidence)
	assert.Equal(t, "Weak candidate - Consider only if strategic fit is strong", got.Recommendation)
}

func TestRepurposingSuccess_ModelFallback(t *testing.T) {
	req := SuccessRequest{Molecule: "m", CompetitionLevel: 0.5, ClinicalEvidence: 0.5}

	for name, m := range map[string]Model{
		"error":        stubModel{err: errors.New("model file missing")},
		"out of range": stubModel{p: 1.7},
		"nan":          stubModel{p: math.NaN()},
	} {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			p := &Predictor{Model: m, Logger: zap.New(core)}

			got, err := p.RepurposingSuccess(context.Background(), req)
			require.NoError(t, err)
			assert.InDelta(t, 0.575, got.SuccessProbability, 1e-9)
			assert.Equal(t, ConfidenceMedium, got.Confidence)
			assert.Equal(t, 1, logs.Len())
		})
	}
}

func TestRepurposingSuccess_Validation(t *testing.T) {
	p := &Predictor{}
	for name, req := range map[string]SuccessRequest{
		"missing molecule":    {CompetitionLevel: 0.5},
		"competition range":   {Molecule: "m", CompetitionLevel: 1.5},
		"evidence range":      {Molecule: "m", ClinicalEvidence: -0.1},
		"unknown patent risk": {Molecule: "m", PatentRisk: "extreme"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := p.RepurposingSuccess(context.Background(), req)
			assert.Error(t, err)
		})
	}
}

func TestRecommendation(t *testing.T) {
	assert.Contains(t, Recommendation(0.8), "Strong candidate")
	assert.Contains(t, Recommendation(0.75), "Good candidate")
	assert.Contains(t, Recommendation(0.5), "Moderate candidate")
	assert.Contains(t, Recommendation(0.31), "Weak candidate")
	assert.Contains(t, Recommendation(0.3), "Low priority")
}

var now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestMarketForecast(t *testing.T) {
	f, err := MarketForecast(ForecastRequest{
		Molecule: "metformin", Indication: "oncology",
		CurrentMarketSize: 1000, CAGR: 10, Years: 3, Volatility: 0.1,
	}, now)
	require.NoError(t, err)

	require.Len(t, f.Years, 3)
	first := f.Years[0]
	assert.Equal(t, 1, first.Year)
	assert.Equal(t, 2027, first.CalendarYear)
	assert.InDelta(t, 1100, first.ForecastedSize, 1e-9)
	assert.InDelta(t, 935, first.LowerBound, 1e-9)
	assert.InDelta(t, 1265, first.UpperBound, 1e-9)

	assert.InDelta(t, 1331, f.ProjectedSize, 1e-9)
	assert.InDelta(t, 33.1, f.TotalGrowthPercent, 1e-9)
	assert.InDelta(t, 33.1/3, f.AverageAnnualGrowth, 1e-9)
}

func TestMarketForecast_Deterministic(t *testing.T) {
	req := ForecastRequest{CurrentMarketSize: 500, CAGR: 7.5, Volatility: 0.3}
	a, err := MarketForecast(req, now)
	require.NoError(t, err)
	b, err := MarketForecast(req, now)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a.Years, 5, "zero years defaults to five")
}

func TestMarketForecast_LowerBoundFloor(t *testing.T) {
	f, err := MarketForecast(ForecastRequest{CurrentMarketSize: 100, Years: 1, Volatility: 0.9}, now)
	require.NoError(t, err)
	assert.Zero(t, f.Years[0].LowerBound)
	assert.InDelta(t, 235, f.Years[0].UpperBound, 1e-9)
}

func TestMarketForecast_ZeroMarket(t *testing.T) {
	f, err := MarketForecast(ForecastRequest{CurrentMarketSize: 0, CAGR: 20, Years: 2}, now)
	require.NoError(t, err)
	assert.Zero(t, f.ProjectedSize)
	assert.Zero(t, f.TotalGrowthPercent)
}

func TestMarketForecast_Validation(t *testing.T) {
	for name, req := range map[string]ForecastRequest{
		"negative years":   {Years: -1},
		"too many years":   {Years: MaxForecastYears + 1},
		"negative market":  {CurrentMarketSize: -5},
		"volatility range": {Volatility: 2},
		"collapse":         {CAGR: -100},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := MarketForecast(req, now)
			assert.Error(t, err)
		})
	}
}

func TestPatentExpiryImpact(t *testing.T) {
	got, err := PatentExpiryImpact(ExpiryRequest{
		Molecule: "metformin", ExpiryDate: "2030-01-01", CurrentMarketSize: 1000,
	}, now)
	require.NoError(t, err)

	assert.InDelta(t, 4.0, got.YearsUntilExpiry, 0.01)
	assert.Equal(t, "Prepare for patent expiry - Consider lifecycle management strategies", got.Recommendation)
	require.Len(t, got.Scenarios, 4)

	var years []int
	for _, s := range got.Scenarios {
		years = append(years, s.YearsFromExpiry)
	}
	assert.Equal(t, []int{1, 2, 3, 5}, years)

	y1 := got.Scenarios[0]
	// brand: 1000 * 0.85 * (1 - 0.85*0.15); generic: 1000 * 0.15 * 0.15
	assert.InDelta(t, 741.625, y1.BrandRevenue, 1e-6)
	assert.InDelta(t, 22.5, y1.GenericRevenue, 1e-6)
	assert.InDelta(t, 764.125, y1.TotalMarket, 1e-6)
	assert.InDelta(t, 23.5875, y1.MarketShrinkagePercent, 1e-6)
}

func TestPatentExpiryImpact_Expired(t *testing.T) {
	got, err := PatentExpiryImpact(ExpiryRequest{ExpiryDate: "2001-06-30", CurrentMarketSize: 0}, now)
	require.NoError(t, err)
	assert.Zero(t, got.YearsUntilExpiry)
	assert.Equal(t, "Patent expired - Focus on differentiation and cost leadership", got.Recommendation)
	assert.Zero(t, got.Scenarios[0].MarketShrinkagePercent)
}

func TestPatentExpiryImpact_Bands(t *testing.T) {
	cases := map[string]string{
		"2033-01-01": "Patent protection secure",
		"2028-06-01": "Patent expiry imminent",
	}
	for date, want := range cases {
		got, err := PatentExpiryImpact(ExpiryRequest{ExpiryDate: date, CurrentMarketSize: 10}, now)
		require.NoError(t, err)
		assert.Contains(t, got.Recommendation, want, date)
	}
}

func TestPatentExpiryImpact_Errors(t *testing.T) {
	_, err := PatentExpiryImpact(ExpiryRequest{ExpiryDate: "01/02/2030"}, now)
	assert.ErrorContains(t, err, "YYYY-MM-DD")

	_, err = PatentExpiryImpact(ExpiryRequest{ExpiryDate: "2030-01-01", CurrentMarketSize: -1}, now)
	assert.Error(t, err)
}
