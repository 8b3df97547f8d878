// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package predict scores repurposing opportunities and projects market and
// patent-expiry effects. Scores come from deterministic heuristics; an
// optional Model can supply the success probability instead.
package predict

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// Features are the engineered inputs to a success prediction.
type Features struct {
	MarketSizeLog       float64
	CompetitionLevel    float64
	PatentRisk          types.PatentRisk
	ClinicalEvidence    float64
	ExistingIndications int
	TherapyArea         string
}

// Model predicts the probability that a repurposing effort succeeds.
type Model interface {
	PredictSuccess(ctx context.Context, f Features) (float64, error)
}

// Confidence levels attached to a success prediction.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
)

// SuccessRequest describes one repurposing candidate.
type SuccessRequest struct {
	Molecule    string `json:"molecule" yaml:"molecule" jsonschema:"drug molecule name"`
	Indication  string `json:"indication" yaml:"indication" jsonschema:"target indication"`
	TherapyArea string `json:"therapy_area" yaml:"therapy_area" jsonschema:"therapy area such as oncology or diabetes"`

	// MarketSize is in USD millions.
	MarketSize float64 `json:"market_size" yaml:"market_size" jsonschema:"market size in USD millions"`

	// CompetitionLevel is in [0,1].
	CompetitionLevel float64 `json:"competition_level" yaml:"competition_level" jsonschema:"competition level between 0 and 1"`

	PatentRisk string `json:"patent_risk" yaml:"patent_risk" jsonschema:"patent risk: low, medium, or high"`

	// ClinicalEvidence is evidence strength in [0,1].
	ClinicalEvidence float64 `json:"clinical_evidence" yaml:"clinical_evidence" jsonschema:"clinical evidence strength between 0 and 1"`

	ExistingIndications int `json:"existing_indications" yaml:"existing_indications" jsonschema:"number of approved indications"`
}

// DefaultSuccessRequest returns the neutral inputs used when a field is not
// supplied.
func DefaultSuccessRequest() SuccessRequest {
	return SuccessRequest{
		CompetitionLevel:    0.5,
		PatentRisk:          string(types.PatentRiskMedium),
		ClinicalEvidence:    0.5,
		ExistingIndications: 1,
	}
}

// SuccessPrediction is the scored outcome for a SuccessRequest.
type SuccessPrediction struct {
	SuccessProbability float64  `json:"success_probability" yaml:"success_probability"`
	Confidence         string   `json:"confidence" yaml:"confidence"`
	KeyFactors         []string `json:"key_factors" yaml:"key_factors"`
	Recommendation     string   `json:"recommendation" yaml:"recommendation"`
	RiskFactors        []string `json:"risk_factors" yaml:"risk_factors"`
	Molecule           string   `json:"molecule" yaml:"molecule"`
	Indication         string   `json:"indication" yaml:"indication"`
	TherapyArea        string   `json:"therapy_area" yaml:"therapy_area"`
}

// Predictor runs predictions. The zero value uses heuristics only.
type Predictor struct {
	// Model, when set, supplies success probabilities. A model error falls
	// back to the heuristic.
	Model  Model
	Logger *zap.Logger
}

func (p *Predictor) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// FeaturesFor engineers model features from a request. An empty patent
// risk is read as medium.
func FeaturesFor(req SuccessRequest) Features {
	return Features{
		MarketSizeLog:       math.Log1p(math.Max(req.MarketSize, 0)),
		CompetitionLevel:    req.CompetitionLevel,
		PatentRisk:          normalizeRisk(req.PatentRisk),
		ClinicalEvidence:    req.ClinicalEvidence,
		ExistingIndications: req.ExistingIndications,
		TherapyArea:         strings.ToLower(strings.TrimSpace(req.TherapyArea)),
	}
}

// RepurposingSuccess scores the probability that repurposing the molecule
// for the indication succeeds.
func (p *Predictor) RepurposingSuccess(ctx context.Context, req SuccessRequest) (SuccessPrediction, error) {
	if err := validateSuccess(req); err != nil {
		return SuccessPrediction{}, err
	}
	f := FeaturesFor(req)

	probability := HeuristicSuccess(f)
	confidence := ConfidenceMedium
	if p.Model != nil {
		v, err := p.Model.PredictSuccess(ctx, f)
		switch {
		case err != nil:
			p.logger().Warn("model prediction failed, using heuristic", zap.Error(err))
		case v < 0 || v > 1 || math.IsNaN(v):
			p.logger().Warn("model returned out-of-range probability, using heuristic", zap.Float64("probability", v))
		default:
			probability = v
			confidence = ConfidenceHigh
		}
	}

	return SuccessPrediction{
		SuccessProbability: probability,
		Confidence:         confidence,
		KeyFactors:         keyFactors(f),
		Recommendation:     Recommendation(probability),
		RiskFactors:        riskFactors(f),
		Molecule:           req.Molecule,
		Indication:         req.Indication,
		TherapyArea:        req.TherapyArea,
	}, nil
}

func validateSuccess(req SuccessRequest) error {
	if strings.TrimSpace(req.Molecule) == "" {
		return fmt.Errorf("molecule is required")
	}
	if req.CompetitionLevel < 0 || req.CompetitionLevel > 1 {
		return fmt.Errorf("competition level %.2f outside [0,1]", req.CompetitionLevel)
	}
	if req.ClinicalEvidence < 0 || req.ClinicalEvidence > 1 {
		return fmt.Errorf("clinical evidence %.2f outside [0,1]", req.ClinicalEvidence)
	}
	switch normalizeRisk(req.PatentRisk) {
	case types.PatentRiskLow, types.PatentRiskMedium, types.PatentRiskHigh:
	default:
		return fmt.Errorf("unknown patent risk %q", req.PatentRisk)
	}
	return nil
}

func normalizeRisk(s string) types.PatentRisk {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return types.PatentRiskMedium
	}
	return types.PatentRisk(s)
}

// HeuristicSuccess scores features from a 0.5 base: larger markets, lower
// competition, lower patent risk, stronger clinical evidence, a track record
// of approvals, and oncology all add to the score. The result is clamped to
// [0,1].
func HeuristicSuccess(f Features) float64 {
	score := 0.5

	switch {
	case f.MarketSizeLog > 10:
		score += 0.15
	case f.MarketSizeLog > 8:
		score += 0.10
	case f.MarketSizeLog > 6:
		score += 0.05
	}

	switch {
	case f.CompetitionLevel < 0.3:
		score += 0.15
	case f.CompetitionLevel < 0.5:
		score += 0.10
	case f.CompetitionLevel > 0.7:
		score -= 0.10
	}

	switch f.PatentRisk {
	case types.PatentRiskLow:
		score += 0.10
	case types.PatentRiskHigh:
		score -= 0.15
	}

	score += f.ClinicalEvidence * 0.15

	switch {
	case f.ExistingIndications > 2:
		score += 0.05
	case f.ExistingIndications > 1:
		score += 0.03
	}

	if f.TherapyArea == "oncology" {
		score += 0.05
	}

	return math.Min(1, math.Max(0, score))
}

func keyFactors(f Features) []string {
	var factors []string
	switch {
	case f.MarketSizeLog > 10:
		factors = append(factors, "Large market opportunity")
	case f.MarketSizeLog > 8:
		factors = append(factors, "Moderate market opportunity")
	}
	switch {
	case f.CompetitionLevel < 0.3:
		factors = append(factors, "Low competition")
	case f.CompetitionLevel > 0.7:
		factors = append(factors, "High competition")
	}
	switch f.PatentRisk {
	case types.PatentRiskLow:
		factors = append(factors, "Low patent risk")
	case types.PatentRiskHigh:
		factors = append(factors, "High patent risk")
	}
	switch {
	case f.ClinicalEvidence > 0.7:
		factors = append(factors, "Strong clinical evidence")
	case f.ClinicalEvidence < 0.3:
		factors = append(factors, "Limited clinical evidence")
	}
	if f.ExistingIndications > 2 {
		factors = append(factors, "Proven track record")
	}
	if len(factors) == 0 {
		return []string{"Moderate opportunity across all factors"}
	}
	return factors
}

func riskFactors(f Features) []string {
	risks := []string{}
	if f.PatentRisk == types.PatentRiskHigh {
		risks = append(risks, "High patent risk may limit freedom to operate")
	}
	if f.CompetitionLevel > 0.7 {
		risks = append(risks, "High competition may reduce market share")
	}
	if f.ClinicalEvidence < 0.3 {
		risks = append(risks, "Limited clinical evidence increases regulatory risk")
	}
	if f.MarketSizeLog < 6 {
		risks = append(risks, "Small market size may limit commercial viability")
	}
	return risks
}

// Recommendation maps a success probability to an action band.
func Recommendation(probability float64) string {
	switch {
	case probability > 0.75:
		return "Strong candidate - Highly recommend pursuing this opportunity"
	case probability > 0.60:
		return "Good candidate - Recommend with careful evaluation"
	case probability > 0.45:
		return "Moderate candidate - Further analysis recommended before commitment"
	case probability > 0.30:
		return "Weak candidate - Consider only if strategic fit is strong"
	default:
		return "Low priority - Not recommended unless unique strategic value"
	}
}
