// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"encoding/json"
	"math"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// Metadata keys read from worker outcomes.
const (
	MetaActivePatents  = "activePatents"
	MetaExpiringSoon   = "expiringSoon"
	MetaReadinessScore = "readinessScore"
)

// DefaultReadiness is used when the regulatory worker is absent, failed, or
// reported no readiness score.
const DefaultReadiness = 0.5

// Aggregation holds the values derived from a set of worker results.
type Aggregation struct {
	Evidence            []types.EvidenceItem
	AgentsUsed          []string
	ConfidenceScore     float64
	PatentRisk          types.PatentRisk
	RegulatoryReadiness float64
}

// Aggregate merges worker results, in the order given, into evidence, the
// list of successful workers, and the derived scores. It never fails and
// keeps no state between calls.
func Aggregate(results []WorkerResult) Aggregation {
	agg := Aggregation{
		Evidence:            []types.EvidenceItem{},
		AgentsUsed:          []string{},
		PatentRisk:          types.PatentRiskLow,
		RegulatoryReadiness: DefaultReadiness,
	}

	for _, r := range results {
		if r.Outcome.IsError() {
			continue
		}
		agg.AgentsUsed = append(agg.AgentsUsed, r.Worker)
		agg.Evidence = append(agg.Evidence, r.Outcome.Evidence...)

		switch r.Worker {
		case WorkerPatent:
			agg.PatentRisk = PatentRiskFrom(r.Outcome.Metadata)
		case WorkerRegulatory:
			agg.RegulatoryReadiness = floatMeta(r.Outcome.Metadata, MetaReadinessScore, DefaultReadiness)
		}
	}

	agg.ConfidenceScore = ConfidenceScore(len(agg.Evidence), len(agg.AgentsUsed))
	return agg
}

// ConfidenceScore bands evidence volume and worker diversity into a coarse score.
func ConfidenceScore(evidence, agents int) float64 {
	switch {
	case evidence > 10 && agents >= 3:
		return 0.9
	case evidence > 5 && agents >= 2:
		return 0.7
	case evidence > 0:
		return 0.5
	default:
		return 0.3
	}
}

// PatentRiskFrom derives the patent risk from patent worker metadata.
func PatentRiskFrom(meta map[string]any) types.PatentRisk {
	if intMeta(meta, MetaActivePatents) > 0 {
		return types.PatentRiskHigh
	}
	if expiring, ok := meta[MetaExpiringSoon].(bool); ok && expiring {
		return types.PatentRiskMedium
	}
	return types.PatentRiskLow
}

// intMeta reads an integer metadata value. Values decoded from JSON or YAML
// may arrive as any numeric kind; anything else yields 0.
func intMeta(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil {
			return int(f)
		}
	}
	return 0
}

// floatMeta reads a float metadata value, returning def when the key is
// missing, non-numeric, or NaN.
func floatMeta(meta map[string]any, key string, def float64) float64 {
	var f float64
	switch v := meta[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return def
		}
		f = n
	default:
		return def
	}
	if math.IsNaN(f) {
		return def
	}
	return f
}
