// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the repurposing-engine
// pipeline: intents, evidence, worker outcomes, provenance records, and the
// final analysis result.
package types

import "time"

// Intent is the coarse category of analytical request inferred from query text.
type Intent string

const (
	IntentDrugRepurposing    Intent = "drug_repurposing"
	IntentPatentAnalysis     Intent = "patent_analysis"
	IntentRegulatoryAnalysis Intent = "regulatory_analysis"
	IntentMarketAnalysis     Intent = "market_analysis"
	IntentComprehensive      Intent = "comprehensive_analysis"
)

// Intents lists every intent in classification priority order, with the
// fallback last.
var Intents = []Intent{
	IntentDrugRepurposing,
	IntentPatentAnalysis,
	IntentRegulatoryAnalysis,
	IntentMarketAnalysis,
	IntentComprehensive,
}

// Valid reports whether i is one of the five known intents.
func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

// PatentRisk categorizes the patent exposure of a candidate.
type PatentRisk string

const (
	PatentRiskLow    PatentRisk = "low"
	PatentRiskMedium PatentRisk = "medium"
	PatentRiskHigh   PatentRisk = "high"
)

// Evidence source types produced by the built-in workers.
const (
	SourceLiterature = "literature"
	SourceTrial      = "clinical_trial"
	SourcePatent     = "patent"
	SourceRegulatory = "regulatory"
	SourceMarket     = "market"
	SourceInternal   = "internal"
)

// EvidenceItem is a single cited fact or document with provenance metadata.
// Items are treated as immutable once a worker has produced them.
type EvidenceItem struct {
	// SourceType tags the provenance class (literature, clinical_trial, patent, ...).
	SourceType string `json:"source_type" yaml:"source_type"`

	// SourceID is the identifier within the source (PMID, NCT number, patent number).
	SourceID string `json:"source_id" yaml:"source_id"`

	// SourceURL links to the source record, when one exists.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	Title    string `json:"title" yaml:"title"`
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// RelevanceScore is in [0,1]; nil when the source gives no ranking signal.
	RelevanceScore *float64 `json:"relevance_score,omitempty" yaml:"relevance_score,omitempty"`

	// ExtractedData carries source-specific structured fields.
	ExtractedData map[string]any `json:"extracted_data,omitempty" yaml:"extracted_data,omitempty"`
}

// Score returns a pointer to v, for populating optional score fields.
func Score(v float64) *float64 {
	return &v
}

// WorkerOutcome is the value a worker returns for one invocation. It holds
// either the success shape (summary, evidence, confidence, metadata) or an
// error marker in Err, never both.
type WorkerOutcome struct {
	Summary    string         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Evidence   []EvidenceItem `json:"evidence,omitempty" yaml:"evidence,omitempty"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Err is the error marker. A non-empty Err means the worker failed.
	Err string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Succeeded builds a success outcome.
func Succeeded(summary string, evidence []EvidenceItem, confidence float64, metadata map[string]any) WorkerOutcome {
	return WorkerOutcome{
		Summary:    summary,
		Evidence:   evidence,
		Confidence: confidence,
		Metadata:   metadata,
	}
}

// Failed builds an error outcome carrying msg.
func Failed(msg string) WorkerOutcome {
	if msg == "" {
		msg = "unknown error"
	}
	return WorkerOutcome{Err: msg}
}

// IsError reports whether the outcome carries an error marker.
func (o WorkerOutcome) IsError() bool {
	return o.Err != ""
}

// WorkerRecord is the provenance record emitted for every dispatched worker.
type WorkerRecord struct {
	Worker        string        `json:"worker" yaml:"worker"`
	StartedAt     time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt    time.Time     `json:"finished_at" yaml:"finished_at"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
	Success       bool          `json:"success" yaml:"success"`
	Error         string        `json:"error,omitempty" yaml:"error,omitempty"`
	EvidenceCount int           `json:"evidence_count" yaml:"evidence_count"`
	Confidence    float64       `json:"confidence" yaml:"confidence"`
}

// Result is the complete output of one pipeline invocation.
type Result struct {
	Response            string         `json:"response" yaml:"response"`
	AgentsUsed          []string       `json:"agents_used" yaml:"agents_used"`
	ConfidenceScore     float64        `json:"confidence_score" yaml:"confidence_score"`
	RegulatoryReadiness *float64       `json:"regulatory_readiness,omitempty" yaml:"regulatory_readiness,omitempty"`
	PatentRisk          PatentRisk     `json:"patent_risk" yaml:"patent_risk"`
	Evidence            []EvidenceItem `json:"evidence" yaml:"evidence"`

	// ReportID stays empty until the reporting collaborator assigns one.
	ReportID string `json:"report_id,omitempty" yaml:"report_id,omitempty"`

	Intent   Intent         `json:"intent" yaml:"intent"`
	Subtasks []string       `json:"subtasks" yaml:"subtasks"`
	Workers  []WorkerRecord `json:"workers,omitempty" yaml:"workers,omitempty"`
}
