// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Recommendations closes every synthesized response.
var Recommendations = []string{
	"- Review evidence sources for detailed information",
	"- Conduct deeper patent analysis if patent risk is high",
	"- Consult regulatory experts for approval pathway",
}

// Synthesize renders the narrative response for st. Sections appear in a
// fixed order: executive summary, one findings section per successful worker
// in completion order, strategic analysis, and recommendations. The
// regulatory readiness line is omitted when st has none.
func Synthesize(st PipelineState) string {
	var parts []string

	parts = append(parts, "## Executive Summary\n")
	parts = append(parts, fmt.Sprintf("Analysis of '%s' completed using %d specialized agents.\n",
		st.Query, len(st.AgentsUsed)))

	for _, r := range st.WorkerResults {
		if r.Outcome.IsError() {
			continue
		}
		parts = append(parts, fmt.Sprintf("\n### %s Agent Findings\n", titleCase(r.Worker)))
		summary := r.Outcome.Summary
		if summary == "" {
			summary = "No summary available."
		}
		parts = append(parts, summary)
	}

	parts = append(parts, "\n### Strategic Analysis\n")
	parts = append(parts, fmt.Sprintf("Confidence Score: %s\n", percent(st.ConfidenceScore)))
	parts = append(parts, fmt.Sprintf("Patent Risk: %s\n", st.PatentRisk))
	if st.RegulatoryReadiness != nil {
		parts = append(parts, fmt.Sprintf("Regulatory Readiness: %s\n", percent(*st.RegulatoryReadiness)))
	}

	parts = append(parts, "\n### Recommendations\n")
	parts = append(parts, "Based on the comprehensive analysis, consider the following next steps:\n")
	for _, rec := range Recommendations {
		parts = append(parts, rec+"\n")
	}

	return strings.Join(parts, "\n")
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// titleCase upper-cases the first letter of each underscore- or
// space-separated word.
func titleCase(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == ' ' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
