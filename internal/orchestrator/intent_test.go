// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  types.Intent
	}{
		{"repurposed verb", "Can metformin be repurposed for a new indication?", types.IntentDrugRepurposing},
		{"new indication", "Find a new indication for atorvastatin", types.IntentDrugRepurposing},
		{"upper case", "REPURPOSING CANDIDATES FOR LOSARTAN", types.IntentDrugRepurposing},
		{"patent", "Patent landscape for sitagliptin", types.IntentPatentAnalysis},
		{"freedom to operate", "freedom to operate on rivaroxaban formulations", types.IntentPatentAnalysis},
		{"ip inside a word", "What is in the pipeline for statins", types.IntentPatentAnalysis},
		{"fda", "FDA guidance for statins", types.IntentRegulatoryAnalysis},
		{"ema", "EMA requirements for biosimilars", types.IntentRegulatoryAnalysis},
		{"market", "market size for statins", types.IntentMarketAnalysis},
		{"whitespace", "Whitespace in the anticoagulant segment", types.IntentMarketAnalysis},
		{"no keyword", "Tell me about metformin", types.IntentComprehensive},
		{"empty", "", types.IntentComprehensive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  types.Intent
	}{
		{"repurpose beats patent", "repurpose metformin despite the patent", types.IntentDrugRepurposing},
		{"patent beats regulatory", "patent expiry and FDA approval", types.IntentPatentAnalysis},
		{"regulatory beats market", "regulatory hurdles in the EU market", types.IntentRegulatoryAnalysis},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}

func TestClassifyRepurposingAlwaysWinsOverPatent(t *testing.T) {
	for _, rk := range intentRules[0].keywords {
		for _, pk := range intentRules[1].keywords {
			for _, q := range []string{rk + " " + pk, pk + " then " + rk} {
				assert.Equal(t, types.IntentDrugRepurposing, Classify(q), "query %q", q)
			}
		}
	}
}

func TestClassifyAlwaysReturnsValidIntent(t *testing.T) {
	for _, q := range []string{"", "   ", "\xff\xfe", "日本語のクエリ", "12345"} {
		assert.True(t, Classify(q).Valid(), "query %q", q)
	}
}
