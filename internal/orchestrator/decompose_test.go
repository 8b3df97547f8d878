// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

func TestDecompose(t *testing.T) {
	repurposing := []string{
		"literature_review", "clinical_trial_analysis", "patent_landscape",
		"regulatory_pathway", "market_opportunity",
	}

	tests := []struct {
		intent       types.Intent
		wantSubtasks []string
		wantWorkers  []string
	}{
		{
			intent:       types.IntentDrugRepurposing,
			wantSubtasks: repurposing,
			wantWorkers:  []string{"literature", "clinical", "patent", "regulatory", "market"},
		},
		{
			intent:       types.IntentPatentAnalysis,
			wantSubtasks: []string{"patent_search", "freedom_to_operate"},
			wantWorkers:  []string{"patent"},
		},
		{
			intent:       types.IntentRegulatoryAnalysis,
			wantSubtasks: []string{"regulatory_guidance", "approval_pathway"},
			wantWorkers:  []string{"regulatory"},
		},
		{
			intent:       types.IntentMarketAnalysis,
			wantSubtasks: []string{"market_size", "competition_analysis"},
			wantWorkers:  []string{"market"},
		},
		{
			intent:       types.IntentComprehensive,
			wantSubtasks: append(slices.Clone(repurposing), "internal_knowledge"),
			wantWorkers:  []string{"literature", "clinical", "patent", "regulatory", "market", "internal"},
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			subtasks, workers := Decompose(tt.intent)
			if diff := cmp.Diff(tt.wantSubtasks, subtasks); diff != "" {
				t.Errorf("subtasks mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantWorkers, workers); diff != "" {
				t.Errorf("workers mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecomposeWorkersAreValidAndUnique(t *testing.T) {
	for _, intent := range types.Intents {
		subtasks, workers := Decompose(intent)
		require.NotEmpty(t, subtasks, intent)
		require.NotEmpty(t, workers, intent)

		seen := map[string]bool{}
		for _, w := range workers {
			assert.Contains(t, WorkerNames, w, "intent %s", intent)
			assert.False(t, seen[w], "intent %s lists %s twice", intent, w)
			seen[w] = true
		}
		for _, st := range subtasks {
			w, ok := WorkerFor(st)
			require.True(t, ok, "subtask %s has no worker", st)
			assert.True(t, seen[w], "worker %s for subtask %s missing from set", w, st)
		}
	}
}

func TestDecomposeReturnsCopies(t *testing.T) {
	subtasks, workers := Decompose(types.IntentDrugRepurposing)
	subtasks[0] = "mutated"
	workers[0] = "mutated"

	again, againWorkers := Decompose(types.IntentDrugRepurposing)
	assert.Equal(t, "literature_review", again[0])
	assert.Equal(t, "literature", againWorkers[0])

	comprehensive, _ := Decompose(types.IntentComprehensive)
	assert.Equal(t, "literature_review", comprehensive[0])
}

func TestDecomposeUnknownIntentFallsBackToComprehensive(t *testing.T) {
	_, workers := Decompose(types.Intent("bogus"))
	assert.Len(t, workers, 6)
}
