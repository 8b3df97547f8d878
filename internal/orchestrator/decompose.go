// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import "github.com/pdiddy/repurposing-engine/pkg/types"

// Worker names.
const (
	WorkerLiterature = "literature"
	WorkerClinical   = "clinical"
	WorkerPatent     = "patent"
	WorkerRegulatory = "regulatory"
	WorkerMarket     = "market"
	WorkerInternal   = "internal"
)

// WorkerNames is the fixed worker table.
var WorkerNames = []string{
	WorkerLiterature,
	WorkerClinical,
	WorkerPatent,
	WorkerRegulatory,
	WorkerMarket,
	WorkerInternal,
}

// Subtask names.
const (
	SubtaskLiteratureReview      = "literature_review"
	SubtaskClinicalTrialAnalysis = "clinical_trial_analysis"
	SubtaskPatentLandscape       = "patent_landscape"
	SubtaskRegulatoryPathway     = "regulatory_pathway"
	SubtaskMarketOpportunity     = "market_opportunity"
	SubtaskPatentSearch          = "patent_search"
	SubtaskFreedomToOperate      = "freedom_to_operate"
	SubtaskRegulatoryGuidance    = "regulatory_guidance"
	SubtaskApprovalPathway       = "approval_pathway"
	SubtaskMarketSize            = "market_size"
	SubtaskCompetitionAnalysis   = "competition_analysis"
	SubtaskInternalKnowledge     = "internal_knowledge"
)

var repurposingSubtasks = []string{
	SubtaskLiteratureReview,
	SubtaskClinicalTrialAnalysis,
	SubtaskPatentLandscape,
	SubtaskRegulatoryPathway,
	SubtaskMarketOpportunity,
}

var intentSubtasks = map[types.Intent][]string{
	types.IntentDrugRepurposing:    repurposingSubtasks,
	types.IntentPatentAnalysis:     {SubtaskPatentSearch, SubtaskFreedomToOperate},
	types.IntentRegulatoryAnalysis: {SubtaskRegulatoryGuidance, SubtaskApprovalPathway},
	types.IntentMarketAnalysis:     {SubtaskMarketSize, SubtaskCompetitionAnalysis},
	types.IntentComprehensive:      append(append([]string{}, repurposingSubtasks...), SubtaskInternalKnowledge),
}

var subtaskWorker = map[string]string{
	SubtaskLiteratureReview:      WorkerLiterature,
	SubtaskClinicalTrialAnalysis: WorkerClinical,
	SubtaskPatentLandscape:       WorkerPatent,
	SubtaskPatentSearch:          WorkerPatent,
	SubtaskFreedomToOperate:      WorkerPatent,
	SubtaskRegulatoryPathway:     WorkerRegulatory,
	SubtaskRegulatoryGuidance:    WorkerRegulatory,
	SubtaskApprovalPathway:       WorkerRegulatory,
	SubtaskMarketOpportunity:     WorkerMarket,
	SubtaskMarketSize:            WorkerMarket,
	SubtaskCompetitionAnalysis:   WorkerMarket,
	SubtaskInternalKnowledge:     WorkerInternal,
}

// WorkerFor returns the worker responsible for subtask.
func WorkerFor(subtask string) (string, bool) {
	w, ok := subtaskWorker[subtask]
	return w, ok
}

// Decompose returns the ordered subtasks for intent and the workers they
// require, de-duplicated in first-appearance order. An invalid intent is
// treated as IntentComprehensive. The returned slices are fresh copies.
func Decompose(intent types.Intent) (subtasks []string, workers []string) {
	table, ok := intentSubtasks[intent]
	if !ok {
		table = intentSubtasks[types.IntentComprehensive]
	}
	subtasks = append([]string(nil), table...)

	seen := make(map[string]bool, len(subtasks))
	for _, st := range subtasks {
		w := subtaskWorker[st]
		if seen[w] {
			continue
		}
		seen[w] = true
		workers = append(workers, w)
	}
	return subtasks, workers
}
