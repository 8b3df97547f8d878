// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/repurposing-engine/internal/orchestrator"
	"github.com/pdiddy/repurposing-engine/internal/sources"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// Deps holds the shared collaborators handed to every worker.
type Deps struct {
	// Knowledge backs the internal worker. When nil the internal worker
	// fails each call with ErrNoKnowledgeBase.
	Knowledge Searcher

	// Client is shared by all HTTP sources. Nil builds one from the
	// configured timeout.
	Client *http.Client

	Logger *zap.Logger

	// Cache, when set, wraps every worker except market, which is already
	// computed locally.
	Cache *Cache
}

// Registry builds the six workers from cfg, in the fixed worker table order.
func Registry(cfg types.AppConfig, deps Deps) []orchestrator.Worker {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client := deps.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Sources.Timeout}
	}
	src := cfg.Sources
	max := cfg.Engine.MaxEvidencePerWorker

	var lit []sources.Source
	if src.EnablePubMed {
		lit = append(lit, &sources.PubMed{Client: client, APIKey: src.PubMedAPIKey})
	}
	if src.EnableSemanticScholar {
		lit = append(lit, &sources.SemanticScholar{Client: client, APIKey: src.SemanticScholarAPIKey})
	}
	if src.EnableEuropePMC {
		lit = append(lit, &sources.EuropePMC{Client: client})
	}
	if src.EnableOpenAlex {
		lit = append(lit, &sources.OpenAlex{Client: client, Email: src.OpenAlexEmail})
	}
	if src.EnableArxiv {
		lit = append(lit, &sources.Arxiv{Client: client})
	}

	named := func(name string) *zap.Logger { return logger.With(zap.String("worker", name)) }

	ws := []orchestrator.Worker{
		&Literature{Sources: lit, Config: src, MaxEvidence: max, Logger: named(orchestrator.WorkerLiterature)},
		&Clinical{Source: &sources.ClinicalTrials{Client: client}, Config: src, MaxEvidence: max, Logger: named(orchestrator.WorkerClinical)},
		&Patent{Source: &sources.PatentsView{Client: client, APIKey: src.PatentsViewAPIKey}, Config: src, MaxEvidence: max, Logger: named(orchestrator.WorkerPatent)},
		&Regulatory{Labels: &sources.OpenFDA{Client: client}, Config: src, MaxEvidence: max, Logger: named(orchestrator.WorkerRegulatory)},
		&Market{},
		&Internal{Store: deps.Knowledge, MaxEvidence: max},
	}

	if deps.Cache != nil {
		for i, w := range ws {
			if w.Name() != orchestrator.WorkerMarket {
				ws[i] = Cached(w, deps.Cache)
			}
		}
	}
	return ws
}
