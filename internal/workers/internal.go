// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/repurposing-engine/internal/knowledge"
	"github.com/pdiddy/repurposing-engine/internal/orchestrator"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// Searcher finds internal documents. *knowledge.Store implements it.
type Searcher interface {
	Search(ctx context.Context, opts knowledge.SearchOptions) ([]knowledge.Hit, error)
}

// ErrNoKnowledgeBase is returned when the internal worker has no store.
var ErrNoKnowledgeBase = errors.New("internal knowledge base not configured")

const excerptRunes = 500

// Internal searches the organization's own R&D documents.
type Internal struct {
	Store       Searcher
	MaxEvidence int
}

// Name returns the worker name.
func (w *Internal) Name() string { return orchestrator.WorkerInternal }

// Process runs a full-text search over the knowledge base.
func (w *Internal) Process(ctx context.Context, query string, attrs map[string]any) (types.WorkerOutcome, error) {
	if w.Store == nil {
		return types.WorkerOutcome{}, ErrNoKnowledgeBase
	}
	max := w.MaxEvidence
	if max <= 0 {
		max = defaultMaxEvidence
	}
	hits, err := w.Store.Search(ctx, knowledge.SearchOptions{Query: query, MaxResults: max})
	if err != nil {
		return types.WorkerOutcome{}, fmt.Errorf("knowledge search: %w", err)
	}

	evidence := make([]types.EvidenceItem, len(hits))
	for i, h := range hits {
		evidence[i] = types.EvidenceItem{
			SourceType:     types.SourceInternal,
			SourceID:       h.ID,
			Title:          h.Title,
			RelevanceScore: types.Score(h.Score),
			ExtractedData: map[string]any{
				"document_type": string(h.Type),
				"content":       excerpt(h.Content, excerptRunes),
			},
		}
	}

	meta := map[string]any{
		"totalDocuments": len(hits),
		"source":         "internal_knowledge_base",
	}
	return types.Succeeded(internalSummary(hits, query), evidence, confidence(len(hits), 0.05), meta), nil
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func internalSummary(hits []knowledge.Hit, query string) string {
	var b strings.Builder
	b.WriteString("## Internal Knowledge Base Search\n\n")
	if len(hits) == 0 {
		fmt.Fprintf(&b, "No internal documents found for query: %s\n", query)
		return b.String()
	}
	fmt.Fprintf(&b, "Found %d relevant internal documents.\n\n", len(hits))

	var order []types.DocumentType
	byType := make(map[types.DocumentType]int)
	for _, h := range hits {
		if _, ok := byType[h.Type]; !ok {
			order = append(order, h.Type)
		}
		byType[h.Type]++
	}
	b.WriteString("### Documents by Type\n")
	for _, t := range order {
		fmt.Fprintf(&b, "- %s: %d documents\n", t, byType[t])
	}

	top := hits[0]
	b.WriteString("\n### Top Result\n")
	fmt.Fprintf(&b, "- %s (Relevance: %.2f)\n", top.Title, top.Score)
	return b.String()
}
