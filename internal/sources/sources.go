// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources queries public biomedical, patent, and regulatory APIs and
// returns their records as evidence items.
package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// Source searches a single upstream API. Each source (PubMed, Semantic
// Scholar, ClinicalTrials.gov, ...) implements this interface.
type Source interface {
	Name() string
	Search(ctx context.Context, q Query, cfg types.SourcesConfig) ([]types.EvidenceItem, error)
}

// Query holds the search parameters shared by all sources.
type Query struct {
	// Text is the user's free-text question.
	Text string

	// Molecule is the recognized drug name, if any.
	Molecule string
}

// Terms returns the search string sent upstream: the molecule followed by
// the question text.
func (q Query) Terms() string {
	return strings.Join(strings.Fields(q.Molecule+" "+q.Text), " ")
}

// IsEmpty reports whether the query contains no searchable terms.
func (q Query) IsEmpty() bool {
	return q.Terms() == ""
}

// Output holds merged evidence and per-source errors.
type Output struct {
	Evidence     []types.EvidenceItem
	DupsRemoved  int
	SourceErrors []string
	// Counts maps source name to the number of items it returned.
	Counts map[string]int
}

// SearchAll fans the query out to all sources concurrently and merges the
// results in source order. A failing source is logged and recorded in
// SourceErrors; the others still contribute.
func SearchAll(ctx context.Context, q Query, srcs []Source, cfg types.SourcesConfig, logger *zap.Logger) (Output, error) {
	if q.IsEmpty() {
		return Output{}, fmt.Errorf("query is empty")
	}
	if len(srcs) == 0 {
		return Output{}, fmt.Errorf("no sources configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	type sourceResult struct {
		items []types.EvidenceItem
		err   error
	}

	results := make([]sourceResult, len(srcs))
	var wg sync.WaitGroup
	for i, s := range srcs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := s.Search(ctx, q, cfg)
			results[i] = sourceResult{items: items, err: err}
		}()
	}
	wg.Wait()

	out := Output{Counts: make(map[string]int, len(srcs))}
	var all []types.EvidenceItem
	for i, r := range results {
		name := srcs[i].Name()
		if r.err != nil {
			out.SourceErrors = append(out.SourceErrors, fmt.Sprintf("%s: %v", name, r.err))
			logger.Warn("source failed", zap.String("source", name), zap.Error(r.err))
			continue
		}
		out.Counts[name] = len(r.items)
		all = append(all, r.items...)
	}

	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	out.Evidence, out.DupsRemoved = Deduplicate(all)
	return out, nil
}

// Deduplicate drops items that repeat an earlier item's identifier or
// normalized title, keeping the first occurrence and filling its empty
// fields from the duplicate.
func Deduplicate(items []types.EvidenceItem) ([]types.EvidenceItem, int) {
	seen := make(map[string]int)
	var deduped []types.EvidenceItem
	removed := 0

	for _, it := range items {
		keys := dedupKeys(it)
		if idx, ok := firstSeen(seen, keys); ok {
			mergeInto(&deduped[idx], it)
			removed++
			continue
		}
		idx := len(deduped)
		deduped = append(deduped, it)
		for _, k := range keys {
			seen[k] = idx
		}
	}
	return deduped, removed
}

func firstSeen(seen map[string]int, keys []string) (int, bool) {
	for _, k := range keys {
		if idx, ok := seen[k]; ok {
			return idx, true
		}
	}
	return 0, false
}

// dedupKeys returns identifier keys (DOI, PMID, source id) and a title key.
func dedupKeys(it types.EvidenceItem) []string {
	var keys []string
	if doi, ok := it.ExtractedData["doi"].(string); ok && doi != "" {
		keys = append(keys, "doi:"+strings.ToLower(doi))
	}
	if pmid, ok := it.ExtractedData["pmid"].(string); ok && pmid != "" {
		keys = append(keys, "pmid:"+pmid)
	}
	if it.SourceID != "" {
		keys = append(keys, "id:"+it.SourceType+":"+it.SourceID)
	}
	if t := normalizeTitle(it.Title); t != "" {
		keys = append(keys, "title:"+t)
	}
	return keys
}

// mergeInto fills empty fields of dst from src and keeps the higher score.
func mergeInto(dst *types.EvidenceItem, src types.EvidenceItem) {
	if dst.Abstract == "" && src.Abstract != "" {
		dst.Abstract = src.Abstract
	}
	if dst.SourceURL == "" && src.SourceURL != "" {
		dst.SourceURL = src.SourceURL
	}
	if src.RelevanceScore != nil && (dst.RelevanceScore == nil || *src.RelevanceScore > *dst.RelevanceScore) {
		dst.RelevanceScore = types.Score(*src.RelevanceScore)
	}
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// RelevanceScore returns the fraction of distinct query words that also
// appear in text. Both sides are lower-cased and split on whitespace.
func RelevanceScore(text, query string) float64 {
	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return 0
	}
	textWords := wordSet(text)
	hits := 0
	for w := range queryWords {
		if textWords[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(queryWords))
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}

// positionScore scores a result by its rank in a relevance-ordered list:
// 1.0 for the first result down to 0.1 for the last.
func positionScore(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}

// maxResults clamps the configured result limit to [1, ceiling].
func maxResults(cfg types.SourcesConfig, ceiling int) int {
	n := cfg.MaxResults
	if n <= 0 {
		n = 20
	}
	if n > ceiling {
		n = ceiling
	}
	return n
}

// baseHeader returns the headers every source sends.
func baseHeader(cfg types.SourcesConfig) http.Header {
	h := http.Header{}
	if cfg.UserAgent != "" {
		h.Set("User-Agent", cfg.UserAgent)
	}
	return h
}

// client returns c, or a client using the configured timeout when c is nil.
func client(c *http.Client, cfg types.SourcesConfig) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: cfg.Timeout}
}
