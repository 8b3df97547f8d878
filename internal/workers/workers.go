// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workers implements the six evidence workers the orchestrator
// dispatches: literature, clinical, patent, regulatory, market, and
// internal knowledge. Each worker degrades on its own when an upstream
// source fails; only a cancelled context or missing configuration turns
// into a worker error.
package workers

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// AttrMolecule is the request attribute that overrides molecule detection.
const AttrMolecule = "molecule"

// Molecules is the list of drug names recognized in query text, in match
// priority order.
var Molecules = []string{
	"pembrolizumab", "sitagliptin", "rivaroxaban", "metformin",
	"atorvastatin", "lisinopril", "amlodipine", "metoprolol",
	"omeprazole", "simvastatin", "losartan", "albuterol",
}

// ExtractMolecule returns the first known molecule that occurs in query,
// matched case-insensitively as a substring, or "" when none does.
func ExtractMolecule(query string) string {
	q := strings.ToLower(query)
	for _, m := range Molecules {
		if strings.Contains(q, m) {
			return m
		}
	}
	return ""
}

// moleculeFor prefers an explicit molecule attribute over detection.
func moleculeFor(query string, attrs map[string]any) string {
	if m, ok := attrs[AttrMolecule].(string); ok && strings.TrimSpace(m) != "" {
		return strings.ToLower(strings.TrimSpace(m))
	}
	return ExtractMolecule(query)
}

// confidence grows linearly with the number of findings and saturates at 0.9.
func confidence(n int, step float64) float64 {
	return math.Min(0.9, 0.5+float64(n)*step)
}

const defaultMaxEvidence = 20

// limit returns at most max items; max <= 0 uses the default of 20.
func limit(items []types.EvidenceItem, max int) []types.EvidenceItem {
	if max <= 0 {
		max = defaultMaxEvidence
	}
	if len(items) > max {
		return items[:max]
	}
	return items
}

// stringSlice reads a string list from extracted data, accepting the
// []any form produced by JSON and YAML decoding.
func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// thousands formats n with comma separators, e.g. 20000 -> "20,000".
func thousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
