// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// SearchOptions holds parameters for knowledge base searches.
type SearchOptions struct {
	// Query is free text. Its words are matched with OR semantics.
	Query string

	// Type filters by document type.
	Type types.DocumentType

	// Molecule filters to documents that list the molecule.
	Molecule string

	// Tags filters by one or more tags with AND semantics.
	Tags []string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// Hit is a document matched by Search. Score lies in [0,1]; the best
// full-text match scores 1.
type Hit struct {
	types.Document `yaml:",inline"`
	Score          float64 `json:"score" yaml:"score"`
}

// Search finds documents by full text and filters. Full-text results are
// ranked by bm25; filter-only results are ordered by id.
func (s *Store) Search(ctx context.Context, opts SearchOptions) ([]Hit, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	match := ftsQuery(opts.Query)
	if strings.TrimSpace(opts.Query) != "" && match == "" {
		return nil, nil
	}
	useFTS := match != ""

	var (
		qb   strings.Builder
		args []any
	)
	if useFTS {
		qb.WriteString(
			`SELECT d.id, d.title, d.doc_type, d.content, d.source, d.molecules, d.tags, d.doc_date,
				documents_fts.rank
			FROM documents_fts
			JOIN documents d ON d.rowid = documents_fts.rowid
			WHERE documents_fts MATCH ?`)
		args = append(args, match)
	} else {
		qb.WriteString(
			`SELECT d.id, d.title, d.doc_type, d.content, d.source, d.molecules, d.tags, d.doc_date,
				0 AS rank
			FROM documents d
			WHERE 1=1`)
	}

	if opts.Type != "" {
		qb.WriteString(` AND d.doc_type = ?`)
		args = append(args, string(opts.Type))
	}
	if opts.Molecule != "" {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(d.molecules) WHERE value = ?)`)
		args = append(args, strings.ToLower(opts.Molecule))
	}
	for _, tag := range opts.Tags {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(d.tags) WHERE value = ?)`)
		args = append(args, tag)
	}

	if useFTS {
		qb.WriteString(` ORDER BY documents_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY d.id`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying knowledge base: %w", err)
	}
	defer rows.Close()

	var (
		hits  []Hit
		ranks []float64
	)
	for rows.Next() {
		d, rank, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{Document: d})
		ranks = append(ranks, rank)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range hits {
		hits[i].Score = normalizeRank(ranks[i], ranks[0])
		if !useFTS {
			hits[i].Score = 1
		}
	}
	return hits, nil
}

// Get returns the document with the given id.
func (s *Store) Get(ctx context.Context, id string) (types.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, doc_type, content, source, molecules, tags, doc_date, 0
		 FROM documents WHERE id = ?`, id)
	d, _, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (types.Document, float64, error) {
	var (
		d         types.Document
		docType   string
		source    sql.NullString
		molecules sql.NullString
		tags      sql.NullString
		date      sql.NullString
		rank      float64
	)
	if err := sc.Scan(&d.ID, &d.Title, &docType, &d.Content, &source, &molecules, &tags, &date, &rank); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, 0, err
		}
		return d, 0, fmt.Errorf("scanning row: %w", err)
	}
	d.Type = types.DocumentType(docType)
	d.Source = source.String
	if molecules.Valid && molecules.String != "" {
		if err := json.Unmarshal([]byte(molecules.String), &d.Molecules); err != nil {
			return d, 0, fmt.Errorf("decoding molecules of %s: %w", d.ID, err)
		}
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &d.Tags); err != nil {
			return d, 0, fmt.Errorf("decoding tags of %s: %w", d.ID, err)
		}
	}
	if date.Valid && date.String != "" {
		if t, err := time.Parse(time.RFC3339, date.String); err == nil {
			d.Date = t
		}
	}
	return d, rank, nil
}

// ftsQuery turns free text into an FTS5 expression that ORs the quoted
// words. Punctuation is dropped so user input cannot inject FTS5 syntax.
func ftsQuery(text string) string {
	var terms []string
	seen := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) < 2 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "of": true, "in": true, "on": true,
	"to": true, "is": true, "are": true, "what": true, "which": true, "with": true,
	"can": true, "be": true, "an": true, "as": true, "by": true, "or": true,
}

// normalizeRank maps a bm25 rank (negative, lower is better) to [0,1]
// relative to the best rank in the result set.
func normalizeRank(rank, best float64) float64 {
	if best >= 0 {
		return 1
	}
	score := rank / best
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}
