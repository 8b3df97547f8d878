// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

const exportLimit = 100000

// ExportYAML writes the matching documents to export.yaml in the index
// directory.
func (s *Store) ExportYAML(ctx context.Context, opts SearchOptions) error {
	docs, err := s.exportDocuments(ctx, opts)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(types.DocumentFile{Documents: docs})
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(s.ExportPath("yaml"), data, 0o644)
}

// ExportJSON writes the matching documents to export.json in the index
// directory.
func (s *Store) ExportJSON(ctx context.Context, opts SearchOptions) error {
	docs, err := s.exportDocuments(ctx, opts)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(types.DocumentFile{Documents: docs}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(s.ExportPath("json"), data, 0o644)
}

// ExportPath returns the export file path for the given extension.
func (s *Store) ExportPath(ext string) string {
	return filepath.Join(s.indexDir, "export."+ext)
}

func (s *Store) exportDocuments(ctx context.Context, opts SearchOptions) ([]types.Document, error) {
	opts.MaxResults = exportLimit
	hits, err := s.Search(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	docs := make([]types.Document, len(hits))
	for i, h := range hits {
		docs[i] = h.Document
	}
	return docs, nil
}
