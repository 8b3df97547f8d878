// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Recognized key files: pubmed-api-key, semantic-scholar-api-key, patentsview-api-key,
// openalex-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// Key file names.
const (
	PubMedAPIKey          = "pubmed-api-key"
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	PatentsViewAPIKey     = "patentsview-api-key"
	OpenAlexEmail         = "openalex-email"
)

// Secrets maps key file names to their trimmed contents.
type Secrets map[string]string

// Load reads all files in dir. A missing directory is not an error; Load
// returns an empty set. Unreadable files are logged and skipped.
func Load(dir string, logger *zap.Logger) (Secrets, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Keys returns the loaded key names in sorted order.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply fills credential fields of cfg that are still empty. Values already
// set by config or environment win.
func (s Secrets) Apply(cfg *types.SourcesConfig) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = s[key]
		}
	}
	fill(&cfg.PubMedAPIKey, PubMedAPIKey)
	fill(&cfg.SemanticScholarAPIKey, SemanticScholarAPIKey)
	fill(&cfg.PatentsViewAPIKey, PatentsViewAPIKey)
	fill(&cfg.OpenAlexEmail, OpenAlexEmail)
}
