// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  Secrets
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, PatentsViewAPIKey, "  pk_abc123  \n")
				writeFile(t, dir, SemanticScholarAPIKey, "sk_xyz789")
				writeFile(t, dir, OpenAlexEmail, "user@example.com\n")
				return dir
			},
			want: Secrets{
				PatentsViewAPIKey:     "pk_abc123",
				SemanticScholarAPIKey: "sk_xyz789",
				OpenAlexEmail:         "user@example.com",
			},
		},
		{
			name: "returns empty set for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: Secrets{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, PubMedAPIKey, "ncbi-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: Secrets{PubMedAPIKey: "ncbi-key"},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, PatentsViewAPIKey, "pk_real")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: Secrets{PatentsViewAPIKey: "pk_real"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := Load(path, nil)
	assert.ErrorContains(t, err, "reading secrets directory")
}

func TestLoad_UnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	core, logs := observer.New(zap.WarnLevel)
	got, err := Load(dir, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, Secrets{"good-key": "value123"}, got)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "bad-key", logs.All()[0].ContextMap()["name"])
}

func TestKeys(t *testing.T) {
	s := Secrets{OpenAlexEmail: "a", PatentsViewAPIKey: "b", PubMedAPIKey: "c"}
	assert.Equal(t, []string{OpenAlexEmail, PatentsViewAPIKey, PubMedAPIKey}, s.Keys())
	assert.Empty(t, Secrets{}.Keys())
}

func TestApply(t *testing.T) {
	s := Secrets{
		PubMedAPIKey:          "ncbi",
		SemanticScholarAPIKey: "s2",
		PatentsViewAPIKey:     "pv",
		OpenAlexEmail:         "me@example.com",
	}
	cfg := types.SourcesConfig{PatentsViewAPIKey: "from-config"}
	s.Apply(&cfg)

	assert.Equal(t, "ncbi", cfg.PubMedAPIKey)
	assert.Equal(t, "s2", cfg.SemanticScholarAPIKey)
	assert.Equal(t, "from-config", cfg.PatentsViewAPIKey, "configured values win")
	assert.Equal(t, "me@example.com", cfg.OpenAlexEmail)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
