// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowledge persists internal R&D documents in SQLite and searches
// them with FTS5.
package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

const dbFile = "knowledge.db"

// ErrNotFound is returned when a document id is not in the store.
var ErrNotFound = errors.New("document not found")

// Store manages the knowledge base SQLite database.
type Store struct {
	db           *sql.DB
	documentsDir string
	indexDir     string
	maxResults   int
}

// NewStore opens or creates the knowledge base at cfg.IndexDir/knowledge.db
// and creates the schema if it does not exist.
func NewStore(cfg types.KnowledgeConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(cfg.IndexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:           db,
		documentsDir: cfg.DocumentsDir,
		indexDir:     cfg.IndexDir,
		maxResults:   maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			doc_type TEXT NOT NULL,
			content TEXT NOT NULL,
			source TEXT,
			molecules TEXT,
			tags TEXT,
			doc_date TEXT,
			file TEXT NOT NULL,
			ingested_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(doc_type)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_file ON documents(file)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			file TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='documents_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE documents_fts USING fts5(title, content, content=documents, content_rowid=rowid)`,
		`CREATE TRIGGER documents_ai AFTER INSERT ON documents BEGIN
			INSERT INTO documents_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
		END`,
		`CREATE TRIGGER documents_ad AFTER DELETE ON documents BEGIN
			INSERT INTO documents_fts(documents_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
		END`,
		`CREATE TRIGGER documents_au AFTER UPDATE ON documents BEGIN
			INSERT INTO documents_fts(documents_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
			INSERT INTO documents_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from an ingest run.
type IngestSummary struct {
	Indexed   int
	Updated   int
	Skipped   int
	Failed    int
	Documents int
}

// Total returns the number of files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest loads every *.yaml file in the documents directory. Files whose
// modification time matches the last run are skipped; changed files replace
// the documents they previously contributed. Progress lines go to w.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	entries, err := os.ReadDir(s.documentsDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading documents directory %s: %w", s.documentsDir, err)
	}

	var summary IngestSummary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var stored string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE file = ?`, name,
		).Scan(&stored)
		if err == nil && stored == modTime {
			fmt.Fprintf(w, "skipped %s\n", name)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		data, err := os.ReadFile(filepath.Join(s.documentsDir, name))
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		var file types.DocumentFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			fmt.Fprintf(w, "failed  %s: parse error: %v\n", name, err)
			summary.Failed++
			continue
		}

		if err := s.ingestFile(ctx, name, file.Documents, modTime, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		summary.Documents += len(file.Documents)
		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d documents)\n", name, len(file.Documents))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d documents)\n", name, len(file.Documents))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	if summary.Indexed > 0 || summary.Updated > 0 {
		if err := s.ExportYAML(ctx, SearchOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}
	return summary, nil
}

func (s *Store) ingestFile(ctx context.Context, file string, docs []types.Document, modTime string, isUpdate bool) error {
	for i, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("document %d has no id", i)
		}
		if strings.TrimSpace(d.Content) == "" && strings.TrimSpace(d.Title) == "" {
			return fmt.Errorf("document %s has no title or content", d.ID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE file = ?`, file); err != nil {
			return fmt.Errorf("deleting old documents: %w", err)
		}
	}

	// A document id that moved between files replaces the earlier copy.
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (id, title, doc_type, content, source, molecules, tags, doc_date, file, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, doc_type=excluded.doc_type, content=excluded.content,
			source=excluded.source, molecules=excluded.molecules, tags=excluded.tags,
			doc_date=excluded.doc_date, file=excluded.file, ingested_at=excluded.ingested_at`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, d := range docs {
		docType := d.Type
		if docType == "" {
			docType = types.DocOther
		}
		molecules, _ := json.Marshal(lower(d.Molecules))
		tags, _ := json.Marshal(d.Tags)
		date := ""
		if !d.Date.IsZero() {
			date = d.Date.Format(time.RFC3339)
		}
		if _, err := stmt.ExecContext(ctx,
			d.ID, d.Title, string(docType), d.Content, d.Source,
			string(molecules), string(tags), date, file, now,
		); err != nil {
			return fmt.Errorf("inserting document %s: %w", d.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (file, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(file) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		file, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func lower(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
