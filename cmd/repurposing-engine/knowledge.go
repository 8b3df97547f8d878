// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/repurposing-engine/internal/knowledge"
	"github.com/pdiddy/repurposing-engine/internal/report"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the internal R&D knowledge base (ingest, search, export)",
	Long: `Knowledge manages the local SQLite knowledge base searched by the internal
worker. Documents are YAML files in the documents directory; ingest indexes
them with FTS5 so analyses can cite internal reports, protocols, and memos.`,
}

// --- ingest subcommand ---

var knowledgeIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index internal documents into the knowledge base",
	Long: `Ingest reads every *.yaml document file from the documents directory and
indexes it. Unchanged files are skipped on subsequent runs; changed files
replace the documents they contributed before.`,
	RunE: runKnowledgeIngest,
}

func runKnowledgeIngest(cmd *cobra.Command, args []string) error {
	store, err := knowledge.NewStore(knowledgeConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(cmd.Context(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d file(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- search subcommand ---

var knowledgeSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base with full-text search and filters",
	Long: `Search ranks documents by FTS5 bm25 relevance, optionally restricted by
document type, molecule, and tags. With no query, filters alone select
documents in id order.

Use --id to print one document in full.`,
	RunE: runKnowledgeSearch,
}

func runKnowledgeSearch(cmd *cobra.Command, args []string) error {
	store, err := knowledge.NewStore(knowledgeConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	if id, _ := cmd.Flags().GetString("id"); id != "" {
		doc, err := store.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		return report.Encode(os.Stdout, report.FormatYAML, doc)
	}

	opts := searchOptsFromFlags(cmd, args)
	if opts.Query == "" && opts.Type == "" && opts.Molecule == "" && len(opts.Tags) == 0 {
		return fmt.Errorf("query or filter required: provide a search query, --type, --molecule, or --tag")
	}

	hits, err := store.Search(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(hits, jsonOutput)
}

func formatSearchOutput(hits []knowledge.Hit, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-14s  %-8s  %-50s  %s\n", "Rank", "ID", "Type", "Title", "Score")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))
	for i, h := range hits {
		title := h.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		id := h.ID
		if len(id) > 14 {
			id = id[:11] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-14s  %-8s  %-50s  %.2f\n", i+1, id, h.Type, title, h.Score)
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(hits))
	return nil
}

// --- export subcommand ---

var knowledgeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the knowledge base to YAML or JSON",
	Long: `Export writes the knowledge base (or the subset matching the filter flags)
to export.yaml or export.json in the index directory.`,
	RunE: runKnowledgeExport,
}

func runKnowledgeExport(cmd *cobra.Command, args []string) error {
	formatName, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	store, err := knowledge.NewStore(knowledgeConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := searchOptsFromFlags(cmd, args)
	if format == report.FormatJSON {
		err = store.ExportJSON(cmd.Context(), opts)
	} else {
		err = store.ExportYAML(cmd.Context(), opts)
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", store.ExportPath(strings.TrimPrefix(format.Ext(), ".")))
	return nil
}

// --- shared helpers ---

// knowledgeConfig overlays the command's directory flags on the loaded
// configuration.
func knowledgeConfig(cmd *cobra.Command) types.KnowledgeConfig {
	cfg := appConfig.Knowledge
	if cmd.Flags().Changed("documents-dir") {
		cfg.DocumentsDir, _ = cmd.Flags().GetString("documents-dir")
	}
	if cmd.Flags().Changed("index-dir") {
		cfg.IndexDir, _ = cmd.Flags().GetString("index-dir")
	}
	return cfg
}

func searchOptsFromFlags(cmd *cobra.Command, args []string) knowledge.SearchOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}
	docType, _ := cmd.Flags().GetString("type")
	molecule, _ := cmd.Flags().GetString("molecule")
	tags, _ := cmd.Flags().GetStringSlice("tag")
	limit, _ := cmd.Flags().GetInt("limit")

	return knowledge.SearchOptions{
		Query:      queryText,
		Type:       types.DocumentType(docType),
		Molecule:   molecule,
		Tags:       tags,
		MaxResults: limit,
	}
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("query", "", "full-text search query")
	cmd.Flags().String("type", "", "filter by document type: report, protocol, study, memo, other")
	cmd.Flags().String("molecule", "", "filter by molecule")
	cmd.Flags().StringSlice("tag", nil, "filter by tag (repeatable, all must match)")
	cmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
}

func init() {
	knowledgeCmd.PersistentFlags().String("documents-dir", "", "directory of internal document YAML files (default from config)")
	knowledgeCmd.PersistentFlags().String("index-dir", "", "directory holding the knowledge database (default from config)")

	addFilterFlags(knowledgeSearchCmd)
	knowledgeSearchCmd.Flags().String("id", "", "print one document by id")
	knowledgeSearchCmd.Flags().Bool("json", false, "output results as JSON")

	addFilterFlags(knowledgeExportCmd)
	knowledgeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	knowledgeCmd.AddCommand(knowledgeIngestCmd)
	knowledgeCmd.AddCommand(knowledgeSearchCmd)
	knowledgeCmd.AddCommand(knowledgeExportCmd)

	rootCmd.AddCommand(knowledgeCmd)
}
