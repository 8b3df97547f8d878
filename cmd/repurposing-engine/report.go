// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/repurposing-engine/internal/report"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export generated reports and bibliographies",
}

// --- export subcommand ---

var reportExportCmd = &cobra.Command{
	Use:   "export <audit-id>",
	Short: "Write the stored report versions of an analysis to files",
	Long: `Export reads the executive, detailed, and regulatory reports stored for an
analysis and writes each to the report output directory as
<audit-id>-v<version>-<type>.yaml (or .json).`,
	Args: cobra.ExactArgs(1),
	RunE: runReportExport,
}

func runReportExport(cmd *cobra.Command, args []string) error {
	id := args[0]
	typeName, _ := cmd.Flags().GetString("type")
	formatName, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}
	dir, _ := cmd.Flags().GetString("output-dir")
	if dir == "" {
		dir = appConfig.Report.OutputDir
	}

	store, err := openAudit(appConfig)
	if err != nil {
		return err
	}
	defer store.Close()

	// Get first so an unknown id is reported as such.
	if _, err := store.Get(cmd.Context(), id); err != nil {
		return err
	}
	versions, err := store.Reports(cmd.Context(), id)
	if err != nil {
		return err
	}

	written := 0
	for _, rv := range versions {
		if typeName != "" && typeName != "all" && rv.ReportType != typeName {
			continue
		}
		name := fmt.Sprintf("%s-v%d-%s", id, rv.Version, rv.ReportType)
		path, err := report.WriteFile(dir, name, format, rv.Content)
		if err != nil {
			return err
		}
		fmt.Println(path)
		written++
	}
	if written == 0 {
		return fmt.Errorf("no reports stored for %s", id)
	}
	return nil
}

// --- bibliography subcommand ---

var reportBibliographyCmd = &cobra.Command{
	Use:   "bibliography <audit-id>",
	Short: "Write the cited evidence of an analysis as CSL YAML",
	Long: `Bibliography converts the evidence recorded for an analysis into CSL YAML
entries (journal articles, trial registrations, patents, and regulatory
documents) for use with citation processors such as pandoc-citeproc.`,
	Args: cobra.ExactArgs(1),
	RunE: runReportBibliography,
}

func runReportBibliography(cmd *cobra.Command, args []string) error {
	store, err := openAudit(appConfig)
	if err != nil {
		return err
	}
	defer store.Close()

	trail, err := store.Trail(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	items := make([]types.EvidenceItem, 0, len(trail.Evidence))
	for _, e := range trail.Evidence {
		items = append(items, e.EvidenceItem)
	}

	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		return report.WriteBibliography(os.Stdout, items)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	defer f.Close()
	if err := report.WriteBibliography(f, items); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %d entries to %s\n", len(items), out)
	return nil
}

func init() {
	reportExportCmd.Flags().String("type", "all", "report type: executive, detailed, regulatory, or all")
	reportExportCmd.Flags().String("format", "yaml", "file format: yaml or json")
	reportExportCmd.Flags().String("output-dir", "", "output directory (default from config report.output_dir)")

	reportBibliographyCmd.Flags().String("output", "", "write to this file instead of stdout")

	reportCmd.AddCommand(reportExportCmd)
	reportCmd.AddCommand(reportBibliographyCmd)

	rootCmd.AddCommand(reportCmd)
}
