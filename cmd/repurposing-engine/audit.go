// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/repurposing-engine/internal/audit"
	"github.com/pdiddy/repurposing-engine/internal/report"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the governance audit trail",
	Long: `Audit reads the SQLite audit trail written by analyze and serve-mcp.
Every analysis has one record holding the query, every worker action, the
cited evidence with attribution, and the generated report versions.`,
}

// --- status subcommand ---

var auditStatusCmd = &cobra.Command{
	Use:   "status <audit-id>",
	Short: "Show the status of an audited analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openAudit(appConfig)
		if err != nil {
			return err
		}
		defer store.Close()

		st, err := store.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return encodeFlagFormat(cmd, st)
	},
}

// --- trail subcommand ---

var auditTrailCmd = &cobra.Command{
	Use:   "trail <audit-id>",
	Short: "Print the full governance record of an analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openAudit(appConfig)
		if err != nil {
			return err
		}
		defer store.Close()

		trail, err := store.Trail(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return encodeFlagFormat(cmd, trail)
	},
}

// --- list subcommand ---

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audited analyses, newest first",
	RunE:  runAuditList,
}

func runAuditList(cmd *cobra.Command, args []string) error {
	store, err := openAudit(appConfig)
	if err != nil {
		return err
	}
	defer store.Close()

	user, _ := cmd.Flags().GetString("user")
	conversation, _ := cmd.Flags().GetString("conversation")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")

	queries, err := store.List(cmd.Context(), audit.ListOptions{
		UserID:         user,
		ConversationID: conversation,
		Status:         audit.Status(status),
		Limit:          limit,
	})
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("format") {
		return encodeFlagFormat(cmd, queries)
	}
	if len(queries) == 0 {
		fmt.Println("No audited queries.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-10s  %-16s  %-20s  %s\n", "ID", "Status", "User", "Created", "Query")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))
	for _, q := range queries {
		text := q.QueryText
		if len(text) > 40 {
			text = text[:37] + "..."
		}
		user := q.UserID
		if len(user) > 16 {
			user = user[:13] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-10s  %-16s  %-20s  %s\n",
			q.ID, q.Status, user, q.CreatedAt.Local().Format(time.DateTime), text)
	}
	fmt.Fprintf(os.Stdout, "\n%d queries\n", len(queries))
	return nil
}

// encodeFlagFormat writes v to stdout in the --format encoding.
func encodeFlagFormat(cmd *cobra.Command, v any) error {
	name, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(name)
	if err != nil {
		return err
	}
	return report.Encode(os.Stdout, format, v)
}

func init() {
	auditCmd.PersistentFlags().String("format", "yaml", "output format: yaml or json")

	auditListCmd.Flags().String("user", "", "filter by user id")
	auditListCmd.Flags().String("conversation", "", "filter by conversation id")
	auditListCmd.Flags().String("status", "", "filter by status: processing, completed, failed, cancelled")
	auditListCmd.Flags().Int("limit", 20, "maximum number of queries (0 = all)")

	auditCmd.AddCommand(auditStatusCmd)
	auditCmd.AddCommand(auditTrailCmd)
	auditCmd.AddCommand(auditListCmd)

	rootCmd.AddCommand(auditCmd)
}
