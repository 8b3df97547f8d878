// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/repurposing-engine/internal/report"
	"github.com/pdiddy/repurposing-engine/internal/service"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [question]",
	Short: "Run a research question through the worker pipeline",
	Long: `Analyze classifies the question, dispatches the workers its intent needs,
aggregates their evidence, and prints the synthesized answer. The run is
recorded in the audit trail; the printed audit id can be passed to
"audit status" and "audit trail". Executive, detailed, and regulatory
reports are generated in the background before the command exits.

Use --request to load the question and its context from a YAML file.
Interrupting the command cancels outstanding workers and records the run
as cancelled.`,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	req, err := requestFromFlags(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := openApp(appConfig, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	resp, err := a.service.Analyze(ctx, req)
	if err != nil {
		if resp.AuditID != "" {
			fmt.Fprintf(os.Stderr, "audit id: %s\n", resp.AuditID)
		}
		return err
	}

	if save, _ := cmd.Flags().GetString("save"); save != "" {
		format, err := report.ParseFormat(save)
		if err != nil {
			return err
		}
		path, err := report.WriteFile(appConfig.Report.OutputDir, "analysis-"+resp.AuditID, format, resp)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved %s\n", path)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		if err := report.Encode(os.Stdout, report.FormatJSON, resp); err != nil {
			return err
		}
	} else {
		printResponse(resp)
	}
	return a.writeMetrics()
}

// requestFromFlags builds the request from --request, positional args, and
// the per-field flags, in that order of precedence from lowest to highest.
func requestFromFlags(cmd *cobra.Command, args []string) (service.Request, error) {
	var req service.Request
	if path, _ := cmd.Flags().GetString("request"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return req, fmt.Errorf("reading request file: %w", err)
		}
		if err := yaml.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("parsing request file %s: %w", path, err)
		}
	}

	if len(args) > 0 {
		req.Query = strings.Join(args, " ")
	}
	if cmd.Flags().Changed("user") {
		req.UserID, _ = cmd.Flags().GetString("user")
	}
	if cmd.Flags().Changed("conversation") {
		req.ConversationID, _ = cmd.Flags().GetString("conversation")
	}

	pairs, _ := cmd.Flags().GetStringToString("context")
	if molecule, _ := cmd.Flags().GetString("molecule"); molecule != "" {
		if pairs == nil {
			pairs = map[string]string{}
		}
		pairs["molecule"] = molecule
	}
	if len(pairs) > 0 && req.Context == nil {
		req.Context = make(map[string]any, len(pairs))
	}
	for k, v := range pairs {
		req.Context[k] = v
	}

	if strings.TrimSpace(req.Query) == "" {
		return req, fmt.Errorf("a question is required: pass it as arguments or in --request")
	}
	return req, nil
}

func printResponse(resp service.Response) {
	fmt.Println(resp.Response)
	fmt.Println()
	fmt.Printf("Audit ID:        %s\n", resp.AuditID)
	fmt.Printf("Intent:          %s\n", resp.Intent)
	fmt.Printf("Agents used:     %s\n", strings.Join(resp.AgentsUsed, ", "))
	fmt.Printf("Confidence:      %.2f\n", resp.ConfidenceScore)
	if resp.RegulatoryReadiness != nil {
		fmt.Printf("Reg. readiness:  %.2f\n", *resp.RegulatoryReadiness)
	}
	fmt.Printf("Patent risk:     %s\n", resp.PatentRisk)
	fmt.Printf("Evidence items:  %d\n", len(resp.Evidence))
}

func init() {
	analyzeCmd.Flags().String("user", "", "user id recorded in the audit trail (default anonymous)")
	analyzeCmd.Flags().String("conversation", "", "conversation id to group queries under")
	analyzeCmd.Flags().String("molecule", "", "molecule hint passed to the workers")
	analyzeCmd.Flags().StringToString("context", nil, "extra worker attributes as key=value pairs")
	analyzeCmd.Flags().String("request", "", "YAML file with query, user_id, conversation_id, and context")
	analyzeCmd.Flags().Bool("json", false, "print the full result as JSON")
	analyzeCmd.Flags().String("save", "", "also save the result to the report output directory as yaml or json")

	rootCmd.AddCommand(analyzeCmd)
}
