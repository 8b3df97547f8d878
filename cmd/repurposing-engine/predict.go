// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/repurposing-engine/internal/predict"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run the repurposing success and market forecasting models",
	Long: `Predict runs the standalone analytical models: repurposing success
probability, compound-growth market forecasts, and patent expiry impact.
Results are printed as YAML (or JSON with --format json).`,
}

var predictSuccessCmd = &cobra.Command{
	Use:   "success",
	Short: "Estimate the probability that a repurposing program succeeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		req := predict.DefaultSuccessRequest()
		req.Molecule, _ = f.GetString("molecule")
		req.Indication, _ = f.GetString("indication")
		req.TherapyArea, _ = f.GetString("therapy-area")
		req.MarketSize, _ = f.GetFloat64("market-size")
		req.CompetitionLevel, _ = f.GetFloat64("competition")
		req.PatentRisk, _ = f.GetString("patent-risk")
		req.ClinicalEvidence, _ = f.GetFloat64("clinical-evidence")
		req.ExistingIndications, _ = f.GetInt("existing-indications")

		p := &predict.Predictor{Logger: logger}
		out, err := p.RepurposingSuccess(cmd.Context(), req)
		if err != nil {
			return err
		}
		return encodeFlagFormat(cmd, out)
	},
}

var predictForecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Project market size by compound annual growth",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		var req predict.ForecastRequest
		req.Molecule, _ = f.GetString("molecule")
		req.Indication, _ = f.GetString("indication")
		req.CurrentMarketSize, _ = f.GetFloat64("market-size")
		req.CAGR, _ = f.GetFloat64("cagr")
		req.Years, _ = f.GetInt("years")
		req.Volatility, _ = f.GetFloat64("volatility")

		out, err := predict.MarketForecast(req, time.Now())
		if err != nil {
			return err
		}
		return encodeFlagFormat(cmd, out)
	},
}

var predictExpiryCmd = &cobra.Command{
	Use:   "expiry",
	Short: "Model brand and generic revenue after patent expiry",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		var req predict.ExpiryRequest
		req.Molecule, _ = f.GetString("molecule")
		req.ExpiryDate, _ = f.GetString("expiry-date")
		req.CurrentMarketSize, _ = f.GetFloat64("market-size")

		out, err := predict.PatentExpiryImpact(req, time.Now())
		if err != nil {
			return err
		}
		return encodeFlagFormat(cmd, out)
	},
}

func init() {
	predictCmd.PersistentFlags().String("format", "yaml", "output format: yaml or json")
	predictCmd.PersistentFlags().String("molecule", "", "drug molecule name")
	predictCmd.PersistentFlags().Float64("market-size", 0, "current market size in USD millions")

	def := predict.DefaultSuccessRequest()
	predictSuccessCmd.Flags().String("indication", "", "target indication")
	predictSuccessCmd.Flags().String("therapy-area", "", "therapy area, e.g. oncology")
	predictSuccessCmd.Flags().Float64("competition", def.CompetitionLevel, "competition level in [0,1]")
	predictSuccessCmd.Flags().String("patent-risk", def.PatentRisk, "patent risk: low, medium, or high")
	predictSuccessCmd.Flags().Float64("clinical-evidence", def.ClinicalEvidence, "clinical evidence strength in [0,1]")
	predictSuccessCmd.Flags().Int("existing-indications", def.ExistingIndications, "number of approved indications")

	predictForecastCmd.Flags().String("indication", "", "target indication")
	predictForecastCmd.Flags().Float64("cagr", 5, "compound annual growth rate in percent")
	predictForecastCmd.Flags().Int("years", 5, "forecast horizon in years (max 30)")
	predictForecastCmd.Flags().Float64("volatility", 0.1, "market volatility in [0,1]")

	predictExpiryCmd.Flags().String("expiry-date", "", "patent expiry date (YYYY-MM-DD)")
	_ = predictExpiryCmd.MarkFlagRequired("expiry-date")

	predictCmd.AddCommand(predictSuccessCmd)
	predictCmd.AddCommand(predictForecastCmd)
	predictCmd.AddCommand(predictExpiryCmd)

	rootCmd.AddCommand(predictCmd)
}
