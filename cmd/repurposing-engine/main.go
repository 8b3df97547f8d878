// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the repurposing-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/repurposing-engine/internal/logging"
	"github.com/pdiddy/repurposing-engine/internal/secrets"
	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Populated by the root command before any subcommand runs.
var (
	appConfig types.AppConfig
	logger    = zap.NewNop()
)

// rootCmd is the base command for the repurposing-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "repurposing-engine",
	Short: "Multi-agent evidence engine for drug repurposing questions",
	Long: `repurposing-engine answers pharmaceutical research questions by fanning
them out to specialist workers (literature, clinical trials, patents,
regulatory, market, and the internal knowledge base), aggregating their
evidence, and synthesizing one cited answer.

Every analysis is recorded in a SQLite audit trail. Reports are rendered in
the background and can be exported afterwards.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, &cfg)

		l, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		logger = l

		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(secretsDir, logger)
		if err != nil {
			return err
		}
		s.Apply(&cfg.Sources)
		if keys := s.Keys(); len(keys) > 0 {
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}

		appConfig = cfg
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./repurposing-engine.yaml or ~/.config/repurposing-engine/repurposing-engine.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of API key files")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")
	rootCmd.PersistentFlags().String("audit-db", "", "audit trail database path")
}

// applyFlagOverrides copies explicitly set persistent flags over cfg.
func applyFlagOverrides(cmd *cobra.Command, cfg *types.AppConfig) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("audit-db") {
		cfg.Audit.DBPath, _ = flags.GetString("audit-db")
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("repurposing-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "repurposing-engine"))
		}
	}

	viper.SetEnvPrefix("REPURPOSING_ENGINE")
	viper.SetEnvKeyReplacer(envReplacer())
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// envReplacer maps dotted config keys to environment variable names, so
// log.level is read from REPURPOSING_ENGINE_LOG_LEVEL.
func envReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
