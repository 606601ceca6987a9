// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pubmed-filter CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubmed-filter/internal/observability"
	"github.com/pdiddy/pubmed-filter/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds NCBI credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Credentials

// logger is configured from log.level and log.format before any command runs.
var logger = zerolog.Nop()

// secretDefault returns configured if set, else the secret loaded from disk.
func secretDefault(configured, secret string) string {
	if configured != "" {
		return configured
	}
	return secret
}

// rootCmd is the base command for the pubmed-filter CLI.
var rootCmd = &cobra.Command{
	Use:   "pubmed-filter",
	Short: "Find PubMed papers with industry-affiliated authors",
	Long: `pubmed-filter searches PubMed through the NCBI E-utilities API, fetches
the title, publication date and author affiliations of each hit, and keeps
papers where at least one affiliation names a company (pharma, biotech, Inc.,
Ltd and similar). Matching papers are written to a CSV file by default.

NCBI credentials are read from .secrets/ncbi-api-key and .secrets/ncbi-email
when not supplied by flags, environment or config file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logCfg := observability.DefaultLoggingConfig()
		if lvl := viper.GetString("log.level"); lvl != "" {
			logCfg.Level = lvl
		}
		if f := viper.GetString("log.format"); f != "" {
			logCfg.Format = f
		}
		logger = observability.NewLogger(logCfg)

		creds, err := secrets.Load(secrets.DefaultDir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = creds
		if !creds.Empty() {
			logger.Debug().Strs("files", creds.Names()).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pubmed-filter.yaml or ~/.config/pubmed-filter/pubmed-filter.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: trace, debug, info, warn, error, disabled")
	rootCmd.PersistentFlags().String("log-format", "console", "log format: console or json")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pubmed-filter")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pubmed-filter"))
		}
	}

	viper.SetEnvPrefix("PUBMED_FILTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
