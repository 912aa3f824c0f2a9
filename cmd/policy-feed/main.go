// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the policy-feed CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/policy-feed/internal/logging"
	"github.com/pdiddy/policy-feed/internal/secrets"
	"github.com/pdiddy/policy-feed/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// envKeys are the nested config keys that may be overridden from the
// environment, e.g. POLICY_FEED_STORE_DSN.
var envKeys = []string{
	"store.driver",
	"store.dsn",
	"store.bucket_dir",
	"sources.news.api_key",
	"sources.welfare.api_key",
	"sources.youth.api_key",
	"enhance.enabled",
	"enhance.api_key",
	"enhance.model",
	"schedule.interval",
	"schedule.listen_addr",
	"logging.level",
}

var (
	cfg    types.PipelineConfig
	logger *slog.Logger
)

// rootCmd is the base command for the policy-feed CLI.
var rootCmd = &cobra.Command{
	Use:   "policy-feed",
	Short: "Collect Korean government policy items into one searchable store",
	Long: `policy-feed collects policy news, welfare services and youth policies from
the public-data APIs, normalizes them into one record shape, classifies
them by category and stores them without duplicates.

Run a single collection with "collect", keep collecting on a schedule with
"serve", and inspect the store with "records" and "stats".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}

		loaded, err := loadConfig(s)
		if err != nil {
			return err
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			loaded.Logging.Level = lvl
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		l, err := logging.New(loaded.Logging.Level, os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(l)
		cfg, logger = loaded, l
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./policy-feed.yaml or ~/.config/policy-feed/config.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory holding one API key per file")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides config)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("policy-feed")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "policy-feed"))
		}
	}

	viper.SetEnvPrefix("POLICY_FEED")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, k := range envKeys {
		viper.BindEnv(k)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig overlays the config file and environment on the defaults and
// fills API keys still empty from the secrets directory.
func loadConfig(s map[string]string) (types.PipelineConfig, error) {
	c := types.DefaultPipelineConfig()
	if err := viper.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding configuration: %w", err)
	}
	secrets.Apply(&c, s)
	return c, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
