package handlers

import (
	"fmt"
	"os"

	"enhancer/internal/config"
	"enhancer/internal/logger"

	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "enhancer",
		Short: "Crawl blog articles and publish reference-backed AI rewrites",
		Long: `enhancer stores articles crawled from a blog listing page and produces
enhanced rewrites of them.

An enhancement searches the web for the article's title, scrapes the top
reference articles, asks a language model to rewrite the original using them
as inspiration, and stores the result as a new "generated" article that links
back to its original and lists its references.

Typical setup:
  enhancer migrate up
  enhancer crawl --limit 5
  enhancer enhance --random
  enhancer serve`,
		SilenceUsage: true,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.enhancer.yaml or $HOME/.enhancer.yaml)")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewCrawlCmd())
	rootCmd.AddCommand(NewEnhanceCmd())
	rootCmd.AddCommand(NewArticlesCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger.SetLevel(cfg.Logging.Level)
	if cfg.App.Debug {
		logger.SetLevel("debug")
	}

	if cfg.App.ConfigFile != "" {
		logger.Debug("Using config file", "path", cfg.App.ConfigFile)
	}
}
