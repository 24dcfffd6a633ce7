// Package main hosts the codegraph CLI: a parse subcommand that walks a
// project once and reports what the Universal Parser found, and a serve
// subcommand that keeps the graph live and exposes it over the C8
// WebSocket broadcaster.
package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dev.helix.code/internal/config"
	"dev.helix.code/internal/logging"
)

var (
	cfgFile  string
	rootPath string
	logLevel string
	v        = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "codegraph",
	Short: "A multi-language code graph engine",
	Long: `codegraph builds and serves a live graph of a codebase's
declarations and relationships: functions, classes, imports, calls, and
references, kept current as files change.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./codegraph.yaml or $HOME/.codegraph/codegraph.yaml)")
	rootCmd.PersistentFlags().StringVar(&rootPath, "root", ".", "project root to analyze")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	_ = v.BindPFlag("root_path", rootCmd.PersistentFlags().Lookup("root"))
}

func initConfig() {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(v)
}

func newLogger() *logging.Logger {
	level := logging.INFO
	switch strings.ToLower(logLevel) {
	case "debug":
		level = logging.DEBUG
	case "warn", "warning":
		level = logging.WARN
	case "error":
		level = logging.ERROR
	}
	return logging.NewLogger(level)
}
