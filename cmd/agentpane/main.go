package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentpane/agentpane/pkg/logger"
	"github.com/agentpane/agentpane/pkg/presenter"
)

// out is the shared presenter; commands use it for all user-facing output
// and as the ordered progress sink for the pipelines.
var out = presenter.New()

func init() {
	viper.SetEnvPrefix("AGENTPANE")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.agentpane")
	viper.AddConfigPath(".")

	viper.SetDefault("scan.max_depth", 5)
	viper.SetDefault("suggest.max_depth", 4)
	viper.SetDefault("assistant.model", "sonnet")
	viper.SetDefault("assistant.bypass_permissions", false)

	// Config file is optional.
	_ = viper.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "agentpane",
	Short: "Browse and generate context for AI agent definition files",
	Long: `agentpane maintains agent and command definition files for an external
AI coding assistant: it scans project documentation, builds a bounded
project-context digest, and rewrites definition files with an auto-generated
context section, optionally delegating the rewrite to the assistant itself.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if level := viper.GetString("log_level"); level != "" {
			if err := logger.SetLogLevel(level); err != nil {
				return err
			}
		}
		logger.SetLogFormat(viper.GetString("log_format"))
		out.SetQuiet(viper.GetBool("quiet"))
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func main() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text or json)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().StringP("root", "r", ".", "Workspace root directory")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func workspaceRoot() string {
	return viper.GetString("root")
}
