package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentpane/agentpane/pkg/scanner"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the project's markdown documentation files",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := scanner.New(scanner.WithMaxDepth(viper.GetInt("scan.max_depth")))
		if err != nil {
			return err
		}

		files := s.Scan(cmd.Context(), workspaceRoot())
		if len(files) == 0 {
			out.Info("No markdown files found.")
			return nil
		}

		out.Section(fmt.Sprintf("Markdown files (%d)", len(files)))
		for _, f := range files {
			line := f.Path
			if f.Title != "" {
				line += "  [" + f.Title + "]"
			}
			out.Info(line)
			if f.Description != "" {
				out.Info("    " + f.Description)
			}
		}
		return nil
	},
}
