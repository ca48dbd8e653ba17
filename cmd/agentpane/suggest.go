package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentpane/agentpane/pkg/assistant"
	"github.com/agentpane/agentpane/pkg/digest"
	"github.com/agentpane/agentpane/pkg/scanner"
	"github.com/agentpane/agentpane/pkg/suggest"
)

var (
	suggestAssist bool
	suggestWrite  bool
	suggestDir    string
)

func init() {
	suggestCmd.Flags().BoolVar(&suggestAssist, "assist", false, "Ask the external assistant to analyze the project")
	suggestCmd.Flags().BoolVar(&suggestWrite, "write", false, "Write suggested definitions into the agents directory")
	suggestCmd.Flags().StringVar(&suggestDir, "dir", ".claude/agents", "Directory for materialized definitions (relative to root)")
	suggestCmd.Flags().Bool("dangerously-bypass-permissions", false, "Let the assistant skip its interactive confirmation prompts")
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Propose new agent definitions for this project",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		root := workspaceRoot()

		s, err := scanner.New(scanner.WithMaxDepth(viper.GetInt("scan.max_depth")))
		if err != nil {
			return err
		}
		files := s.Scan(ctx, root)

		var suggestions []suggest.Suggestion
		if suggestAssist {
			builder, err := digest.NewBuilder()
			if err != nil {
				return err
			}
			client, err := assistant.NewClient(
				assistant.WithModel(viper.GetString("assistant.model")),
				assistant.WithBypassPermissions(bypassPermissions(cmd)),
				assistant.WithObserver(out),
			)
			if err != nil {
				return err
			}
			suggestions = suggest.NewEngine(root, client, builder).Assisted(ctx, files)
		} else {
			suggestions = suggest.Static(ctx, files)
		}

		if len(suggestions) == 0 {
			out.Info("No suggestions for this project.")
			return nil
		}

		for _, sg := range suggestions {
			out.Section(sg.Name)
			out.Info(sg.Description)
			out.Info("reason: " + sg.Reason)

			if suggestWrite {
				path, err := suggest.Materialize(resolveDir(root, suggestDir), sg)
				if err != nil {
					out.Error(err, "writing "+sg.Name)
					continue
				}
				out.Success("wrote " + path)
			}
		}
		return nil
	},
}

// resolveDir joins dir onto root unless dir is already absolute.
func resolveDir(root, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}
