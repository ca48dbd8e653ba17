package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentpane/agentpane/pkg/assistant"
	"github.com/agentpane/agentpane/pkg/digest"
	"github.com/agentpane/agentpane/pkg/frontmatter"
	"github.com/agentpane/agentpane/pkg/injector"
	"github.com/agentpane/agentpane/pkg/scanner"
)

var (
	updateAssist  bool
	updateDiff    bool
	updateKind    string
	updateTimeout time.Duration
)

func init() {
	updateCmd.Flags().BoolVar(&updateAssist, "assist", false, "Delegate the rewrite to the external assistant")
	updateCmd.Flags().BoolVar(&updateDiff, "diff", false, "Print a unified diff instead of writing")
	updateCmd.Flags().StringVar(&updateKind, "kind", "agent", "Definition kind (agent or command)")
	updateCmd.Flags().DurationVar(&updateTimeout, "timeout", assistant.DefaultTimeout, "Assistant timeout per file")
	updateCmd.Flags().Bool("dangerously-bypass-permissions", false, "Let the assistant skip its interactive confirmation prompts")
}

// bypassPermissions resolves the consent flag: an explicit flag wins over the
// persisted config value.
func bypassPermissions(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("dangerously-bypass-permissions") {
		v, _ := cmd.Flags().GetBool("dangerously-bypass-permissions")
		return v
	}
	return viper.GetBool("assistant.bypass_permissions")
}

var updateCmd = &cobra.Command{
	Use:   "update <file>...",
	Short: "Rewrite definition files with a fresh project-context section",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		root := workspaceRoot()

		kind, err := parseKind(updateKind)
		if err != nil {
			return err
		}

		s, err := scanner.New(scanner.WithMaxDepth(viper.GetInt("scan.max_depth")))
		if err != nil {
			return err
		}
		files := s.Scan(ctx, root)

		builder, err := digest.NewBuilder()
		if err != nil {
			return err
		}

		updater, err := buildUpdater(cmd, root, kind, builder)
		if err != nil {
			return err
		}

		if updateDiff {
			return previewDiffs(cmd, updater, args, files)
		}

		outcomes, err := injector.UpdateAll(ctx, updater, args, files, out)
		for _, o := range outcomes {
			if o.Success {
				out.Success(o.Path + " (" + o.Method.String() + ")")
			}
		}
		return err
	},
}

func buildUpdater(cmd *cobra.Command, root string, kind frontmatter.Kind, builder *digest.Builder) (injector.Updater, error) {
	if !updateAssist {
		return injector.NewStaticUpdater(root, kind, builder), nil
	}

	client, err := assistant.NewClient(
		assistant.WithModel(viper.GetString("assistant.model")),
		assistant.WithBypassPermissions(bypassPermissions(cmd)),
		assistant.WithObserver(out),
	)
	if err != nil {
		return nil, err
	}
	return injector.NewAssistedUpdater(root, kind, client, builder, updateTimeout), nil
}

// previewDiffs runs each update against a temporary copy and prints a
// unified diff; the original files are left untouched.
func previewDiffs(cmd *cobra.Command, updater injector.Updater, paths []string, files []scanner.MarkdownFile) error {
	tmpDir, err := os.MkdirTemp("", "agentpane-diff-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	for _, path := range paths {
		before, err := os.ReadFile(path)
		if err != nil {
			out.Error(err, "reading "+path)
			continue
		}

		tmpPath := filepath.Join(tmpDir, filepath.Base(path))
		if err := os.WriteFile(tmpPath, before, 0o644); err != nil {
			out.Error(err, "staging "+path)
			continue
		}

		outcome := updater.UpdateDefinition(cmd.Context(), tmpPath, files)
		if !outcome.Success {
			out.Warning(path + ": " + outcome.Diagnostic)
			continue
		}

		after, err := os.ReadFile(tmpPath)
		if err != nil {
			out.Error(err, "reading preview for "+path)
			continue
		}

		out.Section(path)
		out.Info(udiff.Unified("a/"+path, "b/"+path, string(before), string(after)))
	}
	return nil
}
