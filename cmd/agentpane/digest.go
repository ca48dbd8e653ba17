package main

import (
	"github.com/spf13/cobra"

	"github.com/agentpane/agentpane/pkg/digest"
)

var digestFilesOnly bool

func init() {
	digestCmd.Flags().BoolVar(&digestFilesOnly, "files-only", false, "Only list the files the digest would include")
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Print the bounded project-context digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		builder, err := digest.NewBuilder()
		if err != nil {
			return err
		}

		root := workspaceRoot()

		if digestFilesOnly {
			for _, name := range builder.IncludedFiles(root) {
				out.Info(name)
			}
			return nil
		}

		for _, name := range builder.IncludedFiles(root) {
			out.Progress("including " + name)
		}
		out.Info(builder.Build(cmd.Context(), root))
		return nil
	},
}
