package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/agentpane/agentpane/pkg/frontmatter"
)

var normalizeKind string

func init() {
	normalizeCmd.Flags().StringVar(&normalizeKind, "kind", "agent", "Definition kind (agent or command)")
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file>...",
	Short: "Rewrite definition frontmatter into canonical form",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(normalizeKind)
		if err != nil {
			return err
		}

		for _, path := range args {
			raw, err := os.ReadFile(path)
			if err != nil {
				out.Error(err, "reading "+path)
				continue
			}

			normalized := frontmatter.Normalize(string(raw), filepath.Base(path), kind)
			if normalized == string(raw) {
				out.Info(path + " already normalized")
				continue
			}

			if err := os.WriteFile(path, []byte(normalized), 0o644); err != nil {
				out.Error(err, "writing "+path)
				continue
			}
			out.Success("normalized " + path)
		}
		return nil
	},
}

func parseKind(s string) (frontmatter.Kind, error) {
	switch s {
	case "agent":
		return frontmatter.AgentFile, nil
	case "command":
		return frontmatter.CommandFile, nil
	default:
		return 0, errors.Errorf("unknown kind %q (want agent or command)", s)
	}
}
