package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentpane/agentpane/pkg/version"
)

var versionJSON bool

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print version information as JSON")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if versionJSON {
			s, err := info.JSON()
			if err != nil {
				return err
			}
			fmt.Println(s)
			return nil
		}
		fmt.Println(info.String())
		return nil
	},
}
