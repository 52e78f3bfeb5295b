package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kubestream/streamgate/pkg/system"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show sgctl version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if system.Commit != "" {
				fmt.Fprintf(rt.Writer(), "sgctl %s (commit %s)\n", system.Version, system.Commit)
				return nil
			}
			fmt.Fprintf(rt.Writer(), "sgctl %s\n", system.Version)
			return nil
		},
	}
}
