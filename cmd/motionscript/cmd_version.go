package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/banshee-data/motionscript/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "motionscript %s (%s) built %s with %s\n",
				version.Version, version.GitSHA, version.BuildTime, runtime.Version())
			return nil
		},
	}
}
