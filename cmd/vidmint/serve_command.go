package main

import (
	"github.com/spf13/cobra"

	"vidmint/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session API daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{Offline: offline})
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Keep metadata in memory instead of uploading it")
	return cmd
}
