package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidmint/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and dependency health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			probe := preflight.CheckDaemon(cmd.Context(), cfg.API.Bind)
			kind := statusWarn
			if probe.Running {
				kind = statusOK
			}
			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("vidmint", kind, probe.Detail, colorize))

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range preflightLines(preflight.RunAll(cmd.Context(), cfg), colorize) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		kind := statusError
		if r.Passed {
			kind = statusOK
			if r.Detail == "Disabled" {
				kind = statusInfo
			}
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}
