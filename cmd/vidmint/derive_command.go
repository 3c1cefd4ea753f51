package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidmint/internal/daemonrun"
	"vidmint/internal/video"
)

func newDeriveCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "derive <videoId>",
		Short: "Derive the token identifiers of a video without minting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID := args[0]
			if err := video.Validate(videoID); err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			backend, err := daemonrun.OpenBackend(cmd.Context(), cfg, logger, daemonrun.BackendOptions{ReadOnly: true})
			if err != nil {
				return err
			}
			defer backend.Close()

			pair, err := backend.Deriver.Derive(cmd.Context(), videoID)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, map[string]string{
					"videoId":        videoID,
					"videoTokenId":   pair.VideoTokenID,
					"editionTokenId": pair.EditionTokenID,
					"tokenUrl":       video.TokenURL(cfg.Site.TokenBaseURL, pair.VideoTokenID),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues([][2]string{
				{"Video", videoID},
				{"Video token", pair.VideoTokenID},
				{"Edition token", pair.EditionTokenID},
				{"Token page", video.TokenURL(cfg.Site.TokenBaseURL, pair.VideoTokenID)},
				{"Contract", backend.Contract.Address.Hex()},
			}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
