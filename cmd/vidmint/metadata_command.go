package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"vidmint/internal/chain"
	"vidmint/internal/config"
	"vidmint/internal/metadata"
	"vidmint/internal/storage"
	"vidmint/internal/tokenid"
	"vidmint/internal/video"
)

type metadataFlags struct {
	videoID        string
	title          string
	videoTokenID   string
	editionTokenID string
	owner          string
}

func newMetadataCommand(ctx *commandContext) *cobra.Command {
	var flags metadataFlags

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Preview the canonical metadata document and its CID",
		Long: "Build the metadata document a mint would upload and print its canonical bytes " +
			"followed by the locally computed CID. Nothing is uploaded or submitted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			doc, err := buildPreview(cfg, flags)
			if err != nil {
				return err
			}
			canonical := doc.Canonical()
			cid, err := storage.LocalCID(canonical)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, string(canonical))
			fmt.Fprintf(out, "CID: %s\n", cid)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.videoID, "video-id", "", "YouTube video identifier")
	cmd.Flags().StringVar(&flags.title, "title", "", "Video title")
	cmd.Flags().StringVar(&flags.videoTokenID, "video-token-id", "", "Derived video token id")
	cmd.Flags().StringVar(&flags.editionTokenID, "edition-token-id", "", "Derived edition token id")
	cmd.Flags().StringVar(&flags.owner, "owner", "", "Owner address (defaults to the configured signer)")
	_ = cmd.MarkFlagRequired("video-id")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("video-token-id")
	_ = cmd.MarkFlagRequired("edition-token-id")
	return cmd
}

func buildPreview(cfg *config.Config, flags metadataFlags) (metadata.Document, error) {
	if err := video.Validate(flags.videoID); err != nil {
		return metadata.Document{}, err
	}
	if metadata.NormalizeTitle(flags.title) == "" {
		return metadata.Document{}, errors.New("title must not be empty")
	}
	owner, err := resolveOwner(cfg, flags.owner)
	if err != nil {
		return metadata.Document{}, err
	}
	ids := tokenid.Pair{
		VideoTokenID:   strings.TrimSpace(flags.videoTokenID),
		EditionTokenID: strings.TrimSpace(flags.editionTokenID),
	}
	return metadata.NewBuilder(cfg.Site.TokenBaseURL).Build(owner, flags.videoID, flags.title, ids), nil
}

func resolveOwner(cfg *config.Config, value string) (common.Address, error) {
	value = strings.TrimSpace(value)
	if value != "" {
		if !common.IsHexAddress(value) {
			return common.Address{}, fmt.Errorf("invalid owner address %q", value)
		}
		return common.HexToAddress(value), nil
	}
	if strings.TrimSpace(cfg.Chain.PrivateKey) == "" {
		return common.Address{}, errors.New("owner unknown: pass --owner or configure chain.private_key")
	}
	signer, err := chain.ParseSigner(cfg.Chain.PrivateKey)
	if err != nil {
		return common.Address{}, err
	}
	return signer.Address(), nil
}
