package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vidmint/internal/api"
	"vidmint/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history [sessionId]",
		Short: "Show journalled mint sessions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := journal.Open(cfg)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()
			history := api.NewHistoryService(store)

			if len(args) == 1 {
				item, err := history.Describe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("session %s not found", args[0])
				}
				if jsonOutput {
					return writeJSON(cmd, item)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderHistoryItem(item))
				return nil
			}

			entries, err := history.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				if entries == nil {
					entries = []api.HistoryEntry{}
				}
				return writeJSON(cmd, api.HistoryListResponse{Sessions: entries})
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No sessions recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(entries))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions to show (at most 500)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderHistoryTable(entries []api.HistoryEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		step := e.Step
		if e.Abandoned {
			step += " (abandoned)"
		}
		rows = append(rows, []string{
			shortID(e.ID),
			step,
			e.VideoID,
			truncate(e.Title, 40),
			shortHash(e.TxHash),
			e.TxStatus,
			e.UpdatedAt,
		})
	}
	return renderTable(
		[]string{"Session", "Step", "Video", "Title", "Tx", "Status", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func renderHistoryItem(item *api.HistoryItemResponse) string {
	s := item.Session
	summary := renderKeyValues([][2]string{
		{"Session", s.ID},
		{"Step", s.Step},
		{"Abandoned", yesNo(s.Abandoned)},
		{"Video", s.VideoID},
		{"Title", s.Title},
		{"Video token", s.VideoTokenID},
		{"Edition token", s.EditionTokenID},
		{"Owner", s.Owner},
		{"CID", s.CID},
		{"Last error", s.Error},
		{"Created", s.CreatedAt},
		{"Updated", s.UpdatedAt},
	})
	if len(item.Transactions) == 0 {
		return summary
	}
	rows := make([][]string, 0, len(item.Transactions))
	for _, tx := range item.Transactions {
		block := ""
		if tx.BlockNumber > 0 {
			block = strconv.FormatUint(tx.BlockNumber, 10)
		}
		rows = append(rows, []string{tx.TxHash, tx.Status, block, tx.Error, tx.UpdatedAt})
	}
	txs := renderTable(
		[]string{"Transaction", "Status", "Block", "Error", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight},
	)
	return summary + "\n" + txs
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func shortHash(hash string) string {
	if len(hash) <= 14 {
		return hash
	}
	return hash[:8] + "…" + hash[len(hash)-4:]
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
