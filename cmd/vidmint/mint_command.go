package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"vidmint/internal/chain"
	"vidmint/internal/daemonrun"
	"vidmint/internal/journal"
	"vidmint/internal/mint"
	"vidmint/internal/notifications"
	"vidmint/internal/services"
)

// journalFlushTimeout bounds how long the command waits for queued snapshots
// to reach the journal before it closes the store.
const journalFlushTimeout = 5 * time.Second

type mintOptions struct {
	videoID   string
	title     string
	assumeYes bool
	offline   bool
	wait      bool
}

func newMintCommand(ctx *commandContext) *cobra.Command {
	var opts mintOptions

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a video NFT interactively",
		Long: "Walk one video through identifier derivation, the ownership attestation, " +
			"metadata upload and the mint transaction. Every step is journalled.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			store, err := journal.Open(cfg)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			backend, err := daemonrun.OpenBackend(cmd.Context(), cfg, logger, daemonrun.BackendOptions{Offline: opts.offline})
			if err != nil {
				return err
			}
			defer backend.Close()

			deps := backend.Dependencies(cfg, notifications.NewService(cfg), mint.JournalRecorder{Store: store}, logger)
			return runMintSession(cmd.Context(), cmd, deps, opts)
		},
	}

	cmd.Flags().StringVar(&opts.videoID, "video-id", "", "YouTube video identifier")
	cmd.Flags().StringVar(&opts.title, "title", "", "Video title")
	cmd.Flags().BoolVarP(&opts.assumeYes, "yes", "y", false, "Attest video ownership without prompting")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Keep metadata in memory instead of uploading it")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "Wait for the transaction to be confirmed")
	_ = cmd.MarkFlagRequired("video-id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// runMintSession drives one workflow to submission, or to confirmation when
// opts.wait is set. The session is abandoned on any failure.
func runMintSession(ctx context.Context, cmd *cobra.Command, deps mint.Dependencies, opts mintOptions) error {
	wf, err := mint.New(ctx, deps)
	if err != nil {
		return err
	}
	finished := false
	defer func() {
		if !finished {
			wf.Abandon()
		}
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalFlushTimeout)
		defer cancel()
		if err := wf.Flush(flushCtx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: journal may be missing the final session state: %v\n", err)
		}
	}()

	// Observers run in subscription order after the journal recorder, so
	// every snapshot seen here has already been recorded.
	seen := newSnapshotFeed()
	unsubscribe := wf.Subscribe(seen.set)
	defer unsubscribe()

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	report := func(label string, kind statusKind, message string) {
		fmt.Fprintln(out, renderStatusLine(label, kind, message, colorize))
	}
	fail := func(label string, err error) error {
		report(label, statusError, err.Error())
		return err
	}

	fmt.Fprintf(out, "Session %s\n", wf.ID())

	if err := wf.SubmitIdentifier(ctx, opts.videoID, opts.title); err != nil {
		return fail("Identifiers", err)
	}
	snap := wf.Snapshot()
	report("Identifiers", statusOK, fmt.Sprintf("video %s, edition %s", snap.TokenIDs.VideoTokenID, snap.TokenIDs.EditionTokenID))

	instructions, err := wf.OwnershipInstructions()
	if err != nil {
		return fail("Ownership", err)
	}
	for _, line := range renderSectionHeader("Ownership", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, instructions.Explanation)
	fmt.Fprintf(out, "  Description text: %s\n", instructions.DescriptionText)
	fmt.Fprintf(out, "  Edit the video:   %s\n", instructions.EditURL)

	confirmed := opts.assumeYes
	if !confirmed {
		confirmed, err = promptAttestation(cmd, instructions.Attestation)
		if err != nil {
			return fail("Ownership", err)
		}
	}
	if err := wf.AttestOwnership(confirmed); err != nil {
		return fail("Ownership", err)
	}
	report("Ownership", statusOK, "attested")

	if err := wf.Publish(ctx); err != nil {
		return fail("Metadata", err)
	}
	report("Metadata", statusOK, wf.Snapshot().CID)

	if err := wf.Mint(ctx); err != nil {
		return fail("Mint", err)
	}
	snap = wf.Snapshot()
	report("Mint", statusInfo, "submitted "+snap.Transaction.Hash)

	if !opts.wait {
		if _, err := seen.await(ctx, func(s mint.Snapshot) bool { return s.Version >= snap.Version }); err != nil {
			return err
		}
		finished = true
		fmt.Fprintln(out, "Transaction submitted; follow it with `vidmint history`")
		return nil
	}

	submitted := snap.Version
	var last uint64
	included := false
	for {
		current, err := seen.await(ctx, func(s mint.Snapshot) bool { return s.Version >= submitted && s.Version > last })
		if err != nil {
			return err
		}
		snap = current
		last = snap.Version
		switch {
		case snap.Step == mint.StepDone:
			finished = true
			report("Mint", statusOK, fmt.Sprintf("confirmed in block %d", snap.Transaction.BlockNumber))
			if snap.Metadata != nil {
				fmt.Fprintf(out, "Token: %s\n", snap.Metadata.TokenURL)
			}
			return nil
		case snap.Transaction != nil && snap.Transaction.Status == chain.StatusFailed:
			err := wf.LastError()
			if err == nil {
				err = services.Wrap(services.ErrTransactionFailed, snap.Step.String(), "Mint", "transaction failed", nil)
			}
			return fail("Mint", err)
		case !included && snap.Transaction != nil && snap.Transaction.Status == chain.StatusIncluded:
			included = true
			report("Mint", statusInfo, fmt.Sprintf("included in block %d", snap.Transaction.BlockNumber))
		}
	}
}

func promptAttestation(cmd *cobra.Command, statement string) (bool, error) {
	in := cmd.InOrStdin()
	if isFile(in) && !isTerminal(in) {
		return false, errors.New("stdin is not a terminal; pass --yes to attest ownership")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Confirm: %s [y/N]: ", statement)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// snapshotFeed keeps the most recent snapshot delivered to the command.
type snapshotFeed struct {
	mu     sync.Mutex
	latest mint.Snapshot
	signal chan struct{}
}

func newSnapshotFeed() *snapshotFeed {
	return &snapshotFeed{signal: make(chan struct{}, 1)}
}

func (f *snapshotFeed) set(snap mint.Snapshot) {
	f.mu.Lock()
	f.latest = snap
	f.mu.Unlock()
	select {
	case f.signal <- struct{}{}:
	default:
	}
}

func (f *snapshotFeed) await(ctx context.Context, ready func(mint.Snapshot) bool) (mint.Snapshot, error) {
	for {
		f.mu.Lock()
		snap := f.latest
		f.mu.Unlock()
		if ready(snap) {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return mint.Snapshot{}, ctx.Err()
		case <-f.signal:
		}
	}
}
