package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"vidmint/internal/api"
	"vidmint/internal/journal"
	"vidmint/internal/testsupport"
)

func seedHistory(t *testing.T, env *cliTestEnv) {
	t.Helper()
	store := testsupport.MustOpenJournal(t, env.cfg)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := []journal.SessionRecord{
		{ID: "11111111-aaaa", Step: "SubmitMint", VideoID: "dQw4w9WgXcQ", Title: "First", CID: "bafkfirst",
			TxHash: "0x" + strings.Repeat("ab", 32), TxStatus: "failed", CreatedAt: base, UpdatedAt: base},
		{ID: "22222222-bbbb", Step: "Done", VideoID: "9bZkp7q19f0", Title: "Second", CID: "bafksecond",
			TxHash: "0x" + strings.Repeat("cd", 32), TxStatus: "confirmed", CreatedAt: base, UpdatedAt: base.Add(time.Minute)},
	}
	for _, rec := range sessions {
		if err := store.RecordSession(ctx, rec); err != nil {
			t.Fatalf("RecordSession: %v", err)
		}
	}
	if err := store.RecordTransaction(ctx, journal.TransactionRecord{
		SessionID:   "22222222-bbbb",
		TxHash:      sessions[1].TxHash,
		VideoID:     "9bZkp7q19f0",
		CID:         "bafksecond",
		Status:      "confirmed",
		BlockNumber: 42,
		CreatedAt:   base,
		UpdatedAt:   base.Add(time.Minute),
	}); err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
}

func TestHistoryCommandTable(t *testing.T) {
	env := setupCLITestEnv(t)
	seedHistory(t, env)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "SESSION")
	requireContains(t, out, "22222222")
	requireContains(t, out, "9bZkp7q19f0")
	if strings.Index(out, "22222222") > strings.Index(out, "11111111") {
		t.Fatalf("expected newest session first:\n%s", out)
	}
}

func TestHistoryCommandJSONHonoursLimit(t *testing.T) {
	env := setupCLITestEnv(t)
	seedHistory(t, env)

	out, _, err := runCLI(t, []string{"history", "--json", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var resp api.HistoryListResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(resp.Sessions) != 1 || resp.Sessions[0].ID != "22222222-bbbb" {
		t.Fatalf("unexpected sessions %+v", resp.Sessions)
	}
}

func TestHistoryCommandDescribe(t *testing.T) {
	env := setupCLITestEnv(t)
	seedHistory(t, env)

	out, _, err := runCLI(t, []string{"history", "22222222-bbbb"}, env.configPath)
	if err != nil {
		t.Fatalf("history describe: %v", err)
	}
	requireContains(t, out, "bafksecond")
	requireContains(t, out, "confirmed")
	requireContains(t, out, "42")

	_, _, err = runCLI(t, []string{"history", "missing"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHistoryCommandEmptyJournal(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No sessions recorded")
}
