package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"vidmint/internal/api"
	"vidmint/internal/chain"
	"vidmint/internal/config"
	"vidmint/internal/daemon"
	"vidmint/internal/journal"
	"vidmint/internal/logging"
	"vidmint/internal/metadata"
	"vidmint/internal/mint"
	"vidmint/internal/testsupport"
	"vidmint/internal/tokenid"
)

func template(cfg *config.Config) mint.Dependencies {
	fake := testsupport.NewFakeChain()
	return mint.Dependencies{
		Deriver:   &testsupport.FakeDeriver{Pair: tokenid.Pair{VideoTokenID: "1", EditionTokenID: "2"}},
		Addresser: testsupport.NewFlakyAddresser(),
		Submitter: chain.NewSubmitter(fake, fake, chain.Options{PollInterval: cfg.ReceiptPollInterval()}, nil),
		Metadata:  metadata.NewBuilder(cfg.Site.TokenBaseURL),
		Owner:     common.HexToAddress(testsupport.TestOwner),
	}
}

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	store := testsupport.MustOpenJournal(t, cfg)
	d, err := daemon.New(cfg, template(cfg), store, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("secret"))
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status()
	if !status.Running || status.APIAddress == "" {
		t.Fatalf("unexpected status %+v", status)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	d, err := daemon.New(cfg, template(cfg), nil, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	err = d.Start(context.Background())
	if err == nil {
		d.Stop()
		t.Fatal("expected lock conflict")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDaemonServesSessionAPI(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("secret"))
	d := newDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	base := "http://" + d.Status().APIAddress

	resp, err := http.Get(base + "/api/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	var health api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	resp.Body.Close()
	if health.Status != "ok" || health.ChainID != cfg.Chain.ChainID || health.Owner != testsupport.TestOwner {
		t.Fatalf("unexpected health %+v", health)
	}

	req, _ := http.NewRequest(http.MethodPost, base+"/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	var snap mint.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || snap.SessionID == "" {
		t.Fatalf("unexpected create response %d %+v", resp.StatusCode, snap)
	}
	wf, ok := d.Sessions().Get(snap.SessionID)
	if !ok {
		t.Fatalf("session not registered")
	}

	d.Stop()
	select {
	case <-wf.Done():
	case <-time.After(time.Second):
		t.Fatal("expected sessions abandoned on stop")
	}
}

func TestDaemonKeepsRegistryAcrossRestarts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)
	registry := d.Sessions()
	if got := d.Status().Sessions; got != 0 {
		t.Fatalf("expected no sessions before start, got %d", got)
	}

	for round := 0; round < 2; round++ {
		if err := d.Start(context.Background()); err != nil {
			t.Fatalf("Start (round %d): %v", round, err)
		}
		if d.Sessions() != registry {
			t.Fatalf("registry replaced on start (round %d)", round)
		}
		if _, err := d.Sessions().Create(context.Background()); err != nil {
			t.Fatalf("Create (round %d): %v", round, err)
		}
		if got := d.Status().Sessions; got != 1 {
			t.Fatalf("expected one session (round %d), got %d", round, got)
		}
		d.Stop()
	}
}

func TestDaemonCloseJournalsAbandonedSessions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	d, err := daemon.New(cfg, template(cfg), store, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	wf, err := d.Sessions().Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := wf.SubmitIdentifier(context.Background(), "dQw4w9WgXcQ", "Test Video"); err != nil {
		t.Fatalf("SubmitIdentifier: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenJournal(t, cfg)
	rec, err := reopened.GetSession(context.Background(), wf.ID())
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if rec == nil || !rec.Abandoned || rec.Step != string(mint.StepValidateOwnership) || rec.VideoTokenID != "1" {
		t.Fatalf("expected abandoned session in journal, got %+v", rec)
	}
}
