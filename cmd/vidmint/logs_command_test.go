package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogsCommandFiltersSession(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	content := `{"msg":"derive","session_id":"abc"}
{"msg":"other","session_id":"def"}
{"msg":"publish","session_id":"abc"}
`
	if err := os.WriteFile(filepath.Join(env.cfg.Paths.LogDir, "vidmint.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--session", "abc"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "other") || !strings.Contains(out, "derive") || !strings.Contains(out, "publish") {
		t.Fatalf("unexpected filtered output:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"logs", "-n", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("logs -n 1: %v", err)
	}
	if strings.TrimSpace(out) != `{"msg":"publish","session_id":"abc"}` {
		t.Fatalf("unexpected last line %q", out)
	}
}
