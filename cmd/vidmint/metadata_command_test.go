package main

import (
	"encoding/json"
	"strings"
	"testing"

	"vidmint/internal/metadata"
	"vidmint/internal/testsupport"
)

func TestMetadataCommandPrintsCanonicalDocumentAndCID(t *testing.T) {
	env := setupCLITestEnv(t)
	args := []string{"metadata",
		"--video-id", "dQw4w9WgXcQ",
		"--title", "  Never Gonna Give You Up ",
		"--video-token-id", "1234",
		"--edition-token-id", "5678",
	}

	out, _, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected document and CID lines, got %q", out)
	}
	var doc metadata.Document
	if err := json.Unmarshal([]byte(lines[0]), &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc.Title != "Never Gonna Give You Up" || doc.VideoTokenID != "1234" || doc.EditionTokenID != "5678" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.Owner != testsupport.TestOwner {
		t.Fatalf("owner = %s, want configured signer", doc.Owner)
	}
	if !strings.HasPrefix(lines[1], "CID: b") {
		t.Fatalf("expected CIDv1 line, got %q", lines[1])
	}

	again, _, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("metadata rerun: %v", err)
	}
	if again != out {
		t.Fatalf("metadata output is not stable:\n%s\n%s", out, again)
	}
}

func TestMetadataCommandOwnerOverride(t *testing.T) {
	env := setupCLITestEnv(t)
	owner := "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	out, _, err := runCLI(t, []string{"metadata",
		"--video-id", "dQw4w9WgXcQ",
		"--title", "Title",
		"--video-token-id", "1",
		"--edition-token-id", "2",
		"--owner", strings.ToLower(owner),
	}, env.configPath)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	requireContains(t, out, `"owner":"`+owner+`"`)
}

func TestMetadataCommandRejectsBadInput(t *testing.T) {
	env := setupCLITestEnv(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short video id", []string{"--video-id", "abc", "--title", "T"}, "video"},
		{"blank title", []string{"--video-id", "dQw4w9WgXcQ", "--title", "   "}, "title"},
		{"bad owner", []string{"--video-id", "dQw4w9WgXcQ", "--title", "T", "--owner", "0x12"}, "owner"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"metadata", "--video-token-id", "1", "--edition-token-id", "2"}, tt.args...)
			_, _, err := runCLI(t, args, env.configPath)
			if err == nil || !strings.Contains(strings.ToLower(err.Error()), tt.want) {
				t.Fatalf("expected %s error, got %v", tt.want, err)
			}
		})
	}
}
