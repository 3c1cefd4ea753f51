package services_test

import (
	"errors"
	"strings"
	"testing"

	"vidmint/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrStorage, "build_and_address", "upload", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"build_and_address", "upload", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestRetryableMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", services.Wrap(services.ErrValidation, "collect_identifier", "validate", "bad id", nil), false},
		{"derivation", services.Wrap(services.ErrDerivation, "derive_identifiers", "call", "rpc down", errors.New("dial")), false},
		{"storage", services.Wrap(services.ErrStorage, "build_and_address", "upload", "503", nil), true},
		{"submission", services.Wrap(services.ErrSubmission, "submit_mint", "send", "insufficient funds", nil), true},
		{"transaction", services.Wrap(services.ErrTransactionFailed, "submit_mint", "receipt", "reverted", nil), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Retryable(tc.err); got != tc.want {
				t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestKindLabels(t *testing.T) {
	if kind := services.Kind(services.Wrap(services.ErrTransactionFailed, "", "", "reverted", nil)); kind != "transaction_failure" {
		t.Fatalf("unexpected kind %q", kind)
	}
	if kind := services.Kind(errors.New("plain")); kind != "unknown" {
		t.Fatalf("unexpected kind %q", kind)
	}
	if kind := services.Kind(nil); kind != "" {
		t.Fatalf("expected empty kind for nil, got %q", kind)
	}
}

func TestWrapDefaultsDetail(t *testing.T) {
	err := services.Wrap(services.ErrValidation, " ", "", "", nil)
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}
