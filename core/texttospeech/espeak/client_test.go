package espeak

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}

	path := filepath.Join(t.TempDir(), "espeak-ng")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write fake binary: %v", err)
	}
	return path
}

func TestSynthesizePassesTextAndReturnsStdout(t *testing.T) {
	binary := fakeBinary(t, `printf 'RIFF:%s' "$*"`)

	result, err := NewSynthesizer(WithBinary(binary), WithVoice("en-gb"), WithSpeed(150)).
		Synthesize(context.Background(), "  good morning ")
	if err != nil {
		t.Fatalf("expected synthesis to succeed, got %v", err)
	}

	output := string(result.Data)
	if !strings.HasPrefix(output, "RIFF:") {
		t.Fatalf("expected stdout to be returned, got %q", output)
	}
	for _, arg := range []string{"--stdout", "-v en-gb", "-s 150", "-- good morning"} {
		if !strings.Contains(output, arg) {
			t.Fatalf("expected argument %q in %q", arg, output)
		}
	}
}

func TestSynthesizeReportsFailure(t *testing.T) {
	binary := fakeBinary(t, `echo "no voice" >&2; exit 1`)

	_, err := NewSynthesizer(WithBinary(binary)).Synthesize(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "no voice") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	if _, err := NewSynthesizer().Synthesize(context.Background(), "   "); err == nil {
		t.Fatalf("expected empty text to be rejected")
	}
}

func TestSynthesizeFailsForMissingBinary(t *testing.T) {
	s := NewSynthesizer(WithBinary(filepath.Join(t.TempDir(), "missing")))
	if s.Available() {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if _, err := s.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatalf("expected missing binary to fail")
	}
}
