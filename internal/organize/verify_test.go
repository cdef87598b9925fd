package organize

import (
	"os"
	"path/filepath"
	"testing"

	"mvault/internal/services"
)

// SHA-256 of the literal "content".
const contentDigest = "ed7002b439e9ac845f22357d822bac1444730fbdb6016d3ec9432297b9ec9f73"

func TestVerifyAcceptsValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	v := NewVerifier([]string{".mp4", ".mkv"})
	if err := v.Verify(path, ""); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	v := NewVerifier([]string{".mp4"})
	err := v.Verify(path, "")
	if err == nil {
		t.Fatalf("expected empty file rejection")
	}
	if services.IsRetryable(err) {
		t.Fatalf("verification failures must be terminal")
	}
}

func TestVerifyRejectsDisallowedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video.avi")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	v := NewVerifier([]string{".mp4"})
	if err := v.Verify(path, ""); err == nil {
		t.Fatalf("expected extension rejection")
	}
}

func TestVerifyRejectsMissingFile(t *testing.T) {
	v := NewVerifier([]string{".mp4"})
	if err := v.Verify(filepath.Join(t.TempDir(), "missing.mp4"), ""); err == nil {
		t.Fatalf("expected missing file rejection")
	}
}

func TestVerifyChecksumMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	v := NewVerifier([]string{".mp4"})
	if err := v.Verify(path, contentDigest); err != nil {
		t.Fatalf("matching checksum rejected: %v", err)
	}
	// Hints arrive in whatever case the provider uses.
	if err := v.Verify(path, "ED7002B439E9AC845F22357D822BAC1444730FBDB6016D3EC9432297B9EC9F73"); err != nil {
		t.Fatalf("uppercase checksum rejected: %v", err)
	}
}

func TestVerifyChecksumMismatchIsTerminal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(path, []byte("different bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	v := NewVerifier([]string{".mp4"})
	err := v.Verify(path, contentDigest)
	if err == nil {
		t.Fatalf("expected checksum mismatch rejection")
	}
	if services.IsRetryable(err) {
		t.Fatalf("checksum mismatches must be terminal")
	}
}
