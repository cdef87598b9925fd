package organize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mvault/internal/services"
)

// Verifier checks a completed download before placement.
type Verifier struct {
	allowedExtensions map[string]struct{}
}

// NewVerifier builds a verifier from an extension allowlist (entries include
// the leading dot, matched case-insensitively).
func NewVerifier(allowedExtensions []string) *Verifier {
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(strings.TrimSpace(ext))] = struct{}{}
	}
	return &Verifier{allowedExtensions: allowed}
}

// Verify rejects missing, empty, or disallowed files, and compares the file
// against checksum (SHA-256 hex) when the provider supplied one. Verification
// failures are terminal: retrying the same download yields the same file.
func (v *Verifier) Verify(path, checksum string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "verifier", "stat download", "Downloaded file is missing", err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, "verifier", "stat download", "Downloaded path is a directory", nil)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrValidation, "verifier", "check size", "Downloaded file is empty", nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if len(v.allowedExtensions) > 0 {
		if _, ok := v.allowedExtensions[ext]; !ok {
			return services.Wrap(
				services.ErrValidation,
				"verifier",
				"check extension",
				fmt.Sprintf("File extension %q is not in the allowed set", ext),
				nil,
			)
		}
	}

	if checksum = strings.ToLower(strings.TrimSpace(checksum)); checksum != "" {
		actual, err := fileChecksum(path)
		if err != nil {
			return services.Wrap(services.ErrValidation, "verifier", "hash download", "Failed to hash downloaded file", err)
		}
		if actual != checksum {
			return services.Wrap(
				services.ErrValidation,
				"verifier",
				"check checksum",
				fmt.Sprintf("Checksum %s does not match expected %s", actual, checksum),
				nil,
			)
		}
	}
	return nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
