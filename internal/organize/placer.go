package organize

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"mvault/internal/logging"
	"mvault/internal/services"
)

// Placer moves verified downloads from staging into the library.
type Placer struct {
	libraryDir string
	stagingDir string
	logger     *slog.Logger
}

// NewPlacer constructs a placer rooted at the given library and staging dirs.
func NewPlacer(libraryDir, stagingDir string, logger *slog.Logger) *Placer {
	return &Placer{
		libraryDir: libraryDir,
		stagingDir: stagingDir,
		logger:     logging.NewComponentLogger(logger, "placer"),
	}
}

// StagingDir allocates a per-job staging directory. Downloads land here and
// are only ever moved out whole.
func (p *Placer) StagingDir(jobID string) (string, error) {
	dir := filepath.Join(p.stagingDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrPlacement, "placer", "ensure staging", "Failed to create staging directory", err)
	}
	return dir, nil
}

// CleanupStaging removes a job's staging directory and anything left inside.
func (p *Placer) CleanupStaging(jobID string) {
	dir := filepath.Join(p.stagingDir, jobID)
	if err := os.RemoveAll(dir); err != nil {
		p.logger.Warn("failed to remove staging directory", logging.String("dir", dir), logging.Error(err))
	}
}

// Place moves src into the library at the planned destination and returns
// the final absolute path. An existing file at the destination gets a
// numeric suffix rather than being overwritten. The move is an atomic rename
// when staging and library share a filesystem; across filesystems it falls
// back to copy-then-rename within the library so readers still never see a
// partial file.
func (p *Placer) Place(src string, plan Plan) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", services.Wrap(services.ErrValidation, "placer", "validate input", "No source file to place", nil)
	}

	destDir := filepath.Join(p.libraryDir, plan.ArtistDir)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrPlacement, "placer", "ensure artist dir", "Failed to create artist directory", err)
	}

	target, err := nextAvailablePath(destDir, plan.FileName)
	if err != nil {
		return "", services.Wrap(services.ErrPlacement, "placer", "allocate filename", "Unable to allocate library filename", err)
	}

	if err := moveFile(src, target); err != nil {
		return "", services.Wrap(services.ErrPlacement, "placer", "move to library", "Failed to move file into library", err)
	}

	p.logger.Info("placed file in library", logging.String("target", target))
	return target, nil
}

// nextAvailablePath returns dir/name, or dir/stem (2).ext and upward when
// the name is taken.
func nextAvailablePath(dir, name string) (string, error) {
	const maxAttempts = 1000
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate := filepath.Join(dir, name)
		if attempt > 1 {
			candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, attempt, ext))
		}
		if _, err := os.Stat(candidate); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return candidate, nil
			}
			return "", err
		}
	}
	return "", fmt.Errorf("exhausted filename slots for %s in %s", name, dir)
}

func moveFile(src, dst string) error {
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(renameErr, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return renameErr
	}

	// Cross-device: copy to a temp file beside the destination, then rename
	// within the library filesystem.
	tmp := dst + ".partial"
	if err := copyFile(src, tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Remove(src); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return out.Close()
}
