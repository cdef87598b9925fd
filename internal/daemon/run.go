package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"mvault/internal/config"
	"mvault/internal/engine"
	"mvault/internal/fetchers/ytdlp"
	"mvault/internal/logging"
	"mvault/internal/providers/imvdb"
	"mvault/internal/store"
)

// Run assembles the full pipeline from configuration and blocks until the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pidPath := filepath.Join(cfg.Paths.DataDir, "mvault.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	provider, err := imvdb.New(cfg.Provider.APIKey, cfg.Provider.BaseURL, cfg.ProviderTimeout())
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("init catalog provider: %w", err)
	}
	fetcher, err := ytdlp.New(cfg.Fetcher.Binary, cfg.Fetcher.ExtraArgs)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("init fetcher: %w", err)
	}

	eng := engine.New(cfg, st, provider, fetcher, logger)
	d, err := New(cfg, st, eng, logger)
	if err != nil {
		_ = st.Close()
		return err
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("mvault daemon shutting down", logging.String(logging.FieldComponent, "daemon"))
	d.Stop()
	return nil
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
