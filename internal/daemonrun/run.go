// Package daemonrun hosts the process-level runtime shared by noticierod and
// "noticiero serve".
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"noticiero/internal/config"
	"noticiero/internal/daemon"
	"noticiero/internal/deps"
	"noticiero/internal/logging"
	"noticiero/internal/pipeline"
	"noticiero/internal/store"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the noticiero daemon and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logOpts := logging.ConfigOptions(cfg, "stdout")
	logOpts.Level = level
	logOpts.Development = opts.Development
	logger, err := logging.New(logOpts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.DataDir, "noticierod.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}
	defer st.Close()

	orch, err := pipeline.Build(cfg, st, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "pipeline setup failed", "pipeline_setup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run 'noticiero config validate' and export the missing credentials"),
		)
		return err
	}

	d, err := daemon.New(cfg, st, orch, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Stop()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("noticiero daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffmpeg := deps.CheckFFmpeg(cfg.FFmpegBinary())
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("llm_provider", cfg.LLM.Provider),
		logging.Bool("llm_key_present", cfg.RequireGeneration() == nil),
		logging.Bool("storage_configured", cfg.RequireStorage() == nil),
		logging.Bool("ffmpeg_available", ffmpeg.Available),
		logging.String("ffmpeg_binary", ffmpeg.Command),
	)
}
