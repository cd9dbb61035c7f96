// Package daemonrun boots the dubber daemon process: logging, queue
// store, pipeline composition, and signal-aware shutdown.
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
	"time"

	"dubber/internal/config"
	"dubber/internal/daemon"
	"dubber/internal/deps"
	"dubber/internal/logging"
	"dubber/internal/notifications"
	"dubber/internal/pipeline"
	"dubber/internal/queue"
	"dubber/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the dubber daemon runtime loop and blocks until a shutdown
// signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("dubber-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update dubber.log link: %v\n", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "dubber.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	pipe, err := pipeline.Compose(cfg, logger)
	if err != nil {
		logger.Error("compose pipeline", logging.Error(err))
		return err
	}

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManager(cfg, store, pipe, notifier, logger)

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed", logging.Error(err))
		return err
	}

	<-signalCtx.Done()
	logger.Info("dubber daemon shutting down")
	d.Stop()
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "dubber.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
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
	attrs := []any{
		logging.Bool("deepgram_key_present", strings.TrimSpace(cfg.Deepgram.APIKey) != ""),
		logging.Bool("openai_key_present", strings.TrimSpace(cfg.OpenAI.APIKey) != ""),
	}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		key := strings.ToLower(status.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
		if !status.Available {
			logger.Warn("required binary unavailable",
				logging.String("name", status.Name),
				logging.String("detail", status.Detail),
			)
		}
	}
	logger.Info("dependency snapshot", attrs...)
}
