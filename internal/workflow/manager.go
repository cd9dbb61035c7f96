package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"dubber/internal/config"
	"dubber/internal/logging"
	"dubber/internal/notifications"
	"dubber/internal/pipeline"
	"dubber/internal/queue"
)

// JobRunner executes one dubbing request. Satisfied by *pipeline.Pipeline.
type JobRunner interface {
	Run(ctx context.Context, req pipeline.Request) (map[string]pipeline.Result, error)
}

// Manager coordinates queue processing for the daemon.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	runner   JobRunner
	notifier notifications.Service
	logger   *slog.Logger

	pollInterval time.Duration
	slots        chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a workflow manager. A nil notifier falls back to
// the configured service; a nil logger falls back to a no-op logger.
func NewManager(cfg *config.Config, store *queue.Store, runner JobRunner, notifier notifications.Service, logger *slog.Logger) *Manager {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	poll := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}
	workers := cfg.Workflow.JobWorkers
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		runner:       runner,
		notifier:     notifier,
		logger:       logger,
		pollInterval: poll,
		slots:        make(chan struct{}, workers),
	}
}

// Start begins background queue processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	if m.runner == nil {
		return errors.New("workflow job runner not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.poll(runCtx)
	return nil
}

// Stop terminates background processing, waits for in-flight jobs, and
// fails any job left in the processing state.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if count, err := m.store.FailProcessing(ctx, queue.DaemonStopReason); err != nil {
		m.logger.Warn("failed to release processing jobs on shutdown", logging.Error(err))
	} else if count > 0 {
		m.logger.Info("released interrupted jobs", logging.Int64("count", count))
	}
}

func (m *Manager) poll(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.ClaimNextPending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Error("failed to claim next job", logging.Error(err))
			m.sleep(ctx, m.pollInterval)
			continue
		}
		if job == nil {
			m.sleep(ctx, m.pollInterval)
			continue
		}

		select {
		case m.slots <- struct{}{}:
		case <-ctx.Done():
			return
		}
		m.wg.Add(1)
		go func(job *queue.Job) {
			defer m.wg.Done()
			defer func() { <-m.slots }()
			m.processJob(ctx, job)
		}(job)
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
