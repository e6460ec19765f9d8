package indexer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/blockedby/media-indexer/internal/logger"
)

// ErrAlreadyRunning is returned when a run is started while another is active.
var ErrAlreadyRunning = errors.New("an index run is already running")

// RunScanner executes the scan of a run
type RunScanner interface {
	Scan(ctx context.Context, run *Run, progress ProgressFunc) (*Result, error)
}

// RunReporter renders run state for the operator
type RunReporter interface {
	Started(ctx context.Context, msg StatusMessage) error
	Progress(ctx context.Context, msg StatusMessage, snap Snapshot) error
	Finished(ctx context.Context, msg StatusMessage, snap Snapshot) error
	Failed(ctx context.Context, msg StatusMessage, cause error) error
}

// Controller admits at most one run at a time. A start while busy is rejected,
// never queued.
type Controller struct {
	mu       sync.Mutex
	current  *Run
	cancelFn context.CancelFunc
	wg       sync.WaitGroup

	scanner   RunScanner
	reporter  RunReporter
	publisher EventPublisher
	log       *logger.Logger
	now       func() time.Time
}

// NewController creates a controller. publisher may be nil.
func NewController(scanner RunScanner, reporter RunReporter, publisher EventPublisher) *Controller {
	return &Controller{
		scanner:   scanner,
		reporter:  reporter,
		publisher: publisher,
		log:       logger.Get().Component("controller"),
		now:       time.Now,
	}
}

// Busy reports whether a run is active.
func (c *Controller) Busy() bool {
	return c.Current() != nil
}

// Current returns the active run, nil when idle.
func (c *Controller) Current() *Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Start launches a run in its own goroutine and returns immediately.
// It returns ErrAlreadyRunning if a run is active.
func (c *Controller) Start(req StartRequest) (*Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return nil, ErrAlreadyRunning
	}

	// the run outlives the update handler that started it
	ctx, cancel := context.WithCancel(context.Background())
	run := NewRun(req, c.now())
	c.current = run
	c.cancelFn = cancel

	c.wg.Add(1)
	go c.run(ctx, run)

	return run, nil
}

// Cancel asks the active run to stop after the current message.
// It reports false when nothing is running.
func (c *Controller) Cancel() bool {
	run := c.Current()
	if run == nil {
		return false
	}
	run.Cancel()
	c.log.Info().Str("run_id", run.ID.String()).Msg("cancel requested")
	return true
}

// Stop aborts the active run, interrupting in-flight calls.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelFn != nil {
		c.cancelFn()
	}
}

// Wait blocks until the active run has released the slot.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) run(ctx context.Context, run *Run) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		if c.current == run {
			c.current = nil
			c.cancelFn = nil
		}
		c.mu.Unlock()
	}()

	log := c.log.With().Str("run_id", run.ID.String()).Int64("chat_id", run.ChatID).Logger()
	log.Info().Int("last_id", run.LastID).Str("title", run.Title).Msg("index run started")

	if err := c.reporter.Started(ctx, run.Status); err != nil {
		log.Warn().Err(err).Msg("failed to show start status")
	}

	res, err := c.scanner.Scan(ctx, run, func(ctx context.Context, snap Snapshot) error {
		return c.reporter.Progress(ctx, run.Status, snap)
	})

	// reports go out even when shutdown cancelled ctx
	reportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err != nil {
		log.Error().Err(err).Msg("index run failed")
		if repErr := c.reporter.Failed(reportCtx, run.Status, err); repErr != nil {
			log.Warn().Err(repErr).Msg("failed to report run failure")
		}
		c.publishCompleted(reportCtx, run, false, err)
		return
	}

	snap := run.Snapshot(c.now())
	snap.Cancelled = res.Cancelled
	if err := c.reporter.Finished(reportCtx, run.Status, snap); err != nil {
		log.Warn().Err(err).Msg("failed to report run summary")
	}
	c.publishCompleted(reportCtx, run, res.Cancelled, nil)
	log.Info().Bool("cancelled", res.Cancelled).Dur("elapsed", snap.Elapsed).Msg("index run finished")
}

func (c *Controller) publishCompleted(ctx context.Context, run *Run, cancelled bool, runErr error) {
	if c.publisher == nil {
		return
	}
	snap := run.Snapshot(c.now())
	event := IndexCompletedEvent{
		RunID:      run.ID,
		ChatID:     run.ChatID,
		Title:      run.Title,
		LastID:     run.LastID,
		Counters:   snap.Counters,
		Cancelled:  cancelled,
		StartedAt:  run.StartedAt,
		FinishedAt: c.now(),
	}
	if runErr != nil {
		event.Error = runErr.Error()
	}
	if err := c.publisher.PublishIndexCompleted(ctx, event); err != nil {
		c.log.Warn().Err(err).Str("run_id", run.ID.String()).Msg("failed to publish completion event")
	}
}
