package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"noticiero/internal/logging"
	"noticiero/internal/services"
)

const (
	defaultQueueSize    = 16
	defaultDrainTimeout = 10 * time.Minute
)

var (
	// ErrRunnerStopped is returned by Submit when the runner is not accepting work.
	ErrRunnerStopped = errors.New("audio runner not running")
	// ErrQueueFull is returned by Submit when the job buffer is exhausted.
	ErrQueueFull = errors.New("audio queue full")
)

// JobFunc renders audio for one noticiero.
type JobFunc func(ctx context.Context, noticieroID string) error

// RunnerStatus is a snapshot of background audio work.
type RunnerStatus struct {
	Running     bool      `json:"running"`
	Queued      int       `json:"queued"`
	Processed   int       `json:"processed"`
	Failed      int       `json:"failed"`
	LastID      string    `json:"lastId,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
	LastRunTime time.Time `json:"lastRunTime,omitzero"`
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithDrainTimeout bounds how long Stop waits for queued jobs before
// cancelling the one in flight.
func WithDrainTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.drainTimeout = d
		}
	}
}

// Runner executes audio jobs one at a time on a background goroutine.
// Failures are logged, never returned to the submitter.
type Runner struct {
	process      JobFunc
	size         int
	drainTimeout time.Duration
	logger       *slog.Logger

	mu       sync.Mutex
	running  bool
	jobs     chan string
	reserved int
	pending  sync.WaitGroup
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	status   RunnerStatus
}

// NewRunner builds a runner with a buffer of queueSize pending jobs.
func NewRunner(process JobFunc, queueSize int, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	r := &Runner{
		process:      process,
		size:         queueSize,
		drainTimeout: defaultDrainTimeout,
		logger:       logging.NewComponentLogger(logger, "audio-runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins background processing. Jobs inherit the values of ctx but not
// its cancellation; only Stop ends them.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("audio runner already running")
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.jobs = make(chan string, r.size)
	r.cancel = cancel
	r.running = true
	r.status.Running = true
	r.wg.Add(1)
	go r.loop(runCtx, r.jobs)
	return nil
}

// Stop refuses new jobs and waits for the queued ones. Once the drain
// timeout passes, the job in flight is cancelled and the rest of the queue
// fails fast.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.status.Running = false
	cancel := r.cancel
	r.mu.Unlock()

	r.pending.Wait()
	r.mu.Lock()
	close(r.jobs)
	r.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(r.drainTimeout):
		logging.WarnWithContext(r.logger, "audio drain timed out", "audio_drain_timeout",
			logging.Duration("timeout", r.drainTimeout),
			logging.String(logging.FieldImpact, "remaining audio jobs were cancelled"),
			logging.String(logging.FieldErrorHint, "run 'noticiero audio render <id>' for the failed noticieros"),
		)
		cancel()
		<-drained
	}
	cancel()
}

// Slot is a queue position held for one job. Exactly one of Submit or
// Release must be called.
type Slot struct {
	r    *Runner
	done bool
}

// Reserve holds a queue position so a caller can commit a state change
// before handing the job over. Stop waits for outstanding slots.
func (r *Runner) Reserve() (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil, ErrRunnerStopped
	}
	if len(r.jobs)+r.reserved >= cap(r.jobs) {
		return nil, ErrQueueFull
	}
	r.reserved++
	r.pending.Add(1)
	return &Slot{r: r}, nil
}

// Submit enqueues noticieroID into the reserved position.
func (s *Slot) Submit(noticieroID string) {
	if s.done {
		return
	}
	s.done = true
	r := s.r
	r.mu.Lock()
	r.reserved--
	r.jobs <- noticieroID
	r.status.Queued = len(r.jobs)
	r.mu.Unlock()
	r.pending.Done()
}

// Release gives the position back unused.
func (s *Slot) Release() {
	if s.done {
		return
	}
	s.done = true
	s.r.mu.Lock()
	s.r.reserved--
	s.r.mu.Unlock()
	s.r.pending.Done()
}

// Submit queues an audio job without blocking.
func (r *Runner) Submit(noticieroID string) error {
	slot, err := r.Reserve()
	if err != nil {
		return err
	}
	slot.Submit(noticieroID)
	return nil
}

// Accepting reports whether Submit would currently enqueue.
func (r *Runner) Accepting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running && len(r.jobs)+r.reserved < cap(r.jobs)
}

// Status returns a copy of the runner counters.
func (r *Runner) Status() RunnerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := r.status
	if r.jobs != nil {
		status.Queued = len(r.jobs)
	}
	return status
}

func (r *Runner) loop(ctx context.Context, jobs <-chan string) {
	defer r.wg.Done()
	for id := range jobs {
		r.run(ctx, id)
	}
}

func (r *Runner) run(ctx context.Context, id string) {
	jobCtx := services.WithNoticieroID(ctx, id)
	jobCtx = services.WithStage(jobCtx, "audio")
	logger := logging.WithContext(jobCtx, r.logger)

	started := time.Now()
	logger.Info("audio job started")
	err := r.process(jobCtx, id)

	r.mu.Lock()
	r.status.LastID = id
	r.status.LastRunTime = started
	if err != nil {
		r.status.Failed++
		r.status.LastError = err.Error()
	} else {
		r.status.Processed++
		r.status.LastError = ""
	}
	r.mu.Unlock()

	if err != nil {
		logging.ErrorWithContext(logger, "audio job failed", "audio_job_failed",
			logging.Error(err),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldErrorHint, "re-run with 'noticiero audio render <id>' once the cause is fixed"),
		)
		return
	}
	logger.Info("audio job completed", logging.Duration("elapsed", time.Since(started)))
}
