package diagnostics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fleet-console/fleet-console/internal/models"
)

var (
	// ErrInFlight is returned by Start while an analysis is still running.
	ErrInFlight = errors.New("analysis already in flight")
	// ErrUnknownRun is returned by Wait for a run id the runner does not track.
	ErrUnknownRun = errors.New("unknown analysis run")
)

// State of a diagnostics run
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCanceled  State = "canceled"
)

// Run is a snapshot of one analysis.
type Run struct {
	ID         uuid.UUID  `json:"id"`
	State      State      `json:"state"`
	Devices    int        `json:"devices"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Report     *Report    `json:"report,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Analyzer produces a fleet report.
type Analyzer interface {
	Analyze(ctx context.Context, devices []models.Device) (*Report, error)
}

// maxTrackedRuns bounds how many finished runs Wait can still look up.
const maxTrackedRuns = 8

// runHandle is the state owned by a single run. Its goroutine only ever
// writes its own handle.
type runHandle struct {
	run    Run
	cancel context.CancelFunc
	done   chan struct{}
}

// Runner executes one analysis at a time in the background. Results are
// fenced by run: a canceled run never records its late result, and a run
// never touches another run's snapshot.
type Runner struct {
	analyzer Analyzer
	timeout  time.Duration
	now      func() time.Time

	mu     sync.Mutex
	latest *runHandle
	runs   map[uuid.UUID]*runHandle
	order  []uuid.UUID
}

// NewRunner creates a runner. A zero timeout means no deadline beyond the
// analyzer's own.
func NewRunner(a Analyzer, timeout time.Duration) *Runner {
	return &Runner{
		analyzer: a,
		timeout:  timeout,
		now:      time.Now,
		runs:     make(map[uuid.UUID]*runHandle),
	}
}

func (r *Runner) stamp() *time.Time {
	t := r.now().UTC()
	return &t
}

// Start launches an analysis of devices.
func (r *Runner) Start(devices []models.Device) (Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.latest != nil && r.latest.run.State == StateRunning {
		return r.latest.run, ErrInFlight
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), r.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	h := &runHandle{
		run: Run{
			ID:        uuid.New(),
			State:     StateRunning,
			Devices:   len(devices),
			StartedAt: r.stamp(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.track(h)

	go r.run(ctx, h, devices)

	log.Info().Str("run_id", h.run.ID.String()).Int("devices", len(devices)).Msg("Fleet analysis started")
	return h.run, nil
}

// track makes h the latest run and forgets the oldest beyond maxTrackedRuns.
func (r *Runner) track(h *runHandle) {
	r.latest = h
	r.runs[h.run.ID] = h
	r.order = append(r.order, h.run.ID)
	for len(r.order) > maxTrackedRuns {
		delete(r.runs, r.order[0])
		r.order = r.order[1:]
	}
}

func (r *Runner) run(ctx context.Context, h *runHandle, devices []models.Device) {
	defer close(h.done)
	defer h.cancel()

	report, err := r.analyzer.Analyze(ctx, devices)

	r.mu.Lock()
	defer r.mu.Unlock()

	id := h.run.ID.String()
	if h.run.State != StateRunning {
		log.Debug().Str("run_id", id).Msg("Discarding stale analysis result")
		return
	}

	h.run.FinishedAt = r.stamp()
	if err != nil {
		h.run.State = StateFailed
		h.run.Error = err.Error()
		log.Error().Err(err).Str("run_id", id).Msg("Fleet analysis failed")
		return
	}
	h.run.State = StateSucceeded
	h.run.Report = report
}

// Cancel stops the latest analysis. It reports false when nothing was
// running.
func (r *Runner) Cancel() (Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.latest == nil {
		return Run{State: StateIdle}, false
	}
	return r.cancelRun(r.latest)
}

// CancelRun stops the analysis with the given id. It reports false when that
// run is unknown or no longer running.
func (r *Runner) CancelRun(id uuid.UUID) (Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.runs[id]
	if !ok {
		return Run{}, false
	}
	return r.cancelRun(h)
}

func (r *Runner) cancelRun(h *runHandle) (Run, bool) {
	if h.run.State != StateRunning {
		return h.run, false
	}
	h.cancel()
	h.run.State = StateCanceled
	h.run.FinishedAt = r.stamp()

	log.Info().Str("run_id", h.run.ID.String()).Msg("Fleet analysis canceled")
	return h.run, true
}

// Status returns the latest run.
func (r *Runner) Status() Run {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.latest == nil {
		return Run{State: StateIdle}
	}
	return r.latest.run
}

// Wait blocks until the goroutine of run id has returned, then returns that
// run. A nil id waits for the latest run. Runs that are no longer tracked
// yield ErrUnknownRun.
func (r *Runner) Wait(ctx context.Context, id uuid.UUID) (Run, error) {
	r.mu.Lock()
	h := r.latest
	if id != uuid.Nil {
		h = r.runs[id]
	}
	r.mu.Unlock()

	if h == nil {
		if id != uuid.Nil {
			return Run{}, ErrUnknownRun
		}
		return Run{State: StateIdle}, nil
	}

	select {
	case <-h.done:
	case <-ctx.Done():
		return Run{}, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return h.run, nil
}
