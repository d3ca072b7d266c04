package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"moviesweep/models"
	"moviesweep/retention"

	"github.com/robfig/cron/v3"
)

// ErrSweepInProgress is returned when a sweep is requested while another one runs
var ErrSweepInProgress = errors.New("a sweep is already in progress")

// RunPlan is the configuration snapshot a sweep runs with
type RunPlan struct {
	Tiers         []models.LibraryTier
	Thresholds    models.ThresholdConfig
	Admins        retention.AdminSet
	ExpiryHorizon time.Duration
	DryRun        bool
	KeepHistory   time.Duration // zero keeps all run history
}

// RunPruner removes old audit history
type RunPruner interface {
	DeleteOlderThan(olderThan time.Duration) (int64, error)
}

// JobManager schedules sweeps and makes sure only one runs at a time
type JobManager struct {
	sweeper  *Sweeper
	plan     func() RunPlan
	pruner   RunPruner
	schedule string
	cron     *cron.Cron
	now      func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup // triggered sweeps; cron waits for its own
	running bool
	mu      sync.RWMutex

	// held for the whole of a sweep
	sweepMu sync.Mutex
}

// NewJobManager creates a new job manager. plan is called at the start of
// every sweep; pruner may be nil.
func NewJobManager(sweeper *Sweeper, schedule string, plan func() RunPlan, pruner RunPruner) *JobManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &JobManager{
		sweeper:  sweeper,
		plan:     plan,
		pruner:   pruner,
		schedule: schedule,
		cron:     cron.New(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		running:  false,
	}
}

// Start registers the scheduled sweep and starts the scheduler
func (jm *JobManager) Start() error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	if jm.running {
		slog.Info("job manager is already running")
		return nil
	}

	if len(jm.cron.Entries()) == 0 {
		if _, err := jm.cron.AddFunc(jm.schedule, jm.scheduledSweep); err != nil {
			return fmt.Errorf("invalid sweep schedule %q: %w", jm.schedule, err)
		}
	}
	if jm.ctx.Err() != nil {
		jm.ctx, jm.cancel = context.WithCancel(context.Background())
	}

	jm.cron.Start()
	jm.running = true
	slog.Info("job manager started", "schedule", jm.schedule)
	return nil
}

// Stop stops the scheduler, cancels running sweeps and waits for them
func (jm *JobManager) Stop() {
	jm.mu.Lock()
	if !jm.running {
		jm.mu.Unlock()
		return
	}
	jm.running = false
	cancel := jm.cancel
	jm.mu.Unlock()

	slog.Info("stopping job manager")
	stopped := jm.cron.Stop()
	cancel()
	<-stopped.Done()
	jm.wg.Wait()
	slog.Info("job manager stopped")
}

func (jm *JobManager) context() context.Context {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	return jm.ctx
}

// IsRunning returns whether the job manager is currently running
func (jm *JobManager) IsRunning() bool {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	return jm.running
}

// NextRun returns when the scheduled sweep fires next, zero when not started
func (jm *JobManager) NextRun() time.Time {
	entries := jm.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// TriggerSweep starts a sweep in the background. An empty tier sweeps every
// configured tier. It fails fast with ErrSweepInProgress when busy.
func (jm *JobManager) TriggerSweep(tier models.LibraryTier, dryRun bool) error {
	if !jm.sweepMu.TryLock() {
		return ErrSweepInProgress
	}

	plan := jm.plan()
	plan.DryRun = dryRun
	if tier != "" {
		plan.Tiers = []models.LibraryTier{tier}
	}
	ctx := jm.context()

	jm.wg.Add(1)
	go func() {
		defer jm.wg.Done()
		defer jm.sweepMu.Unlock()
		if _, err := jm.execute(ctx, plan); err != nil {
			slog.Error("triggered sweep failed", "error", err)
		}
	}()
	return nil
}

// RunNow runs a sweep with the given plan and waits for it
func (jm *JobManager) RunNow(ctx context.Context, plan RunPlan) (map[models.LibraryTier][]models.Verdict, error) {
	if !jm.sweepMu.TryLock() {
		return nil, ErrSweepInProgress
	}
	defer jm.sweepMu.Unlock()
	return jm.execute(ctx, plan)
}

func (jm *JobManager) scheduledSweep() {
	if !jm.sweepMu.TryLock() {
		slog.Warn("skipping scheduled sweep, previous sweep still running")
		return
	}
	defer jm.sweepMu.Unlock()

	slog.Info("running scheduled sweep")
	if _, err := jm.execute(jm.context(), jm.plan()); err != nil {
		slog.Error("scheduled sweep failed", "error", err)
	}
}

// execute must be called with sweepMu held
func (jm *JobManager) execute(ctx context.Context, plan RunPlan) (map[models.LibraryTier][]models.Verdict, error) {
	jm.sweeper.Configure(plan.Admins, plan.ExpiryHorizon)
	results, err := jm.sweeper.RunAll(ctx, plan.Tiers, plan.Thresholds, jm.now().UTC(), plan.DryRun)

	if jm.pruner != nil && plan.KeepHistory > 0 {
		removed, perr := jm.pruner.DeleteOlderThan(plan.KeepHistory)
		if perr != nil {
			slog.Warn("failed to prune sweep history", "error", perr)
		} else if removed > 0 {
			slog.Info("pruned sweep history", "runs", removed)
		}
	}

	return results, err
}
