package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"moviesweep/metrics"
	"moviesweep/models"
	"moviesweep/retention"

	"github.com/google/uuid"
)

// SweeperOptions configures a Sweeper. Recorder and Metrics may be nil.
type SweeperOptions struct {
	Admins        retention.AdminSet
	ExpiryHorizon time.Duration
	Recorder      EventRecorder
	Metrics       *metrics.Collector
}

// Sweeper evaluates every movie of a tier and deletes the expired ones
type Sweeper struct {
	source   MovieSource
	deleter  Deleter
	recorder EventRecorder
	metrics  *metrics.Collector

	mu      sync.RWMutex
	admins  retention.AdminSet
	horizon time.Duration
}

// NewSweeper creates a new sweeper
func NewSweeper(source MovieSource, deleter Deleter, opts SweeperOptions) *Sweeper {
	return &Sweeper{
		source:   source,
		deleter:  deleter,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		admins:   opts.Admins,
		horizon:  opts.ExpiryHorizon,
	}
}

// Configure replaces the admin set and the expiry warning horizon used by later sweeps
func (s *Sweeper) Configure(admins retention.AdminSet, horizon time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins = admins
	s.horizon = horizon
}

func (s *Sweeper) settings() (retention.AdminSet, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admins, s.horizon
}

// sweepState carries one run through the movie loop
type sweepState struct {
	run        *models.SweepRun
	log        *slog.Logger
	thresholds models.ThresholdConfig
	admins     retention.AdminSet
	horizon    time.Duration
	now        time.Time
	seen       map[int]bool
}

// RunSweep evaluates every movie of one tier in order and, unless dryRun is
// set, deletes the ones whose verdict is delete. Movies whose signals cannot
// be fetched or are incomplete are skipped. An authentication failure from
// any collaborator aborts the tier and is returned.
func (s *Sweeper) RunSweep(ctx context.Context, tier models.LibraryTier, thresholds models.ThresholdConfig, now time.Time, dryRun bool) ([]models.Verdict, error) {
	started := time.Now()
	admins, horizon := s.settings()

	run := &models.SweepRun{
		ID:        uuid.NewString(),
		Tier:      tier,
		DryRun:    dryRun,
		Status:    models.SweepRunning,
		StartedAt: started.UTC(),
	}
	st := &sweepState{
		run:        run,
		log:        slog.With("run_id", run.ID, "tier", string(tier), "dry_run", dryRun),
		thresholds: thresholds,
		admins:     admins,
		horizon:    horizon,
		now:        now,
		seen:       map[int]bool{},
	}

	if s.recorder != nil {
		if err := s.recorder.StartRun(run); err != nil {
			st.log.Warn("failed to record sweep start", "error", err)
		}
	}
	st.log.Info("sweep started")

	verdicts, err := s.sweep(ctx, st)

	run.Status = models.SweepCompleted
	if err != nil {
		run.Status = models.SweepAborted
		run.Error = err.Error()
	}
	finished := time.Now().UTC()
	run.FinishedAt = &finished

	if s.recorder != nil {
		if rerr := s.recorder.FinishRun(run); rerr != nil {
			st.log.Warn("failed to record sweep result", "error", rerr)
		}
	}
	if s.metrics != nil {
		s.metrics.RecordSweep(run, time.Since(started))
	}

	summary := []any{
		"status", string(run.Status),
		"deleted", run.Deleted,
		"kept", run.Kept,
		"skipped", run.Skipped,
		"failed", run.Failed,
		"expiring_soon", run.ExpiringSoon,
		"duration", time.Since(started).Round(time.Millisecond).String(),
	}
	if err != nil {
		st.log.Error("sweep aborted", append(summary, "error", err)...)
	} else {
		st.log.Info("sweep finished", summary...)
	}

	return verdicts, err
}

func (s *Sweeper) sweep(ctx context.Context, st *sweepState) ([]models.Verdict, error) {
	refs, err := s.source.Movies(ctx, st.run.Tier)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s library: %w", st.run.Tier, err)
	}
	st.log.Info("evaluating movies", "count", len(refs))

	verdicts := make([]models.Verdict, 0, len(refs))
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return verdicts, err
		}

		// a movie listed twice is only ever acted on once
		if st.seen[ref.ArrID] {
			continue
		}
		st.seen[ref.ArrID] = true

		signals, err := s.source.Signals(ctx, ref)
		if err != nil {
			if models.IsAuthFailure(err) {
				return verdicts, err
			}
			s.skip(st, ref, err)
			continue
		}

		record, err := retention.Aggregate(signals, st.run.Tier, st.admins)
		if err != nil {
			s.skip(st, ref, err)
			continue
		}
		for _, rejected := range record.RejectedRatings {
			st.log.Warn("ignoring external rating", "title", record.Title, "tmdb_id", record.ID, "error", rejected)
			s.recordEvent(st, &models.SweepEvent{
				MovieID: record.ID,
				Title:   record.Title,
				Type:    models.EventRatingRejected,
				Message: rejected.Error(),
			}, nil)
		}

		verdict := retention.Decide(record, st.thresholds, st.now)
		verdicts = append(verdicts, verdict)
		if s.metrics != nil {
			s.metrics.RecordVerdict(verdict)
		}

		switch verdict.Outcome {
		case models.OutcomeKeep:
			s.keep(st, verdict)
		case models.OutcomeDelete:
			if err := s.delete(ctx, st, verdict); err != nil {
				return verdicts, err
			}
		}
	}

	return verdicts, nil
}

func (s *Sweeper) skip(st *sweepState, ref MovieRef, err error) {
	st.run.Skipped++
	if s.metrics != nil {
		s.metrics.RecordSkip(st.run.Tier)
	}

	var incomplete *models.IncompleteRecordError
	reason := "fetch_failed"
	if errors.As(err, &incomplete) {
		reason = "incomplete_record"
	}

	st.log.Warn("skipping movie", "title", ref.Title, "tmdb_id", ref.MovieID, "reason", reason, "error", err)
	s.recordEvent(st, &models.SweepEvent{
		MovieID: ref.MovieID,
		Title:   ref.Title,
		Type:    models.EventMovieSkipped,
		Message: err.Error(),
	}, map[string]interface{}{"reason": reason})
}

func (s *Sweeper) keep(st *sweepState, v models.Verdict) {
	st.run.Kept++
	st.log.Debug("keeping movie",
		"title", v.Title,
		"tmdb_id", v.MovieID,
		"reason", string(v.Reason),
		"age_days", v.AgeDays,
	)

	if st.horizon <= 0 || !v.ExpiresWithin(st.now, st.horizon) {
		return
	}

	st.run.ExpiringSoon++
	st.log.Info("movie scheduled for deletion soon",
		"title", v.Title,
		"tmdb_id", v.MovieID,
		"expires_at", v.ExpiresAt.Format(time.DateOnly),
	)
	s.recordEvent(st, &models.SweepEvent{
		MovieID: v.MovieID,
		Title:   v.Title,
		Type:    models.EventExpiringSoon,
		Reason:  v.Reason,
		Message: fmt.Sprintf("'%s' will be deleted on %s", v.Title, v.ExpiresAt.Format(time.DateOnly)),
	}, verdictDetails(v))
}

// delete carries out a delete verdict. Only an authentication failure is
// returned; other failures are logged and the sweep moves on.
func (s *Sweeper) delete(ctx context.Context, st *sweepState, v models.Verdict) error {
	attrs := []any{
		"title", v.Title,
		"tmdb_id", v.MovieID,
		"reason", string(v.Reason),
		"age_days", v.AgeDays,
		"window_days", v.WindowDays,
	}

	if st.run.DryRun {
		st.run.Deleted++
		st.log.Info("would delete movie", attrs...)
		s.recordEvent(st, &models.SweepEvent{
			MovieID: v.MovieID,
			Title:   v.Title,
			Type:    models.EventDeletionPlanned,
			Reason:  v.Reason,
			Message: fmt.Sprintf("Would delete '%s'", v.Title),
		}, verdictDetails(v))
		return nil
	}

	if err := s.deleter.DeleteMovie(ctx, v.ArrID, st.run.Tier); err != nil {
		if models.IsAuthFailure(err) {
			return err
		}

		st.run.Failed++
		if s.metrics != nil {
			s.metrics.RecordDeletionFailure(st.run.Tier)
		}
		st.log.Error("failed to delete movie", append(attrs, "error", err)...)
		s.recordEvent(st, &models.SweepEvent{
			MovieID: v.MovieID,
			Title:   v.Title,
			Type:    models.EventDeletionFailed,
			Reason:  v.Reason,
			Message: err.Error(),
		}, verdictDetails(v))
		return nil
	}

	st.run.Deleted++
	st.log.Info("deleted movie", attrs...)
	s.recordEvent(st, &models.SweepEvent{
		MovieID: v.MovieID,
		Title:   v.Title,
		Type:    models.EventMovieDeleted,
		Reason:  v.Reason,
		Message: fmt.Sprintf("Deleted '%s'", v.Title),
	}, verdictDetails(v))
	return nil
}

func (s *Sweeper) recordEvent(st *sweepState, event *models.SweepEvent, details interface{}) {
	if s.recorder == nil {
		return
	}
	event.RunID = st.run.ID
	if err := s.recorder.RecordEvent(event, details); err != nil {
		st.log.Warn("failed to record sweep event", "type", string(event.Type), "error", err)
	}
}

func verdictDetails(v models.Verdict) map[string]interface{} {
	details := map[string]interface{}{
		"arr_id":      v.ArrID,
		"age_days":    v.AgeDays,
		"window_days": v.WindowDays,
	}
	if v.ExpiresAt != nil {
		details["expires_at"] = v.ExpiresAt.Format(time.RFC3339)
	}
	return details
}

// RunAll sweeps each tier in turn. A tier that fails for any other reason does
// not stop the others; the errors of all failed tiers are joined. A rejected
// credential halts the whole run and later tiers are never started.
func (s *Sweeper) RunAll(ctx context.Context, tiers []models.LibraryTier, thresholds models.ThresholdConfig, now time.Time, dryRun bool) (map[models.LibraryTier][]models.Verdict, error) {
	results := make(map[models.LibraryTier][]models.Verdict, len(tiers))
	var errs []error

	for _, tier := range tiers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		verdicts, err := s.RunSweep(ctx, tier, thresholds, now, dryRun)
		results[tier] = verdicts
		if err != nil {
			errs = append(errs, fmt.Errorf("%s sweep: %w", tier, err))
			if models.IsAuthFailure(err) {
				slog.Error("authentication rejected, halting run", "tier", string(tier), "error", err)
				break
			}
		}
	}

	return results, errors.Join(errs...)
}
