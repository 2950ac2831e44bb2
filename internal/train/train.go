package train

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simplesurance/mergetrain/internal/logfields"
)

// DefInterval is the default duration the train waits after a pass before
// it starts the next one.
const DefInterval = 10 * time.Minute

// Train runs passes of the merge train for a project.
type Train struct {
	snapshot  *SnapshotBuilder
	scheduler *Scheduler
	policy    TriagePolicy
	interval  time.Duration

	passLock sync.Mutex

	reportLock sync.Mutex
	lastReport *PassReport

	logger *zap.Logger
}

func New(
	snapshot *SnapshotBuilder,
	scheduler *Scheduler,
	policy TriagePolicy,
	interval time.Duration,
) *Train {
	return &Train{
		snapshot:  snapshot,
		scheduler: scheduler,
		policy:    policy,
		interval:  interval,
		logger:    zap.L().Named(loggerName),
	}
}

// Run runs a pass immediately and then, after each finished pass, waits for
// interval before it starts the next one, until ctx is cancelled.
// A pass that is in progress when ctx is cancelled is not interrupted by
// Run, it terminates when the gateway calls fail with the context error.
func (t *Train) Run(ctx context.Context) {
	t.logger.Info(
		"merge train started",
		logfields.Event("train_started"),
		logfields.Project(t.snapshot.project),
		zap.Duration("interval", t.interval),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info(
				"merge train terminated",
				logfields.Event("train_terminated"),
				zap.Error(ctx.Err()),
			)
			return

		case <-timer.C:
		}

		_, _ = t.RunPass(ctx)

		timer.Reset(t.interval)
	}
}

// RunPass runs a single pass.
// If another pass is in progress ErrPassRunning is returned.
// The returned error is only non-nil when the pass failed before any action
// was dispatched. Failing actions are recorded in the PassReport.
func (t *Train) RunPass(ctx context.Context) (*PassReport, error) {
	if !t.passLock.TryLock() {
		return nil, ErrPassRunning
	}
	defer t.passLock.Unlock()

	report := PassReport{
		ID:        uuid.NewString(),
		Project:   t.snapshot.project,
		StartTime: time.Now(),
	}

	logger := t.logger.With(logfields.PassID(report.ID), logfields.Project(report.Project))
	logger.Debug("pass started", logEventPassStarted)

	defer func() {
		report.EndTime = time.Now()
		metrics.PassFinished(report.result(), report.Duration())
		t.setLastReport(&report)
	}()

	candidates, err := t.snapshot.Build(ctx)
	if err != nil {
		report.Err = err
		logger.Error(
			"pass failed, retrieving candidates failed",
			logEventPassFailed,
			zap.Error(err),
		)
		return &report, err
	}

	metrics.SetCandidates(len(candidates))

	report.Decisions = make([]*Decision, 0, len(candidates))
	for _, c := range candidates {
		action := Triage(&t.policy, c)
		report.Decisions = append(report.Decisions, &Decision{Candidate: c, Action: action})

		logger.Debug(
			"candidate evaluated",
			append(
				c.LogFields(),
				logEventCandidateEvaluated,
				zap.Int("pipelines", len(c.Pipelines)),
				zap.Stringer("rebase_state", c.RebaseState),
				zap.Stringer("decision", action),
			)...,
		)
	}

	report.Plan = t.scheduler.Plan(report.Decisions)
	report.Results = t.scheduler.Dispatch(ctx, report.Plan)

	report.EndTime = time.Now()
	logger.Info("pass finished", append(report.LogFields(), logEventPassFinished)...)

	return &report, nil
}

func (t *Train) setLastReport(r *PassReport) {
	t.reportLock.Lock()
	defer t.reportLock.Unlock()

	t.lastReport = r
}

// LastReport returns the report of the last finished pass, nil if no pass
// finished yet.
func (t *Train) LastReport() *PassReport {
	t.reportLock.Lock()
	defer t.reportLock.Unlock()

	return t.lastReport
}
