package train

import (
	"time"

	"go.uber.org/zap"
)

// PassReport describes what happened in a pass.
type PassReport struct {
	ID        string
	Project   string
	StartTime time.Time
	EndTime   time.Time
	// Err is set when the pass failed before decisions were made.
	Err       error
	Decisions []*Decision
	Plan      *Plan
	Results   []*DispatchResult
}

// Failures returns the number of failed gateway calls.
func (r *PassReport) Failures() uint {
	var cnt uint

	for _, res := range r.Results {
		if res.Err != nil {
			cnt++
		}
	}

	return cnt
}

// Deferred returns the number of rebases that were postponed to a later
// pass.
func (r *PassReport) Deferred() uint {
	if r.Plan == nil {
		return 0
	}

	return uint(len(r.Plan.DeferredRebases))
}

func (r *PassReport) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

func (r *PassReport) result() resultLabelVal {
	if r.Err != nil {
		return resultLabelFailureVal
	}

	if r.Failures() > 0 {
		return resultLabelPartialVal
	}

	return resultLabelSuccessVal
}

func (r *PassReport) countDecisions(kind ActionKind) uint {
	var cnt uint

	for _, d := range r.Decisions {
		if d.Action.Kind == kind {
			cnt++
		}
	}

	return cnt
}

func (r *PassReport) LogFields() []zap.Field {
	return []zap.Field{
		zap.Duration("pass_duration", r.Duration()),
		zap.Int("pass.candidates", len(r.Decisions)),
		zap.Uint("pass.reassign", r.countDecisions(ActionReassign)),
		zap.Uint("pass.rebase", r.countDecisions(ActionRebase)),
		zap.Uint("pass.merge", r.countDecisions(ActionMerge)),
		zap.Uint("pass.rebases_deferred", r.Deferred()),
		zap.Int("pass.dispatched", len(r.Results)),
		zap.Uint("pass.failures", r.Failures()),
	}
}
