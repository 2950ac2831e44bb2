package train

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/simplesurance/mergetrain/internal/codehost"
	"github.com/simplesurance/mergetrain/internal/goorderr"
	"github.com/simplesurance/mergetrain/internal/logfields"
)

// DefRebaseLimit is the default max. number of rebases requested per pass.
const DefRebaseLimit = 1

// Operations that the Scheduler dispatches to the Gateway.
const (
	OpSetAssignee    = "set_assignee"
	OpComment        = "comment"
	OpCancelPipeline = "cancel_pipeline"
	OpRebase         = "rebase"
	OpMerge          = "merge"
)

// Decision is the Action that Triage decided for a Candidate.
type Decision struct {
	Candidate *Candidate
	Action    Action
}

// Cancellation is an in-flight pipeline of a not rebased merge request.
type Cancellation struct {
	Candidate *Candidate
	Pipeline  *codehost.Pipeline
}

// Plan contains the operations of a pass, grouped in the order they are
// dispatched.
type Plan struct {
	Reassigns     []*Decision
	Cancellations []*Cancellation
	Rebases       []*Decision
	// DeferredRebases are rebases that exceeded the RebaseLimit.
	DeferredRebases []*Decision
	Merges          []*Decision
}

// Empty returns true if the plan contains no operations.
func (p *Plan) Empty() bool {
	return len(p.Reassigns) == 0 &&
		len(p.Cancellations) == 0 &&
		len(p.Rebases) == 0 &&
		len(p.Merges) == 0
}

// DispatchResult is the outcome of a single gateway call.
type DispatchResult struct {
	Op         string
	IID        int
	PipelineID int64
	Err        error
}

func (r *DispatchResult) String() string {
	var target string
	if r.Op == OpCancelPipeline {
		target = fmt.Sprintf("!%d pipeline %d", r.IID, r.PipelineID)
	} else {
		target = fmt.Sprintf("!%d", r.IID)
	}

	if r.Err != nil {
		return fmt.Sprintf("%s %s: failed: %s", r.Op, target, r.Err)
	}

	return fmt.Sprintf("%s %s: ok", r.Op, target)
}

// Scheduler turns decisions into a bounded, ordered set of gateway calls.
type Scheduler struct {
	gw      Gateway
	project string

	// RebaseLimit is the max. number of rebases requested per pass.
	RebaseLimit int
	// CancelStalePipelines enables canceling running and pending
	// pipelines of merge requests that are not rebased. Their result is
	// meaningless because they will be rebased.
	CancelStalePipelines bool

	logger *zap.Logger
}

func NewScheduler(gw Gateway, project string) *Scheduler {
	return &Scheduler{
		gw:                   gw,
		project:              project,
		RebaseLimit:          DefRebaseLimit,
		CancelStalePipelines: true,
		logger:               zap.L().Named(loggerName).Named("scheduler"),
	}
}

// Plan groups decisions by their kind.
// Rebases are ordered by ascending IID, only the first RebaseLimit ones are
// planned, the remaining ones are deferred.
func (s *Scheduler) Plan(decisions []*Decision) *Plan {
	var plan Plan

	sorted := make([]*Decision, len(decisions))
	copy(sorted, decisions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Candidate.IID() < sorted[j].Candidate.IID()
	})

	for _, d := range sorted {
		switch d.Action.Kind {
		case ActionReassign:
			plan.Reassigns = append(plan.Reassigns, d)

		case ActionRebase:
			if len(plan.Rebases) < s.RebaseLimit {
				plan.Rebases = append(plan.Rebases, d)
			} else {
				plan.DeferredRebases = append(plan.DeferredRebases, d)
			}

		case ActionMerge:
			plan.Merges = append(plan.Merges, d)
		}

		if s.CancelStalePipelines && d.Candidate.RebaseState == NotRebased {
			for _, p := range d.Candidate.InFlightPipelines() {
				plan.Cancellations = append(plan.Cancellations, &Cancellation{
					Candidate: d.Candidate,
					Pipeline:  p,
				})
			}
		}
	}

	return &plan
}

// Dispatch executes the operations of plan sequentially.
// Reassignments are done first, followed by pipeline cancellations, rebases
// and merges.
// A failing operation is logged and does not prevent the execution of the
// following ones. Operations are not retried.
func (s *Scheduler) Dispatch(ctx context.Context, plan *Plan) []*DispatchResult {
	var results []*DispatchResult
	logger := s.logger.With(logfields.Project(s.project))

	record := func(r *DispatchResult, logF ...zap.Field) {
		results = append(results, r)
		metrics.ActionDispatched(r.Op, r.Err)

		logF = append(logF, logfields.Action(r.Op))
		if r.Err != nil {
			logger.Warn(
				"dispatching action failed",
				append(
					logF,
					logEventActionFailed,
					zap.Bool("retryable", goorderr.IsRetryable(r.Err)),
					zap.Error(r.Err),
				)...,
			)
			return
		}

		logger.Info("action dispatched", append(logF, logEventActionDispatched)...)
	}

	for _, d := range plan.Reassigns {
		s.reassign(ctx, d, record)
	}

	for _, c := range plan.Cancellations {
		err := s.gw.CancelPipeline(ctx, s.project, c.Pipeline.ID)
		record(
			&DispatchResult{Op: OpCancelPipeline, IID: c.Candidate.IID(), PipelineID: c.Pipeline.ID, Err: err},
			append(
				c.Candidate.LogFields(),
				logfields.Pipeline(c.Pipeline.ID),
				logfields.PipelineStatus(string(c.Pipeline.Status)),
			)...,
		)
	}

	for _, d := range plan.Rebases {
		err := s.gw.Rebase(ctx, s.project, d.Candidate.IID())
		record(&DispatchResult{Op: OpRebase, IID: d.Candidate.IID(), Err: err}, d.Candidate.LogFields()...)
	}

	for _, d := range plan.DeferredRebases {
		logger.Info(
			"rebase deferred, limit of rebases per pass reached",
			append(d.Candidate.LogFields(), logEventRebaseDeferred, zap.Int("rebase_limit", s.RebaseLimit))...,
		)
	}

	for _, d := range plan.Merges {
		err := s.gw.Merge(ctx, s.project, d.Candidate.IID(), d.Candidate.MergeRequest.HeadSHA)
		record(&DispatchResult{Op: OpMerge, IID: d.Candidate.IID(), Err: err}, d.Candidate.LogFields()...)
	}

	return results
}

// reassign assigns the merge request to its author and notifies them with a
// comment.
// If the assignment fails no comment is created, the merge request stays
// assigned to the bot and is reevaluated in the next pass.
func (s *Scheduler) reassign(ctx context.Context, d *Decision, record func(*DispatchResult, ...zap.Field)) {
	mr := d.Candidate.MergeRequest
	logF := append(d.Candidate.LogFields(), logFieldReason(d.Action.Reason))

	err := s.gw.SetAssignee(ctx, s.project, mr.IID, &mr.Author)
	record(&DispatchResult{Op: OpSetAssignee, IID: mr.IID, Err: err}, logF...)
	if err != nil {
		return
	}

	err = s.gw.CreateComment(ctx, s.project, mr.IID, NotificationText(&mr.Author, d.Action.Reason))
	record(&DispatchResult{Op: OpComment, IID: mr.IID, Err: err}, logF...)
}

// NotificationText returns the comment that is posted when a merge request
// is handed back to its author.
func NotificationText(author *codehost.User, reason string) string {
	return fmt.Sprintf(
		"Removed from the merge train, reason: %s. Help me @%s, please assign the merge request back to me when it is resolved.",
		reason, author.Username,
	)
}
