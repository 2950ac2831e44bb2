package train

import "github.com/simplesurance/mergetrain/internal/codehost"

// TriagePolicy configures the decisions of Triage.
type TriagePolicy struct {
	// ReassignOnPipelineFailure enables handing merge requests with a
	// failed pipeline back to their author.
	ReassignOnPipelineFailure bool
}

// Triage decides the action for a candidate.
// It only depends on its arguments, evaluating the same candidate with the
// same policy always results in the same Action.
//
// Rules are applied in the following order, the first matching one wins:
//  1. The merge request has conflicts: reassign.
//  2. Reassigning on failed pipelines is enabled and a pipeline failed:
//     reassign.
//  3. Pipelines exist and all of them succeeded, were canceled or wait for a
//     manual action: merge.
//  4. The source branch does not contain the tip of the target branch:
//     rebase.
//  5. Otherwise nothing is done.
func Triage(policy *TriagePolicy, c *Candidate) Action {
	if c.MergeRequest.HasConflicts {
		return Action{Kind: ActionReassign, Reason: ReasonMergeConflict}
	}

	if policy.ReassignOnPipelineFailure && anyPipelineFailed(c.Pipelines) {
		return Action{Kind: ActionReassign, Reason: ReasonPipelineFailed}
	}

	if len(c.Pipelines) > 0 && allPipelinesMergeable(c.Pipelines) {
		return Action{Kind: ActionMerge}
	}

	if c.RebaseState == NotRebased {
		return Action{Kind: ActionRebase}
	}

	return Action{Kind: ActionNone}
}

func anyPipelineFailed(pipelines []*codehost.Pipeline) bool {
	for _, p := range pipelines {
		if p.Status == codehost.PipelineStatusFailed {
			return true
		}
	}

	return false
}

func allPipelinesMergeable(pipelines []*codehost.Pipeline) bool {
	for _, p := range pipelines {
		switch p.Status {
		case codehost.PipelineStatusSuccess,
			codehost.PipelineStatusCanceled,
			codehost.PipelineStatusManual:
			continue
		default:
			return false
		}
	}

	return true
}
