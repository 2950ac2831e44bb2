package train

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simplesurance/mergetrain/internal/codehost"
)

var allPipelineStatuses = []codehost.PipelineStatus{
	codehost.PipelineStatusSuccess,
	codehost.PipelineStatusFailed,
	codehost.PipelineStatusRunning,
	codehost.PipelineStatusPending,
	codehost.PipelineStatusCanceled,
	codehost.PipelineStatusManual,
	codehost.PipelineStatusSkipped,
}

func TestTriage(t *testing.T) {
	reassignOnFailure := TriagePolicy{ReassignOnPipelineFailure: true}

	tcs := []struct {
		name      string
		policy    TriagePolicy
		candidate *Candidate
		expected  Action
	}{
		{
			name:      "conflict without pipelines",
			candidate: conflicting(newCandidate(5, NotRebased)),
			expected:  Action{Kind: ActionReassign, Reason: ReasonMergeConflict},
		},
		{
			name:      "conflict with successful pipeline",
			candidate: conflicting(newCandidate(5, Rebased, codehost.PipelineStatusSuccess)),
			expected:  Action{Kind: ActionReassign, Reason: ReasonMergeConflict},
		},
		{
			name:      "conflict has precedence over failed pipeline",
			policy:    reassignOnFailure,
			candidate: conflicting(newCandidate(5, Rebased, codehost.PipelineStatusFailed)),
			expected:  Action{Kind: ActionReassign, Reason: ReasonMergeConflict},
		},
		{
			name:      "failed pipeline with reassign on failure",
			policy:    reassignOnFailure,
			candidate: newCandidate(5, Rebased, codehost.PipelineStatusSuccess, codehost.PipelineStatusFailed),
			expected:  Action{Kind: ActionReassign, Reason: ReasonPipelineFailed},
		},
		{
			name:      "retried pipeline succeeded with reassign on failure",
			policy:    reassignOnFailure,
			candidate: newCandidate(7, Rebased, codehost.PipelineStatusSuccess),
			expected:  Action{Kind: ActionMerge},
		},
		{
			name:      "failed pipeline rebased",
			candidate: newCandidate(5, Rebased, codehost.PipelineStatusFailed),
			expected:  Action{Kind: ActionNone},
		},
		{
			name:      "failed pipeline not rebased",
			candidate: newCandidate(5, NotRebased, codehost.PipelineStatusFailed),
			expected:  Action{Kind: ActionRebase},
		},
		{
			name:      "successful pipeline",
			candidate: newCandidate(7, Rebased, codehost.PipelineStatusSuccess),
			expected:  Action{Kind: ActionMerge},
		},
		{
			name:      "successful pipeline not rebased",
			candidate: newCandidate(7, NotRebased, codehost.PipelineStatusSuccess),
			expected:  Action{Kind: ActionMerge},
		},
		{
			name: "canceled and manual pipelines",
			candidate: newCandidate(7, Rebased,
				codehost.PipelineStatusSuccess,
				codehost.PipelineStatusCanceled,
				codehost.PipelineStatusManual,
			),
			expected: Action{Kind: ActionMerge},
		},
		{
			name:      "skipped pipeline",
			candidate: newCandidate(7, Rebased, codehost.PipelineStatusSkipped),
			expected:  Action{Kind: ActionNone},
		},
		{
			name:      "no pipelines not rebased",
			candidate: newCandidate(3, NotRebased),
			expected:  Action{Kind: ActionRebase},
		},
		{
			name:      "no pipelines rebased",
			candidate: newCandidate(3, Rebased),
			expected:  Action{Kind: ActionNone},
		},
		{
			name:      "running pipeline",
			candidate: newCandidate(2, Rebased, codehost.PipelineStatusRunning),
			expected:  Action{Kind: ActionNone},
		},
		{
			name:      "successful and pending pipeline",
			candidate: newCandidate(2, Rebased, codehost.PipelineStatusSuccess, codehost.PipelineStatusPending),
			expected:  Action{Kind: ActionNone},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Triage(&tc.policy, tc.candidate))
		})
	}
}

func TestTriageConflictAlwaysReassigns(t *testing.T) {
	for _, policy := range []TriagePolicy{{}, {ReassignOnPipelineFailure: true}} {
		for _, state := range []RebaseState{Rebased, NotRebased} {
			for _, status := range append(allPipelineStatuses, "") {
				var c *Candidate
				if status == "" {
					c = conflicting(newCandidate(1, state))
				} else {
					c = conflicting(newCandidate(1, state, status))
				}

				t.Run(fmt.Sprintf("%+v/%s/%s", policy, state, status), func(t *testing.T) {
					a := Triage(&policy, c)
					assert.Equal(t, ActionReassign, a.Kind)
					assert.Equal(t, ReasonMergeConflict, a.Reason)
				})
			}
		}
	}
}

func TestTriageNeverMergesWithoutPipelines(t *testing.T) {
	for _, policy := range []TriagePolicy{{}, {ReassignOnPipelineFailure: true}} {
		for _, state := range []RebaseState{Rebased, NotRebased} {
			a := Triage(&policy, newCandidate(1, state))
			assert.NotEqual(t, ActionMerge, a.Kind)
		}
	}
}

func TestTriageIsIdempotent(t *testing.T) {
	policy := TriagePolicy{ReassignOnPipelineFailure: true}

	for _, status := range allPipelineStatuses {
		for _, state := range []RebaseState{Rebased, NotRebased} {
			c := newCandidate(1, state, status)

			first := Triage(&policy, c)
			for i := 0; i < 3; i++ {
				assert.Equal(t, first, Triage(&policy, c))
			}
		}
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "merge", Action{Kind: ActionMerge}.String())
	assert.Equal(t, "reassign (merge conflict)", Action{Kind: ActionReassign, Reason: ReasonMergeConflict}.String())
	assert.Contains(t, ActionKind(99).String(), "unsupported")
}
