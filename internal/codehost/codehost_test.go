package codehost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAssignedToMatchesDisplayNameExactly(t *testing.T) {
	mr := MergeRequest{
		IID: 1,
		Assignees: []User{
			{ID: 1, Name: "Alice", Username: "alice"},
			{ID: 2, Name: "Merge Bot", Username: "mergebot"},
		},
	}

	assert.True(t, mr.IsAssignedTo("Merge Bot"))
	assert.False(t, mr.IsAssignedTo("mergebot"))
	assert.False(t, mr.IsAssignedTo("merge bot"))
}

func TestIsAssignedToWithoutAssignees(t *testing.T) {
	mr := MergeRequest{IID: 1}
	assert.False(t, mr.IsAssignedTo("Merge Bot"))
}

func TestPipelineStatusInFlight(t *testing.T) {
	inFlight := []PipelineStatus{PipelineStatusRunning, PipelineStatusPending}
	finished := []PipelineStatus{
		PipelineStatusSuccess,
		PipelineStatusFailed,
		PipelineStatusCanceled,
		PipelineStatusManual,
		PipelineStatusSkipped,
	}

	for _, s := range inFlight {
		assert.Truef(t, s.InFlight(), "status %s", s)
	}

	for _, s := range finished {
		assert.Falsef(t, s.InFlight(), "status %s", s)
	}
}
