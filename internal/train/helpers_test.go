package train

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/simplesurance/mergetrain/internal/codehost"
)

const project = "group/project"
const botName = "Merge Bot"

func setupLogger(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
}

func newMergeRequest(iid int) *codehost.MergeRequest {
	return &codehost.MergeRequest{
		IID:          iid,
		Title:        "change",
		SourceBranch: "feature",
		TargetBranch: "main",
		Author:       codehost.User{ID: 100, Name: "Author", Username: "author"},
		Assignees:    []codehost.User{{ID: 1, Name: botName, Username: "mergebot"}},
		HeadSHA:      "aaaaaaa",
	}
}

func newCandidate(iid int, state RebaseState, statuses ...codehost.PipelineStatus) *Candidate {
	c := Candidate{
		MergeRequest: newMergeRequest(iid),
		RebaseState:  state,
	}

	for i, s := range statuses {
		c.Pipelines = append(c.Pipelines, &codehost.Pipeline{
			ID:     int64(iid*1000 + i),
			Status: s,
		})
	}

	return &c
}

func conflicting(c *Candidate) *Candidate {
	c.MergeRequest.HasConflicts = true
	return c
}

func triageAll(policy *TriagePolicy, candidates ...*Candidate) []*Decision {
	result := make([]*Decision, 0, len(candidates))
	for _, c := range candidates {
		result = append(result, &Decision{Candidate: c, Action: Triage(policy, c)})
	}

	return result
}
