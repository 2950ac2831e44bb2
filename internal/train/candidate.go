package train

import (
	"go.uber.org/zap"

	"github.com/simplesurance/mergetrain/internal/codehost"
	"github.com/simplesurance/mergetrain/internal/logfields"
)

// RebaseState describes if the source branch of a merge request contains the
// current tip commit of its target branch.
type RebaseState int

const (
	// NotRebased is also used when the state could not be determined.
	NotRebased RebaseState = iota
	Rebased
)

func (s RebaseState) String() string {
	if s == Rebased {
		return "rebased"
	}

	return "not_rebased"
}

// Candidate is a merge request together with the facts observed for it in
// one pass.
type Candidate struct {
	MergeRequest *codehost.MergeRequest
	Pipelines    []*codehost.Pipeline
	RebaseState  RebaseState
}

// IID returns the identifier of the merge request.
func (c *Candidate) IID() int {
	return c.MergeRequest.IID
}

// InFlightPipelines returns the pipelines that did not finish yet.
func (c *Candidate) InFlightPipelines() []*codehost.Pipeline {
	var result []*codehost.Pipeline

	for _, p := range c.Pipelines {
		if p.Status.InFlight() {
			result = append(result, p)
		}
	}

	return result
}

func (c *Candidate) LogFields() []zap.Field {
	return []zap.Field{
		logfields.MergeRequest(c.MergeRequest.IID),
		logfields.SourceBranch(c.MergeRequest.SourceBranch),
		logfields.TargetBranch(c.MergeRequest.TargetBranch),
		logfields.Commit(c.MergeRequest.HeadSHA),
	}
}
