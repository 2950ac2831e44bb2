package train

import (
	"context"

	"github.com/simplesurance/mergetrain/internal/codehost"
)

//go:generate mockgen -package mocks -destination mocks/gateway.go . Gateway

// Gateway is the interface to the code host.
// Every call is blocking and can fail independently.
type Gateway interface {
	ListOpenMergeRequests(ctx context.Context, project string) ([]*codehost.MergeRequest, error)
	// ListPipelines returns the current pipelines of the commit sha.
	// Pipelines that were superseded by a newer run for the same commit
	// are not part of the result.
	ListPipelines(ctx context.Context, project, sha string) ([]*codehost.Pipeline, error)
	// ListBranchCommits returns the IDs of up to limit commits of branch,
	// the most recent first.
	ListBranchCommits(ctx context.Context, project, branch string, limit int) ([]string, error)

	SetAssignee(ctx context.Context, project string, iid int, user *codehost.User) error
	CreateComment(ctx context.Context, project string, iid int, text string) error
	// Rebase requests rebasing the merge request onto its target branch.
	// The host runs it asynchronously, success means it was accepted.
	Rebase(ctx context.Context, project string, iid int) error
	// Merge merges the merge request if its head commit is sha.
	Merge(ctx context.Context, project string, iid int, sha string) error
	CancelPipeline(ctx context.Context, project string, pipelineID int64) error
}
