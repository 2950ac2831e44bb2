package train

import (
	"context"

	"go.uber.org/zap"

	"github.com/simplesurance/mergetrain/internal/codehost"
	"github.com/simplesurance/mergetrain/internal/logfields"
)

// DryGateway is a Gateway that does not do any changes on the code host.
// All operations that could cause a change are simulated and always succeed.
// All other operations are forwarded to a wrapped Gateway.
type DryGateway struct {
	gw     Gateway
	logger *zap.Logger
}

func NewDryGateway(gw Gateway) *DryGateway {
	return &DryGateway{
		gw:     gw,
		logger: zap.L().Named(loggerName).Named("dry_gateway"),
	}
}

func (g *DryGateway) ListOpenMergeRequests(ctx context.Context, project string) ([]*codehost.MergeRequest, error) {
	return g.gw.ListOpenMergeRequests(ctx, project)
}

func (g *DryGateway) ListPipelines(ctx context.Context, project, sha string) ([]*codehost.Pipeline, error) {
	return g.gw.ListPipelines(ctx, project, sha)
}

func (g *DryGateway) ListBranchCommits(ctx context.Context, project, branch string, limit int) ([]string, error) {
	return g.gw.ListBranchCommits(ctx, project, branch, limit)
}

func (g *DryGateway) SetAssignee(_ context.Context, project string, iid int, user *codehost.User) error {
	g.logger.Info(
		"simulated changing assignee, merge request was not modified",
		logfields.Project(project),
		logfields.MergeRequest(iid),
		zap.Stringer("assignee", user),
	)
	return nil
}

func (g *DryGateway) CreateComment(_ context.Context, project string, iid int, text string) error {
	g.logger.Info(
		"simulated creating comment, no comment was created",
		logfields.Project(project),
		logfields.MergeRequest(iid),
		zap.String("comment", text),
	)
	return nil
}

func (g *DryGateway) Rebase(_ context.Context, project string, iid int) error {
	g.logger.Info(
		"simulated rebasing merge request",
		logfields.Project(project),
		logfields.MergeRequest(iid),
	)
	return nil
}

func (g *DryGateway) Merge(_ context.Context, project string, iid int, sha string) error {
	g.logger.Info(
		"simulated merging merge request",
		logfields.Project(project),
		logfields.MergeRequest(iid),
		logfields.Commit(sha),
	)
	return nil
}

func (g *DryGateway) CancelPipeline(_ context.Context, project string, pipelineID int64) error {
	g.logger.Info(
		"simulated canceling pipeline",
		logfields.Project(project),
		logfields.Pipeline(pipelineID),
	)
	return nil
}
