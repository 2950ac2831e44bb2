package train

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/simplesurance/mergetrain/internal/codehost"
	"github.com/simplesurance/mergetrain/internal/logfields"
	"github.com/simplesurance/mergetrain/internal/retryer"
	"github.com/simplesurance/mergetrain/internal/routines"
)

const (
	DefCommitLookback   = 100
	DefFetchConcurrency = 4
)

// SnapshotBuilder retrieves the eligible merge requests of a project together
// with the state of their pipelines and branches.
type SnapshotBuilder struct {
	gw          Gateway
	project     string
	eligibility Eligibility
	retryer     *retryer.Retryer

	// CommitLookback is the number of commits of the source branch that
	// are searched for the tip of the target branch.
	CommitLookback int
	// FetchConcurrency is the max. number of candidates for that data is
	// retrieved in parallel.
	FetchConcurrency int

	logger *zap.Logger
}

func NewSnapshotBuilder(gw Gateway, project string, eligibility Eligibility, retryer *retryer.Retryer) *SnapshotBuilder {
	return &SnapshotBuilder{
		gw:               gw,
		project:          project,
		eligibility:      eligibility,
		retryer:          retryer,
		CommitLookback:   DefCommitLookback,
		FetchConcurrency: DefFetchConcurrency,
		logger:           zap.L().Named(loggerName).Named("snapshot"),
	}
}

// Build returns the candidates of the project, ordered by their IID.
// An error is only returned when the merge requests can not be listed.
// Failing to retrieve pipelines or commits for a merge request results in
// a candidate without pipelines or with RebaseState NotRebased.
func (b *SnapshotBuilder) Build(ctx context.Context) ([]*Candidate, error) {
	logger := b.logger.With(logfields.Project(b.project))

	var mrs []*codehost.MergeRequest
	err := b.retryer.Run(ctx, func(ctx context.Context) error {
		var err error
		mrs, err = b.gw.ListOpenMergeRequests(ctx, b.project)
		return err
	}, []zap.Field{logfields.Project(b.project)})
	if err != nil {
		return nil, fmt.Errorf("listing open merge requests failed: %w", err)
	}

	eligible := b.filterEligible(logger, mrs)
	tips := b.targetBranchTips(ctx, logger, eligible)

	result := make([]*Candidate, len(eligible))
	pool := routines.NewPool(b.FetchConcurrency)
	for i, mr := range eligible {
		i, mr := i, mr
		pool.Queue(func() {
			result[i] = b.candidate(ctx, logger, mr, tips[mr.TargetBranch])
		})
	}
	pool.Wait()

	sort.Slice(result, func(i, j int) bool {
		return result[i].IID() < result[j].IID()
	})

	return result, nil
}

func (b *SnapshotBuilder) filterEligible(logger *zap.Logger, mrs []*codehost.MergeRequest) []*codehost.MergeRequest {
	var result []*codehost.MergeRequest

	for _, mr := range mrs {
		ok, err := b.eligibility.Eligible(mr)
		if err != nil {
			logger.Warn(
				"evaluating eligibility of merge request failed, ignoring it",
				logEventCandidateIneligible,
				logfields.MergeRequest(mr.IID),
				zap.Stringer("eligibility", b.eligibility),
				zap.Error(err),
			)
			continue
		}

		if !ok {
			logger.Debug(
				"merge request is not eligible, ignoring it",
				logEventCandidateIneligible,
				logfields.MergeRequest(mr.IID),
				zap.Stringer("eligibility", b.eligibility),
			)
			continue
		}

		result = append(result, mr)
	}

	return result
}

// targetBranchTips returns the IDs of the most recent commits of the target
// branches of mrs.
// Branches for that the commit can not be retrieved are missing in the
// result.
func (b *SnapshotBuilder) targetBranchTips(ctx context.Context, logger *zap.Logger, mrs []*codehost.MergeRequest) map[string]string {
	result := map[string]string{}
	seen := map[string]struct{}{}

	for _, mr := range mrs {
		if _, exist := seen[mr.TargetBranch]; exist {
			continue
		}
		seen[mr.TargetBranch] = struct{}{}

		commits, err := b.branchCommits(ctx, mr.TargetBranch, 1)
		if err != nil {
			logger.Warn(
				"retrieving tip of target branch failed, merge requests are considered as not rebased",
				logEventReadFailed,
				logfields.Branch(mr.TargetBranch),
				zap.Error(err),
			)
			continue
		}

		if len(commits) == 0 {
			logger.Warn(
				"target branch has no commits, merge requests are considered as not rebased",
				logEventReadFailed,
				logfields.Branch(mr.TargetBranch),
			)
			continue
		}

		result[mr.TargetBranch] = commits[0]
	}

	return result
}

func (b *SnapshotBuilder) branchCommits(ctx context.Context, branch string, limit int) ([]string, error) {
	var commits []string

	err := b.retryer.Run(ctx, func(ctx context.Context) error {
		var err error
		commits, err = b.gw.ListBranchCommits(ctx, b.project, branch, limit)
		return err
	}, []zap.Field{logfields.Project(b.project), logfields.Branch(branch)})

	return commits, err
}

func (b *SnapshotBuilder) candidate(ctx context.Context, logger *zap.Logger, mr *codehost.MergeRequest, targetTip string) *Candidate {
	c := Candidate{MergeRequest: mr}
	logger = logger.With(c.LogFields()...)

	if mr.HeadSHA != "" {
		err := b.retryer.Run(ctx, func(ctx context.Context) error {
			var err error
			c.Pipelines, err = b.gw.ListPipelines(ctx, b.project, mr.HeadSHA)
			return err
		}, c.LogFields())
		if err != nil {
			c.Pipelines = nil
			logger.Warn(
				"retrieving pipelines failed, considering merge request as without pipelines",
				logEventReadFailed,
				zap.Error(err),
			)
		}
	}

	if targetTip == "" {
		c.RebaseState = NotRebased
		return &c
	}

	commits, err := b.branchCommits(ctx, mr.SourceBranch, b.CommitLookback)
	if err != nil {
		logger.Warn(
			"retrieving commits of source branch failed, considering merge request as not rebased",
			logEventReadFailed,
			zap.Error(err),
		)
		c.RebaseState = NotRebased
		return &c
	}

	c.RebaseState = rebaseState(commits, targetTip)

	return &c
}

func rebaseState(sourceCommits []string, targetTip string) RebaseState {
	for _, id := range sourceCommits {
		if id == targetTip {
			return Rebased
		}
	}

	return NotRebased
}
