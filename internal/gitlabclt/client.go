// Package gitlabclt provides a GitLab API client for the merge train.
package gitlabclt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"

	"github.com/simplesurance/mergetrain/internal/codehost"
	"github.com/simplesurance/mergetrain/internal/goorderr"
	"github.com/simplesurance/mergetrain/internal/logfields"
)

const DefaultHTTPClientTimeout = time.Minute

const loggerName = "gitlab_client"

const perPage = 100

// Client is a GitLab API client.
// All methods return a goorderr.RetryableError when an operation can be
// retried. This can be e.g. the case when the API ratelimit is exceeded.
// Requests are never retried by the client itself.
type Client struct {
	clt                *gitlab.Client
	removeSourceBranch bool
	logger             *zap.Logger
}

type Option func(*Client)

// WithRemoveSourceBranch configures Merge to delete the source branch of
// merged merge requests.
func WithRemoveSourceBranch(enabled bool) Option {
	return func(c *Client) {
		c.removeSourceBranch = enabled
	}
}

// New returns a client for the GitLab instance reachable at baseURL.
func New(baseURL, apiToken string, opts ...Option) (*Client, error) {
	clt, err := gitlab.NewClient(
		apiToken,
		gitlab.WithBaseURL(baseURL),
		gitlab.WithHTTPClient(&http.Client{Timeout: DefaultHTTPClientTimeout}),
		gitlab.WithCustomRetryMax(0),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client failed: %w", err)
	}

	result := Client{
		clt:    clt,
		logger: zap.L().Named(loggerName),
	}

	for _, opt := range opts {
		opt(&result)
	}

	return &result, nil
}

// ListOpenMergeRequests returns all open merge requests of project.
func (clt *Client) ListOpenMergeRequests(ctx context.Context, project string) ([]*codehost.MergeRequest, error) {
	var result []*codehost.MergeRequest

	opts := gitlab.ListProjectMergeRequestsOptions{
		ListOptions: gitlab.ListOptions{Page: 1, PerPage: perPage},
		State:       gitlab.String("opened"),
	}

	for {
		mrs, resp, err := clt.clt.MergeRequests.ListProjectMergeRequests(project, &opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, clt.wrapRetryableErrors(err)
		}

		for _, mr := range mrs {
			result = append(result, toMergeRequest(mr))
		}

		if resp.NextPage == 0 || len(mrs) == 0 {
			return result, nil
		}

		opts.Page = resp.NextPage
	}
}

func toMergeRequest(mr *gitlab.MergeRequest) *codehost.MergeRequest {
	result := codehost.MergeRequest{
		IID:          mr.IID,
		Title:        mr.Title,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		HasConflicts: mr.HasConflicts,
		HeadSHA:      mr.SHA,
		Labels:       []string(mr.Labels),
		WebURL:       mr.WebURL,
	}

	if mr.Author != nil {
		result.Author = toUser(mr.Author)
	}

	for _, u := range mr.Assignees {
		if u == nil {
			continue
		}

		result.Assignees = append(result.Assignees, toUser(u))
	}

	return &result
}

func toUser(u *gitlab.BasicUser) codehost.User {
	return codehost.User{
		ID:       int64(u.ID),
		Name:     u.Name,
		Username: u.Username,
	}
}

// ListPipelines returns the most recent pipeline of project that ran for
// sha. Older pipelines of the same commit, e.g. retried ones, are
// superseded by it and not returned.
func (clt *Client) ListPipelines(ctx context.Context, project, sha string) ([]*codehost.Pipeline, error) {
	if sha == "" {
		return nil, nil
	}

	pipelines, _, err := clt.clt.Pipelines.ListProjectPipelines(
		project,
		&gitlab.ListProjectPipelinesOptions{
			ListOptions: gitlab.ListOptions{PerPage: 1},
			SHA:         gitlab.String(sha),
			OrderBy:     gitlab.String("id"),
			Sort:        gitlab.String("desc"),
		},
		gitlab.WithContext(ctx),
	)
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	if len(pipelines) == 0 {
		return nil, nil
	}

	return []*codehost.Pipeline{{
		ID:     int64(pipelines[0].ID),
		Status: ToPipelineStatus(pipelines[0].Status),
	}}, nil
}

// ListBranchCommits returns the IDs of the up to limit most recent commits of
// branch.
func (clt *Client) ListBranchCommits(ctx context.Context, project, branch string, limit int) ([]string, error) {
	commits, _, err := clt.clt.Commits.ListCommits(
		project,
		&gitlab.ListCommitsOptions{
			ListOptions: gitlab.ListOptions{PerPage: limit},
			RefName:     gitlab.String(branch),
		},
		gitlab.WithContext(ctx),
	)
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	result := make([]string, 0, len(commits))
	for _, c := range commits {
		result = append(result, c.ID)
	}

	return result, nil
}

// SetAssignee replaces the assignees of the merge request with user.
func (clt *Client) SetAssignee(ctx context.Context, project string, iid int, user *codehost.User) error {
	_, _, err := clt.clt.MergeRequests.UpdateMergeRequest(
		project,
		iid,
		&gitlab.UpdateMergeRequestOptions{AssigneeID: gitlab.Int(int(user.ID))},
		gitlab.WithContext(ctx),
	)
	return clt.wrapRetryableErrors(err)
}

// CreateComment creates a note in the merge request.
func (clt *Client) CreateComment(ctx context.Context, project string, iid int, text string) error {
	_, _, err := clt.clt.Notes.CreateMergeRequestNote(
		project,
		iid,
		&gitlab.CreateMergeRequestNoteOptions{Body: gitlab.String(text)},
		gitlab.WithContext(ctx),
	)
	return clt.wrapRetryableErrors(err)
}

// Rebase schedules rebasing the source branch of the merge request onto its
// target branch. GitLab runs the rebase asynchronously.
func (clt *Client) Rebase(ctx context.Context, project string, iid int) error {
	_, err := clt.clt.MergeRequests.RebaseMergeRequest(project, iid, gitlab.WithContext(ctx))
	if err != nil {
		return clt.wrapRetryableErrors(err)
	}

	clt.logger.Debug(
		"rebase of merge request scheduled",
		logfields.Event("gitlab_rebase_scheduled"),
		logfields.Project(project),
		logfields.MergeRequest(iid),
	)

	return nil
}

// Merge merges the merge request.
// GitLab refuses the merge when the head commit of the merge request is not
// sha.
func (clt *Client) Merge(ctx context.Context, project string, iid int, sha string) error {
	opts := gitlab.AcceptMergeRequestOptions{}
	if sha != "" {
		opts.SHA = gitlab.String(sha)
	}
	if clt.removeSourceBranch {
		opts.ShouldRemoveSourceBranch = gitlab.Bool(true)
	}

	_, _, err := clt.clt.MergeRequests.AcceptMergeRequest(project, iid, &opts, gitlab.WithContext(ctx))
	return clt.wrapRetryableErrors(err)
}

func (clt *Client) CancelPipeline(ctx context.Context, project string, pipelineID int64) error {
	_, _, err := clt.clt.Pipelines.CancelPipelineBuild(project, int(pipelineID), gitlab.WithContext(ctx))
	return clt.wrapRetryableErrors(err)
}

func (clt *Client) wrapRetryableErrors(err error) error {
	if err == nil {
		return nil
	}

	var respErr *gitlab.ErrorResponse
	if !errors.As(err, &respErr) || respErr.Response == nil {
		return err
	}

	switch code := respErr.Response.StatusCode; {
	case code == http.StatusTooManyRequests:
		retryAfter := retryAfterTime(respErr.Response.Header)

		clt.logger.Info(
			"rate limit exceeded",
			logfields.Event("gitlab_api_rate_limit_exceeded"),
			zap.Time("gitlab_api_retry_after", retryAfter),
		)

		return goorderr.NewRetryableError(err, retryAfter)

	case code >= 500 && code < 600:
		return goorderr.NewRetryableAnytimeError(err)
	}

	return err
}

// retryAfterTime returns the time specified by the Retry-After header.
// When the header is missing or invalid, the zero time is returned.
func retryAfterTime(hdr http.Header) time.Time {
	val := hdr.Get("Retry-After")
	if val == "" {
		return time.Time{}
	}

	if secs, err := strconv.Atoi(val); err == nil {
		return time.Now().Add(time.Duration(secs) * time.Second)
	}

	if t, err := http.ParseTime(val); err == nil {
		return t
	}

	return time.Time{}
}
