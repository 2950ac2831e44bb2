// Package githubclt provides a github API client for the merge train.
// Pull requests are represented as merge requests, github actions workflow
// runs as pipelines.
package githubclt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v59/github"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/simplesurance/mergetrain/internal/codehost"
	"github.com/simplesurance/mergetrain/internal/goorderr"
	"github.com/simplesurance/mergetrain/internal/logfields"
)

const DefaultHTTPClientTimeout = time.Minute

const loggerName = "github_client"

const perPage = 100

// New returns a new github api client.
// If baseURL is empty or points to github.com the public github API is used,
// otherwise baseURL is used as GitHub Enterprise Server URL.
func New(baseURL, oauthAPItoken string) (*Client, error) {
	httpClient := newHTTPClient(oauthAPItoken)

	if isPublicGithub(baseURL) {
		return &Client{
			restClt:    github.NewClient(httpClient),
			graphQLClt: githubv4.NewClient(httpClient),
			logger:     zap.L().Named(loggerName),
		}, nil
	}

	restClt, err := github.NewClient(httpClient).WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return nil, fmt.Errorf("configuring github enterprise url failed: %w", err)
	}

	return &Client{
		restClt:    restClt,
		graphQLClt: githubv4.NewEnterpriseClient(strings.TrimSuffix(baseURL, "/")+"/api/graphql", httpClient),
		logger:     zap.L().Named(loggerName),
	}, nil
}

func isPublicGithub(baseURL string) bool {
	switch strings.TrimSuffix(baseURL, "/") {
	case "", "https://github.com", "https://api.github.com":
		return true
	default:
		return false
	}
}

func newHTTPClient(apiToken string) *http.Client {
	if apiToken == "" {
		return &http.Client{
			Timeout: DefaultHTTPClientTimeout,
		}
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: apiToken},
	)

	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = DefaultHTTPClientTimeout

	return tc
}

// Client is an github API client.
// All methods return a goorderr.RetryableError when an operation can be retried.
// This can be e.g. the case when the API ratelimit is exceeded.
//
// Projects are identified by "<OWNER>/<REPOSITORY>".
type Client struct {
	restClt    *github.Client
	graphQLClt *githubv4.Client
	logger     *zap.Logger
}

func splitProject(project string) (owner, repo string, err error) {
	owner, repo, found := strings.Cut(project, "/")
	if !found || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid github project %q, expecting <OWNER>/<REPOSITORY>", project)
	}

	return owner, repo, nil
}

// ListPipelines returns the most recent run of every workflow that ran for
// sha. Older runs of a workflow are superseded by the newer one and are not
// returned.
func (clt *Client) ListPipelines(ctx context.Context, project, sha string) ([]*codehost.Pipeline, error) {
	if sha == "" {
		return nil, nil
	}

	owner, repo, err := splitProject(project)
	if err != nil {
		return nil, err
	}

	runs, _, err := clt.restClt.Actions.ListRepositoryWorkflowRuns(ctx, owner, repo, &github.ListWorkflowRunsOptions{
		HeadSHA:     sha,
		ListOptions: github.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	return latestRunPerWorkflow(runs.WorkflowRuns), nil
}

// latestRunPerWorkflow converts runs to pipelines, keeping the run with the
// highest ID per workflow. The order of runs is preserved.
func latestRunPerWorkflow(runs []*github.WorkflowRun) []*codehost.Pipeline {
	latest := make(map[int64]*github.WorkflowRun, len(runs))
	for _, run := range runs {
		if cur, exists := latest[run.GetWorkflowID()]; !exists || run.GetID() > cur.GetID() {
			latest[run.GetWorkflowID()] = run
		}
	}

	result := make([]*codehost.Pipeline, 0, len(latest))
	for _, run := range runs {
		if latest[run.GetWorkflowID()] != run {
			continue
		}

		result = append(result, &codehost.Pipeline{
			ID:     run.GetID(),
			Status: ToPipelineStatus(run.GetStatus(), run.GetConclusion()),
		})
	}

	return result
}

// ListBranchCommits returns the SHAs of the up to limit most recent commits
// of branch.
func (clt *Client) ListBranchCommits(ctx context.Context, project, branch string, limit int) ([]string, error) {
	owner, repo, err := splitProject(project)
	if err != nil {
		return nil, err
	}

	commits, _, err := clt.restClt.Repositories.ListCommits(ctx, owner, repo, &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: limit},
	})
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	result := make([]string, 0, len(commits))
	for _, c := range commits {
		result = append(result, c.GetSHA())
	}

	return result, nil
}

// SetAssignee replaces the assignees of the pull request with user.
func (clt *Client) SetAssignee(ctx context.Context, project string, prNumber int, user *codehost.User) error {
	owner, repo, err := splitProject(project)
	if err != nil {
		return err
	}

	_, _, err = clt.restClt.Issues.Edit(ctx, owner, repo, prNumber, &github.IssueRequest{
		Assignees: &[]string{user.Username},
	})
	return clt.wrapRetryableErrors(err)
}

// CreateComment creates a comment in a pull request.
func (clt *Client) CreateComment(ctx context.Context, project string, prNumber int, comment string) error {
	owner, repo, err := splitProject(project)
	if err != nil {
		return err
	}

	_, _, err = clt.restClt.Issues.CreateComment(ctx, owner, repo, prNumber, &github.IssueComment{Body: &comment})
	return clt.wrapRetryableErrors(err)
}

// Rebase schedules updating the pull request branch with the changes of its
// base branch.
// If the branch can not be updated automatically because of a merge conflict,
// an error is returned.
func (clt *Client) Rebase(ctx context.Context, project string, prNumber int) error {
	owner, repo, err := splitProject(project)
	if err != nil {
		return err
	}

	logger := clt.logger.With(logfields.Project(project), logfields.MergeRequest(prNumber))

	_, _, err = clt.restClt.PullRequests.UpdateBranch(ctx, owner, repo, prNumber, nil)
	if err != nil {
		var acceptedErr *github.AcceptedError
		if errors.As(err, &acceptedErr) {
			logger.Debug("updating branch with base branch scheduled",
				logfields.Event("github_branch_update_with_base_scheduled"))
			return nil
		}

		var respErr *github.ErrorResponse
		if errors.As(err, &respErr) &&
			respErr.Response.StatusCode == http.StatusUnprocessableEntity &&
			strings.Contains(respErr.Message, "merge conflict") {
			return fmt.Errorf("merge conflict: %w", respErr)
		}

		return clt.wrapRetryableErrors(err)
	}

	logger.Debug("branch was updated with base branch",
		logfields.Event("github_branch_update_with_base_triggered"))

	return nil
}

// Merge merges the pull request if its head commit is sha.
func (clt *Client) Merge(ctx context.Context, project string, prNumber int, sha string) error {
	owner, repo, err := splitProject(project)
	if err != nil {
		return err
	}

	_, _, err = clt.restClt.PullRequests.Merge(ctx, owner, repo, prNumber, "", &github.PullRequestOptions{SHA: sha})
	return clt.wrapRetryableErrors(err)
}

// CancelPipeline cancels a workflow run.
func (clt *Client) CancelPipeline(ctx context.Context, project string, runID int64) error {
	owner, repo, err := splitProject(project)
	if err != nil {
		return err
	}

	_, err = clt.restClt.Actions.CancelWorkflowRunByID(ctx, owner, repo, runID)
	if err != nil {
		var acceptedErr *github.AcceptedError
		if errors.As(err, &acceptedErr) {
			return nil
		}

		return clt.wrapRetryableErrors(err)
	}

	return nil
}

func (clt *Client) wrapRetryableErrors(err error) error {
	switch v := err.(type) {
	case *github.RateLimitError:
		clt.logger.Info(
			"rate limit exceeded",
			logfields.Event("github_api_rate_limit_exceeded"),
			zap.Int("github_api_rate_limit", v.Rate.Limit),
			zap.Time("github_api_rate_limit_reset_time", v.Rate.Reset.Time),
		)

		return goorderr.NewRetryableError(err, v.Rate.Reset.Time)

	case *github.AbuseRateLimitError:
		var retryAfter time.Time
		if v.RetryAfter != nil {
			retryAfter = time.Now().Add(*v.RetryAfter)
		}

		clt.logger.Info(
			"secondary rate limit exceeded",
			logfields.Event("github_api_secondary_rate_limit_exceeded"),
			zap.Time("github_api_retry_after", retryAfter),
		)

		return goorderr.NewRetryableError(err, retryAfter)

	case *github.ErrorResponse:
		if v.Response.StatusCode >= 500 && v.Response.StatusCode < 600 {
			return goorderr.NewRetryableAnytimeError(err)
		}
	}

	return err
}

var graphQlHTTPStatusErrRe = regexp.MustCompile(`^non-200 OK status code: ([0-9]+) .*`)

func (clt *Client) wrapGraphQLRetryableErrors(err error) error {
	matches := graphQlHTTPStatusErrRe.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return err
	}

	errcode, atoiErr := strconv.Atoi(matches[1])
	if atoiErr != nil {
		clt.logger.Info(
			"parsing http code from error string failed",
			zap.Error(atoiErr),
			zap.String("error_string", err.Error()),
			zap.String("http_errcode", matches[1]),
		)
		return err
	}

	if errcode >= 500 && errcode < 600 {
		return goorderr.NewRetryableAnytimeError(err)
	}

	return err
}
