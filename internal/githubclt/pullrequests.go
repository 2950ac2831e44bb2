package githubclt

import (
	"context"

	"github.com/shurcooL/githubv4"

	"github.com/simplesurance/mergetrain/internal/codehost"
)

type queryUser struct {
	DatabaseID int64 `graphql:"databaseId"`
	Login      string
	Name       string
}

type queryPullRequest struct {
	Number      int
	Title       string
	HeadRefName string
	BaseRefName string
	HeadRefOid  string
	Mergeable   githubv4.MergeableState
	URL         string `graphql:"url"`
	Author      struct {
		Login string
		User  queryUser `graphql:"... on User"`
	}
	Assignees struct {
		Nodes []queryUser
	} `graphql:"assignees(first: 20)"`
	Labels struct {
		Nodes []struct {
			Name string
		}
	} `graphql:"labels(first: 50)"`
}

// ListOpenMergeRequests returns all open pull requests of project.
// Github computes the mergeable state asynchronously, while it is unknown the
// pull request is reported as not having conflicts.
func (clt *Client) ListOpenMergeRequests(ctx context.Context, project string) ([]*codehost.MergeRequest, error) {
	type graphQLQueryOpenPRs struct {
		Repository struct {
			PullRequests struct {
				PageInfo struct {
					EndCursor   string
					HasNextPage bool
				}
				Nodes []queryPullRequest
			} `graphql:"pullRequests(states: OPEN, first: $first, after: $after)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}

	owner, repo, err := splitProject(project)
	if err != nil {
		return nil, err
	}

	vars := map[string]any{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(repo),
		"first": githubv4.Int(perPage),
		"after": (*githubv4.String)(nil),
	}

	var result []*codehost.MergeRequest
	for {
		var q graphQLQueryOpenPRs

		err := clt.graphQLClt.Query(ctx, &q, vars)
		if err != nil {
			return nil, clt.wrapGraphQLRetryableErrors(err)
		}

		for i := range q.Repository.PullRequests.Nodes {
			result = append(result, toMergeRequest(&q.Repository.PullRequests.Nodes[i]))
		}

		pageInfo := q.Repository.PullRequests.PageInfo
		if !pageInfo.HasNextPage || pageInfo.EndCursor == "" {
			return result, nil
		}

		vars["after"] = githubv4.String(pageInfo.EndCursor)
	}
}

func toMergeRequest(pr *queryPullRequest) *codehost.MergeRequest {
	result := codehost.MergeRequest{
		IID:          pr.Number,
		Title:        pr.Title,
		SourceBranch: pr.HeadRefName,
		TargetBranch: pr.BaseRefName,
		HasConflicts: pr.Mergeable == githubv4.MergeableStateConflicting,
		HeadSHA:      pr.HeadRefOid,
		WebURL:       pr.URL,
		Author:       toUser(pr.Author.Login, &pr.Author.User),
	}

	for i := range pr.Assignees.Nodes {
		u := &pr.Assignees.Nodes[i]
		result.Assignees = append(result.Assignees, toUser(u.Login, u))
	}

	for _, l := range pr.Labels.Nodes {
		result.Labels = append(result.Labels, l.Name)
	}

	return &result
}

// toUser converts a github user. Github users do not need to have a display
// name, if it is empty the login is used.
func toUser(login string, u *queryUser) codehost.User {
	name := u.Name
	if name == "" {
		name = login
	}

	return codehost.User{
		ID:       u.DatabaseID,
		Name:     name,
		Username: login,
	}
}
