package train

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/itchyny/gojq"

	"github.com/simplesurance/mergetrain/internal/codehost"
)

// Eligibility decides if a merge request is processed by the train.
type Eligibility interface {
	Eligible(*codehost.MergeRequest) (bool, error)
	String() string
}

// AssignedTo matches merge requests where one of the assignees has the
// display name Name.
type AssignedTo struct {
	Name string
}

func (a *AssignedTo) Eligible(mr *codehost.MergeRequest) (bool, error) {
	return mr.IsAssignedTo(a.Name), nil
}

func (a *AssignedTo) String() string {
	return fmt.Sprintf("assigned to %q", a.Name)
}

const jqEvalTimeout = 5 * time.Second

// JQFilter matches merge requests for that a jq query evaluates to true.
//
// The query is run on a JSON document with the following structure:
//
//	{
//	  "iid": 12,
//	  "title": "...",
//	  "source_branch": "...",
//	  "target_branch": "...",
//	  "author": {"name": "...", "username": "..."},
//	  "assignees": [{"name": "...", "username": "..."}],
//	  "labels": ["..."],
//	  "has_conflicts": false
//	}
type JQFilter struct {
	query string
	code  *gojq.Code
}

// NewJQFilter parses and compiles query.
func NewJQFilter(query string) (*JQFilter, error) {
	q, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("parsing query failed: %w", err)
	}

	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compiling query failed: %w", err)
	}

	return &JQFilter{query: query, code: code}, nil
}

func (f *JQFilter) Eligible(mr *codehost.MergeRequest) (bool, error) {
	ctx, cancelFn := context.WithTimeout(context.Background(), jqEvalTimeout)
	defer cancelFn()

	result, errs := goJQIterToSlice(f.code.RunWithContext(ctx, mergeRequestToJQInput(mr)))
	if len(errs) != 0 {
		return false, fmt.Errorf("jq query %q returned errors: %w", f.query, errors.Join(errs...))
	}

	if len(result) != 1 {
		return false, fmt.Errorf("jq query %q returned %d results, expected 1", f.query, len(result))
	}

	match, ok := result[0].(bool)
	if !ok {
		return false, fmt.Errorf("jq query %q returned %v (%T), expected a bool", f.query, result[0], result[0])
	}

	return match, nil
}

func goJQIterToSlice(iter gojq.Iter) ([]any, []error) {
	var result []any
	var errs []error

	for {
		res, ok := iter.Next()
		if !ok {
			return result, errs
		}

		if err, isErr := res.(error); isErr {
			errs = append(errs, err)
			continue
		}

		result = append(result, res)
	}
}

func (f *JQFilter) String() string {
	return fmt.Sprintf("jq query %q", f.query)
}

// mergeRequestToJQInput converts mr to the generic types that gojq can
// process.
func mergeRequestToJQInput(mr *codehost.MergeRequest) map[string]any {
	assignees := make([]any, 0, len(mr.Assignees))
	for i := range mr.Assignees {
		assignees = append(assignees, userToJQInput(&mr.Assignees[i]))
	}

	labels := make([]any, 0, len(mr.Labels))
	for _, l := range mr.Labels {
		labels = append(labels, l)
	}

	return map[string]any{
		"iid":           mr.IID,
		"title":         mr.Title,
		"source_branch": mr.SourceBranch,
		"target_branch": mr.TargetBranch,
		"author":        userToJQInput(&mr.Author),
		"assignees":     assignees,
		"labels":        labels,
		"has_conflicts": mr.HasConflicts,
	}
}

func userToJQInput(u *codehost.User) map[string]any {
	return map[string]any{
		"name":     u.Name,
		"username": u.Username,
	}
}
