// Package codehost defines the host independent representation of merge
// requests and pipelines that the code host clients return.
package codehost

import "fmt"

// User is an account on the code host.
type User struct {
	ID int64
	// Name is the display name.
	Name string
	// Username is the handle that is used to mention the user.
	Username string
}

func (u *User) String() string {
	return fmt.Sprintf("%s (@%s)", u.Name, u.Username)
}

// MergeRequest is a snapshot of an open merge request (GitLab) or pull
// request (GitHub).
// HasConflicts and HeadSHA are retrieved independently from the host, they
// might be stale relative to each other.
type MergeRequest struct {
	// IID identifies the merge request uniquely in its project.
	IID          int
	Title        string
	SourceBranch string
	TargetBranch string
	Author       User
	Assignees    []User
	HasConflicts bool
	// HeadSHA is empty if the host did not compute it yet.
	HeadSHA string
	Labels  []string
	WebURL  string
}

// IsAssignedTo returns true if one of the assignees has the display name
// name.
func (mr *MergeRequest) IsAssignedTo(name string) bool {
	for _, u := range mr.Assignees {
		if u.Name == name {
			return true
		}
	}

	return false
}

func (mr *MergeRequest) String() string {
	return fmt.Sprintf("!%d %s", mr.IID, mr.Title)
}

// PipelineStatus is the normalized state of a CI pipeline.
type PipelineStatus string

const (
	PipelineStatusSuccess  PipelineStatus = "success"
	PipelineStatusFailed   PipelineStatus = "failed"
	PipelineStatusRunning  PipelineStatus = "running"
	PipelineStatusPending  PipelineStatus = "pending"
	PipelineStatusCanceled PipelineStatus = "canceled"
	// PipelineStatusManual is the state of a pipeline that waits for a
	// manual intervention.
	PipelineStatusManual  PipelineStatus = "manual"
	PipelineStatusSkipped PipelineStatus = "skipped"
)

// InFlight returns true if the pipeline has not finished yet.
func (s PipelineStatus) InFlight() bool {
	return s == PipelineStatusRunning || s == PipelineStatusPending
}

// Pipeline is a CI run for the head commit of a merge request.
type Pipeline struct {
	ID     int64
	Status PipelineStatus
}
