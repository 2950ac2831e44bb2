package gitlabclt

import "github.com/simplesurance/mergetrain/internal/codehost"

// ToPipelineStatus converts a GitLab pipeline status to a
// codehost.PipelineStatus.
// States of pipelines that did not start yet and unknown states are
// converted to PipelineStatusPending.
func ToPipelineStatus(status string) codehost.PipelineStatus {
	switch status {
	case "success":
		return codehost.PipelineStatusSuccess
	case "failed":
		return codehost.PipelineStatusFailed
	case "running":
		return codehost.PipelineStatusRunning
	case "canceled":
		return codehost.PipelineStatusCanceled
	case "manual":
		return codehost.PipelineStatusManual
	case "skipped":
		return codehost.PipelineStatusSkipped
	case "created", "waiting_for_resource", "preparing", "pending", "scheduled":
		return codehost.PipelineStatusPending
	default:
		return codehost.PipelineStatusPending
	}
}
