package githubclt

import "github.com/simplesurance/mergetrain/internal/codehost"

// ToPipelineStatus converts the status and conclusion of a github workflow
// run to a codehost.PipelineStatus.
// Unknown values are converted to PipelineStatusPending.
func ToPipelineStatus(status, conclusion string) codehost.PipelineStatus {
	switch status {
	case "completed":
		return conclusionToPipelineStatus(conclusion)
	case "in_progress":
		return codehost.PipelineStatusRunning
	default:
		return codehost.PipelineStatusPending
	}
}

func conclusionToPipelineStatus(conclusion string) codehost.PipelineStatus {
	switch conclusion {
	case "success", "neutral":
		return codehost.PipelineStatusSuccess
	case "failure", "timed_out", "startup_failure":
		return codehost.PipelineStatusFailed
	case "cancelled", "stale":
		return codehost.PipelineStatusCanceled
	case "skipped":
		return codehost.PipelineStatusSkipped
	case "action_required":
		return codehost.PipelineStatusManual
	default:
		return codehost.PipelineStatusPending
	}
}
