package logfields

import "go.uber.org/zap"

func MergeRequest(iid int) zap.Field {
	return zap.Int("merge_request", iid)
}

func Project(val string) zap.Field {
	return zap.String("project", val)
}

func SourceBranch(val string) zap.Field {
	return zap.String("git.source_branch", val)
}

func TargetBranch(val string) zap.Field {
	return zap.String("git.target_branch", val)
}

func Branch(val string) zap.Field {
	return zap.String("git.branch", val)
}

func Commit(val string) zap.Field {
	return zap.String("git.commit", val)
}

func Pipeline(id int64) zap.Field {
	return zap.Int64("pipeline", id)
}

func PipelineStatus(val string) zap.Field {
	return zap.String("pipeline_status", val)
}

func Action(val string) zap.Field {
	return zap.String("action", val)
}
