package train

import (
	"go.uber.org/zap"

	"github.com/simplesurance/mergetrain/internal/logfields"
)

const loggerName = "train"

var (
	logEventPassStarted  = logfields.Event("pass_started")
	logEventPassFinished = logfields.Event("pass_finished")
	logEventPassFailed   = logfields.Event("pass_failed")

	logEventCandidateIneligible = logfields.Event("candidate_ineligible")
	logEventCandidateEvaluated  = logfields.Event("candidate_evaluated")
	logEventReadFailed          = logfields.Event("code_host_read_failed")

	logEventActionDispatched = logfields.Event("action_dispatched")
	logEventActionFailed     = logfields.Event("action_failed")
	logEventRebaseDeferred   = logfields.Event("rebase_deferred")
)

func logFieldReason(reason string) zap.Field {
	return zap.String("reason", reason)
}
