package train

import "fmt"

// ActionKind is the kind of operation that Triage decided for a Candidate.
type ActionKind int

const (
	ActionNone ActionKind = iota
	// ActionReassign assigns the merge request to its author and posts a
	// comment that mentions the author and states the reason.
	ActionReassign
	ActionRebase
	ActionMerge
)

var actionKindStr = [...]string{
	ActionNone:     "none",
	ActionReassign: "reassign",
	ActionRebase:   "rebase",
	ActionMerge:    "merge",
}

func (k ActionKind) String() string {
	if k < 0 || int(k) >= len(actionKindStr) {
		return fmt.Sprintf("unsupported ActionKind value: %d", k)
	}

	return actionKindStr[k]
}

const (
	ReasonMergeConflict  = "merge conflict"
	ReasonPipelineFailed = "pipeline failed"
)

// Action is the decision for a Candidate.
// Reason is only set for ActionReassign.
type Action struct {
	Kind   ActionKind
	Reason string
}

func (a Action) String() string {
	if a.Reason == "" {
		return a.Kind.String()
	}

	return fmt.Sprintf("%s (%s)", a.Kind, a.Reason)
}
