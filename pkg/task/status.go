package task

// Status is the pipeline state of a Task. The set is closed: a Task only
// moves along the transitions listed in next, plus a jump to StatusFailed
// from any non-terminal state.
type Status string

const (
	StatusReceived          Status = "RECEIVED"
	StatusGeneratingProject Status = "GENERATING_PROJECT"
	StatusCreateRepo        Status = "CREATE_REPO"
	StatusPushCommit        Status = "PUSH_COMMIT"
	StatusEnablePages       Status = "ENABLE_PAGES"
	StatusVerifyPages       Status = "VERIFY_PAGES"
	StatusNotifyEvaluator   Status = "NOTIFY_EVALUATOR"
	StatusComplete          Status = "COMPLETE"
	StatusFailed            Status = "FAILED"
)

// next is the forward transition table. COMPLETE and FAILED have no entry.
var next = map[Status]Status{
	StatusReceived:          StatusGeneratingProject,
	StatusGeneratingProject: StatusCreateRepo,
	StatusCreateRepo:        StatusPushCommit,
	StatusPushCommit:        StatusEnablePages,
	StatusEnablePages:       StatusVerifyPages,
	StatusVerifyPages:       StatusNotifyEvaluator,
	StatusNotifyEvaluator:   StatusComplete,
}

// IsTerminal reports whether s is a final state.
func IsTerminal(s Status) bool {
	return s == StatusComplete || s == StatusFailed
}

// Valid reports whether s is a member of the closed status set.
func Valid(s Status) bool {
	if IsTerminal(s) {
		return true
	}
	_, ok := next[s]
	return ok
}

// CanTransition reports whether from -> to is an allowed transition.
// Every non-terminal state may move to FAILED; otherwise only the single
// forward step in the table is allowed.
func CanTransition(from, to Status) bool {
	if IsTerminal(from) {
		return false
	}
	if to == StatusFailed {
		return true
	}
	return next[from] == to
}

// Next returns the forward successor of s, or "" if s is terminal.
func Next(s Status) Status {
	return next[s]
}
