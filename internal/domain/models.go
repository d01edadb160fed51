// Package domain provides domain models and business logic for the deep research service.
package domain

// SessionStatus represents the lifecycle states of a research session.
// These values must match the database enum session_status.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "PENDING"
	SessionStatusRunning   SessionStatus = "RUNNING"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusFailed    SessionStatus = "FAILED"
)

// IsTerminal returns true if the status represents a final state that will not change.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
// Transitions are monotonic: PENDING → RUNNING → {COMPLETED, FAILED}. A session
// may also fail directly from PENDING (e.g. the workflow dies before real work
// starts). Terminal states accept nothing.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionStatusPending:
		return next == SessionStatusRunning || next == SessionStatusFailed
	case SessionStatusRunning:
		return next == SessionStatusCompleted || next == SessionStatusFailed
	default:
		return false
	}
}

// DocumentResult is the terminal outcome code of one document ingestion run.
type DocumentResult string

const (
	// DocumentResultProcessed means text was extracted and a summary stored.
	DocumentResultProcessed DocumentResult = "processed"
	// DocumentResultEmpty means extraction produced no text.
	DocumentResultEmpty DocumentResult = "empty"
	// DocumentResultFailed means extraction raised an error; a diagnostic tag
	// is stored in place of the summary.
	DocumentResultFailed DocumentResult = "failed"
	// DocumentResultNotFound means the document row no longer exists.
	DocumentResultNotFound DocumentResult = "not found"
	// DocumentResultUnchanged means the document was already processed and was
	// left untouched.
	DocumentResultUnchanged DocumentResult = "unchanged"
)
