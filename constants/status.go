package constants

// SessionStatus is the presentation state of one upload session.
type SessionStatus string

// The four states are mutually exclusive. Only an explicit reset moves a session back to empty.
const (
	SessionStatusEmpty   SessionStatus = "empty"   // waiting for an upload
	SessionStatusLoading SessionStatus = "loading" // batch in flight
	SessionStatusError   SessionStatus = "error"   // batch failed, message set
	SessionStatusResults SessionStatus = "results" // batch succeeded, reports set
)
