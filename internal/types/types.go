// Package types holds the data model shared by the store, the state actor,
// and the manager: JobInfo, its State enum, and the in-memory DownloadJob /
// CancelInfo pair that flows from the manager to a worker.
package types

import "strconv"

// State is the lifecycle of a download job. Unknown is only ever produced
// when decoding a value that isn't one of the known states, so that adding a
// state to a newer build doesn't corrupt an older reader's view of the row.
type State int

const (
	Pending State = iota
	Active
	Failed
	Cancelled
	Done
	Unknown
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Active:
		return "Active"
	case Failed:
		return "Failed"
	case Cancelled:
		return "Cancelled"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// ParseState decodes the textual form written by upsert/set_state. A value
// outside the known set decodes to Unknown rather than an error, so that a
// row written by a newer version can still be read by an older one.
func ParseState(s string) State {
	switch s {
	case "Pending":
		return Pending
	case "Active":
		return Active
	case "Failed":
		return Failed
	case "Cancelled":
		return Cancelled
	case "Done":
		return Done
	default:
		return Unknown
	}
}

// IsTerminal reports whether a job in this state will never again be
// dequeued by a worker or own an entry in the manager's cancellation map.
func (s State) IsTerminal() bool {
	return s == Failed || s == Cancelled || s == Done
}

// MarshalJSON renders the state in its textual form, the same form the
// store persists.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// UnmarshalJSON accepts any quoted string; values outside the known set
// decode to Unknown, matching ParseState.
func (s *State) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	*s = ParseState(str)
	return nil
}

// JobInfo is the durable row for one download job: the unit the store
// persists and the state client's callers exchange.
type JobInfo struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	Path       string `json:"path"`
	Downloaded uint64 `json:"downloaded"`
	Total      uint64 `json:"total"`
	State      State  `json:"state"`
	Msg        string `json:"msg"`
}

// CancelInfo is broadcast from the manager to at most one worker — the one
// that owns the job. It starts at {false, false} and is only ever moved to
// {true, false} or {true, true}; it is never reset.
type CancelInfo struct {
	Cancel bool
	Delete bool
}
