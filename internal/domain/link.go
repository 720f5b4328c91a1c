package domain

// LinkState is the link session's health classification.
type LinkState int

const (
	LinkDown LinkState = iota
	LinkUp
	LinkDegraded
)

// String returns a human-readable representation of the link state.
func (s LinkState) String() string {
	switch s {
	case LinkUp:
		return "UP"
	case LinkDegraded:
		return "DEGRADED"
	case LinkDown:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

// LinkStatus is the link session's observable state. Owned exclusively by the
// session; consumers receive copies.
type LinkStatus struct {
	// State is the current link classification
	State LinkState

	// LastAckedSeq is the sequence number of the last acknowledged command;
	// meaningful only when HasAcked is true
	LastAckedSeq uint16

	// HasAcked reports whether any command has been acknowledged this session
	HasAcked bool

	// OutstandingRetries is the count of consecutive missed acknowledgment
	// windows in the current streak
	OutstandingRetries int
}
